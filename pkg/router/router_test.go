package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func serve(h fasthttp.RequestHandler, method, path string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	h(&ctx)
	return &ctx
}

func TestParamsAndTrailingSlash(t *testing.T) {
	r := New()
	var got string
	r.GET("/chat/rooms/{room}/messages/", func(ctx *fasthttp.RequestCtx) {
		got = Param(ctx, "room")
		ctx.SetStatusCode(fasthttp.StatusOK)
	})
	h := r.Handler()

	for _, p := range []string{"/chat/rooms/42/messages/", "/chat/rooms/42/messages"} {
		ctx := serve(h, "GET", p)
		assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode(), p)
		assert.Equal(t, "42", got)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	r := New()
	r.POST("/auth/login/", func(ctx *fasthttp.RequestCtx) {})
	h := r.Handler()

	assert.Equal(t, fasthttp.StatusMethodNotAllowed, serve(h, "GET", "/auth/login/").Response.StatusCode())
	assert.Equal(t, fasthttp.StatusNotFound, serve(h, "GET", "/nope/").Response.StatusCode())

	r.NotFound(func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusTeapot) })
	assert.Equal(t, fasthttp.StatusTeapot, serve(r.Handler(), "GET", "/nope/").Response.StatusCode())
}

func TestMiddlewareOrder(t *testing.T) {
	r := New()
	var order []string
	mw := func(name string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
			return func(ctx *fasthttp.RequestCtx) {
				order = append(order, name)
				next(ctx)
			}
		}
	}
	r.Use(mw("outer"))
	r.Use(mw("inner"))
	r.GET("/", func(ctx *fasthttp.RequestCtx) { order = append(order, "handler") })

	serve(r.Handler(), "GET", "/")
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestWriteJSONError(t *testing.T) {
	var ctx fasthttp.RequestCtx
	WriteJSONError(&ctx, fasthttp.StatusUnauthorized, "detail", "No active account")
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"detail":"No active account"}`, string(ctx.Response.Body()))
}
