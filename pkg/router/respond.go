package router

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// WriteJSON writes a JSON response with the given status.
func WriteJSON(ctx *fasthttp.RequestCtx, status int, data any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(data)
}

// WriteJSONError writes {"<key>": message}. The banking API is not
// consistent about the key: auth endpoints answer with "detail", transfer
// endpoints with "error".
func WriteJSONError(ctx *fasthttp.RequestCtx, status int, key, message string) {
	WriteJSON(ctx, status, map[string]string{key: message})
}

// ReadJSON decodes the request body into v.
func ReadJSON(ctx *fasthttp.RequestCtx, v any) error {
	return json.Unmarshal(ctx.PostBody(), v)
}
