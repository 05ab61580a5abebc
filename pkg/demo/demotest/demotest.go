// Package demotest runs the demo backend on an in-memory listener so tests
// can exercise the real client transport without opening sockets.
package demotest

import (
	"net"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"yeetbank/pkg/api"
	"yeetbank/pkg/demo"
)

// BaseURL is the API root clients should use; the host is never resolved.
const BaseURL = "http://demo.local/api"

type Harness struct {
	Server   *demo.Server
	Listener *fasthttputil.InmemoryListener
}

// Start serves a fresh demo backend until the test ends.
func Start(t testing.TB, opts demo.Options) *Harness {
	t.Helper()
	srv := demo.New(opts)
	ln := fasthttputil.NewInmemoryListener()
	hs := &fasthttp.Server{Handler: srv.Handler(), Name: "yeetbank-demo"}
	go func() { _ = hs.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return &Harness{Server: srv, Listener: ln}
}

// Dial connects through the in-memory listener.
func (h *Harness) Dial(string) (net.Conn, error) {
	return h.Listener.Dial()
}

// Client returns an api.Client wired to this backend.
func (h *Harness) Client() *api.Client {
	return api.New(api.Options{BaseURL: BaseURL, Timeout: 5 * time.Second, Dial: h.Dial})
}
