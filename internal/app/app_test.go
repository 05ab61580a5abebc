package app

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"yeetbank/pkg/config"
)

func TestServeAndShutdown(t *testing.T) {
	cfg := config.Default()
	a, err := New(cfg, "test")
	require.NoError(t, err)

	ln := fasthttputil.NewInmemoryListener()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	c := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	require.Eventually(t, func() bool {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)
		req.SetRequestURI("http://demo.local/healthz")
		req.SetConnectionClose()
		err := c.DoTimeout(req, resp, time.Second)
		return err == nil && resp.StatusCode() == fasthttp.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer scancel()
	require.NoError(t, a.Shutdown(sctx))
	assert.Equal(t, "stopped", a.state)
}

func TestNewRejectsMissingAccountsFile(t *testing.T) {
	cfg := config.Default()
	cfg.Demo.AccountsFile = t.TempDir() + "/missing.yaml"
	_, err := New(cfg, "test")
	assert.Error(t, err)
}
