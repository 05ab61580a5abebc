package app

import (
	"fmt"
	"net"
	"time"

	"github.com/valyala/fasthttp"

	"yeetbank/pkg/demo"
)

func (a *App) printBanner(addr string) {
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	fmt.Println("== Yeet Bank demo backend ======================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("API:      http://%s/api\n", addr)
	fmt.Printf("Version:  %s\n", ver)
	fmt.Printf("Login:    john@demo.com / %s\n", demo.DemoPassword)
	fmt.Println("================================================================")
}

func (a *App) startHTTP(ln net.Listener) <-chan error {
	const (
		readBufferSize       = 64 * 1024
		idleTimeout          = 30 * time.Second
		maxKeepaliveDuration = 2 * time.Minute
	)
	a.srvFast = &fasthttp.Server{
		Handler:              a.server.Handler(),
		Name:                 "yeetbank-demo",
		ReadBufferSize:       readBufferSize,
		MaxRequestBodySize:   int(a.cfg.API.MaxBodySize.Int64()),
		ReadTimeout:          a.cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:         a.cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:          idleTimeout,
		MaxKeepaliveDuration: maxKeepaliveDuration,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.srvFast.Serve(ln)
	}()
	return errCh
}
