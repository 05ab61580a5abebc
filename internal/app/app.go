package app

import (
	"context"
	"fmt"
	"net"

	"github.com/valyala/fasthttp"

	"yeetbank/pkg/config"
	"yeetbank/pkg/demo"
	"yeetbank/pkg/logger"
)

// App runs the demo backend.
type App struct {
	cfg     *config.Config
	version string
	server  *demo.Server
	srvFast *fasthttp.Server
	cancel  context.CancelFunc
	state   string
}

// New seeds the demo backend from cfg. Nothing listens until Run.
func New(cfg *config.Config, version string) (*App, error) {
	var accounts []demo.Account
	if path := cfg.Demo.AccountsFile; path != "" {
		var err error
		if accounts, err = demo.LoadAccountsFile(path); err != nil {
			return nil, fmt.Errorf("load demo accounts: %w", err)
		}
		logger.Info("demo_accounts_loaded", "path", path, "count", len(accounts))
	}
	srv := demo.New(demo.Options{
		Accounts:    accounts,
		RateRPS:     cfg.Server.RateLimit.RPS,
		RateBurst:   cfg.Server.RateLimit.Burst,
		ExternalFee: cfg.Transfer.ExternalFee.Decimal,
		WireFee:     cfg.Transfer.WireFee.Decimal,
	})
	return &App{cfg: cfg, version: version, server: srv, state: "initialized"}, nil
}

// Server exposes the demo state, mainly for tests.
func (a *App) Server() *demo.Server { return a.server }

// Run listens on the configured address and blocks until ctx is cancelled
// or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp4", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.printBanner(ln.Addr().String())

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go a.server.Run(runCtx)

	errCh := a.startHTTP(ln)
	a.state = "running"
	logger.Info("server_started", "addr", ln.Addr().String(), "version", a.version)

	select {
	case <-runCtx.Done():
		return nil
	case err := <-errCh:
		cancel()
		if err != nil {
			logger.Error("server_error", "error", err)
		}
		return err
	}
}
