package app

import (
	"context"

	"yeetbank/pkg/logger"
	"yeetbank/pkg/shutdown"
)

// Shutdown stops accepting requests and halts the background sweeper. ctx
// bounds how long in-flight requests may take.
func (a *App) Shutdown(ctx context.Context) error {
	a.state = "shutting_down"
	err := shutdown.Run(
		shutdown.Step{Name: "FastHTTP server", Stop: func() error {
			if a.srvFast == nil {
				return nil
			}
			done := make(chan error, 1)
			go func() { done <- a.srvFast.Shutdown() }()
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
		shutdown.Step{Name: "sweeper", Stop: func() error {
			if a.cancel != nil {
				a.cancel()
			}
			return nil
		}},
		shutdown.Step{Name: "logger", Stop: func() error {
			logger.Sync()
			return nil
		}},
	)
	if err == nil {
		a.state = "stopped"
	}
	return err
}
