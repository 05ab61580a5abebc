package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"yeetbank/pkg/logger"
)

// Step is one component to stop during shutdown.
type Step struct {
	Name string
	Stop func() error
}

// Run stops each step in order. A failing step is logged and does not
// prevent later steps; the joined errors are returned.
func Run(steps ...Step) error {
	logger.Info("shutdown: requested")
	var errs []error
	for _, s := range steps {
		if s.Stop == nil {
			continue
		}
		logger.Info("shutdown: stopping " + s.Name)
		if err := s.Stop(); err != nil {
			logger.Error("shutdown: "+s.Name+" error", "error", err)
			errs = append(errs, err)
		}
	}
	logger.Info("shutdown: complete")
	return errors.Join(errs...)
}

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM. A
// SIGPIPE dumps goroutine stacks before cancelling. The cancel function
// also stops watching signals.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sigpipe := make(chan os.Signal, 1)
	signal.Notify(sigpipe, syscall.SIGPIPE)

	go func() {
		select {
		case s := <-sigc:
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
		case s := <-sigpipe:
			logger.Info("signal_received", "signal", s.String(), "msg", "SIGPIPE - dumping goroutine stacks")
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			logger.Info("goroutine_stack_dump", "dump", string(buf[:n]))
		case <-ctx.Done():
		}
		cancel()
	}()

	return ctx, func() {
		signal.Stop(sigc)
		signal.Stop(sigpipe)
		cancel()
	}
}

// Abort reports a fatal startup error on stderr and in the log, then exits.
func Abort(msg string, err error) {
	logger.Error("fatal", "msg", msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	logger.Sync()
	os.Exit(1)
}
