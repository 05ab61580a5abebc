// Package notify keeps the dashboard badges current: the signed-in
// identity (for the balance) and the unread notification count, refreshed
// on a fixed interval and whenever the user returns to the dashboard.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/raulk/clock"

	"yeetbank/pkg/api"
	"yeetbank/pkg/logger"
	"yeetbank/pkg/metrics"
)

const defaultInterval = 30 * time.Second

type Backend interface {
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) error
}

// Identity reloads the signed-in user.
type Identity interface {
	Reload(ctx context.Context) (api.User, error)
}

type Options struct {
	Clock    clock.Clock
	Interval time.Duration
}

// State is what the badges show.
type State struct {
	User      api.User
	HasUser   bool
	Unread    int
	UpdatedAt time.Time
}

type Counter struct {
	backend  Backend
	identity Identity
	clock    clock.Clock
	interval time.Duration
	focus    chan struct{}

	mu        sync.Mutex
	state     State
	observers []func(State)
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(backend Backend, identity Identity, opts Options) *Counter {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	return &Counter{
		backend:  backend,
		identity: identity,
		clock:    opts.Clock,
		interval: opts.Interval,
		focus:    make(chan struct{}, 1),
	}
}

func (c *Counter) OnChange(fn func(State)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

func (c *Counter) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start refreshes once and then on every interval and focus event, until
// ctx ends or Stop is called. Starting a running counter is a no-op.
func (c *Counter) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	ticker := c.clock.Ticker(c.interval)
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer ticker.Stop()
		c.Refresh(runCtx)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
			case <-c.focus:
			}
			c.Refresh(runCtx)
		}
	}()
}

// Stop halts the loop and waits for an in-progress refresh to return.
func (c *Counter) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Focus asks for an immediate refresh. Bursts collapse into one.
func (c *Counter) Focus() {
	select {
	case c.focus <- struct{}{}:
	default:
	}
}

// Refresh fetches identity and unread count side by side. A failed part is
// logged and leaves its previous value in place.
func (c *Counter) Refresh(ctx context.Context) {
	var (
		wg      sync.WaitGroup
		user    api.User
		userErr error
		count   int
		cntErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		user, userErr = c.identity.Reload(ctx)
	}()
	go func() {
		defer wg.Done()
		count, cntErr = c.backend.UnreadCount(ctx)
	}()
	wg.Wait()
	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	if userErr != nil {
		metrics.DashboardRefreshes.WithLabelValues("identity", "error").Inc()
		logger.Warn("dashboard_refresh_failed", "part", "identity", "error", userErr)
	} else {
		metrics.DashboardRefreshes.WithLabelValues("identity", "ok").Inc()
		c.state.User, c.state.HasUser = user, true
	}
	if cntErr != nil {
		metrics.DashboardRefreshes.WithLabelValues("unread", "error").Inc()
		logger.Warn("dashboard_refresh_failed", "part", "unread", "error", cntErr)
	} else {
		metrics.DashboardRefreshes.WithLabelValues("unread", "ok").Inc()
		c.state.Unread = count
		metrics.UnreadNotifications.Set(float64(count))
	}
	c.state.UpdatedAt = c.clock.Now()
	st, fns := c.state, append([]func(State){}, c.observers...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// MarkRead marks one notification read and lowers the badge, never below zero.
func (c *Counter) MarkRead(ctx context.Context, id int64) error {
	if err := c.backend.MarkRead(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	if c.state.Unread > 0 {
		c.state.Unread--
	}
	metrics.UnreadNotifications.Set(float64(c.state.Unread))
	st, fns := c.state, append([]func(State){}, c.observers...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
	return nil
}
