package chat

import (
	"sync"
	"time"

	"github.com/raulk/clock"
)

// Debouncer turns keystrokes into typing signals: true when a burst starts,
// false once idle has passed without another keystroke. signal is called
// outside the lock, from the caller's goroutine or the timer's.
type Debouncer struct {
	clock  clock.Clock
	idle   time.Duration
	signal func(bool)

	mu     sync.Mutex
	timer  *clock.Timer
	typing bool
	gen    uint64
}

func NewDebouncer(clk clock.Clock, idle time.Duration, signal func(bool)) *Debouncer {
	return &Debouncer{clock: clk, idle: idle, signal: signal}
}

// Keystroke records activity and restarts the idle timer.
func (d *Debouncer) Keystroke() {
	d.mu.Lock()
	start := !d.typing
	d.typing = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.idle, func() { d.expire(gen) })
	d.mu.Unlock()
	if start {
		d.signal(true)
	}
}

func (d *Debouncer) expire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.typing {
		d.mu.Unlock()
		return
	}
	d.typing = false
	d.timer = nil
	d.mu.Unlock()
	d.signal(false)
}

// Flush cancels the idle timer and signals false regardless of state.
func (d *Debouncer) Flush() {
	d.halt()
	d.signal(false)
}

// Stop cancels the idle timer without signalling.
func (d *Debouncer) Stop() { d.halt() }

func (d *Debouncer) halt() {
	d.mu.Lock()
	d.gen++
	d.typing = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
}

// Typing reports whether a burst is in progress.
func (d *Debouncer) Typing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.typing
}
