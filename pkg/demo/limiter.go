package demo

import (
	"sync"
	"time"

	"github.com/raulk/clock"
	"golang.org/x/time/rate"
)

// Per-key rate limiter pool.
type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*limiterEntry
	rps   float64
	burst int
	clock clock.Clock
	ttl   time.Duration
}

func newLimiterPool(rps float64, burst int, clk clock.Clock) *limiterPool {
	return &limiterPool{m: make(map[string]*limiterEntry), rps: rps, burst: burst, clock: clk, ttl: 10 * time.Minute}
}

// get limiter for key, create if missing
func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	if e, ok := p.m[key]; ok {
		e.lastSeen = now
		return e.l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: now}
	return l
}

// Allow reports whether another attempt for key may proceed now.
func (p *limiterPool) Allow(key string) bool {
	return p.get(key).AllowN(p.clock.Now(), 1)
}

// sweep removes limiters unused for longer than the TTL.
func (p *limiterPool) sweep() {
	cutoff := p.clock.Now().Add(-p.ttl)
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
		}
	}
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
