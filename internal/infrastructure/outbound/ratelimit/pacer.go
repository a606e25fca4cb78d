package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

var _ ports.RateLimiter = (*HostPacer)(nil)

type limiterEntry struct {
	limiter  *rate.Limiter
	rate     float64
	burst    int
	lastUsed time.Time
}

// HostPacer provides per-key token bucket limiters that block callers until
// a token is available. Keys are usually backend hosts.
type HostPacer struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewHostPacer creates a pacer that forgets limiters idle for longer than ttl.
// It starts a background goroutine that evicts stale entries every ttl interval.
// Call Stop to terminate it.
func NewHostPacer(ttl time.Duration) *HostPacer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	p := &HostPacer{
		limiters: make(map[string]*limiterEntry),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go p.evictLoop()
	return p
}

// Stop terminates the background eviction goroutine. Safe to call twice.
func (p *HostPacer) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *HostPacer) evictLoop() {
	ticker := time.NewTicker(p.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Evict()
		case <-p.stop:
			return
		}
	}
}

// Wait blocks until key may proceed under r tokens per second with the given burst.
// A non-positive rate disables pacing for the call.
func (p *HostPacer) Wait(ctx context.Context, key string, r float64, burst int) error {
	if r <= 0 {
		return ctx.Err()
	}
	if burst < 1 {
		burst = 1
	}
	return p.limiter(key, r, burst).Wait(ctx)
}

func (p *HostPacer) limiter(key string, r float64, burst int) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.limiters[key]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(r), burst),
			rate:    r,
			burst:   burst,
		}
		p.limiters[key] = entry
	} else if entry.rate != r || entry.burst != burst {
		// Config was reloaded with new pacing.
		entry.limiter.SetLimit(rate.Limit(r))
		entry.limiter.SetBurst(burst)
		entry.rate = r
		entry.burst = burst
	}
	entry.lastUsed = time.Now()
	return entry.limiter
}

// Evict removes entries unused for longer than the TTL.
func (p *HostPacer) Evict() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-p.ttl)
	for key, entry := range p.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(p.limiters, key)
		}
	}
}

// Len returns the number of tracked keys.
func (p *HostPacer) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}
