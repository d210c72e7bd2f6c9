// Package ratepacer enforces the minimum spacing between quota-consuming
// Reddit calls (the "rate clock" in §3/§4.6.g/h, §8 P3).
package ratepacer

import (
	"context"
	"sync"
	"time"

	"github.com/riverglen/reddit-broker/internal/metrics"
)

// Pacer tracks when the most recently paced call completed and blocks the
// next caller until the configured interval has elapsed since then. Unlike
// a token-bucket limiter reserved at call *start*, this measures from call
// *end* to the next call's start, which is what §4.6.h ("last_processed_at
// = now after the call returns") and §8 P3 ("start(c2) - end(c1) >=
// interval") actually require: a slow call must not eat into the next
// call's spacing.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	lastDone time.Time
}

// New creates a Pacer that keeps at least interval between one paced call's
// Done and the next call's start. A non-positive interval becomes one second.
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Pacer{interval: interval}
}

// Wait blocks until the rate clock allows the next call, recording a
// rate-limit-wait metric whenever the caller was actually made to wait. The
// very first call (no prior Done) never waits.
func (p *Pacer) Wait(ctx context.Context) {
	p.mu.Lock()
	last := p.lastDone
	interval := p.interval
	p.mu.Unlock()

	if last.IsZero() {
		return
	}
	remaining := interval - time.Since(last)
	if remaining <= 0 {
		return
	}

	metrics.RateLimitWaits.Inc()
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Done marks the rate clock as having just completed a quota-consuming
// call (§4.6.h). Callers invoke it once the call returns, not before.
func (p *Pacer) Done() {
	p.mu.Lock()
	p.lastDone = time.Now()
	p.mu.Unlock()
}

// SetInterval reconfigures the minimum spacing at runtime (tests only).
func (p *Pacer) SetInterval(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = interval
}
