// Package pipeline sequences batched fetch work: it chunks id queues,
// spaces requests by a minimum interval, and drains them through a single
// cancellable loop.
package pipeline

import (
	"context"
	"sync"
	"time"
)

// Pacer grants permits at most once per interval. It is shared by every
// drain loop talking to the same upstream, so request starts stay spaced
// regardless of how many runs are active. The zero interval grants
// immediately.
//
// The clock is injectable so pacing is testable without real sleeps.
type Pacer struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

// NewPacer creates a Pacer with the given minimum interval between permits.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		now:      time.Now,
		after:    time.After,
	}
}

// Take blocks until a permit is available or ctx is done. The wait is
// cancel-aware: a context cancelled mid-wait returns promptly with its
// error and leaves the permit schedule untouched.
func (p *Pacer) Take(ctx context.Context) error {
	for {
		p.mu.Lock()
		now := p.now()
		if !now.Before(p.next) {
			p.next = now.Add(p.interval)
			p.mu.Unlock()
			return nil
		}
		wait := p.next.Sub(now)
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.after(wait):
		}
	}
}

// NextAt reports the earliest time the next permit can be granted.
func (p *Pacer) NextAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next
}

// Interval reports the configured minimum spacing.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}
