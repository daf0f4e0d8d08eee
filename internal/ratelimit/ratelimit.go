package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RateLimiter paces outgoing requests.
type RateLimiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// PolitenessDelay sleeps a uniform random duration in [min, max] on every
// Wait. It carries no cross-call state, so concurrent crawl tasks each pay
// their own delay instead of queueing behind a shared clock.
type PolitenessDelay struct {
	mu       sync.Mutex
	minDelay time.Duration
	maxDelay time.Duration
}

func NewPolitenessDelay(min, max time.Duration) *PolitenessDelay {
	if max < min {
		max = min
	}
	return &PolitenessDelay{minDelay: min, maxDelay: max}
}

func (p *PolitenessDelay) Wait(ctx context.Context) error {
	p.mu.Lock()
	min, max := p.minDelay, p.maxDelay
	p.mu.Unlock()

	delay := min
	if max > min {
		delay = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	if delay <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (p *PolitenessDelay) SetDelay(min, max time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minDelay = min
	p.maxDelay = max
}

// None is a no-op limiter for tests.
type None struct{}

func (None) Wait(ctx context.Context) error  { return ctx.Err() }
func (None) SetDelay(min, max time.Duration) {}
