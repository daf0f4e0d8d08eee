package retry

import (
	"context"
	"math/rand"
	"time"
)

// Config tunes the exponential backoff. Zero values fall back to defaults.
type Config struct {
	Retries int
	Base    time.Duration
	Factor  float64
	Jitter  float64

	// Retryable decides whether an error is worth another attempt. Nil means
	// every error is retried. Application-level signals (anti-bot, empty
	// extraction) should be filtered out here or handled by the caller.
	Retryable func(error) bool
}

func DefaultConfig() Config {
	return Config{
		Retries: 3,
		Base:    time.Second,
		Factor:  1.8,
		Jitter:  0.2,
	}
}

const minDelay = 100 * time.Millisecond

// Do runs op up to cfg.Retries times with jittered exponential backoff between
// attempts. The last error propagates unchanged so callers can distinguish
// error kinds. No state is shared between invocations.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	retries := cfg.Retries
	if retries < 1 {
		retries = DefaultConfig().Retries
	}
	base := cfg.Base
	if base <= 0 {
		base = DefaultConfig().Base
	}
	factor := cfg.Factor
	if factor <= 1 {
		factor = DefaultConfig().Factor
	}

	delay := base
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return zero, err
		}
		if attempt == retries-1 {
			break
		}

		d := jittered(delay, cfg.Jitter)
		select {
		case <-ctx.Done():
			return zero, lastErr
		case <-time.After(d):
		}
		delay = time.Duration(float64(delay) * factor)
	}

	return zero, lastErr
}

func jittered(d time.Duration, jitter float64) time.Duration {
	if jitter > 0 {
		spread := 1 + (rand.Float64()*2-1)*jitter
		d = time.Duration(float64(d) * spread)
	}
	if d < minDelay {
		d = minDelay
	}
	return d
}
