package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolitenessDelayWaitsWithinRange(t *testing.T) {
	limiter := NewPolitenessDelay(10*time.Millisecond, 30*time.Millisecond)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestPolitenessDelaySwapsRangeWhenInverted(t *testing.T) {
	limiter := NewPolitenessDelay(30*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, limiter.Wait(context.Background()))
}

func TestPolitenessDelayCancellation(t *testing.T) {
	limiter := NewPolitenessDelay(time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetDelay(t *testing.T) {
	limiter := NewPolitenessDelay(time.Hour, time.Hour)
	limiter.SetDelay(0, 0)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestNone(t *testing.T) {
	var limiter None
	require.NoError(t, limiter.Wait(context.Background()))
}
