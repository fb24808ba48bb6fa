// Package pace holds the sleeping primitives every component uses to
// stay under the target sites' rate limits.
package pace

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoSleep returns immediately, used by tests
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// NewLimiter returns a limiter that lets one request through per
// interval. A zero interval never waits.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
