package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome of one throttle check.
type Result struct {
	// Limited is true when the call was not admitted.
	Limited bool

	// Remaining is the number of calls left in the current window.
	Remaining int

	// RetryAfter is the time until the window resets. Zero when admitted.
	RetryAfter time.Duration
}

// Throttle enforces a quota over fixed periodic windows. A window opens on
// the first call after the previous one expired and admits Limit calls until
// Period has elapsed.
type Throttle struct {
	quota Quota
	store Store
	now   func() time.Time
}

// NewThrottle creates a periodic throttle over store.
func NewThrottle(quota Quota, store Store) *Throttle {
	return &Throttle{
		quota: quota,
		store: store,
		now:   time.Now,
	}
}

// Quota returns the quota this throttle enforces.
func (t *Throttle) Quota() Quota {
	return t.quota
}

// Check consumes one call from the window stored under key. A limited check
// consumes nothing.
func (t *Throttle) Check(ctx context.Context, key string) (Result, error) {
	result, _, err := t.evaluate(ctx, key, true)

	return result, err
}

// Peek reports what Check would return without consuming a call.
func (t *Throttle) Peek(ctx context.Context, key string) (Result, error) {
	result, _, err := t.evaluate(ctx, key, false)

	return result, err
}

// evaluate checks the window under key and, when consume is set and the
// call is admitted, counts it. It returns the start of the window the call
// was counted in.
func (t *Throttle) evaluate(ctx context.Context, key string, consume bool) (Result, time.Time, error) {
	var (
		result Result
		start  time.Time
	)

	now := t.now()

	err := t.store.Update(ctx, key, t.quota.Period, func(stored Window) Window {
		window := stored
		if window.Start.IsZero() || now.Sub(window.Start) >= t.quota.Period {
			window = Window{Start: now}
		}

		if window.Used >= t.quota.Limit {
			result = Result{
				Limited:    true,
				Remaining:  0,
				RetryAfter: window.Start.Add(t.quota.Period).Sub(now),
			}

			return stored
		}

		if !consume {
			result = Result{Remaining: t.quota.Limit - window.Used}

			return stored
		}

		window.Used++
		result = Result{Remaining: t.quota.Limit - window.Used}
		start = window.Start

		return window
	})
	if err != nil {
		return Result{}, time.Time{}, fmt.Errorf("checking %s throttle: %w", key, err)
	}

	return result, start, nil
}

// release returns a call counted in the window that opened at start. It is
// a no-op once that window has been replaced.
func (t *Throttle) release(ctx context.Context, key string, start time.Time) error {
	err := t.store.Update(ctx, key, t.quota.Period, func(window Window) Window {
		if window.Start.Equal(start) && window.Used > 0 {
			window.Used--
		}

		return window
	})
	if err != nil {
		return fmt.Errorf("releasing %s throttle: %w", key, err)
	}

	return nil
}
