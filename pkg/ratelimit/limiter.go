// Package ratelimit implements the client-side request throttles for
// Space-Track: a per-minute window, a per-hour window and an optional
// caller-supplied window, all backed by a pluggable Store so that several
// processes can share one budget.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
)

// Decision is the combined outcome of all windows.
type Decision struct {
	// Limited is true when at least one window refused the call.
	Limited bool

	// RetryAfter is the longest wait reported by any window.
	RetryAfter time.Duration
}

// Limiter checks the per-minute, per-hour and optional additional windows.
type Limiter struct {
	minute  *Throttle
	windows []keyedThrottle
}

type keyedThrottle struct {
	throttle *Throttle
	key      string
}

// admission is a call counted in one window.
type admission struct {
	window keyedThrottle
	start  time.Time
}

// Option configures a Limiter.
type Option func(*limiterOptions)

type limiterOptions struct {
	keyPrefix  string
	minute     Quota
	hour       Quota
	additional *Quota
	now        func() time.Time
}

// WithKeyPrefix namespaces the window keys in the store.
func WithKeyPrefix(prefix string) Option {
	return func(o *limiterOptions) {
		o.keyPrefix = prefix
	}
}

// WithAdditionalQuota adds a third window on top of the published limits.
func WithAdditionalQuota(quota Quota) Option {
	return func(o *limiterOptions) {
		o.additional = &quota
	}
}

// WithMinuteQuota replaces the per-minute quota.
func WithMinuteQuota(quota Quota) Option {
	return func(o *limiterOptions) {
		o.minute = quota
	}
}

// WithHourQuota replaces the per-hour quota.
func WithHourQuota(quota Quota) Option {
	return func(o *limiterOptions) {
		o.hour = quota
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *limiterOptions) {
		o.now = now
	}
}

// NewLimiter creates a limiter over store. A nil store means a fresh
// MemoryStore.
func NewLimiter(store Store, opts ...Option) *Limiter {
	options := limiterOptions{
		minute: PerMinute(constants.PerMinuteLimit),
		hour:   PerHour(constants.PerHourLimit),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(&options)
	}

	if store == nil {
		store = NewMemoryStore()
	}

	minute := NewThrottle(options.minute, store)
	minute.now = options.now

	hour := NewThrottle(options.hour, store)
	hour.now = options.now

	limiter := &Limiter{
		minute: minute,
		windows: []keyedThrottle{
			{throttle: minute, key: options.keyPrefix + constants.PerMinuteKey},
			{throttle: hour, key: options.keyPrefix + constants.PerHourKey},
		},
	}

	if options.additional != nil {
		additional := NewThrottle(*options.additional, store)
		additional.now = options.now

		limiter.windows = append(limiter.windows, keyedThrottle{
			throttle: additional,
			key:      options.keyPrefix + constants.AdditionalKey,
		})
	}

	return limiter
}

// Check admits one call when every window has room and reports the longest
// wait otherwise. A refused check consumes nothing from any window, so a
// caller that gives up while waiting leaves the budget untouched. It checks
// once; callers sleep for RetryAfter and check again.
func (l *Limiter) Check(ctx context.Context) (Decision, error) {
	var decision Decision

	for _, window := range l.windows {
		result, err := window.throttle.Peek(ctx, window.key)
		if err != nil {
			return Decision{}, err
		}

		decision.Limited = decision.Limited || result.Limited
		decision.RetryAfter = max(decision.RetryAfter, result.RetryAfter)
	}

	if decision.Limited {
		return decision, nil
	}

	admitted := make([]admission, 0, len(l.windows))

	for _, window := range l.windows {
		result, start, err := window.throttle.evaluate(ctx, window.key, true)
		if err == nil && !result.Limited {
			admitted = append(admitted, admission{window: window, start: start})

			continue
		}

		// Another caller filled a window since the peek.
		releaseErr := l.release(ctx, admitted)
		if err != nil {
			return Decision{}, errors.Join(err, releaseErr)
		}

		if releaseErr != nil {
			return Decision{}, releaseErr
		}

		return Decision{Limited: true, RetryAfter: result.RetryAfter}, nil
	}

	return Decision{}, nil
}

func (l *Limiter) release(ctx context.Context, admitted []admission) error {
	var errs []error

	for _, a := range admitted {
		err := a.window.throttle.release(context.WithoutCancel(ctx), a.window.key, a.start)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ViolationBackoff is how long to wait after the server reports the query
// rate limit was exceeded: one full per-minute period.
func (l *Limiter) ViolationBackoff() time.Duration {
	return l.minute.Quota().Period
}

// Keys returns the store keys used by the limiter in check order.
func (l *Limiter) Keys() []string {
	keys := make([]string, 0, len(l.windows))
	for _, window := range l.windows {
		keys = append(keys, window.key)
	}

	return keys
}
