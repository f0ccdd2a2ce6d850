package ratelimit

import (
	"fmt"
	"time"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
)

// Quota is a number of calls allowed per period.
type Quota struct {
	Limit  int
	Period time.Duration
}

// PerSecond returns a quota of n calls per second.
func PerSecond(n int) Quota {
	return Quota{Limit: n, Period: time.Second}
}

// PerMinute returns a quota of n calls per minute.
func PerMinute(n int) Quota {
	return Quota{Limit: n, Period: time.Minute}
}

// PerHour returns a quota of n calls per hour.
func PerHour(n int) Quota {
	return Quota{Limit: n, Period: time.Hour}
}

// Validate reports whether the quota can be enforced.
func (q Quota) Validate() error {
	if q.Limit <= 0 || q.Period <= 0 {
		return fmt.Errorf("%w: %d per %s", constants.ErrInvalidQuota, q.Limit, q.Period)
	}

	return nil
}

// String implements fmt.Stringer.
func (q Quota) String() string {
	return fmt.Sprintf("%d/%s", q.Limit, q.Period)
}
