package client

import (
	"context"
	"time"
)

// SetSleeper replaces the rate limit sleeper of c.
func SetSleeper(c *Client, fn func(ctx context.Context, d time.Duration) error) {
	c.sleep = fn
}
