package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
)

// Endpoint labels for request metrics.
const (
	endpointLogin    = "login"
	endpointLogout   = "logout"
	endpointQuery    = "query"
	endpointModeldef = "modeldef"
)

// Rate limit wait reasons.
const (
	reasonLocal  = "local"
	reasonServer = "server"
)

// send performs one HTTP exchange and records it.
func (c *Client) send(
	ctx context.Context,
	drv driver,
	req *retryablehttp.Request,
	endpoint string,
) (*stdhttp.Response, error) {
	start := time.Now()

	resp, err := drv.send(ctx, req)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	c.metrics.RecordRequest(endpoint, status, time.Since(start))

	return resp, err
}

// ratelimitedSend admits req through the local windows and sends it. A
// refused admission sleeps once and checks again before sending. An
// HTTP 500 reporting a server-side rate limit violation is retried exactly
// once after a full per-minute period. The body of any other 500 is
// buffered and handed back unread.
func (c *Client) ratelimitedSend(
	ctx context.Context,
	drv driver,
	req *retryablehttp.Request,
	endpoint string,
	enter func(requestState),
) (*stdhttp.Response, error) {
	enter(stateRateLimitAdmission)

	decision, err := c.limiter.Check(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking rate limit: %w", err)
	}

	if decision.Limited {
		err = c.rateLimitWait(ctx, drv, decision.RetryAfter, reasonLocal)
		if err != nil {
			return nil, err
		}

		// Count the send in the windows that opened during the sleep.
		decision, err = c.limiter.Check(ctx)
		if err != nil {
			return nil, fmt.Errorf("checking rate limit: %w", err)
		}

		if decision.Limited {
			c.logger.Debug("Rate limit still reached after sleeping, sending anyway", map[string]interface{}{
				"endpoint":    endpoint,
				"retry_after": decision.RetryAfter.String(),
			})
		}
	}

	enter(stateSending)

	resp, err := c.send(ctx, drv, req, endpoint)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != stdhttp.StatusInternalServerError {
		return resp, nil
	}

	body, err := drv.read(ctx, resp.Body)
	if err != nil {
		return nil, err
	}

	if !bytes.Contains(body, []byte(constants.RateLimitViolationMarker)) {
		resp.Body = io.NopCloser(bytes.NewReader(body))

		return resp, nil
	}

	c.logger.Warn("Space-Track reported a rate limit violation, retrying once", map[string]interface{}{
		"endpoint": endpoint,
	})

	err = c.rateLimitWait(ctx, drv, c.limiter.ViolationBackoff(), reasonServer)
	if err != nil {
		return nil, err
	}

	return c.send(ctx, drv, req, endpoint)
}

// rateLimitWait notifies the callback and sleeps for d.
func (c *Client) rateLimitWait(ctx context.Context, drv driver, d time.Duration, reason string) error {
	until := time.Now().Add(d)

	c.logger.Info("Rate limit reached, sleeping", map[string]interface{}{
		"sleep_seconds": int64(d.Round(time.Second) / time.Second),
		"until":         until.Format(time.RFC3339),
		"reason":        reason,
	})

	if fn := c.callback.Load(); fn != nil {
		(*fn)(until)
	}

	c.metrics.RecordRateLimitSleep(reason, d)

	return drv.sleep(ctx, d)
}
