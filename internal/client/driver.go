package client

import (
	"context"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/spacetrack/internal/cache"
	"github.com/fivetwenty-io/spacetrack/internal/constants"
)

// driver performs the suspension points of a request: the HTTP exchange,
// body reads, rate limit sleeps and predicate cache locking. Everything
// between them is plain computation shared by both drivers.
type driver interface {
	cache.Locker

	send(ctx context.Context, req *retryablehttp.Request) (*stdhttp.Response, error)
	read(ctx context.Context, body io.ReadCloser) ([]byte, error)
	sleep(ctx context.Context, d time.Duration) error
}

// blockingDriver runs every step on the calling goroutine.
type blockingDriver struct {
	client *Client
}

func newBlockingDriver(c *Client) *blockingDriver {
	return &blockingDriver{client: c}
}

func (d *blockingDriver) send(_ context.Context, req *retryablehttp.Request) (*stdhttp.Response, error) {
	return d.client.httpClient.Send(req)
}

func (d *blockingDriver) read(_ context.Context, body io.ReadCloser) ([]byte, error) {
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return data, nil
}

func (d *blockingDriver) sleep(ctx context.Context, duration time.Duration) error {
	return d.client.sleep(ctx, duration)
}

func (d *blockingDriver) Lock(_ context.Context, lock *flock.Flock) error {
	return lock.Lock()
}

func (d *blockingDriver) Unlock(lock *flock.Flock) error {
	return lock.Unlock()
}

// cooperativeDriver gives up at every suspension point once ctx is done.
// File locks are polled instead of held in a blocking syscall.
type cooperativeDriver struct {
	client *Client
}

func newCooperativeDriver(c *Client) *cooperativeDriver {
	return &cooperativeDriver{client: c}
}

func (d *cooperativeDriver) send(ctx context.Context, req *retryablehttp.Request) (*stdhttp.Response, error) {
	err := ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	return d.client.httpClient.Send(req)
}

func (d *cooperativeDriver) read(ctx context.Context, body io.ReadCloser) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })

	defer func() {
		stop()

		_ = body.Close()
	}()

	data, err := io.ReadAll(body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("reading response body: %w", ctxErr)
		}

		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return data, nil
}

func (d *cooperativeDriver) sleep(ctx context.Context, duration time.Duration) error {
	return d.client.sleep(ctx, duration)
}

func (d *cooperativeDriver) Lock(ctx context.Context, lock *flock.Flock) error {
	ok, err := lock.TryLockContext(ctx, constants.LockPollInterval)
	if err != nil {
		return err //nolint:wrapcheck // callers classify the raw lock error
	}

	if !ok {
		return fmt.Errorf("waiting for predicate cache lock: %w", ctx.Err())
	}

	return nil
}

func (d *cooperativeDriver) Unlock(lock *flock.Flock) error {
	return lock.Unlock()
}
