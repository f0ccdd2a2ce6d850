package client

import (
	"context"
	"time"

	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

// asyncClient runs the same session on the cooperative driver. Each call
// starts its own goroutine.
type asyncClient struct {
	client *Client
}

// Async returns the non-blocking view of the session.
func (c *Client) Async() spacetrack.AsyncClient {
	return &asyncClient{client: c}
}

// Sync returns the blocking view of the session.
func (a *asyncClient) Sync() spacetrack.Client {
	return a.client
}

func (a *asyncClient) Authenticate(ctx context.Context) *spacetrack.Future[struct{}] {
	return spacetrack.Go(ctx, func(ctx context.Context) (struct{}, error) {
		err := a.client.checkOpen()
		if err != nil {
			return struct{}{}, err
		}

		return struct{}{}, a.client.authenticate(ctx, newCooperativeDriver(a.client))
	})
}

func (a *asyncClient) Logout(ctx context.Context) *spacetrack.Future[struct{}] {
	return spacetrack.Go(ctx, func(ctx context.Context) (struct{}, error) {
		err := a.client.checkOpen()
		if err != nil {
			return struct{}{}, err
		}

		return struct{}{}, a.client.logout(ctx, newCooperativeDriver(a.client))
	})
}

func (a *asyncClient) Close() error {
	return a.client.Close()
}

func (a *asyncClient) Do(ctx context.Context, req spacetrack.Request) *spacetrack.Future[*spacetrack.Result] {
	return spacetrack.Go(ctx, func(ctx context.Context) (*spacetrack.Result, error) {
		err := a.client.checkOpen()
		if err != nil {
			return nil, err
		}

		return a.client.do(ctx, newCooperativeDriver(a.client), req)
	})
}

func (a *asyncClient) Call(ctx context.Context, class string, args spacetrack.Args) *spacetrack.Future[*spacetrack.Result] {
	return a.Do(ctx, spacetrack.Request{Class: class, Args: args})
}

func (a *asyncClient) GetPredicates(
	ctx context.Context,
	class, controller string,
) *spacetrack.Future[[]spacetrack.Predicate] {
	return spacetrack.Go(ctx, func(ctx context.Context) ([]spacetrack.Predicate, error) {
		err := a.client.checkOpen()
		if err != nil {
			return nil, err
		}

		return a.client.getPredicates(ctx, newCooperativeDriver(a.client), class, controller)
	})
}

func (a *asyncClient) Classes() []string {
	return a.client.Classes()
}

func (a *asyncClient) SetRateLimitCallback(fn func(until time.Time)) {
	a.client.SetRateLimitCallback(fn)
}
