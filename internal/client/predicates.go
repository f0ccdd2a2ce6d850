package client

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"

	"github.com/fivetwenty-io/spacetrack/internal/cache"
	"github.com/fivetwenty-io/spacetrack/internal/constants"
	"github.com/fivetwenty-io/spacetrack/internal/http"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

// GetPredicates fetches the full predicate list of class, downloading it
// even when cache locking is unavailable.
func (c *Client) GetPredicates(ctx context.Context, class, controller string) ([]spacetrack.Predicate, error) {
	err := c.checkOpen()
	if err != nil {
		return nil, err
	}

	return c.getPredicates(ctx, newBlockingDriver(c), class, controller)
}

func (c *Client) getPredicates(ctx context.Context, drv driver, class, controller string) ([]spacetrack.Predicate, error) {
	controller, err := spacetrack.ResolveController(class, controller)
	if err != nil {
		return nil, err
	}

	predicates, _, err := c.loadPredicates(ctx, drv, class, controller, true)
	if err != nil {
		return nil, err
	}

	return cache.Clone(predicates), nil
}

// loadPredicates resolves predicates through the cache. checked is false
// when argument validation has to be skipped.
func (c *Client) loadPredicates(
	ctx context.Context,
	drv driver,
	class, controller string,
	force bool,
) ([]spacetrack.Predicate, bool, error) {
	predicates, checked, err := c.predicates.Get(ctx, drv, class, controller, force,
		func(ctx context.Context) (json.RawMessage, error) {
			return c.downloadModeldef(ctx, drv, class, controller)
		})
	if err != nil {
		return nil, false, fmt.Errorf("getting predicates for %s: %w", cache.Key(class, controller), err)
	}

	return predicates, checked, nil
}

// downloadModeldef fetches the raw field descriptors of class.
func (c *Client) downloadModeldef(ctx context.Context, drv driver, class, controller string) (json.RawMessage, error) {
	err := c.authenticate(ctx, drv)
	if err != nil {
		return nil, err
	}

	httpReq, err := c.httpClient.NewRequest(ctx, &http.Request{
		Method: stdhttp.MethodGet,
		Path:   fmt.Sprintf(constants.PathModeldefFormat, controller, class),
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Downloading predicates", map[string]interface{}{
		"url": httpReq.URL.Redacted(),
	})

	resp, err := c.ratelimitedSend(ctx, drv, httpReq, endpointModeldef, func(requestState) {})
	if err != nil {
		return nil, err
	}

	body, err := drv.read(ctx, resp.Body)
	if err != nil {
		return nil, err
	}

	err = http.CheckResponse(resp, body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data json.RawMessage `json:"data"`
	}

	err = json.Unmarshal(body, &payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", spacetrack.ErrMalformedModeldef, err)
	}

	if len(payload.Data) == 0 || string(payload.Data) == "null" {
		return nil, fmt.Errorf("%w: missing data field", spacetrack.ErrMalformedModeldef)
	}

	return payload.Data, nil
}
