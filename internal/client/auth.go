package client

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/url"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
	"github.com/fivetwenty-io/spacetrack/internal/http"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

// Authenticate logs in unless the session is already authenticated.
func (c *Client) Authenticate(ctx context.Context) error {
	err := c.checkOpen()
	if err != nil {
		return err
	}

	return c.authenticate(ctx, newBlockingDriver(c))
}

// Logout ends the server session. It is a no-op when not logged in.
func (c *Client) Logout(ctx context.Context) error {
	err := c.checkOpen()
	if err != nil {
		return err
	}

	return c.logout(ctx, newBlockingDriver(c))
}

// authenticate posts the credentials. Space-Track answers a rejected login
// with HTTP 200 and {"Login": "Failed"}.
func (c *Client) authenticate(ctx context.Context, drv driver) error {
	if c.authenticated.Load() {
		return nil
	}

	form := url.Values{}
	form.Set("identity", c.identity)
	form.Set("password", c.password)

	body, err := c.exchange(ctx, drv, &http.Request{
		Method: stdhttp.MethodPost,
		Path:   constants.PathLogin,
		Form:   form,
	}, endpointLogin)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	var payload interface{}

	err = json.Unmarshal(body, &payload)
	if err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}

	if fields, ok := payload.(map[string]interface{}); ok {
		if login, ok := fields["Login"].(string); ok && login == "Failed" {
			return &spacetrack.AuthenticationError{Identity: c.identity}
		}
	}

	c.authenticated.Store(true)

	c.logger.Debug("Authenticated with Space-Track", map[string]interface{}{
		"identity": c.identity,
	})

	return nil
}

func (c *Client) logout(ctx context.Context, drv driver) error {
	if !c.authenticated.Load() {
		return nil
	}

	_, err := c.exchange(ctx, drv, &http.Request{
		Method: stdhttp.MethodGet,
		Path:   constants.PathLogout,
	}, endpointLogout)
	if err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	c.authenticated.Store(false)

	return nil
}

// exchange sends a request outside the rate limit windows and returns its
// body, or an *HTTPError for error statuses.
func (c *Client) exchange(ctx context.Context, drv driver, req *http.Request, endpoint string) ([]byte, error) {
	httpReq, err := c.httpClient.NewRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, drv, httpReq, endpoint)
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

	return body, nil
}
