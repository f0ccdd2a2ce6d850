package client

import (
	"context"
	"fmt"
	"weak"

	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

// controllerProxy scopes requests to one controller. It holds the client
// weakly, so a forgotten proxy never keeps a session alive.
type controllerProxy struct {
	client weak.Pointer[Client]
	name   string
}

// Controller returns a proxy fixed to controller name.
func (c *Client) Controller(name string) (spacetrack.Controller, error) {
	if _, ok := spacetrack.ControllerClasses(name); !ok {
		return nil, fmt.Errorf("%w '%s'", spacetrack.ErrUnknownController, name)
	}

	return controllerProxy{client: weak.Make(c), name: name}, nil
}

func (p controllerProxy) get() (*Client, error) {
	c := p.client.Value()
	if c == nil {
		return nil, spacetrack.ErrClientClosed
	}

	return c, nil
}

func (p controllerProxy) Name() string {
	return p.name
}

func (p controllerProxy) Classes() []string {
	classes, _ := spacetrack.ControllerClasses(p.name)

	return classes
}

func (p controllerProxy) Do(ctx context.Context, req spacetrack.Request) (*spacetrack.Result, error) {
	c, err := p.get()
	if err != nil {
		return nil, err
	}

	req.Controller = p.name

	return c.Do(ctx, req)
}

func (p controllerProxy) Call(ctx context.Context, class string, args spacetrack.Args) (*spacetrack.Result, error) {
	return p.Do(ctx, spacetrack.Request{Class: class, Args: args})
}

func (p controllerProxy) GetPredicates(ctx context.Context, class string) ([]spacetrack.Predicate, error) {
	c, err := p.get()
	if err != nil {
		return nil, err
	}

	return c.GetPredicates(ctx, class, p.name)
}

func (p controllerProxy) String() string {
	return fmt.Sprintf("ControllerProxy<controller='%s'>", p.name)
}
