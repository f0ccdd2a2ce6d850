package client

import (
	"runtime"

	"github.com/fivetwenty-io/spacetrack/internal/http"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

// leakState is what the cleanup needs once the client is unreachable. It
// must not point back to the client.
type leakState struct {
	logger    spacetrack.Logger
	transport *http.Client
	name      string
}

// watchForLeak warns when the client is collected without Close. Cleanup
// timing depends on the garbage collector, so the warning is advisory only.
func (c *Client) watchForLeak() {
	state := leakState{
		logger:    c.logger,
		transport: c.httpClient,
		name:      c.String(),
	}

	c.cleanup = runtime.AddCleanup(c, reportLeak, state)
}

func reportLeak(state leakState) {
	state.logger.Warn(state.name+" was garbage collected without being closed explicitly, "+
		"call Close when done with the client", map[string]interface{}{
		"base_url": state.transport.BaseURL(),
	})

	state.transport.Close()
}
