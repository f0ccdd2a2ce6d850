package client_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/spacetrack/internal/client"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

func TestClient_Controller(t *testing.T) {
	t.Parallel()

	t.Run("scopes requests", func(t *testing.T) {
		t.Parallel()

		fake := newFakeSpaceTrack(t, nil)
		c := newTestClient(t, fake, nil)

		proxy, err := c.Controller(spacetrack.ControllerSPEphemeris)
		require.NoError(t, err)

		assert.Equal(t, "spephemeris", proxy.Name())
		assert.Equal(t, "ControllerProxy<controller='spephemeris'>", proxy.String())
		assert.Equal(t, []string{"download", "file", "file_history"}, proxy.Classes())

		_, err = proxy.Call(context.Background(), "download", spacetrack.Args{spacetrack.A("format", "stream")})
		require.NoError(t, err)

		_, err = proxy.Do(context.Background(), spacetrack.Request{
			Class:      "download",
			Controller: spacetrack.ControllerFileShare,
		})
		require.NoError(t, err)

		requests := fake.recorded()
		require.Len(t, requests, 2)
		assert.Equal(t, "/spephemeris/query/class/download/format/stream", requests[0].Path)
		assert.Equal(t, "/spephemeris/query/class/download", requests[1].Path)

		_, err = proxy.Call(context.Background(), "gp", nil)
		require.ErrorIs(t, err, spacetrack.ErrClassNotInController)
	})

	t.Run("predicates", func(t *testing.T) {
		t.Parallel()

		fake := newFakeSpaceTrack(t, nil)
		c := newTestClient(t, fake, nil)

		proxy, err := c.Controller(spacetrack.ControllerFileShare)
		require.NoError(t, err)

		predicates, err := proxy.GetPredicates(context.Background(), "file")
		require.NoError(t, err)
		assert.NotEmpty(t, predicates)

		_, _, modeldefs, _ := fake.counts()
		assert.Equal(t, 1, modeldefs)
	})

	t.Run("unknown controller", func(t *testing.T) {
		t.Parallel()

		fake := newFakeSpaceTrack(t, nil)
		c := newTestClient(t, fake, nil)

		_, err := c.Controller("fruitspacedata")
		require.ErrorIs(t, err, spacetrack.ErrUnknownController)
	})
}

func TestClient_GarbageCollected(t *testing.T) {
	t.Parallel()

	fake := newFakeSpaceTrack(t, nil)
	logger := &MockLogger{}

	proxy := func() spacetrack.Controller {
		c, err := client.New(context.Background(), &spacetrack.Config{
			Identity:         "user@example.com",
			BaseURL:          fake.URL,
			Logger:           logger,
			DisableDiskCache: true,
		})
		require.NoError(t, err)

		proxy, err := c.Controller(spacetrack.ControllerFileShare)
		require.NoError(t, err)

		return proxy
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()

		return logger.hasMessageContaining("warn", "garbage collected without being closed")
	}, 5*time.Second, 10*time.Millisecond)

	_, err := proxy.Call(context.Background(), "download", spacetrack.Args{spacetrack.A("file_id", 1)})
	require.ErrorIs(t, err, spacetrack.ErrClientClosed)

	logins, _, _, queries := fake.counts()
	assert.Zero(t, logins)
	assert.Zero(t, queries)
}
