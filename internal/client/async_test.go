package client_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/spacetrack/internal/client"
	"github.com/fivetwenty-io/spacetrack/pkg/ratelimit"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestAsyncClient(t *testing.T) {
	t.Parallel()

	onePerMinute := func(config *spacetrack.Config) {
		quota := ratelimit.PerMinute(1)
		config.AdditionalRateLimit = &quota
	}

	t.Run("resolves futures", func(t *testing.T) {
		t.Parallel()

		fake := newFakeSpaceTrack(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, `[{"NORAD_CAT_ID": "25544"}]`)
		})
		c := newTestClient(t, fake, nil)
		async := c.Async()

		_, err := async.Authenticate(context.Background()).Get()
		require.NoError(t, err)

		result, err := async.Do(context.Background(), spacetrack.Request{Class: "gp", ParseTypes: true}).
			Wait(context.Background())
		require.NoError(t, err)

		record := result.Data().([]any)[0].(map[string]any)
		assert.Equal(t, int64(25544), record["NORAD_CAT_ID"])

		predicates, err := async.GetPredicates(context.Background(), "gp", "").Get()
		require.NoError(t, err)
		assert.Len(t, predicates, 4)

		_, err = async.Logout(context.Background()).Get()
		require.NoError(t, err)

		logins, logouts, modeldefs, _ := fake.counts()
		assert.Equal(t, 1, logins)
		assert.Equal(t, 1, logouts)
		assert.Equal(t, 1, modeldefs)

		assert.Same(t, c.Client, async.Sync())
	})

	t.Run("runs calls concurrently", func(t *testing.T) {
		t.Parallel()

		fake := newFakeSpaceTrack(t, nil)
		c := newTestClient(t, fake, nil)
		async := c.Async()

		futures := make([]*spacetrack.Future[*spacetrack.Result], 5)
		for i := range futures {
			futures[i] = async.Call(context.Background(), "dirs", nil)
		}

		for _, future := range futures {
			<-future.Done()

			_, err := future.Get()
			require.NoError(t, err)
		}

		_, _, _, queries := fake.counts()
		assert.Equal(t, 5, queries)
	})

	t.Run("cancel interrupts a rate limit sleep", func(t *testing.T) {
		t.Parallel()

		fake := newFakeSpaceTrack(t, nil)
		c := newTestClient(t, fake, onePerMinute)
		c.sleeper.block = true
		c.sleeper.started = make(chan struct{})

		_, err := c.Call(context.Background(), "dirs", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		future := c.Async().Call(ctx, "dirs", nil)

		select {
		case <-c.sleeper.started:
		case <-time.After(5 * time.Second):
			t.Fatal("rate limit sleep did not start")
		}

		cancel()

		_, err = future.Get()
		require.ErrorIs(t, err, context.Canceled)

		_, _, _, queries := fake.counts()
		assert.Equal(t, 1, queries)
		assert.Equal(t, 1, c.callbacks())
	})

	t.Run("real sleeper stops on cancel", func(t *testing.T) {
		t.Parallel()

		fake := newFakeSpaceTrack(t, nil)
		quota := ratelimit.PerMinute(1)

		c, err := client.New(context.Background(), &spacetrack.Config{
			Identity:            "user@example.com",
			BaseURL:             fake.URL,
			DisableDiskCache:    true,
			AdditionalRateLimit: &quota,
		})
		require.NoError(t, err)

		defer func() { assert.NoError(t, c.Close()) }()

		_, err = c.Call(context.Background(), "dirs", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err = c.Async().Call(ctx, "dirs", nil).Get()
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "rate limit wait interrupted")
		assert.Less(t, time.Since(start), 10*time.Second)
	})

	t.Run("wait gives up without cancelling", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		fake := newFakeSpaceTrack(t, func(w http.ResponseWriter, _ *http.Request) {
			<-release
			writeJSON(w, `[]`)
		})
		c := newTestClient(t, fake, nil)

		future := c.Async().Call(context.Background(), "dirs", nil)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := future.Wait(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		close(release)

		_, err = future.Get()
		require.NoError(t, err)
	})
}
