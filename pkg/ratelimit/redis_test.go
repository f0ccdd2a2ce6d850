package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/spacetrack/pkg/ratelimit"
)

func TestRedisStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   3,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	defer client.FlushDB(ctx)

	store, err := ratelimit.NewRedisStore(ratelimit.RedisConfig{
		Client:    client,
		KeyPrefix: "test:",
	})
	require.NoError(t, err)

	t.Run("persists windows", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store,
			ratelimit.WithKeyPrefix("persist_"),
			ratelimit.WithMinuteQuota(ratelimit.PerMinute(1)),
		)

		decision, err := limiter.Check(ctx)
		require.NoError(t, err)
		assert.False(t, decision.Limited)

		decision, err = limiter.Check(ctx)
		require.NoError(t, err)
		assert.True(t, decision.Limited)

		ttl, err := client.TTL(ctx, "test:persist_st_req_min").Result()
		require.NoError(t, err)
		assert.Positive(t, ttl)
		assert.LessOrEqual(t, ttl, time.Minute)
	})

	t.Run("concurrent admissions never exceed the limit", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store,
			ratelimit.WithKeyPrefix("concurrent_"),
			ratelimit.WithMinuteQuota(ratelimit.PerMinute(5)),
		)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			admitted int
		)

		for range 20 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				decision, err := limiter.Check(ctx)
				if err != nil || decision.Limited {
					return
				}

				mu.Lock()
				admitted++
				mu.Unlock()
			}()
		}

		wg.Wait()

		assert.LessOrEqual(t, admitted, 5)
	})
}

func TestNewRedisStore_RequiresClient(t *testing.T) {
	t.Parallel()

	_, err := ratelimit.NewRedisStore(ratelimit.RedisConfig{})
	require.Error(t, err)
}
