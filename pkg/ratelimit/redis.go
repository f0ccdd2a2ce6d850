package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
)

// RedisConfig holds the configuration for a RedisStore.
type RedisConfig struct {
	// Client is the Redis client used for all operations. Required.
	Client redis.UniversalClient

	// KeyPrefix is prepended to every window key.
	KeyPrefix string
}

// RedisStore shares windows between processes through Redis. Updates use
// WATCH/MULTI so concurrent callers never admit past the limit.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore creates a store backed by the configured client.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	if config.Client == nil {
		return nil, constants.ErrRedisClientNil
	}

	return &RedisStore{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, key string, ttl time.Duration, fn func(Window) Window) error {
	redisKey := s.keyPrefix + key

	txf := func(tx *redis.Tx) error {
		var window Window

		data, err := tx.Get(ctx, redisKey).Bytes()

		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("reading window %s: %w", redisKey, err)
		default:
			window, err = decodeWindow(data)
			if err != nil {
				return err
			}
		}

		next := fn(window)
		if next.equal(window) {
			return nil
		}

		encoded, err := encodeWindow(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, encoded, ttl)

			return nil
		})

		return err
	}

	for range maxUpdateAttempts {
		err := s.client.Watch(ctx, txf, redisKey)
		if err == nil {
			return nil
		}

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return fmt.Errorf("updating window %s: %w", redisKey, err)
	}

	return fmt.Errorf("%w: %s", constants.ErrStoreConflict, redisKey)
}
