package stclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/fivetwenty-io/spacetrack/internal/client"
	"github.com/fivetwenty-io/spacetrack/internal/constants"
	"github.com/fivetwenty-io/spacetrack/pkg/ratelimit"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

// EnvConfig is the part of spacetrack.Config NewFromEnv reads from the
// environment.
type EnvConfig struct {
	Identity string `env:"SPACETRACK_IDENTITY,required"`
	Password string `env:"SPACETRACK_PASSWORD"`
	BaseURL  string `env:"SPACETRACK_BASE_URL,default=https://www.space-track.org/"`
	CacheDir string `env:"SPACETRACK_CACHE_DIR"`
	// RedisURL selects a Redis rate limit store shared with other processes.
	RedisURL string `env:"SPACETRACK_REDIS_URL"`
	// RateLimitKeyPrefix namespaces the shared windows.
	RateLimitKeyPrefix string `env:"SPACETRACK_RATE_LIMIT_PREFIX,default=spacetrack:"`
}

// New creates a Space-Track client. The config is copied; BaseURL gains an
// https:// scheme when it has none, and an empty CacheDir becomes the per-user
// cache directory.
func New(ctx context.Context, config *spacetrack.Config) (spacetrack.Client, error) {
	if config == nil {
		return nil, spacetrack.ErrConfigRequired
	}

	normalized := *config
	normalized.BaseURL = normalizeBaseURL(normalized.BaseURL)

	if normalized.CacheDir == "" && !normalized.DisableDiskCache {
		normalized.CacheDir, normalized.DisableDiskCache = defaultCacheDir()
	}

	c, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewAsync creates a client whose calls return futures.
func NewAsync(ctx context.Context, config *spacetrack.Config) (spacetrack.AsyncClient, error) {
	c, err := New(ctx, config)
	if err != nil {
		return nil, err
	}

	return c.Async(), nil
}

// NewFromEnv creates a client configured from SPACETRACK_* environment
// variables. When SPACETRACK_REDIS_URL is set the rate limit windows live
// in that Redis, and Close also closes the Redis connection.
func NewFromEnv(ctx context.Context) (spacetrack.Client, error) {
	var env EnvConfig

	err := envdecode.Decode(&env)
	if err != nil {
		return nil, fmt.Errorf("decoding environment: %w", err)
	}

	return NewFromEnvConfig(ctx, env, nil)
}

// NewFromEnvConfig is NewFromEnv over an already decoded EnvConfig. base,
// when not nil, supplies the remaining options.
func NewFromEnvConfig(ctx context.Context, env EnvConfig, base *spacetrack.Config) (spacetrack.Client, error) {
	config := spacetrack.Config{}
	if base != nil {
		config = *base
	}

	config.Identity = env.Identity
	config.Password = env.Password
	config.BaseURL = env.BaseURL
	config.CacheDir = env.CacheDir

	if env.RedisURL == "" {
		return New(ctx, &config)
	}

	options, err := redis.ParseURL(env.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing SPACETRACK_REDIS_URL: %w", err)
	}

	rdb := redis.NewClient(options)

	store, err := ratelimit.NewRedisStore(ratelimit.RedisConfig{Client: rdb, KeyPrefix: env.RateLimitKeyPrefix})
	if err != nil {
		_ = rdb.Close()

		return nil, err
	}

	config.RateLimitStore = store

	c, err := New(ctx, &config)
	if err != nil {
		_ = rdb.Close()

		return nil, err
	}

	return &sharedStoreClient{Client: c, redis: rdb}, nil
}

// sharedStoreClient owns the Redis connection behind its rate limit store.
type sharedStoreClient struct {
	spacetrack.Client

	redis *redis.Client
}

func (c *sharedStoreClient) Close() error {
	return errors.Join(c.Client.Close(), c.redis.Close())
}

func normalizeBaseURL(baseURL string) string {
	if baseURL == "" {
		return ""
	}

	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return baseURL
}

// defaultCacheDir returns the per-user predicate cache directory. Without
// one the cache stays in memory.
func defaultCacheDir() (string, bool) {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		return "", true
	}

	return filepath.Join(dir, constants.ApplicationName), false
}
