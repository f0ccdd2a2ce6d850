package client

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/fivetwenty-io/spacetrack/internal/cache"
	"github.com/fivetwenty-io/spacetrack/internal/constants"
	"github.com/fivetwenty-io/spacetrack/internal/http"
	"github.com/fivetwenty-io/spacetrack/internal/metrics"
	"github.com/fivetwenty-io/spacetrack/pkg/ratelimit"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

var (
	_ spacetrack.Client      = (*Client)(nil)
	_ spacetrack.AsyncClient = (*asyncClient)(nil)
	_ spacetrack.Controller  = controllerProxy{}
)

// Client implements the spacetrack.Client interface.
type Client struct {
	httpClient *http.Client
	identity   string
	password   string
	logger     spacetrack.Logger
	limiter    *ratelimit.Limiter
	predicates *cache.PredicateCache
	metrics    *metrics.Collector

	// sleep waits out rate limits. Replaced by tests.
	sleep func(ctx context.Context, d time.Duration) error

	callback      atomic.Pointer[func(until time.Time)]
	authenticated atomic.Bool
	closed        atomic.Bool

	cleanup runtime.Cleanup
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *spacetrack.Config, logger spacetrack.Logger) []http.Option {
	httpOpts := []http.Option{http.WithLogger(logger)}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPClient != nil {
		httpOpts = append(httpOpts, http.WithHTTPClient(config.HTTPClient))
	}

	if config.Timeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.Timeout))
	}

	return httpOpts
}

// createLimiter builds the admission control windows from config.
func createLimiter(config *spacetrack.Config) (*ratelimit.Limiter, error) {
	opts := []ratelimit.Option{ratelimit.WithKeyPrefix(config.RateLimitKeyPrefix)}

	if config.AdditionalRateLimit != nil {
		err := config.AdditionalRateLimit.Validate()
		if err != nil {
			return nil, fmt.Errorf("additional rate limit: %w", err)
		}

		opts = append(opts, ratelimit.WithAdditionalQuota(*config.AdditionalRateLimit))
	}

	return ratelimit.NewLimiter(config.RateLimitStore, opts...), nil
}

// New creates a new Space-Track client. The base URL must already carry a
// scheme; CacheDir is used as given, so an empty CacheDir keeps predicates
// in memory only.
func New(_ context.Context, config *spacetrack.Config) (*Client, error) {
	if config == nil {
		return nil, spacetrack.ErrConfigRequired
	}

	if config.Identity == "" {
		return nil, spacetrack.ErrIdentityRequired
	}

	logger := config.Logger
	if logger == nil {
		logger = spacetrack.DefaultLogger()
	}

	limiter, err := createLimiter(config)
	if err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = constants.DefaultBaseURL
	}

	httpClient := http.NewClient(baseURL, createHTTPClientOptions(config, logger)...)
	collector := metrics.New(config.Metrics)

	cacheDir := config.CacheDir
	if config.DisableDiskCache {
		cacheDir = ""
	}

	client := &Client{
		httpClient: httpClient,
		identity:   config.Identity,
		password:   config.Password,
		logger:     logger,
		limiter:    limiter,
		metrics:    collector,
		sleep:      sleepContext,
		predicates: cache.New(cache.Options{
			Dir:      cacheDir,
			BaseURL:  httpClient.BaseURL(),
			Logger:   logger,
			OnLookup: collector.RecordCacheLookup,
		}),
	}

	if config.OnRateLimit != nil {
		client.SetRateLimitCallback(config.OnRateLimit)
	}

	client.watchForLeak()

	return client, nil
}

// BaseURL returns the normalised service root.
func (c *Client) BaseURL() string {
	return c.httpClient.BaseURL()
}

// String renders the client with its identity.
func (c *Client) String() string {
	return fmt.Sprintf("SpaceTrackClient<identity='%s'>", c.identity)
}

// SetRateLimitCallback replaces the function called before every rate limit
// sleep. A nil fn removes it.
func (c *Client) SetRateLimitCallback(fn func(until time.Time)) {
	if fn == nil {
		c.callback.Store(nil)

		return
	}

	c.callback.Store(&fn)
}

// Classes lists every known request class, in controller order.
func (c *Client) Classes() []string {
	return spacetrack.AllClasses()
}

// Close logs out when authenticated and releases idle connections. It is
// safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.cleanup.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), constants.ShortHTTPTimeout)
	defer cancel()

	err := c.logout(ctx, newBlockingDriver(c))

	c.httpClient.Close()

	if err != nil {
		return fmt.Errorf("closing client: %w", err)
	}

	return nil
}

func (c *Client) checkOpen() error {
	if c.closed.Load() {
		return spacetrack.ErrClientClosed
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait interrupted: %w", ctx.Err())
	}
}
