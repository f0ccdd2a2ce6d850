package spacetrack

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fivetwenty-io/spacetrack/pkg/ratelimit"
)

// Client is a Space-Track session. Calls block the calling goroutine until
// the response is available; rate limit waits sleep it.
type Client interface {
	// Authenticate logs in unless the session is already authenticated.
	Authenticate(ctx context.Context) error

	// Logout ends the server session. It is a no-op when not logged in.
	Logout(ctx context.Context) error

	// Close logs out and releases the transport. The client cannot be used
	// afterwards.
	Close() error

	// Do runs a generic request against any request class.
	Do(ctx context.Context, req Request) (*Result, error)

	// Call is shorthand for Do with only Class and Args set.
	Call(ctx context.Context, class string, args Args) (*Result, error)

	// GetPredicates returns the predicates accepted by class. An empty
	// controller is resolved from the class name.
	GetPredicates(ctx context.Context, class, controller string) ([]Predicate, error)

	// Controller returns a handle that scopes requests to one controller.
	Controller(name string) (Controller, error)

	// Classes lists every known request class, in controller order.
	Classes() []string

	// SetRateLimitCallback replaces the function called before every
	// rate limit sleep.
	SetRateLimitCallback(fn func(until time.Time))

	// Async returns a view of the same session whose calls run in the
	// background and return futures.
	Async() AsyncClient
}

// AsyncClient is a Space-Track session whose calls return immediately with
// a Future. Waits inside a call never block the caller and stop when the
// call's context is cancelled.
type AsyncClient interface {
	Authenticate(ctx context.Context) *Future[struct{}]
	Logout(ctx context.Context) *Future[struct{}]
	Close() error
	Do(ctx context.Context, req Request) *Future[*Result]
	Call(ctx context.Context, class string, args Args) *Future[*Result]
	GetPredicates(ctx context.Context, class, controller string) *Future[[]Predicate]
	Classes() []string
	SetRateLimitCallback(fn func(until time.Time))

	// Sync returns the blocking view of the same session.
	Sync() Client
}

// Controller is a request scope fixed to one controller. It does not keep
// the client alive; once the client is gone its calls fail with
// ErrClientClosed.
type Controller interface {
	Name() string
	Classes() []string
	Do(ctx context.Context, req Request) (*Result, error)
	Call(ctx context.Context, class string, args Args) (*Result, error)
	GetPredicates(ctx context.Context, class string) ([]Predicate, error)
	String() string
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a spacetrack.Client.
//
// # Rate limiting
//
// Every query and modeldef request passes the per-minute and per-hour
// windows (30/min, 300/hour) and, when AdditionalRateLimit is set, a third
// window. Windows live in RateLimitStore; share one Redis or NATS store
// between processes to share one budget. RateLimitKeyPrefix namespaces the
// keys in a shared store.
//
// # Predicate cache
//
// Predicates fetched from modeldef are cached in memory for the life of the
// client and on disk under CacheDir for one day. An empty CacheDir uses the
// per-user cache directory; set DisableDiskCache to keep everything in
// memory.
type Config struct {
	// Required fields
	// Identity: Space-Track account name (usually an e-mail address).
	Identity string
	// Password: Space-Track account password.
	Password string

	// Optional configurations
	// BaseURL: service root. Defaults to https://www.space-track.org/.
	// A trailing slash is added when missing.
	BaseURL string
	// HTTPClient: transport to send requests with. The client takes
	// ownership and closes its idle connections on Close. A cookie jar is
	// attached when Jar is nil, since the login session is a cookie.
	HTTPClient *http.Client
	// Timeout: default per-request timeout when HTTPClient is nil.
	Timeout time.Duration
	// RateLimitStore: backing store for the rate limit windows. Defaults to
	// an in-memory store private to this client.
	RateLimitStore ratelimit.Store
	// RateLimitKeyPrefix: prepended to every rate limit window key.
	RateLimitKeyPrefix string
	// AdditionalRateLimit: optional extra window checked with the others.
	AdditionalRateLimit *ratelimit.Quota
	// CacheDir: directory for predicate cache files.
	CacheDir string
	// DisableDiskCache: cache predicates in memory only.
	DisableDiskCache bool
	// OnRateLimit: called with the wake-up time before every rate limit sleep.
	OnRateLimit func(until time.Time)
	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger. Defaults to DefaultLogger, which
	// writes warnings and errors to stderr; use NopLogger to discard them.
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
	// Metrics: optional registerer for request and rate limit metrics.
	Metrics prometheus.Registerer
}
