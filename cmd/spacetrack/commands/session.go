package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
	"github.com/fivetwenty-io/spacetrack/pkg/ratelimit"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
	"github.com/fivetwenty-io/spacetrack/pkg/stclient"
)

// session is a client together with the connections behind its rate limit
// store.
type session struct {
	spacetrack.Client

	closers []io.Closer
}

func (s *session) Close() error {
	var err error
	if s.Client != nil {
		err = s.Client.Close()
	}

	for _, closer := range s.closers {
		closeErr := closer.Close()
		if err == nil {
			err = closeErr
		}
	}

	return err
}

type natsCloser struct {
	conn *nats.Conn
}

func (c natsCloser) Close() error {
	c.conn.Close()

	return nil
}

// passwordReader reads the password when none is configured. Tests
// replace it.
var passwordReader = promptPassword

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", constants.ErrNoPassword
	}

	fmt.Fprint(os.Stderr, "Password: ")

	bytePassword, err := term.ReadPassword(fd)

	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(bytePassword), nil
}

func newLogger(stderr io.Writer) spacetrack.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}

	return spacetrack.NewTextLogger(stderr, level)
}

// createClient builds a session from flags, environment and config file.
func createClient(ctx context.Context, stderr io.Writer) (*session, error) {
	identity := viper.GetString("identity")
	if identity == "" {
		return nil, constants.ErrNoIdentity
	}

	password := viper.GetString("password")
	if password == "" {
		var err error

		password, err = passwordReader()
		if err != nil {
			return nil, err
		}
	}

	logger := newLogger(stderr)

	config := &spacetrack.Config{
		Identity:           identity,
		Password:           password,
		BaseURL:            viper.GetString("base-url"),
		CacheDir:           viper.GetString("cache-dir"),
		RateLimitKeyPrefix: viper.GetString("rate-limit-prefix"),
		Logger:             logger,
		Debug:              viper.GetBool("verbose"),
		OnRateLimit: func(until time.Time) {
			logger.Warn("Waiting for the Space-Track rate limit", map[string]interface{}{
				"until": until.Format(time.RFC3339),
			})
		},
	}

	s := &session{}

	err := attachStore(ctx, s, config)
	if err != nil {
		_ = s.Close()

		return nil, err
	}

	client, err := stclient.New(ctx, config)
	if err != nil {
		_ = s.Close()

		return nil, err
	}

	s.Client = client

	return s, nil
}

// attachStore selects the shared rate limit store named by --redis-url or
// --nats-url.
func attachStore(ctx context.Context, s *session, config *spacetrack.Config) error {
	if redisURL := viper.GetString("redis-url"); redisURL != "" {
		options, err := redis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("parsing redis URL: %w", err)
		}

		rdb := redis.NewClient(options)
		s.closers = append(s.closers, rdb)

		store, err := ratelimit.NewRedisStore(ratelimit.RedisConfig{Client: rdb})
		if err != nil {
			return err
		}

		config.RateLimitStore = store

		return nil
	}

	if natsURL := viper.GetString("nats-url"); natsURL != "" {
		conn, err := nats.Connect(natsURL, nats.Name("spacetrack-cli"), nats.Timeout(constants.ShortHTTPTimeout))
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}

		s.closers = append(s.closers, natsCloser{conn: conn})

		js, err := jetstream.New(conn)
		if err != nil {
			return fmt.Errorf("creating JetStream context: %w", err)
		}

		store, err := ratelimit.OpenNATSStore(ctx, js, ratelimit.NATSConfig{})
		if err != nil {
			return err
		}

		config.RateLimitStore = store
	}

	return nil
}

// parseArgs turns key=value arguments into request arguments, keeping their
// order.
func parseArgs(raw []string) (spacetrack.Args, error) {
	args := make(spacetrack.Args, 0, len(raw))

	for _, arg := range raw {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidArgument, arg)
		}

		args = append(args, spacetrack.A(strings.ToLower(key), value))
	}

	return args, nil
}
