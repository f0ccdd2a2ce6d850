package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
)

// DefaultNATSBucket is the key-value bucket used when none is configured.
const DefaultNATSBucket = "spacetrack_ratelimit"

// defaultNATSBucketTTL comfortably exceeds the hourly window.
const defaultNATSBucketTTL = 2 * time.Hour

// NATSStore shares windows between processes through a JetStream key-value
// bucket. Updates are compare-and-swap on the entry revision.
type NATSStore struct {
	kv jetstream.KeyValue
}

// NewNATSStore wraps an existing key-value bucket.
func NewNATSStore(kv jetstream.KeyValue) *NATSStore {
	return &NATSStore{kv: kv}
}

// NATSConfig configures OpenNATSStore.
type NATSConfig struct {
	// Bucket defaults to DefaultNATSBucket.
	Bucket string

	// TTL is the bucket max age. It must exceed the longest quota period;
	// defaults to two hours.
	TTL time.Duration
}

// OpenNATSStore creates or updates the bucket and returns a store over it.
func OpenNATSStore(ctx context.Context, js jetstream.JetStream, config NATSConfig) (*NATSStore, error) {
	if js == nil {
		return nil, constants.ErrJetStreamNil
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = DefaultNATSBucket
	}

	ttl := config.TTL
	if ttl == 0 {
		ttl = defaultNATSBucketTTL
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Space-Track rate limit windows",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("opening key-value bucket %s: %w", bucket, err)
	}

	return NewNATSStore(kv), nil
}

// Update implements Store. The ttl argument is ignored; entries expire with
// the bucket max age.
func (s *NATSStore) Update(ctx context.Context, key string, _ time.Duration, fn func(Window) Window) error {
	natsKey := NATSKey(key)

	for range maxUpdateAttempts {
		var (
			window   Window
			revision uint64
		)

		entry, err := s.kv.Get(ctx, natsKey)

		switch {
		case errors.Is(err, jetstream.ErrKeyNotFound):
		case err != nil:
			return fmt.Errorf("reading window %s: %w", natsKey, err)
		default:
			revision = entry.Revision()

			window, err = decodeWindow(entry.Value())
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

		if revision == 0 {
			_, err = s.kv.Create(ctx, natsKey, encoded)
		} else {
			_, err = s.kv.Update(ctx, natsKey, encoded, revision)
		}

		if err == nil {
			return nil
		}

		if isRevisionConflict(err) {
			continue
		}

		return fmt.Errorf("writing window %s: %w", natsKey, err)
	}

	return fmt.Errorf("%w: %s", constants.ErrStoreConflict, natsKey)
}

// NATSKey maps a window key to a valid key-value key. Bytes outside
// [-/_=.a-zA-Z0-9] become '_', as do leading and trailing dots, so the
// default "spacetrack:" prefix maps to "spacetrack_".
func NATSKey(key string) string {
	if key == "" {
		return "_"
	}

	out := []byte(key)
	for i, b := range out {
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '-', b == '/', b == '_', b == '=':
		case b == '.' && i != 0 && i != len(out)-1:
		default:
			out[i] = '_'
		}
	}

	return string(out)
}

func isRevisionConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}

	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}

	return false
}
