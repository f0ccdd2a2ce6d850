// Package cache holds predicate lists in memory and on disk. The disk tier
// is shared between processes and guarded by an advisory lock file next to
// each entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

// Lookup outcomes reported to Options.OnLookup.
const (
	OutcomeMemory    = "memory"
	OutcomeDisk      = "disk"
	OutcomeDownload  = "download"
	OutcomeUnchecked = "unchecked"
)

// Locker acquires and releases file locks. Lock returns an error matching
// errors.ErrUnsupported when the filesystem cannot lock.
type Locker interface {
	Lock(ctx context.Context, lock *flock.Flock) error
	Unlock(lock *flock.Flock) error
}

// Loader downloads the raw modeldef rows of one class.
type Loader func(ctx context.Context) (json.RawMessage, error)

// Options configures a PredicateCache.
type Options struct {
	// Dir holds the cache files. Empty disables the disk tier.
	Dir string
	// BaseURL is part of the file name hash, so that different services
	// never share entries.
	BaseURL string
	Logger  spacetrack.Logger
	// OnLookup is called once per Get with its outcome.
	OnLookup func(outcome string)
}

type entry struct {
	predicates []spacetrack.Predicate
	// checked is false when the lock was unavailable and validation is
	// skipped for this key.
	checked bool
}

// PredicateCache is the two-tier predicate cache.
type PredicateCache struct {
	dir      string
	baseURL  string
	logger   spacetrack.Logger
	onLookup func(string)
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// New creates a cache.
func New(opts Options) *PredicateCache {
	logger := opts.Logger
	if logger == nil {
		logger = spacetrack.NopLogger{}
	}

	onLookup := opts.OnLookup
	if onLookup == nil {
		onLookup = func(string) {}
	}

	return &PredicateCache{
		dir:      opts.Dir,
		baseURL:  opts.BaseURL,
		logger:   logger,
		onLookup: onLookup,
		now:      time.Now,
		entries:  make(map[string]entry),
	}
}

// Key is the in-process key of a class.
func Key(class, controller string) string {
	return controller + "." + class
}

// Path returns the cache file of a class, or "" without a disk tier.
func (c *PredicateCache) Path(class, controller string) string {
	if c.dir == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(c.baseURL + Key(class, controller)))
	name := constants.CacheFilePrefix + hex.EncodeToString(sum[:])[:constants.CacheKeyLength] + constants.CacheFileSuffix

	return filepath.Join(c.dir, name)
}

// Get returns the predicates of class. checked is false when argument
// validation must be skipped because the cache lock was unavailable; force
// downloads anyway in that case and returns the result without storing it
// on disk.
func (c *PredicateCache) Get(
	ctx context.Context,
	locker Locker,
	class, controller string,
	force bool,
	load Loader,
) (predicates []spacetrack.Predicate, checked bool, err error) {
	key := Key(class, controller)

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()

	if ok && (cached.checked || !force) {
		c.onLookup(OutcomeMemory)

		return cached.predicates, cached.checked, nil
	}

	raw, outcome, err := c.resolve(ctx, locker, class, controller, force, load)
	if err != nil {
		return nil, false, err
	}

	c.onLookup(outcome)

	if outcome == OutcomeUnchecked {
		c.store(key, entry{})

		return nil, false, nil
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return nil, false, err
	}

	predicates, err = spacetrack.ParsePredicates(fields, c.logger)
	if err != nil {
		return nil, false, err
	}

	c.store(key, entry{predicates: predicates, checked: true})

	return predicates, true, nil
}

// Reset drops the in-process tier.
func (c *PredicateCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}

func (c *PredicateCache) store(key string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = e
}

func (c *PredicateCache) resolve(
	ctx context.Context,
	locker Locker,
	class, controller string,
	force bool,
	load Loader,
) (json.RawMessage, string, error) {
	path := c.Path(class, controller)
	if path == "" {
		raw, err := load(ctx)

		return raw, OutcomeDownload, err
	}

	raw, ok := c.read(path)
	if ok {
		return raw, OutcomeDisk, nil
	}

	err := os.MkdirAll(c.dir, constants.CacheDirPerm)
	if err != nil {
		return nil, "", fmt.Errorf("creating cache directory: %w", err)
	}

	lock := flock.New(path + constants.LockFileSuffix)

	err = locker.Lock(ctx, lock)

	switch {
	case err == nil:
	case IsLockUnsupported(err):
		if !force {
			c.logger.Warn("Predicate cache lock unavailable, skipping argument validation", map[string]interface{}{
				"class":      class,
				"controller": controller,
				"error":      err.Error(),
			})

			return nil, OutcomeUnchecked, nil
		}

		raw, err = load(ctx)

		return raw, OutcomeDownload, err
	default:
		return nil, "", fmt.Errorf("locking predicate cache: %w", err)
	}

	defer func() {
		unlockErr := locker.Unlock(lock)
		if unlockErr != nil {
			c.logger.Warn("Failed to release predicate cache lock", map[string]interface{}{
				"path":  lock.Path(),
				"error": unlockErr.Error(),
			})
		}
	}()

	raw, ok = c.read(path)
	if ok {
		return raw, OutcomeDisk, nil
	}

	raw, err = load(ctx)
	if err != nil {
		return nil, "", err
	}

	err = c.write(path, raw)
	if err != nil {
		c.logger.Warn("Failed to write predicate cache", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}

	return raw, OutcomeDownload, nil
}

// IsLockUnsupported reports whether a lock error means the filesystem does
// not support locking.
func IsLockUnsupported(err error) bool {
	return errors.Is(err, errors.ErrUnsupported) || errors.Is(err, syscall.ENOLCK)
}

// document is the on-disk layout.
type document struct {
	Timestamp float64         `json:"timestamp"`
	Version   int             `json:"version"`
	Data      json.RawMessage `json:"data"`
}

// read returns the data of a valid, fresh entry. Every defect is a miss.
func (c *PredicateCache) read(path string) (json.RawMessage, bool) {
	content, err := os.ReadFile(path) //nolint:gosec // path is derived from a hash
	if err != nil {
		return nil, false
	}

	var fields map[string]json.RawMessage

	err = json.Unmarshal(content, &fields)
	if err != nil {
		return nil, false
	}

	var version any
	if json.Unmarshal(fields["version"], &version) != nil {
		return nil, false
	}

	if v, ok := version.(float64); !ok || v != constants.CacheVersion {
		return nil, false
	}

	var timestamp any
	if json.Unmarshal(fields["timestamp"], &timestamp) != nil {
		return nil, false
	}

	seconds, ok := timestamp.(float64)
	if !ok || !validTimestamp(seconds) {
		return nil, false
	}

	created := time.Unix(0, int64(seconds*float64(time.Second)))
	if created.Add(constants.PredicateCacheExpiry).Before(c.now()) {
		return nil, false
	}

	data, ok := fields["data"]
	if !ok || string(data) == "null" {
		return nil, false
	}

	if _, err := decodeFields(data); err != nil {
		return nil, false
	}

	return data, true
}

// validTimestamp bounds seconds to what time.Unix(0, ns) can represent.
func validTimestamp(seconds float64) bool {
	const maxSeconds = float64(1<<63-1) / float64(time.Second)

	return seconds > -maxSeconds && seconds < maxSeconds
}

func (c *PredicateCache) write(path string, data json.RawMessage) error {
	now := c.now()

	content, err := json.Marshal(document{
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
		Version:   constants.CacheVersion,
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), "predicates-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true

	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	_, err = tempFile.Write(content)
	if err != nil {
		_ = tempFile.Close()

		return fmt.Errorf("write temp file: %w", err)
	}

	err = tempFile.Chmod(constants.CacheFilePerm)
	if err != nil {
		_ = tempFile.Close()

		return fmt.Errorf("chmod temp file: %w", err)
	}

	err = tempFile.Close()
	if err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	err = os.Rename(tempName, path)
	if err != nil {
		return fmt.Errorf("replace file: %w", err)
	}

	cleanup = false

	return nil
}

func decodeFields(raw json.RawMessage) ([]spacetrack.FieldDescriptor, error) {
	var fields []spacetrack.FieldDescriptor

	err := json.Unmarshal(raw, &fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", spacetrack.ErrMalformedModeldef, err)
	}

	return fields, nil
}

// Clone copies a predicate list.
func Clone(predicates []spacetrack.Predicate) []spacetrack.Predicate {
	if predicates == nil {
		return nil
	}

	out := slices.Clone(predicates)
	for i := range out {
		out[i] = out[i].Clone()
	}

	return out
}
