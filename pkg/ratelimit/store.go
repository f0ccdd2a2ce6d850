package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
)

// Window is the state of one periodic window: how many calls were admitted
// since Start.
type Window struct {
	Used  int
	Start time.Time
}

// Store persists windows by key. Implementations must apply fn atomically
// with respect to other updates of the same key; fn may be called more than
// once when a concurrent update wins, so it must not have side effects
// beyond its return value and captured results that it overwrites. When fn
// returns the window it was given, nothing is written.
type Store interface {
	Update(ctx context.Context, key string, ttl time.Duration, fn func(Window) Window) error
}

// maxUpdateAttempts bounds optimistic-concurrency retries in shared stores.
const maxUpdateAttempts = 10

// storedWindow is the wire form used by shared stores.
type storedWindow struct {
	Used  int   `json:"used"`
	Start int64 `json:"start"`
}

func (w Window) equal(other Window) bool {
	return w.Used == other.Used && w.Start.Equal(other.Start)
}

func encodeWindow(window Window) ([]byte, error) {
	data, err := json.Marshal(storedWindow{Used: window.Used, Start: window.Start.UnixNano()})
	if err != nil {
		return nil, fmt.Errorf("encoding window: %w", err)
	}

	return data, nil
}

func decodeWindow(data []byte) (Window, error) {
	var stored storedWindow

	err := json.Unmarshal(data, &stored)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %w", constants.ErrMalformedWindow, err)
	}

	return Window{Used: stored.Used, Start: time.Unix(0, stored.Start)}, nil
}

// MemoryStore keeps windows in process memory. It is the default store.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	window    Window
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, key string, ttl time.Duration, fn func(Window) Window) error {
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("updating window %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	entry, ok := s.windows[key]
	if ok && !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
		entry = memoryEntry{}
	}

	next := fn(entry.window)
	if next.equal(entry.window) {
		return nil
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	s.windows[key] = memoryEntry{window: next, expiresAt: expiresAt}

	return nil
}

// Len returns the number of stored windows, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.windows)
}
