package client_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/spacetrack/internal/client"
	"github.com/fivetwenty-io/spacetrack/pkg/ratelimit"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

const modeldefBody = `{"controller": "basicspacedata", "data": [
	{"Field": "NORAD_CAT_ID", "Type": "int(10) unsigned", "Null": "NO", "Default": "0", "Key": "", "Extra": ""},
	{"Field": "EPOCH", "Type": "datetime", "Null": "YES", "Default": null, "Key": "", "Extra": ""},
	{"Field": "OBJECT_NAME", "Type": "varchar(25)", "Null": "YES", "Default": null, "Key": "", "Extra": ""},
	{"Field": "MEAN_MOTION", "Type": "double(13,8)", "Null": "YES", "Default": null, "Key": "", "Extra": ""}
]}`

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.record("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{})  { l.record("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{})  { l.record("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.record("error", msg, fields) }

// entries returns the logs with message msg.
func (l *MockLogger) entries(msg string) []map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []map[string]interface{}

	for _, entry := range l.logs {
		if entry["msg"] == msg {
			out = append(out, entry)
		}
	}

	return out
}

func (l *MockLogger) hasMessageContaining(level, part string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entry := range l.logs {
		msg, _ := entry["msg"].(string)
		if entry["level"] == level && strings.Contains(msg, part) {
			return true
		}
	}

	return false
}

// recordedRequest is a query seen by fakeSpaceTrack.
type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
}

// sessionCookie is the cookie fakeSpaceTrack issues on login.
const sessionCookie = "chocolatechip"

// fakeSpaceTrack serves login, logout and modeldef, and hands every other
// request to query. Everything but login needs the cookie set by login.
type fakeSpaceTrack struct {
	*httptest.Server

	LoginBody string
	Query     http.HandlerFunc

	mu        sync.Mutex
	sessions  map[string]bool
	logins    int
	logouts   int
	modeldefs int
	queries   []recordedRequest
}

func newFakeSpaceTrack(t *testing.T, query http.HandlerFunc) *fakeSpaceTrack {
	t.Helper()

	fake := &fakeSpaceTrack{LoginBody: `""`, Query: query, sessions: map[string]bool{}}
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(fake.Close)

	return fake
}

// hasSession reports whether r carries a live session cookie.
func (f *fakeSpaceTrack) hasSession(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sessions[cookie.Value]
}

func (f *fakeSpaceTrack) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/ajaxauth/login" && !f.hasSession(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "You must be logged in"}`))

		return
	}

	switch {
	case r.URL.Path == "/ajaxauth/login":
		f.mu.Lock()
		f.logins++
		session := fmt.Sprintf("session-%d", f.logins)
		f.mu.Unlock()

		_ = r.ParseForm()
		if r.Method != http.MethodPost || r.PostForm.Get("identity") != "user@example.com" {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		if f.LoginBody != `{"Login": "Failed"}` {
			f.mu.Lock()
			f.sessions[session] = true
			f.mu.Unlock()

			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: session, Path: "/"})
		}

		writeJSON(w, f.LoginBody)
	case r.URL.Path == "/ajaxauth/logout":
		cookie, _ := r.Cookie(sessionCookie)

		f.mu.Lock()
		f.logouts++
		delete(f.sessions, cookie.Value)
		f.mu.Unlock()

		writeJSON(w, `"Successfully logged out"`)
	case strings.Contains(r.URL.Path, "/modeldef/class/"):
		f.mu.Lock()
		f.modeldefs++
		f.mu.Unlock()

		writeJSON(w, modeldefBody)
	default:
		f.mu.Lock()
		f.queries = append(f.queries, recordedRequest{
			Method:   r.Method,
			Path:     r.URL.EscapedPath(),
			RawQuery: r.URL.RawQuery,
		})
		query := f.Query
		f.mu.Unlock()

		if query == nil {
			writeJSON(w, `[]`)

			return
		}

		query(w, r)
	}
}

func (f *fakeSpaceTrack) counts() (logins, logouts, modeldefs, queries int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.logins, f.logouts, f.modeldefs, len(f.queries)
}

func (f *fakeSpaceTrack) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]recordedRequest(nil), f.queries...)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// swappableStore delegates to a MemoryStore that reset replaces.
type swappableStore struct {
	mu    sync.Mutex
	inner *ratelimit.MemoryStore
}

func (s *swappableStore) Update(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fn func(ratelimit.Window) ratelimit.Window,
) error {
	s.mu.Lock()
	inner := s.inner
	s.mu.Unlock()

	return inner.Update(ctx, key, ttl, fn)
}

func (s *swappableStore) reset() *ratelimit.MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inner = ratelimit.NewMemoryStore()

	return s.inner
}

// sleepRecorder stands in for the rate limit sleeper.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
	// block makes every sleep wait for its context.
	block bool
	// started is closed by the first sleep when non-nil.
	started chan struct{}
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)

	if s.started != nil && len(s.sleeps) == 1 {
		close(s.started)
	}

	block := s.block
	s.mu.Unlock()

	if block {
		<-ctx.Done()

		return ctx.Err()
	}

	return nil
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Duration(nil), s.sleeps...)
}

type testClient struct {
	*client.Client

	logger  *MockLogger
	sleeper *sleepRecorder
	mu      sync.Mutex
	wakeUps []time.Time
}

func (c *testClient) callbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.wakeUps)
}

// newTestClient connects a client to fake. mutate adjusts the config
// before the client is built.
func newTestClient(t *testing.T, fake *fakeSpaceTrack, mutate func(*spacetrack.Config)) *testClient {
	t.Helper()

	tc := &testClient{logger: &MockLogger{}, sleeper: &sleepRecorder{}}

	config := &spacetrack.Config{
		Identity: "user@example.com",
		Password: "secret",
		BaseURL:  fake.URL,
		Logger:   tc.logger,
		OnRateLimit: func(until time.Time) {
			tc.mu.Lock()
			defer tc.mu.Unlock()

			tc.wakeUps = append(tc.wakeUps, until)
		},
	}

	if mutate != nil {
		mutate(config)
	}

	c, err := client.New(context.Background(), config)
	require.NoError(t, err)

	client.SetSleeper(c, tc.sleeper.sleep)
	tc.Client = c

	t.Cleanup(func() {
		assert.NoError(t, c.Close())
	})

	return tc
}
