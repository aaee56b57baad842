package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vector76/forum_server/internal/feed"
	"github.com/vector76/forum_server/internal/model"
	"github.com/vector76/forum_server/internal/store"
)

const testToken = "test-secret-token"

// recordingInvalidator remembers every path it was asked to invalidate.
type recordingInvalidator struct {
	mu    sync.Mutex
	paths []string
}

func (ri *recordingInvalidator) Invalidate(path string) error {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	ri.paths = append(ri.paths, path)
	return nil
}

func (ri *recordingInvalidator) Paths() []string {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	return append([]string(nil), ri.paths...)
}

type fakeFeed struct {
	topics []feed.Topic
	thread feed.Thread
	err    error
}

func (f *fakeFeed) HotTopics(context.Context) ([]feed.Topic, error) {
	return f.topics, f.err
}

func (f *fakeFeed) ThreadData(_ context.Context, id string) (feed.Thread, error) {
	if f.err != nil {
		return feed.Thread{}, f.err
	}
	if id != f.thread.Topic.ID {
		return feed.Thread{}, feed.ErrInvalidID
	}
	return f.thread, nil
}

func newTestServer(t *testing.T, logOut io.Writer) *Server {
	t.Helper()
	s, err := store.Load(filepath.Join(t.TempDir(), "forum.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	srv, err := New(Config{Token: testToken, LogOutput: logOut, Subreddit: "golang"}, s, &fakeFeed{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

// testServer returns a server whose invalidations are recorded.
func testServer(t *testing.T) (*Server, *recordingInvalidator) {
	t.Helper()
	srv := newTestServer(t, io.Discard)
	ri := &recordingInvalidator{}
	srv.Invalidator = ri
	return srv, ri
}

func authReq(method, url string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	return w
}

func seedGroup(t *testing.T, srv *Server, name string) model.Group {
	t.Helper()
	g, _, err := srv.Store.GetOrCreateGroup(context.Background(), model.NewGroup(name, strings.ToUpper(name)))
	if err != nil {
		t.Fatalf("GetOrCreateGroup: %v", err)
	}
	return g
}

func seedTopic(t *testing.T, srv *Server, group, title string) model.Topic {
	t.Helper()
	tp, err := srv.Store.CreateTopic(context.Background(), model.NewTopic(group, "alice", title, "Body of "+title, nil))
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	return tp
}

func TestNewRequiresToken(t *testing.T) {
	s, _ := store.Load(filepath.Join(t.TempDir(), "forum.json"))
	if _, err := New(Config{LogOutput: io.Discard}, s, &fakeFeed{}); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestNewRejectsBadLogLevel(t *testing.T) {
	s, _ := store.Load(filepath.Join(t.TempDir(), "forum.json"))
	if _, err := New(Config{Token: testToken, LogOutput: io.Discard, LogLevel: "loud"}, s, &fakeFeed{}); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 without auth, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body)
	}
}

func TestAuth(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong token", "Bearer wrong-token", http.StatusUnauthorized},
		{"valid", "Bearer " + testToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/groups", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(srv, req)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestListenAddr(t *testing.T) {
	s, _ := store.Load(filepath.Join(t.TempDir(), "forum.json"))
	srv, err := New(Config{Port: 8123, Token: testToken, LogOutput: io.Discard}, s, &fakeFeed{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := srv.ListenAddr(); got != ":8123" {
		t.Fatalf("expected :8123, got %q", got)
	}
}

func TestRequestLogging(t *testing.T) {
	var logs bytes.Buffer
	srv := newTestServer(t, &logs)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	id := w.Header().Get("X-Request-Id")
	if id == "" {
		t.Fatal("expected X-Request-Id header")
	}

	var entry map[string]any
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", logs.String(), err)
	}
	if entry["request_id"] != id {
		t.Errorf("request_id = %v, want %s", entry["request_id"], id)
	}
	if entry["path"] != "/api/v1/health" || entry["method"] != "GET" {
		t.Errorf("unexpected log entry: %v", entry)
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
}

func TestRequestIDPreserved(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := serve(srv, req)

	if got := w.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("expected incoming request id to be echoed, got %q", got)
	}
}

func TestRecoverer(t *testing.T) {
	srv, _ := testServer(t)
	srv.Router.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", w.Code)
	}
}
