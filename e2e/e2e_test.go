package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vector76/forum_server/internal/cli"
	"github.com/vector76/forum_server/internal/feed"
	"github.com/vector76/forum_server/internal/model"
	"github.com/vector76/forum_server/internal/server"
	"github.com/vector76/forum_server/internal/store"
)

const testToken = "e2e-test-secret"

const hotJSON = `{"kind":"Listing","data":{"children":[
 {"kind":"t3","data":{"id":"x1","title":"Go 1.99 released","author":"gopher","selftext":"","score":10,"num_comments":1,"url":"https://go.dev","created_utc":1700000000}}
]}}`

const threadJSON = `[
 {"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"x1","title":"Go 1.99 released","author":"gopher","selftext":"Notes","score":10,"num_comments":1,"created_utc":1700000000}}]}},
 {"kind":"Listing","data":{"children":[{"kind":"t1","data":{"id":"c1","author":"fan","body":"Great news","score":3,"created_utc":1700000100,"replies":""}}]}}
]`

// startReddit serves canned Reddit JSON.
func startReddit(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/r/golang/hot.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, hotJSON)
	})
	mux.HandleFunc("/comments/x1.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, threadJSON)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func startServer(t *testing.T, dataFile string) *httptest.Server {
	t.Helper()
	s, err := store.Load(dataFile)
	if err != nil {
		t.Fatalf("store.Load: %v", err)
	}
	reddit := startReddit(t)
	fc := feed.New(feed.Config{BaseURL: reddit.URL, Subreddit: "golang", Rate: 100})
	srv, err := server.New(server.Config{Token: testToken, Subreddit: "golang", LogOutput: io.Discard}, s, fc)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)
	return ts
}

func setEnv(t *testing.T, serverURL, user string) {
	t.Helper()
	t.Setenv("FORUM_URL", serverURL)
	t.Setenv("FORUM_TOKEN", testToken)
	t.Setenv("FORUM_USER", user)
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return buf.String()
}

func parse[T any](t *testing.T, output string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(output), &v); err != nil {
		t.Fatalf("parse: %v\noutput: %s", err, output)
	}
	return v
}

// get fetches a page and returns its body and X-Cache header.
func get(t *testing.T, url string) (string, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	return string(body), resp.Header.Get("X-Cache")
}

// TestCLIWritesRefreshCachedPages creates content through the CLI and
// checks that pages cached by a browser are refreshed after each write.
func TestCLIWritesRefreshCachedPages(t *testing.T) {
	ts := startServer(t, filepath.Join(t.TempDir(), "forum.json"))
	setEnv(t, ts.URL, "e2e-agent")

	run(t, "group", "add", "test", "--title", "Test group")
	topic := parse[model.Topic](t, run(t, "topic", "add", "test", "Hello", "--body", "First *post*", "--tags", "a,b"))
	if topic.Path() != "/test/1" {
		t.Fatalf("topic path = %q, want /test/1", topic.Path())
	}

	page, cache := get(t, ts.URL+"/test/1")
	if cache != "MISS" || !strings.Contains(page, "<em>post</em>") {
		t.Fatalf("first read: cache=%q body=%s", cache, page)
	}
	if _, cache = get(t, ts.URL+"/test/1"); cache != "HIT" {
		t.Fatalf("second read: cache=%q, want HIT", cache)
	}
	if _, cache = get(t, ts.URL+"/test"); cache != "MISS" {
		t.Fatalf("group read: cache=%q, want MISS", cache)
	}

	run(t, "reply", "1", "A reply from the CLI")
	page, cache = get(t, ts.URL+"/test/1")
	if cache != "MISS" || !strings.Contains(page, "A reply from the CLI") {
		t.Fatalf("after reply: cache=%q, reply missing=%v", cache, !strings.Contains(page, "A reply from the CLI"))
	}

	run(t, "topic", "edit", "1", "--title", "Hello, edited")
	page, cache = get(t, ts.URL+"/test")
	if cache != "MISS" || !strings.Contains(page, "Hello, edited") {
		t.Fatalf("group after edit: cache=%q", cache)
	}
}

// TestMultipleAuthors checks authorship is taken from each client's FORUM_USER.
func TestMultipleAuthors(t *testing.T) {
	ts := startServer(t, filepath.Join(t.TempDir(), "forum.json"))

	setEnv(t, ts.URL, "alice")
	run(t, "group", "add", "talk")
	run(t, "topic", "add", "talk", "Question", "--body", "Why?")
	root := parse[model.Comment](t, run(t, "reply", "1", "Because."))

	setEnv(t, ts.URL, "bob")
	run(t, "reply", "1", "Agreed.", "--parent", "1")

	tree := parse[[]model.CommentNode](t, run(t, "comments", "1"))
	if len(tree) != 1 || tree[0].ID != root.ID || tree[0].Author != "alice" {
		t.Fatalf("unexpected root: %+v", tree)
	}
	if len(tree[0].Replies) != 1 || tree[0].Replies[0].Author != "bob" {
		t.Fatalf("unexpected replies: %+v", tree[0].Replies)
	}
}

// TestDataSurvivesRestart writes through one server and reads through a
// second one over the same data file.
func TestDataSurvivesRestart(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "forum.json")

	first := startServer(t, dataFile)
	setEnv(t, first.URL, "e2e-agent")
	run(t, "group", "add", "keep")
	run(t, "topic", "add", "keep", "Persisted", "--body", "Still here")
	run(t, "reply", "1", "me too")
	first.Close()

	second := startServer(t, dataFile)
	setEnv(t, second.URL, "e2e-agent")
	shown := parse[model.Topic](t, run(t, "topic", "show", "1"))
	if shown.Title != "Persisted" {
		t.Fatalf("title = %q, want Persisted", shown.Title)
	}

	// New ids continue after the persisted ones.
	next := parse[model.Topic](t, run(t, "topic", "add", "keep", "Another", "--body", "x"))
	if next.ID != 2 {
		t.Fatalf("next topic id = %d, want 2", next.ID)
	}
	c := parse[model.Comment](t, run(t, "reply", "2", "hi"))
	if c.ID != 2 {
		t.Fatalf("next comment id = %d, want 2", c.ID)
	}
}

// TestFeedPages serves the external feed through the real feed client.
func TestFeedPages(t *testing.T) {
	ts := startServer(t, filepath.Join(t.TempDir(), "forum.json"))

	page, _ := get(t, ts.URL+"/reddit")
	if !strings.Contains(page, "Go 1.99 released") || !strings.Contains(page, `href="/reddit/x1"`) {
		t.Fatalf("unexpected feed listing: %s", page)
	}

	page, _ = get(t, ts.URL+"/reddit/x1")
	if !strings.Contains(page, "Great news") || !strings.Contains(page, "Notes") {
		t.Fatalf("unexpected thread page: %s", page)
	}

	resp, err := http.Get(ts.URL + "/reddit/NOT-AN-ID")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("invalid id: status %d, want 404", resp.StatusCode)
	}
}
