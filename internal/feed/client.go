// Package feed reads an external discussion feed (Reddit's public JSON API):
// the hot topics of a subreddit and individual threads with their comments.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://www.reddit.com"
	DefaultSubreddit = "programming"
	DefaultUserAgent = "forum_server/1.0"
)

var (
	// ErrInvalidID is returned for thread ids that are not base-36 tokens.
	ErrInvalidID = errors.New("invalid thread id")
	// ErrUpstream wraps failures talking to the feed.
	ErrUpstream = errors.New("feed upstream error")
)

var validID = regexp.MustCompile(`^[a-z0-9]{1,16}$`)

// Config configures a Client. Zero values select defaults.
type Config struct {
	BaseURL   string
	Subreddit string
	UserAgent string
	Limit     int           // topics per hot listing (default 25)
	CacheTTL  time.Duration // response cache lifetime (default 1m)
	CacheSize int           // cached responses per kind (default 128)
	Rate      rate.Limit    // outbound requests per second (default 1)
	Burst     int           // default 5
	HTTP      *http.Client
}

// Client fetches and caches feed data. Safe for concurrent use.
type Client struct {
	cfg     Config
	limiter *rate.Limiter
	hot     *expirable.LRU[string, []Topic]
	threads *expirable.LRU[string, Thread]
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Subreddit == "" {
		cfg.Subreddit = DefaultSubreddit
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 25
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 128
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		cfg:     cfg,
		limiter: rate.NewLimiter(cfg.Rate, cfg.Burst),
		hot:     expirable.NewLRU[string, []Topic](cfg.CacheSize, nil, cfg.CacheTTL),
		threads: expirable.NewLRU[string, Thread](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// HotTopics returns the subreddit's hot listing.
func (c *Client) HotTopics(ctx context.Context) ([]Topic, error) {
	if topics, ok := c.hot.Get(c.cfg.Subreddit); ok {
		return topics, nil
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.cfg.Limit))
	path := "/r/" + url.PathEscape(c.cfg.Subreddit) + "/hot.json?" + q.Encode()

	var l listing
	if err := c.getJSON(ctx, path, &l); err != nil {
		return nil, err
	}

	topics := []Topic{}
	for _, child := range l.Data.Children {
		if child.Kind == "t3" {
			topics = append(topics, child.Data.topic())
		}
	}
	c.hot.Add(c.cfg.Subreddit, topics)
	return topics, nil
}

// ThreadData returns a thread and its comment tree.
func (c *Client) ThreadData(ctx context.Context, id string) (Thread, error) {
	if !validID.MatchString(id) {
		return Thread{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if th, ok := c.threads.Get(id); ok {
		return th, nil
	}

	var pair []listing
	if err := c.getJSON(ctx, "/comments/"+id+".json", &pair); err != nil {
		return Thread{}, err
	}
	if len(pair) < 1 || len(pair[0].Data.Children) == 0 {
		return Thread{}, fmt.Errorf("%w: thread %s missing post", ErrUpstream, id)
	}

	th := Thread{
		Topic:    pair[0].Data.Children[0].Data.topic(),
		Comments: []Comment{},
	}
	if len(pair) > 1 {
		th.Comments = pair[1].comments()
	}
	c.threads.Add(id, th)
	return th, nil
}

// getJSON waits for the rate limiter, fetches path and decodes the body.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: HTTP %d for %s", ErrUpstream, resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUpstream, path, err)
	}
	return nil
}
