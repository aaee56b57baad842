package pagecache

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	gocache "github.com/patrickmn/go-cache"
)

// ErrInvalidPath is returned by Invalidate for paths that cannot name a page.
var ErrInvalidPath = errors.New("invalid page path")

// Invalidator removes the cached copy of a page.
type Invalidator interface {
	Invalidate(path string) error
}

// NoopInvalidator discards invalidations.
type NoopInvalidator struct{}

func (NoopInvalidator) Invalidate(string) error { return nil }

// Page is a cached response.
type Page struct {
	ContentType string
	Body        []byte
}

// Cache is a TTL page cache with per-key generations.
type Cache struct {
	store *gocache.Cache
	ttl   time.Duration

	mu   sync.Mutex
	gens map[string]uint64
}

var _ Invalidator = (*Cache)(nil)

// New creates a Cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		store: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
		gens:  make(map[string]uint64),
	}
}

// Invalidate builds a GET request for path, derives the key a real request
// for that path would use, and deletes any entry stored under it. Missing
// entries are not an error.
func (c *Cache) Invalidate(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	r, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	key := Key(r)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	c.store.Delete(key)
	return nil
}

// Get returns the cached page for key.
func (c *Cache) Get(key string) (Page, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return Page{}, false
	}
	return v.(Page), true
}

// Len returns the number of unexpired entries.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

func (c *Cache) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}

// storeIfCurrent stores p unless key was invalidated after gen was read.
func (c *Cache) storeIfCurrent(key string, gen uint64, p Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false
	}
	c.store.Set(key, p, c.ttl)
	return true
}

// Middleware serves cacheable requests from the cache and stores 200
// responses rendered on a miss. Responses carry X-Cache: HIT or MISS.
func (c *Cache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cacheable(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := Key(r)
		if p, ok := c.Get(key); ok {
			if p.ContentType != "" {
				w.Header().Set("Content-Type", p.ContentType)
			}
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			if r.Method != http.MethodHead {
				w.Write(p.Body)
			}
			return
		}

		gen := c.generation(key)
		w.Header().Set("X-Cache", "MISS")

		var buf bytes.Buffer
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&buf)
		next.ServeHTTP(ww, r)

		if ww.Status() != http.StatusOK || r.Method == http.MethodHead {
			return
		}
		c.storeIfCurrent(key, gen, Page{
			ContentType: ww.Header().Get("Content-Type"),
			Body:        buf.Bytes(),
		})
	})
}
