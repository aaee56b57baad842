package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/vector76/forum_server/internal/feed"
	"github.com/vector76/forum_server/internal/pagecache"
	"github.com/vector76/forum_server/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Port      int
	Token     string
	CacheTTL  time.Duration
	Subreddit string

	// LogOutput receives request and error logs. Defaults to os.Stderr.
	LogOutput io.Writer
	LogLevel  string
}

// FeedSource supplies the external discussion feed shown under /reddit.
type FeedSource interface {
	HotTopics(ctx context.Context) ([]feed.Topic, error)
	ThreadData(ctx context.Context, id string) (feed.Thread, error)
}

// Server is the HTTP server for the forum.
type Server struct {
	Router *chi.Mux
	Store  store.Repository
	Pages  *pagecache.Cache

	// Invalidator is called after every write. Defaults to Pages.
	Invalidator pagecache.Invalidator
	Feed        FeedSource
	Sessions    *scs.SessionManager

	log    zerolog.Logger
	config Config
}

// New creates a new Server over the given repository and feed.
func New(cfg Config, st store.Repository, fs FeedSource) (*Server, error) {
	if st == nil {
		return nil, fmt.Errorf("store must not be nil")
	}
	if fs == nil {
		return nil, fmt.Errorf("feed source must not be nil")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("token must not be empty")
	}

	logger, err := newLogger(cfg.LogOutput, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	pages := pagecache.New(cfg.CacheTTL)
	sessions := scs.New()
	sessions.Lifetime = 30 * 24 * time.Hour
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	srv := &Server{
		Router:      chi.NewRouter(),
		Store:       st,
		Pages:       pages,
		Invalidator: pages,
		Feed:        fs,
		Sessions:    sessions,
		log:         logger,
		config:      cfg,
	}

	srv.Router.Use(srv.requestLogger)
	srv.Router.Use(middleware.Recoverer)
	srv.Router.NotFound(srv.notFound)

	srv.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)

		// All other API routes require auth
		r.Group(func(r chi.Router) {
			r.Use(srv.authMiddleware)
			r.Get("/groups", srv.handleListGroups)
			r.Post("/groups", srv.handleCreateGroup)
			r.Get("/groups/{group}/topics", srv.handleListTopics)
			r.Post("/groups/{group}/topics", srv.handleCreateTopic)
			r.Get("/topics/{id}", srv.handleGetTopic)
			r.Patch("/topics/{id}", srv.handleUpdateTopic)
			r.Get("/topics/{id}/comments", srv.handleListComments)
			r.Post("/topics/{id}/comments", srv.handleAddComment)
			r.Get("/tags/top", srv.handleTopTags)
			r.Post("/cache/expire", srv.handleExpire)
		})
	})

	// HTML views carry a session; the group and topic pages are cached.
	srv.Router.Group(func(r chi.Router) {
		r.Use(sessions.LoadAndSave)

		r.Get("/", srv.handleIndex)
		r.Get("/groups/new", srv.handleNewGroupForm)
		r.Post("/groups/new", srv.handleNewGroup)
		r.Get("/login", srv.handleLoginForm)
		r.Post("/login", srv.handleLogin)
		r.Post("/logout", srv.handleLogout)
		r.Get("/reddit", srv.handleFeedTopics)
		r.Get("/reddit/{id}", srv.handleFeedThread)

		r.With(pages.Middleware).Get("/{group}", srv.handleGroup)
		r.Get("/{group}/new", srv.handleNewTopicForm)
		r.Post("/{group}/new", srv.handleNewTopic)
		r.With(pages.Middleware).Get("/{group}/{id}", srv.handleTopic)
		r.Post("/{group}/{id}", srv.handleReply)
		r.Get("/{group}/{id}/edit", srv.handleEditTopicForm)
		r.Post("/{group}/{id}/edit", srv.handleEditTopic)
	})

	return srv, nil
}

// ListenAddr returns the address the server should listen on.
func (s *Server) ListenAddr() string {
	return fmt.Sprintf(":%d", s.config.Port)
}

// Logger returns the server's logger.
func (s *Server) Logger() zerolog.Logger {
	return s.log
}

// expire invalidates the cached copies of paths. Failures are logged; the
// write that triggered them has already succeeded.
func (s *Server) expire(r *http.Request, paths ...string) {
	for _, p := range paths {
		if err := s.Invalidator.Invalidate(p); err != nil {
			s.log.Warn().Err(err).Str("path", p).Str("request_id", requestID(r)).Msg("cache invalidation failed")
		}
	}
}

// authMiddleware requires the configured bearer token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			jsonError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		if !strings.HasPrefix(auth, "Bearer ") {
			jsonError(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.config.Token)) != 1 {
			jsonError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
