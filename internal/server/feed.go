package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vector76/forum_server/internal/feed"
)

// feedGroup labels the external feed in place of a forum group.
const feedGroup = "reddit"

type feedPage struct {
	Subreddit string
	Topics    []feed.Topic
}

// feedError renders a feed failure: bad ids are 404, upstream trouble 502.
func (s *Server) feedError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, feed.ErrInvalidID) {
		s.notFound(w, r)
		return
	}
	s.log.Warn().Err(err).Str("request_id", requestID(r)).Msg("feed request failed")
	s.render(w, r, errorTmpl, http.StatusBadGateway, errorPage{
		Status:  http.StatusBadGateway,
		Message: "The " + feedGroup + " feed is unavailable right now.",
	})
}

func (s *Server) handleFeedTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.Feed.HotTopics(r.Context())
	if err != nil {
		s.feedError(w, r, err)
		return
	}
	s.render(w, r, feedTmpl, http.StatusOK, feedPage{Subreddit: s.config.Subreddit, Topics: topics})
}

func (s *Server) handleFeedThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.Feed.ThreadData(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.feedError(w, r, err)
		return
	}
	s.render(w, r, feedThreadTmpl, http.StatusOK, thread)
}
