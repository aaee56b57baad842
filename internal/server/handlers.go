package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vector76/forum_server/internal/model"
	"github.com/vector76/forum_server/internal/store"
)

const userHeader = "X-Forum-User"

// jsonError writes a JSON error response with the given status code.
func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// jsonOK writes a JSON response with status 200.
func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// jsonCreated writes a JSON response with status 201.
func jsonCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps a store or model error to an HTTP status.
func statusFor(err error) int {
	var notFoundErr *store.NotFoundError
	var conflictErr *store.ConflictError
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// storeError writes err as a JSON error, logging unexpected failures.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("request_id", requestID(r)).Msg("store error")
		jsonError(w, "internal error", code)
		return
	}
	jsonError(w, err.Error(), code)
}

func topicID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// apiAuthor returns the acting user for API requests, sent by clients in
// the X-Forum-User header.
func apiAuthor(r *http.Request) string {
	if u := r.Header.Get(userHeader); u != "" {
		return u
	}
	return anonymous
}

type createGroupRequest struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

type createTopicRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

type updateTopicRequest struct {
	Title *string   `json:"title"`
	Body  *string   `json:"body"`
	Tags  *[]string `json:"tags"`
}

type addCommentRequest struct {
	Body     string `json:"body"`
	ParentID *int64 `json:"parent_id"`
}

type expireRequest struct {
	Path string `json:"path"`
}

// createGroupResponse reports whether the group was newly created.
type createGroupResponse struct {
	model.Group
	Created bool `json:"created"`
}

// normalizeTags slugifies a tag list the same way the topic form does.
func normalizeTags(tags []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, raw := range tags {
		for _, t := range model.ParseTags(raw) {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// handleListGroups handles GET /api/v1/groups.
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.Store.ListGroups(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	jsonOK(w, groups)
}

// handleCreateGroup handles POST /api/v1/groups.
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		req.Title = req.Name
	}
	f := groupForm{Name: req.Name, Title: req.Title}
	if errs := f.validate(); len(errs) > 0 {
		jsonError(w, errs.first(), http.StatusBadRequest)
		return
	}

	g, created, err := s.Store.GetOrCreateGroup(r.Context(), model.NewGroup(req.Name, req.Title))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	resp := createGroupResponse{Group: g, Created: created}
	if created {
		jsonCreated(w, resp)
		return
	}
	jsonOK(w, resp)
}

// handleListTopics handles GET /api/v1/groups/{group}/topics.
func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultRecentTopics
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	topics, err := s.Store.RecentTopics(r.Context(), chi.URLParam(r, "group"), limit)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	jsonOK(w, topics)
}

// handleCreateTopic handles POST /api/v1/groups/{group}/topics.
func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	f := topicForm{Title: req.Title, Body: req.Body}
	if errs := f.validate(); len(errs) > 0 {
		jsonError(w, errs.first(), http.StatusBadRequest)
		return
	}

	group := chi.URLParam(r, "group")
	t := model.NewTopic(group, apiAuthor(r), req.Title, req.Body, normalizeTags(req.Tags))
	created, err := s.Store.CreateTopic(r.Context(), t)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.expire(r, created.Path(), model.GroupPath(group))
	jsonCreated(w, created)
}

// handleGetTopic handles GET /api/v1/topics/{id}.
func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := topicID(r)
	if !ok {
		jsonError(w, "invalid topic id", http.StatusBadRequest)
		return
	}
	t, err := s.Store.GetTopic(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	jsonOK(w, t)
}

// handleUpdateTopic handles PATCH /api/v1/topics/{id}.
func (s *Server) handleUpdateTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := topicID(r)
	if !ok {
		jsonError(w, "invalid topic id", http.StatusBadRequest)
		return
	}
	var req updateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if errs := (topicPatch{Title: req.Title, Body: req.Body}).validate(); len(errs) > 0 {
		jsonError(w, errs.first(), http.StatusBadRequest)
		return
	}

	fields := store.TopicFields{Title: req.Title, Body: req.Body}
	if req.Tags != nil {
		tags := normalizeTags(*req.Tags)
		fields.Tags = &tags
	}
	updated, err := s.Store.UpdateTopic(r.Context(), id, fields)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.expire(r, updated.Path(), model.GroupPath(updated.Group))
	jsonOK(w, updated)
}

// handleListComments handles GET /api/v1/topics/{id}/comments and returns
// the comment tree.
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := topicID(r)
	if !ok {
		jsonError(w, "invalid topic id", http.StatusBadRequest)
		return
	}
	comments, err := s.Store.Comments(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	jsonOK(w, model.BuildCommentTree(comments))
}

// handleAddComment handles POST /api/v1/topics/{id}/comments.
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := topicID(r)
	if !ok {
		jsonError(w, "invalid topic id", http.StatusBadRequest)
		return
	}
	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	t, err := s.Store.GetTopic(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	c, err := s.Store.AddReply(r.Context(), id, req.ParentID, model.Comment{Author: apiAuthor(r), Body: req.Body})
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.expire(r, t.Path())
	jsonCreated(w, c)
}

// handleTopTags handles GET /api/v1/tags/top.
func (s *Server) handleTopTags(w http.ResponseWriter, r *http.Request) {
	limit := topTagsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	tags, err := s.Store.TopTags(r.Context(), limit)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	jsonOK(w, tags)
}

// handleExpire handles POST /api/v1/cache/expire.
func (s *Server) handleExpire(w http.ResponseWriter, r *http.Request) {
	var req expireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.Invalidator.Invalidate(req.Path); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonOK(w, map[string]string{"expired": req.Path})
}
