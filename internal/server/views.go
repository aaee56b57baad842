package server

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vector76/forum_server/internal/model"
	"github.com/vector76/forum_server/internal/store"
)

// render executes tmpl into a buffer so a template failure can still
// produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, code int, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		s.log.Error().Err(err).Str("template", tmpl.Name()).Str("request_id", requestID(r)).Msg("template error")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

type errorPage struct {
	Status  int
	Message string
}

// renderError shows an error page. Unexpected errors are logged and hidden.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("request_id", requestID(r)).Msg("request failed")
		msg = "Something went wrong."
	}
	s.render(w, r, errorTmpl, code, errorPage{Status: code, Message: msg})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, errorTmpl, http.StatusNotFound, errorPage{Status: http.StatusNotFound, Message: "Page not found."})
}

type indexPage struct {
	User    string
	Groups  []model.Group
	TopTags []model.TagCount
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	groups, err := s.Store.ListGroups(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	tags, err := s.Store.TopTags(r.Context(), topTagsLimit)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, indexTmpl, http.StatusOK, indexPage{
		User:    s.Sessions.GetString(r.Context(), sessionUserKey),
		Groups:  groups,
		TopTags: tags,
	})
}

type groupFormPage struct {
	groupForm
	Errors formErrors
}

func (s *Server) handleNewGroupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, groupFormTmpl, http.StatusOK, groupFormPage{})
}

func (s *Server) handleNewGroup(w http.ResponseWriter, r *http.Request) {
	get, err := bindForm(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	f := groupForm{Title: get("title"), Name: get("name")}
	if errs := f.validate(); len(errs) > 0 {
		s.render(w, r, groupFormTmpl, http.StatusBadRequest, groupFormPage{groupForm: f, Errors: errs})
		return
	}

	g, created, err := s.Store.GetOrCreateGroup(r.Context(), model.NewGroup(f.Name, f.Title))
	if err != nil {
		errs := formErrors{}
		if errs.addValidation(err) {
			s.render(w, r, groupFormTmpl, http.StatusBadRequest, groupFormPage{groupForm: f, Errors: errs})
			return
		}
		s.renderError(w, r, err)
		return
	}
	if created {
		s.log.Info().Str("group", g.Name).Str("request_id", requestID(r)).Msg("group created")
	}
	http.Redirect(w, r, model.GroupPath(g.Name), http.StatusSeeOther)
}

type groupPage struct {
	Group   model.Group
	Topics  []model.Topic
	TopTags []model.TagCount
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.Store.GetGroup(r.Context(), chi.URLParam(r, "group"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	topics, err := s.Store.RecentTopics(r.Context(), g.Name, store.DefaultRecentTopics)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	tags, err := s.Store.TopTags(r.Context(), topTagsLimit)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, groupTmpl, http.StatusOK, groupPage{Group: g, Topics: topics, TopTags: tags})
}

type topicFormPage struct {
	topicForm
	Group   string
	Action  string
	Editing bool
	Errors  formErrors
}

func (s *Server) handleNewTopicForm(w http.ResponseWriter, r *http.Request) {
	g, err := s.Store.GetGroup(r.Context(), chi.URLParam(r, "group"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, topicFormTmpl, http.StatusOK, topicFormPage{
		Group:  g.Name,
		Action: model.GroupPath(g.Name) + "/new",
	})
}

func (s *Server) handleNewTopic(w http.ResponseWriter, r *http.Request) {
	g, err := s.Store.GetGroup(r.Context(), chi.URLParam(r, "group"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	get, err := bindForm(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	f := topicForm{Title: get("title"), Body: get("body"), Tags: get("tags")}
	data := topicFormPage{topicForm: f, Group: g.Name, Action: model.GroupPath(g.Name) + "/new"}
	if errs := f.validate(); len(errs) > 0 {
		data.Errors = errs
		s.render(w, r, topicFormTmpl, http.StatusBadRequest, data)
		return
	}

	t := model.NewTopic(g.Name, s.sessionAuthor(r), f.Title, f.Body, model.ParseTags(f.Tags))
	created, err := s.Store.CreateTopic(r.Context(), t)
	if err != nil {
		errs := formErrors{}
		if errs.addValidation(err) {
			data.Errors = errs
			s.render(w, r, topicFormTmpl, http.StatusBadRequest, data)
			return
		}
		s.renderError(w, r, err)
		return
	}

	s.expire(r, created.Path(), model.GroupPath(g.Name))
	http.Redirect(w, r, created.Path(), http.StatusSeeOther)
}

// topicInGroup loads the topic named by the URL and checks it belongs to
// the URL's group.
func (s *Server) topicInGroup(r *http.Request) (model.Topic, error) {
	id, ok := topicID(r)
	if !ok || chi.URLParam(r, "id") != strconv.FormatInt(id, 10) {
		return model.Topic{}, &store.NotFoundError{Message: "topic not found"}
	}
	t, err := s.Store.GetTopic(r.Context(), id)
	if err != nil {
		return model.Topic{}, err
	}
	if t.Group != chi.URLParam(r, "group") {
		return model.Topic{}, &store.NotFoundError{Message: "topic not found"}
	}
	return t, nil
}

type topicPage struct {
	Topic    model.Topic
	Comments []*model.CommentNode
	Body     string
	Errors   formErrors
}

func (s *Server) topicPageData(r *http.Request, t model.Topic) (topicPage, error) {
	comments, err := s.Store.Comments(r.Context(), t.ID)
	if err != nil {
		return topicPage{}, err
	}
	return topicPage{Topic: t, Comments: model.BuildCommentTree(comments)}, nil
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	t, err := s.topicInGroup(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	data, err := s.topicPageData(r, t)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, topicTmpl, http.StatusOK, data)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	t, err := s.topicInGroup(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	get, err := bindForm(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	f := replyForm{Body: get("body"), ParentID: get("parent_id")}
	errs := f.validate()
	if len(errs) == 0 {
		parent, _ := f.parent()
		_, err = s.Store.AddReply(r.Context(), t.ID, parent, model.Comment{Author: s.sessionAuthor(r), Body: f.Body})
		if err != nil && !errs.addValidation(err) {
			s.renderError(w, r, err)
			return
		}
	}
	if len(errs) > 0 {
		data, err := s.topicPageData(r, t)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		data.Body = f.Body
		data.Errors = errs
		s.render(w, r, topicTmpl, http.StatusBadRequest, data)
		return
	}

	s.expire(r, t.Path())
	http.Redirect(w, r, t.Path(), http.StatusSeeOther)
}

func (s *Server) handleEditTopicForm(w http.ResponseWriter, r *http.Request) {
	t, err := s.topicInGroup(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, topicFormTmpl, http.StatusOK, topicFormPage{
		topicForm: topicForm{Title: t.Title, Body: t.Body, Tags: strings.Join(t.Tags, ", ")},
		Group:     t.Group,
		Action:    t.Path() + "/edit",
		Editing:   true,
	})
}

func (s *Server) handleEditTopic(w http.ResponseWriter, r *http.Request) {
	t, err := s.topicInGroup(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	get, err := bindForm(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	f := topicForm{Title: get("title"), Body: get("body"), Tags: get("tags")}
	data := topicFormPage{topicForm: f, Group: t.Group, Action: t.Path() + "/edit", Editing: true}
	if errs := f.validate(); len(errs) > 0 {
		data.Errors = errs
		s.render(w, r, topicFormTmpl, http.StatusBadRequest, data)
		return
	}

	tags := model.ParseTags(f.Tags)
	updated, err := s.Store.UpdateTopic(r.Context(), t.ID, store.TopicFields{
		Title: &f.Title,
		Body:  &f.Body,
		Tags:  &tags,
	})
	if err != nil {
		errs := formErrors{}
		if errs.addValidation(err) {
			data.Errors = errs
			s.render(w, r, topicFormTmpl, http.StatusBadRequest, data)
			return
		}
		s.renderError(w, r, err)
		return
	}

	s.expire(r, updated.Path(), model.GroupPath(updated.Group))
	http.Redirect(w, r, updated.Path(), http.StatusSeeOther)
}
