package server

import "net/http"

const (
	sessionUserKey = "username"
	anonymous      = "anonymous"
)

type loginPage struct {
	loginForm
	Errors formErrors
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, loginTmpl, http.StatusOK, loginPage{})
}

// handleLogin stores the submitted username in the session. It becomes
// the author of topics and comments posted from this browser.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	get, err := bindForm(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	f := loginForm{Username: get("username")}
	if errs := f.validate(); len(errs) > 0 {
		s.render(w, r, loginTmpl, http.StatusBadRequest, loginPage{loginForm: f, Errors: errs})
		return
	}
	if err := s.Sessions.RenewToken(r.Context()); err != nil {
		s.renderError(w, r, err)
		return
	}
	s.Sessions.Put(r.Context(), sessionUserKey, f.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Destroy(r.Context()); err != nil {
		s.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// sessionAuthor returns the username stored at /login, or anonymous.
func (s *Server) sessionAuthor(r *http.Request) string {
	if u := s.Sessions.GetString(r.Context(), sessionUserKey); u != "" {
		return u
	}
	return anonymous
}
