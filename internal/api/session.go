package api

import (
	"net/http"

	"mesa/internal/auth"
	"mesa/internal/domain"
)

type loginResponse struct {
	Success  bool        `json:"success"`
	Redirect string      `json:"redirect"`
	Type     domain.Role `json:"type"`
}

// handleLogin authenticates staff holding one of allowed and sets the
// session cookie. endpoint labels audit entries and metrics.
func (s *Server) handleLogin(endpoint string, allowed ...domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		returnTo := req.ReturnTo
		if returnTo == "" {
			returnTo = r.URL.Query().Get("return_to")
		}

		session, err := s.deps.Auth.Login(r.Context(), endpoint, req.Username, req.Password, returnTo, allowed...)
		if err != nil {
			writeError(w, r, err)
			return
		}

		http.SetCookie(w, auth.CreateSessionCookieForRequest(session.Token, s.deps.Auth.SessionTTL(), r))
		writeJSON(w, http.StatusOK, loginResponse{
			Success:  true,
			Redirect: session.Redirect,
			Type:     session.User.Role,
		})
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Auth.Logout(r.Context(), s.deps.Sessions.Authenticate(r))
	http.SetCookie(w, auth.DeleteSessionCookie(r))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type checkAuthResponse struct {
	Authenticated bool              `json:"authenticated"`
	UserType      *domain.Role      `json:"userType"`
	User          *domain.Principal `json:"user"`
}

func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	p := s.deps.Sessions.Authenticate(r)
	if p == nil {
		writeJSON(w, http.StatusOK, checkAuthResponse{})
		return
	}
	role := p.Role
	writeJSON(w, http.StatusOK, checkAuthResponse{
		Authenticated: true,
		UserType:      &role,
		User:          p,
	})
}
