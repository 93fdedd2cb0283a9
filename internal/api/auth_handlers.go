package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"paras/internal/models"
	"paras/internal/session"
)

type loginRequest struct {
	NRP      string `json:"nrp"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.NRP = strings.TrimSpace(body.NRP)
	if body.NRP == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "nrp and password are required")
		return
	}

	sess, err := s.sessions.Login(r.Context(), "", models.LoginRequest{
		NRP:      body.NRP,
		Password: body.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sess.ID,
		"profile":   sess.Profile,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	if err := s.sessions.Logout(r.Context(), sess.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleMe reports the auth state without forcing authentication, so clients
// can poll it to drive their route guards.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, state := sessionFromContext(r.Context())
	resp := map[string]any{"state": state.String()}
	if state == session.StateAuthenticated {
		resp["profile"] = sess.Profile
	}
	writeJSON(w, http.StatusOK, resp)
}
