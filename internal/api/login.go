package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/promotesh/worklog/internal/auth"
)

// handleLogin proxies a password-grant login to the identity provider
// and passes the token bundle back to the client.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Login == nil {
		writeError(w, http.StatusNotImplemented, "login_disabled", "password login is not configured")
		return
	}

	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := validate.Struct(creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	session, err := s.cfg.Login.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
			return
		}
		s.log.Error("login failed", "error", err)
		writeError(w, http.StatusBadGateway, "provider_unavailable", "identity provider is unavailable")
		return
	}

	writeJSON(w, http.StatusOK, session)
}
