package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/teemow/dotion/internal/google"
	"github.com/teemow/dotion/internal/logging"
)

// handleAuthRedirect starts the OAuth flow: it stores a fresh CSRF state in
// a cookie and sends the browser to the Google consent screen.
func (s *Server) handleAuthRedirect(w http.ResponseWriter, r *http.Request) {
	if s.cfg.OAuth == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Google OAuth is not configured"})
		return
	}

	state := uuid.NewString()
	s.cfg.Sessions.WriteState(w, state)
	http.Redirect(w, r, google.AuthCodeURL(s.cfg.OAuth, state), http.StatusTemporaryRedirect)
}

// handleAuthCallback finishes the OAuth flow. The state parameter must match
// the cookie exactly; any mismatch sends the browser back with an error
// marker instead of exchanging the code.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.cfg.OAuth == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Google OAuth is not configured"})
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	stored := s.cfg.Sessions.ReadState(w, r)

	if code == "" || state == "" || stored == "" || state != stored {
		s.logger.Warn("oauth callback rejected", logging.Operation("oauth_callback"))
		s.metrics.RecordOAuthFlow(r.Context(), "rejected")
		http.Redirect(w, r, "/?auth=error", http.StatusTemporaryRedirect)
		return
	}

	token, err := google.Exchange(r.Context(), s.cfg.OAuth, code)
	if err != nil {
		s.logger.Error("oauth code exchange failed", logging.Err(err))
		s.metrics.RecordOAuthFlow(r.Context(), logging.StatusError)
		http.Redirect(w, r, "/?auth=error", http.StatusTemporaryRedirect)
		return
	}

	s.cfg.Sessions.Write(w, Session{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.Expiry,
	})
	s.logger.Info("session established",
		logging.Operation("oauth_callback"),
		slog.Time("expires_at", token.Expiry))
	s.metrics.RecordOAuthFlow(r.Context(), logging.StatusSuccess)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// handleLogout clears the session cookies.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.cfg.Sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleAuthStatus reports whether the current session is valid, so the UI
// can decide whether to show the connect button.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": sess.Valid(),
	})
}
