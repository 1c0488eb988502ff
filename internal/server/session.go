package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// Cookie names of the session. The access token and its expiry travel as
// separate cookies so the client can inspect the expiry without being able
// to read a structured blob.
const (
	cookieAccessToken = "google_access_token"
	cookieExpiresAt   = "google_access_token_expires_at"
	cookieOAuthState  = "google_oauth_state"
)

// ErrUnauthenticated is returned when a request carries no valid session.
var ErrUnauthenticated = errors.New("not authenticated with Google")

// Session is the authentication state of one request.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the session can be used for calendar calls right
// now. A token at or past its expiry is treated as absent.
func (s Session) Valid() bool {
	return s.AccessToken != "" && time.Now().Before(s.ExpiresAt)
}

// SessionManager reads and writes the cookie session. Secure controls the
// cookies' Secure flag; it is off for plain-HTTP local development.
type SessionManager struct {
	Secure bool
}

// FromRequest extracts the session from the request cookies. A missing or
// malformed cookie yields a zero session, not an error; only handlers that
// require auth turn that into a 401.
func (m *SessionManager) FromRequest(r *http.Request) Session {
	var s Session
	if c, err := r.Cookie(cookieAccessToken); err == nil {
		s.AccessToken = c.Value
	}
	if c, err := r.Cookie(cookieExpiresAt); err == nil {
		if ms, err := strconv.ParseInt(c.Value, 10, 64); err == nil {
			s.ExpiresAt = time.UnixMilli(ms)
		}
	}
	return s
}

// Write sets the session cookies after a successful token exchange.
func (m *SessionManager) Write(w http.ResponseWriter, s Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessToken,
		Value:    s.AccessToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	// The expiry cookie is readable by the client so the UI can prompt for
	// re-auth before a call fails.
	http.SetCookie(w, &http.Cookie{
		Name:     cookieExpiresAt,
		Value:    strconv.FormatInt(s.ExpiresAt.UnixMilli(), 10),
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes the session cookies.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	for _, name := range []string{cookieAccessToken, cookieExpiresAt} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   m.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// WriteState sets the short-lived CSRF state cookie for the OAuth redirect.
func (m *SessionManager) WriteState(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieOAuthState,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadState returns the CSRF state cookie value, or "" when absent, and
// clears it so each state is single-use.
func (m *SessionManager) ReadState(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(cookieOAuthState)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieOAuthState,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Value
}
