package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/dotion/internal/calendar"
	"github.com/teemow/dotion/internal/chat"
	"github.com/teemow/dotion/internal/google"
)

type fakeCalendarService struct {
	events  map[string]*calendar.Event
	listed  []calendar.Event
	listErr error
}

func (f *fakeCalendarService) ListEvents(_ context.Context, _, _ time.Time) ([]calendar.Event, error) {
	return f.listed, f.listErr
}

func (f *fakeCalendarService) GetEvent(_ context.Context, id string) (*calendar.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, &calendar.UpstreamError{Op: "get", Err: fmt.Errorf("not found")}
	}
	return ev, nil
}

func (f *fakeCalendarService) CreateEvent(_ context.Context, input calendar.EventInput) (*calendar.Event, error) {
	if input.Summary == "" || input.Start == "" {
		return nil, calendar.NewValidationError("summary and start are required")
	}
	return &calendar.Event{ID: "new-1", Summary: input.Summary, Start: input.Start}, nil
}

func (f *fakeCalendarService) UpdateEvent(_ context.Context, id string, _ calendar.EventPatch) (*calendar.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, &calendar.UpstreamError{Op: "update", Err: fmt.Errorf("not found")}
	}
	return ev, nil
}

func (f *fakeCalendarService) DeleteEvent(_ context.Context, id string) error {
	if _, ok := f.events[id]; !ok {
		return &calendar.UpstreamError{Op: "delete", Err: fmt.Errorf("not found")}
	}
	delete(f.events, id)
	return nil
}

type fixedOpener struct {
	chunks []openai.ChatCompletionStreamResponse
}

type fixedStream struct {
	chunks []openai.ChatCompletionStreamResponse
	pos    int
}

func (s *fixedStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if s.pos >= len(s.chunks) {
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *fixedStream) Close() error { return nil }

func (o *fixedOpener) OpenStream(_ context.Context, _ openai.ChatCompletionRequest) (chat.ChunkStream, error) {
	return &fixedStream{chunks: o.chunks}, nil
}

func newTestServer(t *testing.T, svc *fakeCalendarService, chunks ...openai.ChatCompletionStreamResponse) *Server {
	t.Helper()
	if svc == nil {
		svc = &fakeCalendarService{events: map[string]*calendar.Event{}}
	}
	return New(Config{
		Addr:     ":0",
		Sessions: &SessionManager{},
		Calendars: func(_ context.Context, token string) (CalendarService, error) {
			require.NotEmpty(t, token)
			return svc, nil
		},
		Opener:   &fixedOpener{chunks: chunks},
		Model:    "gpt-4o",
		Prompt:   chat.NewPromptBuilder("gpt-4o", "UTC", time.UTC, 16000, 2000, nil),
		TimeZone: "UTC",
		Location: time.UTC,
	})
}

func authenticate(req *http.Request) {
	req.AddCookie(&http.Cookie{Name: cookieAccessToken, Value: "tok"})
	req.AddCookie(&http.Cookie{
		Name:  cookieExpiresAt,
		Value: strconv.FormatInt(time.Now().Add(time.Hour).UnixMilli(), 10),
	})
}

func TestCalendarWeekRequiresSession(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calendar", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestCalendarWeekProjection(t *testing.T) {
	svc := &fakeCalendarService{listed: []calendar.Event{
		{ID: "ev1", Summary: "Standup", Start: "2026-02-02T09:00:00Z"},
	}}
	s := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/calendar?date=2026-02-04", nil)
	authenticate(req)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"timeZone":"UTC"`)
	// The week containing Wed Feb 4 starts Mon Feb 2.
	assert.Contains(t, body, `"date":"2026-02-02"`)
	assert.Contains(t, body, `"date":"2026-02-08"`)
	assert.Contains(t, body, `"Standup"`)
}

func TestCalendarWeekRejectsBadDate(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/calendar?date=tomorrow", nil)
	authenticate(req)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEventValidation(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/calendar",
		strings.NewReader(`{"summary":"","start":""}`))
	authenticate(req)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "summary and start are required")
}

func TestCreateEvent(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/calendar",
		strings.NewReader(`{"summary":"Lunch","start":"2026-02-02T12:00:00"}`))
	authenticate(req)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"eventId":"new-1"`)
}

func TestUpdateEventRequiresID(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/calendar",
		strings.NewReader(`{"summary":"Renamed"}`))
	authenticate(req)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "eventId is required")
}

func TestDeleteEvent(t *testing.T) {
	svc := &fakeCalendarService{events: map[string]*calendar.Event{
		"ev1": {ID: "ev1", Summary: "Old"},
	}}
	s := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/calendar",
		strings.NewReader(`{"eventId":"ev1"}`))
	authenticate(req)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.events)
}

func TestDeleteEventUpstreamFailure(t *testing.T) {
	s := newTestServer(t, &fakeCalendarService{events: map[string]*calendar.Event{}})

	req := httptest.NewRequest(http.MethodDelete, "/api/calendar",
		strings.NewReader(`{"eventId":"missing"}`))
	authenticate(req)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "calendar request failed")
}

func TestChatStreamsWithoutSession(t *testing.T) {
	s := newTestServer(t, nil, openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{Content: "Hi there!"}},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"messages":[{"role":"user","content":"hello"}]}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "Hi there!")
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
}

func TestChatRejectsEmptyHistory(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[]}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthStatus(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/google/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)

	req = httptest.NewRequest(http.MethodGet, "/api/google/status", nil)
	authenticate(req)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)
}

func TestAuthRedirectSetsState(t *testing.T) {
	s := newTestServer(t, nil)
	s.cfg.OAuth = google.OAuthConfig(google.Credentials{
		ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost:3000/api/google/callback",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/google/auth", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "accounts.google.com")
	assert.Contains(t, location, "state=")

	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieOAuthState {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Contains(t, location, "state="+state)
}

func TestAuthCallbackRejectsStateMismatch(t *testing.T) {
	s := newTestServer(t, nil)
	s.cfg.OAuth = google.OAuthConfig(google.Credentials{ClientID: "id", ClientSecret: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/api/google/callback?code=abc&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: cookieOAuthState, Value: "expected"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/?auth=error", rec.Header().Get("Location"))
}

func TestAuthCallbackSuccess(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	s := newTestServer(t, nil)
	s.cfg.OAuth = &oauth2.Config{
		ClientID: "id", ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{TokenURL: tokenServer.URL},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/google/callback?code=abc&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: cookieOAuthState, Value: "s1"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieAccessToken {
			token = c.Value
		}
	}
	assert.Equal(t, "fresh-token", token)
}

func TestLogoutClearsSession(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/google/logout", nil)
	authenticate(req)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.Negative(t, c.MaxAge, "cookie %s should be expired", c.Name)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	s.health.SetReady(false)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
