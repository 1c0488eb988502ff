package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/oauth2"

	"github.com/teemow/dotion/internal/appcontrol"
	"github.com/teemow/dotion/internal/calendar"
	"github.com/teemow/dotion/internal/chat"
	"github.com/teemow/dotion/internal/instrumentation"
	"github.com/teemow/dotion/internal/logging"
)

// Default timeouts for the API server. The chat endpoint streams for the
// lifetime of a completion, so there is deliberately no write timeout.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
)

// CalendarService is the per-session calendar surface used by the HTTP
// handlers. *calendar.Client satisfies it.
type CalendarService interface {
	chat.Gateway
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]calendar.Event, error)
}

// CalendarFactory builds a calendar service bound to one access token.
type CalendarFactory func(ctx context.Context, accessToken string) (CalendarService, error)

// Config carries the dependencies of the API server.
type Config struct {
	Addr      string
	OAuth     *oauth2.Config
	Sessions  *SessionManager
	Calendars CalendarFactory

	// Chat turn dependencies. The executor is assembled per request because
	// its calendar gateway is bound to the session token.
	Opener     chat.StreamOpener
	Model      string
	Prompt     *chat.PromptBuilder
	Apps       appcontrol.Controller
	AppControl bool

	TimeZone string
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *instrumentation.Metrics
}

// Server is the assistant's HTTP API.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	health     *HealthChecker
	httpServer *http.Server
}

// New builds the API server and its routes.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Sessions == nil {
		cfg.Sessions = &SessionManager{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	s := &Server{
		cfg:     cfg,
		logger:  logging.WithService(logger, "api"),
		metrics: cfg.Metrics,
		health:  NewHealthChecker(),
	}

	router := mux.NewRouter()
	router.Use(s.instrument)

	router.HandleFunc("/api/google/auth", s.handleAuthRedirect).Methods(http.MethodGet)
	router.HandleFunc("/api/google/callback", s.handleAuthCallback).Methods(http.MethodGet)
	router.HandleFunc("/api/google/logout", s.handleLogout).Methods(http.MethodPost)
	router.HandleFunc("/api/google/status", s.handleAuthStatus).Methods(http.MethodGet)

	router.HandleFunc("/api/calendar", s.handleCalendarWeek).Methods(http.MethodGet)
	router.HandleFunc("/api/calendar", s.handleCreateEvent).Methods(http.MethodPost)
	router.HandleFunc("/api/calendar", s.handleUpdateEvent).Methods(http.MethodPut)
	router.HandleFunc("/api/calendar", s.handleDeleteEvent).Methods(http.MethodDelete)

	router.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)

	router.Handle("/healthz", s.health.LivenessHandler()).Methods(http.MethodGet)
	router.Handle("/readyz", s.health.ReadinessHandler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting api server", slog.String("addr", s.cfg.Addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests. The readiness probe flips first so a
// load balancer stops routing new traffic.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.logger.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}

// session returns the request's session, which may be invalid. Handlers that
// require authentication call requireSession instead.
func (s *Server) session(r *http.Request) Session {
	return s.cfg.Sessions.FromRequest(r)
}

func (s *Server) requireSession(r *http.Request) (Session, error) {
	sess := s.session(r)
	if !sess.Valid() {
		return Session{}, ErrUnauthenticated
	}
	return sess, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so streaming handlers keep working
// through the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(started))
		s.logger.Debug("request handled",
			slog.String("method", r.Method),
			slog.String("path", path),
			slog.Int("status", rec.status),
			slog.Duration(logging.KeyDuration, time.Since(started)))
	})
}
