package server

import (
	"encoding/json"
	"net/http"

	"github.com/teemow/dotion/internal/calendar"
	"github.com/teemow/dotion/internal/chat"
	"github.com/teemow/dotion/internal/logging"
)

type chatRequest struct {
	Messages       []chat.Message `json:"messages"`
	CalendarEvents []calendar.Day `json:"calendarEvents"`
}

// handleChat runs one assistant turn as a server-sent event stream. The
// endpoint works without a session; the model then gets no tools and the
// turn is text only.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, calendar.NewValidationError("invalid request body"))
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, s.logger, calendar.NewValidationError("messages are required"))
		return
	}

	sess := s.session(r)

	var gateway chat.Gateway
	if sess.Valid() {
		svc, err := s.cfg.Calendars(r.Context(), sess.AccessToken)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		gateway = svc
	}

	streamer := chat.NewStreamer(chat.StreamerConfig{
		Opener:     s.cfg.Opener,
		Model:      s.cfg.Model,
		Prompt:     s.cfg.Prompt,
		Executor:   chat.NewExecutor(gateway, s.cfg.Apps, s.logger, s.metrics),
		AppControl: s.cfg.AppControl,
		Logger:     s.logger,
		Metrics:    s.metrics,
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	turn := chat.TurnRequest{
		History: req.Messages,
		Days:    req.CalendarEvents,
		Authed:  sess.Valid(),
	}
	if err := streamer.Run(r.Context(), turn, chat.NewMultiplexer(w, s.metrics)); err != nil {
		// Headers are gone by now; the stream just ends without its
		// terminator and the client keeps what it already received.
		s.logger.Error("chat stream aborted", logging.Err(err))
	}
}
