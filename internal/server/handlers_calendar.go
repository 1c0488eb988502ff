package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/teemow/dotion/internal/calendar"
)

type weekResponse struct {
	TimeZone string         `json:"timeZone"`
	Days     []calendar.Day `json:"days"`
}

// handleCalendarWeek returns the seven-day projection of the current week.
// An optional ?date=YYYY-MM-DD selects the week containing that date.
func (s *Server) handleCalendarWeek(w http.ResponseWriter, r *http.Request) {
	sess, err := s.requireSession(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	svc, err := s.cfg.Calendars(r.Context(), sess.AccessToken)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	now := time.Now().In(s.cfg.Location)
	anchor := now
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, s.cfg.Location)
		if err != nil {
			writeError(w, s.logger, calendar.NewValidationError("invalid date: %s", raw))
			return
		}
		anchor = parsed
	}

	weekStart, weekEnd := calendar.WeekWindow(anchor)
	events, err := svc.ListEvents(r.Context(), weekStart, weekEnd)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, weekResponse{
		TimeZone: s.cfg.TimeZone,
		Days:     calendar.BuildDays(events, weekStart, now, s.cfg.Location),
	})
}

type createEventRequest struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`
	ColorID     string `json:"colorId"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	sess, err := s.requireSession(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, calendar.NewValidationError("invalid request body"))
		return
	}

	svc, err := s.cfg.Calendars(r.Context(), sess.AccessToken)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	created, err := svc.CreateEvent(r.Context(), calendar.EventInput{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		ColorID:     req.ColorID,
		Start:       req.Start,
		End:         req.End,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "eventId": created.ID})
}

type updateEventRequest struct {
	EventID     string  `json:"eventId"`
	Summary     *string `json:"summary"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	ColorID     *string `json:"colorId"`
	Start       *string `json:"start"`
	End         *string `json:"end"`
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	sess, err := s.requireSession(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, calendar.NewValidationError("invalid request body"))
		return
	}
	if req.EventID == "" {
		writeError(w, s.logger, calendar.NewValidationError("eventId is required"))
		return
	}

	svc, err := s.cfg.Calendars(r.Context(), sess.AccessToken)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	updated, err := svc.UpdateEvent(r.Context(), req.EventID, calendar.EventPatch{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		ColorID:     req.ColorID,
		Start:       req.Start,
		End:         req.End,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "eventId": updated.ID})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	sess, err := s.requireSession(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	var req struct {
		EventID string `json:"eventId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, calendar.NewValidationError("invalid request body"))
		return
	}
	if req.EventID == "" {
		writeError(w, s.logger, calendar.NewValidationError("eventId is required"))
		return
	}

	svc, err := s.cfg.Calendars(r.Context(), sess.AccessToken)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	if err := svc.DeleteEvent(r.Context(), req.EventID); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
