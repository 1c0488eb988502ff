package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/dotion/internal/instrumentation"
	"github.com/teemow/dotion/internal/logging"
)

// Client wraps the Google Calendar service for a single authenticated session.
// It holds no state beyond the service handle and the configured calendar and
// timezone; results are never cached across fetches.
type Client struct {
	svc        *calendar.Service
	calendarID string
	timeZone   string
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// ClientConfig holds the parameters for creating a Client.
type ClientConfig struct {
	// AccessToken is the session's OAuth2 access token. Callers are expected
	// to have verified session validity; the client does not check expiry.
	AccessToken string

	// CalendarID identifies the calendar to operate on (e.g. "primary").
	CalendarID string

	// TimeZone is the single configured timezone identifier applied to all
	// timed events. Timestamps are never sent with a UTC suffix.
	TimeZone string

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// NewClient creates a Calendar client authenticated with the given access token.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("access token cannot be empty")
	}
	if cfg.CalendarID == "" {
		return nil, fmt.Errorf("calendar ID cannot be empty")
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = "UTC"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	httpClient := oauth2.NewClient(ctx, tokenSource)

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:        svc,
		calendarID: cfg.CalendarID,
		timeZone:   cfg.TimeZone,
		logger:     logging.WithService(cfg.Logger, "calendar"),
		metrics:    cfg.Metrics,
	}, nil
}

// TimeZone returns the configured timezone identifier.
func (c *Client) TimeZone() string {
	return c.timeZone
}

// ListEvents lists events within a time range, ordered by start time with
// recurring events expanded.
func (c *Client) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	started := time.Now()

	res, err := c.svc.Events.List(c.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		TimeZone(c.timeZone).
		Context(ctx).
		Do()
	c.record(ctx, "list", started, err)
	if err != nil {
		return nil, &UpstreamError{Op: "list", Err: err}
	}

	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, fromAPIEvent(item))
	}
	return events, nil
}

// GetEvent retrieves a single event by ID. Used by the tool executor to take
// the undo snapshot before an update or delete.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	if eventID == "" {
		return nil, NewValidationError("eventId is required")
	}

	started := time.Now()
	item, err := c.svc.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	c.record(ctx, "get", started, err)
	if err != nil {
		return nil, &UpstreamError{Op: "get", Err: err}
	}

	ev := fromAPIEvent(item)
	return &ev, nil
}

// CreateEvent creates a new calendar event. Summary and Start are required.
// A missing End defaults to Start, yielding a zero-duration event; this is a
// deliberate choice so a single point in time still lands on the calendar.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (*Event, error) {
	if input.Summary == "" || input.Start == "" {
		return nil, NewValidationError("summary and start are required")
	}

	end := input.End
	if end == "" {
		end = input.Start
	}
	if err := checkRange(input.Start, end); err != nil {
		return nil, err
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		ColorId:     input.ColorID,
		Start:       c.eventTime(input.Start),
		End:         c.eventTime(end),
	}

	started := time.Now()
	created, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
	c.record(ctx, "create", started, err)
	if err != nil {
		return nil, &UpstreamError{Op: "create", Err: err}
	}

	c.logger.Info("event created", logging.EventID(created.Id))
	ev := fromAPIEvent(created)
	return &ev, nil
}

// UpdateEvent applies a partial update to an existing event. Only fields
// present in the patch are sent. If exactly one of start/end is supplied the
// other is filled from the event's current value, so the provider never sees
// an inverted or half-open range.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, patch EventPatch) (*Event, error) {
	if eventID == "" {
		return nil, NewValidationError("eventId is required")
	}

	started := time.Now()
	existing, err := c.svc.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	c.record(ctx, "get", started, err)
	if err != nil {
		return nil, &UpstreamError{Op: "get", Err: err}
	}

	// An empty patch has nothing to send; return the current state.
	if patch.Empty() {
		ev := fromAPIEvent(existing)
		return &ev, nil
	}

	update := &calendar.Event{}
	if patch.Summary != nil {
		update.Summary = *patch.Summary
	}
	if patch.Description != nil {
		update.Description = *patch.Description
	}
	if patch.Location != nil {
		update.Location = *patch.Location
	}
	if patch.ColorID != nil {
		update.ColorId = *patch.ColorID
	}

	if patch.Start != nil || patch.End != nil {
		start := rawEventTime(existing.Start)
		end := rawEventTime(existing.End)
		if patch.Start != nil {
			start = *patch.Start
		}
		if patch.End != nil {
			end = *patch.End
		}
		if err := checkRange(start, end); err != nil {
			return nil, err
		}
		update.Start = c.eventTime(start)
		update.End = c.eventTime(end)
	}

	started = time.Now()
	patched, err := c.svc.Events.Patch(c.calendarID, eventID, update).Context(ctx).Do()
	c.record(ctx, "update", started, err)
	if err != nil {
		return nil, &UpstreamError{Op: "update", Err: err}
	}

	c.logger.Info("event updated", logging.EventID(patched.Id))
	ev := fromAPIEvent(patched)
	return &ev, nil
}

// DeleteEvent removes an event from the calendar. Callers needing undo
// support must GetEvent first; deletion itself takes no snapshot.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return NewValidationError("eventId is required")
	}

	started := time.Now()
	err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	c.record(ctx, "delete", started, err)
	if err != nil {
		return &UpstreamError{Op: "delete", Err: err}
	}

	c.logger.Info("event deleted", logging.EventID(eventID))
	return nil
}

// eventTime builds the provider representation for a start or end value.
// Bare dates become all-day values; timestamps carry the configured timezone
// identifier and are never coerced the other way around.
func (c *Client) eventTime(value string) *calendar.EventDateTime {
	if isBareDate(value) {
		return &calendar.EventDateTime{Date: value}
	}
	return &calendar.EventDateTime{
		DateTime: value,
		TimeZone: c.timeZone,
	}
}

// record reports one provider operation to the metrics recorder.
func (c *Client) record(ctx context.Context, op string, started time.Time, err error) {
	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
		c.logger.Error("calendar operation failed", logging.Operation(op), logging.Err(err))
	}
	if c.metrics != nil {
		c.metrics.RecordCalendarOperation(ctx, op, status, time.Since(started))
	}
}

// isBareDate reports whether value is a date without a time component.
func isBareDate(value string) bool {
	return value != "" && !strings.Contains(value, "T")
}

// checkRange rejects a timed range whose end precedes its start. Values that
// do not parse as local timestamps are left for the provider to judge.
func checkRange(start, end string) error {
	const layout = "2006-01-02T15:04:05"
	if isBareDate(start) || isBareDate(end) {
		return nil
	}
	s, errS := time.Parse(layout, start)
	e, errE := time.Parse(layout, end)
	if errS != nil || errE != nil {
		return nil
	}
	if e.Before(s) {
		return NewValidationError("end must not precede start")
	}
	return nil
}

// rawEventTime extracts the wire value of a provider event time.
func rawEventTime(t *calendar.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// fromAPIEvent converts a Google Calendar event to the domain shape.
func fromAPIEvent(item *calendar.Event) Event {
	if item == nil {
		return Event{}
	}

	ev := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Location:    item.Location,
		Description: item.Description,
		ColorID:     item.ColorId,
	}
	if ev.Summary == "" {
		ev.Summary = "Untitled"
	}
	if ev.ColorID == "" {
		ev.ColorID = "0"
	}

	if item.Start != nil {
		if item.Start.DateTime != "" {
			ev.Start = item.Start.DateTime
		} else {
			ev.Start = item.Start.Date
			ev.AllDay = true
		}
	}
	if item.End != nil {
		if item.End.DateTime != "" {
			ev.End = item.End.DateTime
		} else {
			ev.End = item.End.Date
		}
	}
	return ev
}
