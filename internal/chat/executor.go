package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/dotion/internal/appcontrol"
	"github.com/teemow/dotion/internal/calendar"
	"github.com/teemow/dotion/internal/instrumentation"
	"github.com/teemow/dotion/internal/logging"
)

// Gateway is the calendar surface the executor needs. *calendar.Client
// satisfies it.
type Gateway interface {
	GetEvent(ctx context.Context, eventID string) (*calendar.Event, error)
	CreateEvent(ctx context.Context, input calendar.EventInput) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, eventID string, patch calendar.EventPatch) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// Result is the outcome of one executed tool call. Data is the card payload
// for the client (nil when the call failed or produces no card), Notice is a
// short inline confirmation or failure line for the transcript, and Mutated
// reports whether the call changed calendar state.
type Result struct {
	Call    CompletedCall
	Data    *ToolData
	Mutated bool
	Notice  string
	Err     error
}

// Executor runs completed tool calls against the calendar and the desktop.
type Executor struct {
	gateway Gateway
	apps    appcontrol.Controller
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewExecutor builds an executor. gateway may be nil when the session has no
// calendar access; calendar tools then fail individually instead of the
// whole turn failing.
func NewExecutor(gateway Gateway, apps appcontrol.Controller, logger *slog.Logger, metrics *instrumentation.Metrics) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if apps == nil {
		apps = appcontrol.New(false, logger)
	}
	return &Executor{gateway: gateway, apps: apps, logger: logger, metrics: metrics}
}

// Execute runs the calls strictly in order. A failing call is recorded in
// its result and execution continues with the next call; one bad call never
// takes its siblings down.
func (e *Executor) Execute(ctx context.Context, calls []CompletedCall) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		results = append(results, e.executeOne(ctx, call))
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, call CompletedCall) Result {
	res := Result{Call: call}
	logger := logging.WithTool(e.logger, call.Name)
	started := time.Now()

	if call.Err != nil {
		res.Err = call.Err
		res.Notice = fmt.Sprintf("✗ Could not run %s: invalid arguments", call.Name)
		logger.Warn("tool arguments rejected", logging.Err(call.Err))
		e.metrics.RecordToolInvocation(ctx, call.Name, logging.StatusError, time.Since(started))
		return res
	}

	var err error
	switch call.Name {
	case ToolChangeView:
		res.Data = e.changeView(call.Args)
	case ToolProposeSlot:
		res.Data, err = e.proposeSlots(call.Args)
	case ToolCreateEvent:
		err = e.createEvent(ctx, call.Args, &res)
	case ToolUpdateEvent:
		err = e.updateEvent(ctx, call.Args, &res)
	case ToolDeleteEvent:
		err = e.deleteEvent(ctx, call.Args, &res)
	case ToolManageApp:
		err = e.manageApp(ctx, call.Args, &res)
	default:
		err = fmt.Errorf("unknown tool %q", call.Name)
	}

	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
		res.Err = err
		if res.Notice == "" {
			res.Notice = fmt.Sprintf("✗ %s failed: %v", call.Name, err)
		}
		logger.Error("tool execution failed", logging.Err(err))
	} else {
		logger.Info("tool executed", logging.Status(status))
	}
	e.metrics.RecordToolInvocation(ctx, call.Name, status, time.Since(started))
	return res
}

func (e *Executor) changeView(args map[string]any) *ToolData {
	return &ToolData{
		Type:      ToolDataViewUpdate,
		Date:      stringArg(args, "date"),
		ViewMode:  intArg(args, "viewMode"),
		ZoomLevel: floatArg(args, "zoomLevel"),
	}
}

func (e *Executor) proposeSlots(args map[string]any) (*ToolData, error) {
	raw, ok := args["slots"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("slots array is required")
	}
	slots := make([]Slot, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		slot := Slot{
			Start: stringArg(obj, "start"),
			End:   stringArg(obj, "end"),
			Label: stringArg(obj, "label"),
		}
		if slot.Start == "" || slot.End == "" {
			return nil, fmt.Errorf("each slot needs start and end")
		}
		slots = append(slots, slot)
	}
	return &ToolData{Type: ToolDataSlots, Slots: slots}, nil
}

func (e *Executor) createEvent(ctx context.Context, args map[string]any, res *Result) error {
	if e.gateway == nil {
		return calendar.NewValidationError("calendar is not connected")
	}
	input := calendar.EventInput{
		Summary:     stringArg(args, "summary"),
		Description: stringArg(args, "description"),
		Location:    stringArg(args, "location"),
		ColorID:     stringArg(args, "colorId"),
		Start:       stringArg(args, "start"),
		End:         stringArg(args, "end"),
	}
	created, err := e.gateway.CreateEvent(ctx, input)
	if err != nil {
		res.Notice = fmt.Sprintf("✗ Could not create %q: %v", input.Summary, err)
		return err
	}
	res.Mutated = true
	res.Notice = fmt.Sprintf("✓ Created %q", created.Summary)
	res.Data = &ToolData{
		Type:     ToolDataCreate,
		EventID:  created.ID,
		Summary:  created.Summary,
		Start:    created.Start,
		End:      created.End,
		Location: created.Location,
	}
	return nil
}

func (e *Executor) updateEvent(ctx context.Context, args map[string]any, res *Result) error {
	if e.gateway == nil {
		return calendar.NewValidationError("calendar is not connected")
	}
	eventID := stringArg(args, "eventId")
	if eventID == "" {
		return calendar.NewValidationError("eventId is required")
	}

	// Snapshot before mutating so the client can offer an undo.
	original, err := e.gateway.GetEvent(ctx, eventID)
	if err != nil {
		res.Notice = fmt.Sprintf("✗ Could not update event: %v", err)
		return err
	}

	patch := calendar.EventPatch{
		Summary:     optStringArg(args, "summary"),
		Description: optStringArg(args, "description"),
		Location:    optStringArg(args, "location"),
		ColorID:     optStringArg(args, "colorId"),
		Start:       optStringArg(args, "start"),
		End:         optStringArg(args, "end"),
	}
	updated, err := e.gateway.UpdateEvent(ctx, eventID, patch)
	if err != nil {
		res.Notice = fmt.Sprintf("✗ Could not update %q: %v", original.Summary, err)
		return err
	}
	res.Mutated = true
	res.Notice = fmt.Sprintf("✓ Updated %q", updated.Summary)
	res.Data = &ToolData{
		Type:          ToolDataUpdate,
		EventID:       updated.ID,
		Summary:       updated.Summary,
		Start:         updated.Start,
		End:           updated.End,
		Location:      updated.Location,
		OriginalEvent: original,
	}
	return nil
}

func (e *Executor) deleteEvent(ctx context.Context, args map[string]any, res *Result) error {
	if e.gateway == nil {
		return calendar.NewValidationError("calendar is not connected")
	}
	eventID := stringArg(args, "eventId")
	if eventID == "" {
		return calendar.NewValidationError("eventId is required")
	}

	original, err := e.gateway.GetEvent(ctx, eventID)
	if err != nil {
		res.Notice = fmt.Sprintf("✗ Could not delete event: %v", err)
		return err
	}
	if err := e.gateway.DeleteEvent(ctx, eventID); err != nil {
		res.Notice = fmt.Sprintf("✗ Could not delete %q: %v", original.Summary, err)
		return err
	}
	res.Mutated = true
	res.Notice = fmt.Sprintf("✓ Deleted %q", original.Summary)
	res.Data = &ToolData{
		Type:          ToolDataDelete,
		EventID:       original.ID,
		Summary:       original.Summary,
		Start:         original.Start,
		End:           original.End,
		Location:      original.Location,
		OriginalEvent: original,
	}
	return nil
}

func (e *Executor) manageApp(ctx context.Context, args map[string]any, res *Result) error {
	action := stringArg(args, "action")
	app := stringArg(args, "appName")

	if action == "list_running" {
		running, err := e.apps.ListRunning(ctx)
		if err != nil {
			res.Notice = fmt.Sprintf("✗ Could not list running apps: %v", err)
			return err
		}
		res.Notice = fmt.Sprintf("✓ Found %d running apps", len(running))
		res.Data = &ToolData{Type: ToolDataManageApp, Action: action, RunningApps: running}
		return nil
	}

	parsed, err := appcontrol.ParseAction(action)
	if err != nil {
		return err
	}
	if app == "" {
		return fmt.Errorf("appName is required for action %q", action)
	}
	if err := appcontrol.Do(ctx, e.apps, parsed, app); err != nil {
		res.Notice = fmt.Sprintf("✗ Could not %s %s: %v", action, app, err)
		return err
	}
	res.Notice = fmt.Sprintf("✓ %s: %s", action, app)
	res.Data = &ToolData{Type: ToolDataManageApp, App: app, Action: action}
	return nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// optStringArg distinguishes an absent key from an empty value so a partial
// update never clears fields the model left out.
func optStringArg(args map[string]any, key string) *string {
	raw, ok := args[key]
	if !ok {
		return nil
	}
	v, ok := raw.(string)
	if !ok {
		return nil
	}
	return &v
}

func intArg(args map[string]any, key string) int {
	v, _ := args[key].(float64)
	return int(v)
}

func floatArg(args map[string]any, key string) float64 {
	v, _ := args[key].(float64)
	return v
}
