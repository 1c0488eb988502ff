package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/dotion/internal/calendar"
)

type fakeGateway struct {
	events    map[string]*calendar.Event
	createErr error
	updateErr error
	deleteErr error
	deleted   []string
}

func newFakeGateway(events ...*calendar.Event) *fakeGateway {
	g := &fakeGateway{events: make(map[string]*calendar.Event)}
	for _, ev := range events {
		g.events[ev.ID] = ev
	}
	return g
}

func (g *fakeGateway) GetEvent(_ context.Context, id string) (*calendar.Event, error) {
	ev, ok := g.events[id]
	if !ok {
		return nil, &calendar.UpstreamError{Op: "get", Err: fmt.Errorf("event %s not found", id)}
	}
	copied := *ev
	return &copied, nil
}

func (g *fakeGateway) CreateEvent(_ context.Context, input calendar.EventInput) (*calendar.Event, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	end := input.End
	if end == "" {
		end = input.Start
	}
	ev := &calendar.Event{
		ID: "created-1", Summary: input.Summary,
		Start: input.Start, End: end, Location: input.Location,
	}
	g.events[ev.ID] = ev
	return ev, nil
}

func (g *fakeGateway) UpdateEvent(_ context.Context, id string, patch calendar.EventPatch) (*calendar.Event, error) {
	if g.updateErr != nil {
		return nil, g.updateErr
	}
	ev, ok := g.events[id]
	if !ok {
		return nil, &calendar.UpstreamError{Op: "update", Err: errors.New("not found")}
	}
	if patch.Summary != nil {
		ev.Summary = *patch.Summary
	}
	if patch.Start != nil {
		ev.Start = *patch.Start
	}
	if patch.End != nil {
		ev.End = *patch.End
	}
	return ev, nil
}

func (g *fakeGateway) DeleteEvent(_ context.Context, id string) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	if _, ok := g.events[id]; !ok {
		return &calendar.UpstreamError{Op: "delete", Err: errors.New("not found")}
	}
	delete(g.events, id)
	g.deleted = append(g.deleted, id)
	return nil
}

func call(name string, args map[string]any) CompletedCall {
	return CompletedCall{Name: name, Args: args}
}

func TestExecutorCreateEvent(t *testing.T) {
	gw := newFakeGateway()
	ex := NewExecutor(gw, nil, nil, nil)

	results := ex.Execute(context.Background(), []CompletedCall{
		call(ToolCreateEvent, map[string]any{
			"summary": "Standup", "start": "2026-02-02T09:00:00", "end": "2026-02-02T09:15:00",
		}),
	})

	require.Len(t, results, 1)
	res := results[0]
	require.NoError(t, res.Err)
	assert.True(t, res.Mutated)
	assert.Equal(t, `✓ Created "Standup"`, res.Notice)
	require.NotNil(t, res.Data)
	assert.Equal(t, ToolDataCreate, res.Data.Type)
	assert.Equal(t, "created-1", res.Data.EventID)
	assert.Nil(t, res.Data.OriginalEvent)
}

func TestExecutorUpdateSnapshotsOriginal(t *testing.T) {
	gw := newFakeGateway(&calendar.Event{
		ID: "ev1", Summary: "Gym", Start: "2026-02-02T18:00:00", End: "2026-02-02T19:00:00",
	})
	ex := NewExecutor(gw, nil, nil, nil)

	results := ex.Execute(context.Background(), []CompletedCall{
		call(ToolUpdateEvent, map[string]any{"eventId": "ev1", "end": "2026-02-02T19:30:00"}),
	})

	require.Len(t, results, 1)
	res := results[0]
	require.NoError(t, res.Err)
	assert.True(t, res.Mutated)
	require.NotNil(t, res.Data)
	assert.Equal(t, ToolDataUpdate, res.Data.Type)
	assert.Equal(t, "2026-02-02T19:30:00", res.Data.End)

	// The snapshot holds the pre-mutation state for undo.
	require.NotNil(t, res.Data.OriginalEvent)
	assert.Equal(t, "2026-02-02T19:00:00", res.Data.OriginalEvent.End)
}

func TestExecutorDeleteSnapshotsOriginal(t *testing.T) {
	gw := newFakeGateway(&calendar.Event{ID: "ev2", Summary: "Dentist", Start: "2026-02-03T10:00:00"})
	ex := NewExecutor(gw, nil, nil, nil)

	results := ex.Execute(context.Background(), []CompletedCall{
		call(ToolDeleteEvent, map[string]any{"eventId": "ev2"}),
	})

	require.Len(t, results, 1)
	res := results[0]
	require.NoError(t, res.Err)
	assert.True(t, res.Mutated)
	assert.Equal(t, []string{"ev2"}, gw.deleted)
	require.NotNil(t, res.Data)
	assert.Equal(t, ToolDataDelete, res.Data.Type)
	assert.Equal(t, "Dentist", res.Data.OriginalEvent.Summary)
}

func TestExecutorFailureDoesNotAbortSiblings(t *testing.T) {
	gw := newFakeGateway(&calendar.Event{ID: "keep", Summary: "Keep", Start: "2026-02-04T08:00:00"})
	ex := NewExecutor(gw, nil, nil, nil)

	results := ex.Execute(context.Background(), []CompletedCall{
		call(ToolDeleteEvent, map[string]any{"eventId": "missing"}),
		call(ToolChangeView, map[string]any{"date": "2026-02-04", "viewMode": float64(1)}),
	})

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.Contains(t, results[0].Notice, "✗")

	require.NoError(t, results[1].Err)
	require.NotNil(t, results[1].Data)
	assert.Equal(t, ToolDataViewUpdate, results[1].Data.Type)
	assert.Equal(t, "2026-02-04", results[1].Data.Date)
	assert.Equal(t, 1, results[1].Data.ViewMode)
}

func TestExecutorArgumentErrorSurfacesInline(t *testing.T) {
	ex := NewExecutor(newFakeGateway(), nil, nil, nil)

	results := ex.Execute(context.Background(), []CompletedCall{{
		Name: ToolProposeSlot,
		Err:  &ToolArgumentError{Tool: ToolProposeSlot, Err: errors.New("unexpected end of JSON input")},
	}})

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.Contains(t, results[0].Notice, "invalid arguments")
	assert.Nil(t, results[0].Data)
	assert.False(t, results[0].Mutated)
}

func TestExecutorProposeSlots(t *testing.T) {
	ex := NewExecutor(newFakeGateway(), nil, nil, nil)

	results := ex.Execute(context.Background(), []CompletedCall{
		call(ToolProposeSlot, map[string]any{
			"slots": []any{
				map[string]any{"start": "2026-02-05T14:00:00", "end": "2026-02-05T15:00:00", "label": "After lunch"},
				map[string]any{"start": "2026-02-05T16:00:00", "end": "2026-02-05T17:00:00"},
			},
		}),
	})

	require.Len(t, results, 1)
	res := results[0]
	require.NoError(t, res.Err)
	assert.False(t, res.Mutated)
	require.NotNil(t, res.Data)
	assert.Equal(t, ToolDataSlots, res.Data.Type)
	require.Len(t, res.Data.Slots, 2)
	assert.Equal(t, "After lunch", res.Data.Slots[0].Label)
}

func TestExecutorMissingEventID(t *testing.T) {
	ex := NewExecutor(newFakeGateway(), nil, nil, nil)

	for _, tool := range []string{ToolUpdateEvent, ToolDeleteEvent} {
		results := ex.Execute(context.Background(), []CompletedCall{call(tool, map[string]any{})})
		require.Len(t, results, 1)
		require.Error(t, results[0].Err)
		assert.True(t, calendar.IsValidation(results[0].Err), "tool %s", tool)
	}
}

func TestExecutorWithoutGateway(t *testing.T) {
	ex := NewExecutor(nil, nil, nil, nil)

	results := ex.Execute(context.Background(), []CompletedCall{
		call(ToolCreateEvent, map[string]any{"summary": "X", "start": "2026-02-06"}),
		call(ToolChangeView, map[string]any{"date": "2026-02-06"}),
	})

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	// View changes never touch the calendar, so they work unauthenticated.
	assert.NoError(t, results[1].Err)
}

func TestExecutorUnknownTool(t *testing.T) {
	ex := NewExecutor(newFakeGateway(), nil, nil, nil)

	results := ex.Execute(context.Background(), []CompletedCall{call("format_disk", map[string]any{})})
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.Contains(t, results[0].Notice, "✗")
}

func TestExecutorManageAppUnsupportedPlatform(t *testing.T) {
	ex := NewExecutor(newFakeGateway(), nil, nil, nil)

	results := ex.Execute(context.Background(), []CompletedCall{
		call(ToolManageApp, map[string]any{"appName": "Safari", "action": "launch"}),
	})

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}
