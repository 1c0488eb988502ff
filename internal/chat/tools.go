package chat

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"
)

// Tool names as sent by the model.
const (
	ToolChangeView  = "change_view"
	ToolProposeSlot = "propose_slots"
	ToolCreateEvent = "create_calendar_event"
	ToolUpdateEvent = "update_calendar_event"
	ToolDeleteEvent = "delete_calendar_event"
	ToolManageApp   = "manage_app"
)

// Definitions returns the tool schemas advertised to the model. The set is
// static; callers must not mutate the returned slice.
func Definitions(appControl bool) []openai.Tool {
	tools := []openai.Tool{
		fn(ToolChangeView,
			"Change the calendar view shown to the user. Use when the user asks to look at a different day or week, or to zoom the schedule in or out.",
			`{
				"type": "object",
				"properties": {
					"date": {"type": "string", "description": "ISO date (YYYY-MM-DD) the view should center on"},
					"viewMode": {"type": "integer", "description": "Number of days to display, e.g. 1 for a day view or 7 for a week view"},
					"zoomLevel": {"type": "number", "description": "Vertical zoom factor for the schedule grid"}
				}
			}`),
		fn(ToolProposeSlot,
			"Propose free time slots for the user to pick from. Each slot needs a concrete start and end timestamp.",
			`{
				"type": "object",
				"properties": {
					"slots": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"start": {"type": "string", "description": "RFC3339 timestamp"},
								"end": {"type": "string", "description": "RFC3339 timestamp"},
								"label": {"type": "string", "description": "Short human label for the slot"}
							},
							"required": ["start", "end"]
						}
					}
				},
				"required": ["slots"]
			}`),
		fn(ToolCreateEvent,
			"Create a new event in the user's calendar.",
			`{
				"type": "object",
				"properties": {
					"summary": {"type": "string", "description": "Event title"},
					"start": {"type": "string", "description": "RFC3339 timestamp, or YYYY-MM-DD for an all-day event"},
					"end": {"type": "string", "description": "RFC3339 timestamp, or YYYY-MM-DD for an all-day event"},
					"location": {"type": "string"},
					"description": {"type": "string"},
					"colorId": {"type": "string", "description": "Google Calendar color id"}
				},
				"required": ["summary", "start"]
			}`),
		fn(ToolUpdateEvent,
			"Update fields of an existing calendar event. Only include the fields that change.",
			`{
				"type": "object",
				"properties": {
					"eventId": {"type": "string"},
					"summary": {"type": "string"},
					"start": {"type": "string"},
					"end": {"type": "string"},
					"location": {"type": "string"},
					"description": {"type": "string"},
					"colorId": {"type": "string"}
				},
				"required": ["eventId"]
			}`),
		fn(ToolDeleteEvent,
			"Delete an event from the user's calendar.",
			`{
				"type": "object",
				"properties": {
					"eventId": {"type": "string"}
				},
				"required": ["eventId"]
			}`),
	}

	if appControl {
		tools = append(tools, fn(ToolManageApp,
			"Control a desktop application on the user's machine.",
			`{
				"type": "object",
				"properties": {
					"appName": {"type": "string", "description": "Application name, e.g. Safari"},
					"action": {"type": "string", "enum": ["launch", "quit", "minimize", "focus", "list_running"]}
				},
				"required": ["action"]
			}`))
	}

	return tools
}

func fn(name, description, schema string) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  json.RawMessage(schema),
		},
	}
}
