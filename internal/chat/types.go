package chat

import (
	"github.com/teemow/dotion/internal/calendar"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation log. Content of the trailing
// assistant message mutates while its stream is open and becomes immutable
// once the turn ends.
type Message struct {
	Role     string    `json:"role"`
	Content  string    `json:"content"`
	ToolData *ToolData `json:"toolData,omitempty"`
}

// ToolData kinds.
const (
	ToolDataCreate     = "create"
	ToolDataUpdate     = "update"
	ToolDataDelete     = "delete"
	ToolDataSlots      = "slots"
	ToolDataViewUpdate = "view_update"
	ToolDataManageApp  = "manage_app"
)

// Slot is one proposed time slot.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label,omitempty"`
}

// ToolData is the normalized result of one executed tool call, attached to
// exactly one message and rendered as a card by the client.
//
// Type selects the variant; only the fields belonging to that variant are
// populated. The event variants (create, update, delete) carry the echoed
// event fields, and update/delete additionally carry OriginalEvent, the
// pre-mutation snapshot that enables a compensating undo.
type ToolData struct {
	Type string `json:"type"`

	// Event variants
	EventID       string          `json:"eventId,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	Start         string          `json:"start,omitempty"`
	End           string          `json:"end,omitempty"`
	Location      string          `json:"location,omitempty"`
	OriginalEvent *calendar.Event `json:"originalEvent,omitempty"`

	// Slots variant
	Slots []Slot `json:"slots,omitempty"`

	// View update variant
	Date      string  `json:"date,omitempty"`
	ViewMode  int     `json:"viewMode,omitempty"`
	ZoomLevel float64 `json:"zoomLevel,omitempty"`

	// App control variant
	App         string   `json:"app,omitempty"`
	Action      string   `json:"action,omitempty"`
	RunningApps []string `json:"runningApps,omitempty"`
}
