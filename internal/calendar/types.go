package calendar

// Event is the domain shape of a single calendar event.
//
// Start and End carry the provider's wire representation unchanged: an
// RFC 3339 timestamp for timed events, or a bare YYYY-MM-DD date for all-day
// events (AllDay is set in that case). The system never converts between the
// two forms; a bare date stays a bare date.
type Event struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	ColorID     string `json:"colorId,omitempty"`
	AllDay      bool   `json:"allDay,omitempty"`
}

// Day is a projection of the events whose local date equals the Date key.
// It is derived on every fetch and never persisted.
type Day struct {
	Label   string  `json:"label"`
	Date    string  `json:"date"`
	IsToday bool    `json:"isToday"`
	Events  []Event `json:"events"`
}

// EventInput is the input for creating a calendar event.
//
// Start and End are either local RFC 3339 timestamps without offset
// (e.g. "2026-01-28T15:00:00", the configured timezone is applied) or bare
// dates for all-day events. Summary and Start are required; a missing End
// defaults to Start, producing a zero-duration event.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	ColorID     string
	Start       string
	End         string
}

// EventPatch describes a partial update. Nil fields are left untouched on
// the provider side; an omitted field is never treated as a clear.
type EventPatch struct {
	Summary     *string
	Description *string
	Location    *string
	ColorID     *string
	Start       *string
	End         *string
}

// Empty reports whether the patch carries no changes.
func (p EventPatch) Empty() bool {
	return p.Summary == nil && p.Description == nil && p.Location == nil &&
		p.ColorID == nil && p.Start == nil && p.End == nil
}
