package calendar

import (
	"time"
)

// isoDate is the layout for day keys.
const isoDate = "2006-01-02"

// WeekWindow returns the start of the week (Monday 00:00 in now's location)
// containing now, and the exclusive end seven days later.
func WeekWindow(now time.Time) (time.Time, time.Time) {
	// time.Weekday puts Sunday at 0; shift so Monday is the week start.
	offset := (int(now.Weekday()) + 6) % 7
	year, month, day := now.AddDate(0, 0, -offset).Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 7)
}

// BuildDays buckets events into seven Day projections starting at weekStart.
// An event lands on the day whose key equals its local date in loc; the
// provider's start-time ordering is preserved within each bucket. Events
// whose start cannot be interpreted are dropped from the projection.
func BuildDays(events []Event, weekStart, today time.Time, loc *time.Location) []Day {
	todayKey := today.In(loc).Format(isoDate)

	days := make([]Day, 0, 7)
	for i := 0; i < 7; i++ {
		date := weekStart.AddDate(0, 0, i)
		key := date.Format(isoDate)

		day := Day{
			Label:   DayLabel(date),
			Date:    key,
			IsToday: key == todayKey,
			Events:  []Event{},
		}
		for _, ev := range events {
			if ev.LocalDate(loc) == key {
				day.Events = append(day.Events, ev)
			}
		}
		days = append(days, day)
	}
	return days
}

// DayLabel formats the short weekday label shown in the calendar header,
// e.g. "Mon 27".
func DayLabel(t time.Time) string {
	return t.Format("Mon 2")
}

// LocalDate returns the event's date key in loc, or "" when the start value
// cannot be interpreted.
func (e Event) LocalDate(loc *time.Location) string {
	if e.Start == "" {
		return ""
	}
	if e.AllDay {
		return e.Start
	}
	if t, err := time.Parse(time.RFC3339, e.Start); err == nil {
		return t.In(loc).Format(isoDate)
	}
	// Providers may omit the offset on local timestamps.
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", e.Start, loc); err == nil {
		return t.Format(isoDate)
	}
	return ""
}
