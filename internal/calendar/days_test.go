package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekWindow(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name      string
		now       time.Time
		wantStart string
	}{
		{
			name:      "mid-week",
			now:       time.Date(2026, 1, 28, 15, 30, 0, 0, loc), // Wednesday
			wantStart: "2026-01-26",
		},
		{
			name:      "monday stays",
			now:       time.Date(2026, 1, 26, 0, 0, 1, 0, loc),
			wantStart: "2026-01-26",
		},
		{
			name:      "sunday belongs to preceding monday",
			now:       time.Date(2026, 2, 1, 23, 0, 0, 0, loc),
			wantStart: "2026-01-26",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := WeekWindow(tt.now)
			assert.Equal(t, tt.wantStart, start.Format(isoDate))
			assert.Equal(t, time.Monday, start.Weekday())
			assert.Equal(t, 0, start.Hour())
			assert.Equal(t, start.AddDate(0, 0, 7), end)
		})
	}
}

func TestBuildDays(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	now := time.Date(2026, 1, 28, 10, 0, 0, 0, loc) // Wednesday
	weekStart, _ := WeekWindow(now)

	events := []Event{
		{ID: "a", Summary: "Standup", Start: "2026-01-26T09:00:00+01:00"},
		{ID: "b", Summary: "Lunch", Start: "2026-01-28T12:00:00+01:00"},
		{ID: "c", Summary: "Dinner", Start: "2026-01-28T19:00:00+01:00"},
		{ID: "d", Summary: "Holiday", Start: "2026-01-30", AllDay: true},
		{ID: "e", Summary: "Garbage", Start: "not-a-time"},
	}

	days := BuildDays(events, weekStart, now, loc)
	require.Len(t, days, 7)

	assert.Equal(t, "Mon 26", days[0].Label)
	assert.Equal(t, "2026-01-26", days[0].Date)
	require.Len(t, days[0].Events, 1)
	assert.Equal(t, "a", days[0].Events[0].ID)

	wednesday := days[2]
	assert.Equal(t, "2026-01-28", wednesday.Date)
	assert.True(t, wednesday.IsToday)
	require.Len(t, wednesday.Events, 2)
	assert.Equal(t, "b", wednesday.Events[0].ID, "provider ordering is preserved")
	assert.Equal(t, "c", wednesday.Events[1].ID)

	friday := days[4]
	require.Len(t, friday.Events, 1)
	assert.Equal(t, "d", friday.Events[0].ID, "all-day events bucket by their bare date")

	for i, day := range days {
		assert.Equal(t, i == 2, day.IsToday)
		assert.NotNil(t, day.Events)
	}
}

func TestBuildDaysIdempotent(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 1, 28, 10, 0, 0, 0, loc)
	weekStart, _ := WeekWindow(now)

	events := []Event{
		{ID: "a", Start: "2026-01-27T09:00:00Z"},
		{ID: "b", Start: "2026-01-27T11:00:00Z"},
	}

	first := BuildDays(events, weekStart, now, loc)
	second := BuildDays(events, weekStart, now, loc)
	assert.Equal(t, first, second, "same inputs must yield an identical projection")
}

func TestLocalDate(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "offset timestamp converted to local date",
			event: Event{Start: "2026-01-28T23:30:00-05:00"},
			want:  "2026-01-29", // 05:30 next day in Berlin
		},
		{
			name:  "all-day keeps its bare date",
			event: Event{Start: "2026-01-28", AllDay: true},
			want:  "2026-01-28",
		},
		{
			name:  "offsetless local timestamp",
			event: Event{Start: "2026-01-28T09:00:00"},
			want:  "2026-01-28",
		},
		{
			name:  "unparseable start",
			event: Event{Start: "whenever"},
			want:  "",
		},
		{
			name:  "empty start",
			event: Event{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.LocalDate(berlin))
		})
	}
}
