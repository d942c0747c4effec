package calendar

import (
	"encoding/json"
	"strings"
	"time"
)

// Event represents a calendar event
type Event struct {
	ID               string    `json:"id"`
	CalendarID       string    `json:"calendar_id"`
	CalendarName     string    `json:"calendar_name,omitempty"`
	Summary          string    `json:"summary"`
	Description      string    `json:"description,omitempty"`
	Location         string    `json:"location,omitempty"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	AllDay           bool      `json:"all_day"`
	Status           string    `json:"status"` // confirmed, tentative, cancelled
	Recurrence       []string  `json:"recurrence,omitempty"`
	RecurringEventID string    `json:"recurring_event_id,omitempty"`
}

// IsRecurring reports whether the event is a series master or an instance of one
func (e *Event) IsRecurring() bool {
	return e.RecurringEventID != "" || len(e.Recurrence) > 0
}

// IsHoliday reports whether the event comes from a holiday calendar
func (e *Event) IsHoliday() bool {
	return strings.Contains(strings.ToLower(e.CalendarName), "holiday")
}

// IsCanvas reports whether the event comes from a Canvas (Instructure) feed
func (e *Event) IsCanvas() bool {
	name := strings.ToLower(e.CalendarName)
	return strings.Contains(name, "canvas") || strings.Contains(name, "instructure")
}

// IsCanvasAllDay reports whether the event is an all-day Canvas assignment marker
func (e *Event) IsCanvasAllDay() bool {
	return e.IsCanvas() && e.AllDay
}

// SeriesID returns the id of the recurring series this event belongs to.
// Instance ids have the form "<seriesID>_<timestamp>".
func (e *Event) SeriesID() string {
	if e.RecurringEventID != "" {
		return e.RecurringEventID
	}
	id, _, _ := strings.Cut(e.ID, "_")
	return id
}

// Duration returns the event duration
func (e *Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Minutes returns the event duration in whole minutes
func (e *Event) Minutes() int {
	return int(e.Duration().Round(time.Minute) / time.Minute)
}

// OnDate reports whether the event starts on the given YYYY-MM-DD date in loc
func (e *Event) OnDate(date string, loc *time.Location) bool {
	if e.AllDay {
		return e.Start.Format(DateLayout) == date
	}
	return e.Start.In(loc).Format(DateLayout) == date
}

// TimeRange returns "h:mm PM - h:mm PM" or "All day"
func (e *Event) TimeRange(loc *time.Location) string {
	if e.AllDay {
		return "All day"
	}
	return Clock(e.Start.In(loc)) + " - " + Clock(e.End.In(loc))
}

// ToJSON returns the event as a JSON string
func (e *Event) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// Summaries returns the titles of events, in order
func Summaries(events []Event) []string {
	out := make([]string, len(events))
	for i := range events {
		out[i] = events[i].Summary
	}
	return out
}
