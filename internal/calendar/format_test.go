package calendar

import (
	"testing"
	"time"
)

func TestFormatTime12h(t *testing.T) {
	tests := map[string]string{
		"00:00": "12:00 AM",
		"09:05": "9:05 AM",
		"12:00": "12:00 PM",
		"13:00": "1:00 PM",
		"21:30": "9:30 PM",
		"bad":   "bad",
	}
	for in, want := range tests {
		if got := FormatTime12h(in); got != want {
			t.Errorf("FormatTime12h(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[int]string{
		15:  "15m",
		45:  "45m",
		60:  "1h",
		90:  "1h 30m",
		120: "2h",
	}
	for in, want := range tests {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "Friday, October 16, 2026" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatShortDate(d); got != "Oct 16" {
		t.Errorf("FormatShortDate = %q", got)
	}
}

func TestEventHelpers(t *testing.T) {
	instance := Event{ID: "abc123_20261016T170000Z", Recurrence: nil}
	if instance.SeriesID() != "abc123" {
		t.Errorf("SeriesID from instance id = %q", instance.SeriesID())
	}
	if instance.IsRecurring() {
		t.Error("instance without recurringEventId or recurrence should not be recurring")
	}

	linked := Event{ID: "x_1", RecurringEventID: "series"}
	if linked.SeriesID() != "series" || !linked.IsRecurring() {
		t.Errorf("linked instance: series=%q recurring=%v", linked.SeriesID(), linked.IsRecurring())
	}

	canvas := Event{CalendarName: "Canvas - Instructure", AllDay: true}
	if !canvas.IsCanvas() || !canvas.IsCanvasAllDay() {
		t.Error("expected canvas all-day event")
	}
	holiday := Event{CalendarName: "Holidays in United States"}
	if !holiday.IsHoliday() {
		t.Error("expected holiday event")
	}
}
