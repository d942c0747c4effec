package calendar

import (
	"testing"
	"time"
)

func at(date, hhmm string) time.Time {
	t, err := ParseDateTime(date, hhmm, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func timed(summary, date, from, to string) Event {
	return Event{ID: summary, Summary: summary, Start: at(date, from), End: at(date, to)}
}

func TestFindConflicts(t *testing.T) {
	day := "2026-10-16"
	existing := []Event{
		timed("Standup", day, "09:00", "09:30"),
		timed("Lunch", day, "12:00", "13:00"),
		{ID: "holiday", Summary: "Founders Day", CalendarName: "Holidays in United States", Start: at(day, "13:00"), End: at(day, "14:00")},
		{ID: "allday", Summary: "Offsite", AllDay: true, Start: at(day, "00:00"), End: at("2026-10-17", "00:00")},
		timed("Tomorrow", "2026-10-17", "10:00", "11:00"),
	}

	tests := []struct {
		name    string
		start   string
		minutes int
		want    []string
	}{
		{"before everything", "07:00", 60, nil},
		{"after everything", "15:00", 60, nil},
		{"boundary touch after", "09:30", 30, nil},
		{"boundary touch before", "11:00", 60, nil},
		{"overlaps lunch", "12:30", 60, []string{"Lunch"}},
		{"contains standup", "08:45", 60, []string{"Standup"}},
		{"spans two", "09:15", 180, []string{"Standup", "Lunch"}},
		{"holiday and all-day ignored", "13:00", 60, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindConflicts(day, tt.start, tt.minutes, existing, time.UTC)
			if err != nil {
				t.Fatalf("FindConflicts: %v", err)
			}
			names := Summaries(got)
			if len(names) != len(tt.want) {
				t.Fatalf("conflicts = %v, want %v", names, tt.want)
			}
			for i := range tt.want {
				if names[i] != tt.want[i] {
					t.Errorf("conflict %d = %q, want %q", i, names[i], tt.want[i])
				}
			}
		})
	}
}

func TestFindConflictsBadInput(t *testing.T) {
	if _, err := FindConflicts("2026-10-16", "25:99", 60, nil, time.UTC); err == nil {
		t.Error("expected error for invalid time")
	}
}
