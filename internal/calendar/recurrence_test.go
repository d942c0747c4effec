package calendar

import "testing"

func TestRecurrenceRule(t *testing.T) {
	tests := []struct {
		name string
		in   Recurrence
		want string
	}{
		{"daily", Recurrence{Frequency: "daily"}, "RRULE:FREQ=DAILY"},
		{"interval of one omitted", Recurrence{Frequency: "weekly", Interval: 1}, "RRULE:FREQ=WEEKLY"},
		{"every other week on days", Recurrence{Frequency: "weekly", Interval: 2, DaysOfWeek: []string{"mo", "WE"}}, "RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE"},
		{"until", Recurrence{Frequency: "monthly", Until: "2026-12-05"}, "RRULE:FREQ=MONTHLY;UNTIL=20261205T235959Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Rule()
			if err != nil {
				t.Fatalf("Rule: %v", err)
			}
			if got != tt.want {
				t.Errorf("Rule = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecurrenceRuleErrors(t *testing.T) {
	if _, err := (Recurrence{Frequency: "hourly"}).Rule(); err == nil {
		t.Error("expected error for unsupported frequency")
	}
	if _, err := (Recurrence{Frequency: "daily", Until: "soon"}).Rule(); err == nil {
		t.Error("expected error for bad until date")
	}
}
