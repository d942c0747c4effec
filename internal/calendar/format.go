package calendar

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Clock formats t as "3:04 PM"
func Clock(t time.Time) string {
	return t.Format("3:04 PM")
}

// FormatTime12h converts "HH:MM" to "h:mm AM/PM". Invalid input is returned unchanged.
func FormatTime12h(hhmm string) string {
	t, err := time.Parse(ClockLayout, hhmm)
	if err != nil {
		return hhmm
	}
	return Clock(t)
}

// FormatDuration renders minutes as "45m", "1h" or "1h 30m"
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h, m := minutes/60, minutes%60
	if m > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dh", h)
}

// FormatDate renders a long date: "Friday, October 16, 2026"
func FormatDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

// FormatShortDate renders "Oct 16"
func FormatShortDate(t time.Time) string {
	return t.Format("Jan 2")
}

// ParseDate parses a YYYY-MM-DD date at midnight in loc
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// ParseDateTime combines a YYYY-MM-DD date and an HH:MM time in loc
func ParseDateTime(date, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+hhmm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, hhmm, err)
	}
	return t, nil
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
