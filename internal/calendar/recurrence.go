package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Recurrence describes a repeating event
type Recurrence struct {
	Frequency  string   `json:"frequency"`            // daily, weekly, monthly, yearly
	Interval   int      `json:"interval,omitempty"`   // every N periods
	DaysOfWeek []string `json:"daysOfWeek,omitempty"` // MO, TU, ...
	Until      string   `json:"until,omitempty"`      // YYYY-MM-DD, empty = indefinite
}

// Rule renders the recurrence as an RFC 5545 RRULE line
func (r Recurrence) Rule() (string, error) {
	freq := strings.ToUpper(strings.TrimSpace(r.Frequency))
	switch freq {
	case "DAILY", "WEEKLY", "MONTHLY", "YEARLY":
	default:
		return "", fmt.Errorf("unsupported frequency %q", r.Frequency)
	}

	var b strings.Builder
	b.WriteString("RRULE:FREQ=" + freq)
	if r.Interval > 1 {
		fmt.Fprintf(&b, ";INTERVAL=%d", r.Interval)
	}
	if len(r.DaysOfWeek) > 0 {
		days := make([]string, len(r.DaysOfWeek))
		for i, d := range r.DaysOfWeek {
			days[i] = strings.ToUpper(d)
		}
		b.WriteString(";BYDAY=" + strings.Join(days, ","))
	}
	if r.Until != "" {
		until, err := time.Parse(DateLayout, r.Until)
		if err != nil {
			return "", fmt.Errorf("invalid until date %q", r.Until)
		}
		b.WriteString(";UNTIL=" + until.Format("20060102") + "T235959Z")
	}
	return b.String(), nil
}
