package tasks

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

var (
	typeTag     = regexp.MustCompile(`\[TYPE:(general|due)\]`)
	priorityTag = regexp.MustCompile(`\[PRIORITY:(urgent|high|medium|low)\]`)
	timeTag     = regexp.MustCompile(`\[TIME:([^\]]+)\]`)
)

// Notes is the structured content of a task's notes field
type Notes struct {
	Type        Type
	Priority    string
	Time        string
	Description string
}

// ParseNotes extracts the tags from a notes string. Missing tags default to
// type due and priority medium.
func ParseNotes(notes string) Notes {
	n := Notes{Type: Due, Priority: PriorityMedium}
	if m := typeTag.FindStringSubmatch(notes); m != nil {
		n.Type = Type(m[1])
	}
	if m := priorityTag.FindStringSubmatch(notes); m != nil {
		n.Priority = m[1]
	}
	if m := timeTag.FindStringSubmatch(notes); m != nil {
		n.Time = m[1]
	}
	rest := typeTag.ReplaceAllString(notes, "")
	rest = priorityTag.ReplaceAllString(rest, "")
	rest = timeTag.ReplaceAllString(rest, "")
	n.Description = strings.TrimSpace(rest)
	return n
}

// String renders the notes back into tag form; empty fields are omitted
func (n Notes) String() string {
	var b strings.Builder
	if n.Type != "" {
		b.WriteString("[TYPE:" + string(n.Type) + "]")
	}
	if n.Priority != "" {
		b.WriteString("[PRIORITY:" + n.Priority + "]")
	}
	if n.Time != "" {
		b.WriteString("[TIME:" + n.Time + "]")
	}
	b.WriteString(n.Description)
	return b.String()
}

// DaysUntilDue returns whole days from today to the due date
func DaysUntilDue(t Task, today time.Time) (int, bool) {
	if t.Due == "" {
		return 0, false
	}
	due, err := time.ParseInLocation("2006-01-02", t.Due, today.Location())
	if err != nil {
		return 0, false
	}
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	return int(math.Round(due.Sub(start).Hours() / 24)), true
}

// Urgency returns the label shown next to a task ("Overdue", "Due today", ...)
func Urgency(t Task, today time.Time) string {
	meta := t.Meta()
	if meta.Priority == PriorityUrgent {
		return "Urgent"
	}
	if meta.Type == General {
		return "General"
	}
	days, ok := DaysUntilDue(t, today)
	switch {
	case !ok:
		return "No due date"
	case days < 0:
		return "Overdue"
	case days == 0:
		return "Due today"
	case days == 1:
		return "Due tomorrow"
	default:
		return fmt.Sprintf("Due in %d days", days)
	}
}
