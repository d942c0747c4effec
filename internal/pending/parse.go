package pending

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/vthunder/nova/internal/action"
)

const maxReplyLen = 20

var (
	affirmativeRe = regexp.MustCompile(`^(yes|yeah|yep|yup|correct|right|sure|ok|okay|do it|go ahead|please|confirm|y)$`)
	negativeRe    = regexp.MustCompile(`^(no|nope|nah|cancel|stop|don't|nevermind|never mind|n)$`)

	dateRe     = regexp.MustCompile(`(?i)(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?|(\w+day)|tomorrow|today`)
	clockRe    = regexp.MustCompile(`(?i)(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
	durationRe = regexp.MustCompile(`(?i)(\d+)\s*(hour|hr|minute|min|m)?s?`)
	isoDateRe  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	monthDayRe = regexp.MustCompile(`(?i)([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?`)
	numberRe   = regexp.MustCompile(`\d+`)
)

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// IsAffirmative reports a short literal yes
func IsAffirmative(text string) bool {
	s := normalize(text)
	return len(s) <= maxReplyLen && affirmativeRe.MatchString(s)
}

// IsNegative reports a short literal no
func IsNegative(text string) bool {
	s := normalize(text)
	return len(s) <= maxReplyLen && negativeRe.MatchString(s)
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// ParseDate finds a date in free text: M/D[/Y], a weekday name (the next
// occurrence, never today), "today" or "tomorrow". Returns YYYY-MM-DD.
func ParseDate(text string, now time.Time) (string, bool) {
	m := dateRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch strings.ToLower(m[0]) {
	case "today":
		return today.Format(dateLayout), true
	case "tomorrow":
		return today.AddDate(0, 0, 1).Format(dateLayout), true
	}

	if m[4] != "" {
		wd, ok := weekdays[strings.ToLower(m[4])]
		if !ok {
			return "", false
		}
		ahead := (int(wd) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead).Format(dateLayout), true
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year := today.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
	}
	return validDate(year, month, day, now.Location())
}

const dateLayout = "2006-01-02"

// WithoutDate removes the first date ParseDate would read, so the numbers
// in "10/20 at 3pm" are not mistaken for a time
func WithoutDate(text string) string {
	loc := dateRe.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + " " + text[loc[1]:]
}

// WithoutClock removes explicit times ("3pm", "14:30") so their digits are
// not read as a duration
func WithoutClock(text string) string {
	return clockRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := clockRe.FindStringSubmatch(m)
		if sub[2] != "" || sub[3] != "" {
			return " "
		}
		return m
	})
}

func validDate(year, month, day int, loc *time.Location) (string, bool) {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return "", false
	}
	return d.Format(dateLayout), true
}

// Clock is a parsed time of day
type Clock struct {
	Hour, Minute int
	// NeedsPeriod is set for a bare 6-11, which could be morning or evening
	NeedsPeriod bool
}

// HHMM formats the clock as 24-hour HH:MM
func (c Clock) HHMM() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Short formats the clock as H:MM without a period
func (c Clock) Short() string {
	return fmt.Sprintf("%d:%02d", c.Hour, c.Minute)
}

// ParseClock finds H[:MM][am|pm] in free text. A bare 1-5 is taken as PM;
// a bare 6-11 comes back with NeedsPeriod.
func ParseClock(text string) (Clock, bool) {
	var bare *Clock
	for _, m := range clockRe.FindAllStringSubmatch(text, -1) {
		c, ok := clockFrom(m)
		if !ok {
			continue
		}
		// an explicit "3pm" or "14:30" beats a stray number
		if m[2] != "" || m[3] != "" {
			return c, true
		}
		if bare == nil {
			bare = &c
		}
	}
	if bare == nil {
		return Clock{}, false
	}
	return *bare, true
}

func clockFrom(m []string) (Clock, bool) {
	h, _ := strconv.Atoi(m[1])
	min := 0
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
	}
	if h > 23 || min > 59 {
		return Clock{}, false
	}

	switch period := strings.ToLower(m[3]); {
	case period != "" && (h == 0 || h > 12):
		return Clock{}, false
	case period == "pm" && h < 12:
		h += 12
	case period == "am" && h == 12:
		h = 0
	case period == "" && h >= 1 && h <= 5:
		h += 12
	case period == "" && h >= 6 && h <= 11:
		return Clock{Hour: h, Minute: min, NeedsPeriod: true}, true
	}
	return Clock{Hour: h, Minute: min}, true
}

// ParsePeriod reads an AM/PM answer. "pm" wins when both appear.
func ParsePeriod(text string) (pm bool, ok bool) {
	s := strings.ReplaceAll(normalize(text), ".", "")
	am := false
	for _, word := range strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) {
		switch word {
		case "pm", "evening", "afternoon", "night", "tonight":
			return true, true
		case "am", "morning":
			am = true
		}
	}
	return false, am
}

// ApplyPeriod converts a 12-hour H:MM to 24-hour HH:MM
func ApplyPeriod(hm string, pm bool) (string, error) {
	var h, m int
	if _, err := fmt.Sscanf(hm, "%d:%d", &h, &m); err != nil {
		return "", fmt.Errorf("invalid time %q: %w", hm, err)
	}
	if pm && h < 12 {
		h += 12
	}
	if !pm && h == 12 {
		h = 0
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// ParseDuration reads a length in minutes: "90 minutes", "2 hours", "1hr".
// A bare number up to 4 is taken as hours.
func ParseDuration(text string) (int, bool) {
	s := normalize(text)
	if all := durationRe.FindAllStringSubmatch(s, -1); all != nil {
		m := all[0]
		for _, c := range all {
			if c[2] != "" {
				m = c
				break
			}
		}
		n, _ := strconv.Atoi(m[1])
		unit := m[2]
		switch {
		case strings.HasPrefix(unit, "hour") || unit == "hr":
			n *= 60
		case unit == "" && n <= 4:
			n *= 60
		}
		if n <= 0 {
			return 0, false
		}
		return n, true
	}
	switch {
	case strings.Contains(s, "half an hour"), strings.Contains(s, "half hour"):
		return 30, true
	case strings.Contains(s, "an hour"), strings.Contains(s, "one hour"):
		return 60, true
	}
	return 0, false
}

// ParseScope reads whether a change applies to one occurrence or the series
func ParseScope(text string) (action.Scope, bool) {
	s := normalize(text)
	for _, phrase := range []string{"just this", "only this", "this one", "single", "this instance"} {
		if strings.Contains(s, phrase) {
			return action.ScopeSingle, true
		}
	}
	for _, phrase := range []string{"all", "every", "future", "series", "permanently"} {
		if strings.Contains(s, phrase) {
			return action.ScopeAll, true
		}
	}
	return "", false
}

// RecurrenceEnd is a parsed answer to "when should this end?"
type RecurrenceEnd struct {
	Until      string // YYYY-MM-DD
	Indefinite bool
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January, "february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March, "april": time.April, "apr": time.April,
	"may": time.May, "june": time.June, "jun": time.June, "july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August, "september": time.September, "sep": time.September,
	"sept": time.September, "october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November, "december": time.December, "dec": time.December,
}

// ParseRecurrenceEnd reads an end date for a series: "indefinitely", an
// ISO date, "December 31[, 2026]", "3 months", "1 year" or "end of semester"
func ParseRecurrenceEnd(text string, now time.Time) (RecurrenceEnd, bool) {
	s := normalize(text)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(s, "indefinite"), strings.Contains(s, "forever"), strings.Contains(s, "no end"), strings.Contains(s, "never"):
		return RecurrenceEnd{Indefinite: true}, true
	case strings.Contains(s, "end of semester"), strings.Contains(s, "end of term"):
		return RecurrenceEnd{Until: semesterEnd(today).Format(dateLayout)}, true
	case strings.Contains(s, "month"):
		return RecurrenceEnd{Until: today.AddDate(0, leadingCount(s), 0).Format(dateLayout)}, true
	case strings.Contains(s, "year"):
		return RecurrenceEnd{Until: today.AddDate(leadingCount(s), 0, 0).Format(dateLayout)}, true
	}

	if iso := isoDateRe.FindString(s); iso != "" {
		if _, err := time.ParseInLocation(dateLayout, iso, now.Location()); err == nil {
			return RecurrenceEnd{Until: iso}, true
		}
	}
	for _, m := range monthDayRe.FindAllStringSubmatch(s, -1) {
		month, ok := months[m[1]]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[2])
		year := today.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		date, ok := validDate(year, int(month), day, now.Location())
		if !ok {
			continue
		}
		// "March 1" said in October means next March
		if m[3] == "" && date < today.Format(dateLayout) {
			date, _ = validDate(year+1, int(month), day, now.Location())
		}
		return RecurrenceEnd{Until: date}, true
	}
	if date, ok := ParseDate(text, now); ok {
		return RecurrenceEnd{Until: date}, true
	}
	return RecurrenceEnd{}, false
}

func leadingCount(s string) int {
	if n, err := strconv.Atoi(numberRe.FindString(s)); err == nil && n > 0 {
		return n
	}
	return 1
}

// semesterEnd is May 15 for spring and December 15 for fall
func semesterEnd(today time.Time) time.Time {
	switch {
	case today.Month() < time.June:
		return time.Date(today.Year(), time.May, 15, 0, 0, 0, 0, today.Location())
	case today.Month() < time.December:
		return time.Date(today.Year(), time.December, 15, 0, 0, 0, 0, today.Location())
	default:
		return time.Date(today.Year()+1, time.May, 15, 0, 0, 0, 0, today.Location())
	}
}

// TaskTypeAnswer is the reading of a reply to "general or due?"
type TaskTypeAnswer int

const (
	AnswerUnknown TaskTypeAnswer = iota
	AnswerGeneral
	AnswerAskDate // "it has a deadline" without saying when
	AnswerDate
)

// ParseTaskType reads a reply to "is this general or does it have a due date?"
func ParseTaskType(text string, now time.Time) (TaskTypeAnswer, string) {
	s := normalize(text)
	for _, phrase := range []string{"general", "no due", "no deadline", "eventually"} {
		if strings.Contains(s, phrase) {
			return AnswerGeneral, ""
		}
	}
	if strings.Contains(s, "due") || strings.Contains(s, "deadline") {
		if date, ok := ParseDate(text, now); ok {
			return AnswerDate, date
		}
		return AnswerAskDate, ""
	}
	if date, ok := ParseDate(text, now); ok {
		return AnswerDate, date
	}
	return AnswerUnknown, ""
}
