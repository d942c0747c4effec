package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/resolve"
)

const (
	defaultDuration  = 60
	defaultStartTime = "09:00"
	workdayStart     = 9
	workdayEnd       = 18
	searchBack       = 7  // days before today searched when no date is given
	searchAhead      = 30 // days after today searched when no date is given
)

// ServiceConfig configures a Service
type ServiceConfig struct {
	Location    *time.Location
	Now         func() time.Time
	CallTimeout time.Duration // bound on each store call; 0 = no bound
}

// Service layers the assistant's calendar operations over a Store
type Service struct {
	store   Store
	loc     *time.Location
	now     func() time.Time
	timeout time.Duration
}

// NewService creates a calendar service
func NewService(store Store, cfg ServiceConfig) *Service {
	s := &Service{store: store, loc: cfg.Location, now: cfg.Now, timeout: cfg.CallTimeout}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Location returns the timezone used for dates and times
func (s *Service) Location() *time.Location { return s.loc }

// Now returns the current time in the service timezone
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// Today returns today's date as YYYY-MM-DD
func (s *Service) Today() string { return s.Now().Format(DateLayout) }

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// EventsBetween lists events overlapping [from, to)
func (s *Service) EventsBetween(ctx context.Context, from, to time.Time) ([]Event, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	events, err := s.store.ListEvents(ctx, ListEventsParams{TimeMin: from, TimeMax: to})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// EventsOn lists the events starting on date, holidays included
func (s *Service) EventsOn(ctx context.Context, date string) ([]Event, error) {
	day, err := ParseDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	events, err := s.EventsBetween(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	out := events[:0]
	for _, e := range events {
		if e.OnDate(date, s.loc) {
			out = append(out, e)
		}
	}
	return out, nil
}

func withoutHolidays(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if !e.IsHoliday() {
			out = append(out, e)
		}
	}
	return out
}

// FindEvent resolves a title against events on date, or against the
// window from a week ago to a month ahead when date is empty
func (s *Service) FindEvent(ctx context.Context, title, date string) (resolve.Match[Event], error) {
	var events []Event
	var err error
	if date != "" {
		events, err = s.EventsOn(ctx, date)
	} else {
		today := StartOfDay(s.Now())
		events, err = s.EventsBetween(ctx, today.AddDate(0, 0, -searchBack), today.AddDate(0, 0, searchAhead+1))
	}
	if err != nil {
		return resolve.Match[Event]{Confidence: resolve.None}, err
	}

	candidates := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Summary != "" && !e.IsCanvasAllDay() && !e.IsHoliday() {
			candidates = append(candidates, e)
		}
	}
	m := resolve.Resolve(title, candidates, func(e Event) string { return e.Summary })
	logging.Debug("calendar", "resolve %q on %q: %s (%d candidates)", title, date, m.Confidence, len(candidates))
	return m, nil
}

// Conflicts returns the events on date overlapping [startTime, startTime+minutes)
func (s *Service) Conflicts(ctx context.Context, date, startTime string, minutes int) ([]Event, error) {
	events, err := s.EventsOn(ctx, date)
	if err != nil {
		return nil, err
	}
	return FindConflicts(date, startTime, orDefault(minutes), events, s.loc)
}

// NewEvent is a timed event to create
type NewEvent struct {
	Title       string
	Date        string // YYYY-MM-DD
	StartTime   string // HH:MM
	Duration    int    // minutes, default 60
	Location    string
	Description string
	Recurrence  *Recurrence
}

// Create creates a timed event, optionally recurring
func (s *Service) Create(ctx context.Context, ne NewEvent) (*Event, error) {
	start, err := ParseDateTime(ne.Date, ne.StartTime, s.loc)
	if err != nil {
		return nil, err
	}
	params := CreateEventParams{
		Summary:     ne.Title,
		Description: ne.Description,
		Location:    ne.Location,
		Start:       start,
		End:         start.Add(time.Duration(orDefault(ne.Duration)) * time.Minute),
	}
	if ne.Recurrence != nil {
		rule, err := ne.Recurrence.Rule()
		if err != nil {
			return nil, err
		}
		params.Recurrence = []string{rule}
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	e, err := s.store.CreateEvent(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	logging.Debug("calendar", "created %q at %s", e.Summary, e.Start.Format(time.RFC3339))
	return e, nil
}

// Delete deletes a single event (or a single instance of a series)
func (s *Service) Delete(ctx context.Context, e Event) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.store.DeleteEvent(ctx, e.CalendarID, e.ID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	logging.Debug("calendar", "deleted %q", e.Summary)
	return nil
}

// DeleteSeries deletes every occurrence of the series e belongs to
func (s *Service) DeleteSeries(ctx context.Context, e Event) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.store.DeleteEvent(ctx, e.CalendarID, e.SeriesID()); err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	logging.Debug("calendar", "deleted series %q", e.Summary)
	return nil
}

// Changes lists updates to an event; zero values mean unchanged
type Changes struct {
	Title       string
	Date        string
	StartTime   string
	Duration    int
	Location    *string
	Description *string
}

func (c Changes) patch() EventPatch {
	var p EventPatch
	if c.Title != "" {
		title := c.Title
		p.Summary = &title
	}
	p.Location = c.Location
	p.Description = c.Description
	return p
}

// timeOf returns the event's local start date and clock, falling back for all-day events
func (s *Service) timeOf(e Event) (date, hhmm string, minutes int) {
	if e.AllDay || e.Start.IsZero() {
		return s.Today(), defaultStartTime, defaultDuration
	}
	start := e.Start.In(s.loc)
	minutes = e.Minutes()
	if minutes <= 0 {
		minutes = defaultDuration
	}
	return start.Format(DateLayout), start.Format(ClockLayout), minutes
}

func (s *Service) update(ctx context.Context, e Event, p EventPatch) (*Event, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	updated, err := s.store.UpdateEvent(ctx, e.CalendarID, e.ID, p)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (s *Service) retime(p *EventPatch, date, hhmm string, minutes int) error {
	start, err := ParseDateTime(date, hhmm, s.loc)
	if err != nil {
		return err
	}
	end := start.Add(time.Duration(minutes) * time.Minute)
	p.Start, p.End = &start, &end
	return nil
}

// Update changes the fields of an event. A new date or start time keeps the
// event's other coordinate and its duration unless Duration is set.
func (s *Service) Update(ctx context.Context, e Event, c Changes) (*Event, error) {
	p := c.patch()
	if c.Date != "" || c.StartTime != "" {
		date, hhmm, minutes := s.timeOf(e)
		if c.Date != "" {
			date = c.Date
		}
		if c.StartTime != "" {
			hhmm = c.StartTime
		}
		if c.Duration > 0 {
			minutes = c.Duration
		}
		if err := s.retime(&p, date, hhmm, minutes); err != nil {
			return nil, err
		}
	}
	return s.update(ctx, e, p)
}

// EditSeries updates one instance or, when all is set, the whole series.
// Only the time of day moves; each occurrence keeps its own date.
func (s *Service) EditSeries(ctx context.Context, e Event, all bool, c Changes) (*Event, error) {
	target := e
	if all {
		ctx2, cancel := s.bound(ctx)
		master, err := s.store.GetEvent(ctx2, e.CalendarID, e.SeriesID())
		cancel()
		if err != nil {
			return nil, fmt.Errorf("get series: %w", err)
		}
		target = *master
	}

	p := c.patch()
	if c.StartTime != "" {
		date, _, minutes := s.timeOf(target)
		if c.Duration > 0 {
			minutes = c.Duration
		}
		if err := s.retime(&p, date, c.StartTime, minutes); err != nil {
			return nil, err
		}
	}
	return s.update(ctx, target, p)
}

// Shift describes a reschedule: absolute date/time or a relative shift
type Shift struct {
	NewDate      string
	NewStartTime string
	NewDuration  int
	TimeShift    int // signed minutes applied to the current start
}

// Reschedule moves an event, preserving its duration unless NewDuration is set
func (s *Service) Reschedule(ctx context.Context, e Event, sh Shift) (*Event, error) {
	date, hhmm, minutes := s.timeOf(e)
	if sh.TimeShift != 0 && !e.AllDay {
		start := e.Start.In(s.loc).Add(time.Duration(sh.TimeShift) * time.Minute)
		date, hhmm = start.Format(DateLayout), start.Format(ClockLayout)
	}
	if sh.NewDate != "" {
		date = sh.NewDate
	}
	if sh.NewStartTime != "" {
		hhmm = sh.NewStartTime
	}
	if sh.NewDuration > 0 {
		minutes = sh.NewDuration
	}

	var p EventPatch
	if err := s.retime(&p, date, hhmm, minutes); err != nil {
		return nil, err
	}
	return s.update(ctx, e, p)
}

// Schedule describes the events on date
func (s *Service) Schedule(ctx context.Context, date string) (string, error) {
	day, err := ParseDate(date, s.loc)
	if err != nil {
		return "", err
	}
	events, err := s.EventsOn(ctx, date)
	if err != nil {
		return "", err
	}
	events = withoutHolidays(events)
	if len(events) == 0 {
		return fmt.Sprintf("You have no events scheduled for %s.", FormatDate(day)), nil
	}

	lines := make([]string, len(events))
	for i, e := range events {
		line := fmt.Sprintf("- %s (%s)", e.Summary, e.TimeRange(s.loc))
		if e.Location != "" {
			line += " at " + e.Location
		}
		lines[i] = line
	}
	return fmt.Sprintf("Here's your schedule for %s:\n\n%s", FormatDate(day), strings.Join(lines, "\n")), nil
}

// WeekSchedule describes the seven days starting at date, grouped by day
func (s *Service) WeekSchedule(ctx context.Context, date string) (string, error) {
	start, err := ParseDate(date, s.loc)
	if err != nil {
		return "", err
	}
	events, err := s.EventsBetween(ctx, start, start.AddDate(0, 0, 7))
	if err != nil {
		return "", err
	}
	events = withoutHolidays(events)
	if len(events) == 0 {
		return fmt.Sprintf("You have no events scheduled for the week starting %s.", FormatDate(start)), nil
	}

	byDay := map[string][]Event{}
	for _, e := range events {
		key := e.Start.In(s.loc).Format(DateLayout)
		if e.AllDay {
			key = e.Start.Format(DateLayout)
		}
		byDay[key] = append(byDay[key], e)
	}
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	var b strings.Builder
	fmt.Fprintf(&b, "Here's your week starting %s:\n", FormatDate(start))
	for _, d := range days {
		day, _ := ParseDate(d, s.loc)
		fmt.Fprintf(&b, "\n**%s:**\n", day.Format("Monday, Jan 2"))
		for _, e := range byDay[d] {
			when := "All day"
			if !e.AllDay {
				when = Clock(e.Start.In(s.loc))
			}
			fmt.Fprintf(&b, "  - %s (%s)\n", e.Summary, when)
		}
	}
	return b.String(), nil
}

// Availability reports whether [hhmm, hhmm+minutes) on date is free
func (s *Service) Availability(ctx context.Context, date, hhmm string, minutes int) (string, error) {
	minutes = orDefault(minutes)
	start, err := ParseDateTime(date, hhmm, s.loc)
	if err != nil {
		return "", err
	}
	conflicts, err := s.Conflicts(ctx, date, hhmm, minutes)
	if err != nil {
		return "", err
	}

	when := fmt.Sprintf("%s on %s", Clock(start), FormatDate(StartOfDay(start)))
	if len(conflicts) == 0 {
		return fmt.Sprintf("Yes, you're free at %s. You have %s available.", when, FormatDuration(minutes)), nil
	}
	busy := make([]string, len(conflicts))
	for i, e := range conflicts {
		busy[i] = fmt.Sprintf("%s (%s)", e.Summary, e.TimeRange(s.loc))
	}
	return fmt.Sprintf("No, you're not free at %s. You have: %s", when, strings.Join(busy, ", ")), nil
}

// Slot is a free interval
type Slot struct {
	Start, End time.Time
}

// Minutes returns the slot length in minutes
func (sl Slot) Minutes() int {
	return int(sl.End.Sub(sl.Start).Round(time.Minute) / time.Minute)
}

// FreeSlots finds gaps of at least minMinutes between 9 AM and 6 PM on date.
// For today the search starts at the next half hour.
func (s *Service) FreeSlots(ctx context.Context, date string, minMinutes int) ([]Slot, error) {
	day, err := ParseDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	events, err := s.EventsOn(ctx, date)
	if err != nil {
		return nil, err
	}

	dayStart := day.Add(workdayStart * time.Hour)
	dayEnd := day.Add(workdayEnd * time.Hour)
	cursor := dayStart
	if now := s.Now(); now.Format(DateLayout) == date && now.After(dayStart) {
		cursor = now.Truncate(time.Minute)
		if rem := cursor.Minute() % 30; rem != 0 {
			cursor = cursor.Add(time.Duration(30-rem) * time.Minute)
		}
	}

	var timed []Event
	for _, e := range events {
		if !e.AllDay && !e.IsHoliday() {
			timed = append(timed, e)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].Start.Before(timed[j].Start) })

	var slots []Slot
	for _, e := range timed {
		if e.Start.After(cursor) && !e.Start.After(dayEnd) {
			if gap := (Slot{cursor, e.Start}); gap.Minutes() >= minMinutes {
				slots = append(slots, gap)
			}
		}
		if e.End.After(cursor) {
			cursor = e.End
		}
	}
	if cursor.Before(dayEnd) {
		if gap := (Slot{cursor, dayEnd}); gap.Minutes() >= minMinutes {
			slots = append(slots, gap)
		}
	}
	return slots, nil
}

// FreeTime describes the free slots on date
func (s *Service) FreeTime(ctx context.Context, date string, minMinutes int) (string, error) {
	if minMinutes <= 0 {
		minMinutes = 30
	}
	slots, err := s.FreeSlots(ctx, date, minMinutes)
	if err != nil {
		return "", err
	}
	day, _ := ParseDate(date, s.loc)
	if len(slots) == 0 {
		return fmt.Sprintf("You don't have any free time slots of %s+ on %s (between 9 AM and 6 PM).",
			FormatDuration(minMinutes), FormatDate(day)), nil
	}
	lines := make([]string, len(slots))
	for i, sl := range slots {
		lines[i] = fmt.Sprintf("- %s - %s (%s)", Clock(sl.Start.In(s.loc)), Clock(sl.End.In(s.loc)), FormatDuration(sl.Minutes()))
	}
	return fmt.Sprintf("Here are your free time slots on %s:\n\n%s", FormatDate(day), strings.Join(lines, "\n")), nil
}

// Clearable returns the events on date that clear_day may delete.
// Canvas feeds and holidays are never cleared.
func (s *Service) Clearable(ctx context.Context, date string) ([]Event, error) {
	events, err := s.EventsOn(ctx, date)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, e := range events {
		if !e.IsCanvas() && !e.IsHoliday() {
			out = append(out, e)
		}
	}
	return out, nil
}

// DeleteEach deletes events one at a time and returns the titles that were deleted
func (s *Service) DeleteEach(ctx context.Context, events []Event) []string {
	var deleted []string
	for _, e := range events {
		if err := s.Delete(ctx, e); err != nil {
			logging.Warn("calendar", "clear: %v", err)
			continue
		}
		deleted = append(deleted, e.Summary)
	}
	return deleted
}

// Holidays returns the holiday names on date
func (s *Service) Holidays(ctx context.Context, date string) ([]string, error) {
	events, err := s.EventsOn(ctx, date)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range events {
		if e.IsHoliday() {
			names = append(names, e.Summary)
		}
	}
	return names, nil
}

// Upcoming returns up to limit non-holiday events in the next days
func (s *Service) Upcoming(ctx context.Context, days, limit int) ([]Event, error) {
	now := s.Now()
	events, err := s.EventsBetween(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}
	events = withoutHolidays(events)
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func orDefault(minutes int) int {
	if minutes <= 0 {
		return defaultDuration
	}
	return minutes
}
