package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/vthunder/nova/internal/action"
	"github.com/vthunder/nova/internal/calendar"
	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/pending"
	"github.com/vthunder/nova/internal/session"
)

const (
	clearDayPreview = 5
	endDatePrompt   = `When should this recurring event end? (e.g., "end of semester", "December 31", "3 months", or "indefinitely")`
	scopeEditPrompt = "Do you want to change just this instance, or all future occurrences?"
	scopeDelPrompt  = "Do you want to delete just this instance, or all future occurrences?"
)

func newEvent(d action.EventDetails) calendar.NewEvent {
	minutes := int(d.Duration)
	if minutes <= 0 {
		minutes = defaultDuration
	}
	return calendar.NewEvent{
		Title:       d.Title,
		Date:        d.Date,
		StartTime:   d.StartTime,
		Duration:    minutes,
		Location:    d.Location,
		Description: d.Description,
	}
}

func eventChanges(u action.EventUpdates) calendar.Changes {
	return calendar.Changes{
		Title:       u.Title,
		Date:        u.Date,
		StartTime:   u.StartTime,
		Duration:    int(u.Duration),
		Location:    u.Location,
		Description: u.Description,
	}
}

// conflicts lists events overlapping d. Conflict detection is advisory: a
// failed lookup is logged and treated as no conflict.
func (e *Engine) conflicts(ctx context.Context, d action.EventDetails) []calendar.Event {
	found, err := e.cal.Conflicts(ctx, d.Date, d.StartTime, int(d.Duration))
	if err != nil {
		logging.Warn("engine", "conflict check for %q: %v", d.Title, err)
		return nil
	}
	return found
}

// schedule finishes an event being built through clarification: it asks for
// anything still missing, stops at conflicts, and otherwise creates the
// event. done renders the success message.
func (e *Engine) schedule(ctx context.Context, sess *session.Session, d action.EventDetails, done func(action.EventDetails) string) Result {
	var missing []string
	if d.Date == "" {
		missing = append(missing, "date")
	}
	if d.StartTime == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		e.setPending(sess, pending.MissingInfo{Details: d, Missing: missing})
		return ask(fmt.Sprintf("I still need the %s. Please provide.", strings.Join(missing, ", ")))
	}
	if d.Duration <= 0 {
		d.Duration = defaultDuration
	}

	if found := e.conflicts(ctx, d); len(found) > 0 {
		e.setPending(sess, pending.ConfirmConflict{Details: d})
		return ask(fmt.Sprintf("This conflicts with: %s. Schedule anyway?", strings.Join(calendar.Summaries(found), ", ")))
	}
	if _, err := e.cal.Create(ctx, newEvent(d)); err != nil {
		logging.Warn("engine", "create %q: %v", d.Title, err)
		return fail("Could not create event.")
	}
	return reply(done(d))
}

func (e *Engine) createEvent(ctx context.Context, sess *session.Session, a *action.CreateEvent) Result {
	d := a.EventDetails
	if d.Title == "" {
		e.setPending(sess, pending.EventName{Details: d})
		return ask("What should I call this event?")
	}
	if missing := pending.Missing(d); len(missing) > 0 && (d.Date == "" || d.StartTime == "") {
		e.setPending(sess, pending.MissingInfo{Details: d, Missing: missing})
		return ask(fmt.Sprintf("I still need the %s. Please provide.", strings.Join(missing, ", ")))
	}
	if d.Duration <= 0 {
		d.Duration = defaultDuration
	}

	if found := e.conflicts(ctx, d); len(found) > 0 {
		names := make([]string, len(found))
		for i, c := range found {
			names[i] = fmt.Sprintf("%s (%s)", c.Summary, strings.ReplaceAll(c.TimeRange(e.cal.Location()), " - ", "-"))
		}
		e.setPending(sess, pending.ConfirmConflict{Details: d})
		return ask(fmt.Sprintf("This conflicts with: %s. Do you want to schedule anyway?", strings.Join(names, ", ")))
	}

	if _, err := e.cal.Create(ctx, newEvent(d)); err != nil {
		logging.Warn("engine", "create %q: %v", d.Title, err)
		return fail("Could not create event.")
	}
	msg := fmt.Sprintf("Scheduled %q for %s at %s", d.Title, e.longDate(d.Date), calendar.FormatTime12h(d.StartTime))
	if d.Location != "" {
		msg += " at " + d.Location
	}
	return reply(orDefault(a.Response, msg+"."))
}

func (e *Engine) deleteEvent(ctx context.Context, sess *session.Session, a *action.DeleteEvent) Result {
	ev, sure, err := e.findEvent(ctx, a.EventTitle, a.Date)
	if err != nil {
		return lookupFailed(err, "Event not found.", "Could not delete event.")
	}
	if !sure {
		e.setPending(sess, pending.ConfirmEvent{Event: *ev, Operation: pending.OpDelete})
		return didYouMean(ev.Summary)
	}
	if err := e.cal.Delete(ctx, *ev); err != nil {
		logging.Warn("engine", "delete %q: %v", ev.Summary, err)
		return fail("Could not delete event.")
	}
	return reply(orDefault(a.Response, fmt.Sprintf("Deleted %q.", ev.Summary)))
}

func (e *Engine) updateEvent(ctx context.Context, sess *session.Session, a *action.UpdateEvent) Result {
	ev, sure, err := e.findEvent(ctx, a.EventTitle, a.Date)
	if err != nil {
		return lookupFailed(err, "Event not found.", "Could not update the event.")
	}
	if !sure {
		e.setPending(sess, pending.ConfirmEvent{Event: *ev, Operation: pending.OpUpdate, Updates: a.Updates})
		return didYouMean(ev.Summary)
	}
	if _, err := e.cal.Update(ctx, *ev, eventChanges(a.Updates)); err != nil {
		logging.Warn("engine", "update %q: %v", ev.Summary, err)
		return fail("Could not update the event.")
	}
	return reply(orDefault(a.Response, fmt.Sprintf("Updated %q.", ev.Summary)))
}

func (e *Engine) rescheduleEvent(ctx context.Context, sess *session.Session, a *action.RescheduleEvent) Result {
	shift := calendar.Shift{
		NewDate:      a.NewDate,
		NewStartTime: a.NewStartTime,
		NewDuration:  int(a.NewDuration),
		TimeShift:    int(a.TimeShift),
	}
	ev, sure, err := e.findEvent(ctx, a.EventTitle, a.Date)
	if err != nil {
		return lookupFailed(err, "Event not found.", "Could not reschedule the event.")
	}
	if !sure {
		e.setPending(sess, pending.ConfirmEvent{Event: *ev, Operation: pending.OpReschedule, Shift: shift})
		return didYouMean(ev.Summary)
	}
	msg, updated, ok := e.reschedule(ctx, *ev, shift)
	if !ok {
		return fail(msg)
	}
	sess.Context.Remember("event", updated.Summary, updated.Start.In(e.cal.Location()).Format(calendar.DateLayout))
	return reply(orDefault(a.Response, msg))
}

// reschedule moves ev and describes the move
func (e *Engine) reschedule(ctx context.Context, ev calendar.Event, shift calendar.Shift) (string, *calendar.Event, bool) {
	updated, err := e.cal.Reschedule(ctx, ev, shift)
	if err != nil {
		logging.Warn("engine", "reschedule %q: %v", ev.Summary, err)
		return "Could not reschedule the event.", nil, false
	}
	msg := fmt.Sprintf("Rescheduled %q", ev.Summary)
	if shift.NewStartTime != "" || shift.TimeShift != 0 {
		msg += " to " + calendar.Clock(updated.Start.In(e.cal.Location()))
	}
	if shift.NewDate != "" {
		msg += " on " + e.longDate(shift.NewDate)
	}
	return msg + ".", updated, true
}

func (e *Engine) clearDay(ctx context.Context, sess *session.Session, a *action.ClearDay) Result {
	date := e.dateOrToday(a.Date)
	events, err := e.cal.Clearable(ctx, date)
	if err != nil {
		logging.Warn("engine", "clear day %s: %v", date, err)
		return fail("Could not load your schedule.")
	}
	day := e.longDate(date)
	if len(events) == 0 {
		return reply(fmt.Sprintf("You have no events to clear on %s.", day))
	}

	if !a.Confirm {
		names := calendar.Summaries(events)
		preview := strings.Join(names[:min(len(names), clearDayPreview)], ", ")
		if extra := len(names) - clearDayPreview; extra > 0 {
			preview += fmt.Sprintf(" and %d more", extra)
		}
		e.setPending(sess, pending.ConfirmClearDay{Date: date, Count: len(events)})
		return ask(fmt.Sprintf("You have %d %s on %s: %s. Are you sure you want to clear them all?",
			len(events), plural(len(events), "event"), day, preview))
	}

	deleted := e.cal.DeleteEach(ctx, events)
	if len(deleted) == 0 {
		return fail("Could not clear your schedule.")
	}
	return reply(fmt.Sprintf("Cleared %d %s.", len(deleted), plural(len(deleted), "event")))
}

func recurrenceOf(spec action.RecurrenceSpec) calendar.Recurrence {
	return calendar.Recurrence{
		Frequency:  strings.ToLower(spec.Frequency),
		Interval:   spec.Interval,
		DaysOfWeek: spec.DaysOfWeek,
		Until:      spec.Until.Date,
	}
}

func frequencyText(r calendar.Recurrence) string {
	switch r.Frequency {
	case "daily":
		return "daily"
	case "weekly":
		if len(r.DaysOfWeek) > 0 {
			return "every " + strings.Join(r.DaysOfWeek, ", ")
		}
		return "every week"
	case "yearly":
		return "yearly"
	}
	return "monthly"
}

// createSeries creates a recurring event from details and a recurrence
func (e *Engine) createSeries(ctx context.Context, d action.EventDetails, r calendar.Recurrence) error {
	ne := newEvent(d)
	ne.Recurrence = &r
	_, err := e.cal.Create(ctx, ne)
	return err
}

func (e *Engine) createRecurringEvent(ctx context.Context, sess *session.Session, a *action.CreateRecurringEvent) Result {
	r := recurrenceOf(a.Recurrence)
	if !a.Recurrence.Until.Set {
		e.setPending(sess, pending.RecurringEndDate{Details: a.EventDetails, Recurrence: r})
		return ask(endDatePrompt)
	}
	if err := e.createSeries(ctx, a.EventDetails, r); err != nil {
		logging.Warn("engine", "create series %q: %v", a.Title, err)
		return fail("Could not create recurring event.")
	}
	return reply(fmt.Sprintf("Created recurring event %q (%s).", a.Title, frequencyText(r)))
}

func (e *Engine) editRecurringEvent(ctx context.Context, sess *session.Session, a *action.EditRecurringEvent) Result {
	ev, sure, err := e.findEvent(ctx, a.EventTitle, a.Date)
	if err != nil {
		return lookupFailed(err, "Event not found.", "Could not update event.")
	}
	if !sure {
		e.setPending(sess, pending.ConfirmEvent{Event: *ev, Operation: pending.OpUpdate, Updates: a.Updates})
		return didYouMean(ev.Summary)
	}
	if ev.IsRecurring() && a.EditScope == "" {
		e.setPending(sess, pending.RecurringScope{Event: *ev, Operation: pending.OpEdit, Updates: a.Updates})
		return ask(scopeEditPrompt)
	}
	if err := e.editScoped(ctx, *ev, a.EditScope == action.ScopeAll, a.Updates); err != nil {
		logging.Warn("engine", "edit %q: %v", ev.Summary, err)
		return fail("Could not update event.")
	}
	return reply(fmt.Sprintf("Updated %q.", ev.Summary))
}

func (e *Engine) editScoped(ctx context.Context, ev calendar.Event, all bool, u action.EventUpdates) error {
	var err error
	if ev.IsRecurring() {
		_, err = e.cal.EditSeries(ctx, ev, all, eventChanges(u))
	} else {
		_, err = e.cal.Update(ctx, ev, eventChanges(u))
	}
	return err
}

func (e *Engine) deleteScoped(ctx context.Context, ev calendar.Event, all bool) error {
	if all && ev.IsRecurring() {
		return e.cal.DeleteSeries(ctx, ev)
	}
	return e.cal.Delete(ctx, ev)
}

func (e *Engine) deleteRecurringEvent(ctx context.Context, sess *session.Session, a *action.DeleteRecurringEvent) Result {
	ev, sure, err := e.findEvent(ctx, a.EventTitle, a.Date)
	if err != nil {
		return lookupFailed(err, "Event not found.", "Could not delete event.")
	}
	if !sure {
		e.setPending(sess, pending.ConfirmEvent{Event: *ev, Operation: pending.OpDelete})
		return didYouMean(ev.Summary)
	}
	if ev.IsRecurring() && a.DeleteScope == "" {
		e.setPending(sess, pending.RecurringScope{Event: *ev, Operation: pending.OpDelete})
		return ask(scopeDelPrompt)
	}
	if err := e.deleteScoped(ctx, *ev, a.DeleteScope == action.ScopeAll); err != nil {
		logging.Warn("engine", "delete %q: %v", ev.Summary, err)
		return fail("Could not delete event.")
	}
	return reply(fmt.Sprintf("Deleted %q.", ev.Summary))
}

func (e *Engine) askRecurringScope(ctx context.Context, sess *session.Session, a *action.AskRecurringScope) Result {
	ev, sure, err := e.findEvent(ctx, a.EventTitle, a.Date)
	if err != nil {
		return lookupFailed(err, "Event not found.", "Could not find that event.")
	}
	op := pending.OpEdit
	if a.Operation == pending.OpDelete {
		op = pending.OpDelete
	}
	if !sure {
		if op == pending.OpDelete {
			e.setPending(sess, pending.ConfirmEvent{Event: *ev, Operation: pending.OpDelete})
		} else {
			e.setPending(sess, pending.ConfirmEvent{Event: *ev, Operation: pending.OpUpdate, Updates: a.Updates})
		}
		return didYouMean(ev.Summary)
	}
	if ev.IsRecurring() {
		e.setPending(sess, pending.RecurringScope{Event: *ev, Operation: op, Updates: a.Updates})
		return ask(orDefault(a.Response, scopeEditPrompt))
	}

	if op == pending.OpDelete {
		if err := e.cal.Delete(ctx, *ev); err != nil {
			logging.Warn("engine", "delete %q: %v", ev.Summary, err)
			return fail("Could not delete event.")
		}
		return reply(fmt.Sprintf("Deleted %q.", ev.Summary))
	}
	if _, err := e.cal.Update(ctx, *ev, eventChanges(a.Updates)); err != nil {
		logging.Warn("engine", "update %q: %v", ev.Summary, err)
		return fail("Could not update event.")
	}
	return reply(fmt.Sprintf("Updated %q.", ev.Summary))
}
