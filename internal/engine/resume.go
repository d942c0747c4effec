package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vthunder/nova/internal/action"
	"github.com/vthunder/nova/internal/calendar"
	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/pending"
	"github.com/vthunder/nova/internal/session"
	"github.com/vthunder/nova/internal/tasks"
)

const (
	yesOrNo        = "Please reply yes or no."
	timePrompt     = `Please provide a time (e.g., "2pm", "14:00").`
	periodPrompt   = "Please specify AM or PM."
	durationPrompt = `Please specify a duration like "1 hour" or "30 minutes".`
	scopePrompt    = "Please specify: just this instance, or all future occurrences?"
	taskTypePrompt = `Please specify "general" for no due date, or tell me when it's due.`
	dueDatePrompt  = `Please specify a date (e.g., "Friday", "1/19", "tomorrow").`
	namePrompt     = "Please give me a more descriptive name for this event."
)

// spelledUnitRe matches a duration with its unit written out
var spelledUnitRe = regexp.MustCompile(`(?i)\d+\s*(hours?|hrs?|minutes?|mins?)\b|half an hour|an hour`)

// resume interprets text as the answer to p. p has already been detached
// from the session; anything that needs another answer sets it again.
func (e *Engine) resume(ctx context.Context, sess *session.Session, p pending.Action, text string) Result {
	switch p := p.(type) {
	case pending.TaskType:
		return e.resumeTaskType(ctx, sess, p, text)
	case pending.TaskDueDate:
		date, ok := pending.ParseDate(text, e.cal.Now())
		if !ok {
			return e.again(sess, p, dueDatePrompt)
		}
		return e.addTaskOf(ctx, tasks.NewTask{Title: p.Title, Type: tasks.Due, DueDate: date, Description: p.Description})
	case pending.ConfirmBulkDelete:
		yes, ok := e.decide(sess, p, text)
		if !ok {
			return ask(yesOrNo)
		}
		if !yes {
			return reply("Bulk delete cancelled.")
		}
		return e.deleteAllTasks(ctx)

	case pending.Time:
		c, ok := pending.ParseClock(text)
		if !ok {
			return e.again(sess, p, timePrompt)
		}
		d := p.Details
		if c.NeedsPeriod {
			return e.askPeriod(sess, c, d)
		}
		d.StartTime = c.HHMM()
		return e.schedule(ctx, sess, d, scheduledAt)
	case pending.AmPm:
		pm, ok := pending.ParsePeriod(text)
		if !ok {
			return e.again(sess, p, periodPrompt)
		}
		hm := p.Time
		if !strings.Contains(hm, ":") {
			hm += ":00"
		}
		hhmm, err := pending.ApplyPeriod(hm, pm)
		if err != nil {
			logging.Warn("engine", "ampm: %v", err)
			return e.again(sess, pending.Time{Details: p.Details}, timePrompt)
		}
		d := p.Details
		d.StartTime = hhmm
		return e.schedule(ctx, sess, d, scheduledAt)
	case pending.Duration:
		n, ok := pending.ParseDuration(text)
		if !ok {
			return e.again(sess, p, durationPrompt)
		}
		d := p.Details
		d.Duration = action.Minutes(n)
		return e.schedule(ctx, sess, d, func(d action.EventDetails) string {
			return withLocation(fmt.Sprintf("Scheduled %q for %s at %s",
				d.Title, calendar.FormatDuration(int(d.Duration)), calendar.FormatTime12h(d.StartTime)), d.Location) + "."
		})

	case pending.ConfirmTask:
		yes, ok := e.decide(sess, p, text)
		if !ok {
			return ask(yesOrNo)
		}
		if !yes {
			return reply("Cancelled.")
		}
		return e.applyTask(ctx, p.Task, p.Operation, p.Updates)
	case pending.ConfirmEvent:
		yes, ok := e.decide(sess, p, text)
		if !ok {
			return ask(yesOrNo)
		}
		if !yes {
			return reply("Cancelled.")
		}
		return e.applyEvent(ctx, sess, p)
	case pending.ConfirmConflict:
		yes, ok := e.decide(sess, p, text)
		if !ok {
			return ask(yesOrNo)
		}
		if !yes {
			return reply("Event not created.")
		}
		d := p.Details
		if _, err := e.cal.Create(ctx, newEvent(d)); err != nil {
			logging.Warn("engine", "create %q: %v", d.Title, err)
			return fail("Could not create event.")
		}
		return reply(withLocation(fmt.Sprintf("Scheduled %q at %s", d.Title, calendar.FormatTime12h(d.StartTime)), d.Location) +
			" (despite the conflict).")
	case pending.ConfirmClearDay:
		yes, ok := e.decide(sess, p, text)
		if !ok {
			return ask(yesOrNo)
		}
		if !yes {
			return reply("Schedule not cleared.")
		}
		return e.clearConfirmed(ctx, p.Date)

	case pending.RecurringEndDate:
		end, ok := pending.ParseRecurrenceEnd(text, e.cal.Now())
		if !ok {
			return e.again(sess, p, endDatePrompt)
		}
		r := p.Recurrence
		r.Until = end.Until
		if err := e.createSeries(ctx, p.Details, r); err != nil {
			logging.Warn("engine", "create series %q: %v", p.Details.Title, err)
			return fail("Could not create recurring event.")
		}
		if end.Indefinite {
			return reply(fmt.Sprintf("Created recurring event %q (repeating indefinitely).", p.Details.Title))
		}
		return reply(fmt.Sprintf("Created recurring event %q until %s.", p.Details.Title, e.longDate(end.Until)))
	case pending.RecurringScope:
		return e.resumeScope(ctx, sess, p, text)

	case pending.MissingInfo:
		return e.resumeMissing(ctx, sess, p, text)
	case pending.EventName:
		name := strings.TrimSpace(text)
		if utf8.RuneCountInString(name) < 2 {
			return e.again(sess, p, namePrompt)
		}
		d := p.Details
		d.Title = name
		if missing := unscheduled(d); len(missing) > 0 {
			e.setPending(sess, pending.MissingInfo{Details: d, Missing: missing})
			return ask(fmt.Sprintf("Got it, %q. Now I need the %s.", name, strings.Join(missing, ", ")))
		}
		return e.schedule(ctx, sess, d, func(d action.EventDetails) string {
			return withLocation(fmt.Sprintf("Scheduled %q for %s at %s",
				d.Title, e.longDate(d.Date), calendar.FormatTime12h(d.StartTime)), d.Location) + "."
		})
	}

	logging.Error("engine", "no interpreter for pending %T", p)
	return fail("Something went wrong. Please try again.")
}

// again puts p back and repeats the question
func (e *Engine) again(sess *session.Session, p pending.Action, prompt string) Result {
	e.setPending(sess, p)
	return ask(prompt)
}

// decide reads a yes or no. Anything else leaves p pending and ok false.
func (e *Engine) decide(sess *session.Session, p pending.Action, text string) (yes, ok bool) {
	switch {
	case pending.IsAffirmative(text):
		return true, true
	case pending.IsNegative(text):
		return false, true
	}
	e.setPending(sess, p)
	return false, false
}

func (e *Engine) askPeriod(sess *session.Session, c pending.Clock, d action.EventDetails) Result {
	label := strconv.Itoa(c.Hour)
	if c.Minute != 0 {
		label = c.Short()
	}
	e.setPending(sess, pending.AmPm{Time: c.Short(), Details: d})
	return ask(fmt.Sprintf("Is that %s AM or %s PM?", label, label))
}

func scheduledAt(d action.EventDetails) string {
	return fmt.Sprintf("Scheduled %s at %s.", d.Title, calendar.FormatTime12h(d.StartTime))
}

func withLocation(msg, location string) string {
	if location != "" {
		return msg + " at " + location
	}
	return msg
}

// unscheduled lists the fields an event cannot be created without
func unscheduled(d action.EventDetails) []string {
	var missing []string
	if d.Date == "" {
		missing = append(missing, "date")
	}
	if d.StartTime == "" {
		missing = append(missing, "time")
	}
	return missing
}

func (e *Engine) resumeTaskType(ctx context.Context, sess *session.Session, p pending.TaskType, text string) Result {
	answer, date := pending.ParseTaskType(text, e.cal.Now())
	switch answer {
	case pending.AnswerGeneral:
		return e.addTaskOf(ctx, tasks.NewTask{Title: p.Title, Type: tasks.General, Description: p.Description})
	case pending.AnswerAskDate:
		e.setPending(sess, pending.TaskDueDate{Title: p.Title, Description: p.Description})
		return ask("When is it due?")
	case pending.AnswerDate:
		return e.addTaskOf(ctx, tasks.NewTask{Title: p.Title, Type: tasks.Due, DueDate: date, Description: p.Description})
	}
	return e.again(sess, p, taskTypePrompt)
}

func (e *Engine) deleteAllTasks(ctx context.Context) Result {
	all, err := e.tasks.Matching(ctx, tasks.FilterAll)
	if err != nil {
		logging.Warn("engine", "bulk delete: %v", err)
		return fail("Could not delete tasks.")
	}
	n := e.tasks.DeleteEach(ctx, all)
	if n < len(all) {
		return Result{Message: fmt.Sprintf("Deleted %d of %d tasks.", n, len(all))}
	}
	return reply(fmt.Sprintf("Deleted all %d tasks.", n))
}

// applyEvent carries out a confirmed event operation
func (e *Engine) applyEvent(ctx context.Context, sess *session.Session, p pending.ConfirmEvent) Result {
	ev := p.Event
	switch p.Operation {
	case pending.OpDelete:
		if err := e.cal.Delete(ctx, ev); err != nil {
			logging.Warn("engine", "delete %q: %v", ev.Summary, err)
			return fail("Could not delete event.")
		}
		return reply(fmt.Sprintf("Deleted %q.", ev.Summary))
	case pending.OpReschedule:
		msg, updated, ok := e.reschedule(ctx, ev, p.Shift)
		if !ok {
			return fail(msg)
		}
		sess.Context.Remember("event", updated.Summary, updated.Start.In(e.cal.Location()).Format(calendar.DateLayout))
		return reply(msg)
	}
	if _, err := e.cal.Update(ctx, ev, eventChanges(p.Updates)); err != nil {
		logging.Warn("engine", "update %q: %v", ev.Summary, err)
		return fail("Could not update the event.")
	}
	return reply(fmt.Sprintf("Updated %q.", ev.Summary))
}

// clearConfirmed deletes whatever is clearable on date now, which may differ
// from what was previewed
func (e *Engine) clearConfirmed(ctx context.Context, date string) Result {
	events, err := e.cal.Clearable(ctx, date)
	if err != nil {
		logging.Warn("engine", "clear day %s: %v", date, err)
		return fail("Could not clear your schedule.")
	}
	deleted := e.cal.DeleteEach(ctx, events)
	if len(deleted) == 0 {
		return reply("No events to clear.")
	}
	return reply(fmt.Sprintf("Cleared %d %s: %s.", len(deleted), plural(len(deleted), "event"), strings.Join(deleted, ", ")))
}

func (e *Engine) resumeScope(ctx context.Context, sess *session.Session, p pending.RecurringScope, text string) Result {
	if pending.IsNegative(text) {
		return reply("Cancelled.")
	}
	scope, ok := pending.ParseScope(text)
	if !ok {
		return e.again(sess, p, scopePrompt)
	}
	all := scope == action.ScopeAll
	which := "this instance of"
	if all {
		which = "all occurrences of"
	}

	if p.Operation == pending.OpDelete {
		if err := e.deleteScoped(ctx, p.Event, all); err != nil {
			logging.Warn("engine", "delete %q: %v", p.Event.Summary, err)
			return fail("Could not delete event.")
		}
		return reply(fmt.Sprintf("Deleted %s %q.", which, p.Event.Summary))
	}
	if err := e.editScoped(ctx, p.Event, all, p.Updates); err != nil {
		logging.Warn("engine", "edit %q: %v", p.Event.Summary, err)
		return fail("Could not update event.")
	}
	return reply(fmt.Sprintf("Updated %s %q.", which, p.Event.Summary))
}

// resumeMissing fills whichever of date, time and duration the reply
// carries, then asks again or creates the event
func (e *Engine) resumeMissing(ctx context.Context, sess *session.Session, p pending.MissingInfo, text string) Result {
	d := p.Details
	rest := text
	if d.Date == "" {
		if date, ok := pending.ParseDate(text, e.cal.Now()); ok {
			d.Date = date
			rest = pending.WithoutDate(text)
		}
	}

	timeTaken := false
	if d.StartTime == "" {
		if c, ok := pending.ParseClock(rest); ok {
			if c.NeedsPeriod {
				return e.askPeriod(sess, c, d)
			}
			d.StartTime = c.HHMM()
			timeTaken = true
		}
	}
	if d.Duration <= 0 {
		rest = pending.WithoutClock(rest)
		// a bare number that just became the time is not also a length
		if !timeTaken || spelledUnitRe.MatchString(rest) {
			if n, ok := pending.ParseDuration(rest); ok {
				d.Duration = action.Minutes(n)
			}
		}
	}

	if missing := unscheduled(d); len(missing) > 0 {
		e.setPending(sess, pending.MissingInfo{Details: d, Missing: missing})
		return ask(fmt.Sprintf("I still need the %s. Please provide.", strings.Join(missing, ", ")))
	}
	return e.schedule(ctx, sess, d, func(d action.EventDetails) string {
		return withLocation(fmt.Sprintf("Scheduled %q for %s at %s",
			d.Title, e.longDate(d.Date), calendar.FormatTime12h(d.StartTime)), d.Location) + "."
	})
}
