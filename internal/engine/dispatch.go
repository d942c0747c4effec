package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/vthunder/nova/internal/action"
	"github.com/vthunder/nova/internal/journal"
	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/pending"
	"github.com/vthunder/nova/internal/profiling"
	"github.com/vthunder/nova/internal/session"
	"github.com/vthunder/nova/internal/tasks"
)

// pronouns are references that mean "whatever we were just talking about"
var pronouns = map[string]bool{
	"it": true, "that": true, "this": true, "them": true,
	"that meeting": true, "this meeting": true, "the meeting": true,
	"that event": true, "this event": true, "the event": true,
	"that appointment": true, "the appointment": true,
	"that task": true, "this task": true, "the task": true,
	"that one": true, "this one": true,
}

func isPronoun(title string) bool {
	return pronouns[strings.Trim(strings.ToLower(strings.TrimSpace(title)), ".,!?")]
}

// ExecuteBatch runs actions strictly in order. The batch succeeds only if
// every member does and expects a response if any member does.
func (e *Engine) ExecuteBatch(ctx context.Context, sess *session.Session, actions []action.Action, response string) Result {
	out := Result{Success: true}
	var messages []string
	for i, a := range actions {
		done := e.profiler.Start(profiling.LevelDetailed, sess.ID, "batch:"+a.Name())
		r := e.Execute(ctx, sess, a)
		done(map[string]any{"index": i, "success": r.Success})
		logging.Debug("engine", "batch[%d] %s: success=%v", i, a.Name(), r.Success)
		out.Success = out.Success && r.Success
		out.ExpectsResponse = out.ExpectsResponse || r.ExpectsResponse
		if r.Message != "" {
			messages = append(messages, r.Message)
		}
	}
	out.Message = orDefault(response, strings.Join(messages, " "))
	return out
}

// Execute dispatches one action
func (e *Engine) Execute(ctx context.Context, sess *session.Session, a action.Action) Result {
	if target := action.Target(a); target != nil && isPronoun(*target) {
		kind, _, _, _ := action.Subject(a)
		switch m := sess.Context.LastMentioned; {
		case m == nil:
		case m.Kind != kind:
			logging.Debug("engine", "%q needs a %s; last mentioned is %s %q", *target, kind, m.Kind, m.Name)
		default:
			logging.Debug("engine", "%q refers to %s %q", *target, m.Kind, m.Name)
			*target = m.Name
		}
	}
	// An unresolved pronoun is never remembered as a name
	if kind, name, date, ok := action.Subject(a); ok && !isPronoun(name) {
		sess.Context.Remember(kind, name, date)
	}

	r := e.dispatch(ctx, sess, a)
	logging.Info("engine", "%s: success=%v %s", a.Name(), r.Success, logging.Truncate(r.Message, 120))
	e.record(func(j *journal.Journal) error {
		return j.LogAction(sess.ID, a.Name(), r.Message, r.Success, nil)
	})
	return r
}

func (e *Engine) dispatch(ctx context.Context, sess *session.Session, a action.Action) Result {
	switch a := a.(type) {
	// events
	case *action.CreateEvent:
		return e.createEvent(ctx, sess, a)
	case *action.DeleteEvent:
		return e.deleteEvent(ctx, sess, a)
	case *action.UpdateEvent:
		return e.updateEvent(ctx, sess, a)
	case *action.RescheduleEvent:
		return e.rescheduleEvent(ctx, sess, a)
	case *action.ClearDay:
		return e.clearDay(ctx, sess, a)

	// recurring events
	case *action.CreateRecurringEvent:
		return e.createRecurringEvent(ctx, sess, a)
	case *action.EditRecurringEvent:
		return e.editRecurringEvent(ctx, sess, a)
	case *action.DeleteRecurringEvent:
		return e.deleteRecurringEvent(ctx, sess, a)
	case *action.AskRecurringScope:
		return e.askRecurringScope(ctx, sess, a)

	// tasks
	case *action.AddTask:
		return e.addTask(ctx, a)
	case *action.EditTask:
		return e.editTask(ctx, sess, a)
	case *action.CompleteTask:
		return e.completeTask(ctx, sess, a)
	case *action.UncompleteTask:
		return e.uncompleteTask(ctx, sess, a)
	case *action.DeleteTask:
		return e.deleteTask(ctx, sess, a)
	case *action.BulkDeleteTasks:
		return e.bulkDeleteTasks(ctx, sess, a)
	case *action.DeleteDuplicateTasks:
		msg, err := e.tasks.DeleteDuplicates(ctx)
		if err != nil {
			logging.Warn("engine", "delete duplicates: %v", err)
			return fail("Could not delete duplicate tasks.")
		}
		return reply(msg)
	case *action.QueryTasks:
		msg, err := e.tasks.Query(ctx, orDefault(a.Filter, tasks.FilterAll))
		if err != nil {
			logging.Warn("engine", "query tasks: %v", err)
			return fail("Could not load your tasks.")
		}
		return reply(msg)
	case *action.AskTaskType:
		e.setPending(sess, pending.TaskType{Title: a.Title, Description: a.Description})
		return ask(orDefault(a.Response, "Is this a general task or does it have a due date?"))

	// queries
	case *action.CheckSchedule:
		return e.query("schedule", func() (string, error) { return e.cal.Schedule(ctx, e.dateOrToday(a.Date)) })
	case *action.CheckWeekSchedule:
		return e.query("week schedule", func() (string, error) { return e.cal.WeekSchedule(ctx, e.dateOrToday(a.Date)) })
	case *action.CheckAvailability:
		minutes := int(a.Duration)
		if minutes <= 0 {
			minutes = defaultDuration
		}
		return e.query("availability", func() (string, error) {
			return e.cal.Availability(ctx, e.dateOrToday(a.Date), a.Time, minutes)
		})
	case *action.FindFreeTime:
		return e.query("free time", func() (string, error) {
			return e.cal.FreeTime(ctx, e.dateOrToday(a.Date), int(a.Duration))
		})

	// clarification
	case *action.AskTime:
		e.setPending(sess, pending.Time{Details: a.EventDetails})
		return ask(orDefault(a.Response, "What time should I schedule it?"))
	case *action.AskAmPm:
		e.setPending(sess, pending.AmPm{Time: a.Time, Details: a.EventDetails})
		return ask(orDefault(a.Response, fmt.Sprintf("Is that %s AM or PM?", a.Time)))
	case *action.AskDuration:
		e.setPending(sess, pending.Duration{Details: a.EventDetails})
		return ask(orDefault(a.Response, "How long should it be?"))
	case *action.AskMissingInfo:
		missing := a.Missing
		if len(missing) == 0 {
			missing = pending.Missing(a.EventDetails)
		}
		e.setPending(sess, pending.MissingInfo{Details: a.EventDetails, Missing: missing})
		return ask(orDefault(a.Response, fmt.Sprintf("I need the %s.", strings.Join(missing, ", "))))
	case *action.AskEventName:
		e.setPending(sess, pending.EventName{Details: a.PartialDetails})
		return ask(orDefault(a.Response, "What should I call this event?"))

	// other
	case *action.GetWeather:
		return e.getWeather(ctx, a)
	case *action.AddRule:
		return e.addRule(a)
	case *action.OutOfScope:
		return reply(a.Response)
	case *action.Unknown:
		logging.Debug("engine", "unknown action %q", a.Action)
		return Result{Success: true, Message: a.Response, ExpectsResponse: a.ExpectsResponse}
	}

	meta := action.Meta(a)
	return Result{Success: true, Message: meta.Response, ExpectsResponse: meta.ExpectsResponse}
}

// query runs a read-only lookup; queries never ask anything back
func (e *Engine) query(what string, run func() (string, error)) Result {
	msg, err := run()
	if err != nil {
		logging.Warn("engine", "%s: %v", what, err)
		return fail(fmt.Sprintf("Could not load your %s.", what))
	}
	return reply(msg)
}

func (e *Engine) dateOrToday(date string) string {
	if date == "" {
		return e.cal.Today()
	}
	return date
}

func (e *Engine) getWeather(ctx context.Context, a *action.GetWeather) Result {
	loc := strings.TrimSpace(a.Location)
	if loc == "" || strings.EqualFold(loc, "current") {
		loc = e.location
	}
	if e.weather == nil || loc == "" {
		return fail("Could not get weather for that location.")
	}
	report, err := e.currentWeather(ctx, loc)
	if err != nil {
		logging.Warn("engine", "weather for %q: %v", loc, err)
		return fail("Could not get weather for that location.")
	}
	return reply(report.Message())
}

func (e *Engine) addRule(a *action.AddRule) Result {
	if e.rules == nil {
		return fail("Could not save that rule.")
	}
	rule, err := e.rules.Add(a.Rule)
	if err != nil {
		logging.Warn("engine", "add rule: %v", err)
		return fail("Could not save that rule.")
	}
	return reply(orDefault(a.Response, fmt.Sprintf("Got it. I'll remember: %q", rule.Rule)))
}
