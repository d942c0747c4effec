// Package engine resolves what the user said into calendar and task changes.
// It drives the pending-action state machine, dispatches decoded actions and
// renders every outcome as a Result the surfaces can show.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vthunder/nova/internal/calendar"
	"github.com/vthunder/nova/internal/intent"
	"github.com/vthunder/nova/internal/journal"
	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/pending"
	"github.com/vthunder/nova/internal/profiling"
	"github.com/vthunder/nova/internal/resolve"
	"github.com/vthunder/nova/internal/rules"
	"github.com/vthunder/nova/internal/session"
	"github.com/vthunder/nova/internal/tasks"
	"github.com/vthunder/nova/internal/weather"
)

const (
	defaultDuration    = 60
	defaultCallTimeout = 20 * time.Second
	promptTaskLimit    = 10
	digestDays         = 14
	digestLimit        = 15
)

// Result is what the user sees after one utterance
type Result struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	ExpectsResponse bool   `json:"expectsResponse"`
}

func reply(msg string) Result { return Result{Success: true, Message: msg} }
func ask(msg string) Result   { return Result{Success: true, Message: msg, ExpectsResponse: true} }
func fail(msg string) Result  { return Result{Message: msg} }

// NotFoundError means the resolver found nothing close to the title
type NotFoundError struct {
	Kind  string // event or task
	Title string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Title)
}

// AmbiguousError means several entities matched equally well
type AmbiguousError struct {
	Kind       string
	Title      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s %q is ambiguous: %s", e.Kind, e.Title, strings.Join(e.Candidates, ", "))
}

// Config wires an Engine to its collaborators. Rules, Weather, Journal and
// Profiler are optional.
type Config struct {
	Calendar    *calendar.Service
	Tasks       *tasks.Service
	Parser      *intent.Parser
	Rules       *rules.Store
	Weather     weather.Provider
	Journal     *journal.Journal
	Profiler    *profiling.Profiler
	Location    string        // the user's city, for "current" weather
	CallTimeout time.Duration // bound on weather lookups
}

// Engine interprets utterances for any number of sessions. All per-user
// state lives in the session passed to each call.
type Engine struct {
	cal         *calendar.Service
	tasks       *tasks.Service
	parser      *intent.Parser
	rules       *rules.Store
	weather     weather.Provider
	journal     *journal.Journal
	profiler    *profiling.Profiler
	location    string
	callTimeout time.Duration
}

// New creates an engine
func New(cfg Config) *Engine {
	e := &Engine{
		cal:         cfg.Calendar,
		tasks:       cfg.Tasks,
		parser:      cfg.Parser,
		rules:       cfg.Rules,
		weather:     cfg.Weather,
		journal:     cfg.Journal,
		profiler:    cfg.Profiler,
		location:    cfg.Location,
		callTimeout: cfg.CallTimeout,
	}
	if e.callTimeout <= 0 {
		e.callTimeout = defaultCallTimeout
	}
	return e
}

// Calendar exposes the calendar service for read-only surfaces
func (e *Engine) Calendar() *calendar.Service { return e.cal }

// Tasks exposes the task service for read-only surfaces
func (e *Engine) Tasks() *tasks.Service { return e.tasks }

// Journal exposes the audit log; nil when none is configured
func (e *Engine) Journal() *journal.Journal { return e.journal }

// Handle processes one utterance. An outstanding pending action gets the
// first look at it; otherwise it goes to the intent model. The caller holds
// the session lock.
func (e *Engine) Handle(ctx context.Context, sess *session.Session, text string) Result {
	text = strings.TrimSpace(text)
	e.record(func(j *journal.Journal) error { return j.LogUtterance(sess.ID, text) })

	if p := sess.Pending; p != nil {
		sess.Pending = nil
		done := e.profiler.Start(profiling.LevelMinimal, sess.ID, "resume")
		r := e.resume(ctx, sess, p, text)
		done(map[string]any{"kind": string(p.Kind())})
		transition := "resolved"
		if sess.Pending != nil {
			transition = "open:" + string(sess.Pending.Kind())
		}
		logging.Debug("engine", "pending %s -> %s", p.Kind(), transition)
		e.record(func(j *journal.Journal) error { return j.LogPending(sess.ID, string(p.Kind()), transition) })
		return r
	}

	if e.parser == nil {
		return fail("Please configure an Anthropic API key.")
	}
	done := e.profiler.Start(profiling.LevelMinimal, sess.ID, "parse")
	out, err := e.parser.Parse(ctx, sess.Context.History(), e.promptContext(ctx, sess), text)
	done(map[string]any{"ok": err == nil})
	if err != nil {
		e.record(func(j *journal.Journal) error { return j.LogError(sess.ID, "parse", err) })
		return parseFailure(err)
	}
	sess.Context.Append(out.User, out.Assistant)

	done = e.profiler.Start(profiling.LevelMinimal, sess.ID, "dispatch")
	var r Result
	if out.Reply.Batch {
		r = e.ExecuteBatch(ctx, sess, out.Reply.Actions, out.Reply.Response)
	} else {
		r = e.Execute(ctx, sess, out.Reply.Actions[0])
	}
	done(map[string]any{"actions": len(out.Reply.Actions), "success": r.Success})
	return r
}

func parseFailure(err error) Result {
	var pe *intent.ParseError
	var ae *intent.APIError
	switch {
	case errors.As(err, &pe):
		logging.Warn("engine", "unreadable model reply: %s", logging.Truncate(pe.Raw, 300))
		return fail("Nova had trouble understanding that. Please try again.")
	case errors.As(err, &ae):
		logging.Warn("engine", "%v", ae)
		if ae.Message != "" {
			return fail(ae.Message)
		}
		return fail("API error. Please try again.")
	}
	logging.Error("engine", "parse: %v", err)
	return fail("Something went wrong. Please try again.")
}

// promptContext gathers what the model should know this turn. Each piece is
// best effort: a failed lookup is logged and left out.
func (e *Engine) promptContext(ctx context.Context, sess *session.Session) intent.PromptContext {
	pc := intent.PromptContext{
		Now:           e.cal.Now(),
		LastMentioned: sess.Context.LastMentioned,
		Location:      e.location,
	}
	if holidays, err := e.cal.Holidays(ctx, e.cal.Today()); err != nil {
		logging.Warn("engine", "holidays: %v", err)
	} else {
		pc.Holidays = holidays
	}
	if open, err := e.tasks.Pending(ctx, promptTaskLimit); err != nil {
		logging.Warn("engine", "pending tasks: %v", err)
	} else {
		pc.PendingTasks = open
	}
	if upcoming, err := e.cal.Upcoming(ctx, digestDays, digestLimit); err != nil {
		logging.Warn("engine", "upcoming events: %v", err)
	} else {
		pc.Upcoming = upcoming
	}
	if e.rules != nil {
		pc.Rules = e.rules.Texts()
	}
	if e.weather != nil && e.location != "" {
		if report, err := e.currentWeather(ctx, e.location); err != nil {
			logging.Debug("engine", "weather for prompt: %v", err)
		} else {
			pc.Weather = report.Summary()
		}
	}
	return pc
}

func (e *Engine) currentWeather(ctx context.Context, location string) (*weather.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	return e.weather.Current(ctx, location)
}

// setPending makes p the session's only pending action
func (e *Engine) setPending(sess *session.Session, p pending.Action) {
	if prev := sess.Pending; prev != nil {
		logging.Debug("engine", "pending %s replaced by %s", prev.Kind(), p.Kind())
	}
	sess.Pending = p
}

// record writes to the journal when one is configured
func (e *Engine) record(write func(*journal.Journal) error) {
	if e.journal == nil {
		return
	}
	if err := write(e.journal); err != nil {
		logging.Warn("engine", "journal: %v", err)
	}
}

// findEvent resolves an event title. sure is false for a medium match,
// which must be confirmed before anything changes.
func (e *Engine) findEvent(ctx context.Context, title, date string) (ev *calendar.Event, sure bool, err error) {
	m, err := e.cal.FindEvent(ctx, title, date)
	if err != nil {
		return nil, false, err
	}
	switch m.Confidence {
	case resolve.Ambiguous:
		return nil, false, &AmbiguousError{Kind: "event", Title: title, Candidates: m.Candidates}
	case resolve.None:
		return nil, false, &NotFoundError{Kind: "event", Title: title}
	}
	return m.Entity, m.Confidence.Actionable(), nil
}

// findTask resolves a task title against open tasks, or completed ones
func (e *Engine) findTask(ctx context.Context, title string, completed bool) (t *tasks.Task, sure bool, err error) {
	var m resolve.Match[tasks.Task]
	if completed {
		m, err = e.tasks.FindCompleted(ctx, title)
	} else {
		m, err = e.tasks.Find(ctx, title, false)
	}
	if err != nil {
		return nil, false, err
	}
	switch m.Confidence {
	case resolve.Ambiguous:
		return nil, false, &AmbiguousError{Kind: "task", Title: title, Candidates: m.Candidates}
	case resolve.None:
		return nil, false, &NotFoundError{Kind: "task", Title: title}
	}
	return m.Entity, m.Confidence.Actionable(), nil
}

// lookupFailed renders a failed resolution
func lookupFailed(err error, notFound, couldNot string) Result {
	var nf *NotFoundError
	var amb *AmbiguousError
	switch {
	case errors.As(err, &nf):
		return fail(notFound)
	case errors.As(err, &amb):
		return fail(fmt.Sprintf("Multiple matches: %s. Please be more specific.", strings.Join(amb.Candidates, ", ")))
	}
	logging.Warn("engine", "lookup: %v", err)
	return fail(couldNot)
}

func didYouMean(title string) Result {
	return ask(fmt.Sprintf("Did you mean %q?", title))
}

// orDefault returns the model's own response when it wrote one
func orDefault(response, fallback string) string {
	if strings.TrimSpace(response) != "" {
		return response
	}
	return fallback
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// longDate renders YYYY-MM-DD as "Friday, October 23"
func (e *Engine) longDate(date string) string {
	t, err := calendar.ParseDate(date, e.cal.Location())
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2")
}
