package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vthunder/nova/internal/calendar"
	"github.com/vthunder/nova/internal/intent"
	"github.com/vthunder/nova/internal/pending"
	"github.com/vthunder/nova/internal/profiling"
	"github.com/vthunder/nova/internal/session"
	"github.com/vthunder/nova/internal/tasks"
)

var now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC) // Friday

// scripted replies with one canned model answer per call
type scripted struct {
	replies []string
	err     error
	calls   int
}

func (s *scripted) Complete(ctx context.Context, system string, msgs []session.Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.calls >= len(s.replies) {
		return `{"action":"out_of_scope","response":"no script left"}`, nil
	}
	r := s.replies[s.calls]
	s.calls++
	return r, nil
}

type fixture struct {
	eng  *Engine
	mem  *calendar.MemoryStore
	llm  *scripted
	sess *session.Session
}

func newFixture(t *testing.T, replies ...string) *fixture {
	t.Helper()
	clock := func() time.Time { return now }

	mem := calendar.NewMemoryStore()
	mem.Now = clock
	cal := calendar.NewService(mem, calendar.ServiceConfig{Location: time.UTC, Now: clock})

	store := tasks.NewFileStore(t.TempDir())
	if err := store.Load(); err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	ts := tasks.NewService(store, tasks.ServiceConfig{Location: time.UTC, Now: clock})

	llm := &scripted{replies: replies}
	eng := New(Config{Calendar: cal, Tasks: ts, Parser: intent.NewParser(llm, time.Second)})
	return &fixture{eng: eng, mem: mem, llm: llm, sess: session.New("test")}
}

func (f *fixture) say(t *testing.T, text string) Result {
	t.Helper()
	return f.eng.Handle(context.Background(), f.sess, text)
}

func (f *fixture) script(replies ...string) {
	f.llm.replies = append(f.llm.replies, replies...)
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, time.UTC)
}

func event(summary string, day, hour int) calendar.Event {
	return calendar.Event{Summary: summary, Start: at(day, hour, 0), End: at(day, hour+1, 0)}
}

func pendingKind(s *session.Session) pending.Kind {
	if s.Pending == nil {
		return ""
	}
	return s.Pending.Kind()
}

func TestCreateEvent(t *testing.T) {
	f := newFixture(t, `{"action":"create_event","title":"Lunch","date":"2026-10-23","startTime":"13:00","duration":60}`)

	r := f.say(t, "lunch friday at 1pm")
	if !r.Success || r.ExpectsResponse {
		t.Fatalf("unexpected result %+v", r)
	}
	if !strings.Contains(r.Message, "Friday") || !strings.Contains(r.Message, "1:00 PM") {
		t.Errorf("message = %q", r.Message)
	}
	all := f.mem.All()
	if len(all) != 1 || !all[0].Start.Equal(at(23, 13, 0)) || !all[0].End.Equal(at(23, 14, 0)) {
		t.Errorf("stored events = %+v", all)
	}
	if m := f.sess.Context.LastMentioned; m == nil || m.Name != "Lunch" {
		t.Errorf("last mentioned = %+v", m)
	}
}

func TestCreateEventMissingInfo(t *testing.T) {
	f := newFixture(t, `{"action":"create_event","title":"Haircut","date":"2026-10-20"}`)

	r := f.say(t, "haircut tuesday")
	if !r.ExpectsResponse || pendingKind(f.sess) != pending.KindMissingInfo {
		t.Fatalf("want missing_info, got %+v pending=%s", r, pendingKind(f.sess))
	}
	r = f.say(t, "3pm for 30 minutes")
	if !r.Success || f.sess.Pending != nil {
		t.Fatalf("unexpected result %+v pending=%s", r, pendingKind(f.sess))
	}
	all := f.mem.All()
	if len(all) != 1 || !all[0].Start.Equal(at(20, 15, 0)) || all[0].Minutes() != 30 {
		t.Errorf("stored events = %+v", all)
	}
}

func TestAmPmClarification(t *testing.T) {
	for _, answer := range []string{"pm", "the evening one"} {
		t.Run(answer, func(t *testing.T) {
			f := newFixture(t, `{"action":"ask_ampm","time":"9:00","eventDetails":{"title":"Dinner","date":"2026-10-17","duration":90},"response":"Is that 9 AM or PM?"}`)

			r := f.say(t, "dinner tomorrow at 9")
			if !r.ExpectsResponse || pendingKind(f.sess) != pending.KindAmPm {
				t.Fatalf("want ampm, got %+v", r)
			}

			r = f.say(t, answer)
			if !r.Success || f.sess.Pending != nil {
				t.Fatalf("still pending %s", pendingKind(f.sess))
			}
			all := f.mem.All()
			if len(all) != 1 || !all[0].Start.Equal(at(17, 21, 0)) || all[0].Minutes() != 90 {
				t.Errorf("stored events = %+v", all)
			}
			if r.Message != "Scheduled Dinner at 9:00 PM." {
				t.Errorf("message = %q", r.Message)
			}
		})
	}
}

func TestMisnamedAskOpensNoPending(t *testing.T) {
	f := newFixture(t, `{"action":"ask_am_pm","time":"9:00","eventDetails":{"title":"Dinner","date":"2026-10-17"},"response":"Is that 9 AM or PM?"}`)
	r := f.say(t, "dinner tomorrow at 9")
	if f.sess.Pending != nil {
		t.Errorf("unregistered action opened %s", pendingKind(f.sess))
	}
	if r.Message != "Is that 9 AM or PM?" || len(f.mem.All()) != 0 {
		t.Errorf("unexpected %+v", r)
	}
}

func TestAmPmReprompt(t *testing.T) {
	f := newFixture(t, `{"action":"ask_ampm","time":"9","eventDetails":{"title":"Call","date":"2026-10-17"}}`)
	f.say(t, "call at 9")

	r := f.say(t, "whenever")
	if r.Message != periodPrompt || pendingKind(f.sess) != pending.KindAmPm {
		t.Fatalf("want re-prompt, got %+v", r)
	}
	r = f.say(t, "am")
	if !r.Success || len(f.mem.All()) != 1 || !f.mem.All()[0].Start.Equal(at(17, 9, 0)) {
		t.Errorf("unexpected %+v %+v", r, f.mem.All())
	}
}

func TestTimeNeedsPeriod(t *testing.T) {
	f := newFixture(t, `{"action":"ask_time","eventDetails":{"title":"Standup","date":"2026-10-19","duration":15}}`)
	f.say(t, "add standup monday")

	r := f.say(t, "at 8")
	if r.Message != "Is that 8 AM or 8 PM?" || pendingKind(f.sess) != pending.KindAmPm {
		t.Fatalf("want ampm question, got %+v", r)
	}
	r = f.say(t, "morning")
	if !r.Success || r.Message != "Scheduled Standup at 8:00 AM." {
		t.Errorf("unexpected %+v", r)
	}
}

func TestConflictConfirm(t *testing.T) {
	tests := []struct {
		answer  string
		created bool
		message string
	}{
		{"yes", true, `Scheduled "Gym" at 1:30 PM (despite the conflict).`},
		{"no", false, "Event not created."},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			f := newFixture(t, `{"action":"create_event","title":"Gym","date":"2026-10-19","startTime":"13:30","duration":60}`)
			f.mem.Seed(event("Team lunch", 19, 13))

			r := f.say(t, "gym monday 1:30")
			if !r.ExpectsResponse || !strings.Contains(r.Message, "Team lunch (1:00 PM-2:00 PM)") {
				t.Fatalf("want conflict question, got %+v", r)
			}
			r = f.say(t, "maybe")
			if r.Message != yesOrNo || pendingKind(f.sess) != pending.KindConfirmConflict {
				t.Fatalf("want yes/no re-prompt, got %+v", r)
			}
			r = f.say(t, tt.answer)
			if r.Message != tt.message {
				t.Errorf("message = %q, want %q", r.Message, tt.message)
			}
			if got := len(f.mem.All()) == 2; got != tt.created {
				t.Errorf("created = %v, want %v", got, tt.created)
			}
			if f.sess.Pending != nil {
				t.Errorf("still pending %s", pendingKind(f.sess))
			}
		})
	}
}

func TestDeleteMediumMatch(t *testing.T) {
	reply := `{"action":"delete_event","eventTitle":"dentist appointment tuesday"}`
	tests := []struct {
		answer  string
		remain  int
		message string
	}{
		{"yes", 0, `Deleted "Dentist checkup".`},
		{"nope", 1, "Cancelled."},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			f := newFixture(t, reply)
			f.mem.Seed(event("Dentist checkup", 20, 9))

			r := f.say(t, "cancel the dentist appointment tuesday")
			if r.Message != `Did you mean "Dentist checkup"?` || pendingKind(f.sess) != pending.KindConfirmEvent {
				t.Fatalf("want confirmation, got %+v", r)
			}
			r = f.say(t, tt.answer)
			if r.Message != tt.message || len(f.mem.All()) != tt.remain {
				t.Errorf("got %+v with %d events", r, len(f.mem.All()))
			}
		})
	}
}

func TestAmbiguousMatch(t *testing.T) {
	f := newFixture(t, `{"action":"delete_event","eventTitle":"weekly review"}`)
	f.mem.Seed(event("Weekly planning", 19, 9), event("Monthly review", 20, 9))

	r := f.say(t, "delete weekly review")
	if r.Success || !strings.HasPrefix(r.Message, "Multiple matches:") {
		t.Errorf("unexpected %+v", r)
	}
	if len(f.mem.All()) != 2 || f.sess.Pending != nil {
		t.Error("ambiguous match must not change anything")
	}
}

func TestRescheduleEvent(t *testing.T) {
	tests := []struct {
		name    string
		seed    calendar.Event
		reply   string
		answer  string // confirmation, when a question is expected
		message string
		start   time.Time
		date    string // remembered date afterwards
	}{
		{
			name:    "time shift",
			seed:    event("Standup", 19, 9),
			reply:   `{"action":"reschedule_event","eventTitle":"standup","timeShift":30}`,
			message: `Rescheduled "Standup" to 9:30 AM.`,
			start:   at(19, 9, 30),
			date:    "2026-10-19",
		},
		{
			name:    "new date and time",
			seed:    event("Standup", 19, 9),
			reply:   `{"action":"reschedule_event","eventTitle":"standup","newDate":"2026-10-22","newStartTime":"14:00"}`,
			message: `Rescheduled "Standup" to 2:00 PM on Thursday, October 22.`,
			start:   at(22, 14, 0),
			date:    "2026-10-22",
		},
		{
			name:    "medium match confirmed",
			seed:    event("Dentist checkup", 20, 9),
			reply:   `{"action":"reschedule_event","eventTitle":"dentist appointment tuesday","timeShift":60}`,
			answer:  "yes",
			message: `Rescheduled "Dentist checkup" to 10:00 AM.`,
			start:   at(20, 10, 0),
			date:    "2026-10-20",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.reply)
			f.mem.Seed(tt.seed)

			r := f.say(t, "move it")
			if tt.answer != "" {
				want := fmt.Sprintf("Did you mean %q?", tt.seed.Summary)
				if r.Message != want || pendingKind(f.sess) != pending.KindConfirmEvent {
					t.Fatalf("want confirmation, got %+v", r)
				}
				if n := len(f.mem.Mutations()); n != 0 {
					t.Fatalf("%d mutations before confirming", n)
				}
				r = f.say(t, tt.answer)
			}
			if !r.Success || r.Message != tt.message || f.sess.Pending != nil {
				t.Fatalf("unexpected %+v", r)
			}
			all := f.mem.All()
			if len(all) != 1 || !all[0].Start.Equal(tt.start) || all[0].Minutes() != 60 {
				t.Errorf("stored events = %+v", all)
			}
			m := f.sess.Context.LastMentioned
			if m == nil || m.Kind != "event" || m.Name != tt.seed.Summary || m.Date != tt.date {
				t.Errorf("last mentioned = %+v", m)
			}
		})
	}
}

func TestEventNotFound(t *testing.T) {
	f := newFixture(t, `{"action":"delete_event","eventTitle":"yoga"}`)
	f.mem.Seed(event("Dentist", 20, 9))

	if r := f.say(t, "delete yoga"); r.Success || r.Message != "Event not found." {
		t.Errorf("unexpected %+v", r)
	}
}

func TestBatchOrder(t *testing.T) {
	f := newFixture(t, `{"actions":[
		{"action":"delete_event","eventTitle":"Standup"},
		{"action":"create_event","title":"Standup","date":"2026-10-19","startTime":"10:00","duration":15}
	],"response":"Moved standup."}`)
	f.mem.Seed(event("Standup", 19, 9))

	r := f.say(t, "move standup to 10")
	if !r.Success || r.Message != "Moved standup." {
		t.Fatalf("unexpected %+v", r)
	}
	muts := f.mem.Mutations()
	if len(muts) != 2 || muts[0].Op != "delete" || muts[1].Op != "create" || muts[0].Seq >= muts[1].Seq {
		t.Errorf("mutations = %+v", muts)
	}
}

func TestProfiledBatch(t *testing.T) {
	f := newFixture(t, `{"actions":[
		{"action":"delete_event","eventTitle":"Standup"},
		{"action":"create_event","title":"Standup","date":"2026-10-19","startTime":"10:00","duration":15}
	]}`)
	f.mem.Seed(event("Standup", 19, 9))
	dir := t.TempDir()
	p, err := profiling.Open(profiling.LevelDetailed, dir)
	if err != nil {
		t.Fatal(err)
	}
	f.eng.profiler = p

	f.say(t, "move standup to 10")
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "profile.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	for _, stage := range []string{`"parse"`, `"batch:delete_event"`, `"batch:create_event"`, `"dispatch"`} {
		if !strings.Contains(string(data), stage) {
			t.Errorf("profile missing stage %s:\n%s", stage, data)
		}
	}
}

func TestBatchFailure(t *testing.T) {
	f := newFixture(t, `{"actions":[
		{"action":"delete_event","eventTitle":"nothing like this"},
		{"action":"add_task","title":"Buy milk","type":"general"}
	]}`)

	r := f.say(t, "two things")
	if r.Success {
		t.Error("a failed member should fail the batch")
	}
	if !strings.Contains(r.Message, "Event not found.") || !strings.Contains(r.Message, `Added general task "Buy milk".`) {
		t.Errorf("message = %q", r.Message)
	}
}

func TestPronounSubstitution(t *testing.T) {
	f := newFixture(t,
		`{"action":"create_event","title":"Review","date":"2026-10-21","startTime":"15:00","duration":60}`,
		`{"action":"delete_event","eventTitle":"it"}`,
	)
	f.say(t, "review wednesday at 3")

	r := f.say(t, "actually delete it")
	if r.Message != `Deleted "Review".` || len(f.mem.All()) != 0 {
		t.Errorf("unexpected %+v", r)
	}
}

func TestPronounNeedsMatchingKind(t *testing.T) {
	f := newFixture(t,
		`{"action":"add_task","title":"Buy milk","type":"general"}`,
		`{"action":"delete_event","eventTitle":"that meeting"}`,
		`{"action":"complete_task","taskTitle":"it"}`,
	)
	f.mem.Seed(event("Standup", 19, 9))
	f.say(t, "remind me to buy milk")

	r := f.say(t, "cancel that meeting")
	if r.Success || r.Message != "Event not found." || len(f.mem.All()) != 1 {
		t.Errorf("a task mention must not stand in for an event: %+v", r)
	}
	if m := f.sess.Context.LastMentioned; m == nil || m.Kind != "task" || m.Name != "Buy milk" {
		t.Fatalf("last mentioned = %+v", m)
	}

	if r := f.say(t, "done with it"); r.Message != `Completed "Buy milk".` {
		t.Errorf("message = %q", r.Message)
	}
}

func TestClearDay(t *testing.T) {
	f := newFixture(t, `{"action":"clear_day","date":"2026-10-19"}`)
	f.mem.Seed(event("A", 19, 9), event("B", 19, 11), event("Other day", 20, 9))

	r := f.say(t, "clear monday")
	if !r.ExpectsResponse || !strings.Contains(r.Message, "You have 2 events on Monday, October 19: A, B.") {
		t.Fatalf("unexpected %+v", r)
	}
	r = f.say(t, "yes")
	if r.Message != "Cleared 2 events: A, B." || len(f.mem.All()) != 1 {
		t.Errorf("unexpected %+v", r)
	}
}

func TestRecurringScope(t *testing.T) {
	f := newFixture(t, `{"action":"delete_recurring_event","eventTitle":"Yoga"}`)
	yoga := event("Yoga", 19, 18)
	yoga.RecurringEventID = "yoga-series"
	f.mem.Seed(yoga)

	r := f.say(t, "delete yoga")
	if r.Message != scopeDelPrompt || pendingKind(f.sess) != pending.KindRecurringScope {
		t.Fatalf("want scope question, got %+v", r)
	}
	r = f.say(t, "hmm")
	if r.Message != scopePrompt {
		t.Fatalf("want scope re-prompt, got %+v", r)
	}
	r = f.say(t, "just this one")
	if r.Message != `Deleted this instance of "Yoga".` || len(f.mem.All()) != 0 {
		t.Errorf("unexpected %+v", r)
	}
}

func TestRecurringEndDate(t *testing.T) {
	f := newFixture(t, `{"action":"create_recurring_event","title":"Piano","date":"2026-10-20","startTime":"17:00","duration":45,"recurrence":{"frequency":"weekly","daysOfWeek":["TU"]}}`)

	r := f.say(t, "piano every tuesday at 5")
	if r.Message != endDatePrompt {
		t.Fatalf("want end date question, got %+v", r)
	}
	r = f.say(t, "December 31")
	if r.Message != `Created recurring event "Piano" until Thursday, December 31.` {
		t.Errorf("message = %q", r.Message)
	}
	all := f.mem.All()
	if len(all) != 1 || len(all[0].Recurrence) == 0 {
		t.Errorf("stored events = %+v", all)
	}
}

func TestTaskTypeFlow(t *testing.T) {
	f := newFixture(t,
		`{"action":"ask_task_type","title":"Renew passport"}`,
		`{"action":"ask_task_type","title":"Read book"}`,
	)

	f.say(t, "remind me to renew my passport")
	r := f.say(t, "it has a deadline")
	if r.Message != "When is it due?" || pendingKind(f.sess) != pending.KindTaskDueDate {
		t.Fatalf("want due date question, got %+v", r)
	}
	r = f.say(t, "hmm")
	if r.Message != dueDatePrompt {
		t.Fatalf("want re-prompt, got %+v", r)
	}
	r = f.say(t, "10/30")
	if r.Message != `Added "Renew passport" due Friday, October 30.` {
		t.Errorf("message = %q", r.Message)
	}

	f.say(t, "add read book")
	if r = f.say(t, "general"); r.Message != `Added general task "Read book".` {
		t.Errorf("message = %q", r.Message)
	}
}

func TestBulkDeleteAll(t *testing.T) {
	f := newFixture(t,
		`{"actions":[{"action":"add_task","title":"A","type":"general"},{"action":"add_task","title":"B","type":"general"}]}`,
		`{"action":"bulk_delete_tasks","filter":"all"}`,
	)
	f.say(t, "add a and b")

	r := f.say(t, "delete all my tasks")
	if r.Message != "Are you sure you want to delete ALL 2 tasks?" {
		t.Fatalf("unexpected %+v", r)
	}
	if r = f.say(t, "yes"); r.Message != "Deleted all 2 tasks." {
		t.Errorf("message = %q", r.Message)
	}
	left, _ := f.eng.Tasks().List(context.Background())
	if len(left) != 0 {
		t.Errorf("%d tasks left", len(left))
	}
}

func TestUncompleteTask(t *testing.T) {
	f := newFixture(t,
		`{"action":"add_task","title":"Water plants","type":"general"}`,
		`{"action":"complete_task","taskTitle":"water plants"}`,
		`{"action":"uncomplete_task","taskTitle":"water plants"}`,
		`{"action":"uncomplete_task","taskTitle":"laundry"}`,
	)
	f.say(t, "add water plants")
	if r := f.say(t, "done watering"); r.Message != `Completed "Water plants".` {
		t.Fatalf("message = %q", r.Message)
	}
	if r := f.say(t, "oops not done"); r.Message != `Marked "Water plants" as incomplete.` {
		t.Errorf("message = %q", r.Message)
	}
	if r := f.say(t, "laundry isn't done"); r.Message != "Task not found in completed tasks." {
		t.Errorf("message = %q", r.Message)
	}
}

func TestParseFailures(t *testing.T) {
	f := newFixture(t, "I don't know how to answer that")
	if r := f.say(t, "blah"); r.Success || r.Message != "Nova had trouble understanding that. Please try again." {
		t.Errorf("unexpected %+v", r)
	}

	f = newFixture(t)
	f.llm.err = &intent.APIError{Status: 529, Message: "Overloaded"}
	if r := f.say(t, "blah"); r.Message != "Overloaded" {
		t.Errorf("unexpected %+v", r)
	}

	f.llm.err = errors.New("dial tcp: refused")
	if r := f.say(t, "blah"); r.Success || r.Message != "API error. Please try again." {
		t.Errorf("unexpected %+v", r)
	}
}

func TestNoParser(t *testing.T) {
	f := newFixture(t)
	f.eng.parser = nil
	if r := f.say(t, "hello"); r.Message != "Please configure an Anthropic API key." {
		t.Errorf("unexpected %+v", r)
	}
}

func TestUnknownAction(t *testing.T) {
	f := newFixture(t, `{"action":"teleport","response":"I can't do that yet.","expectsResponse":true}`)
	r := f.say(t, "teleport me")
	if !r.Success || r.Message != "I can't do that yet." || !r.ExpectsResponse {
		t.Errorf("unexpected %+v", r)
	}
}
