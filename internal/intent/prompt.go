package intent

import (
	"fmt"
	"strings"
	"time"

	"github.com/vthunder/nova/internal/calendar"
	"github.com/vthunder/nova/internal/session"
	"github.com/vthunder/nova/internal/tasks"
)

const (
	maxPromptTasks  = 10
	maxDigestEvents = 15
)

// PromptContext is everything about the user's world the model sees
type PromptContext struct {
	Now           time.Time // in the user's timezone
	Holidays      []string  // today's
	PendingTasks  []tasks.Task
	Rules         []string
	LastMentioned *session.Mention
	Location      string
	Weather       string // short summary, empty when unavailable
	Upcoming      []calendar.Event
}

// DateTable lists today and the next seven days by name, so the model
// copies dates instead of computing them
func DateTable(now time.Time) string {
	var b strings.Builder
	b.WriteString("\n\n=== DATE LOOKUP TABLE (copy these exact dates) ===\n")
	for i := 0; i <= 7; i++ {
		d := now.AddDate(0, 0, i)
		label := ""
		switch i {
		case 0:
			label = "TODAY: "
		case 1:
			label = "TOMORROW: "
		}
		fmt.Fprintf(&b, "%s%s = %s\n", label, d.Weekday(), d.Format(calendar.DateLayout))
	}
	b.WriteString("=== Never calculate a date yourself; use the table ===\n")
	return b.String()
}

// SystemPrompt assembles the system prompt for one turn
func SystemPrompt(pc PromptContext) string {
	var b strings.Builder
	b.WriteString("You are Nova, a personal secretary. You manage calendar events, tasks, weather and the user's standing rules. Keep replies short and friendly.")
	b.WriteString(DateTable(pc.Now))
	b.WriteString("DATES: take dates from the table above, exactly as written.\n")
	fmt.Fprintf(&b, "Today: %s (%s). Time: %s.",
		calendar.FormatDate(pc.Now), pc.Now.Format(calendar.DateLayout), calendar.Clock(pc.Now))

	if len(pc.Holidays) > 0 {
		fmt.Fprintf(&b, "\n\nToday's holidays: %s", strings.Join(pc.Holidays, ", "))
	}

	if len(pc.PendingTasks) == 0 {
		b.WriteString("\n\nNo pending tasks.")
	} else {
		b.WriteString("\n\nCurrent Tasks:")
		for i, t := range pc.PendingTasks {
			if i == maxPromptTasks {
				break
			}
			fmt.Fprintf(&b, "\n- [%s] %s", strings.ToUpper(t.Meta().Priority), t.Title)
		}
	}

	if len(pc.Rules) > 0 {
		b.WriteString("\n\nUSER RULES (always follow):")
		for i, r := range pc.Rules {
			fmt.Fprintf(&b, "\n%d. %s", i+1, r)
		}
	}

	if m := pc.LastMentioned; m != nil {
		fmt.Fprintf(&b, "\nLast mentioned: %s %q", m.Kind, m.Name)
		if m.Date != "" {
			fmt.Fprintf(&b, " on %s", m.Date)
		}
	}

	weather := pc.Weather
	if weather == "" {
		weather = "unavailable"
	}
	location := pc.Location
	if location == "" {
		location = "unknown"
	}
	fmt.Fprintf(&b, "\nLocation: %s. Weather: %s\n", location, weather)

	b.WriteString(rulesText)
	b.WriteString(grammarText)
	b.WriteString(examplesText(pc.Now))
	return b.String()
}

const rulesText = `
RULES:
1. Reply with one valid JSON value and nothing else: no markdown, no backticks, no commentary.
2. Event names are whatever the user calls them ("worm meeting", "pizza night"). Moving, scheduling, deleting or editing something is always a calendar or task action.
3. "it", "that" or "the meeting" refer to the "Last mentioned" item above.
4. Several requests in one message: {"actions":[...],"response":"combined summary"}.
5. out_of_scope is only for unrelated requests such as trivia, jokes or essays.
6. A bare hour 1-5 means PM. A bare hour 6-11 is ambiguous: ask with ask_ampm.
7. "push back an hour" or "30 minutes earlier" is reschedule_event with timeShift in signed minutes.
8. Set expectsResponse:true whenever you ask the user something.
`

const grammarText = `
ACTIONS (one object, or several inside "actions"):

EVENTS
{"action":"create_event","title":"...","date":"YYYY-MM-DD","startTime":"HH:MM","duration":60,"location":"...","description":"...","response":"..."}
{"action":"delete_event","eventTitle":"...","date":"YYYY-MM-DD","response":"..."}
{"action":"reschedule_event","eventTitle":"...","date":"YYYY-MM-DD","newDate":"YYYY-MM-DD or null","newStartTime":"HH:MM or null","newDuration":null,"timeShift":null,"response":"..."}
  date finds the event; newDate is where it goes; a null newStartTime keeps the current time.
{"action":"update_event","eventTitle":"...","date":"YYYY-MM-DD","updates":{"title":"...","location":"...","description":"..."},"response":"..."}
{"action":"clear_day","date":"YYYY-MM-DD","confirm":false,"response":"...","expectsResponse":true}

RECURRING EVENTS
{"action":"create_recurring_event","title":"...","date":"YYYY-MM-DD","startTime":"HH:MM","duration":60,"recurrence":{"frequency":"daily|weekly|monthly|yearly","interval":1,"daysOfWeek":["MO","WE"],"until":"YYYY-MM-DD or null"},"response":"..."}
  Leave out "until" when the user did not say when it ends; use null for no end.
{"action":"edit_recurring_event","eventTitle":"...","date":"YYYY-MM-DD","editScope":"single|all","updates":{...},"response":"..."}
{"action":"delete_recurring_event","eventTitle":"...","date":"YYYY-MM-DD","deleteScope":"single|all","response":"..."}
{"action":"ask_recurring_scope","eventTitle":"...","date":"YYYY-MM-DD","operation":"edit|delete","updates":{...},"response":"...","expectsResponse":true}

TASKS
{"action":"add_task","title":"...","type":"general|due","dueDate":"YYYY-MM-DD or null","description":"...","priority":"low|medium|high|urgent","response":"..."}
{"action":"edit_task","taskTitle":"...","updates":{"title":"...","dueDate":"...","description":"...","type":"general|due"},"response":"..."}
{"action":"complete_task","taskTitle":"...","response":"..."}
{"action":"uncomplete_task","taskTitle":"...","response":"..."}
{"action":"delete_task","taskTitle":"...","response":"..."}
{"action":"bulk_delete_tasks","filter":"completed|overdue|all","response":"..."}
{"action":"delete_duplicate_tasks","response":"..."}
{"action":"query_tasks","filter":"all|general|due|overdue|today|completed","response":"..."}
{"action":"ask_task_type","title":"...","description":"...","response":"...","expectsResponse":true}

QUERIES
{"action":"check_schedule","date":"YYYY-MM-DD","response":"..."}
{"action":"check_week_schedule","date":"YYYY-MM-DD","response":"..."}
{"action":"check_availability","date":"YYYY-MM-DD","time":"HH:MM","duration":60,"response":"..."}
{"action":"find_free_time","date":"YYYY-MM-DD","duration":30,"response":"..."}

ASKING FOR DETAILS
{"action":"ask_missing_info","eventDetails":{"title":"...","date":null,"startTime":null,"duration":null},"missing":["date","time","duration"],"response":"...","expectsResponse":true}
{"action":"ask_time","eventDetails":{...},"response":"...","expectsResponse":true}
{"action":"ask_ampm","time":"9:00","eventDetails":{...},"response":"...","expectsResponse":true}
{"action":"ask_duration","eventDetails":{...},"response":"...","expectsResponse":true}
{"action":"ask_event_name","partialDetails":{...},"response":"...","expectsResponse":true}

OTHER
{"action":"get_weather","location":"city or current","response":"..."}
{"action":"add_rule","rule":"...","response":"..."}
{"action":"out_of_scope","response":"..."}
`

// examplesText renders few-shot examples with dates taken from the table
func examplesText(now time.Time) string {
	next := func(wd time.Weekday) string {
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead).Format(calendar.DateLayout)
	}
	friday, saturday := next(time.Friday), next(time.Saturday)

	return fmt.Sprintf(`
EXAMPLES:
User: "Move my dentist appointment to Friday and cancel yoga"
{"actions":[{"action":"reschedule_event","eventTitle":"dentist appointment","newDate":"%[1]s","newStartTime":null,"response":""},{"action":"delete_event","eventTitle":"yoga","response":""}],"response":"Moved your dentist appointment to Friday and cancelled yoga."}

User: "Push my meeting back an hour"
{"action":"reschedule_event","eventTitle":"meeting","timeShift":60,"response":"Pushed your meeting back an hour."}

User: "Add buy groceries and finish report by Friday"
{"actions":[{"action":"ask_task_type","title":"buy groceries","response":"","expectsResponse":true},{"action":"add_task","title":"finish report","type":"due","dueDate":"%[1]s","response":""}],"response":"Added 'finish report' due Friday. Does 'buy groceries' have a due date, or is it a general task?"}

User: "Schedule Seattle worm meeting Saturday at 3pm for 2 hours"
{"action":"create_event","title":"Seattle worm meeting","date":"%[2]s","startTime":"15:00","duration":120,"response":""}
`, friday, saturday)
}

// ScheduleDigest lists upcoming events for the user message
func ScheduleDigest(events []calendar.Event, loc *time.Location) string {
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nUpcoming Schedule:")
	for i, e := range events {
		if i == maxDigestEvents {
			break
		}
		start := e.Start.In(loc)
		if e.AllDay {
			fmt.Fprintf(&b, "\n- %s on %s (all day)", e.Summary, e.Start.UTC().Format("Mon 2006-01-02"))
			continue
		}
		fmt.Fprintf(&b, "\n- %s on %s %s-%s", e.Summary, start.Format("Mon 2006-01-02"),
			calendar.Clock(start), calendar.Clock(e.End.In(loc)))
	}
	return b.String()
}

// UserMessage wraps the utterance with the schedule digest
func UserMessage(digest, text string) string {
	return fmt.Sprintf("%s\n\nUser: %q", digest, text)
}
