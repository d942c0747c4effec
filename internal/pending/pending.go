// Package pending models what the assistant is waiting to hear next. Each
// variant stores exactly what is needed to finish the original request.
package pending

import (
	"github.com/vthunder/nova/internal/action"
	"github.com/vthunder/nova/internal/calendar"
	"github.com/vthunder/nova/internal/tasks"
)

// Kind names a pending state
type Kind string

const (
	KindTaskType          Kind = "task_type"
	KindTaskDueDate       Kind = "task_due_date"
	KindConfirmBulkDelete Kind = "confirm_bulk_delete"
	KindTime              Kind = "time"
	KindAmPm              Kind = "ampm"
	KindConfirmTask       Kind = "confirm_task"
	KindConfirmEvent      Kind = "confirm_event"
	KindConfirmConflict   Kind = "confirm_conflict"
	KindDuration          Kind = "duration"
	KindConfirmClearDay   Kind = "confirm_clear_day"
	KindRecurringEndDate  Kind = "recurring_end_date"
	KindRecurringScope    Kind = "recurring_scope"
	KindMissingInfo       Kind = "missing_info"
	KindEventName         Kind = "event_name"
)

// Operations carried by confirm_task, confirm_event and recurring_scope
const (
	OpComplete   = "complete"
	OpUncomplete = "uncomplete"
	OpDelete     = "delete"
	OpEdit       = "edit"
	OpUpdate     = "update"
	OpReschedule = "reschedule"
)

// Action is an outstanding clarification or confirmation. The set of
// implementations is closed.
type Action interface {
	Kind() Kind
	sealed()
}

type kindless struct{}

func (kindless) sealed() {}

// TaskType waits for "general" or a due date for a new task
type TaskType struct {
	kindless
	Title       string
	Description string
}

// TaskDueDate waits for the due date of a new task
type TaskDueDate struct {
	kindless
	Title       string
	Description string
}

// ConfirmBulkDelete waits for yes/no before deleting every task
type ConfirmBulkDelete struct {
	kindless
	Count int
}

// Time waits for the start time of an event
type Time struct {
	kindless
	Details action.EventDetails
}

// AmPm waits for the period of an ambiguous hour
type AmPm struct {
	kindless
	Time    string // H:MM, 12-hour
	Details action.EventDetails
}

// ConfirmTask waits for yes/no on a medium-confidence task match
type ConfirmTask struct {
	kindless
	Task      tasks.Task
	Operation string // complete, uncomplete, delete or edit
	Updates   action.TaskUpdates
}

// ConfirmEvent waits for yes/no on a medium-confidence event match
type ConfirmEvent struct {
	kindless
	Event     calendar.Event
	Operation string // delete, reschedule or update
	Updates   action.EventUpdates
	Shift     calendar.Shift
}

// ConfirmConflict waits for yes/no to create an event despite overlaps
type ConfirmConflict struct {
	kindless
	Details action.EventDetails
}

// Duration waits for an event's length
type Duration struct {
	kindless
	Details action.EventDetails
}

// ConfirmClearDay waits for yes/no before clearing a day
type ConfirmClearDay struct {
	kindless
	Date  string
	Count int
}

// RecurringEndDate waits for when a new series should stop
type RecurringEndDate struct {
	kindless
	Details    action.EventDetails
	Recurrence calendar.Recurrence
}

// RecurringScope waits for "this one" or "all of them"
type RecurringScope struct {
	kindless
	Event     calendar.Event
	Operation string // edit or delete
	Updates   action.EventUpdates
}

// MissingInfo waits for any of date, time and duration
type MissingInfo struct {
	kindless
	Details action.EventDetails
	Missing []string
}

// EventName waits for the title of an event
type EventName struct {
	kindless
	Details action.EventDetails
}

func (TaskType) Kind() Kind          { return KindTaskType }
func (TaskDueDate) Kind() Kind       { return KindTaskDueDate }
func (ConfirmBulkDelete) Kind() Kind { return KindConfirmBulkDelete }
func (Time) Kind() Kind              { return KindTime }
func (AmPm) Kind() Kind              { return KindAmPm }
func (ConfirmTask) Kind() Kind       { return KindConfirmTask }
func (ConfirmEvent) Kind() Kind      { return KindConfirmEvent }
func (ConfirmConflict) Kind() Kind   { return KindConfirmConflict }
func (Duration) Kind() Kind          { return KindDuration }
func (ConfirmClearDay) Kind() Kind   { return KindConfirmClearDay }
func (RecurringEndDate) Kind() Kind  { return KindRecurringEndDate }
func (RecurringScope) Kind() Kind    { return KindRecurringScope }
func (MissingInfo) Kind() Kind       { return KindMissingInfo }
func (EventName) Kind() Kind         { return KindEventName }

// Missing lists which of date, time and duration details still lacks
func Missing(d action.EventDetails) []string {
	var missing []string
	if d.Date == "" {
		missing = append(missing, "date")
	}
	if d.StartTime == "" {
		missing = append(missing, "time")
	}
	if d.Duration <= 0 {
		missing = append(missing, "duration")
	}
	return missing
}
