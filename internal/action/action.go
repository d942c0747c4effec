// Package action defines the structured actions the intent model replies
// with and decodes them into a closed set of Go types.
package action

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Action is one decoded instruction. The set of implementations is closed.
type Action interface {
	// Name is the wire name of the action ("create_event")
	Name() string
	base() *Base
}

// Base carries the fields every action has
type Base struct {
	Response        string `json:"response"`
	ExpectsResponse bool   `json:"expectsResponse,omitempty"`
}

func (b *Base) base() *Base { return b }

// Meta returns the response fields of any action
func Meta(a Action) Base { return *a.base() }

// Scope selects one occurrence or a whole recurring series
type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeAll    Scope = "all"
)

// Minutes is a duration in minutes. It accepts a JSON number, a numeric
// string or null.
type Minutes int

func (m *Minutes) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "null" || s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid minutes %s", b)
	}
	*m = Minutes(f)
	return nil
}

// OptionalDate distinguishes an absent date, an explicit null and a date
type OptionalDate struct {
	Set  bool   // the key was present
	Date string // empty when null
}

func (d *OptionalDate) UnmarshalJSON(b []byte) error {
	d.Set = true
	if string(b) == "null" {
		d.Date = ""
		return nil
	}
	return json.Unmarshal(b, &d.Date)
}

func (d OptionalDate) MarshalJSON() ([]byte, error) {
	if d.Date == "" {
		return []byte("null"), nil
	}
	return json.Marshal(d.Date)
}

// Null reports an explicit "no end"
func (d OptionalDate) Null() bool { return d.Set && d.Date == "" }

// EventDetails is a possibly partial description of an event to create
type EventDetails struct {
	Title       string  `json:"title,omitempty"`
	Date        string  `json:"date,omitempty"`
	StartTime   string  `json:"startTime,omitempty"`
	Duration    Minutes `json:"duration,omitempty"`
	Location    string  `json:"location,omitempty"`
	Description string  `json:"description,omitempty"`
}

// EventUpdates lists changes to an existing event
type EventUpdates struct {
	Title       string  `json:"title,omitempty"`
	Location    *string `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        string  `json:"date,omitempty"`
	StartTime   string  `json:"startTime,omitempty"`
	Duration    Minutes `json:"duration,omitempty"`
}

// TaskUpdates lists changes to an existing task
type TaskUpdates struct {
	Title       string  `json:"title,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        string  `json:"type,omitempty"`
}

// RecurrenceSpec is the recurrence block of create_recurring_event
type RecurrenceSpec struct {
	Frequency  string       `json:"frequency"`
	Interval   int          `json:"interval,omitempty"`
	DaysOfWeek []string     `json:"daysOfWeek,omitempty"`
	Until      OptionalDate `json:"until"`
}

// Events

type CreateEvent struct {
	Base
	EventDetails
}

type DeleteEvent struct {
	Base
	EventTitle string `json:"eventTitle"`
	Date       string `json:"date,omitempty"`
}

type UpdateEvent struct {
	Base
	EventTitle string       `json:"eventTitle"`
	Date       string       `json:"date,omitempty"`
	Updates    EventUpdates `json:"updates"`
}

type RescheduleEvent struct {
	Base
	EventTitle   string  `json:"eventTitle"`
	Date         string  `json:"date,omitempty"`
	NewDate      string  `json:"newDate,omitempty"`
	NewStartTime string  `json:"newStartTime,omitempty"`
	NewDuration  Minutes `json:"newDuration,omitempty"`
	TimeShift    Minutes `json:"timeShift,omitempty"` // signed
}

type ClearDay struct {
	Base
	Date    string `json:"date"`
	Confirm bool   `json:"confirm,omitempty"`
}

// Recurring events

type CreateRecurringEvent struct {
	Base
	EventDetails
	Recurrence RecurrenceSpec `json:"recurrence"`
}

type EditRecurringEvent struct {
	Base
	EventTitle string       `json:"eventTitle"`
	Date       string       `json:"date,omitempty"`
	EditScope  Scope        `json:"editScope,omitempty"`
	Updates    EventUpdates `json:"updates"`
}

type DeleteRecurringEvent struct {
	Base
	EventTitle  string `json:"eventTitle"`
	Date        string `json:"date,omitempty"`
	DeleteScope Scope  `json:"deleteScope,omitempty"`
}

type AskRecurringScope struct {
	Base
	EventTitle string       `json:"eventTitle"`
	Date       string       `json:"date,omitempty"`
	Operation  string       `json:"operation"` // edit or delete
	Updates    EventUpdates `json:"updates"`
}

// Tasks

type AddTask struct {
	Base
	Title       string `json:"title"`
	Type        string `json:"type,omitempty"` // general or due
	DueDate     string `json:"dueDate,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

type EditTask struct {
	Base
	TaskTitle string      `json:"taskTitle"`
	Updates   TaskUpdates `json:"updates"`
}

type CompleteTask struct {
	Base
	TaskTitle string `json:"taskTitle"`
}

type UncompleteTask struct {
	Base
	TaskTitle string `json:"taskTitle"`
}

type DeleteTask struct {
	Base
	TaskTitle string `json:"taskTitle"`
}

type BulkDeleteTasks struct {
	Base
	Filter string `json:"filter,omitempty"` // completed (default), overdue, all
}

type DeleteDuplicateTasks struct {
	Base
}

type QueryTasks struct {
	Base
	Filter string `json:"filter,omitempty"`
}

type AskTaskType struct {
	Base
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Queries

type CheckSchedule struct {
	Base
	Date string `json:"date"`
}

type CheckWeekSchedule struct {
	Base
	Date string `json:"date"`
}

type CheckAvailability struct {
	Base
	Date     string  `json:"date"`
	Time     string  `json:"time"`
	Duration Minutes `json:"duration,omitempty"`
}

type FindFreeTime struct {
	Base
	Date     string  `json:"date"`
	Duration Minutes `json:"duration,omitempty"`
}

// Clarification

type AskTime struct {
	Base
	EventDetails EventDetails `json:"eventDetails"`
}

type AskAmPm struct {
	Base
	Time         string       `json:"time"`
	EventDetails EventDetails `json:"eventDetails"`
}

type AskDuration struct {
	Base
	EventDetails EventDetails `json:"eventDetails"`
}

type AskMissingInfo struct {
	Base
	EventDetails EventDetails `json:"eventDetails"`
	Missing      []string     `json:"missing"`
}

type AskEventName struct {
	Base
	PartialDetails EventDetails `json:"partialDetails"`
}

// Other

type GetWeather struct {
	Base
	Location string `json:"location"` // city or "current"
}

type AddRule struct {
	Base
	Rule string `json:"rule"`
}

type OutOfScope struct {
	Base
}

// Unknown is any action name this build does not recognise
type Unknown struct {
	Base
	Action string `json:"action"`
}

func (*CreateEvent) Name() string          { return "create_event" }
func (*DeleteEvent) Name() string          { return "delete_event" }
func (*UpdateEvent) Name() string          { return "update_event" }
func (*RescheduleEvent) Name() string      { return "reschedule_event" }
func (*ClearDay) Name() string             { return "clear_day" }
func (*CreateRecurringEvent) Name() string { return "create_recurring_event" }
func (*EditRecurringEvent) Name() string   { return "edit_recurring_event" }
func (*DeleteRecurringEvent) Name() string { return "delete_recurring_event" }
func (*AskRecurringScope) Name() string    { return "ask_recurring_scope" }
func (*AddTask) Name() string              { return "add_task" }
func (*EditTask) Name() string             { return "edit_task" }
func (*CompleteTask) Name() string         { return "complete_task" }
func (*UncompleteTask) Name() string       { return "uncomplete_task" }
func (*DeleteTask) Name() string           { return "delete_task" }
func (*BulkDeleteTasks) Name() string      { return "bulk_delete_tasks" }
func (*DeleteDuplicateTasks) Name() string { return "delete_duplicate_tasks" }
func (*QueryTasks) Name() string           { return "query_tasks" }
func (*AskTaskType) Name() string          { return "ask_task_type" }
func (*CheckSchedule) Name() string        { return "check_schedule" }
func (*CheckWeekSchedule) Name() string    { return "check_week_schedule" }
func (*CheckAvailability) Name() string    { return "check_availability" }
func (*FindFreeTime) Name() string         { return "find_free_time" }
func (*AskTime) Name() string              { return "ask_time" }
func (*AskAmPm) Name() string              { return "ask_ampm" }
func (*AskDuration) Name() string          { return "ask_duration" }
func (*AskMissingInfo) Name() string       { return "ask_missing_info" }
func (*AskEventName) Name() string         { return "ask_event_name" }
func (*GetWeather) Name() string           { return "get_weather" }
func (*AddRule) Name() string              { return "add_rule" }
func (*OutOfScope) Name() string           { return "out_of_scope" }
func (u *Unknown) Name() string            { return u.Action }

var registry = map[string]func() Action{
	"create_event":           func() Action { return &CreateEvent{} },
	"delete_event":           func() Action { return &DeleteEvent{} },
	"update_event":           func() Action { return &UpdateEvent{} },
	"reschedule_event":       func() Action { return &RescheduleEvent{} },
	"clear_day":              func() Action { return &ClearDay{} },
	"create_recurring_event": func() Action { return &CreateRecurringEvent{} },
	"edit_recurring_event":   func() Action { return &EditRecurringEvent{} },
	"delete_recurring_event": func() Action { return &DeleteRecurringEvent{} },
	"ask_recurring_scope":    func() Action { return &AskRecurringScope{} },
	"add_task":               func() Action { return &AddTask{} },
	"edit_task":              func() Action { return &EditTask{} },
	"complete_task":          func() Action { return &CompleteTask{} },
	"uncomplete_task":        func() Action { return &UncompleteTask{} },
	"delete_task":            func() Action { return &DeleteTask{} },
	"bulk_delete_tasks":      func() Action { return &BulkDeleteTasks{} },
	"delete_duplicate_tasks": func() Action { return &DeleteDuplicateTasks{} },
	"query_tasks":            func() Action { return &QueryTasks{} },
	"ask_task_type":          func() Action { return &AskTaskType{} },
	"check_schedule":         func() Action { return &CheckSchedule{} },
	"check_week_schedule":    func() Action { return &CheckWeekSchedule{} },
	"check_availability":     func() Action { return &CheckAvailability{} },
	"find_free_time":         func() Action { return &FindFreeTime{} },
	"ask_time":               func() Action { return &AskTime{} },
	"ask_ampm":               func() Action { return &AskAmPm{} },
	"ask_duration":           func() Action { return &AskDuration{} },
	"ask_missing_info":       func() Action { return &AskMissingInfo{} },
	"ask_event_name":         func() Action { return &AskEventName{} },
	"get_weather":            func() Action { return &GetWeather{} },
	"add_rule":               func() Action { return &AddRule{} },
	"out_of_scope":           func() Action { return &OutOfScope{} },
}

// Known reports whether name is a recognised action
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns every recognised action name
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}
