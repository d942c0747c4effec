package action

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Reply is a decoded model reply: one action, or an ordered batch
type Reply struct {
	Actions  []Action
	Response string // batch-level response; empty for single actions
	Batch    bool
}

type envelope struct {
	Action   *string           `json:"action"`
	Actions  []json.RawMessage `json:"actions"`
	Response string            `json:"response"`
}

// ErrNoAction is returned when a reply names neither an action nor a batch
var ErrNoAction = errors.New("reply has no action")

// Decode parses a model reply shaped either as a single action object or
// as {"actions":[...],"response":"..."}
func Decode(data []byte) (Reply, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Reply{}, fmt.Errorf("decode reply: %w", err)
	}

	if env.Actions != nil {
		r := Reply{Response: env.Response, Batch: true, Actions: make([]Action, 0, len(env.Actions))}
		for i, raw := range env.Actions {
			a, err := decodeOne(raw)
			if err != nil {
				return Reply{}, fmt.Errorf("decode actions[%d]: %w", i, err)
			}
			r.Actions = append(r.Actions, a)
		}
		return r, nil
	}

	if env.Action == nil {
		return Reply{}, ErrNoAction
	}
	a, err := decodeOne(data)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Actions: []Action{a}}, nil
}

func decodeOne(raw json.RawMessage) (Action, error) {
	var probe struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if probe.Action == "" {
		return nil, ErrNoAction
	}

	newAction, ok := registry[probe.Action]
	if !ok {
		u := &Unknown{}
		if err := json.Unmarshal(raw, u); err != nil {
			return nil, fmt.Errorf("decode %s: %w", probe.Action, err)
		}
		return u, nil
	}
	a := newAction()
	if err := json.Unmarshal(raw, a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", probe.Action, err)
	}
	return a, nil
}

// Subject returns the entity an action names, for pronoun tracking.
// kind is "task" for task actions and "event" otherwise.
func Subject(a Action) (kind, name, date string, ok bool) {
	switch v := a.(type) {
	case *AddTask:
		return "task", v.Title, v.DueDate, v.Title != ""
	case *AskTaskType:
		return "task", v.Title, "", v.Title != ""
	case *EditTask:
		return "task", v.TaskTitle, "", v.TaskTitle != ""
	case *CompleteTask:
		return "task", v.TaskTitle, "", v.TaskTitle != ""
	case *UncompleteTask:
		return "task", v.TaskTitle, "", v.TaskTitle != ""
	case *DeleteTask:
		return "task", v.TaskTitle, "", v.TaskTitle != ""
	case *CreateEvent:
		return "event", v.Title, v.Date, v.Title != ""
	case *CreateRecurringEvent:
		return "event", v.Title, v.Date, v.Title != ""
	case *DeleteEvent:
		return "event", v.EventTitle, v.Date, v.EventTitle != ""
	case *UpdateEvent:
		return "event", v.EventTitle, v.Date, v.EventTitle != ""
	case *RescheduleEvent:
		date = v.Date
		if date == "" {
			date = v.NewDate
		}
		return "event", v.EventTitle, date, v.EventTitle != ""
	case *EditRecurringEvent:
		return "event", v.EventTitle, v.Date, v.EventTitle != ""
	case *DeleteRecurringEvent:
		return "event", v.EventTitle, v.Date, v.EventTitle != ""
	case *AskRecurringScope:
		return "event", v.EventTitle, v.Date, v.EventTitle != ""
	}
	return "", "", "", false
}

// Target returns a pointer to the title field used to resolve an existing
// entity, so pronouns can be substituted before resolution
func Target(a Action) *string {
	switch v := a.(type) {
	case *DeleteEvent:
		return &v.EventTitle
	case *UpdateEvent:
		return &v.EventTitle
	case *RescheduleEvent:
		return &v.EventTitle
	case *EditRecurringEvent:
		return &v.EventTitle
	case *DeleteRecurringEvent:
		return &v.EventTitle
	case *AskRecurringScope:
		return &v.EventTitle
	case *EditTask:
		return &v.TaskTitle
	case *CompleteTask:
		return &v.TaskTitle
	case *UncompleteTask:
		return &v.TaskTitle
	case *DeleteTask:
		return &v.TaskTitle
	}
	return nil
}
