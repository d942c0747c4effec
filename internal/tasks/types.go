package tasks

import (
	"context"
	"errors"
	"time"
)

// Task statuses, as in Google Tasks
const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

// Type distinguishes open-ended tasks from tasks with a deadline
type Type string

const (
	General Type = "general"
	Due     Type = "due"
)

// Priority levels stored in the notes tags
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ErrNotFound is returned when a task id does not exist
var ErrNotFound = errors.New("task not found")

// Task represents a user task
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"` // [TYPE:..][PRIORITY:..][TIME:..]description
	Due         string     `json:"due,omitempty"`   // YYYY-MM-DD
	Status      string     `json:"status"`          // needsAction, completed
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Order       float64    `json:"order"`
}

// IsCompleted reports whether the task is done
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// Meta returns the parsed notes tags
func (t *Task) Meta() Notes {
	return ParseNotes(t.Notes)
}

// Store is the task backend
type Store interface {
	List(ctx context.Context) ([]Task, error)
	Get(ctx context.Context, id string) (*Task, error)
	Add(ctx context.Context, task *Task) error
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
}
