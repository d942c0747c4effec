package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when an event id does not exist
var ErrNotFound = errors.New("event not found")

// Store is the calendar backend the assistant mutates
type Store interface {
	ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error)
	CreateEvent(ctx context.Context, params CreateEventParams) (*Event, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, patch EventPatch) (*Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// ListEventsParams for querying events
type ListEventsParams struct {
	TimeMin    time.Time // Start of time range (required)
	TimeMax    time.Time // End of time range (required)
	MaxResults int       // Max events to return per calendar (default 250)
	Query      string    // Free text search
}

// CreateEventParams for creating a new event
type CreateEventParams struct {
	CalendarID  string // empty = primary calendar
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Recurrence  []string // RRULE lines
}

// EventPatch lists the fields to change; nil fields are left alone
type EventPatch struct {
	Summary     *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time
}

// Apply copies the set fields of p onto e
func (p EventPatch) Apply(e *Event) {
	if p.Summary != nil {
		e.Summary = *p.Summary
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Start != nil {
		e.Start = *p.Start
		e.AllDay = false
	}
	if p.End != nil {
		e.End = *p.End
	}
}
