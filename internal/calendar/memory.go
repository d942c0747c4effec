package calendar

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mutation is one write recorded by MemoryStore
type Mutation struct {
	Seq        int       `json:"seq"`
	At         time.Time `json:"at"`
	Op         string    `json:"op"` // create, update, delete
	CalendarID string    `json:"calendar_id"`
	EventID    string    `json:"event_id"`
	Summary    string    `json:"summary"`
}

// MemoryStore is an in-process Store used when no Google credentials are
// configured, and by tests. Recurring series are stored as a single master.
type MemoryStore struct {
	mu        sync.RWMutex
	events    map[string]*Event // keyed by calendarID + "/" + id
	mutations []Mutation
	primary   string

	// Now stamps mutations; defaults to time.Now
	Now func() time.Time
}

// NewMemoryStore creates an empty store whose primary calendar is "primary"
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:  make(map[string]*Event),
		primary: "primary",
		Now:     time.Now,
	}
}

func memKey(calendarID, eventID string) string {
	return calendarID + "/" + eventID
}

// Seed inserts events as-is (ids are kept when set). Seeding is not recorded as a mutation.
func (s *MemoryStore) Seed(events ...Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if e.ID == "" {
			e.ID = newEventID()
		}
		if e.CalendarID == "" {
			e.CalendarID = s.primary
		}
		if e.Status == "" {
			e.Status = "confirmed"
		}
		ev := e
		s.events[memKey(e.CalendarID, e.ID)] = &ev
	}
}

// Mutations returns a copy of the write log in order
func (s *MemoryStore) Mutations() []Mutation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Mutation, len(s.mutations))
	copy(out, s.mutations)
	return out
}

// All returns every stored event sorted by start
func (s *MemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(*Event) bool { return true })
}

func (s *MemoryStore) record(op string, e *Event) {
	s.mutations = append(s.mutations, Mutation{
		Seq:        len(s.mutations) + 1,
		At:         s.Now(),
		Op:         op,
		CalendarID: e.CalendarID,
		EventID:    e.ID,
		Summary:    e.Summary,
	})
}

func (s *MemoryStore) sortedLocked(keep func(*Event) bool) []Event {
	var out []Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, *e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// ListEvents returns events overlapping [TimeMin, TimeMax)
func (s *MemoryStore) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(params.Query)
	out := s.sortedLocked(func(e *Event) bool {
		if e.Status == "cancelled" {
			return false
		}
		if query != "" && !strings.Contains(strings.ToLower(e.Summary), query) {
			return false
		}
		return e.Start.Before(params.TimeMax) && e.End.After(params.TimeMin)
	})
	if params.MaxResults > 0 && len(out) > params.MaxResults {
		out = out[:params.MaxResults]
	}
	return out, nil
}

// GetEvent returns a copy of a stored event
func (s *MemoryStore) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[memKey(s.orPrimary(calendarID), eventID)]
	if !ok {
		return nil, ErrNotFound
	}
	ev := *e
	return &ev, nil
}

// CreateEvent stores a new event with a fresh id
func (s *MemoryStore) CreateEvent(ctx context.Context, params CreateEventParams) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &Event{
		ID:          newEventID(),
		CalendarID:  s.orPrimary(params.CalendarID),
		Summary:     params.Summary,
		Description: params.Description,
		Location:    params.Location,
		Start:       params.Start,
		End:         params.End,
		AllDay:      params.AllDay,
		Status:      "confirmed",
		Recurrence:  params.Recurrence,
	}
	s.events[memKey(e.CalendarID, e.ID)] = e
	s.record("create", e)

	ev := *e
	return &ev, nil
}

// UpdateEvent applies patch to a stored event
func (s *MemoryStore) UpdateEvent(ctx context.Context, calendarID, eventID string, patch EventPatch) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[memKey(s.orPrimary(calendarID), eventID)]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(e)
	s.record("update", e)

	ev := *e
	return &ev, nil
}

// DeleteEvent removes an event. Deleting a series id also removes its instances.
func (s *MemoryStore) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	calendarID = s.orPrimary(calendarID)
	key := memKey(calendarID, eventID)
	e, ok := s.events[key]
	if !ok {
		return ErrNotFound
	}
	delete(s.events, key)
	s.record("delete", e)

	for k, inst := range s.events {
		if inst.CalendarID == calendarID && inst.RecurringEventID == eventID {
			delete(s.events, k)
			s.record("delete", inst)
		}
	}
	return nil
}

func (s *MemoryStore) orPrimary(calendarID string) string {
	if calendarID == "" {
		return s.primary
	}
	return calendarID
}

// newEventID returns a Google-compatible id (base32hex, no dashes)
func newEventID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
