// Package session holds per-conversation state: the outstanding pending
// action and the bounded exchange history with the intent model.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vthunder/nova/internal/pending"
)

// HistoryLimit is the number of messages kept for the intent model
const HistoryLimit = 10

// Message is one entry in the model exchange history
type Message struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// Mention is the entity most recently named, for "it" and "that meeting"
type Mention struct {
	Kind string // event or task
	Name string
	Date string // YYYY-MM-DD, optional
}

// Context is the conversation context fed to the next intent parse
type Context struct {
	history       []Message
	LastMentioned *Mention
}

// History returns a copy of the retained messages, oldest first
func (c *Context) History() []Message {
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// Append adds messages, evicting the oldest beyond HistoryLimit
func (c *Context) Append(msgs ...Message) {
	c.history = append(c.history, msgs...)
	if over := len(c.history) - HistoryLimit; over > 0 {
		c.history = append([]Message(nil), c.history[over:]...)
	}
}

// Remember records the last-mentioned entity
func (c *Context) Remember(kind, name, date string) {
	c.LastMentioned = &Mention{Kind: kind, Name: name, Date: date}
}

// Session owns the pending action and the context for one conversation.
// Surfaces hold Lock for the whole of a turn.
type Session struct {
	ID      string
	Pending pending.Action
	Context Context

	mu       sync.Mutex
	lastSeen time.Time
}

// New creates a standalone session
func New(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{ID: id}
}

// Lock serialises turns on this session
func (s *Session) Lock() { s.mu.Lock() }

// Unlock ends a turn
func (s *Session) Unlock() { s.mu.Unlock() }

// Store hands out sessions by ID and forgets idle ones
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store; ttl <= 0 keeps sessions forever
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (st *Store) expired(s *Session, now time.Time) bool {
	return st.ttl > 0 && now.Sub(s.lastSeen) > st.ttl
}

// Get returns the session for id, creating it when missing or expired.
// An empty id gets a fresh random one.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if s, ok := st.sessions[id]; ok && id != "" {
		if !st.expired(s, now) {
			s.lastSeen = now
			return s
		}
		delete(st.sessions, id)
	}
	s := New(id)
	s.lastSeen = now
	st.sessions[s.ID] = s
	return s
}

// Delete forgets a session
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Sweep removes expired sessions and reports how many were dropped
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	n := 0
	for id, s := range st.sessions {
		if st.expired(s, now) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
