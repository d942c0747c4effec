// Package journal keeps an append-only audit of conversation turns and the
// actions dispatched for them.
package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// EntryType identifies what kind of journal entry this is
type EntryType string

const (
	EntryUtterance EntryType = "utterance" // User said something
	EntryAction    EntryType = "action"    // Dispatcher ran an action
	EntryPending   EntryType = "pending"   // Pending action opened or resolved
	EntryError     EntryType = "error"     // Parse or API failure
)

// Entry represents a single journal entry
type Entry struct {
	Timestamp time.Time      `json:"ts"`
	Type      EntryType      `json:"type"`
	Session   string         `json:"session,omitempty"`
	Summary   string         `json:"summary,omitempty"` // action name, pending kind or utterance
	Outcome   string         `json:"outcome,omitempty"` // message shown to the user
	Success   *bool          `json:"success,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Journal writes entries to <state>/journal.jsonl
type Journal struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New creates a journal writer
func New(statePath string) *Journal {
	return &Journal{
		path: filepath.Join(statePath, "journal.jsonl"),
		now:  time.Now,
	}
}

// Log writes an entry to the journal
func (j *Journal) Log(entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = j.now()
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// LogUtterance records raw user input
func (j *Journal) LogUtterance(session, text string) error {
	return j.Log(Entry{Type: EntryUtterance, Session: session, Summary: text})
}

// LogAction records a dispatched action and its result
func (j *Journal) LogAction(session, action, message string, success bool, data map[string]any) error {
	return j.Log(Entry{
		Type:    EntryAction,
		Session: session,
		Summary: action,
		Outcome: message,
		Success: &success,
		Data:    data,
	})
}

// LogPending records a pending-action transition ("opened", "resolved", "cancelled")
func (j *Journal) LogPending(session, kind, transition string) error {
	return j.Log(Entry{Type: EntryPending, Session: session, Summary: kind, Outcome: transition})
}

// LogError records a contained failure
func (j *Journal) LogError(session, stage string, err error) error {
	return j.Log(Entry{
		Type:    EntryError,
		Session: session,
		Summary: stage,
		Outcome: err.Error(),
	})
}

// Recent returns the last n entries from the journal
func (j *Journal) Recent(n int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, line := range splitLines(data) {
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue // skip malformed entries
		}
		entries = append(entries, entry)
	}

	if n >= len(entries) {
		return entries, nil
	}
	return entries[len(entries)-n:], nil
}

// Session returns the most recent entries for one session, oldest first
func (j *Journal) Session(id string, n int) ([]Entry, error) {
	entries, err := j.Recent(1000)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range entries {
		if e.Session == id {
			out = append(out, e)
		}
	}
	if n < len(out) {
		out = out[len(out)-n:]
	}
	return out, nil
}

// Today returns entries written since local midnight
func (j *Journal) Today() ([]Entry, error) {
	entries, err := j.Recent(1000)
	if err != nil {
		return nil, err
	}

	now := j.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var todayEntries []Entry
	for _, e := range entries {
		if !e.Timestamp.Before(today) {
			todayEntries = append(todayEntries, e)
		}
	}
	return todayEntries, nil
}

// Line renders an entry as one human-readable line
func (e Entry) Line() string {
	var b strings.Builder
	b.WriteString(e.Timestamp.Format("2006-01-02 15:04"))
	b.WriteString(" [" + string(e.Type) + "]")
	if e.Session != "" {
		b.WriteString(" " + e.Session + ":")
	}
	if e.Summary != "" {
		b.WriteString(" " + e.Summary)
	}
	if e.Outcome != "" {
		b.WriteString(" -> " + e.Outcome)
	}
	if e.Success != nil && !*e.Success {
		b.WriteString(" (failed)")
	}
	return b.String()
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
