// Package profiling records how long each stage of a turn takes, one JSON
// line per measurement.
package profiling

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level controls which stages are recorded
type Level string

const (
	LevelOff      Level = "off"
	LevelMinimal  Level = "minimal"  // parse, resume and dispatch per turn
	LevelDetailed Level = "detailed" // plus each action of a batch
)

// ParseLevel maps a config value onto a Level; empty means off
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case "", LevelOff:
		return LevelOff, nil
	case LevelMinimal, LevelDetailed:
		return Level(s), nil
	}
	return LevelOff, fmt.Errorf("unknown profiling level %q (want off, minimal or detailed)", s)
}

// Timing is one measurement
type Timing struct {
	Session    string         `json:"session"`
	Stage      string         `json:"stage"`
	StartTime  time.Time      `json:"start_time"`
	DurationMs float64        `json:"duration_ms"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Profiler writes timings. A nil *Profiler records nothing.
type Profiler struct {
	level Level
	mu    sync.Mutex
	out   io.WriteCloser
	enc   *json.Encoder
	now   func() time.Time
}

// Open creates a profiler appending to statePath/profile.jsonl. At LevelOff
// it returns nil.
func Open(level Level, statePath string) (*Profiler, error) {
	if level == LevelOff {
		return nil, nil
	}
	path := filepath.Join(statePath, "profile.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open profiling log: %w", err)
	}
	return newProfiler(level, f), nil
}

func newProfiler(level Level, w io.WriteCloser) *Profiler {
	return &Profiler{level: level, out: w, enc: json.NewEncoder(w), now: time.Now}
}

// Close closes the log file
func (p *Profiler) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Close()
}

// Start begins timing a stage at the given level and returns the function
// that records it
func (p *Profiler) Start(level Level, session, stage string) func(metadata map[string]any) {
	if !p.Enabled(level) {
		return func(map[string]any) {}
	}
	start := p.now()
	return func(metadata map[string]any) {
		p.Record(session, stage, start, p.now().Sub(start), metadata)
	}
}

// Record writes one measurement
func (p *Profiler) Record(session, stage string, start time.Time, d time.Duration, metadata map[string]any) {
	if p == nil {
		return
	}
	t := Timing{
		Session:    session,
		Stage:      stage,
		StartTime:  start,
		DurationMs: float64(d.Nanoseconds()) / 1e6,
		Metadata:   metadata,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.enc.Encode(t)
}

// Enabled reports whether stages at level are recorded
func (p *Profiler) Enabled(level Level) bool {
	if p == nil {
		return false
	}
	switch p.level {
	case LevelDetailed:
		return level == LevelMinimal || level == LevelDetailed
	case LevelMinimal:
		return level == LevelMinimal
	}
	return false
}
