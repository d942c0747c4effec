package profiling

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func decode(t *testing.T, buf *bytes.Buffer) []Timing {
	t.Helper()
	var out []Timing
	dec := json.NewDecoder(buf)
	for dec.More() {
		var tm Timing
		if err := dec.Decode(&tm); err != nil {
			t.Fatalf("decode timing: %v", err)
		}
		out = append(out, tm)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelOff, false},
		{"off", LevelOff, false},
		{"minimal", LevelMinimal, false},
		{"detailed", LevelDetailed, false},
		{"trace", LevelOff, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	var off *Profiler
	if off.Enabled(LevelMinimal) {
		t.Error("nil profiler should be disabled")
	}
	minimal := newProfiler(LevelMinimal, nopCloser{&bytes.Buffer{}})
	if !minimal.Enabled(LevelMinimal) || minimal.Enabled(LevelDetailed) {
		t.Error("minimal should record only minimal stages")
	}
	detailed := newProfiler(LevelDetailed, nopCloser{&bytes.Buffer{}})
	if !detailed.Enabled(LevelMinimal) || !detailed.Enabled(LevelDetailed) {
		t.Error("detailed should record both levels")
	}
}

func TestStartRecords(t *testing.T) {
	buf := &bytes.Buffer{}
	p := newProfiler(LevelMinimal, nopCloser{buf})
	at := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	done := p.Start(LevelMinimal, "cli", "parse")
	at = at.Add(1500 * time.Millisecond)
	done(map[string]any{"actions": 2})

	p.Start(LevelDetailed, "cli", "action")(nil)

	got := decode(t, buf)
	if len(got) != 1 {
		t.Fatalf("got %d timings, want 1", len(got))
	}
	if got[0].Stage != "parse" || got[0].Session != "cli" || got[0].DurationMs != 1500 {
		t.Errorf("unexpected timing %+v", got[0])
	}
	if got[0].Metadata["actions"] != float64(2) {
		t.Errorf("metadata = %v", got[0].Metadata)
	}
}

func TestNilProfilerIsSafe(t *testing.T) {
	var p *Profiler
	p.Start(LevelMinimal, "s", "parse")(nil)
	p.Record("s", "parse", time.Now(), time.Second, nil)
	if err := p.Close(); err != nil {
		t.Error(err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	p, err := Open(LevelOff, dir)
	if err != nil || p != nil {
		t.Fatalf("off should give nil profiler, got %v %v", p, err)
	}

	p, err = Open(LevelMinimal, dir)
	if err != nil {
		t.Fatal(err)
	}
	p.Record("cli", "dispatch", time.Now(), time.Millisecond, nil)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "profile.jsonl"))
	if err != nil || !bytes.Contains(data, []byte(`"stage":"dispatch"`)) {
		t.Errorf("profile.jsonl = %s, %v", data, err)
	}
}
