package intent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vthunder/nova/internal/action"
	"github.com/vthunder/nova/internal/calendar"
	"github.com/vthunder/nova/internal/session"
	"github.com/vthunder/nova/internal/tasks"
)

var now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC) // Friday

type fakeCompleter struct {
	reply  string
	err    error
	system string
	msgs   []session.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, msgs []session.Message) (string, error) {
	f.system, f.msgs = system, msgs
	return f.reply, f.err
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", `{"action":"out_of_scope"}`, `{"action":"out_of_scope"}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Sure! {\"a\":1} Hope that helps.", `{"a":1}`},
		{"nothing", "no json here", "no json here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDateTable(t *testing.T) {
	table := DateTable(now)
	for _, want := range []string{
		"TODAY: Friday = 2026-10-16",
		"TOMORROW: Saturday = 2026-10-17",
		"Friday = 2026-10-23",
	} {
		if !strings.Contains(table, want) {
			t.Errorf("date table missing %q:\n%s", want, table)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	pc := PromptContext{
		Now:           now,
		Holidays:      []string{"Boss's Day"},
		PendingTasks:  []tasks.Task{{Title: "Pay rent", Notes: "[PRIORITY:high]"}, {Title: "Call mom"}},
		Rules:         []string{"Never schedule before 9am"},
		LastMentioned: &session.Mention{Kind: "event", Name: "Dentist", Date: "2026-10-20"},
		Location:      "Seattle",
		Weather:       "55°F, light rain",
	}
	prompt := SystemPrompt(pc)
	for _, want := range []string{
		"Today: Friday, October 16, 2026",
		"Time: 10:00 AM.",
		"Today's holidays: Boss's Day",
		"- [HIGH] Pay rent",
		"- [MEDIUM] Call mom",
		"1. Never schedule before 9am",
		`Last mentioned: event "Dentist" on 2026-10-20`,
		"Location: Seattle. Weather: 55°F, light rain",
		`"action":"create_recurring_event"`,
		"EXAMPLES:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}

	empty := SystemPrompt(PromptContext{Now: now})
	if !strings.Contains(empty, "No pending tasks.") || !strings.Contains(empty, "Weather: unavailable") {
		t.Error("empty context should say there are no tasks and no weather")
	}
}

func TestScheduleDigest(t *testing.T) {
	if ScheduleDigest(nil, time.UTC) != "" {
		t.Error("empty schedule should produce no digest")
	}
	start := time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC)
	digest := ScheduleDigest([]calendar.Event{
		{Summary: "Lunch", Start: start, End: start.Add(time.Hour)},
		{Summary: "Offsite", Start: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), AllDay: true},
	}, time.UTC)
	if !strings.Contains(digest, "Upcoming Schedule:") ||
		!strings.Contains(digest, "- Lunch on Fri 2026-10-16 1:00 PM-2:00 PM") ||
		!strings.Contains(digest, "- Offsite on Sat 2026-10-17 (all day)") {
		t.Errorf("unexpected digest:\n%s", digest)
	}
}

func TestParse(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n{\"action\":\"create_event\",\"title\":\"Lunch\",\"date\":\"2026-10-16\",\"startTime\":\"13:00\",\"duration\":60,\"response\":\"Done\"}\n```"}
	p := NewParser(fc, time.Second)

	history := []session.Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "{}"}}
	out, err := p.Parse(context.Background(), history, PromptContext{Now: now}, "lunch friday at 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out.Reply.Actions) != 1 {
		t.Fatalf("got %d actions", len(out.Reply.Actions))
	}
	ce, ok := out.Reply.Actions[0].(*action.CreateEvent)
	if !ok || ce.Title != "Lunch" || ce.StartTime != "13:00" {
		t.Errorf("unexpected action %#v", out.Reply.Actions[0])
	}
	if len(fc.msgs) != 3 || fc.msgs[2].Content != "\n\nUser: \"lunch friday at 1\"" {
		t.Errorf("unexpected messages sent: %+v", fc.msgs)
	}
	if out.User.Role != "user" || out.Assistant.Role != "assistant" {
		t.Errorf("outcome roles: %+v %+v", out.User, out.Assistant)
	}
}

func TestParseErrors(t *testing.T) {
	p := NewParser(&fakeCompleter{reply: "I'm not sure what you mean"}, time.Second)
	_, err := p.Parse(context.Background(), nil, PromptContext{Now: now}, "hmm")
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Raw != "I'm not sure what you mean" {
		t.Errorf("want ParseError with raw text, got %v", err)
	}

	p = NewParser(&fakeCompleter{err: errors.New("connection refused")}, time.Second)
	_, err = p.Parse(context.Background(), nil, PromptContext{Now: now}, "hmm")
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Errorf("want APIError, got %v", err)
	}
}

func TestAnthropicClient(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "k" || r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"action\":\"out_of_scope\"}"}]}`))
	}))
	defer srv.Close()

	c, err := NewAnthropicClient(AnthropicConfig{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	text, err := c.Complete(context.Background(), "sys", []session.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"action":"out_of_scope"}` {
		t.Errorf("text = %q", text)
	}
	if got.Model != defaultModel || got.MaxTokens != defaultMaxTokens || got.System != "sys" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestAnthropicClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	c, _ := NewAnthropicClient(AnthropicConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "", nil)
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("want APIError, got %v", err)
	}
	if ae.Status != http.StatusUnauthorized || ae.Message != "invalid x-api-key" {
		t.Errorf("unexpected error %+v", ae)
	}
}

func TestNewAnthropicClientRequiresKey(t *testing.T) {
	if _, err := NewAnthropicClient(AnthropicConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}
