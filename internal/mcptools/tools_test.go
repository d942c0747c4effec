package mcptools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vthunder/nova/internal/calendar"
	"github.com/vthunder/nova/internal/engine"
	"github.com/vthunder/nova/internal/intent"
	"github.com/vthunder/nova/internal/journal"
	"github.com/vthunder/nova/internal/session"
	"github.com/vthunder/nova/internal/tasks"
)

var now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

type cannedCompleter struct{ reply string }

func (c cannedCompleter) Complete(ctx context.Context, system string, msgs []session.Message) (string, error) {
	return c.reply, nil
}

func newTools(t *testing.T, reply string) (*Tools, *calendar.MemoryStore) {
	t.Helper()
	clock := func() time.Time { return now }
	mem := calendar.NewMemoryStore()
	mem.Now = clock
	eng := engine.New(engine.Config{
		Calendar: calendar.NewService(mem, calendar.ServiceConfig{Location: time.UTC, Now: clock}),
		Tasks:    tasks.NewService(tasks.NewFileStore(t.TempDir()), tasks.ServiceConfig{Location: time.UTC, Now: clock}),
		Parser:   intent.NewParser(cannedCompleter{reply}, time.Second),
		Journal:  journal.New(t.TempDir()),
	})
	return &Tools{engine: eng, sessions: session.NewStore(time.Hour)}, mem
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", r.Content[0])
	}
	return tc.Text
}

func TestChatTool(t *testing.T) {
	tools, mem := newTools(t, `{"action":"ask_time","eventDetails":{"title":"Dentist","date":"2026-10-20"},"response":"What time?"}`)
	ctx := context.Background()

	r, err := tools.handleChat(ctx, call(map[string]any{"message": "dentist tuesday", "session": "agent-1"}))
	if err != nil || r.IsError {
		t.Fatalf("unexpected %v %+v", err, r)
	}
	if got := text(t, r); !strings.HasPrefix(got, "What time?") || !strings.Contains(got, `"agent-1"`) {
		t.Errorf("text = %q", got)
	}

	r, _ = tools.handleChat(ctx, call(map[string]any{"message": "3pm", "session": "agent-1"}))
	if r.IsError || len(mem.All()) != 1 {
		t.Errorf("follow-up should create the event: %q, %d events", text(t, r), len(mem.All()))
	}
}

func TestChatToolRequiresMessage(t *testing.T) {
	tools, _ := newTools(t, "")
	r, err := tools.handleChat(context.Background(), call(map[string]any{}))
	if err != nil || !r.IsError {
		t.Errorf("want tool error, got %v %+v", err, r)
	}
}

func TestScheduleAndTasksTools(t *testing.T) {
	tools, mem := newTools(t, "")
	mem.Seed(calendar.Event{Summary: "Standup", Start: now.Add(time.Hour), End: now.Add(75 * time.Minute)})
	ctx := context.Background()

	r, _ := tools.handleSchedule(ctx, call(nil))
	if r.IsError || !strings.Contains(text(t, r), "Standup") {
		t.Errorf("schedule = %q", text(t, r))
	}

	if _, err := tools.engine.Tasks().Add(ctx, tasks.NewTask{Title: "File taxes", Type: tasks.General}); err != nil {
		t.Fatal(err)
	}
	r, _ = tools.handleTasks(ctx, call(map[string]any{"filter": "general"}))
	if r.IsError || !strings.Contains(text(t, r), "File taxes") {
		t.Errorf("tasks = %q", text(t, r))
	}
}

func TestHistoryTool(t *testing.T) {
	tools, _ := newTools(t, `{"action":"out_of_scope","response":"I only do calendars and tasks."}`)
	ctx := context.Background()

	r, _ := tools.handleHistory(ctx, call(nil))
	if got := text(t, r); got != "No journal entries." {
		t.Errorf("empty history = %q", got)
	}

	tools.handleChat(ctx, call(map[string]any{"message": "tell me a joke", "session": "a"}))
	tools.handleChat(ctx, call(map[string]any{"message": "sing a song", "session": "b"}))

	r, _ = tools.handleHistory(ctx, call(map[string]any{"session": "a"}))
	got := text(t, r)
	if !strings.Contains(got, "tell me a joke") || strings.Contains(got, "sing a song") {
		t.Errorf("session history = %q", got)
	}

	r, _ = tools.handleHistory(ctx, call(map[string]any{"today": true}))
	if got := text(t, r); !strings.Contains(got, "tell me a joke") || !strings.Contains(got, "sing a song") {
		t.Errorf("today = %q", got)
	}

	r, _ = tools.handleHistory(ctx, call(map[string]any{"limit": float64(1)}))
	if got := text(t, r); strings.Count(got, "\n") != 0 || !strings.Contains(got, "[action]") {
		t.Errorf("limit 1 = %q", got)
	}
}
