// Package mcptools exposes Nova as MCP tools so other agents can schedule
// through it
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vthunder/nova/internal/engine"
	"github.com/vthunder/nova/internal/journal"
	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/session"
	"github.com/vthunder/nova/internal/tasks"
)

const (
	defaultSession = "mcp"
	defaultHistory = 20
)

// Tools holds what the tool handlers need
type Tools struct {
	engine   *engine.Engine
	sessions *session.Store
}

// NewServer creates an MCP server with the Nova tools registered
func NewServer(eng *engine.Engine, sessions *session.Store, version string) *server.MCPServer {
	t := &Tools{engine: eng, sessions: sessions}
	s := server.NewMCPServer("nova", version, server.WithToolCapabilities(true))
	s.AddTool(chatTool(), t.handleChat)
	s.AddTool(scheduleTool(), t.handleSchedule)
	s.AddTool(tasksTool(), t.handleTasks)
	s.AddTool(historyTool(), t.handleHistory)
	return s
}

func chatTool() mcp.Tool {
	return mcp.NewTool("nova_chat",
		mcp.WithDescription("Send a natural-language request to Nova, a calendar and task assistant. Nova may ask a follow-up question; answer it with another nova_chat call using the same session."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("What the user said, e.g. \"lunch with Sam friday at 1\""),
		),
		mcp.WithString("session",
			mcp.Description("Conversation id; follow-up answers must reuse it. Default: mcp"),
		),
	)
}

func scheduleTool() mcp.Tool {
	return mcp.NewTool("nova_schedule",
		mcp.WithDescription("List the events on one day."),
		mcp.WithString("date",
			mcp.Description("Day as YYYY-MM-DD. Default: today"),
		),
	)
}

func tasksTool() mcp.Tool {
	return mcp.NewTool("nova_tasks",
		mcp.WithDescription("List tasks."),
		mcp.WithString("filter",
			mcp.Description("One of all, general, due, overdue, today, completed. Default: all"),
			mcp.Enum(tasks.FilterAll, tasks.FilterGeneral, tasks.FilterDue, tasks.FilterOverdue, tasks.FilterToday, tasks.FilterCompleted),
		),
	)
}

func historyTool() mcp.Tool {
	return mcp.NewTool("nova_history",
		mcp.WithDescription("Show recent journal entries: what was said, which actions ran and how they ended."),
		mcp.WithString("session",
			mcp.Description("Only entries for this conversation id"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return. Default: 20"),
		),
		mcp.WithBoolean("today",
			mcp.Description("Only entries written today"),
		),
	)
}

func stringArg(req mcp.CallToolRequest, name string) string {
	args, _ := req.Params.Arguments.(map[string]any)
	v, _ := args[name].(string)
	return strings.TrimSpace(v)
}

func intArg(req mcp.CallToolRequest, name string, def int) int {
	args, _ := req.Params.Arguments.(map[string]any)
	if v, ok := args[name].(float64); ok && v > 0 {
		return int(v)
	}
	return def
}

func boolArg(req mcp.CallToolRequest, name string) bool {
	args, _ := req.Params.Arguments.(map[string]any)
	v, _ := args[name].(bool)
	return v
}

func (t *Tools) handleChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := stringArg(req, "message")
	if message == "" {
		return mcp.NewToolResultError("message is required"), nil
	}
	id := stringArg(req, "session")
	if id == "" {
		id = defaultSession
	}

	sess := t.sessions.Get(id)
	sess.Lock()
	result := t.engine.Handle(ctx, sess, message)
	sess.Unlock()
	logging.Debug("mcp", "nova_chat %s: success=%v", id, result.Success)

	if !result.Success {
		return mcp.NewToolResultError(result.Message), nil
	}
	text := result.Message
	if result.ExpectsResponse {
		text += fmt.Sprintf("\n\n(Nova is waiting for an answer; reply with nova_chat using session %q.)", sess.ID)
	}
	return mcp.NewToolResultText(text), nil
}

func (t *Tools) handleSchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cal := t.engine.Calendar()
	date := stringArg(req, "date")
	if date == "" {
		date = cal.Today()
	}
	msg, err := cal.Schedule(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load schedule: %v", err)), nil
	}
	return mcp.NewToolResultText(msg), nil
}

func (t *Tools) handleTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := stringArg(req, "filter")
	if filter == "" {
		filter = tasks.FilterAll
	}
	msg, err := t.engine.Tasks().Query(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load tasks: %v", err)), nil
	}
	return mcp.NewToolResultText(msg), nil
}

func (t *Tools) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	j := t.engine.Journal()
	if j == nil {
		return mcp.NewToolResultError("no journal is configured"), nil
	}
	limit := intArg(req, "limit", defaultHistory)

	var entries []journal.Entry
	var err error
	switch id := stringArg(req, "session"); {
	case id != "":
		entries, err = j.Session(id, limit)
	case boolArg(req, "today"):
		entries, err = j.Today()
		if len(entries) > limit {
			entries = entries[len(entries)-limit:]
		}
	default:
		entries, err = j.Recent(limit)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read journal: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No journal entries."), nil
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Line()
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
