package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/resolve"
)

// Filters accepted by Query and Matching
const (
	FilterAll       = "all"
	FilterGeneral   = "general"
	FilterDue       = "due"
	FilterOverdue   = "overdue"
	FilterToday     = "today"
	FilterCompleted = "completed"
)

// ServiceConfig configures a Service
type ServiceConfig struct {
	Location    *time.Location
	Now         func() time.Time
	CallTimeout time.Duration
}

// Service implements the assistant's task operations over a Store
type Service struct {
	store   Store
	loc     *time.Location
	now     func() time.Time
	timeout time.Duration
}

// NewService creates a task service
func NewService(store Store, cfg ServiceConfig) *Service {
	s := &Service{store: store, loc: cfg.Location, now: cfg.Now, timeout: cfg.CallTimeout}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// Today returns today's date as YYYY-MM-DD
func (s *Service) Today() string {
	return s.today().Format("2006-01-02")
}

// List returns a snapshot of all tasks
func (s *Service) List(ctx context.Context) ([]Task, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	tasks, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Pending returns up to limit incomplete tasks in display order
func (s *Service) Pending(ctx context.Context, limit int) ([]Task, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	open := filter(all, func(t Task) bool { return !t.IsCompleted() })
	sortForDisplay(open)
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

// Find resolves a title against the current tasks. Completed tasks are only
// candidates when includeCompleted is set.
func (s *Service) Find(ctx context.Context, title string, includeCompleted bool) (resolve.Match[Task], error) {
	all, err := s.List(ctx)
	if err != nil {
		return resolve.Match[Task]{Confidence: resolve.None}, err
	}
	candidates := all
	if !includeCompleted {
		candidates = filter(all, func(t Task) bool { return !t.IsCompleted() })
	}
	m := resolve.Resolve(title, candidates, func(t Task) string { return t.Title })
	logging.Debug("tasks", "resolve %q: %s (%d candidates)", title, m.Confidence, len(candidates))
	return m, nil
}

// FindCompleted resolves a title against completed tasks only
func (s *Service) FindCompleted(ctx context.Context, title string) (resolve.Match[Task], error) {
	all, err := s.List(ctx)
	if err != nil {
		return resolve.Match[Task]{Confidence: resolve.None}, err
	}
	done := filter(all, func(t Task) bool { return t.IsCompleted() })
	return resolve.Resolve(title, done, func(t Task) string { return t.Title }), nil
}

// NewTask is a task to add
type NewTask struct {
	Title       string
	Type        Type   // default due
	DueDate     string // YYYY-MM-DD; a due task without one is due today
	Description string
	Priority    string
}

// Add creates a task
func (s *Service) Add(ctx context.Context, nt NewTask) (*Task, error) {
	if nt.Type == "" {
		nt.Type = Due
	}
	t := &Task{
		Title:  nt.Title,
		Status: StatusNeedsAction,
		Notes:  Notes{Type: nt.Type, Priority: nt.Priority, Description: nt.Description}.String(),
	}
	if nt.Type == Due {
		t.Due = nt.DueDate
		if t.Due == "" {
			t.Due = s.Today()
		}
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.store.Add(ctx, t); err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}
	logging.Debug("tasks", "added %q (%s %s)", t.Title, nt.Type, t.Due)
	return t, nil
}

// Edit lists changes to a task; zero values mean unchanged
type Edit struct {
	Title       string
	DueDate     *string // "" clears the due date
	Type        Type
	Description *string
}

// Update applies an Edit to a task
func (s *Service) Update(ctx context.Context, t Task, e Edit) (*Task, error) {
	if e.Title != "" {
		t.Title = e.Title
	}
	if e.DueDate != nil {
		t.Due = *e.DueDate
	}
	meta := t.Meta()
	if e.Type != "" {
		meta.Type = e.Type
	}
	if e.Description != nil {
		meta.Description = *e.Description
	}
	t.Notes = meta.String()
	return s.save(ctx, t)
}

// Complete marks a task as done
func (s *Service) Complete(ctx context.Context, t Task) (*Task, error) {
	now := s.now()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	return s.save(ctx, t)
}

// Uncomplete reopens a completed task
func (s *Service) Uncomplete(ctx context.Context, t Task) (*Task, error) {
	t.Status = StatusNeedsAction
	t.CompletedAt = nil
	return s.save(ctx, t)
}

func (s *Service) save(ctx context.Context, t Task) (*Task, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.store.Update(ctx, &t); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &t, nil
}

// Delete removes a task
func (s *Service) Delete(ctx context.Context, t Task) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.store.Delete(ctx, t.ID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	logging.Debug("tasks", "deleted %q", t.Title)
	return nil
}

// DeleteEach deletes tasks one at a time and returns how many succeeded
func (s *Service) DeleteEach(ctx context.Context, tasks []Task) int {
	deleted := 0
	for _, t := range tasks {
		if err := s.Delete(ctx, t); err != nil {
			logging.Warn("tasks", "bulk delete: %v", err)
			continue
		}
		deleted++
	}
	return deleted
}

// Matching returns the tasks selected by a bulk-delete filter
// (completed, overdue or all)
func (s *Service) Matching(ctx context.Context, f string) ([]Task, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	today := s.today()
	switch f {
	case FilterAll:
		return all, nil
	case FilterOverdue:
		return filter(all, func(t Task) bool { return !t.IsCompleted() && isOverdue(t, today) }), nil
	default:
		return filter(all, func(t Task) bool { return t.IsCompleted() }), nil
	}
}

// DeleteDuplicates removes every task whose title and due date repeat an
// earlier task, and returns the user-facing summary
func (s *Service) DeleteDuplicates(ctx context.Context) (string, error) {
	all, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	seen := map[string]bool{}
	var dupes []Task
	for _, t := range all {
		due := t.Due
		if due == "" {
			due = "no-due"
		}
		key := t.Title + "|" + due
		if seen[key] {
			dupes = append(dupes, t)
			continue
		}
		seen[key] = true
	}
	if len(dupes) == 0 {
		return "No duplicate tasks found.", nil
	}
	n := s.DeleteEach(ctx, dupes)
	return fmt.Sprintf("Deleted %d duplicate %s.", n, plural(n, "task")), nil
}

// Query describes the tasks selected by filter
func (s *Service) Query(ctx context.Context, f string) (string, error) {
	all, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	today := s.today()
	open := filter(all, func(t Task) bool { return !t.IsCompleted() })

	var selected []Task
	label := ""
	switch strings.ToLower(f) {
	case FilterGeneral:
		selected = filter(open, func(t Task) bool { return t.Meta().Type == General })
		label = "general"
	case FilterDue:
		selected = filter(open, func(t Task) bool {
			days, ok := DaysUntilDue(t, today)
			return t.Meta().Type == Due && ok && days >= 0
		})
		label = "due"
	case FilterOverdue:
		selected = filter(open, func(t Task) bool { return isOverdue(t, today) })
		label = "overdue"
	case FilterToday:
		selected = filter(open, func(t Task) bool {
			days, ok := DaysUntilDue(t, today)
			return !ok || days == 0
		})
		label = "today's"
	case FilterCompleted:
		selected = filter(all, func(t Task) bool { return t.IsCompleted() })
		label = "completed"
	default:
		selected = open
		label = "pending"
	}

	if len(selected) == 0 {
		return fmt.Sprintf("You have no %s tasks.", label), nil
	}
	sortForDisplay(selected)

	lines := make([]string, len(selected))
	for i, t := range selected {
		line := t.Title
		if t.Due != "" {
			line += " (" + Urgency(t, today) + ")"
		}
		if desc := t.Meta().Description; desc != "" {
			if len(desc) > 30 {
				desc = desc[:30] + "..."
			}
			line += " - " + desc
		}
		lines[i] = line
	}
	return fmt.Sprintf("You have %d %s %s:\n\n%s", len(selected), label, plural(len(selected), "task"), strings.Join(lines, "\n")), nil
}

func isOverdue(t Task, today time.Time) bool {
	if t.Meta().Type == General {
		return false
	}
	days, ok := DaysUntilDue(t, today)
	return ok && days < 0
}

// sortForDisplay orders dated tasks by due date, then undated, then general
func sortForDisplay(ts []Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		gi, gj := ts[i].Meta().Type == General, ts[j].Meta().Type == General
		if gi != gj {
			return gj
		}
		if ts[i].Due != "" && ts[j].Due != "" {
			return ts[i].Due < ts[j].Due
		}
		return ts[i].Due != "" && ts[j].Due == ""
	})
}

func filter(ts []Task, keep func(Task) bool) []Task {
	var out []Task
	for _, t := range ts {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
