package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // driver "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // driver "sqlite" (pure Go)
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	notes        TEXT NOT NULL DEFAULT '',
	due          TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'needsAction',
	completed_at TEXT NOT NULL DEFAULT '',
	position     REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

// SQLStore keeps tasks in SQLite through either driver
type SQLStore struct {
	db *sql.DB
}

// dsn builds the connection string; the drivers spell pragmas differently
func dsn(driver, path string) (string, error) {
	switch driver {
	case "sqlite3":
		return path + "?_journal_mode=WAL&_busy_timeout=5000", nil
	case "sqlite":
		return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
	default:
		return "", fmt.Errorf("unsupported task driver %q (want sqlite3 or sqlite)", driver)
	}
}

// OpenSQL opens or creates <statePath>/tasks.db with the named driver
func OpenSQL(driver, statePath string) (*SQLStore, error) {
	dbPath := filepath.Join(statePath, "tasks.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	source, err := dsn(driver, dbPath)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var completed string
	if err := row.Scan(&t.ID, &t.Title, &t.Notes, &t.Due, &t.Status, &completed, &t.Order); err != nil {
		return Task{}, err
	}
	if completed != "" {
		at, err := time.Parse(time.RFC3339Nano, completed)
		if err != nil {
			return Task{}, fmt.Errorf("parse completed_at: %w", err)
		}
		t.CompletedAt = &at
	}
	return t, nil
}

const selectTask = `SELECT id, title, notes, due, status, completed_at, position FROM tasks`

// List returns all tasks in insertion order
func (s *SQLStore) List(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, selectTask+` ORDER BY position, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get returns a task by ID
func (s *SQLStore) Get(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, selectTask+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

func formatCompleted(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Add inserts a new task, filling in id, status and order
func (s *SQLStore) Add(ctx context.Context, task *Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = StatusNeedsAction
	}
	if task.Order == 0 {
		task.Order = float64(time.Now().UnixNano())
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, notes, due, status, completed_at, position) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Notes, task.Due, task.Status, formatCompleted(task.CompletedAt), task.Order)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Update replaces an existing task
func (s *SQLStore) Update(ctx context.Context, task *Task) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, notes = ?, due = ?, status = ?, completed_at = ?, position = ? WHERE id = ?`,
		task.Title, task.Notes, task.Due, task.Status, formatCompleted(task.CompletedAt), task.Order, task.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return expectOne(res, task.ID)
}

// Delete removes a task
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectOne(res, id)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
