package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const storeFilename = "user_tasks.json"

type fileData struct {
	Tasks []Task `json:"tasks"`
}

// FileStore keeps tasks in a JSON file, writing it after every mutation
type FileStore struct {
	path string
	data fileData
	mu   sync.RWMutex
}

// NewFileStore creates a store backed by <statePath>/user_tasks.json
func NewFileStore(statePath string) *FileStore {
	return &FileStore{
		path: filepath.Join(statePath, storeFilename),
		data: fileData{Tasks: []Task{}},
	}
}

// Load reads the tasks from disk
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		// File doesn't exist yet, start with empty store
		s.data = fileData{Tasks: []Task{}}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read task store: %w", err)
	}

	if err := json.Unmarshal(data, &s.data); err != nil {
		return fmt.Errorf("failed to parse task store: %w", err)
	}
	if s.data.Tasks == nil {
		s.data.Tasks = []Task{}
	}
	return nil
}

// saveLocked writes the tasks to disk; caller holds mu
func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal task store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write task store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// List returns all tasks in insertion order
func (s *FileStore) List(ctx context.Context) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Task, len(s.data.Tasks))
	copy(result, s.data.Tasks)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Order < result[j].Order
	})
	return result, nil
}

// Get returns a task by ID
func (s *FileStore) Get(ctx context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.data.Tasks {
		if s.data.Tasks[i].ID == id {
			t := s.data.Tasks[i]
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

// Add stores a new task, filling in id, status and order
func (s *FileStore) Add(ctx context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = StatusNeedsAction
	}
	if task.Order == 0 {
		task.Order = float64(time.Now().UnixNano())
	}
	s.data.Tasks = append(s.data.Tasks, *task)
	return s.saveLocked()
}

// Update replaces an existing task
func (s *FileStore) Update(ctx context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Tasks {
		if s.data.Tasks[i].ID == task.ID {
			s.data.Tasks[i] = *task
			return s.saveLocked()
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, task.ID)
}

// Delete removes a task
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Tasks {
		if s.data.Tasks[i].ID == id {
			s.data.Tasks = append(s.data.Tasks[:i], s.data.Tasks[i+1:]...)
			return s.saveLocked()
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
