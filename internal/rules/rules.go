// Package rules stores the user's behavioural rules ("always put gym
// sessions at 7am") which are fed back into every intent prompt.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vthunder/nova/internal/logging"
)

// Rule is one user-defined instruction
type Rule struct {
	ID      int64     `yaml:"id"`
	Rule    string    `yaml:"rule"`
	AddedAt time.Time `yaml:"added_at"`
}

type fileData struct {
	Rules []Rule `yaml:"rules"`
}

// Store persists rules to <state>/rules.yaml
type Store struct {
	path  string
	mu    sync.RWMutex
	rules []Rule
	now   func() time.Time
}

// NewStore creates a rules store under statePath
func NewStore(statePath string) *Store {
	return &Store{
		path: filepath.Join(statePath, "rules.yaml"),
		now:  time.Now,
	}
}

// Load reads rules from disk; a missing file is an empty rule set
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.rules = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read rules: %w", err)
	}

	var fd fileData
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	s.rules = fd.Rules
	logging.Debug("rules", "loaded %d rules", len(s.rules))
	return nil
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := yaml.Marshal(fileData{Rules: s.rules})
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rules: %w", err)
	}
	return nil
}

// Add appends a rule and saves
func (s *Store) Add(text string) (Rule, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Rule{}, fmt.Errorf("empty rule")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	r := Rule{ID: now.UnixMilli(), Rule: text, AddedAt: now}
	for _, existing := range s.rules {
		if existing.ID >= r.ID {
			r.ID = existing.ID + 1
		}
	}
	s.rules = append(s.rules, r)
	if err := s.saveLocked(); err != nil {
		s.rules = s.rules[:len(s.rules)-1]
		return Rule{}, err
	}
	logging.Info("rules", "added rule: %s", logging.Truncate(text, 60))
	return r, nil
}

// Remove deletes a rule by ID
func (s *Store) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rules {
		if r.ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return s.saveLocked()
		}
	}
	return fmt.Errorf("rule %d not found", id)
}

// List returns the rules in the order they were added
func (s *Store) List() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Texts returns only the rule texts, for prompt assembly
func (s *Store) Texts() []string {
	rules := s.List()
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Rule
	}
	return out
}
