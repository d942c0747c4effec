// Package app builds a ready-to-use engine from configuration. Every surface
// (REPL, HTTP, Discord, MCP) starts here.
package app

import (
	"fmt"
	"os"

	"github.com/vthunder/nova/internal/calendar"
	"github.com/vthunder/nova/internal/config"
	"github.com/vthunder/nova/internal/engine"
	"github.com/vthunder/nova/internal/intent"
	"github.com/vthunder/nova/internal/journal"
	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/profiling"
	"github.com/vthunder/nova/internal/rules"
	"github.com/vthunder/nova/internal/session"
	"github.com/vthunder/nova/internal/tasks"
	"github.com/vthunder/nova/internal/weather"
)

// App is the wired engine plus the session store surfaces share
type App struct {
	Engine   *engine.Engine
	Sessions *session.Store
	Config   *config.Config

	closers []func() error
}

// New wires stores, services and the intent parser from cfg
func New(cfg *config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.StatePath, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	loc, err := cfg.TimeLocation()
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Sessions: session.NewStore(cfg.SessionTTL)}

	calStore, err := calendarStore(cfg)
	if err != nil {
		return nil, err
	}
	cal := calendar.NewService(calStore, calendar.ServiceConfig{Location: loc, CallTimeout: cfg.CallTimeout})

	taskStore, err := a.taskStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	ts := tasks.NewService(taskStore, tasks.ServiceConfig{Location: loc, CallTimeout: cfg.CallTimeout})

	ruleStore := rules.NewStore(cfg.StatePath)
	if err := ruleStore.Load(); err != nil {
		logging.Warn("config", "rules: %v", err)
	}

	var parser *intent.Parser
	if cfg.Anthropic.APIKey != "" {
		client, err := intent.NewAnthropicClient(intent.AnthropicConfig{
			APIKey:  cfg.Anthropic.APIKey,
			BaseURL: cfg.Anthropic.BaseURL,
			Model:   cfg.Anthropic.Model,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		parser = intent.NewParser(client, cfg.Anthropic.Timeout)
		logging.Info("config", "intent model %s", client.Model())
	} else {
		logging.Warn("config", "ANTHROPIC_API_KEY not set; every request will ask for it")
	}

	var provider weather.Provider
	if cfg.OpenWeatherKey != "" {
		ow, err := weather.NewOpenWeather(weather.Config{APIKey: cfg.OpenWeatherKey})
		if err != nil {
			a.Close()
			return nil, err
		}
		provider = ow
	}

	level, err := profiling.ParseLevel(cfg.Profile)
	if err != nil {
		a.Close()
		return nil, err
	}
	profiler, err := profiling.Open(level, cfg.StatePath)
	if err != nil {
		a.Close()
		return nil, err
	}
	if profiler != nil {
		a.closers = append(a.closers, profiler.Close)
	}

	a.Engine = engine.New(engine.Config{
		Calendar:    cal,
		Tasks:       ts,
		Parser:      parser,
		Rules:       ruleStore,
		Weather:     provider,
		Journal:     journal.New(cfg.StatePath),
		Profiler:    profiler,
		Location:    cfg.Location,
		CallTimeout: cfg.CallTimeout,
	})
	logging.Info("config", "calendar=%s tasks=%s timezone=%s", cfg.Calendar.Backend, cfg.Tasks.Backend, loc)
	return a, nil
}

func calendarStore(cfg *config.Config) (calendar.Store, error) {
	if cfg.Calendar.Backend != "google" {
		return calendar.NewMemoryStore(), nil
	}
	c, err := calendar.NewClientWithConfig(calendar.Config{
		CredentialsFile: cfg.Calendar.CredentialsFile,
		CalendarID:      cfg.Calendar.CalendarID,
		ExtraCalendars:  cfg.Calendar.ExtraCalendars,
	})
	if err != nil {
		return nil, fmt.Errorf("google calendar: %w", err)
	}
	return c, nil
}

func (a *App) taskStore(cfg *config.Config) (tasks.Store, error) {
	if cfg.Tasks.Backend == "sqlite" {
		s, err := tasks.OpenSQL(cfg.Tasks.Driver, cfg.StatePath)
		if err != nil {
			return nil, fmt.Errorf("task database: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	}
	s := tasks.NewFileStore(cfg.StatePath)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases whatever New opened
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
