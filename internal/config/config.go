// Package config loads Nova's settings from defaults, an optional YAML file
// and the environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/profiling"
)

// DefaultFile is read when Load is given no path and the file exists
const DefaultFile = "nova.yaml"

// Surface names a way of talking to Nova; each needs different settings
type Surface string

const (
	SurfaceChat    Surface = "chat"
	SurfaceServe   Surface = "serve"
	SurfaceDiscord Surface = "discord"
	SurfaceMCP     Surface = "mcp"
)

// Config holds every setting Nova reads
type Config struct {
	StatePath string `yaml:"state_path"`
	Timezone  string `yaml:"timezone"`
	Location  string `yaml:"location"` // the user's city, for weather

	Anthropic struct {
		APIKey  string        `yaml:"api_key"`
		Model   string        `yaml:"model"`
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"anthropic"`

	CallTimeout time.Duration `yaml:"call_timeout"`

	Calendar struct {
		Backend         string   `yaml:"backend"` // google or memory
		CredentialsFile string   `yaml:"credentials_file"`
		CalendarID      string   `yaml:"calendar_id"`
		ExtraCalendars  []string `yaml:"extra_calendars"`
	} `yaml:"calendar"`

	Tasks struct {
		Backend string `yaml:"backend"` // file or sqlite
		Driver  string `yaml:"driver"`  // sqlite3 or sqlite
	} `yaml:"tasks"`

	OpenWeatherKey string `yaml:"openweather_api_key"`

	HTTP struct {
		Addr        string        `yaml:"addr"`
		CORSOrigins []string      `yaml:"cors_origins"`
		RateLimit   int           `yaml:"rate_limit"`
		RateWindow  time.Duration `yaml:"rate_window"`
	} `yaml:"http"`

	Discord struct {
		Token     string `yaml:"token"`
		ChannelID string `yaml:"channel_id"`
	} `yaml:"discord"`

	SessionTTL time.Duration `yaml:"session_ttl"`
	Profile    string        `yaml:"profile"` // off, minimal or detailed
}

// Defaults returns the built-in settings
func Defaults() *Config {
	c := &Config{StatePath: "state"}
	c.Anthropic.Timeout = 45 * time.Second
	c.CallTimeout = 20 * time.Second
	c.Tasks.Backend = "file"
	c.Tasks.Driver = "sqlite3"
	c.HTTP.Addr = ":8080"
	c.HTTP.RateLimit = 20
	c.HTTP.RateWindow = 60 * time.Second
	c.SessionTTL = 30 * time.Minute
	return c
}

// Load reads .env (if present), then path (or nova.yaml when path is empty
// and it exists), then the environment
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logging.Debug("config", "no .env file, using environment variables")
	} else {
		logging.Debug("config", "loaded .env file")
	}

	c := Defaults()
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		logging.Debug("config", "loaded %s", path)
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if c.Calendar.Backend == "" {
		c.Calendar.Backend = "memory"
		if c.Calendar.CredentialsFile != "" {
			c.Calendar.Backend = "google"
		}
	}
	return c, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := parseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	str("STATE_PATH", &c.StatePath)
	str("NOVA_TIMEZONE", &c.Timezone)
	str("NOVA_LOCATION", &c.Location)
	str("ANTHROPIC_API_KEY", &c.Anthropic.APIKey)
	str("ANTHROPIC_MODEL", &c.Anthropic.Model)
	str("ANTHROPIC_BASE_URL", &c.Anthropic.BaseURL)
	dur("LLM_TIMEOUT", &c.Anthropic.Timeout)
	dur("CALL_TIMEOUT", &c.CallTimeout)
	str("CALENDAR_BACKEND", &c.Calendar.Backend)
	str("GOOGLE_CALENDAR_CREDENTIALS_FILE", &c.Calendar.CredentialsFile)
	str("GOOGLE_CALENDAR_ID", &c.Calendar.CalendarID)
	list("GOOGLE_CALENDAR_EXTRA_IDS", &c.Calendar.ExtraCalendars)
	str("TASKS_BACKEND", &c.Tasks.Backend)
	str("TASKS_DRIVER", &c.Tasks.Driver)
	str("OPENWEATHER_API_KEY", &c.OpenWeatherKey)
	str("HTTP_ADDR", &c.HTTP.Addr)
	list("CORS_ORIGINS", &c.HTTP.CORSOrigins)
	dur("RATE_WINDOW", &c.HTTP.RateWindow)
	str("DISCORD_TOKEN", &c.Discord.Token)
	str("DISCORD_CHANNEL_ID", &c.Discord.ChannelID)
	dur("SESSION_TTL", &c.SessionTTL)
	str("NOVA_PROFILE", &c.Profile)

	if v, ok := lookup("RATE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT: want a positive integer, got %q", v))
		} else {
			c.HTTP.RateLimit = n
		}
	}
	return errors.Join(errs...)
}

// parseDuration accepts Go durations ("45s") or a bare number of seconds
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TimeLocation resolves the configured timezone, defaulting to the host's
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate reports every setting the surface cannot run without
func (c *Config) Validate(s Surface) error {
	var errs []error
	if _, err := c.TimeLocation(); err != nil {
		errs = append(errs, err)
	}

	switch c.Calendar.Backend {
	case "memory":
	case "google":
		if c.Calendar.CredentialsFile == "" {
			errs = append(errs, errors.New("GOOGLE_CALENDAR_CREDENTIALS_FILE is required for the google calendar backend"))
		}
		if c.Calendar.CalendarID == "" {
			errs = append(errs, errors.New("GOOGLE_CALENDAR_ID is required for the google calendar backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("CALENDAR_BACKEND: unknown backend %q (want google or memory)", c.Calendar.Backend))
	}

	switch c.Tasks.Backend {
	case "file":
	case "sqlite":
		if c.Tasks.Driver != "sqlite3" && c.Tasks.Driver != "sqlite" {
			errs = append(errs, fmt.Errorf("TASKS_DRIVER: unknown driver %q (want sqlite3 or sqlite)", c.Tasks.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("TASKS_BACKEND: unknown backend %q (want file or sqlite)", c.Tasks.Backend))
	}

	if _, err := profiling.ParseLevel(c.Profile); err != nil {
		errs = append(errs, fmt.Errorf("NOVA_PROFILE: %w", err))
	}

	switch s {
	case SurfaceServe:
		if c.HTTP.Addr == "" {
			errs = append(errs, errors.New("HTTP_ADDR is required"))
		}
		if c.HTTP.RateLimit <= 0 || c.HTTP.RateWindow <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT and RATE_WINDOW must be positive"))
		}
	case SurfaceDiscord:
		if c.Discord.Token == "" {
			errs = append(errs, errors.New("DISCORD_TOKEN is required"))
		}
	}
	return errors.Join(errs...)
}
