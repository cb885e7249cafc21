package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
}

// GoogleConfig enables the optional Google Calendar source.
type GoogleConfig struct {
	// CredentialsFile points at a service-account JSON key.
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	// CalendarID is the calendar to read; "primary" if empty.
	CalendarID string `yaml:"calendar_id" json:"calendar_id"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PreviewConfig controls the headless-browser preview capture.
type PreviewConfig struct {
	// URL is the page to capture; defaults to the app's own root.
	URL string `yaml:"url" json:"url"`
	// Path is where the PNG is written.
	Path   string `yaml:"path" json:"path"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is the first column of the month
	// grid. Supported values: "monday" (default), "sunday". Week views
	// always use ISO weeks and are unaffected.
	WeekStart string `yaml:"week_start" json:"week_start"`

	// HourSlots is the number of time slots a day exposes in week/day
	// views. Default 24 (hourly).
	HourSlots int `yaml:"hour_slots" json:"hour_slots"`

	// MonthMaxRows is the number of event rows a month cell shows before
	// the remainder is truncated behind hover-to-reveal. Default 3.
	MonthMaxRows int `yaml:"month_max_rows" json:"month_max_rows"`

	// FetchTimeoutSec bounds a single event-source fetch. Default 15.
	FetchTimeoutSec int `yaml:"fetch_timeout_sec" json:"fetch_timeout_sec"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// driving periodic source prewarm and preview capture.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// Google, if non-nil, adds a Google Calendar source.
	Google *GoogleConfig `yaml:"google,omitempty" json:"google,omitempty"`

	// Preview, if non-nil, enables the periodic PNG capture.
	Preview *PreviewConfig `yaml:"preview,omitempty" json:"preview,omitempty"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		Timezone:        "UTC",
		WeekStart:       "monday",
		HourSlots:       24,
		MonthMaxRows:    3,
		FetchTimeoutSec: 15,
		RefreshCron:     "*/15 * * * *",
		LogLevel:        "info",
		ICS:             []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.HourSlots <= 0 || c.HourSlots > 24*60 {
		c.HourSlots = 24
	}
	if c.MonthMaxRows <= 0 {
		c.MonthMaxRows = 3
	}
	if c.FetchTimeoutSec <= 0 {
		c.FetchTimeoutSec = 15
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Preview != nil {
		if c.Preview.Width <= 0 {
			c.Preview.Width = 1280
		}
		if c.Preview.Height <= 0 {
			c.Preview.Height = 960
		}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".calview-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
