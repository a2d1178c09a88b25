package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"schedcal/internal/model"
)

// SourceConfig describes a single ICS subscription.
type SourceConfig struct {
	// ID is an internal identifier used in event IDs and logs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is an http(s) feed, file:// URL or local path.
	URL string `yaml:"url" json:"url"`
	// Color is the default card color for this feed's events.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// AvailabilityConfig is a weekly bookable window.
type AvailabilityConfig struct {
	Weekday string `yaml:"weekday" json:"weekday"`
	Start   string `yaml:"start" json:"start"`
	End     string `yaml:"end" json:"end"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web host.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// CaptureConfig controls the headless-browser screenshot.
type CaptureConfig struct {
	Width      int `yaml:"width" json:"width"`
	Height     int `yaml:"height" json:"height"`
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address of the web host.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone events are displayed in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// DefaultView is the view a new calendar instance mounts with.
	DefaultView string `yaml:"default_view" json:"default_view"`

	// HourHeight is pixels per hour in the HTML and raster views.
	HourHeight float64 `yaml:"hour_height" json:"hour_height"`

	// CardMargin is the horizontal gap on each side of an event card.
	CardMargin float64 `yaml:"card_margin" json:"card_margin"`

	// DragThreshold is the pointer movement in pixels that turns a press
	// into a drag.
	DragThreshold float64 `yaml:"drag_threshold" json:"drag_threshold"`

	// ReturnMillis is the duration of the card's return animation.
	ReturnMillis int `yaml:"return_ms" json:"return_ms"`

	// Refresh is a cron spec for feed refresh (e.g. "*/15 * * * *").
	Refresh string `yaml:"refresh" json:"refresh"`

	// HorizonDays bounds feed expansion around today, in both directions.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// CacheDir stores the last good body of each feed.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// EnforceAvailability rejects drags that leave the configured
	// availability.
	EnforceAvailability bool `yaml:"enforce_availability" json:"enforce_availability"`

	Sources      []SourceConfig       `yaml:"sources" json:"sources"`
	Availability []AvailabilityConfig `yaml:"availability" json:"availability"`

	// Theme is passed through to the views: slot name to style overrides.
	Theme map[string]map[string]string `yaml:"theme,omitempty" json:"theme,omitempty"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// Metrics exposes /metrics when true.
	Metrics bool `yaml:"metrics" json:"metrics"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{
		Metrics: true,
		Availability: []AvailabilityConfig{
			{Weekday: "monday", Start: "09:00", End: "17:00"},
			{Weekday: "tuesday", Start: "09:00", End: "17:00"},
			{Weekday: "wednesday", Start: "09:00", End: "17:00"},
			{Weekday: "thursday", Start: "09:00", End: "17:00"},
			{Weekday: "friday", Start: "09:00", End: "13:00"},
		},
	}
	c.Normalize()
	return c
}

// Normalize fills missing or invalid values with defaults so partially
// written files still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := model.ParseViewMode(c.DefaultView); err != nil {
		c.DefaultView = string(model.ViewWeek)
	}
	if c.HourHeight <= 0 {
		c.HourHeight = 60
	}
	if c.CardMargin < 0 {
		c.CardMargin = 0
	}
	if c.CardMargin == 0 {
		c.CardMargin = 1
	}
	if c.DragThreshold <= 0 {
		c.DragThreshold = 5
	}
	if c.ReturnMillis <= 0 {
		c.ReturnMillis = 200
	}
	if c.Refresh == "" {
		c.Refresh = "*/15 * * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 60
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		if c.Sources[i].ID == "" {
			switch {
			case c.Sources[i].Name != "":
				c.Sources[i].ID = c.Sources[i].Name
			default:
				c.Sources[i].ID = fmt.Sprintf("source%d", i+1)
			}
		}
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1280
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 1600
	}
	if c.Capture.TimeoutSec <= 0 {
		c.Capture.TimeoutSec = 30
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// View returns the parsed DefaultView.
func (c *Config) View() model.ViewMode {
	v, err := model.ParseViewMode(c.DefaultView)
	if err != nil {
		return model.ViewWeek
	}
	return v
}

// ThemeModel converts the YAML theme into the view's theme type.
func (c *Config) ThemeModel() model.Theme {
	if len(c.Theme) == 0 {
		return nil
	}
	t := make(model.Theme, len(c.Theme))
	for slot, style := range c.Theme {
		s := make(model.Style, len(style))
		for k, v := range style {
			s[k] = v
		}
		t[model.Slot(slot)] = s
	}
	return t
}

func (c *Config) ReturnDuration() time.Duration {
	return time.Duration(c.ReturnMillis) * time.Millisecond
}

// Load reads configuration from path. A missing file is created with
// defaults (0600) and the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions,
// creating the parent directory if needed.
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

	tmp, err := os.CreateTemp(dir, ".schedcal-config-*.tmp")
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
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
