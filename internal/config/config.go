package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"iltcal/internal/ics"
	"iltcal/internal/model"
)

// FeedConfig describes a published ICS feed merged into the calendar.
type FeedConfig struct {
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// URL is the feed endpoint. It often embeds a private token.
	URL string `yaml:"url" json:"url"`
	// Name labels events that carry no SUMMARY.
	Name string `yaml:"name" json:"name"`
	// Enrolled shows the feed's events as the viewer's own sessions.
	Enrolled bool `yaml:"enrolled" json:"enrolled"`
}

// LMSConfig points at the LMS session endpoints.
type LMSConfig struct {
	BaseURL        string `yaml:"base_url" json:"base_url"`
	SessionsPath   string `yaml:"sessions_path" json:"sessions_path"`
	EnrollPath     string `yaml:"enroll_path" json:"enroll_path"`
	Token          string `yaml:"token" json:"-"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Timeout returns the HTTP client timeout.
func (l LMSConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the page and API.
// PasswordHash is an Argon2id PHC string produced by `iltcal hash-password`.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Locale selects UI strings, date order and the default first weekday.
	// Supported base languages are "en" and "fr".
	Locale string `yaml:"locale" json:"locale"`

	// Timezone is the IANA zone deciding which day is "today".
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart overrides the locale's first weekday:
	//   - "" (locale default)
	//   - "monday"
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for reloading mounted calendars.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// PageIdleMinutes unmounts page calendars not touched for this long.
	PageIdleMinutes int `yaml:"page_idle_minutes" json:"page_idle_minutes"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// Palette is the ordered list of session colors.
	Palette []string `yaml:"palette" json:"palette"`

	LMS LMSConfig `yaml:"lms" json:"lms"`

	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// HorizonDays and BackfillDays bound feed recurrence expansion.
	HorizonDays  int `yaml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// CacheDir keeps feed bodies for conditional requests and offline use.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultLocale      = "en"
	defaultTimezone    = "UTC"
	defaultRefreshCron = "*/15 * * * *"
	defaultIdleMinutes = 30
	defaultHorizon     = 90
	defaultBackfill    = 31
	defaultCacheDir    = "./var/feed-cache"
	defaultTimeout     = 15
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          defaultListen,
		Locale:          defaultLocale,
		Timezone:        defaultTimezone,
		RefreshCron:     defaultRefreshCron,
		PageIdleMinutes: defaultIdleMinutes,
		LogLevel:        "info",
		Palette:         append([]string(nil), model.DefaultPalette...),
		LMS: LMSConfig{
			BaseURL:        "http://127.0.0.1:8000",
			TimeoutSeconds: defaultTimeout,
		},
		Feeds:        []FeedConfig{},
		HorizonDays:  defaultHorizon,
		BackfillDays: defaultBackfill,
		CacheDir:     defaultCacheDir,
		BasicAuth:    nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.Locale = strings.TrimSpace(c.Locale)
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday", "sunday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		// Unknown values fall back to the locale default.
		c.WeekStart = ""
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.PageIdleMinutes <= 0 {
		c.PageIdleMinutes = defaultIdleMinutes
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if len(c.Palette) == 0 {
		c.Palette = append([]string(nil), model.DefaultPalette...)
	}
	if c.LMS.TimeoutSeconds <= 0 {
		c.LMS.TimeoutSeconds = defaultTimeout
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		if c.Feeds[i].ID == "" {
			c.Feeds[i].ID = c.Feeds[i].Name
		}
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizon
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.PasswordHash == "" {
		c.BasicAuth = nil
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeekStartDay returns the configured first weekday, or nil for the
// locale default.
func (c *Config) WeekStartDay() *time.Weekday {
	var d time.Weekday
	switch c.WeekStart {
	case "monday":
		d = time.Monday
	case "sunday":
		d = time.Sunday
	default:
		return nil
	}
	return &d
}

// ICSFeeds converts the feed list for the importer.
func (c *Config) ICSFeeds() []ics.Feed {
	out := make([]ics.Feed, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		out = append(out, ics.Feed{ID: f.ID, Name: f.Name, URL: f.URL, Enrolled: f.Enrolled})
	}
	return out
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

// Save writes cfg atomically (temp file + rename) with 0600 permissions,
// creating the parent directory with 0700 when needed.
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

	tmp, err := os.CreateTemp(dir, ".iltcal-config-*.tmp")
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
