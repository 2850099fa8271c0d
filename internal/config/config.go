package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	MonthScopeRollingWeek = "rolling_week"
	MonthScopeFullMonth   = "full_month"

	defaultListen      = "127.0.0.1:8080"
	defaultAPIBaseURL  = "http://localhost:4000/api/v1"
	defaultRefreshCron = "*/15 * * * *"
	defaultPreviewPath = "./cache/preview.png"
)

// FeedConfig describes a read-only ICS feed merged into the schedule
// (campus holidays, exam calendars).
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is used as the event source and for logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// MetricsListen, if set, serves /metrics on a dedicated address.
	MetricsListen string `yaml:"metrics_listen" json:"metrics_listen"`

	// APIBaseURL is the platform REST API root, including /api/v1.
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`

	// Token is the bearer token of the signed-in user. TokenFile takes
	// precedence when both are set.
	Token     string `yaml:"token,omitempty" json:"-"`
	TokenFile string `yaml:"token_file,omitempty" json:"token_file,omitempty"`

	// RequestTimeoutSeconds bounds each REST call.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" json:"request_timeout_seconds"`

	// Timezone is the IANA timezone used to decide which calendar day an
	// event falls on.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// MonthScope controls which events populate the month grid:
	//   - "rolling_week" (default): only [selected date, +7 days)
	//   - "full_month": every event of the displayed month
	MonthScope string `yaml:"month_scope" json:"month_scope"`

	// RefreshCron is a cron-style schedule for refetching events.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// NoticeSeconds is how long a success notice stays visible.
	NoticeSeconds int `yaml:"notice_seconds" json:"notice_seconds"`

	// PreviewPath is where `classcal snapshot` writes the PNG served at
	// /preview.png.
	PreviewPath string `yaml:"preview_path" json:"preview_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format" json:"log_format"`

	// Feeds is the list of extra ICS feeds.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:                defaultListen,
		APIBaseURL:            defaultAPIBaseURL,
		RequestTimeoutSeconds: 15,
		Timezone:              "Local",
		WeekStart:             "sunday",
		MonthScope:            MonthScopeRollingWeek,
		RefreshCron:           defaultRefreshCron,
		NoticeSeconds:         3,
		PreviewPath:           defaultPreviewPath,
		LogLevel:              "info",
		LogFormat:             "text",
		Feeds:                 []FeedConfig{},
		BasicAuth:             nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 15
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}

	switch strings.ToLower(c.WeekStart) {
	case "monday":
		c.WeekStart = "monday"
	default:
		// Unknown value; fall back to sunday to keep the classic layout.
		c.WeekStart = "sunday"
	}

	switch c.MonthScope {
	case MonthScopeRollingWeek, MonthScopeFullMonth:
	default:
		c.MonthScope = MonthScopeRollingWeek
	}

	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.NoticeSeconds <= 0 {
		c.NoticeSeconds = 3
	}
	if c.PreviewPath == "" {
		c.PreviewPath = defaultPreviewPath
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat != "json" {
		c.LogFormat = "text"
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// WeekStartDay maps WeekStart to a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if strings.EqualFold(c.WeekStart, "monday") {
		return time.Monday
	}
	return time.Sunday
}

// SessionToken returns the bearer token, reading TokenFile when set.
// An empty token with a nil error means the user is signed out.
func (c *Config) SessionToken() (string, error) {
	if c.TokenFile == "" {
		return strings.TrimSpace(c.Token), nil
	}
	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read, unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
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

	tmp, err := os.CreateTemp(dir, ".classcal-config-*.tmp")
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

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
