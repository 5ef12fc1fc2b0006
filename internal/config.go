package internal

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/timeshift/internal/notion"
	"github.com/starford/timeshift/internal/shift"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Environment variables read by NewDefaultConfig.
const (
	EnvAPIKey     = "NOTION_API_KEY"
	EnvDatabaseID = "DATABASE_ID_PLANES"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Notion  NotionConfig      `yaml:"notion"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Presets PresetsConfig     `yaml:"presets"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Notion.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Events.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, receives a copy of every log line.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NotionConfig holds the remote database coordinates and client tuning.
type NotionConfig struct {
	APIKey       string        `yaml:"api_key"`
	DatabaseID   string        `yaml:"database_id"`
	BaseURL      string        `yaml:"base_url"`
	Version      string        `yaml:"version"`
	Timeout      time.Duration `yaml:"timeout"`
	PageSize     int           `yaml:"page_size"`
	DateProperty string        `yaml:"date_property"`
}

// Validate validates the Notion configuration.
func (c *NotionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIKey, validation.Required.Error("is required (set "+EnvAPIKey+")")),
		validation.Field(&c.DatabaseID, validation.Required.Error("is required (set "+EnvDatabaseID+")")),
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Version, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Second)),
		validation.Field(&c.PageSize, validation.Min(1), validation.Max(100)),
		validation.Field(&c.DateProperty, validation.Required),
	)
}

// ClientOptions converts the config into notion client options.
func (c *NotionConfig) ClientOptions() notion.Options {
	return notion.Options{
		BaseURL: c.BaseURL,
		APIKey:  c.APIKey,
		Version: c.Version,
		Timeout: c.Timeout,
	}
}

// EngineSettings converts the config into engine settings.
func (c *NotionConfig) EngineSettings() shift.Settings {
	return shift.Settings{
		DatabaseID:   c.DatabaseID,
		DateProperty: c.DateProperty,
		PageSize:     c.PageSize,
	}
}

// SQLiteConfig holds the audit database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PresetsConfig points at the filter presets file. An empty path disables presets.
type PresetsConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// EventsConfig tunes the SSE progress stream.
type EventsConfig struct {
	ProgressThrottle time.Duration `yaml:"progress_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ProgressThrottle, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values. Credentials
// come from the environment; a config file may override them.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Notion: NotionConfig{
			APIKey:       os.Getenv(EnvAPIKey),
			DatabaseID:   os.Getenv(EnvDatabaseID),
			BaseURL:      notion.DefaultBaseURL,
			Version:      notion.DefaultVersion,
			Timeout:      notion.DefaultTimeout,
			PageSize:     shift.DefaultPageSize,
			DateProperty: shift.DefaultDateProperty,
		},
		SQLite: SQLiteConfig{
			Path: "./timeshift.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Presets: PresetsConfig{
			Path:  "config/presets.yaml",
			Watch: true,
		},
		Events: EventsConfig{
			ProgressThrottle: 500 * time.Millisecond,
		},
	}
}
