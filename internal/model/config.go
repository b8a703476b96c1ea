package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Transport selects how push events reach the client.
type Transport string

const (
	TransportWebSocket Transport = "websocket"
	TransportRedis     Transport = "redis"
)

// PortalConfig describes how to reach the portal backend.
type PortalConfig struct {
	// BaseURL is the REST API root (e.g., http://localhost:5000/api).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// PushURL is the WebSocket endpoint for real-time events.
	PushURL string `mapstructure:"push_url" yaml:"push_url"`

	Transport Transport `mapstructure:"transport" yaml:"transport"`

	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix" yaml:"redis_prefix"`

	// RequestsPerSec throttles REST calls from this client.
	RequestsPerSec float64 `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
}

// SessionConfig identifies the signed-in user.
type SessionConfig struct {
	UserID  string `mapstructure:"user_id" yaml:"user_id"`
	Role    Role   `mapstructure:"role" yaml:"role"`
	Profile string `mapstructure:"profile" yaml:"profile"`
}

// SyncConfig controls snapshot fetching.
type SyncConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	TimeoutSec      int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	Limit           int `mapstructure:"limit" yaml:"limit"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`

	// File receives log output while the terminal UI owns stdout.
	File string `mapstructure:"file" yaml:"file"`
}

// JournalConfig locates the local sync journal.
type JournalConfig struct {
	Path    string `mapstructure:"path" yaml:"path"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Portal       PortalConfig  `mapstructure:"portal" yaml:"portal"`
	Session      SessionConfig `mapstructure:"session" yaml:"session"`
	Sync         SyncConfig    `mapstructure:"sync" yaml:"sync"`
	MessageRoles []Role        `mapstructure:"message_roles" yaml:"message_roles"`
	Log          LogConfig     `mapstructure:"log" yaml:"log"`
	Journal      JournalConfig `mapstructure:"journal" yaml:"journal"`
	Display      DisplayConfig `mapstructure:"display" yaml:"display"`
}

// NewSession builds the runtime session from config and a credential.
func (c *AppConfig) NewSession(token string) Session {
	return Session{
		UserID:       c.Session.UserID,
		Role:         c.Session.Role,
		Token:        token,
		MessageRoles: c.MessageRoles,
	}
}

// configDir is ~/.config/portal-notify, or "." when home is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "portal-notify")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/portal-notify/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultJournalPath returns ~/.config/portal-notify/journal.db.
func DefaultJournalPath() string {
	return filepath.Join(configDir(), "journal.db")
}

// setDefaults registers every default on v so missing keys and
// environment-only setups resolve to sensible values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("portal.base_url", "http://localhost:5000/api")
	v.SetDefault("portal.push_url", "ws://localhost:5000/ws")
	v.SetDefault("portal.transport", string(TransportWebSocket))
	v.SetDefault("portal.redis_addr", "localhost:6379")
	v.SetDefault("portal.redis_password", "")
	v.SetDefault("portal.redis_db", 0)
	v.SetDefault("portal.redis_prefix", "")
	v.SetDefault("portal.requests_per_sec", 5.0)
	v.SetDefault("session.user_id", "")
	v.SetDefault("session.role", string(RoleCandidate))
	v.SetDefault("session.profile", "default")
	v.SetDefault("sync.poll_interval_sec", 60)
	v.SetDefault("sync.timeout_sec", 30)
	v.SetDefault("sync.limit", 5)
	v.SetDefault("message_roles", []string{string(RoleCandidate)})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", filepath.Join(configDir(), "portal-notify.log"))
	v.SetDefault("journal.path", DefaultJournalPath())
	v.SetDefault("journal.enabled", true)
	v.SetDefault("display.theme", "default")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// PORTAL_* environment variables override file values. If the file does
// not exist, defaults (plus environment) are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("portal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail much later.
func (c *AppConfig) Validate() error {
	switch c.Portal.Transport {
	case TransportWebSocket, TransportRedis:
	default:
		return fmt.Errorf("unknown push transport %q", c.Portal.Transport)
	}
	switch c.Session.Role {
	case RoleCandidate, RoleRecruiter, RoleAdmin:
	default:
		return fmt.Errorf("unknown session role %q", c.Session.Role)
	}
	switch c.Display.Theme {
	case "", "default", "mono":
	default:
		return fmt.Errorf("unknown display theme %q", c.Display.Theme)
	}
	if c.Sync.Limit <= 0 {
		c.Sync.Limit = 5
	}
	if c.Sync.PollIntervalSec <= 0 {
		c.Sync.PollIntervalSec = 60
	}
	if c.Sync.TimeoutSec <= 0 {
		c.Sync.TimeoutSec = 30
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("portal", cfg.Portal)
	v.Set("session", cfg.Session)
	v.Set("sync", cfg.Sync)
	v.Set("message_roles", cfg.MessageRoles)
	v.Set("log", cfg.Log)
	v.Set("journal", cfg.Journal)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
