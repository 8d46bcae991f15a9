package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "status == offline", "uptime_24h < 97",
	// "latency_ms > 500", "cert_days_left < 14".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | discord | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultSnapshotTTL    = 15 * time.Minute
	DefaultStreamInterval = 5 * time.Second
	DefaultTimezone       = "UTC"
	DefaultBannerTarget   = "mc"
	DefaultArchivePath    = "sitestatus.db"
	DefaultRetention      = 30 * 24 * time.Hour
	DefaultAuthHeader     = "x-api-key"
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the ingest endpoint, REST API and WebSocket hub
	// listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates agents posting snapshots.
	Auth AuthConfig `yaml:"auth"`

	// Snapshot controls in-memory snapshot retention.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Stream controls the WebSocket broadcast cadence.
	Stream StreamConfig `yaml:"stream"`

	// Display controls how times and the banner are rendered.
	Display DisplayConfig `yaml:"display"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`

	// Storage configures the optional snapshot archive.
	Storage StorageConfig `yaml:"storage"`
}

// AuthConfig controls agent authentication on the ingest endpoint.
type AuthConfig struct {
	// Mode is one of: apikey | basic | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header to read the key from. Defaults to "x-api-key".
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Username and PasswordHashEnv are used when Mode == "basic". The
	// variable holds a bcrypt hash, never the plain password.
	Username        string `yaml:"username"`
	PasswordHashEnv string `yaml:"password_hash_env"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// PasswordHash returns the bcrypt hash resolved from the environment.
func (a AuthConfig) PasswordHash() string {
	if a.PasswordHashEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordHashEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultAuthHeader
}

// SnapshotConfig controls in-memory snapshot retention.
type SnapshotConfig struct {
	// TTL is how long a target's snapshot remains in the store after its last
	// update. Default: 15m.
	TTL time.Duration `yaml:"ttl"`
}

// StreamConfig controls the WebSocket hub.
type StreamConfig struct {
	// Interval between snapshot broadcasts. Default: 5s.
	Interval time.Duration `yaml:"interval"`
}

// DisplayConfig controls rendering of the status page.
type DisplayConfig struct {
	// Timezone is an IANA name used for exact times and dot ranges.
	Timezone string `yaml:"timezone"`

	// BannerTarget is the target id whose status drives the banner.
	BannerTarget string `yaml:"banner_target"`
}

// Location returns the configured time zone. Validated by Load.
func (d DisplayConfig) Location() *time.Location {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StorageConfig configures the snapshot archive.
type StorageConfig struct {
	// Backend is "sqlite" or empty to disable archiving.
	Backend string `yaml:"backend"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// Retention is how long archived snapshots are kept. Default: 720h.
	Retention time.Duration `yaml:"retention"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Snapshot: SnapshotConfig{
				TTL: DefaultSnapshotTTL,
			},
			Stream: StreamConfig{
				Interval: DefaultStreamInterval,
			},
			Display: DisplayConfig{
				Timezone:     DefaultTimezone,
				BannerTarget: DefaultBannerTarget,
			},
			Storage: StorageConfig{
				Path:      DefaultArchivePath,
				Retention: DefaultRetention,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey":
		if s.Auth.KeyEnv == "" {
			return fmt.Errorf("server.auth.key_env is required for mode apikey")
		}
	case "basic":
		if s.Auth.Username == "" || s.Auth.PasswordHashEnv == "" {
			return fmt.Errorf("server.auth.username and password_hash_env are required for mode basic")
		}
	case "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|basic|none", s.Auth.Mode)
	}
	if s.Snapshot.TTL < 0 {
		return fmt.Errorf("server.snapshot.ttl must not be negative")
	}
	if s.Stream.Interval <= 0 {
		return fmt.Errorf("server.stream.interval must be positive")
	}
	if _, err := time.LoadLocation(s.Display.Timezone); err != nil {
		return fmt.Errorf("server.display.timezone %q: %w", s.Display.Timezone, err)
	}
	switch s.Storage.Backend {
	case "sqlite":
		if s.Storage.Path == "" {
			return fmt.Errorf("server.storage.path is required for backend sqlite")
		}
	case "":
	default:
		return fmt.Errorf("server.storage.backend %q unknown: want sqlite or empty", s.Storage.Backend)
	}
	if s.Storage.Retention < 0 {
		return fmt.Errorf("server.storage.retention must not be negative")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" || r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name and condition are required", i)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "discord", "http":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d].type %q unknown: want slack|teams|discord|http", i, w.Type)
		}
	}
	return nil
}
