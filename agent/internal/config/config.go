package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chickenjockey/sitestatus/agent/internal/compute"
	"github.com/chickenjockey/sitestatus/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHistoryURL        = "https://api.ucscmc.com/history"
	DefaultLatestURL         = "https://api.ucscmc.com/latest"
	DefaultHistoryRefresh    = 5 * time.Minute
	DefaultLatestRefresh     = 60 * time.Second
	DefaultHistoryDedupe     = 30 * time.Second
	DefaultLatestDedupe      = 10 * time.Second
	DefaultFetchTimeout      = 10 * time.Second
	DefaultShipInterval      = 15 * time.Second
	DefaultBufferSize        = 1000
	DefaultCertCheckInterval = 6 * time.Hour
	DefaultStripPolicy       = "down"
	DefaultLivePolicy        = "fallback"
)

// Config is the top-level agent configuration.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// ServerEndpoint is the base URL of sitestatus-server, e.g.
	// "http://localhost:8080". Empty disables shipping (report-only mode).
	ServerEndpoint string `yaml:"server_endpoint"`

	// ShipInterval controls how often buffered snapshots are sent to the server.
	ShipInterval time.Duration `yaml:"ship_interval"`

	// BufferSize is the maximum number of snapshots held in memory when
	// the server is unreachable.
	BufferSize int `yaml:"buffer_size"`

	// ServerAuth configures how the agent authenticates to the server.
	ServerAuth AuthConfig `yaml:"server_auth"`

	// Feeds locates the two upstream status feeds.
	Feeds FeedsConfig `yaml:"feeds"`

	// CertCheckInterval controls how often feed TLS certificates are inspected.
	CertCheckInterval time.Duration `yaml:"cert_check_interval"`

	// Policy selects how INVALID readings count on each surface.
	Policy PolicyConfig `yaml:"policy"`

	// Targets lists the monitored services, in display order.
	Targets []Target `yaml:"targets"`
}

// FeedsConfig describes the upstream history and latest feeds.
type FeedsConfig struct {
	HistoryURL string `yaml:"history_url"`
	LatestURL  string `yaml:"latest_url"`

	// HistoryRefresh and LatestRefresh are the polling periods.
	HistoryRefresh time.Duration `yaml:"history_refresh"`
	LatestRefresh  time.Duration `yaml:"latest_refresh"`

	// HistoryDedupe and LatestDedupe are the windows during which a repeated
	// fetch is answered from the previous response.
	HistoryDedupe time.Duration `yaml:"history_dedupe"`
	LatestDedupe  time.Duration `yaml:"latest_dedupe"`

	// Timeout bounds a single fetch.
	Timeout time.Duration `yaml:"timeout"`

	Auth AuthConfig `yaml:"auth"`
	TLS  TLSConfig  `yaml:"tls"`
}

// PolicyConfig holds the INVALID-reading policy per surface:
// down | up | fallback.
type PolicyConfig struct {
	// Strip applies to the hourly dots and uptime percentages.
	Strip string `yaml:"strip"`
	// Live applies to the current status pill.
	Live string `yaml:"live"`
}

// StripPolicy returns the parsed strip policy. Validated by Load.
func (p PolicyConfig) StripPolicy() compute.InvalidPolicy {
	v, _ := compute.ParsePolicy(p.Strip)
	return v
}

// LivePolicy returns the parsed live policy. Validated by Load.
func (p PolicyConfig) LivePolicy() compute.InvalidPolicy {
	v, _ := compute.ParsePolicy(p.Live)
	return v
}

// Target is one monitored service.
type Target struct {
	// ID matches target_id in the feeds.
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	// Kind is web | game. Game targets report player counts.
	Kind string `yaml:"kind"`
}

// AuthConfig specifies an HTTP authentication mode.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// API key fields, used when Mode == "apikey".
	// Header is the HTTP header name to send the key in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv names the variable holding the bearer token (Mode == "bearer").
	TokenEnv string `yaml:"token_env"`

	// Basic auth fields, used when Mode == "basic".
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options for the feeds.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// DefaultTargets are monitored when the config lists none.
func DefaultTargets() []Target {
	return []Target{
		{ID: "site", Title: "Website", Subtitle: "chickenjockey.lol", Kind: types.KindWeb},
		{ID: "map", Title: "Map", Subtitle: "map.chickenjockey.lol", Kind: types.KindWeb},
		{ID: "mc", Title: "Minecraft", Subtitle: "mc.chickenjockey.lol", Kind: types.KindGame},
	}
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config bytes, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	applyTargetDefaults(&cfg.Agent)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := defaults()
	applyTargetDefaults(&cfg.Agent)
	return cfg
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			ShipInterval:      DefaultShipInterval,
			BufferSize:        DefaultBufferSize,
			CertCheckInterval: DefaultCertCheckInterval,
			Feeds: FeedsConfig{
				HistoryURL:     DefaultHistoryURL,
				LatestURL:      DefaultLatestURL,
				HistoryRefresh: DefaultHistoryRefresh,
				LatestRefresh:  DefaultLatestRefresh,
				HistoryDedupe:  DefaultHistoryDedupe,
				LatestDedupe:   DefaultLatestDedupe,
				Timeout:        DefaultFetchTimeout,
			},
			Policy: PolicyConfig{
				Strip: DefaultStripPolicy,
				Live:  DefaultLivePolicy,
			},
		},
	}
}

func applyTargetDefaults(a *AgentConfig) {
	if len(a.Targets) == 0 {
		a.Targets = DefaultTargets()
	}
	for i := range a.Targets {
		t := &a.Targets[i]
		if t.Kind == "" {
			t.Kind = types.KindWeb
		}
		if t.Title == "" {
			t.Title = t.ID
		}
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.Feeds.HistoryURL == "" {
		return fmt.Errorf("agent.feeds.history_url is required")
	}
	if a.Feeds.LatestURL == "" {
		return fmt.Errorf("agent.feeds.latest_url is required")
	}
	for name, d := range map[string]time.Duration{
		"agent.feeds.history_refresh": a.Feeds.HistoryRefresh,
		"agent.feeds.latest_refresh":  a.Feeds.LatestRefresh,
		"agent.feeds.timeout":         a.Feeds.Timeout,
		"agent.ship_interval":         a.ShipInterval,
		"agent.cert_check_interval":   a.CertCheckInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if a.Feeds.HistoryDedupe < 0 || a.Feeds.LatestDedupe < 0 {
		return fmt.Errorf("agent.feeds dedupe windows must not be negative")
	}
	if a.BufferSize <= 0 {
		return fmt.Errorf("agent.buffer_size must be positive")
	}
	if _, err := compute.ParsePolicy(a.Policy.Strip); err != nil {
		return fmt.Errorf("agent.policy.strip: %w", err)
	}
	if _, err := compute.ParsePolicy(a.Policy.Live); err != nil {
		return fmt.Errorf("agent.policy.live: %w", err)
	}
	if err := validateAuth("agent.feeds.auth", a.Feeds.Auth, "apikey", "bearer", "basic"); err != nil {
		return err
	}
	if err := validateAuth("agent.server_auth", a.ServerAuth, "apikey", "basic"); err != nil {
		return err
	}

	seen := make(map[string]bool, len(a.Targets))
	for i, t := range a.Targets {
		if t.ID == "" {
			return fmt.Errorf("targets[%d]: id is required", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("targets[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
		switch t.Kind {
		case types.KindWeb, types.KindGame:
		default:
			return fmt.Errorf("targets[%d] %q: unknown kind %q", i, t.ID, t.Kind)
		}
	}
	return nil
}

func validateAuth(field string, a AuthConfig, modes ...string) error {
	if a.Mode == "" || a.Mode == "none" {
		return nil
	}
	for _, m := range modes {
		if a.Mode == m {
			if m == "apikey" && a.Header == "" {
				return fmt.Errorf("%s: header is required for apikey mode", field)
			}
			return nil
		}
	}
	return fmt.Errorf("%s: unknown auth mode %q", field, a.Mode)
}
