package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Agent-only file; server section absent.
	p := writeConfig(t, `agent:
  server_endpoint: "http://localhost:8080"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", s.HTTPPort, DefaultHTTPPort)
	}
	if s.Snapshot.TTL != DefaultSnapshotTTL {
		t.Errorf("snapshot.ttl: got %v, want %v", s.Snapshot.TTL, DefaultSnapshotTTL)
	}
	if s.Stream.Interval != DefaultStreamInterval {
		t.Errorf("stream.interval: got %v, want %v", s.Stream.Interval, DefaultStreamInterval)
	}
	if s.Display.BannerTarget != "mc" {
		t.Errorf("display.banner_target: got %q, want mc", s.Display.BannerTarget)
	}
	if s.Display.Location() != time.UTC {
		t.Errorf("display location: got %v, want UTC", s.Display.Location())
	}
	if s.Storage.Backend != "" {
		t.Errorf("storage.backend: got %q, want empty", s.Storage.Backend)
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  auth:
    mode: apikey
    key_env: MY_KEY
    header: x-status-key
  snapshot:
    ttl: 10m
  stream:
    interval: 2s
  display:
    timezone: America/Los_Angeles
    banner_target: survival
  storage:
    backend: sqlite
    path: /var/lib/sitestatus/archive.db
    retention: 168h
  alerts:
    rules:
      - name: mc-down
        condition: "status == offline"
        severity: critical
        cooldown: 30m
    webhooks:
      - type: discord
        url_env: DISCORD_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", s.HTTPPort)
	}
	if s.Auth.EffectiveHeader() != "x-status-key" {
		t.Errorf("header: got %q, want x-status-key", s.Auth.EffectiveHeader())
	}
	if s.Snapshot.TTL != 10*time.Minute {
		t.Errorf("snapshot.ttl: got %v, want 10m", s.Snapshot.TTL)
	}
	if s.Stream.Interval != 2*time.Second {
		t.Errorf("stream.interval: got %v, want 2s", s.Stream.Interval)
	}
	if s.Display.BannerTarget != "survival" {
		t.Errorf("banner_target: got %q", s.Display.BannerTarget)
	}
	if s.Storage.Retention != 168*time.Hour {
		t.Errorf("storage.retention: got %v, want 168h", s.Storage.Retention)
	}
	if len(s.Alerts.Rules) != 1 || s.Alerts.Rules[0].Cooldown != 30*time.Minute {
		t.Errorf("alerts.rules: got %+v", s.Alerts.Rules)
	}
	if len(s.Alerts.Webhooks) != 1 || s.Alerts.Webhooks[0].Type != "discord" {
		t.Errorf("alerts.webhooks: got %+v", s.Alerts.Webhooks)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_EnvResolution(t *testing.T) {
	t.Setenv("TEST_SERVER_KEY", "supersecret")
	t.Setenv("TEST_SERVER_HASH", "$2a$10$abc")
	t.Setenv("TEST_HOOK", "https://hooks.example.com/x")

	a := AuthConfig{KeyEnv: "TEST_SERVER_KEY", PasswordHashEnv: "TEST_SERVER_HASH"}
	if k := a.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
	if h := a.PasswordHash(); h != "$2a$10$abc" {
		t.Errorf("PasswordHash(): got %q", h)
	}
	if u := (WebhookConfig{URLEnv: "TEST_HOOK"}).URL(); u != "https://hooks.example.com/x" {
		t.Errorf("URL(): got %q", u)
	}
	if (AuthConfig{}).Key() != "" || (WebhookConfig{}).URL() != "" {
		t.Error("unset env names should resolve to empty strings")
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"unknown auth mode", "server:\n  auth:\n    mode: oauth2\n"},
		{"apikey without key_env", "server:\n  auth:\n    mode: apikey\n"},
		{"basic without hash", "server:\n  auth:\n    mode: basic\n    username: agent\n"},
		{"port out of range", "server:\n  http_port: 70000\n"},
		{"zero stream interval", "server:\n  stream:\n    interval: 0s\n"},
		{"bad timezone", "server:\n  display:\n    timezone: Mars/Olympus\n"},
		{"unknown backend", "server:\n  storage:\n    backend: postgres\n"},
		{"rule without condition", "server:\n  alerts:\n    rules:\n      - name: x\n"},
		{"unknown webhook", "server:\n  alerts:\n    webhooks:\n      - type: pagerduty\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
