package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
  console: true
storage:
  driver: file
  path: ./data/store
sweeper:
  enabled: true
  schedule: "@every 30s"
api:
  delay: 150ms
servers:
  - id: "1"
    name: Edge 1
    address: 10.0.0.1
    status: online
`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if !cfg.Sweeper.Enabled || cfg.Sweeper.Schedule != "@every 30s" {
		t.Fatalf("sweeper = %+v", cfg.Sweeper)
	}
	if got := cfg.FacadeConfig().Delay; got != 150*time.Millisecond {
		t.Fatalf("facade delay = %v", got)
	}
	if servers := cfg.CatalogServers(); len(servers) != 1 || servers[0].Name != "Edge 1" {
		t.Fatalf("servers = %+v", servers)
	}
	if m.Get() != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"loging": {"level": "info"}}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateRejectsBadServers(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{"servers": [{"name": "x"}]}`},
		{"duplicate id", `{"servers": [{"id": "1"}, {"id": "1"}]}`},
		{"bad status", `{"servers": [{"id": "1", "status": "degraded"}]}`},
		{"bad delay", `{"api": {"delay": "soon"}}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.json", tt.body)
			if _, err := NewManager(path).Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestFacadeDelayMapping(t *testing.T) {
	t.Parallel()

	var c Config
	if d := c.FacadeConfig().Delay; d != 0 {
		t.Fatalf("empty delay should defer to facade default, got %v", d)
	}

	c.API.Delay = "0s"
	if d := c.FacadeConfig().Delay; d >= 0 {
		t.Fatalf("explicit 0s should disable the delay, got %v", d)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", " 2m "); err != nil || d != 2*time.Minute {
		t.Fatalf("got (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("x", "-2m"); err == nil {
		t.Fatal("negative durations must be rejected")
	}
	if d, err := ParseDurationOrDefault("x", "", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("got (%v, %v)", d, err)
	}
}
