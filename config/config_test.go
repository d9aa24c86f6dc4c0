package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kubestats.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	content := `
version: v1
storage_dir: /var/lib/kubestats

repositories:
  - id: homelab
    path: /srv/repos/homelab
  - id: prod
    path: /srv/repos/prod

scan:
  interval: 2m
  exclude_dirs:
    - generated

telemetry:
  metrics_addr: ":9191"
  otel_endpoint: localhost:4317
  insecure: true
  log_level: debug
`
	cfg, err := LoadConfig(writeConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Version != "v1" {
		t.Errorf("Version = %v, want v1", cfg.Version)
	}
	if cfg.StorageDir != "/var/lib/kubestats" {
		t.Errorf("StorageDir = %v", cfg.StorageDir)
	}
	if len(cfg.Repositories) != 2 {
		t.Fatalf("Repositories count = %v, want 2", len(cfg.Repositories))
	}
	if cfg.Repositories[0].ID != "homelab" {
		t.Errorf("Repositories[0].ID = %v", cfg.Repositories[0].ID)
	}
	if cfg.Scan.Interval != 2*time.Minute {
		t.Errorf("Scan.Interval = %v, want 2m", cfg.Scan.Interval)
	}
	if cfg.Telemetry.MetricsAddr != ":9191" {
		t.Errorf("MetricsAddr = %v", cfg.Telemetry.MetricsAddr)
	}
	if !cfg.Telemetry.Insecure {
		t.Error("Insecure = false, want true")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	content := `
version: v1
repositories:
  - id: homelab
    path: /srv/repos/homelab
`
	cfg, err := LoadConfig(writeConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Scan.Interval != 5*time.Minute {
		t.Errorf("Scan.Interval = %v, want default 5m", cfg.Scan.Interval)
	}
	if cfg.Telemetry.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %v, want default :9090", cfg.Telemetry.MetricsAddr)
	}
	if cfg.Telemetry.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want default info", cfg.Telemetry.LogLevel)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing version", "repositories:\n  - id: a\n    path: /srv/a\n"},
		{"no repositories", "version: v1\n"},
		{"repository without path", "version: v1\nrepositories:\n  - id: a\n"},
		{"duplicate repository id", "version: v1\nrepositories:\n  - id: a\n    path: /srv/a\n  - id: a\n    path: /srv/b\n"},
		{"interval too short", "version: v1\nrepositories:\n  - id: a\n    path: /srv/a\nscan:\n  interval: 100ms\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("LoadConfig() expected error, got nil")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() expected error for missing file")
	}
}
