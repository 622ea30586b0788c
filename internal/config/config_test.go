package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("expected default address :8080, got %s", cfg.Server.Address)
	}
	if cfg.Server.GracefulTimeout != 10*time.Second {
		t.Errorf("unexpected graceful timeout %v", cfg.Server.GracefulTimeout)
	}
	if cfg.Analytics.ActivityThresholdDays != 15 {
		t.Errorf("expected activity threshold 15, got %d", cfg.Analytics.ActivityThresholdDays)
	}
	if len(cfg.Analytics.SecurityTools) != 3 {
		t.Errorf("expected 3 monitored tools, got %v", cfg.Analytics.SecurityTools)
	}
	if cfg.Analytics.GapTool != "vulnscan" {
		t.Errorf("expected gap tool vulnscan, got %s", cfg.Analytics.GapTool)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  address: ":9999"
  metricsAddress: ""
clients:
  inventory:
    baseURL: "http://inventory.internal:9090"
    timeout: 2s
logging:
  level: debug
  json: true
analytics:
  gapTool: patchmgmt
  securityTools: [edr, patchmgmt]
  activityThresholdDays: 30
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Address != ":9999" {
		t.Errorf("expected :9999, got %s", cfg.Server.Address)
	}
	if cfg.Clients.Inventory.BaseURL != "http://inventory.internal:9090" {
		t.Errorf("unexpected base URL %s", cfg.Clients.Inventory.BaseURL)
	}
	if cfg.Clients.Inventory.Timeout != 2*time.Second {
		t.Errorf("unexpected timeout %v", cfg.Clients.Inventory.Timeout)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Analytics.GapTool != "patchmgmt" {
		t.Errorf("expected patchmgmt, got %s", cfg.Analytics.GapTool)
	}
	if cfg.Analytics.ActivityThresholdDays != 30 {
		t.Errorf("expected 30, got %d", cfg.Analytics.ActivityThresholdDays)
	}
	// Untouched sections keep their defaults.
	if cfg.Clients.Inventory.HistoryPath != "/api/v1/coverage/history" {
		t.Errorf("unexpected history path %s", cfg.Clients.Inventory.HistoryPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COVERAGE_ENGINE_SERVER_ADDRESS", ":7070")
	t.Setenv("COVERAGE_INVENTORY_BASE_URL", "http://override:9090")
	t.Setenv("COVERAGE_ENGINE_LOG_FORMAT", "json")
	t.Setenv("COVERAGE_ENGINE_CACHE_ENABLED", "true")
	t.Setenv("COVERAGE_ENGINE_SECURITY_TOOLS", "edr, logfwd")
	t.Setenv("COVERAGE_ENGINE_ACTIVITY_THRESHOLD_DAYS", "20")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Address != ":7070" {
		t.Errorf("expected :7070, got %s", cfg.Server.Address)
	}
	if cfg.Clients.Inventory.BaseURL != "http://override:9090" {
		t.Errorf("unexpected base URL %s", cfg.Clients.Inventory.BaseURL)
	}
	if !cfg.Logging.JSON {
		t.Error("expected json logging")
	}
	if !cfg.Cache.Enabled {
		t.Error("expected cache enabled")
	}
	if len(cfg.Analytics.SecurityTools) != 2 || cfg.Analytics.SecurityTools[1] != "logfwd" {
		t.Errorf("unexpected security tools %v", cfg.Analytics.SecurityTools)
	}
	if cfg.Analytics.ActivityThresholdDays != 20 {
		t.Errorf("expected 20, got %d", cfg.Analytics.ActivityThresholdDays)
	}
}
