package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsNoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("expected no error when loading default config, got: %v", err)
	}

	if cfg.Cache.InitialSize != 500 {
		t.Errorf("expected default cache.initial_size 500, got %d", cfg.Cache.InitialSize)
	}
	if cfg.Notify.BufferLimit != 64 {
		t.Errorf("expected default notify.buffer_limit 64, got %d", cfg.Notify.BufferLimit)
	}
	if cfg.Pool.Workers != 25 {
		t.Errorf("expected default pool.workers 25, got %d", cfg.Pool.Workers)
	}
	if cfg.DB.Min != 5 || cfg.DB.Max != 10 {
		t.Errorf("expected default db pool [5,10], got [%d,%d]", cfg.DB.Min, cfg.DB.Max)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
cache:
  initial_size: 1000
  case_sensitive: true
  expire_interval: 30s

notify:
  default_lease: 5m
  buffer_limit: 128

pool:
  workers: 50

db:
  dsn: "postgres://localhost/smbnotifyd"
  min: 2
  max: 20
  lease: 15s
  online_check_interval: 10
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Cache.InitialSize != 1000 {
		t.Errorf("expected cache.initial_size 1000, got %d", cfg.Cache.InitialSize)
	}
	if !cfg.Cache.CaseSensitive {
		t.Errorf("expected cache.case_sensitive true")
	}
	if cfg.Cache.ExpireInterval != 30*time.Second {
		t.Errorf("expected cache.expire_interval 30s, got %s", cfg.Cache.ExpireInterval)
	}
	if cfg.Notify.DefaultLease != 5*time.Minute {
		t.Errorf("expected notify.default_lease 5m, got %s", cfg.Notify.DefaultLease)
	}
	if cfg.Notify.BufferLimit != 128 {
		t.Errorf("expected notify.buffer_limit 128, got %d", cfg.Notify.BufferLimit)
	}
	if cfg.Pool.Workers != 50 {
		t.Errorf("expected pool.workers 50, got %d", cfg.Pool.Workers)
	}
	if cfg.DB.Min != 2 || cfg.DB.Max != 20 {
		t.Errorf("expected db pool [2,20], got [%d,%d]", cfg.DB.Min, cfg.DB.Max)
	}
	if cfg.DB.OnlineCheckInterval != 10 {
		t.Errorf("expected db.online_check_interval 10, got %d", cfg.DB.OnlineCheckInterval)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
cache:
  initial_size: 1000
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("expected error with invalid YAML, got nil")
	}
}

func TestLoad_RejectsBadMinMax(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
db:
  min: 20
  max: 5
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("expected validation error for db.min > db.max")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	_ = os.Setenv("SMBNOTIFYD_POOL_WORKERS", "99")
	_ = os.Setenv("SMBNOTIFYD_NOTIFY_BUFFER_LIMIT", "16")
	defer func() {
		_ = os.Unsetenv("SMBNOTIFYD_POOL_WORKERS")
		_ = os.Unsetenv("SMBNOTIFYD_NOTIFY_BUFFER_LIMIT")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("pool:\n  workers: 25\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Pool.Workers != 99 {
		t.Errorf("expected pool.workers 99 from env var, got %d", cfg.Pool.Workers)
	}
	if cfg.Notify.BufferLimit != 16 {
		t.Errorf("expected notify.buffer_limit 16 from env var, got %d", cfg.Notify.BufferLimit)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("expected filename config.yaml, got %q", filepath.Base(path))
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Pool.Workers = 42

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Pool.Workers != 42 {
		t.Errorf("expected round-tripped pool.workers 42, got %d", loaded.Pool.Workers)
	}
}
