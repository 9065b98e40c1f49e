package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("expected default store memory, got %s", cfg.Store.Type)
	}
	if cfg.Secrets.CleanupInterval != 5*time.Minute {
		t.Errorf("expected default cleanup interval 5m, got %s", cfg.Secrets.CleanupInterval)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("unexpected addr: %s", cfg.Addr())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9090
  base_url: https://secrets.example.com
store:
  type: redis
  redis:
    addr: redis.internal:6379
log:
  level: debug
  format: json
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "https://secrets.example.com" {
		t.Errorf("unexpected base_url: %s", cfg.Server.BaseURL)
	}
	if cfg.Store.Type != "redis" || cfg.Store.Redis.Addr != "redis.internal:6379" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	// Untouched sections keep defaults.
	if !cfg.RateLimit.Enabled {
		t.Error("rate limit default must survive partial file")
	}
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected defaults for missing file, got port %d", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("STORE_TYPE", "redis")
	t.Setenv("REDIS_ADDR", "env-redis:6379")
	t.Setenv("SECRET_ENCRYPTION_KEY", "a2V5")
	t.Setenv("CLEANUP_INTERVAL", "90s")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Store.Redis.Addr != "env-redis:6379" {
		t.Errorf("unexpected redis addr: %s", cfg.Store.Redis.Addr)
	}
	if cfg.Secrets.EncryptionKey != "a2V5" {
		t.Errorf("unexpected encryption key: %s", cfg.Secrets.EncryptionKey)
	}
	if cfg.Secrets.CleanupInterval != 90*time.Second {
		t.Errorf("unexpected cleanup interval: %s", cfg.Secrets.CleanupInterval)
	}
	if cfg.RateLimit.Enabled {
		t.Error("expected rate limit disabled via env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }},
		{"bad store type", func(c *Config) { c.Store.Type = "mongo" }},
		{"redis without addr", func(c *Config) { c.Store.Type = "redis"; c.Store.Redis.Addr = "" }},
		{"bad cleanup interval", func(c *Config) { c.Secrets.CleanupInterval = 0 }},
		{"bad rate limit", func(c *Config) { c.RateLimit.RequestsPerMin = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
