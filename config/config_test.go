package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("expected default NATS URL nats://127.0.0.1:4222, got %s", cfg.NATS.URL)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected default HTTP addr :8080, got %s", cfg.HTTP.Addr)
	}
	if cfg.Redis.Addr != "" {
		t.Error("expected Redis cache disabled by default")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Log.Level)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing NATS URL",
			modify:  func(c *Config) { c.NATS.URL = "" },
			wantErr: true,
		},
		{
			name:    "missing HTTP addr",
			modify:  func(c *Config) { c.HTTP.Addr = "" },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "redis enabled without TTL",
			modify:  func(c *Config) { c.Redis.Addr = "127.0.0.1:6379"; c.Redis.TTL = 0 },
			wantErr: true,
		},
		{
			name:    "redis enabled with TTL",
			modify:  func(c *Config) { c.Redis.Addr = "127.0.0.1:6379"; c.Redis.TTL = time.Minute },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menulive.yaml")
	content := `nats:
  url: nats://example.com:4222
http:
  addr: ":9090"
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NATS.URL != "nats://example.com:4222" {
		t.Errorf("expected file NATS URL, got %s", cfg.NATS.URL)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("expected file HTTP addr, got %s", cfg.HTTP.Addr)
	}
	// Unset fields keep defaults.
	if cfg.NATS.ConnectTimeout != 10*time.Second {
		t.Errorf("expected default connect timeout, got %v", cfg.NATS.ConnectTimeout)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	other := &Config{}
	other.NATS.URL = "nats://other:4222"
	other.Log.Level = "warn"

	base.Merge(other)

	if base.NATS.URL != "nats://other:4222" {
		t.Errorf("expected merged NATS URL, got %s", base.NATS.URL)
	}
	if base.Log.Level != "warn" {
		t.Errorf("expected merged log level, got %s", base.Log.Level)
	}
	// Zero values in other leave base untouched.
	if base.HTTP.Addr != ":8080" {
		t.Errorf("expected base HTTP addr preserved, got %s", base.HTTP.Addr)
	}
}

func TestLoaderEnvOverrides(t *testing.T) {
	t.Setenv("MENULIVE_NATS_URL", "nats://env:4222")
	t.Setenv("MENULIVE_LOG_LEVEL", "error")

	loader := NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NATS.URL != "nats://env:4222" {
		t.Errorf("expected env NATS URL, got %s", cfg.NATS.URL)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("expected env log level, got %s", cfg.Log.Level)
	}
}

func TestLoaderExplicitMissingFileFails(t *testing.T) {
	loader := NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := loader.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for explicitly named missing file")
	}
}
