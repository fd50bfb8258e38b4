package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loreboard/loreboard/pkg/errors"
	"github.com/loreboard/loreboard/pkg/layout"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() is invalid: %v", err)
	}
	if cfg.Metrics() != layout.DefaultMetrics {
		t.Errorf("Metrics() = %+v, want %+v", cfg.Metrics(), layout.DefaultMetrics)
	}
	if cfg.Viewport() != layout.DefaultViewport {
		t.Errorf("Viewport() = %+v, want %+v", cfg.Viewport(), layout.DefaultViewport)
	}
	if cfg.Server.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.Server.SessionTTL)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loreboard.toml")
	data := `
[board]
card_width = 300

[layout]
seed = 7

[cache]
backend = "redis"
redis_addr = "cache:6379"
ttl = "1h"

[server]
session_ttl = "30m"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, got, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}

	if cfg.Board.CardWidth != 300 {
		t.Errorf("CardWidth = %v, want 300", cfg.Board.CardWidth)
	}
	if cfg.Board.CardHeight != 180 {
		t.Errorf("CardHeight = %v, want default 180", cfg.Board.CardHeight)
	}
	if cfg.Layout.Seed != 7 || cfg.Layout.Iterations != layout.DefaultIterations {
		t.Errorf("Layout = %+v", cfg.Layout)
	}
	if cfg.Cache.Backend != CacheRedis || cfg.Cache.RedisAddr != "cache:6379" || cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Server.SessionTTL != 30*time.Minute || cfg.Server.Addr != ":8080" {
		t.Errorf("Server = %+v", cfg.Server)
	}
}

func TestLoadFromPathErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.Code
	}{
		{"Malformed", "[board\ncard_width = ", errors.ErrCodeInvalidFormat},
		{"UnknownKey", "[board]\ncolour = \"red\"\n", errors.ErrCodeInvalidInput},
		{"UnknownBackend", "[cache]\nbackend = \"memcached\"\n", errors.ErrCodeInvalidInput},
		{"NegativeViewport", "[board]\nviewport_width = -5\n", errors.ErrCodeInvalidViewport},
		{"ZeroCard", "[board]\ncard_height = 0\n", errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "loreboard.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			_, _, err := LoadFromPath(path)
			if !errors.Is(err, tt.code) {
				t.Errorf("LoadFromPath() error = %v, want %s", err, tt.code)
			}
		})
	}

	if _, _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadFromPath() of missing file should fail")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Layout.Seed = 99
	cfg.Source.MongoURI = "mongodb://db:27017"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	loaded, _, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip = %+v, want %+v", loaded, cfg)
	}
}

func TestFindConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv(EnvConfigPath, "")

	if got := FindConfigPath(); got != "" {
		t.Errorf("FindConfigPath() = %q, want none", got)
	}

	xdg := filepath.Join(dir, "xdg", ConfigDirName, "config.toml")
	mustWrite(t, xdg)
	if got := FindConfigPath(); got != xdg {
		t.Errorf("FindConfigPath() = %q, want XDG %q", got, xdg)
	}

	mustWrite(t, filepath.Join(dir, ConfigFileName))
	if got := FindConfigPath(); filepath.Base(got) != ConfigFileName {
		t.Errorf("FindConfigPath() = %q, want working directory file", got)
	}

	explicit := filepath.Join(dir, "explicit.toml")
	mustWrite(t, explicit)
	t.Setenv(EnvConfigPath, explicit)
	if got := FindConfigPath(); got != explicit {
		t.Errorf("FindConfigPath() = %q, want %q", got, explicit)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(EnvConfigPath, "")

	cfg, path, err := Load()
	if err != nil || path != "" {
		t.Fatalf("Load() = %q, %v", path, err)
	}
	if *cfg != *Default() {
		t.Error("Load() without file should return defaults")
	}
}

func mustWrite(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[layout]\nseed = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
}
