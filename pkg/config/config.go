// Package config loads the Loreboard configuration file.
//
// The file is TOML and every key is optional; missing keys keep their
// defaults. Command-line flags override file values.
//
//	[board]
//	card_width = 260
//	card_height = 180
//	spacing = 48
//	viewport_width = 1200
//	viewport_height = 800
//
//	[layout]
//	iterations = 300
//	seed = 42
//
//	[cache]
//	backend = "redis"      # file | redis | none
//	redis_addr = "localhost:6379"
//	ttl = "168h"
//
//	[server]
//	addr = ":8080"
//	session_ttl = "24h"
//
//	[source]
//	mongo_uri = "mongodb://localhost:27017"
//	database = "loreboard"
//	collection = "entities"
//
// Config file locations are listed in [FindConfigPath].
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/loreboard/loreboard/pkg/errors"
	"github.com/loreboard/loreboard/pkg/geometry"
	"github.com/loreboard/loreboard/pkg/layout"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the complete configuration.
type Config struct {
	Board  BoardConfig  `toml:"board"`
	Layout LayoutConfig `toml:"layout"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
	Source SourceConfig `toml:"source"`
}

// BoardConfig holds card metrics and the default viewport.
type BoardConfig struct {
	CardWidth      float64 `toml:"card_width"`
	CardHeight     float64 `toml:"card_height"`
	Spacing        float64 `toml:"spacing"`
	ViewportWidth  float64 `toml:"viewport_width"`
	ViewportHeight float64 `toml:"viewport_height"`
}

// LayoutConfig holds force simulation settings.
type LayoutConfig struct {
	Iterations int    `toml:"iterations"`
	Seed       uint64 `toml:"seed"`
}

// CacheConfig selects the layout cache backend.
type CacheConfig struct {
	Backend       string        `toml:"backend"`
	Dir           string        `toml:"dir"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	KeyPrefix     string        `toml:"key_prefix"`
	TTL           time.Duration `toml:"ttl"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr       string        `toml:"addr"`
	SessionTTL time.Duration `toml:"session_ttl"`
}

// SourceConfig configures the MongoDB entity source.
type SourceConfig struct {
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Default returns the built-in configuration.
func Default() *Config {
	m := layout.DefaultMetrics
	vp := layout.DefaultViewport
	return &Config{
		Board: BoardConfig{
			CardWidth:      m.Card.W,
			CardHeight:     m.Card.H,
			Spacing:        m.Spacing,
			ViewportWidth:  vp.Width,
			ViewportHeight: vp.Height,
		},
		Layout: LayoutConfig{Iterations: layout.DefaultIterations, Seed: 42},
		Cache:  CacheConfig{Backend: CacheFile, RedisAddr: "localhost:6379", KeyPrefix: "loreboard:", TTL: 7 * 24 * time.Hour},
		Server: ServerConfig{Addr: ":8080", SessionTTL: 24 * time.Hour},
		Source: SourceConfig{Database: "loreboard", Collection: "entities"},
	}
}

// Load finds and loads the config file, or returns defaults if none is
// found. The returned path is empty when no file was read.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return Default(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, path, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, path, errors.New(errors.ErrCodeInvalidInput, "unknown config key %q in %s", undecoded[0].String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Save writes the config to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	b := c.Board
	if b.CardWidth <= 0 || b.CardHeight <= 0 || b.Spacing < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "card metrics must be positive")
	}
	if err := errors.ValidateViewport(b.ViewportWidth, b.ViewportHeight); err != nil {
		return err
	}
	if c.Layout.Iterations < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "layout iterations cannot be negative")
	}
	switch c.Cache.Backend {
	case CacheFile, CacheRedis, CacheNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Server.SessionTTL < 0 || c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "durations cannot be negative")
	}
	return nil
}

// Metrics returns the configured card metrics.
func (c *Config) Metrics() layout.Metrics {
	return layout.Metrics{
		Card:    geometry.Size{W: c.Board.CardWidth, H: c.Board.CardHeight},
		Spacing: c.Board.Spacing,
	}
}

// Viewport returns the configured default viewport.
func (c *Config) Viewport() layout.Viewport {
	return layout.Viewport{Width: c.Board.ViewportWidth, Height: c.Board.ViewportHeight}
}
