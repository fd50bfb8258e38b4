// Package cli implements the loreboard command-line interface.
//
// Commands lay out entity files, render saved scenes, place new entities
// against a saved board, run an interactive terminal board and serve the
// HTTP API. Settings come from the config file (see pkg/config) and are
// overridden by flags.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// is attached to the command context as well as the CLI handle.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/loreboard/loreboard/pkg/cache"
	"github.com/loreboard/loreboard/pkg/config"
	"github.com/loreboard/loreboard/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "loreboard"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any command runs.
	Config     *config.Config
	configPath string
}

// New creates a new CLI instance with a default logger and the built-in
// configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig reads the config file at path, or the first one found by
// config.FindConfigPath when path is empty.
func (c *CLI) loadConfig(path string) error {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, path, err = config.LoadFromPath(path)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return err
	}
	c.Config = cfg
	c.configPath = path
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	lc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if prefix := c.Config.Cache.KeyPrefix; prefix != "" {
		keyer = cache.NewScopedKeyer(nil, prefix)
	}
	runner := pipeline.NewRunner(lc, keyer, c.Logger)
	runner.TTL = c.Config.Cache.TTL
	return runner, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	cfg := c.Config.Cache
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			// The cache only saves work; a missing Redis should not stop a layout.
			c.Logger.Warn("redis cache unavailable, caching disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNullCache(), nil
		}
		return rc, nil
	default:
		dir, err := c.cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the file cache directory: the configured one, or the
// XDG default (~/.cache/loreboard/).
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// layoutFlags binds the layout flags shared by several commands to opts.
func layoutFlags(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().Float64Var(&opts.Width, "width", 0, "viewport width (default from config)")
	cmd.Flags().Float64Var(&opts.Height, "height", 0, "viewport height (default from config)")
	cmd.Flags().Float64Var(&opts.CardWidth, "card-width", 0, "card width")
	cmd.Flags().Float64Var(&opts.CardHeight, "card-height", 0, "card height")
	cmd.Flags().Float64Var(&opts.Spacing, "spacing", 0, "minimum gap between cards")
	cmd.Flags().IntVar(&opts.Iterations, "iterations", 0, "force simulation iterations")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed")
}

// withConfig fills every layout option whose flag was not set from the
// config file. Flags always win.
func (c *CLI) withConfig(cmd *cobra.Command, opts pipeline.Options) pipeline.Options {
	cfg := c.Config
	set := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if !set("width") {
		opts.Width = cfg.Board.ViewportWidth
	}
	if !set("height") {
		opts.Height = cfg.Board.ViewportHeight
	}
	if !set("card-width") {
		opts.CardWidth = cfg.Board.CardWidth
	}
	if !set("card-height") {
		opts.CardHeight = cfg.Board.CardHeight
	}
	if !set("spacing") {
		opts.Spacing = cfg.Board.Spacing
	}
	if !set("iterations") {
		opts.Iterations = cfg.Layout.Iterations
	}
	if !set("seed") {
		opts.Seed = cfg.Layout.Seed
	}
	opts.Logger = c.Logger
	return opts
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) ([]string, error) {
	if s == "" {
		return []string{pipeline.FormatSVG}, nil
	}
	formats := strings.Split(s, ",")
	for i, f := range formats {
		formats[i] = strings.TrimSpace(f)
	}
	if err := pipeline.ValidateFormats(formats); err != nil {
		return nil, err
	}
	return formats, nil
}
