package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/loreboard/loreboard/pkg/board"
	"github.com/loreboard/loreboard/pkg/cache"
	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/layout"
	"github.com/loreboard/loreboard/pkg/observability"
	"github.com/loreboard/loreboard/pkg/render"
	"github.com/loreboard/loreboard/pkg/scene"
	"github.com/loreboard/loreboard/pkg/source"
)

// TTLLayout is how long a cached initial layout is kept.
const TTLLayout = 7 * 24 * time.Hour

// Runner encapsulates pipeline execution with caching.
// The CLI, the terminal board and the API all use it to avoid duplicating
// caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL is how long cached layouts are kept. Zero means TTLLayout.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → layout → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	entities, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Entities = entities
	result.GraphHash = GraphHash(entities)
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.EntityCount = len(entities)
	result.Stats.EdgeCount = len(entity.Edges(entities))

	r.Logger.Info("loaded entities",
		"entities", result.Stats.EntityCount,
		"relations", result.Stats.EdgeCount,
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	positions, hit, err := r.LayoutWithCacheInfo(ctx, entities, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = hit
	result.Scene = scene.New(entities, positions, opts.Metrics(), opts.Viewport().OrDefault(), opts.Zoom)

	r.Logger.Info("computed layout",
		"cards", len(positions),
		"cached", hit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, err := r.Render(ctx, result.Scene, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load reads and validates the entity file named by opts.File.
func (r *Runner) Load(ctx context.Context, opts Options) ([]entity.Entity, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}
	return source.NewFileSource(opts.File).Entities(ctx)
}

// LayoutWithCacheInfo computes the initial layout with caching and returns
// cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, entities []entity.Entity, opts Options) (layout.Positions, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}

	vp := opts.Viewport()
	cacheKey := r.Keyer.LayoutKey(GraphHash(entities), opts.LayoutKeyOpts(vp))
	hooks := observability.Cache()

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached layout.Positions
			if err := json.Unmarshal(data, &cached); err == nil && covers(cached, entities) {
				hooks.OnCacheHit(ctx, cacheKey)
				return cached, true, nil // Cache hit
			}
			// If deserialization fails, fall through to recompute
		} else if err != nil {
			r.Logger.Debug("layout cache unavailable", "error", err)
		}
		hooks.OnCacheMiss(ctx, cacheKey)
	}

	positions := layout.Simulate(entities, vp,
		layout.WithMetrics(opts.Metrics()),
		layout.WithIterations(opts.Iterations),
		layout.WithSeed(opts.Seed),
		layout.WithLogger(opts.Logger),
	)

	// Cache the result
	if data, err := json.Marshal(positions); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, r.ttl()); err == nil {
			hooks.OnCacheSet(ctx, cacheKey, len(data))
		}
	}

	return positions, false, nil // Cache miss
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, entities []entity.Entity, opts Options) (layout.Positions, error) {
	positions, _, err := r.LayoutWithCacheInfo(ctx, entities, opts)
	return positions, err
}

// Render generates an artifact for every format in opts.Formats.
func (r *Runner) Render(ctx context.Context, s scene.Scene, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	var svgOpts []render.SVGOption
	if opts.Highlight != "" {
		svgOpts = append(svgOpts, render.WithHighlight(opts.Highlight))
	}
	if opts.NoLabels {
		svgOpts = append(svgOpts, render.WithoutLabels())
	}
	if s.Zoom > 0 && s.Zoom != DefaultZoom {
		svgOpts = append(svgOpts, render.WithZoom())
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var (
			data []byte
			err  error
		)
		switch format {
		case FormatSVG:
			data = render.RenderSVG(s, svgOpts...)
		case FormatPNG:
			data, err = render.RenderPNG(ctx, s)
		case FormatDOT:
			data = []byte(render.ToDOT(s))
		case FormatJSON:
			data, err = scene.Marshal(s)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// Layouter returns a board.Layouter that serves initial layouts through
// the runner's cache. The viewport passed by the board replaces the one in
// opts.
func (r *Runner) Layouter(opts Options) board.Layouter {
	return runnerLayouter{runner: r, opts: opts}
}

type runnerLayouter struct {
	runner *Runner
	opts   Options
}

func (l runnerLayouter) InitialLayout(ctx context.Context, entities []entity.Entity, vp layout.Viewport) (layout.Positions, bool, error) {
	opts := l.opts
	opts.Width, opts.Height = vp.Width, vp.Height
	return l.runner.LayoutWithCacheInfo(ctx, entities, opts)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return TTLLayout
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// GraphHash returns the content hash of an entity graph: the entity IDs in
// order plus the resolved relations. Names, kinds and attributes do not
// affect the layout and are not hashed.
func GraphHash(entities []entity.Entity) string {
	data, _ := json.Marshal(struct {
		IDs   []string      `json:"ids"`
		Edges []entity.Edge `json:"edges"`
	}{entity.IDs(entities), entity.Edges(entities)})
	return cache.Hash(data)
}

// covers reports whether positions holds an entry for every entity.
func covers(positions layout.Positions, entities []entity.Entity) bool {
	for _, e := range entities {
		if _, ok := positions[e.ID]; !ok {
			return false
		}
	}
	return true
}
