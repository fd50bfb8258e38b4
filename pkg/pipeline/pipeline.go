// Package pipeline provides the load → layout → render pipeline for Loreboard.
//
// This package implements the steps shared by the CLI, the terminal board
// and the HTTP API. By centralizing this logic, every entry point lays out
// and renders a board the same way.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read and validate an entity file (JSON, YAML or TOML)
//  2. Layout: Compute the one-shot initial layout with the force simulation
//  3. Render: Generate output in various formats (SVG, PNG, DOT, JSON)
//
// Only the layout stage is cached. Renders are cheap and depend on
// positions that change with every drag.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    File:    "world.yaml",
//	    Formats: []string{"svg", "json"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Boards use the runner as their layouter, so a board created for a known
// entity set starts from the cached layout:
//
//	b := board.New(board.WithLayouter(runner.Layouter(opts)))
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/loreboard/loreboard/pkg/cache"
	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/errors"
	"github.com/loreboard/loreboard/pkg/geometry"
	"github.com/loreboard/loreboard/pkg/layout"
	"github.com/loreboard/loreboard/pkg/scene"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, TUI and API
// =============================================================================

const (
	// DefaultSeed is the default random seed for reproducible layouts.
	DefaultSeed = uint64(42)

	// DefaultZoom is the zoom of a freshly laid out board.
	DefaultZoom = 1.0
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	File string `json:"file,omitempty"`

	// Layout options
	Width      float64 `json:"width,omitempty"`  // viewport width
	Height     float64 `json:"height,omitempty"` // viewport height
	CardWidth  float64 `json:"card_width,omitempty"`
	CardHeight float64 `json:"card_height,omitempty"`
	Spacing    float64 `json:"spacing,omitempty"`
	Iterations int     `json:"iterations,omitempty"`
	Seed       uint64  `json:"seed,omitempty"`
	Refresh    bool    `json:"refresh,omitempty"` // bypass the layout cache

	// Render options
	Formats   []string `json:"formats,omitempty"`
	Zoom      float64  `json:"zoom,omitempty"`
	Highlight string   `json:"highlight,omitempty"`
	NoLabels  bool     `json:"no_labels,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Entities is the loaded entity set.
	Entities []entity.Entity

	// GraphHash is the content hash of the entity graph.
	GraphHash string

	// Scene is the laid out board.
	Scene scene.Scene

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	EntityCount int
	EdgeCount   int
	LoadTime    time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the initial layout came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks required fields for loading entities.
func (o *Options) ValidateForLoad() error {
	if o.File == "" {
		return errors.New(errors.ErrCodeInvalidInput, "entity file is required")
	}
	if err := errors.ValidateSourceFile(o.File); err != nil {
		return err
	}
	o.setLogger()
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
// A zero viewport is left alone: it means "not measured" and resolves to
// the default viewport.
func (o *Options) SetLayoutDefaults() {
	m := layout.DefaultMetrics
	if o.CardWidth <= 0 {
		o.CardWidth = m.Card.W
	}
	if o.CardHeight <= 0 {
		o.CardHeight = m.Card.H
	}
	if o.Spacing <= 0 {
		o.Spacing = m.Spacing
	}
	if o.Iterations <= 0 {
		o.Iterations = layout.DefaultIterations
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	o.setLogger()
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	return errors.ValidateViewport(o.Width, o.Height)
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Zoom <= 0 {
		o.Zoom = DefaultZoom
	}
	o.setLogger()
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Metrics returns the card metrics described by the options.
func (o *Options) Metrics() layout.Metrics {
	return layout.Metrics{
		Card:    geometry.Size{W: o.CardWidth, H: o.CardHeight},
		Spacing: o.Spacing,
	}
}

// Viewport returns the viewport described by the options.
func (o *Options) Viewport() layout.Viewport {
	return layout.Viewport{Width: o.Width, Height: o.Height}
}

// LayoutKeyOpts returns cache key options for layout computation in
// viewport vp.
func (o *Options) LayoutKeyOpts(vp layout.Viewport) cache.LayoutKeyOpts {
	vp = vp.OrDefault()
	return cache.LayoutKeyOpts{
		ViewportWidth:  vp.Width,
		ViewportHeight: vp.Height,
		CardWidth:      o.CardWidth,
		CardHeight:     o.CardHeight,
		Spacing:        o.Spacing,
		Iterations:     o.Iterations,
		Seed:           o.Seed,
	}
}

// String implements fmt.Stringer for log output.
func (o Options) String() string {
	return fmt.Sprintf("file=%s viewport=%gx%g iterations=%d seed=%d formats=%v",
		o.File, o.Width, o.Height, o.Iterations, o.Seed, o.Formats)
}
