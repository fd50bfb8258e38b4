package board

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/geometry"
	"github.com/loreboard/loreboard/pkg/layout"
	"github.com/loreboard/loreboard/pkg/observability"
	"github.com/loreboard/loreboard/pkg/scene"
)

// Zoom limits.
const (
	MinZoom     = 0.5
	MaxZoom     = 2.0
	DefaultZoom = 1.0
	ZoomStep    = 0.1
)

// Layouter computes the initial layout of a board. cached reports whether
// the positions were served from a cache.
type Layouter interface {
	InitialLayout(ctx context.Context, entities []entity.Entity, vp layout.Viewport) (positions layout.Positions, cached bool, err error)
}

// Board holds the positions, entities and zoom of one board.
type Board struct {
	syncMu sync.Mutex // serializes Sync, AddEntity and Relayout

	mu        sync.RWMutex
	entities  []entity.Entity
	positions layout.Positions
	laidOut   bool
	zoom      float64
	viewport  layout.Viewport
	version   uint64

	metrics  layout.Metrics
	layouter Layouter
	rng      *rand.Rand
	logger   *log.Logger

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// Option configures a Board.
type Option func(*Board)

// WithMetrics sets the card metrics.
func WithMetrics(m layout.Metrics) Option {
	return func(b *Board) { b.metrics = m }
}

// WithViewport sets the initial viewport.
func WithViewport(vp layout.Viewport) Option {
	return func(b *Board) { b.viewport = vp }
}

// WithSeed seeds the random source used for fallback placement.
func WithSeed(seed uint64) Option {
	return func(b *Board) { b.rng = layout.NewRand(seed) }
}

// WithLayouter replaces the direct force simulation used for the initial
// layout, typically with a caching pipeline runner.
func WithLayouter(l Layouter) Option {
	return func(b *Board) { b.layouter = l }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Board) { b.logger = l }
}

// New creates an empty board.
func New(opts ...Option) *Board {
	b := &Board{
		positions: layout.Positions{},
		zoom:      DefaultZoom,
		viewport:  layout.DefaultViewport,
		metrics:   layout.DefaultMetrics,
		subs:      map[int]func(Change){},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.viewport = b.viewport.OrDefault()
	if b.rng == nil {
		b.rng = layout.NewRand(0)
	}
	if b.logger == nil {
		b.logger = log.New(io.Discard)
	}
	if b.layouter == nil {
		b.layouter = Simulator{Metrics: b.metrics, Logger: b.logger}
	}
	return b
}

// Simulator is the default Layouter. It runs the force simulation directly.
type Simulator struct {
	Metrics    layout.Metrics
	Iterations int
	Seed       uint64
	Logger     *log.Logger
}

// InitialLayout implements Layouter.
func (s Simulator) InitialLayout(_ context.Context, entities []entity.Entity, vp layout.Viewport) (layout.Positions, bool, error) {
	return layout.Simulate(entities, vp,
		layout.WithMetrics(s.Metrics),
		layout.WithIterations(s.Iterations),
		layout.WithSeed(s.Seed),
		layout.WithLogger(s.Logger),
	), false, nil
}

// Sync merges a refreshed entity list into the board.
//
// The first non-empty list triggers the one-shot initial layout. Later lists
// place new entities with slot search, newest first, and prune positions of
// entities that are gone. Existing positions are never moved.
func (b *Board) Sync(ctx context.Context, entities []entity.Entity) error {
	if err := entity.Validate(entities); err != nil {
		return err
	}
	entities = slices.Clone(entities)

	b.syncMu.Lock()
	defer b.syncMu.Unlock()
	b.syncLocked(ctx, entities)
	return nil
}

// syncLocked does the work of Sync. The caller holds syncMu and has
// validated entities.
func (b *Board) syncLocked(ctx context.Context, entities []entity.Entity) {
	b.mu.RLock()
	needLayout := !b.laidOut && len(entities) > 0
	vp := b.viewport
	b.mu.RUnlock()

	var initial layout.Positions
	if needLayout {
		initial = b.initialLayout(ctx, entities, vp)
	}

	b.mu.Lock()
	b.entities = entities
	var changes []Change
	if needLayout {
		for _, e := range entities {
			if _, ok := b.positions[e.ID]; !ok {
				b.positions[e.ID] = initial[e.ID]
			}
		}
		b.laidOut = true
		b.version++
		changes = append(changes, Change{Kind: ChangeLayout, IDs: entity.IDs(entities)})
	} else {
		var placed []string
		for _, e := range entity.NewestFirst(entities) {
			if _, ok := b.positions[e.ID]; ok {
				continue
			}
			b.placeLocked(ctx, e.ID)
			placed = append(placed, e.ID)
		}
		if len(placed) > 0 {
			changes = append(changes, Change{Kind: ChangePlaced, IDs: placed})
		}
	}
	if removed := b.pruneLocked(); len(removed) > 0 {
		changes = append(changes, Change{Kind: ChangeRemoved, IDs: removed})
	}
	b.mu.Unlock()

	b.notify(changes...)
}

// AddEntity adds one newly created entity and places it with slot search.
// An entity that is already loaded is replaced in the entity list without
// moving its card. Before the initial layout has run, AddEntity behaves like
// a Sync with the extended list.
func (b *Board) AddEntity(ctx context.Context, e entity.Entity) (geometry.Point, error) {
	// The entity list is read and written back under syncMu so that a
	// concurrent Sync cannot be overwritten with a stale copy.
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	b.mu.RLock()
	next := slices.Clone(b.entities)
	laidOut := b.laidOut
	b.mu.RUnlock()

	if i := slices.IndexFunc(next, func(x entity.Entity) bool { return x.ID == e.ID }); i >= 0 {
		next[i] = e
	} else {
		next = append(next, e)
	}
	if err := entity.Validate(next); err != nil {
		return geometry.Point{}, err
	}

	if !laidOut {
		b.syncLocked(ctx, next)
		p, _ := b.Position(e.ID)
		return p, nil
	}

	b.mu.Lock()
	b.entities = next
	p, ok := b.positions[e.ID]
	if !ok {
		p = b.placeLocked(ctx, e.ID)
	}
	b.mu.Unlock()

	if !ok {
		b.notify(Change{Kind: ChangePlaced, IDs: []string{e.ID}})
	}
	return p, nil
}

// Relayout discards every position and recomputes the force layout over the
// current entity set. It only runs on explicit request; Sync never reflows.
func (b *Board) Relayout(ctx context.Context) {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	b.mu.RLock()
	entities := slices.Clone(b.entities)
	vp := b.viewport
	b.mu.RUnlock()

	positions := b.initialLayout(ctx, entities, vp)

	b.mu.Lock()
	b.positions = positions
	b.laidOut = len(entities) > 0
	b.version++
	b.mu.Unlock()

	b.notify(Change{Kind: ChangeLayout, IDs: entity.IDs(entities)})
}

func (b *Board) initialLayout(ctx context.Context, entities []entity.Entity, vp layout.Viewport) layout.Positions {
	hooks := observability.Layout()
	hooks.OnLayoutStart(ctx, len(entities), len(entity.Edges(entities)))
	start := time.Now()

	positions, cached, err := b.layouter.InitialLayout(ctx, entities, vp)
	if err != nil {
		b.logger.Warn("initial layout failed, simulating directly", "error", err)
		positions, cached, _ = Simulator{Metrics: b.metrics, Logger: b.logger}.InitialLayout(ctx, entities, vp)
	}

	hooks.OnLayoutComplete(ctx, len(entities), time.Since(start), cached)
	b.logger.Debug("initial layout", "entities", len(entities), "cached", cached, "duration", time.Since(start))
	return positions
}

// placeLocked runs slot search for id and stores the result.
// b.mu must be held for writing.
func (b *Board) placeLocked(ctx context.Context, id string) geometry.Point {
	pl := layout.FindSlot(b.positions, b.viewport,
		layout.WithMetrics(b.metrics),
		layout.WithRand(b.rng),
		layout.WithLogger(b.logger),
	)
	b.positions[id] = pl.Position
	b.version++
	observability.Layout().OnPlacement(ctx, id, pl.Attempts, pl.Fallback)
	if pl.Fallback {
		b.logger.Debug("placed entity at random position", "id", id, "x", pl.Position.X, "y", pl.Position.Y)
	}
	return pl.Position
}

// pruneLocked removes positions of entities no longer loaded.
// b.mu must be held for writing.
func (b *Board) pruneLocked() []string {
	present := make(map[string]bool, len(b.entities))
	for _, e := range b.entities {
		present[e.ID] = true
	}
	var removed []string
	for id := range b.positions {
		if !present[id] {
			delete(b.positions, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	if len(removed) > 0 {
		b.version++
	}
	return removed
}

// SetPosition moves the card of id to p. It reports false, and changes
// nothing, if id has no position.
func (b *Board) SetPosition(id string, p geometry.Point) bool {
	b.mu.Lock()
	if _, ok := b.positions[id]; !ok {
		b.mu.Unlock()
		return false
	}
	b.positions[id] = p
	b.version++
	b.mu.Unlock()

	b.notify(Change{Kind: ChangeMoved, IDs: []string{id}})
	return true
}

// Position returns the position of id.
func (b *Board) Position(id string) (geometry.Point, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.positions[id]
	return p, ok
}

// Positions returns a copy of the position map.
func (b *Board) Positions() layout.Positions {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.positions.Clone()
}

// Entities returns a copy of the loaded entity list.
func (b *Board) Entities() []entity.Entity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.entities)
}

// Has reports whether id is loaded and positioned.
func (b *Board) Has(id string) bool {
	_, ok := b.Position(id)
	return ok
}

// LaidOut reports whether the initial layout has run.
func (b *Board) LaidOut() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.laidOut
}

// Metrics returns the card metrics of the board.
func (b *Board) Metrics() layout.Metrics { return b.metrics }

// Dimensions returns the current board size, derived from the positions.
func (b *Board) Dimensions() (width, height float64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return scene.Dimensions(b.positions, b.metrics.Card)
}

// Bounds returns the range a dragged card may be moved within.
func (b *Board) Bounds() geometry.Bounds {
	w, h := b.Dimensions()
	return geometry.Bounds{
		MaxX: math.Max(0, w-b.metrics.Card.W),
		MaxY: math.Max(0, h-b.metrics.Card.H),
	}
}

// Connectors returns the connectors between positioned entities.
func (b *Board) Connectors() []scene.Connector {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return scene.Connectors(b.entities, b.positions, b.metrics.Card)
}

// Snapshot returns a serializable copy of the board.
func (b *Board) Snapshot() scene.Scene {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return scene.New(slices.Clone(b.entities), b.positions, b.metrics, b.viewport, b.zoom)
}

// Version returns a counter that increases with every mutation.
func (b *Board) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Viewport returns the viewport used for layout and placement.
func (b *Board) Viewport() layout.Viewport {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.viewport
}

// SetViewport records the measured container size. Unmeasurable sizes
// select the default viewport.
func (b *Board) SetViewport(vp layout.Viewport) {
	b.mu.Lock()
	b.viewport = vp.OrDefault()
	b.mu.Unlock()
}
