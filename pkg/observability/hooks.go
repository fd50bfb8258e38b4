// Package observability lets a binary observe layout, drag, cache and HTTP
// events without the libraries depending on a metrics backend.
//
// Every hook category starts out as a no-op. main may install its own
// implementation once at startup:
//
//	observability.SetDragHooks(dragMetrics{})
//
// Libraries fetch the current hooks at the call site:
//
//	observability.Layout().OnPlacement(ctx, id, attempts, fallback)
package observability

import (
	"context"
	"sync"
	"time"
)

// LayoutHooks receives events from initial layout and incremental placement.
type LayoutHooks interface {
	// OnLayoutStart is called before the force simulation runs.
	OnLayoutStart(ctx context.Context, nodes, edges int)

	// OnLayoutComplete is called after the simulation wrote its positions.
	// cached is true when the positions came from the layout cache.
	OnLayoutComplete(ctx context.Context, nodes int, duration time.Duration, cached bool)

	// OnPlacement is called once per newly placed entity. fallback is true
	// when the spiral search was exhausted and a random position was used.
	OnPlacement(ctx context.Context, entityID string, attempts int, fallback bool)
}

// DragHooks receives events from pointer-driven dragging.
type DragHooks interface {
	// OnDragStart is called on pointer-down over an entity.
	OnDragStart(entityID string)

	// OnDragEnd is called on pointer-up. moved is false for a plain click.
	OnDragEnd(entityID string, moved bool, duration time.Duration)

	// OnDragAbandoned is called when the dragged entity disappears mid-drag.
	OnDragAbandoned(entityID string)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit is called when a cache lookup succeeds.
	OnCacheHit(ctx context.Context, key string)

	// OnCacheMiss is called when a cache lookup fails.
	OnCacheMiss(ctx context.Context, key string)

	// OnCacheSet is called when a value is stored in cache.
	OnCacheSet(ctx context.Context, key string, size int)
}

// HTTPHooks receives events from the board API server.
type HTTPHooks interface {
	// OnRequest is called when a request is received.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse is called after the response is written.
	OnResponse(ctx context.Context, method, path string, status int, duration time.Duration)
}

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayoutStart(context.Context, int, int)                    {}
func (NoopLayoutHooks) OnLayoutComplete(context.Context, int, time.Duration, bool) {}
func (NoopLayoutHooks) OnPlacement(context.Context, string, int, bool)             {}

// NoopDragHooks is a no-op implementation of DragHooks.
type NoopDragHooks struct{}

func (NoopDragHooks) OnDragStart(string)                    {}
func (NoopDragHooks) OnDragEnd(string, bool, time.Duration) {}
func (NoopDragHooks) OnDragAbandoned(string)                {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// slot holds one installed hook implementation.
type slot[T any] struct {
	mu  sync.RWMutex
	def T
	cur *T
}

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return s.def
	}
	return *s.cur
}

func (s *slot[T]) set(h T, valid bool) {
	if !valid {
		return
	}
	s.mu.Lock()
	s.cur = &h
	s.mu.Unlock()
}

func (s *slot[T]) reset() {
	s.mu.Lock()
	s.cur = nil
	s.mu.Unlock()
}

var (
	layoutSlot = slot[LayoutHooks]{def: NoopLayoutHooks{}}
	dragSlot   = slot[DragHooks]{def: NoopDragHooks{}}
	cacheSlot  = slot[CacheHooks]{def: NoopCacheHooks{}}
	httpSlot   = slot[HTTPHooks]{def: NoopHTTPHooks{}}
)

// SetLayoutHooks installs h. A nil h is ignored.
func SetLayoutHooks(h LayoutHooks) { layoutSlot.set(h, h != nil) }

// SetDragHooks installs h. A nil h is ignored.
func SetDragHooks(h DragHooks) { dragSlot.set(h, h != nil) }

// SetCacheHooks installs h. A nil h is ignored.
func SetCacheHooks(h CacheHooks) { cacheSlot.set(h, h != nil) }

// SetHTTPHooks installs h. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) { httpSlot.set(h, h != nil) }

func Layout() LayoutHooks { return layoutSlot.get() }
func Drag() DragHooks     { return dragSlot.get() }
func Cache() CacheHooks   { return cacheSlot.get() }
func HTTP() HTTPHooks     { return httpSlot.get() }

// Reset puts every category back to its no-op default.
func Reset() {
	layoutSlot.reset()
	dragSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
}
