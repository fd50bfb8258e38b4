package drag

import (
	"sync"

	"github.com/loreboard/loreboard/pkg/geometry"
)

// EventType is the kind of a pointer event.
type EventType string

// Pointer event types.
const (
	PointerDown EventType = "down"
	PointerMove EventType = "move"
	PointerUp   EventType = "up"
)

// Event is a pointer event in client coordinates.
type Event struct {
	Type      EventType      `json:"type"`
	PointerID int            `json:"pointer_id"`
	EntityID  string         `json:"entity_id,omitempty"` // card under the pointer, down only
	Client    geometry.Point `json:"client"`
	Movement  geometry.Point `json:"movement"` // delta since the previous event
}

// PointerSource is a host-provided pointer event stream with exclusive
// pointer capture.
type PointerSource interface {
	// Subscribe registers fn for every down, move and up event. Up events
	// must be delivered even when the pointer is released outside the card.
	Subscribe(fn func(Event)) (unsubscribe func())

	// Capture routes all further events of pointerID to the capturer.
	Capture(pointerID int)

	// Release ends a capture.
	Release(pointerID int)
}

// Feed is an in-memory PointerSource. Hosts push events with Emit.
type Feed struct {
	mu       sync.Mutex
	subs     map[int]func(Event)
	next     int
	captured map[int]bool
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: map[int]func(Event){}, captured: map[int]bool{}}
}

// Subscribe implements PointerSource.
func (f *Feed) Subscribe(fn func(Event)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Capture implements PointerSource.
func (f *Feed) Capture(pointerID int) {
	f.mu.Lock()
	f.captured[pointerID] = true
	f.mu.Unlock()
}

// Release implements PointerSource.
func (f *Feed) Release(pointerID int) {
	f.mu.Lock()
	delete(f.captured, pointerID)
	f.mu.Unlock()
}

// Captured reports whether pointerID is currently captured.
func (f *Feed) Captured(pointerID int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captured[pointerID]
}

// Emit delivers ev to every subscriber.
func (f *Feed) Emit(ev Event) {
	f.mu.Lock()
	fns := make([]func(Event), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Surface locates the board element in client coordinates.
type Surface interface {
	// Origin returns the client offset of the board element, and false if
	// the element is not mounted.
	Origin() (geometry.Point, bool)
}

// Mount is a Surface whose origin is set by the host.
type Mount struct {
	mu      sync.RWMutex
	origin  geometry.Point
	mounted bool
}

// Mounted returns a Mount at origin.
func Mounted(origin geometry.Point) *Mount {
	return &Mount{origin: origin, mounted: true}
}

// Set mounts the surface at origin.
func (m *Mount) Set(origin geometry.Point) {
	m.mu.Lock()
	m.origin, m.mounted = origin, true
	m.mu.Unlock()
}

// Unmount marks the surface as not mounted.
func (m *Mount) Unmount() {
	m.mu.Lock()
	m.mounted = false
	m.mu.Unlock()
}

// Origin implements Surface.
func (m *Mount) Origin() (geometry.Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.origin, m.mounted
}
