package drag

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/loreboard/loreboard/pkg/geometry"
	"github.com/loreboard/loreboard/pkg/observability"
)

// moveThreshold is the pointer travel, in client pixels, that turns a click
// into a drag.
const moveThreshold = 1

// State is the controller state.
type State int

// Controller states.
const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Target is the board the controller writes to.
type Target interface {
	Position(id string) (geometry.Point, bool)
	SetPosition(id string, p geometry.Point) bool
	Zoom() float64
	Bounds() geometry.Bounds
}

// Controller drags one card at a time.
type Controller struct {
	mu      sync.Mutex
	target  Target
	surface Surface
	source  PointerSource
	logger  *log.Logger

	state     State
	entityID  string
	pointerID int
	offset    geometry.Point
	travel    geometry.Point
	last      geometry.Point // client point of the previous event
	moved     bool
	started   time.Time

	click bool
}

// New returns an idle controller writing to target.
func New(target Target, surface Surface, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Controller{target: target, surface: surface, logger: logger}
}

// Attach subscribes the controller to src. Captures and releases go to src
// from then on. The returned function detaches it.
func (c *Controller) Attach(src PointerSource) (detach func()) {
	c.mu.Lock()
	c.source = src
	c.mu.Unlock()

	unsubscribe := src.Subscribe(c.Handle)
	return func() {
		unsubscribe()
		c.mu.Lock()
		if c.source == src {
			c.source = nil
		}
		c.mu.Unlock()
	}
}

// Handle dispatches a pointer event.
func (c *Controller) Handle(ev Event) {
	switch ev.Type {
	case PointerDown:
		c.Down(ev.EntityID, ev.PointerID, ev.Client)
	case PointerMove:
		c.Move(ev.PointerID, ev.Client, ev.Movement)
	case PointerUp:
		c.Up()
	}
}

// Down starts dragging entityID. It reports false, and stays idle, if a
// drag is already in progress, the surface is not mounted or the entity has
// no position.
func (c *Controller) Down(entityID string, pointerID int, client geometry.Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Dragging || entityID == "" {
		return false
	}
	origin, ok := c.surface.Origin()
	if !ok {
		return false
	}
	pos, ok := c.target.Position(entityID)
	if !ok {
		return false
	}

	c.state = Dragging
	c.entityID = entityID
	c.pointerID = pointerID
	c.offset = toBoard(client, origin, c.target.Zoom()).Sub(pos)
	c.travel = geometry.Point{}
	c.last = client
	c.moved = false
	c.started = time.Now()
	if c.source != nil {
		c.source.Capture(pointerID)
	}

	observability.Drag().OnDragStart(entityID)
	c.logger.Debug("drag start", "id", entityID, "pointer", pointerID, "offset", c.offset)
	return true
}

// Move updates the dragged card. It reports whether a position was
// written. Moves while idle, from another pointer, or while the surface is
// unmounted are ignored. If the dragged entity is gone the drag is
// abandoned.
func (c *Controller) Move(pointerID int, client, movement geometry.Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Dragging || pointerID != c.pointerID {
		return false
	}
	origin, ok := c.surface.Origin()
	if !ok {
		return false
	}

	p := toBoard(client, origin, c.target.Zoom()).Sub(c.offset)
	p = c.target.Bounds().Clamp(p)
	if !c.target.SetPosition(c.entityID, p) {
		c.abandonLocked()
		return false
	}

	// Hosts that do not report movement deltas get the client-space change
	// since the previous event instead.
	if movement == (geometry.Point{}) {
		movement = client.Sub(c.last)
	}
	c.last = client
	c.travel = c.travel.Add(geometry.Point{X: math.Abs(movement.X), Y: math.Abs(movement.Y)})
	if c.travel.X > moveThreshold || c.travel.Y > moveThreshold {
		c.moved = true
	}
	return true
}

// Up ends the current drag. Any pointer-up ends it, wherever the pointer
// is released.
func (c *Controller) Up() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Dragging {
		return
	}
	id, moved := c.entityID, c.moved
	d := time.Since(c.started)
	c.click = !moved
	c.resetLocked()

	observability.Drag().OnDragEnd(id, moved, d)
	c.logger.Debug("drag end", "id", id, "moved", moved, "duration", d)
}

// ConsumeClick reports whether the last completed interaction was a click
// without movement, and clears that record.
func (c *Controller) ConsumeClick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	click := c.click
	c.click = false
	return click
}

// State returns the controller state and the dragged entity, if any.
func (c *Controller) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.entityID
}

// Moved reports whether the current drag has moved past the click threshold.
func (c *Controller) Moved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moved
}

func (c *Controller) abandonLocked() {
	id := c.entityID
	c.click = false
	c.resetLocked()
	observability.Drag().OnDragAbandoned(id)
	c.logger.Debug("drag abandoned, entity removed", "id", id)
}

func (c *Controller) resetLocked() {
	if c.source != nil {
		c.source.Release(c.pointerID)
	}
	c.state = Idle
	c.entityID = ""
	c.pointerID = 0
	c.offset = geometry.Point{}
	c.travel = geometry.Point{}
	c.last = geometry.Point{}
	c.moved = false
}

// toBoard maps a client point to board space.
func toBoard(client, origin geometry.Point, zoom float64) geometry.Point {
	if zoom <= 0 {
		zoom = 1
	}
	return client.Sub(origin).Scale(1 / zoom)
}
