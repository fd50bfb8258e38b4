package scene

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/errors"
	"github.com/loreboard/loreboard/pkg/geometry"
	"github.com/loreboard/loreboard/pkg/layout"
)

const (
	// MinWidth and MinHeight are the smallest board dimensions.
	MinWidth  = 1200
	MinHeight = 800

	// Overscan is the extra room kept beyond the outermost card.
	Overscan = 160
)

// Unpositioned is where a card without a position is drawn. It is a render
// fallback only and is never written back as a position.
var Unpositioned = geometry.Point{X: 120, Y: 120}

// Scene is a serializable snapshot of a board.
type Scene struct {
	Width      float64                   `json:"width" bson:"width"`
	Height     float64                   `json:"height" bson:"height"`
	Zoom       float64                   `json:"zoom" bson:"zoom"`
	Viewport   layout.Viewport           `json:"viewport" bson:"viewport"`
	Metrics    layout.Metrics            `json:"metrics" bson:"metrics"`
	Entities   []entity.Entity           `json:"entities" bson:"entities"`
	Positions  map[string]geometry.Point `json:"positions" bson:"positions"`
	Connectors []Connector               `json:"connectors,omitempty" bson:"connectors,omitempty"`
}

// Connector is a relation resolved into line geometry.
type Connector struct {
	ID     string              `json:"id" bson:"id"`
	Source string              `json:"source" bson:"source"`
	Target string              `json:"target" bson:"target"`
	Type   entity.RelationType `json:"type" bson:"type"`
	Color  string              `json:"color" bson:"color"`
	Start  geometry.Point      `json:"start" bson:"start"`
	End    geometry.Point      `json:"end" bson:"end"`
	Anchor geometry.Point      `json:"anchor" bson:"anchor"`
}

// Label returns the text drawn at the connector anchor.
func (c Connector) Label() string { return string(c.Type) }

// New builds a scene from entities and positions. Connectors and dimensions
// are derived; positions is copied.
func New(entities []entity.Entity, positions layout.Positions, m layout.Metrics, vp layout.Viewport, zoom float64) Scene {
	w, h := Dimensions(positions, m.Card)
	return Scene{
		Width:      w,
		Height:     h,
		Zoom:       zoom,
		Viewport:   vp,
		Metrics:    m,
		Entities:   entities,
		Positions:  positions.Clone(),
		Connectors: Connectors(entities, positions, m.Card),
	}
}

// Position returns the position of id, or [Unpositioned] if it has none.
func (s Scene) Position(id string) geometry.Point {
	if p, ok := s.Positions[id]; ok {
		return p
	}
	return Unpositioned
}

// Dimensions returns the board size for the given card positions.
func Dimensions(positions layout.Positions, card geometry.Size) (width, height float64) {
	if len(positions) == 0 {
		return MinWidth, MinHeight
	}
	var right, bottom float64
	first := true
	for _, p := range positions {
		if first || p.X+card.W > right {
			right = p.X + card.W
		}
		if first || p.Y+card.H > bottom {
			bottom = p.Y + card.H
		}
		first = false
	}
	return max(MinWidth, right+Overscan), max(MinHeight, bottom+Overscan)
}

// Connectors resolves the relations of entities into connectors between
// positioned cards, in [entity.Edges] order.
func Connectors(entities []entity.Entity, positions layout.Positions, card geometry.Size) []Connector {
	var out []Connector
	for _, e := range entity.Edges(entities) {
		src, ok := positions[e.Source]
		if !ok {
			continue
		}
		dst, ok := positions[e.Target]
		if !ok {
			continue
		}
		seg := geometry.EdgeEndpoints(src, dst, card)
		out = append(out, Connector{
			ID:     e.ID(),
			Source: e.Source,
			Target: e.Target,
			Type:   e.Type,
			Color:  e.Type.Color(),
			Start:  seg.Start,
			End:    seg.End,
			Anchor: seg.Anchor(),
		})
	}
	return out
}

// =============================================================================
// Serialization
// =============================================================================

// Marshal serializes a Scene to pretty-printed JSON bytes.
func Marshal(s Scene) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Unmarshal deserializes JSON bytes into a Scene.
// Missing metrics, viewport and zoom are filled with defaults, and the
// derived fields are recomputed from the entities and positions.
func Unmarshal(data []byte) (Scene, error) {
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return Scene{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "unmarshal scene")
	}
	if err := entity.Validate(s.Entities); err != nil {
		return Scene{}, err
	}
	if s.Metrics.Card.W <= 0 || s.Metrics.Card.H <= 0 {
		s.Metrics = layout.DefaultMetrics
	}
	if s.Zoom == 0 {
		s.Zoom = 1
	}
	s.Viewport = s.Viewport.OrDefault()
	return New(s.Entities, s.Positions, s.Metrics, s.Viewport, s.Zoom), nil
}

// WriteFile writes a Scene to a JSON file.
func WriteFile(s Scene, path string) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a Scene from a JSON file.
func ReadFile(path string) (Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
