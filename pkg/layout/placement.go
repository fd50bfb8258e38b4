package layout

import (
	"math"

	"github.com/loreboard/loreboard/pkg/geometry"
)

// minAttempts is the smallest slot-search budget.
const minAttempts = 200

// Placement is the result of a slot search.
type Placement struct {
	Position geometry.Point `json:"position"`

	// Attempts is the number of spiral candidates tested.
	Attempts int `json:"attempts"`

	// Fallback is true when no free candidate was found within the attempt
	// budget and Position was drawn at random. It may overlap other cards.
	Fallback bool `json:"fallback,omitempty"`
}

// FindSlot returns a position for one new card that does not overlap any
// card in existing, padding included. existing is never modified.
//
// When the spiral search is exhausted, FindSlot falls back to a uniformly
// random in-bounds position and sets [Placement.Fallback].
func FindSlot(existing Positions, vp Viewport, opts ...Option) Placement {
	cfg := newConfig(opts)
	vp = vp.OrDefault()

	card := cfg.metrics.Card
	pad := cfg.metrics.Padding()
	bounds := SlotBounds(vp, cfg.metrics)
	center := geometry.Point{
		X: math.Max(0, (vp.Width-card.W)/2),
		Y: math.Max(0, (vp.Height-card.H)/2),
	}

	occupied := make([]geometry.Rect, 0, len(existing))
	for _, p := range existing {
		occupied = append(occupied, geometry.RectAt(p, card))
	}

	budget := Budget(len(existing))
	step := card.W + cfg.metrics.Spacing
	for i := range budget {
		radius := float64(i) / 6 * step
		angle := float64(i%6) * math.Pi / 3
		candidate := bounds.Clamp(geometry.Point{
			X: center.X + math.Cos(angle)*radius,
			Y: center.Y + math.Sin(angle)*radius,
		})
		if !overlapsAny(geometry.RectAt(candidate, card), occupied, pad) {
			return Placement{Position: candidate, Attempts: i + 1}
		}
	}

	p := bounds.Clamp(geometry.Point{
		X: cfg.rng.Float64() * (vp.Width - card.W),
		Y: cfg.rng.Float64() * (vp.Height - card.H),
	})
	cfg.logger.Debug("slot search exhausted, using random position",
		"cards", len(existing), "attempts", budget, "x", p.X, "y", p.Y)
	return Placement{Position: p, Attempts: budget, Fallback: true}
}

// Budget returns the slot-search attempt budget for n existing cards.
func Budget(n int) int {
	return max(minAttempts, 10*n)
}

// SlotBounds returns the top-left bounds of slot candidates: the viewport
// inset by the padding on all sides. When the viewport is too small for one
// padded card the range collapses onto its upper end.
func SlotBounds(vp Viewport, m Metrics) geometry.Bounds {
	pad := m.Padding()
	maxX := math.Max(0, vp.Width-m.Card.W-pad)
	maxY := math.Max(0, vp.Height-m.Card.H-pad)
	return geometry.Bounds{
		MinX: math.Min(pad, maxX),
		MinY: math.Min(pad, maxY),
		MaxX: maxX,
		MaxY: maxY,
	}
}

func overlapsAny(r geometry.Rect, occupied []geometry.Rect, pad float64) bool {
	for _, o := range occupied {
		if r.Overlaps(o, pad) {
			return true
		}
	}
	return false
}
