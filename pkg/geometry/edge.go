package geometry

import "math"

// Segment is a connector line between two card boundaries.
type Segment struct {
	Start Point `json:"start" bson:"start"`
	End   Point `json:"end" bson:"end"`
}

// Anchor returns the label anchor of the connector: the midpoint of its
// clipped endpoints.
func (s Segment) Anchor() Point { return Midpoint(s.Start, s.End) }

// Length returns the length of the segment.
func (s Segment) Length() float64 { return s.Start.Distance(s.End) }

// EdgeEndpoints returns where a straight connector between the cards at
// top-left positions src and dst touches each card's boundary. Both cards
// share size s.
//
// When the two centers coincide both endpoints equal the shared center.
func EdgeEndpoints(src, dst Point, s Size) Segment {
	sc := Center(src, s)
	tc := Center(dst, s)
	d := tc.Sub(sc)

	return Segment{
		Start: exitPoint(sc, d, s.Half()),
		End:   exitPoint(tc, d.Scale(-1), s.Half()),
	}
}

// exitPoint returns where the ray from c along d leaves the rectangle with
// half-extents half centered on c.
func exitPoint(c, d, half Point) Point {
	if d.X == 0 && d.Y == 0 {
		return c
	}

	if math.Abs(d.Y)/half.Y < math.Abs(d.X)/half.X {
		// Left or right edge.
		sx := sign(d.X) * half.X
		return Point{X: c.X + sx, Y: c.Y + d.Y/d.X*sx}
	}

	// Top or bottom edge.
	sy := sign(d.Y) * half.Y
	return Point{X: c.X + d.X/d.Y*sy, Y: c.Y + sy}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
