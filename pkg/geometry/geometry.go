// Package geometry provides the rectangle model shared by every board component.
//
// All values live in board space: a zoom-independent coordinate system whose
// origin is the top-left corner of the board. Cards are axis-aligned
// rectangles of one fixed [Size] per board, addressed by their top-left
// corner.
//
// # Overlap
//
// [Rect.Overlaps] inflates both rectangles by a padding margin. Two
// rectangles that merely touch after inflation do not overlap:
//
//	a := geometry.RectAt(geometry.Point{X: 0, Y: 0}, size)
//	b := geometry.RectAt(geometry.Point{X: 300, Y: 0}, size)
//	a.Overlaps(b, 24) // false when 260+24 <= 300-24
//
// # Connectors
//
// [EdgeEndpoints] clips the straight line between two card centers to the
// card boundaries, so connectors start and end on the facing sides instead
// of at the centers.
package geometry

import "math"

// Point is a coordinate pair in board space.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p with both components multiplied by f.
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Distance returns the euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Midpoint returns the point halfway between p and q.
func Midpoint(p, q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Size is the extent of a card.
type Size struct {
	W float64 `json:"width" bson:"width"`
	H float64 `json:"height" bson:"height"`
}

// Half returns half of the width and height.
func (s Size) Half() Point { return Point{X: s.W / 2, Y: s.H / 2} }

// Rect is an axis-aligned rectangle given by its edges.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// RectAt returns the rectangle of size s whose top-left corner is p.
func RectAt(p Point, s Size) Rect {
	return Rect{Left: p.X, Top: p.Y, Right: p.X + s.W, Bottom: p.Y + s.H}
}

// Inflate grows the rectangle by pad on every side.
func (r Rect) Inflate(pad float64) Rect {
	return Rect{Left: r.Left - pad, Top: r.Top - pad, Right: r.Right + pad, Bottom: r.Bottom + pad}
}

// Center returns the center of the rectangle.
func (r Rect) Center() Point {
	return Point{X: (r.Left + r.Right) / 2, Y: (r.Top + r.Bottom) / 2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// Overlaps reports whether r and o intersect after both are inflated by pad.
// They overlap unless one lies entirely to the left, right, above or below
// the other.
func (r Rect) Overlaps(o Rect, pad float64) bool {
	a, b := r.Inflate(pad), o.Inflate(pad)
	return !(a.Right <= b.Left ||
		a.Left >= b.Right ||
		a.Bottom <= b.Top ||
		a.Top >= b.Bottom)
}

// Center returns the center of the card of size s at top-left p.
func Center(p Point, s Size) Point {
	return p.Add(s.Half())
}

// Clamp restricts v into [lo, hi]. When hi < lo the result is lo.
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// Bounds is a closed range of valid top-left coordinates.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Clamp restricts p into the bounds.
func (b Bounds) Clamp(p Point) Point {
	return Point{
		X: Clamp(p.X, b.MinX, b.MaxX),
		Y: Clamp(p.Y, b.MinY, b.MaxY),
	}
}

// Contains reports whether p lies within the bounds, inclusive.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}
