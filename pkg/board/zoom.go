package board

import "math"

// Zoom returns the current zoom factor. Zoom is a view transform only; it
// is never applied to stored positions.
func (b *Board) Zoom() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.zoom
}

// SetZoom sets the zoom factor, clamped into [MinZoom, MaxZoom], and
// returns the value applied.
func (b *Board) SetZoom(z float64) float64 {
	if math.IsNaN(z) {
		z = DefaultZoom
	}
	z = math.Round(math.Max(MinZoom, math.Min(z, MaxZoom))*100) / 100

	b.mu.Lock()
	if b.zoom == z {
		b.mu.Unlock()
		return z
	}
	b.zoom = z
	b.version++
	b.mu.Unlock()

	b.notify(Change{Kind: ChangeZoom, Zoom: z})
	return z
}

// ZoomIn increases the zoom by one step.
func (b *Board) ZoomIn() float64 { return b.SetZoom(b.Zoom() + ZoomStep) }

// ZoomOut decreases the zoom by one step.
func (b *Board) ZoomOut() float64 { return b.SetZoom(b.Zoom() - ZoomStep) }

// ResetZoom restores the default zoom.
func (b *Board) ResetZoom() float64 { return b.SetZoom(DefaultZoom) }
