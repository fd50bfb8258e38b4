package render

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/geometry"
	"github.com/loreboard/loreboard/pkg/scene"
)

const (
	boardBackground = "#020617"
	cardFill        = "#0f172a"
	textColor       = "#e2e8f0"
	mutedColor      = "#94a3b8"
	fontFamily      = "ui-sans-serif, system-ui, sans-serif"
	maxAttributes   = 3
)

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	zoom       bool
	labels     bool
	highlight  string
	background string
}

// WithZoom scales the drawing by the scene zoom factor.
func WithZoom() SVGOption { return func(r *svgRenderer) { r.zoom = true } }

// WithoutLabels omits the relation labels on connectors.
func WithoutLabels() SVGOption { return func(r *svgRenderer) { r.labels = false } }

// WithHighlight draws the card with the given ID as selected.
func WithHighlight(id string) SVGOption { return func(r *svgRenderer) { r.highlight = id } }

// WithBackground sets the board fill color. An empty color leaves the
// background transparent.
func WithBackground(color string) SVGOption {
	return func(r *svgRenderer) { r.background = color }
}

// RenderSVG draws the scene as a standalone SVG document sized to the board
// dimensions.
func RenderSVG(s scene.Scene, opts ...SVGOption) []byte {
	r := svgRenderer{labels: true, background: boardBackground}
	for _, opt := range opts {
		opt(&r)
	}

	scale := 1.0
	if r.zoom && s.Zoom > 0 {
		scale = s.Zoom
	}
	w, h := s.Width*scale, s.Height*scale

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		s.Width, s.Height, w, h)

	renderDefs(&buf)
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect class="board" x="0" y="0" width="%.1f" height="%.1f" fill="%s"/>`+"\n",
			s.Width, s.Height, EscapeXML(r.background))
	}

	for _, c := range s.Connectors {
		renderConnector(&buf, c)
	}
	for _, e := range s.Entities {
		renderCard(&buf, e, s.Position(e.ID), s.Metrics.Card, e.ID == r.highlight)
	}
	if r.labels {
		for _, c := range s.Connectors {
			renderConnectorLabel(&buf, c)
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <defs>\n")
	for _, t := range entity.RelationTypes {
		fmt.Fprintf(buf, `    <marker id="arrow-%s" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse">`+
			`<path d="M 0 0 L 10 5 L 0 10 z" fill="%s"/></marker>`+"\n", t, t.Color())
	}
	buf.WriteString("  </defs>\n")
}

func renderConnector(buf *bytes.Buffer, c scene.Connector) {
	fmt.Fprintf(buf, `  <line class="connector" id="%s" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2" stroke-opacity="0.8" marker-end="url(#arrow-%s)"/>`+"\n",
		EscapeXML(c.ID), c.Start.X, c.Start.Y, c.End.X, c.End.Y, c.Color, c.Type)
}

func renderConnectorLabel(buf *bytes.Buffer, c scene.Connector) {
	label := c.Label()
	w := float64(len(label))*labelFontSize*fontCharWidth + 12
	h := labelFontSize + 8
	fmt.Fprintf(buf, `  <rect class="connector-label" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="4" fill="%s" stroke="%s"/>`+"\n",
		c.Anchor.X-w/2, c.Anchor.Y-h/2, w, h, cardFill, c.Color)
	fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle" font-family="%s" font-size="%.0f" fill="%s">%s</text>`+"\n",
		c.Anchor.X, c.Anchor.Y, fontFamily, labelFontSize, c.Color, EscapeXML(label))
}

func renderCard(buf *bytes.Buffer, e entity.Entity, p geometry.Point, card geometry.Size, selected bool) {
	color := e.Kind.Color()
	stroke := 2.0
	if selected {
		stroke = 4
	}
	fmt.Fprintf(buf, `  <g class="card" id="card-%s">`+"\n", EscapeXML(e.ID))
	fmt.Fprintf(buf, `    <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="12" fill="%s" stroke="%s" stroke-width="%.0f"/>`+"\n",
		p.X, p.Y, card.W, card.H, cardFill, color, stroke)

	textW := card.W - 2*cardInset
	x := p.X + cardInset
	y := p.Y + cardInset + titleFontSize
	fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-family="%s" font-size="%.0f" font-weight="bold" fill="%s">%s</text>`+"\n",
		x, y, fontFamily, titleFontSize, textColor, EscapeXML(Truncate(e.DisplayName(), textW, titleFontSize)))

	y += bodyFontSize + 8
	fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-family="%s" font-size="%.0f" fill="%s">%s</text>`+"\n",
		x, y, fontFamily, bodyFontSize, color, EscapeXML(string(kindOf(e))))

	for _, k := range cardAttributes(e) {
		y += bodyFontSize + 6
		if y > p.Y+card.H-cardInset/2 {
			break
		}
		line := Truncate(k+": "+e.Attributes[k], textW, bodyFontSize)
		fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-family="%s" font-size="%.0f" fill="%s">%s</text>`+"\n",
			x, y, fontFamily, bodyFontSize, mutedColor, EscapeXML(line))
	}
	buf.WriteString("  </g>\n")
}

func kindOf(e entity.Entity) entity.Kind {
	if !e.Kind.Valid() {
		return entity.KindOther
	}
	return e.Kind
}

// cardAttributes returns the attribute keys shown on a card, sorted.
func cardAttributes(e entity.Entity) []string {
	keys := slices.Sorted(maps.Keys(e.Attributes))
	if len(keys) > maxAttributes {
		keys = keys[:maxAttributes]
	}
	return keys
}
