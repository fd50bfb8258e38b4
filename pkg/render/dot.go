package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/loreboard/loreboard/pkg/scene"
)

const pointsPerInch = 72.0

// ToDOT converts a scene to a Graphviz DOT graph for the neato engine. Every
// card is pinned at its board position, so neato only routes the edges.
//
// Board coordinates grow downward while Graphviz coordinates grow upward;
// positions are flipped against the board height.
func ToDOT(s scene.Scene) string {
	card := s.Metrics.Card

	var buf bytes.Buffer
	buf.WriteString("digraph board {\n")
	fmt.Fprintf(&buf, "  graph [inputscale=%.0f, notranslate=true, overlap=true, splines=line, bgcolor=%q, bb=\"0,0,%.1f,%.1f\"];\n",
		pointsPerInch, boardBackground, s.Width, s.Height)
	fmt.Fprintf(&buf, "  node [shape=box, style=\"rounded,filled\", fixedsize=true, width=%.3f, height=%.3f, fillcolor=%q, fontcolor=%q, fontsize=%.0f];\n",
		card.W/pointsPerInch, card.H/pointsPerInch, cardFill, textColor, titleFontSize)
	fmt.Fprintf(&buf, "  edge [fontsize=%.0f, penwidth=2];\n", labelFontSize)
	buf.WriteString("\n")

	for _, e := range s.Entities {
		p := s.Position(e.ID)
		cx := p.X + card.W/2
		cy := s.Height - (p.Y + card.H/2)
		label := Truncate(e.DisplayName(), card.W-2*cardInset, titleFontSize) + "\n" + string(kindOf(e))
		fmt.Fprintf(&buf, "  %q [label=%q, color=%q, pos=\"%.1f,%.1f!\"];\n",
			e.ID, label, e.Kind.Color(), cx, cy)
	}

	buf.WriteString("\n")
	for _, c := range s.Connectors {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q, color=%q, fontcolor=%q];\n",
			c.Source, c.Target, c.Label(), c.Color, c.Color)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderPNG renders the scene as PNG through the neato engine with all cards
// pinned at their board positions.
func RenderPNG(ctx context.Context, s scene.Scene) ([]byte, error) {
	return renderGraphviz(ctx, ToDOT(s), graphviz.PNG)
}

// RenderDOTSVG renders the scene as SVG through Graphviz. Unlike [RenderSVG]
// the connectors are routed by neato.
func RenderDOTSVG(ctx context.Context, s scene.Scene) ([]byte, error) {
	return renderGraphviz(ctx, ToDOT(s), graphviz.SVG)
}

func renderGraphviz(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", strings.ToLower(string(format)), err)
	}
	return buf.Bytes(), nil
}
