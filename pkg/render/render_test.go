package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/layout"
	"github.com/loreboard/loreboard/pkg/scene"
)

func testScene() scene.Scene {
	hero := entity.Entity{ID: "hero", Name: "Aria <the Bold>", Kind: entity.KindCharacter,
		Attributes: map[string]string{"age": "31", "home": "Vel"}}
	hero.Relate(entity.RelationWields, "blade")
	hero.Relate(entity.RelationFriend, "ghost")
	blade := entity.Entity{ID: "blade", Name: "Dawnblade", Kind: entity.KindItem}
	orphan := entity.Entity{ID: "orphan", Kind: "MYSTERY"}

	positions := layout.Positions{
		"hero":  {X: 100, Y: 100},
		"blade": {X: 600, Y: 100},
	}
	return scene.New([]entity.Entity{hero, blade, orphan}, positions, layout.DefaultMetrics, layout.DefaultViewport, 1.5)
}

func TestRenderSVG(t *testing.T) {
	s := testScene()
	svg := string(RenderSVG(s))

	for _, want := range []string{
		`viewBox="0 0 1200.0 800.0" width="1200" height="800"`,
		`id="card-hero"`,
		`id="card-blade"`,
		`id="hero:WIELDS:blade"`,
		`stroke="#a855f7"`,
		`>WIELDS</text>`,
		`Aria &lt;the Bold&gt;`,
		`age: 31`,
		`>OTHER</text>`,
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %q", want)
		}
	}

	// The dangling FRIEND relation has no connector.
	if strings.Contains(svg, "FRIEND") {
		t.Error("SVG should not draw dangling relations")
	}
	if !strings.HasSuffix(svg, "</svg>\n") {
		t.Error("SVG not terminated")
	}
}

func TestRenderSVGUnpositioned(t *testing.T) {
	svg := string(RenderSVG(testScene()))
	want := `<rect x="120.0" y="120.0" width="260.0" height="180.0"`
	if !strings.Contains(svg, want) {
		t.Errorf("unpositioned card should render at %v", scene.Unpositioned)
	}
}

func TestRenderSVGOptions(t *testing.T) {
	s := testScene()

	tests := []struct {
		name    string
		opts    []SVGOption
		want    []string
		notWant []string
	}{
		{
			name: "Zoom",
			opts: []SVGOption{WithZoom()},
			want: []string{`width="1800" height="1200"`, `viewBox="0 0 1200.0 800.0"`},
		},
		{
			name:    "WithoutLabels",
			opts:    []SVGOption{WithoutLabels()},
			notWant: []string{`class="connector-label"`},
		},
		{
			name: "Highlight",
			opts: []SVGOption{WithHighlight("blade")},
			want: []string{`stroke="#fbbf24" stroke-width="4"`},
		},
		{
			name:    "TransparentBackground",
			opts:    []SVGOption{WithBackground("")},
			notWant: []string{`class="board"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svg := string(RenderSVG(s, tt.opts...))
			for _, w := range tt.want {
				if !strings.Contains(svg, w) {
					t.Errorf("SVG missing %q", w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(svg, w) {
					t.Errorf("SVG should not contain %q", w)
				}
			}
		})
	}
}

func TestRenderSVGConnectorsBelowCards(t *testing.T) {
	svg := string(RenderSVG(testScene()))
	line := strings.Index(svg, `class="connector"`)
	card := strings.Index(svg, `class="card"`)
	label := strings.Index(svg, `class="connector-label"`)
	if !(line < card && card < label) {
		t.Errorf("draw order: line=%d card=%d label=%d", line, card, label)
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testScene())

	for _, want := range []string{
		"digraph board {",
		"inputscale=72",
		"width=3.611, height=2.500",
		// hero center (230, 190) flipped against height 800.
		`"hero" [label="Aria <the Bold>\nCHARACTER", color="#38bdf8", pos="230.0,610.0!"]`,
		`"hero" -> "blade" [label="WIELDS", color="#a855f7"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		label string
		width float64
		want  string
	}{
		{"short", 228, "short"},
		{"a very long entity name that cannot fit on a card", 110, "a very long entity.."},
		{"xyz", 1, "xyz"},
		{"héros légendaires", 40, "héros.."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.label, tt.width, 10); got != tt.want {
			t.Errorf("Truncate(%q, %v) = %q, want %q", tt.label, tt.width, got, tt.want)
		}
	}
}

func TestRenderPNG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz rendering in short mode")
	}
	png, err := RenderPNG(context.Background(), testScene())
	if err != nil {
		t.Fatalf("RenderPNG() error: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Errorf("RenderPNG() output is not a PNG")
	}
}

func TestCardAttributesLimit(t *testing.T) {
	e := entity.Entity{Attributes: map[string]string{"d": "4", "a": "1", "c": "3", "b": "2"}}
	got := cardAttributes(e)
	want := []string{"a", "b", "c"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("cardAttributes() = %v, want %v", got, want)
	}
}
