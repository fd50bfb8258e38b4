package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/geometry"
)

func TestSimulateEmpty(t *testing.T) {
	got := Simulate(nil, DefaultViewport)
	if got == nil || len(got) != 0 {
		t.Errorf("Simulate(nil) = %v, want empty map", got)
	}
}

func TestSimulateSingleCentered(t *testing.T) {
	got := Simulate([]entity.Entity{{ID: "a"}}, DefaultViewport)
	want := geometry.Point{X: 470, Y: 310}
	if p := got["a"]; math.Abs(p.X-want.X) > 1e-6 || math.Abs(p.Y-want.Y) > 1e-6 {
		t.Errorf("single card at %v, want %v", p, want)
	}
}

func TestSimulateBounds(t *testing.T) {
	tests := []struct {
		name string
		n    int
		vp   Viewport
	}{
		{"Default", 8, DefaultViewport},
		{"Crowded", 40, DefaultViewport},
		{"Small", 5, Viewport{Width: 320, Height: 200}},
		{"Unmeasured", 6, Viewport{}},
		{"Wide", 12, Viewport{Width: 3000, Height: 900}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities := chain(tt.n)
			got := Simulate(entities, tt.vp)

			if len(got) != tt.n {
				t.Fatalf("got %d positions, want %d", len(got), tt.n)
			}
			bounds := SimulationBounds(tt.vp.OrDefault(), DefaultMetrics.Card)
			for _, e := range entities {
				p, ok := got[e.ID]
				if !ok {
					t.Fatalf("missing position for %s", e.ID)
				}
				if !bounds.Contains(p) {
					t.Errorf("%s at %v outside %+v", e.ID, p, bounds)
				}
			}
		})
	}
}

func TestSimulateSmallViewportFloor(t *testing.T) {
	got := Simulate(chain(3), Viewport{Width: 100, Height: 100})
	for id, p := range got {
		if p != (geometry.Point{X: Margin, Y: Margin}) {
			t.Errorf("%s at %v, want floor (%d, %d)", id, p, Margin, Margin)
		}
	}
}

func TestSimulateLinkedCloser(t *testing.T) {
	a := entity.Entity{ID: "A"}
	b := entity.Entity{ID: "B", Relations: entity.Relations{entity.RelationOrigin: {"A"}}}

	linked := Simulate([]entity.Entity{a, b}, DefaultViewport)
	unlinked := Simulate([]entity.Entity{a, {ID: "B"}}, DefaultViewport)

	dl := linked["A"].Distance(linked["B"])
	du := unlinked["A"].Distance(unlinked["B"])
	if dl > du {
		t.Errorf("linked distance %.1f > unlinked distance %.1f", dl, du)
	}
}

func TestSimulateLinkedPairInTriple(t *testing.T) {
	entities := []entity.Entity{
		{ID: "A"},
		{ID: "B", Relations: entity.Relations{entity.RelationFriend: {"A"}}},
		{ID: "C"},
	}
	got := Simulate(entities, DefaultViewport)

	ab := got["A"].Distance(got["B"])
	for _, pair := range [][2]string{{"A", "C"}, {"B", "C"}} {
		if d := got[pair[0]].Distance(got[pair[1]]); ab > d {
			t.Errorf("linked A-B %.1f farther than unlinked %s-%s %.1f", ab, pair[0], pair[1], d)
		}
	}
}

func TestSimulateIgnoresDanglingAndSelf(t *testing.T) {
	plain := []entity.Entity{{ID: "A"}, {ID: "B"}}
	noisy := []entity.Entity{
		{ID: "A", Relations: entity.Relations{entity.RelationEnemy: {"ghost"}}},
		{ID: "B", Relations: entity.Relations{entity.RelationWields: {"B"}}},
	}

	want := Simulate(plain, DefaultViewport)
	got := Simulate(noisy, DefaultViewport)
	for id := range want {
		if want[id] != got[id] {
			t.Errorf("%s: %v with dangling relations, %v without", id, got[id], want[id])
		}
	}
}

func TestSimulateDeterministic(t *testing.T) {
	entities := chain(10)
	first := Simulate(entities, DefaultViewport, WithSeed(7))
	second := Simulate(entities, DefaultViewport, WithSeed(7))
	for id, p := range first {
		if second[id] != p {
			t.Fatalf("%s: %v then %v with the same seed", id, p, second[id])
		}
	}
}

func TestMetrics(t *testing.T) {
	m := DefaultMetrics
	if got := m.Padding(); got != 24 {
		t.Errorf("Padding() = %v", got)
	}
	if got := m.LinkDistance(); got != 310 {
		t.Errorf("LinkDistance() = %v", got)
	}
	if got := m.ChargeStrength(); got != -520 {
		t.Errorf("ChargeStrength() = %v", got)
	}
	if got := m.CollideRadius(); got != 154 {
		t.Errorf("CollideRadius() = %v", got)
	}
}

// chain returns n entities where each one is the ORIGIN of the next.
func chain(n int) []entity.Entity {
	out := make([]entity.Entity, n)
	for i := range out {
		out[i].ID = fmt.Sprintf("e%d", i)
		if i > 0 {
			out[i].Relate(entity.RelationOrigin, out[i-1].ID)
		}
	}
	return out
}
