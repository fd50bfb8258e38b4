package layout

import (
	"math"
	"time"

	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/geometry"
)

const (
	alphaMin      = 0.001
	velocityDecay = 0.6
	initialRadius = 10
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// particle is a simulated card center.
type particle struct {
	x, y   float64
	vx, vy float64
}

// link is a spring between two particles.
type link struct {
	source, target int
	strength, bias float64
}

// simulation is a fixed-tick force solver over an explicit particle array.
type simulation struct {
	nodes    []particle
	links    []link
	alpha    float64
	decay    float64
	distance float64
	charge   float64
	radius   float64
	center   geometry.Point
	jiggle   func() float64
}

// Simulate computes an initial layout for entities inside the viewport.
//
// Every entity receives exactly one position. Positions are card top-left
// corners clamped into [Margin, width-W-Margin] × [Margin, height-H-Margin],
// with a floor of Margin when the viewport is smaller than one card plus
// margins. An empty entity set returns an empty map without simulating.
func Simulate(entities []entity.Entity, vp Viewport, opts ...Option) Positions {
	if len(entities) == 0 {
		return Positions{}
	}
	cfg := newConfig(opts)
	vp = vp.OrDefault()

	start := time.Now()
	sim := newSimulation(entities, vp, cfg)
	for range cfg.iterations {
		sim.tick()
	}

	card := cfg.metrics.Card
	bounds := SimulationBounds(vp, card)
	out := make(Positions, len(entities))
	for i, e := range entities {
		n := sim.nodes[i]
		top := geometry.Point{X: n.x - card.W/2, Y: n.y - card.H/2}
		out[e.ID] = bounds.Clamp(top)
	}

	cfg.logger.Debug("simulated layout",
		"nodes", len(sim.nodes), "links", len(sim.links),
		"ticks", cfg.iterations, "duration", time.Since(start))
	return out
}

// SimulationBounds returns the top-left bounds of simulated positions.
func SimulationBounds(vp Viewport, card geometry.Size) geometry.Bounds {
	return geometry.Bounds{
		MinX: Margin,
		MinY: Margin,
		MaxX: math.Max(vp.Width-card.W-Margin, Margin),
		MaxY: math.Max(vp.Height-card.H-Margin, Margin),
	}
}

func newSimulation(entities []entity.Entity, vp Viewport, cfg config) *simulation {
	s := &simulation{
		nodes:    make([]particle, len(entities)),
		alpha:    1,
		decay:    1 - math.Pow(alphaMin, 1/float64(DefaultIterations)),
		distance: cfg.metrics.LinkDistance(),
		charge:   cfg.metrics.ChargeStrength(),
		radius:   cfg.metrics.CollideRadius(),
		center:   vp.Center(),
		jiggle:   func() float64 { return (cfg.rng.Float64() - 0.5) * 1e-6 },
	}

	// Phyllotaxis arrangement, the same seed layout for every run.
	for i := range s.nodes {
		r := initialRadius * math.Sqrt(0.5+float64(i))
		a := float64(i) * initialAngle
		s.nodes[i] = particle{x: r * math.Cos(a), y: r * math.Sin(a)}
	}

	index := make(map[string]int, len(entities))
	for i, e := range entities {
		index[e.ID] = i
	}

	degree := make([]int, len(entities))
	for _, e := range entity.Edges(entities) {
		src, tgt := index[e.Source], index[e.Target]
		if src == tgt {
			continue
		}
		s.links = append(s.links, link{source: src, target: tgt})
		degree[src]++
		degree[tgt]++
	}
	for i := range s.links {
		l := &s.links[i]
		ds, dt := float64(degree[l.source]), float64(degree[l.target])
		l.strength = 1 / math.Min(ds, dt)
		l.bias = ds / (ds + dt)
	}
	return s
}

func (s *simulation) tick() {
	s.alpha += -s.alpha * s.decay

	s.applyLinks()
	s.applyCharge()
	s.applyCollide()
	s.applyCenter()

	for i := range s.nodes {
		n := &s.nodes[i]
		n.vx *= velocityDecay
		n.vy *= velocityDecay
		n.x += n.vx
		n.y += n.vy
	}
}

// applyLinks pulls linked particles toward the link distance, using their
// predicted positions. Low-degree endpoints move more.
func (s *simulation) applyLinks() {
	for _, l := range s.links {
		src, tgt := &s.nodes[l.source], &s.nodes[l.target]
		x := s.nonZero(tgt.x + tgt.vx - src.x - src.vx)
		y := s.nonZero(tgt.y + tgt.vy - src.y - src.vy)
		d := math.Sqrt(x*x + y*y)
		k := (d - s.distance) / d * s.alpha * l.strength
		x, y = x*k, y*k

		tgt.vx -= x * l.bias
		tgt.vy -= y * l.bias
		src.vx += x * (1 - l.bias)
		src.vy += y * (1 - l.bias)
	}
}

// applyCharge applies pairwise repulsion between every two particles.
// Card counts are small enough that the exact O(n²) sum is used.
func (s *simulation) applyCharge() {
	for i := range s.nodes {
		n := &s.nodes[i]
		for j := range s.nodes {
			if i == j {
				continue
			}
			o := s.nodes[j]
			x, y := o.x-n.x, o.y-n.y
			if x == 0 {
				x = s.jiggle()
			}
			if y == 0 {
				y = s.jiggle()
			}
			l := x*x + y*y
			if l < 1 {
				l = math.Sqrt(l)
			}
			w := s.charge * s.alpha / l
			n.vx += x * w
			n.vy += y * w
		}
	}
}

// applyCollide separates particles whose predicted centers are closer than
// twice the collision radius. Radii are equal so the correction is split
// evenly.
func (s *simulation) applyCollide() {
	r := 2 * s.radius
	for i := range s.nodes {
		n := &s.nodes[i]
		for j := i + 1; j < len(s.nodes); j++ {
			o := &s.nodes[j]
			x := n.x + n.vx - o.x - o.vx
			y := n.y + n.vy - o.y - o.vy
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			l = math.Sqrt(l)
			k := (r - l) / l
			x, y = x*k, y*k
			n.vx += x * 0.5
			n.vy += y * 0.5
			o.vx -= x * 0.5
			o.vy -= y * 0.5
		}
	}
}

// applyCenter translates all particles so their mean lies on the viewport
// center.
func (s *simulation) applyCenter() {
	var sx, sy float64
	for _, n := range s.nodes {
		sx += n.x
		sy += n.y
	}
	count := float64(len(s.nodes))
	dx := sx/count - s.center.X
	dy := sy/count - s.center.Y
	for i := range s.nodes {
		s.nodes[i].x -= dx
		s.nodes[i].y -= dy
	}
}

func (s *simulation) nonZero(v float64) float64 {
	if v == 0 {
		return s.jiggle()
	}
	return v
}
