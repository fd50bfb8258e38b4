package layout

import (
	"io"
	"maps"
	"math"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/loreboard/loreboard/pkg/geometry"
)

const (
	// DefaultIterations is the number of simulation ticks.
	DefaultIterations = 300

	// Margin is the minimum distance kept between a simulated card and the
	// viewport edge.
	Margin = 40

	// linkSlack is added to the card width to obtain the link distance.
	linkSlack = 50
)

// Metrics describes the fixed card geometry shared by every card on a board.
type Metrics struct {
	Card    geometry.Size `json:"card" toml:"card"`
	Spacing float64       `json:"spacing" toml:"spacing"`
}

// DefaultMetrics are the standard card metrics: 260×180 cards, 48px apart.
var DefaultMetrics = Metrics{
	Card:    geometry.Size{W: 260, H: 180},
	Spacing: 48,
}

// Padding is the margin added around each card for slot overlap tests.
func (m Metrics) Padding() float64 { return m.Spacing / 2 }

// LinkDistance is the rest length of relation springs.
func (m Metrics) LinkDistance() float64 { return m.Card.W + linkSlack }

// ChargeStrength is the pairwise repulsion strength (negative repels).
func (m Metrics) ChargeStrength() float64 { return -2 * m.Card.W }

// CollideRadius is the collision radius of a card. Two cards collide when
// their centers are closer than twice this radius.
func (m Metrics) CollideRadius() float64 {
	return math.Max(m.Card.W, m.Card.H)/2 + m.Spacing/2
}

func (m Metrics) valid() bool {
	return m.Card.W > 0 && m.Card.H > 0 && m.Spacing >= 0
}

// Viewport is the size of the container hosting the board.
type Viewport struct {
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// DefaultViewport is used whenever the container cannot be measured.
var DefaultViewport = Viewport{Width: 1200, Height: 800}

// Measured reports whether v has usable, positive dimensions.
func (v Viewport) Measured() bool {
	return v.Width > 0 && v.Height > 0 &&
		!math.IsInf(v.Width, 0) && !math.IsInf(v.Height, 0)
}

// OrDefault returns v, or [DefaultViewport] if v is not measured.
func (v Viewport) OrDefault() Viewport {
	if v.Measured() {
		return v
	}
	return DefaultViewport
}

// Center returns the viewport midpoint.
func (v Viewport) Center() geometry.Point {
	return geometry.Point{X: v.Width / 2, Y: v.Height / 2}
}

// Positions maps entity IDs to card top-left corners in board space.
type Positions map[string]geometry.Point

// Clone returns a shallow copy of p.
func (p Positions) Clone() Positions {
	if p == nil {
		return Positions{}
	}
	return maps.Clone(p)
}

// Option configures [Simulate] and [FindSlot].
type Option func(*config)

type config struct {
	metrics    Metrics
	iterations int
	rng        *rand.Rand
	logger     *log.Logger
}

func newConfig(opts []Option) config {
	c := config{
		metrics:    DefaultMetrics,
		iterations: DefaultIterations,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if !c.metrics.valid() {
		c.metrics = DefaultMetrics
	}
	if c.iterations <= 0 {
		c.iterations = DefaultIterations
	}
	if c.rng == nil {
		c.rng = NewRand(0)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// WithMetrics sets the card metrics. Invalid metrics are ignored.
func WithMetrics(m Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithIterations sets the number of simulation ticks.
func WithIterations(n int) Option {
	return func(c *config) { c.iterations = n }
}

// WithSeed seeds the random source used for jiggle and fallback placement.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.rng = NewRand(seed) }
}

// WithRand sets the random source. Boards pass their own source so that
// successive fallback placements do not repeat.
func WithRand(r *rand.Rand) Option {
	return func(c *config) {
		if r != nil {
			c.rng = r
		}
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// NewRand returns a deterministic random source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
