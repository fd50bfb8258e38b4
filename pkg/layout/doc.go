// Package layout computes board positions for entity cards.
//
// # Overview
//
// Two placement strategies are provided, each used at a different point of
// a board's life:
//
//   - [Simulate] runs a one-shot force-directed simulation over the whole
//     entity set. It is used exactly once, the first time a board receives a
//     non-empty entity list.
//
//   - [FindSlot] searches for a free slot for a single new entity without
//     moving any existing card. Every entity that arrives after the initial
//     layout goes through it.
//
// Neither function ever fails: an empty entity set yields an empty
// [Positions], an unmeasurable viewport falls back to [DefaultViewport], and
// an exhausted slot search falls back to a random in-bounds position (see
// [Placement.Fallback]).
//
// # Force Simulation
//
// The simulator owns a small array of {x, y, vx, vy} particles and applies
// four forces per tick, in this order:
//
//   - link: springs along each relation edge toward W+50
//   - charge: pairwise repulsion with strength -2W
//   - collide: minimum center separation of max(W,H)/2 + spacing/2
//   - center: translates the mean position onto the viewport center
//
// The simulation runs a fixed number of ticks ([DefaultIterations]) with an
// exponentially decaying alpha, then converts particle centers to top-left
// positions clamped into [Margin, width-W-Margin] × [Margin, height-H-Margin].
//
// Relations whose target is not part of the entity set, and self relations,
// contribute no force.
//
// # Slot Search
//
// Candidates lie on a spiral around the viewport center: candidate i sits at
// radius (i/6)·(W+spacing) and angle (i mod 6)·60°. The first candidate whose
// padded rectangle overlaps no existing padded rectangle wins. The attempt
// budget is max(200, 10·n) for n existing cards.
//
// # Options
//
//   - [WithMetrics]: Card size and spacing (default [DefaultMetrics])
//   - [WithIterations]: Number of simulation ticks (default 300)
//   - [WithSeed]: Seed for jiggle and fallback randomness
//   - [WithRand]: Explicit random source, shared across calls
//   - [WithLogger]: Debug logging of fallbacks
package layout
