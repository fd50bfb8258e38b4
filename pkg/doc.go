// Package pkg provides the core libraries for Loreboard.
//
// # Overview
//
// Loreboard arranges typed story entities as cards on a 2D board. Related
// cards are joined by labeled connectors, and cards can be dragged. The
// first layout of a board comes from a force simulation. Entities that
// arrive later are dropped into free space, and nothing already on the
// board moves.
//
// # Architecture
//
// The typical data flow:
//
//	Entity file / MongoDB collection
//	         ↓
//	    [source] package (load and validate entities)
//	         ↓
//	    [layout] package (force simulation, free-slot placement)
//	         ↓
//	    [board] package (positions, zoom, change notifications)
//	         ↓
//	    [scene] package (snapshot with connector geometry)
//	         ↓
//	    [render] package (SVG, DOT, PNG)
//
// # Quick Start
//
//	entities, _ := source.NewFileSource("world.yaml").Entities(ctx)
//	positions := layout.Simulate(entities, layout.DefaultViewport, layout.WithSeed(42))
//	s := scene.New(entities, positions, layout.DefaultMetrics, layout.DefaultViewport, 1)
//	svg := render.RenderSVG(s)
//
// # Main Packages
//
// ## Domain
//
// [entity] - Entities, the closed set of relation types and edge
// resolution. Dangling relations are dropped here.
//
// [geometry] - Points, card rectangles, bounds clamping and the clipping of
// connectors to card boundaries.
//
// [layout] - The force-directed initial layout and the randomized free-slot
// search used for incremental placement.
//
// [board] - A live board: it reconciles positions against the current
// entity set, holds the zoom level and notifies subscribers of changes.
//
// [drag] - The pointer-driven drag controller shared by the terminal board
// and the HTTP API.
//
// ## Output
//
// [scene] - Serializable board snapshots.
//
// [render] - SVG, Graphviz DOT and PNG rendering of scenes.
//
// ## Infrastructure
//
// [pipeline] - Load, layout and render with caching. Used by the CLI and
// the server so both behave the same.
//
// [cache] - Layout cache backends: file, Redis and a no-op cache.
//
// [session] - In-memory board sessions with a time-to-live.
//
// [server] - HTTP and websocket API over board sessions.
//
// [config] - TOML configuration.
//
// [errors] - Structured error codes shared by the CLI and the API.
//
// # Testing
//
//	go test ./...                  # All tests
//	go test -short ./...           # Skip PNG rendering
//	go test -run Example ./pkg/... # Examples only
//
// [entity]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/entity
// [geometry]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/geometry
// [layout]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/layout
// [board]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/board
// [drag]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/drag
// [scene]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/scene
// [render]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/render
// [source]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/source
// [pipeline]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/cache
// [session]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/session
// [server]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/server
// [config]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/config
// [errors]: https://pkg.go.dev/github.com/loreboard/loreboard/pkg/errors
package pkg
