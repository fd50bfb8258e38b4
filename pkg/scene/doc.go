// Package scene provides the serialization format for laid-out boards.
//
// A [Scene] is a self-contained snapshot of a board: the loaded entities,
// their card positions in board space, the connectors between them and the
// derived board dimensions. It is what the CLI writes to *.scene.json, what
// the HTTP API returns, and what the renderers consume.
//
// # Core Types
//
//   - [Scene]: Board snapshot
//   - [Connector]: Resolved relation with boundary-clipped geometry
//
// # Board Dimensions
//
// [Dimensions] derives the scrollable board size from the card positions:
// at least [MinWidth]×[MinHeight], and otherwise the rightmost and lowest
// card edges plus [Overscan]. Dimensions are never stored as state; they are
// recomputed from positions whenever needed.
//
// # Connectors
//
// [Connectors] resolves every relation whose endpoints both have a position
// into a [Connector]. Relations to entities without a position (dangling
// relations) and relations of unknown type are skipped.
//
// # Serialization
//
//	s, err := scene.ReadFile("world.scene.json")
//	...
//	err = scene.WriteFile(s, "world.scene.json")
package scene
