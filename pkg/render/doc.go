// Package render draws board scenes as images.
//
// # Overview
//
// A [scene.Scene] is a complete snapshot of a board: card positions, the
// board dimensions and the connector geometry. This package turns that
// snapshot into:
//
//   - SVG, written directly ([RenderSVG])
//   - Graphviz DOT with every card pinned at its board position ([ToDOT])
//   - PNG, produced by running the pinned DOT through neato ([RenderPNG])
//
// Renderers never move cards. They read positions exactly as the board
// holds them, and an entity without a position is drawn at
// [scene.Unpositioned].
//
// # SVG
//
//	svg := render.RenderSVG(s, render.WithZoom(), render.WithHighlight("npc-7"))
//
// Connector lines are drawn below the cards and their relation labels above
// them, so labels stay readable where a connector crosses a third card.
//
// # PNG
//
// PNG export goes through the WebAssembly build of Graphviz bundled with
// go-graphviz, so it needs no system binaries.
//
//	png, err := render.RenderPNG(ctx, s)
//
// [scene.Scene]: github.com/loreboard/loreboard/pkg/scene.Scene
// [scene.Unpositioned]: github.com/loreboard/loreboard/pkg/scene.Unpositioned
package render
