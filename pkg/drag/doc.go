// Package drag turns a pointer event stream into card position updates.
//
// A [Controller] is a two-state machine. It is idle until a pointer goes
// down over a card, then drags that card until any pointer goes up. Only one
// card drags at a time.
//
// # Coordinate Mapping
//
// Pointer events carry client coordinates. The board-space pointer is
//
//	(client - origin) / zoom
//
// where origin is the board element's client offset (from a [Surface]) and
// zoom is read from the board at the time of each event, so zooming during
// a drag takes effect immediately. The card follows the pointer at the grab
// offset captured on pointer-down and is clamped into the board bounds.
//
// # Clicks
//
// The controller records whether the pointer moved more than one pixel
// during an interaction. [Controller.ConsumeClick] lets callers tell a click
// (open details) from a drag.
//
// # Host Integration
//
// Host toolkits implement [PointerSource]. [Feed] is an in-memory source
// used by the terminal board and the HTTP API.
package drag
