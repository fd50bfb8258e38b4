// Package board owns the position map of a single board.
//
// A [Board] is the single point of truth for card positions, the loaded
// entity set and the zoom factor. Every writer goes through it:
//
//   - the initial force layout, once, the first time [Board.Sync] receives a
//     non-empty entity list
//   - slot placement, once per entity that arrives after that
//   - the drag controller, through [Board.SetPosition]
//   - pruning, on every [Board.Sync]
//
// # Merge Semantics
//
// [Board.Sync] never replaces the position map wholesale. Entities that
// already have a position keep it, new entities are placed one at a time in
// newest-first order, and positions of entities that disappeared are
// removed. A card being dragged while a refresh arrives keeps its
// in-progress position.
//
// # Change Notification
//
// Rendering layers register with [Board.Subscribe] and receive a [Change]
// after every mutation. Callbacks run synchronously on the mutating
// goroutine, after the board lock has been released.
//
// # Concurrency
//
// Board is safe for concurrent use. Mutations are serialized by a mutex;
// the initial layout is computed outside it.
package board
