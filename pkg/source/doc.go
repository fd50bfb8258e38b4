// Package source loads entity sets from the collaborators that own them.
//
// The board never creates or edits entities. It receives the current set
// from a [Source] and reconciles its positions against it:
//
//   - [FileSource] reads a JSON, YAML or TOML document
//   - [MongoSource] reads a MongoDB collection
//
// # File Format
//
// A document is either a bare list of entities or an object with an
// "entities" list. TOML documents always use the object form:
//
//	[[entities]]
//	id = "aria"
//	name = "Aria"
//	entity_type = "CHARACTER"
//	created_at = 2024-03-01T10:00:00Z
//
//	[entities.relations]
//	WIELDS = ["dawnblade"]
//
// # Watching
//
// [Watcher] follows an entity file on disk and reloads it after each
// change, debounced, so a board can refresh its entity list the same way
// it would after a round trip to an API.
package source
