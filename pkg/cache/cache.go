// Package cache stores recomputable board artifacts.
//
// Only the one-shot initial layout of an entity set is cached. It is a pure
// function of the entity graph, the viewport and the layout settings, so a
// cached copy can always be thrown away and recomputed. Dragged positions
// are never cached or persisted.
//
// # Backends
//
//   - [FileCache]: JSON files under the user cache directory (CLI default)
//   - [RedisCache]: shared cache for several API server instances
//   - [NullCache]: disables caching
//
// # Keys
//
// Keys are built by a [Keyer]. [DefaultKeyer] hashes every input that
// affects the layout; [ScopedKeyer] adds a namespace prefix.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// layoutNamespace is the first segment of every layout key.
const layoutNamespace = "layout"

// Cache is a byte-oriented key/value store with expiration.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop their entries in bulk.
type Clearer interface {
	// Clear removes the layout entries under key prefix (as set by a
	// ScopedKeyer) and returns how many were removed.
	Clear(ctx context.Context, prefix string) (int, error)
}

// LayoutKeyOpts holds every setting that changes an initial layout.
type LayoutKeyOpts struct {
	ViewportWidth  float64 `json:"vw"`
	ViewportHeight float64 `json:"vh"`
	CardWidth      float64 `json:"cw"`
	CardHeight     float64 `json:"ch"`
	Spacing        float64 `json:"sp"`
	Iterations     int     `json:"it"`
	Seed           uint64  `json:"seed"`
}

// Keyer builds cache keys.
type Keyer interface {
	// LayoutKey returns the key of the initial layout of the entity graph
	// with hash graphHash.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return digestKey(layoutNamespace, graphHash, opts)
}

// Hash returns the hex SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// digestKey returns "<prefix>:<sha256 of the JSON encoding of parts>".
func digestKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}
