package cache

import (
	"context"
	"time"
)

// NullCache misses on every read and drops every write. It is used when
// caching is disabled or a backend could not be reached.
type NullCache struct{}

// NewNullCache returns a NullCache.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (*NullCache) Delete(context.Context, string) error { return nil }
func (*NullCache) Close() error { return nil }
