// Package cache stores collected graphs and rendered artifacts between runs.
//
// Three backends share the [Cache] interface: [FileCache] for the CLI,
// [RedisCache] for the HTTP server where several processes share results,
// and [NullCache] when caching is disabled. Keys come from a [Keyer] so the
// same inputs map to the same entry in every backend.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/azdiagram/pkg/errors"
)

// Default time-to-live values.
const (
	// TTLCollect bounds how stale a cached inventory may be.
	TTLCollect = 15 * time.Minute
	// TTLList is used for subscription and resource group listings.
	TTLList = time.Hour
	// TTLArtifact applies to rendered documents, which are a pure function
	// of their inputs.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and whether it was found.
	// Expired or unreadable entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Open creates a cache for the named backend. An empty backend selects the
// file cache. dir is used by the file backend and url by redis.
func Open(ctx context.Context, backend, dir, url string) (Cache, error) {
	switch backend {
	case "", BackendFile:
		if dir == "" {
			d, err := DefaultDir()
			if err != nil {
				return nil, err
			}
			dir = d
		}
		c, err := NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, url)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendNone:
		return NewNullCache(), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", backend)
}
