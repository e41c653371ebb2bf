// Package cache stores rendered artifacts by content hash.
//
// Drawing a reference graph with Graphviz is the slowest step of a render,
// and the same DOT text always yields the same SVG. Callers key entries with
// [Key] over the inputs that determine the output:
//
//	key := cache.Key("svg", dot)
//	if data, ok, _ := c.Get(ctx, key); ok {
//	    return data, nil
//	}
//
// [FileCache] keeps entries on disk between CLI runs; [NullCache] disables
// caching.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Cache stores byte blobs under string keys.
type Cache interface {
	// Get returns the stored value and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// DefaultDir returns the cache directory using the XDG standard
// (~/.cache/docwalk).
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "docwalk"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "docwalk"), nil
}
