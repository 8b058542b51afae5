// Package cache memoizes deterministic results behind a bounded,
// expiring LRU and collapses concurrent computations of the same key.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/NERVsystems/ecoroutemcp/pkg/monitoring"
)

const (
	// DefaultSize is the entry limit used when a non-positive size is given.
	DefaultSize = 256
	// DefaultTTL bounds how long a result is served after it was computed.
	DefaultTTL = 10 * time.Minute
)

// ResultCache is a thread-safe LRU of computed values keyed by string.
// Hits and misses are reported to Prometheus under the cache's name.
type ResultCache[V any] struct {
	name  string
	lru   *expirable.LRU[string, V]
	group singleflight.Group
}

// New creates a cache holding at most size entries for ttl each.
// A zero ttl disables expiry.
func New[V any](name string, size int, ttl time.Duration) *ResultCache[V] {
	if size <= 0 {
		size = DefaultSize
	}
	return &ResultCache[V]{
		name: name,
		lru:  expirable.NewLRU[string, V](size, nil, ttl),
	}
}

// Get returns a cached value.
func (c *ResultCache[V]) Get(key string) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		monitoring.RecordCacheHit(c.name)
	} else {
		monitoring.RecordCacheMiss(c.name)
	}
	return v, ok
}

// Add stores a value.
func (c *ResultCache[V]) Add(key string, value V) {
	c.lru.Add(key, value)
	monitoring.UpdateCacheSize(c.name, c.lru.Len())
}

// Do returns the cached value for key or computes it with fn. Concurrent
// callers with the same key share one fn invocation. Errors are not cached.
// The boolean reports whether the value came from the cache.
func (c *ResultCache[V]) Do(key string, fn func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another flight may have filled the entry while we waited.
		if v, ok := c.lru.Peek(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return nil, err
		}
		c.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return res.(V), false, nil
}

// Len returns the number of entries, expired ones included until evicted.
func (c *ResultCache[V]) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *ResultCache[V]) Purge() {
	c.lru.Purge()
	monitoring.UpdateCacheSize(c.name, 0)
}

// KeyOf derives a stable cache key from any JSON-encodable value.
// Struct fields encode in declaration order and map keys sorted, so equal
// values yield equal keys.
func KeyOf(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
