// Package cache wraps go-cache with a typed, slog-instrumented API.
package cache

import (
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// NoExpiration keeps entries until they are deleted or the cache is flushed.
const NoExpiration = gocache.NoExpiration

// Cache is a typed in-memory cache keyed by string.
type Cache[V any] struct {
	useCase string
	cache   *gocache.Cache
	logger  *slog.Logger
}

// New creates a cache for useCase. Entries expire after defaultExpiration;
// pass NoExpiration to keep them for the process lifetime.
func New[V any](useCase string, defaultExpiration time.Duration, logger *slog.Logger) *Cache[V] {
	if logger == nil {
		logger = slog.Default()
	}
	cleanup := time.Duration(0)
	if defaultExpiration > 0 {
		cleanup = 2 * defaultExpiration
	}
	return &Cache[V]{
		useCase: useCase,
		cache:   gocache.New(defaultExpiration, cleanup),
		logger:  logger,
	}
}

// Get retrieves an item from the cache by its key.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	value, found := c.cache.Get(key)
	if !found {
		return zero, false
	}

	v, ok := value.(V)
	if !ok {
		c.logger.Error("Wrong type assertion when getting cached value.", "cache", c.useCase, "key", key)
		return zero, false
	}

	c.logger.Debug("Cache hit.", "cache", c.useCase, "key", key)
	return v, true
}

// Set stores value under key with the default expiration.
func (c *Cache[V]) Set(key string, value V) {
	c.cache.SetDefault(key, value)
}

// Delete removes keys from the cache.
func (c *Cache[V]) Delete(keys ...string) {
	for _, key := range keys {
		c.cache.Delete(key)
	}
}

// Flush removes every entry.
func (c *Cache[V]) Flush() {
	c.cache.Flush()
}

// Len returns the number of cached entries, including expired ones not yet
// cleaned up.
func (c *Cache[V]) Len() int {
	return c.cache.ItemCount()
}
