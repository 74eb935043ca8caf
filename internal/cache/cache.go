// Package cache provides a typed JSON read-through cache over a Redis-style
// key/value store, with single-flight computation on misses.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/prompted/pkg/redis"
)

// Store is the key/value surface the cache and round store need.
// *pkgredis.Client and *Memory implement it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Cache stores values of type T as JSON under prefix-qualified keys.
type Cache[T any] struct {
	name    string
	prefix  string
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache. name labels metrics and logs; prefix is prepended to
// every key.
func New[T any](name, prefix string, store Store, ttl time.Duration, m *metrics.Metrics) *Cache[T] {
	return &Cache[T]{
		name:    name,
		prefix:  prefix,
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "cache", "cache", name),
	}
}

// Get returns the cached value for key. Store and decode errors are logged
// and reported as misses.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	full := c.prefix + key
	data, err := c.store.Get(ctx, full)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", full, "error", err)
		}
		c.miss()
		return zero, false
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		c.logger.Error("cache unmarshal failed", "key", full, "error", err)
		c.miss()
		return zero, false
	}
	c.hit()
	c.logger.Debug("cache hit", "key", full)
	return v, true
}

// Set stores v under key with the cache TTL.
func (c *Cache[T]) Set(ctx context.Context, key string, v T) {
	full := c.prefix + key
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", full, "error", err)
		return
	}
	if err := c.store.Set(ctx, full, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", full, "error", err)
	}
}

// GetOrCompute returns the cached value or runs compute once per key across
// concurrent callers. The bool reports a cache hit. When compute returns
// store=false the value is returned but not cached.
func (c *Cache[T]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (v T, store bool, err error)) (T, bool, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(ctx, key); ok {
			return v, nil
		}
		v, store, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if store {
			c.Set(ctx, key, v)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return val.(T), false, nil
}

// Invalidate deletes every key under the cache prefix.
func (c *Cache[T]) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, c.prefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating %s cache: %w", c.name, err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counts since creation.
func (c *Cache[T]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache[T]) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
	}
}

func (c *Cache[T]) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
	}
}
