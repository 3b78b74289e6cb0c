// Package querycache holds short-lived copies of API responses keyed by query
// key. Identical in-flight fetches are collapsed into one request, and a
// mutation invalidates every entry under its resource's key prefix.
package querycache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"attendex/src-server/metric"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const keySep = "\x1f"

// Key identifies a query. Keys are hierarchical: invalidating a key also
// invalidates every key it prefixes.
type Key []string

func (k Key) String() string {
	return strings.Join(k, keySep)
}

// With returns a new key extended by parts; k is never modified.
func (k Key) With(parts ...string) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

func (k Key) prefixes(other string) bool {
	self := k.String()
	return other == self || strings.HasPrefix(other, self+keySep)
}

type Stats struct {
	Hits          uint64
	Misses        uint64
	Shared        uint64
	Invalidations uint64
}

type Cache struct {
	entries *expirable.LRU[string, any]
	group   singleflight.Group

	// generation changes on every invalidation; fetches that started under an
	// older generation neither store their result nor get joined by new callers
	generation atomic.Uint64
	mu         sync.Mutex
	listeners  []func(Key)

	hits, misses, shared, invalidations atomic.Uint64
}

func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 512
	}
	return &Cache{
		entries: expirable.NewLRU[string, any](size, nil, ttl),
	}
}

// Fetch returns the cached value for key or runs fn once for all concurrent
// callers of the same key and caches its result. Errors are never cached.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	k := key.String()
	if v, ok := c.entries.Get(k); ok {
		if typed, ok := v.(T); ok {
			c.hits.Add(1)
			metric.CacheLookups.WithLabelValues("hit").Inc()
			return typed, nil
		}
	}

	gen := c.generation.Load()
	v, err, shared := c.group.Do(strconv.FormatUint(gen, 10)+keySep+k, func() (any, error) {
		c.misses.Add(1)
		metric.CacheLookups.WithLabelValues("miss").Inc()
		result, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return result, err
		}
		c.mu.Lock()
		if c.generation.Load() == gen {
			c.entries.Add(k, result)
		}
		c.mu.Unlock()
		return result, nil
	})
	if shared {
		c.shared.Add(1)
		metric.CacheLookups.WithLabelValues("shared").Inc()
	}
	typed, _ := v.(T)
	return typed, err
}

// Invalidate drops key and every key below it.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	c.generation.Add(1)
	for _, k := range c.entries.Keys() {
		if key.prefixes(k) {
			c.entries.Remove(k)
		}
	}
	listeners := c.listeners
	c.mu.Unlock()
	c.invalidations.Add(1)
	metric.CacheInvalidations.Inc()
	for _, fn := range listeners {
		fn(key)
	}
}

// OnInvalidate registers fn to run after every invalidation.
func (c *Cache) OnInvalidate(fn func(Key)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners[:len(c.listeners):len(c.listeners)], fn)
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Shared:        c.shared.Load(),
		Invalidations: c.invalidations.Load(),
	}
}
