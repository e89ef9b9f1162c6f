package entitycache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the authoritative collection for the cache
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Subscriber receives every published collection
type Subscriber[T any] func(items []T)

// Cache holds the last-known collection for one entity type. Collections are
// replaced wholesale and never mutated in place, so subscribers can rely on
// reference equality for change detection. Publishes happen in completion
// order: a fetch still in flight when Invalidate is called is not cancelled,
// its result is published when it arrives (last-write-wins).
type Cache[T any] struct {
	fetch FetchFunc[T]

	mu     sync.Mutex
	items  []T
	valid  bool
	subs   map[int]Subscriber[T]
	nextID int

	group singleflight.Group
}

// New creates a cache backed by the given fetch function
func New[T any](fetch FetchFunc[T]) *Cache[T] {
	return &Cache[T]{
		fetch: fetch,
		subs:  make(map[int]Subscriber[T]),
	}
}

// Get returns the cached collection, fetching it if the cache is empty or
// has been invalidated. Concurrent callers share one in-flight fetch.
func (c *Cache[T]) Get(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	if c.valid {
		items := c.items
		c.mu.Unlock()
		return items, nil
	}
	c.mu.Unlock()

	result, err, _ := c.group.Do("fetch", func() (any, error) {
		items, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Publish(items)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]T), nil
}

// Peek returns the cached collection without fetching. The second return
// value reports whether a collection has ever been published.
func (c *Cache[T]) Peek() ([]T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.items == nil {
		return nil, false
	}
	return c.items, true
}

// Valid reports whether the next Get will be served from cache
func (c *Cache[T]) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// Invalidate marks the cached collection stale. The next Get bypasses the
// cache; an in-flight fetch is not cancelled.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

// Publish replaces the cached collection and notifies every subscriber
// exactly once with the new collection reference
func (c *Cache[T]) Publish(items []T) {
	c.mu.Lock()
	c.items = items
	c.valid = true

	subs := make([]Subscriber[T], 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	// Notify outside the lock so subscribers may call back into the cache
	for _, fn := range subs {
		fn(items)
	}
}

// Subscribe registers fn for every future publish and returns an
// unsubscribe function
func (c *Cache[T]) Subscribe(fn Subscriber[T]) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}
