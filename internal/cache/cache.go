package cache

import "sync"

// Cache maps descriptions to GPU objects and evicts the ones that went
// unused for MaxAge frames.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*cacheEntry[K, V]
	order   recency[K, V]
	maxAge  uint64
	frame   uint64
	onEvict func(K, V)

	hits      uint64
	misses    uint64
	evictions uint64
}

type cacheEntry[K comparable, V any] struct {
	key        K
	value      V
	frame      uint64 // frame of last use
	prev, next *cacheEntry[K, V]
	linked     bool
}

// New creates a cache that keeps entries for maxAge frames after their last
// use. A maxAge of 0 keeps entries until Delete or Clear. onEvict, if
// non-nil, is called for every entry leaving the cache.
func New[K comparable, V any](maxAge int, onEvict func(K, V)) *Cache[K, V] {
	if maxAge < 0 {
		maxAge = 0
	}
	return &Cache[K, V]{
		entries: make(map[K]*cacheEntry[K, V]),
		maxAge:  uint64(maxAge),
		onEvict: onEvict,
	}
}

// Get returns the value for key and marks it used in the current frame.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.touch(e)
	return e.value, true
}

// GetOrCreate returns the cached value or builds it with create.
// create runs under the lock, so concurrent callers never build the same
// key twice. A failed create caches nothing.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.hits++
		c.touch(e)
		return e.value, nil
	}
	c.misses++

	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	e := &cacheEntry[K, V]{key: key, value: value, frame: c.frame}
	c.entries[key] = e
	c.order.touch(e)
	return value, nil
}

// Delete removes key, calling onEvict. It reports whether key was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.order.unlink(e)
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if ok && c.onEvict != nil {
		c.onEvict(key, e.value)
	}
	return ok
}

// Advance moves to the next frame and evicts every entry whose last use is
// more than MaxAge frames old. It returns the number of evicted entries.
func (c *Cache[K, V]) Advance() int {
	type victim struct {
		key   K
		value V
	}

	c.mu.Lock()
	c.frame++
	var victims []victim
	if c.maxAge > 0 {
		for e := c.order.stalest(); e != nil && c.frame-e.frame > c.maxAge; e = c.order.stalest() {
			c.order.unlink(e)
			delete(c.entries, e.key)
			victims = append(victims, victim{e.key, e.value})
		}
	}
	c.evictions += uint64(len(victims))
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, v := range victims {
			c.onEvict(v.key, v.value)
		}
	}
	return len(victims)
}

// Clear evicts every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[K]*cacheEntry[K, V])
	c.order.reset()
	c.evictions += uint64(len(entries))
	c.mu.Unlock()

	if c.onEvict != nil {
		for key, e := range entries {
			c.onEvict(key, e.value)
		}
	}
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Frame returns the current frame number.
func (c *Cache[K, V]) Frame() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       len(c.entries),
		MaxAge:    int(c.maxAge),
		Frame:     c.frame,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// touch marks e used in the current frame. Caller must hold c.mu.
func (c *Cache[K, V]) touch(e *cacheEntry[K, V]) {
	e.frame = c.frame
	c.order.touch(e)
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// MaxAge is the number of unused frames an entry survives.
	MaxAge int
	// Frame is the current frame number.
	Frame uint64
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that did not.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0.0 to 1.0.
	HitRate float64
	// Evictions is the number of entries removed by Advance or Clear.
	Evictions uint64
}
