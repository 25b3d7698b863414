// Package caching provides in-process stores with sliding expiry
package caching

import (
	"sync"
	"time"
)

const sweepInterval = time.Minute

type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

// TTLCache maps keys to values that expire after ttl without access. Every
// hit refreshes the entry's expiry. Expired entries are swept lazily, at
// most once per minute.
type TTLCache[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	entries   map[string]*ttlEntry[V]
	lastSweep time.Time
}

// NewTTLCache creates an empty cache using now as its clock
func NewTTLCache[V any](ttl time.Duration, now func() time.Time) *TTLCache[V] {
	if now == nil {
		now = time.Now
	}
	return &TTLCache[V]{
		ttl:       ttl,
		now:       now,
		entries:   make(map[string]*ttlEntry[V]),
		lastSweep: now(),
	}
}

// Get returns the live value for key and refreshes its expiry
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)
	e, ok := c.entries[key]
	if !ok || !now.Before(e.expires) {
		var zero V
		return zero, false
	}
	e.expires = now.Add(c.ttl)
	return e.value, true
}

// Set stores value under key with a fresh expiry
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)
	c.entries[key] = &ttlEntry[V]{value: value, expires: now.Add(c.ttl)}
}

// Len reports the number of entries, expired ones not yet swept included
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTLCache[V]) sweep(now time.Time) {
	if now.Sub(c.lastSweep) < sweepInterval {
		return
	}
	c.lastSweep = now
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
}
