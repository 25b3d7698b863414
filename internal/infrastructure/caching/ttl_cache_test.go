package caching

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestTTLCacheGetAndSet(t *testing.T) {
	cache := NewTTLCache[int](time.Minute, nil)

	_, ok := cache.Get("page")
	assert.False(t, ok)

	cache.Set("page", 1)
	v, ok := cache.Get("page")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	cache.Set("page", 2)
	v, _ = cache.Get("page")
	assert.Equal(t, 2, v)
}

func TestTTLCacheSlidingExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cache := NewTTLCache[string](time.Minute, clock.Now)
	cache.Set("page", "a")

	clock.Advance(50 * time.Second)
	v, ok := cache.Get("page")
	require.True(t, ok)
	assert.Equal(t, "a", v)

	// the hit above moved the expiry forward
	clock.Advance(50 * time.Second)
	_, ok = cache.Get("page")
	assert.True(t, ok)

	clock.Advance(61 * time.Second)
	_, ok = cache.Get("page")
	assert.False(t, ok)
}

func TestTTLCacheSweepsExpired(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cache := NewTTLCache[int](time.Second, clock.Now)
	for _, k := range []string{"a", "b", "c"} {
		cache.Set(k, 0)
	}
	require.Equal(t, 3, cache.Len())

	clock.Advance(2 * time.Minute)
	cache.Set("d", 0)
	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get("a")
	assert.False(t, ok)
}

func TestTTLCacheConcurrentAccess(t *testing.T) {
	cache := NewTTLCache[int](time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cache.Set("page", i)
			cache.Get("page")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, cache.Len())
}
