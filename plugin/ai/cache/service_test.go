package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLRU(capacity int, ttl time.Duration) (*LRUCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache(capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCache_BasicOperations(t *testing.T) {
	cache, _ := newTestLRU(100, time.Minute)

	t.Run("SetAndGet", func(t *testing.T) {
		cache.Set("key1", []byte("value1"), 0)

		val, ok := cache.Get("key1")
		assert.True(t, ok)
		assert.Equal(t, []byte("value1"), val)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		val, ok := cache.Get("nonexistent")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		cache.Set("key2", []byte("original"), 0)
		cache.Set("key2", []byte("updated"), 0)

		val, ok := cache.Get("key2")
		assert.True(t, ok)
		assert.Equal(t, []byte("updated"), val)
	})

	t.Run("ValuesAreCopied", func(t *testing.T) {
		buf := []byte("abc")
		cache.Set("key3", buf, 0)
		buf[0] = 'z'

		val, _ := cache.Get("key3")
		assert.Equal(t, []byte("abc"), val)

		val[0] = 'y'
		again, _ := cache.Get("key3")
		assert.Equal(t, []byte("abc"), again)
	})
}

func TestLRUCache_Expiration(t *testing.T) {
	cache, clock := newTestLRU(100, time.Minute)

	cache.Set("default", []byte("v"), 0)
	cache.Set("short", []byte("v"), 10*time.Second)

	clock.Advance(30 * time.Second)
	_, ok := cache.Get("short")
	assert.False(t, ok)
	_, ok = cache.Get("default")
	assert.True(t, ok)

	clock.Advance(31 * time.Second)
	_, ok = cache.Get("default")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Size())
}

func TestLRUCache_Eviction(t *testing.T) {
	cache, _ := newTestLRU(3, time.Minute)

	cache.Set("key1", []byte("1"), 0)
	cache.Set("key2", []byte("2"), 0)
	cache.Set("key3", []byte("3"), 0)
	assert.Equal(t, 3, cache.Size())

	// Access key1 to make it recently used
	cache.Get("key1")

	cache.Set("key4", []byte("4"), 0)
	assert.Equal(t, 3, cache.Size())

	_, ok := cache.Get("key2")
	assert.False(t, ok)

	_, ok = cache.Get("key1")
	assert.True(t, ok)
}

func TestLRUCache_Invalidate(t *testing.T) {
	cache, _ := newTestLRU(100, time.Minute)

	t.Run("ExactMatch", func(t *testing.T) {
		cache.Set("parse:event:1", []byte("1"), 0)
		cache.Set("parse:event:2", []byte("2"), 0)

		assert.Equal(t, 1, cache.Invalidate("parse:event:1"))
		assert.Equal(t, 0, cache.Invalidate("parse:event:missing"))

		_, ok := cache.Get("parse:event:1")
		assert.False(t, ok)
		_, ok = cache.Get("parse:event:2")
		assert.True(t, ok)
	})

	t.Run("WildcardPattern", func(t *testing.T) {
		cache.Clear()
		cache.Set("parse:meeting:a", []byte("1"), 0)
		cache.Set("parse:meeting:b", []byte("2"), 0)
		cache.Set("parse:event:a", []byte("3"), 0)

		assert.Equal(t, 2, cache.Invalidate("parse:meeting:*"))

		_, ok := cache.Get("parse:meeting:a")
		assert.False(t, ok)
		_, ok = cache.Get("parse:event:a")
		assert.True(t, ok)
	})
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	cache, clock := newTestLRU(100, time.Minute)
	cache.Set("a", []byte("1"), time.Second)
	cache.Set("b", []byte("2"), time.Hour)

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 1, cache.Size())
}

func TestLRUCache_Stats(t *testing.T) {
	cache, _ := newTestLRU(10, time.Minute)
	cache.Set("a", []byte("1"), 0)
	cache.Get("a")
	cache.Get("a")
	cache.Get("b")

	assert.Equal(t, Stats{Size: 1, Hits: 2, Misses: 1}, cache.Stats())
}

func TestLRUCache_ConcurrentAccess(t *testing.T) {
	cache := NewLRUCache(1000, time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			cache.Set(fmt.Sprintf("k%d", n%26), []byte{byte(n)}, 0)
		}(i)
		go func(n int) {
			defer wg.Done()
			cache.Get(fmt.Sprintf("k%d", n%26))
		}(i)
	}

	wg.Wait()
	assert.LessOrEqual(t, cache.Size(), 26)
}

func TestService_BasicOperations(t *testing.T) {
	svc := NewService(ServiceConfig{
		Capacity:        100,
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Hour,
	})
	defer svc.Close()

	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, svc.Set(ctx, "key1", []byte("value1"), 0))

		val, ok := svc.Get(ctx, "key1")
		assert.True(t, ok)
		assert.Equal(t, []byte("value1"), val)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, svc.Set(ctx, "parse:meeting:x", []byte("data"), 0))
		require.NoError(t, svc.Invalidate(ctx, "parse:meeting:*"))

		_, ok := svc.Get(ctx, "parse:meeting:x")
		assert.False(t, ok)
	})
}

func TestService_CloseStopsCleanup(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	assert.NoError(t, svc.Close())
}

func TestParseKey(t *testing.T) {
	a := ParseKey("meeting", "UTC", "6/15 from 9 to 17")
	b := ParseKey("meeting", "UTC", "6/15 from 9 to 17")
	c := ParseKey("meeting", "Asia/Tokyo", "6/15 from 9 to 17")
	d := ParseKey("event", "UTC", "6/15 from 9 to 17")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Regexp(t, `^parse:meeting:[0-9a-f]{16}$`, a)

	// Component boundaries matter.
	assert.NotEqual(t, ParseKey("event", "ab", "c"), ParseKey("event", "a", "bc"))
}
