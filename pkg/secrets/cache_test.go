package secrets

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type creds struct {
	Username string
	Password string
}

// newTestCache returns a cache whose clock is controlled by the returned pointer.
func newTestCache(ttl time.Duration) (*Cache[creds], *time.Time) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache[creds](ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_PutAndGet(t *testing.T) {
	cache, _ := newTestCache(time.Minute)
	key := "p000000045r|etims"

	_, ok := cache.Get(key)
	assert.False(t, ok, "expected miss on empty cache")

	cache.Put(key, creds{Username: "user", Password: "pass"})

	got, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "user", got.Username)
	assert.False(t, cache.Absent(key))
	assert.Equal(t, time.Minute, cache.TTL())
}

func TestCache_Expiration(t *testing.T) {
	cache, now := newTestCache(time.Minute)
	cache.Put("k", creds{Username: "u"})

	*now = now.Add(59 * time.Second)
	_, ok := cache.Get("k")
	assert.True(t, ok)

	*now = now.Add(time.Second)
	_, ok = cache.Get("k")
	assert.False(t, ok, "entry must expire exactly at ttl")
	assert.Equal(t, 0, cache.Len())
}

func TestCache_Absence(t *testing.T) {
	cache, now := newTestCache(time.Minute)
	assert.False(t, cache.Absent("missing"))

	cache.PutAbsent("missing")
	assert.True(t, cache.Absent("missing"))
	_, ok := cache.Get("missing")
	assert.False(t, ok, "an absence is not a value")

	*now = now.Add(time.Minute)
	assert.False(t, cache.Absent("missing"), "absences expire with the ttl")
	assert.Equal(t, 0, cache.Len())
}

func TestCache_PutReplacesAbsence(t *testing.T) {
	cache, _ := newTestCache(time.Minute)
	cache.PutAbsent("k")
	cache.Put("k", creds{Username: "u"})

	assert.False(t, cache.Absent("k"))
	got, ok := cache.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "u", got.Username)
}

func TestCache_Bust(t *testing.T) {
	cache, _ := newTestCache(time.Minute)
	cache.Put("k", creds{Username: "u"})
	cache.PutAbsent("gone")
	cache.Bust("k")
	cache.Bust("gone")

	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.False(t, cache.Absent("gone"))
}

func TestCache_Sweep(t *testing.T) {
	cache, now := newTestCache(time.Minute)
	cache.Put("old", creds{})
	cache.PutAbsent("old-miss")
	*now = now.Add(2 * time.Minute)
	cache.Put("fresh", creds{})

	assert.Equal(t, 2, cache.Sweep())
	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get("fresh")
	assert.True(t, ok)
}

func TestCache_StartCleanerStops(t *testing.T) {
	cache := NewCache[creds](time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cache.StartCleaner(ctx, 5*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache[creds](time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("tin-%d", i%5)
			if i%2 == 0 {
				cache.PutAbsent(key)
			}
			cache.Put(key, creds{Username: key})
			_, _ = cache.Get(key)
			_ = cache.Absent(key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, cache.Len())
}
