package rate

import (
	"context"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiter_AllowUpToBurst(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	lim := newLimiter(Config{RequestsPerSecond: 10, Burst: 5}, clock.Now)

	allowed := 0
	for i := 0; i < 10; i++ {
		if lim.Allow() {
			allowed++
		}
	}
	if allowed != 5 {
		t.Errorf("expected 5 allowed from burst, got %d", allowed)
	}
}

func TestLimiter_Refill(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	lim := newLimiter(Config{RequestsPerSecond: 2, Burst: 1}, clock.Now)

	if !lim.Allow() {
		t.Fatal("first request should pass")
	}
	if lim.Allow() {
		t.Fatal("bucket should be empty")
	}
	if got := lim.RetryAfter(); got != 500*time.Millisecond {
		t.Errorf("RetryAfter = %v, want 500ms", got)
	}

	clock.Advance(500 * time.Millisecond)
	if !lim.Allow() {
		t.Error("expected token after refill period")
	}
}

func TestLimiter_BurstCap(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	lim := newLimiter(Config{RequestsPerSecond: 1000, Burst: 3}, clock.Now)

	clock.Advance(time.Hour)
	allowed := 0
	for i := 0; i < 10; i++ {
		if lim.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("burst cap: got %d allowed, want 3", allowed)
	}
}

func TestLimiter_Wait(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 100, Burst: 1})
	lim.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := lim.Wait(ctx); err != nil {
		t.Fatalf("expected Wait to succeed, got: %v", err)
	}
}

func TestLimiter_WaitContextCanceled(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 0.01, Burst: 1})
	lim.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := lim.Wait(ctx); err == nil {
		t.Fatal("expected context error, got nil")
	}
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 1, Burst: 20})

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lim.Allow() {
				mu.Lock()
				total++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if total < 20 || total > 21 {
		t.Errorf("allowed %d, want the burst of 20", total)
	}
}

func TestConfig_Enabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("zero config must be disabled")
	}
	if !(Config{RequestsPerSecond: 5, Burst: 10}).Enabled() {
		t.Error("expected enabled")
	}
}

func TestManager_PerKeyBuckets(t *testing.T) {
	mgr := NewManager(Config{RequestsPerSecond: 1, Burst: 1})

	if !mgr.Allow("10.0.0.1") {
		t.Fatal("first request from a key should pass")
	}
	if mgr.Allow("10.0.0.1") {
		t.Fatal("second request from the same key should be limited")
	}
	if !mgr.Allow("10.0.0.2") {
		t.Fatal("other keys have their own bucket")
	}
	if mgr.GetLimiter("10.0.0.1") != mgr.GetLimiter("10.0.0.1") {
		t.Error("same key should return the same limiter instance")
	}
}

func TestManager_ConcurrentGetLimiter(t *testing.T) {
	mgr := NewManager(Config{RequestsPerSecond: 10, Burst: 5})

	var wg sync.WaitGroup
	limiters := make([]*Limiter, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			limiters[idx] = mgr.GetLimiter("shared-key")
		}(i)
	}
	wg.Wait()

	for i := 1; i < 20; i++ {
		if limiters[i] != limiters[0] {
			t.Fatalf("goroutine %d got a different limiter", i)
		}
	}
}

func TestManager_Sweep(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	mgr := NewManager(Config{RequestsPerSecond: 1, Burst: 1})
	mgr.now = clock.Now

	mgr.Allow("old")
	clock.Advance(10 * time.Minute)
	mgr.Allow("fresh")

	if removed := mgr.Sweep(5 * time.Minute); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if mgr.Len() != 1 {
		t.Fatalf("Len = %d, want 1", mgr.Len())
	}
}

func TestManager_Wait(t *testing.T) {
	mgr := NewManager(Config{RequestsPerSecond: 100, Burst: 5})
	if err := mgr.Wait(context.Background(), "client-x"); err != nil {
		t.Fatalf("expected Wait to succeed, got: %v", err)
	}
}
