package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
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

func TestTokenBucket_Allow(t *testing.T) {
	clock := newFakeClock()
	// Create a bucket with capacity 5, refill rate 1 token/second
	tb := newTokenBucket(5, 1.0, clock.Now)

	// Should allow 5 requests immediately (burst capacity)
	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 6th request should be denied (bucket empty)
	if tb.Allow() {
		t.Error("6th request should be denied")
	}

	clock.Advance(2 * time.Second)

	// Should allow 2 more requests
	if !tb.Allow() {
		t.Error("Request after 2s should be allowed")
	}
	if !tb.Allow() {
		t.Error("2nd request after 2s should be allowed")
	}

	// Next request should be denied again
	if tb.Allow() {
		t.Error("3rd request after 2s should be denied")
	}
}

func TestTokenBucket_Reset(t *testing.T) {
	tb := newTokenBucket(3, 1.0, newFakeClock().Now)

	for i := 0; i < 3; i++ {
		tb.Allow()
	}
	if tb.Allow() {
		t.Error("Bucket should be empty")
	}

	tb.Reset()

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("Request %d should be allowed after reset", i+1)
		}
	}
	if got := tb.Tokens(); got != 0 {
		t.Errorf("Expected 0 tokens, got %f", got)
	}
}

func TestTokenBucket_CapacityCap(t *testing.T) {
	clock := newFakeClock()
	tb := newTokenBucket(2, 1.0, clock.Now)
	clock.Advance(time.Hour)

	tb.Allow()
	if got := tb.Tokens(); got != 1 {
		t.Errorf("Tokens should be capped at capacity before the take, got %f left", got)
	}
}

func TestRateLimiter_PerKey(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiterWithClock(2, 1.0/60.0, 0, newFakeClock().Now)
	defer rl.Close()

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow(ctx, "10.0.0.1"); !ok {
			t.Errorf("Request %d for first key should be allowed", i+1)
		}
	}
	if ok, _ := rl.Allow(ctx, "10.0.0.1"); ok {
		t.Error("Third request for first key should be denied")
	}

	// A different key has its own bucket
	if ok, _ := rl.Allow(ctx, "10.0.0.2"); !ok {
		t.Error("Second key should be allowed")
	}

	if err := rl.Reset(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if ok, _ := rl.Allow(ctx, "10.0.0.1"); !ok {
		t.Error("Key should be allowed after reset")
	}
	if err := rl.Reset(ctx, "never-seen"); err != nil {
		t.Errorf("Reset of an unknown key should be a no-op, got %v", err)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	rl := NewRateLimiterWithClock(1, 1.0, time.Minute, clock.Now)
	defer rl.Close()

	rl.Allow(ctx, "a")
	clock.Advance(30 * time.Second)
	rl.Allow(ctx, "b")
	clock.Advance(45 * time.Second)

	if removed := rl.Cleanup(); removed != 1 {
		t.Errorf("Expected 1 idle bucket removed, got %d", removed)
	}
	rl.mu.Lock()
	_, kept := rl.buckets["b"]
	left := len(rl.buckets)
	rl.mu.Unlock()
	if left != 1 || !kept {
		t.Errorf("Expected only bucket b left, got %d buckets", left)
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiterWithClock(50, 0, 0, newFakeClock().Now)
	defer rl.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := rl.Allow(ctx, "shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("Expected exactly 50 allowed, got %d", allowed)
	}
}
