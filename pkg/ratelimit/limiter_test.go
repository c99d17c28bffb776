package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
	}

	if tb.Allow() {
		t.Error("Expected request to be denied when bucket is empty")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)

	if !tb.Allow() {
		t.Error("Expected first request to be allowed")
	}
	if tb.Allow() {
		t.Error("Expected second request to be denied")
	}

	time.Sleep(30 * time.Millisecond)

	if !tb.Allow() {
		t.Error("Expected request to be allowed after refill")
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(1, time.Minute)

	tb.Allow()
	if tb.Allow() {
		t.Error("Expected request to be denied before reset")
	}

	tb.Reset()
	if !tb.Allow() {
		t.Error("Expected request to be allowed after reset")
	}
}

func TestTokenBucketConcurrency(t *testing.T) {
	tb := NewTokenBucket(50, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tb.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("Expected exactly 50 allowed requests, got %d", allowed)
	}
}

func TestSlidingWindowAllow(t *testing.T) {
	sw := NewSlidingWindow(2, time.Minute)

	if !sw.Allow() {
		t.Error("Expected first request to be allowed")
	}
	if !sw.Allow() {
		t.Error("Expected second request to be allowed")
	}
	if sw.Allow() {
		t.Error("Expected third request to be denied")
	}
}

func TestSlidingWindowExpiry(t *testing.T) {
	sw := NewSlidingWindow(1, 20*time.Millisecond)

	if !sw.Allow() {
		t.Error("Expected first request to be allowed")
	}
	if sw.Allow() {
		t.Error("Expected second request to be denied within the window")
	}

	time.Sleep(30 * time.Millisecond)

	if !sw.Allow() {
		t.Error("Expected request to be allowed after the window expired")
	}
}

func TestSlidingWindowReset(t *testing.T) {
	sw := NewSlidingWindow(1, time.Minute)

	sw.Allow()
	if sw.Allow() {
		t.Error("Expected request to be denied before reset")
	}

	sw.Reset()
	if !sw.Allow() {
		t.Error("Expected request to be allowed after reset")
	}
}
