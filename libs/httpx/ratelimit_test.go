package httpx

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	if !rl.allow("10.0.0.1") || !rl.allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("10.0.0.1") {
		t.Error("third request in window should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("other clients keep their own window")
	}
}

func TestRateLimiterSweepDropsExpiredVisitors(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.allow("10.0.0.1")
	rl.allow("10.0.0.2")

	// Force both entries past their window, then trigger a sweep.
	past := time.Now().Add(-2 * time.Minute)
	rl.mu.Lock()
	for _, v := range rl.visitors {
		v.resetTime = past
	}
	rl.lastSweep = past
	rl.mu.Unlock()

	if !rl.allow("10.0.0.3") {
		t.Fatal("fresh client should pass")
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.visitors) != 1 {
		t.Errorf("visitors = %d, want just the fresh client after sweep", len(rl.visitors))
	}
}
