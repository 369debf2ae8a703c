package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hejz/hejz-backend/internal/logger"
)

func newTestLimiter(t *testing.T, limit int, interval time.Duration) (*rateLimitService, *time.Time) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimitService(log, limit, interval).(*rateLimitService)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func TestRateLimitAllowsUpToCap(t *testing.T) {
	rl, _ := newTestLimiter(t, 5, time.Minute)
	user := uuid.New()

	for i := 0; i < 5; i++ {
		if !rl.Allow(user) {
			t.Fatalf("request %d rejected before cap", i+1)
		}
	}
	if rl.Allow(user) {
		t.Fatal("sixth request admitted inside the window")
	}
}

func TestRateLimitWindowSlides(t *testing.T) {
	rl, clock := newTestLimiter(t, 5, time.Minute)
	user := uuid.New()

	for i := 0; i < 5; i++ {
		if !rl.Allow(user) {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow(user) {
		t.Fatal("over-cap request admitted")
	}

	*clock = clock.Add(61 * time.Second)
	if !rl.Allow(user) {
		t.Fatal("request rejected after window expired")
	}
}

func TestRateLimitIsolatesUsers(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, time.Minute)
	a, b := uuid.New(), uuid.New()

	if !rl.Allow(a) {
		t.Fatal("first user rejected")
	}
	if rl.Allow(a) {
		t.Fatal("first user admitted over cap")
	}
	if !rl.Allow(b) {
		t.Fatal("second user throttled by first user's window")
	}
}

func TestRateLimitConcurrentAllowHoldsQuota(t *testing.T) {
	rl, _ := newTestLimiter(t, 5, time.Minute)
	user := uuid.New()

	var wg sync.WaitGroup
	var admitted int64
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow(user) {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()
	if admitted != 5 {
		t.Fatalf("admitted %d concurrent requests, want exactly 5", admitted)
	}
}

func TestRateLimitSweepDropsIdleWindows(t *testing.T) {
	rl, clock := newTestLimiter(t, 5, time.Minute)
	user := uuid.New()

	if !rl.Allow(user) {
		t.Fatal("request rejected")
	}
	*clock = clock.Add(2 * time.Minute)
	rl.sweep()

	if _, ok := rl.windows.Load(user); ok {
		t.Fatal("idle window survived sweep")
	}
	// A fresh request after the sweep must build a new window cleanly.
	if !rl.Allow(user) {
		t.Fatal("request rejected after sweep")
	}
}

func TestPrune(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Second), base.Add(2 * time.Second)}

	kept := prune(times, base.Add(time.Second))
	if len(kept) != 1 || !kept[0].Equal(base.Add(2*time.Second)) {
		t.Fatalf("prune kept %v", kept)
	}
	// Nothing expired: slice comes back untouched.
	kept = prune(times[2:], base)
	if len(kept) != 1 {
		t.Fatalf("prune dropped live entries: %v", kept)
	}
}
