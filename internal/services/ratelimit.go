package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hejz/hejz-backend/internal/logger"
)

// RateLimitService enforces a per-user sliding window over timeline reads.
// The window is a log of admitted request times; a request is admitted when
// fewer than the cap fall inside the trailing window at the moment it
// arrives.
type RateLimitService interface {
	// Allow records the request and reports whether it is admitted.
	Allow(userID uuid.UUID) bool
	// StartCleanup prunes idle per-user windows until ctx is cancelled.
	StartCleanup(ctx context.Context)
}

type userWindow struct {
	mu    sync.Mutex
	times []time.Time
	// gone marks a window removed from the map; a caller that raced the
	// cleanup must not record into it.
	gone bool
}

type rateLimitService struct {
	log      *logger.Logger
	windows  sync.Map // uuid.UUID -> *userWindow
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRateLimitService(log *logger.Logger, limit int, interval time.Duration) RateLimitService {
	serviceLog := log.With("service", "RateLimitService")
	return &rateLimitService{
		log:      serviceLog,
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *rateLimitService) Allow(userID uuid.UUID) bool {
	for {
		v, _ := rl.windows.LoadOrStore(userID, &userWindow{})
		w := v.(*userWindow)

		w.mu.Lock()
		if w.gone {
			w.mu.Unlock()
			continue
		}
		now := rl.now()
		w.times = prune(w.times, now.Add(-rl.interval))
		if len(w.times) >= rl.limit {
			w.mu.Unlock()
			return false
		}
		w.times = append(w.times, now)
		w.mu.Unlock()
		return true
	}
}

// prune drops entries at or before the cutoff, keeping the slice's backing
// array when nothing expired.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return times
	}
	return append(times[:0], times[i:]...)
}

func (rl *rateLimitService) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(rl.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.sweep()
			}
		}
	}()
}

func (rl *rateLimitService) sweep() {
	cutoff := rl.now().Add(-rl.interval)
	rl.windows.Range(func(key, value any) bool {
		w := value.(*userWindow)
		w.mu.Lock()
		w.times = prune(w.times, cutoff)
		if len(w.times) == 0 {
			w.gone = true
			rl.windows.Delete(key)
		}
		w.mu.Unlock()
		return true
	})
}
