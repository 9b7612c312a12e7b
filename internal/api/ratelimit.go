package api

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an unused per-user limiter is kept.
const idleLimiterTTL = 10 * time.Minute

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-user token bucket. Keys are user IDs, never
// user:session pairs, so rotating the session header does not reset it.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter allows perMinute requests per user with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*userLimiter),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether key may make a request now.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	ul, ok := r.limiters[key]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = ul
	}
	ul.lastSeen = now
	return ul.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// evict drops limiters idle since before cutoff.
func (r *RateLimiter) evict(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, ul := range r.limiters {
		if ul.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
			removed++
		}
	}
	return removed
}

// StartEviction periodically removes idle limiters until ctx is done,
// preventing unbounded memory growth.
func (r *RateLimiter) StartEviction(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(idleLimiterTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.evict(r.now().Add(-idleLimiterTTL))
			}
		}
	}()
}
