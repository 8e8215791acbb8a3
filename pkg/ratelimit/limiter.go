package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LimiterStore keeps one token bucket per key, e.g. per client IP. It satisfies echo's
// middleware.RateLimiterStore.
type LimiterStore struct {
	limiters  map[string]*limiterEntry
	mu        sync.Mutex
	r         rate.Limit
	burst     int
	expiresIn time.Duration
	now       func() time.Time
}

func NewLimiterStore(r rate.Limit, burst int, expiresIn time.Duration) *LimiterStore {
	return &LimiterStore{
		limiters:  make(map[string]*limiterEntry),
		r:         r,
		burst:     burst,
		expiresIn: expiresIn,
		now:       time.Now,
	}
}

// NewPerMinute builds a single limiter spreading maxPerMinute requests evenly.
func NewPerMinute(maxPerMinute int) *rate.Limiter {
	if maxPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxPerMinute)), 1)
}

func (s *LimiterStore) GetLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, exists := s.limiters[key]; exists {
		entry.lastAccess = now
		return entry.limiter
	}
	limiter := rate.NewLimiter(s.r, s.burst)
	s.limiters[key] = &limiterEntry{limiter: limiter, lastAccess: now}
	s.cleanupLocked(now)
	return limiter
}

// Allow consumes one token for the identifier.
func (s *LimiterStore) Allow(identifier string) (bool, error) {
	return s.GetLimiter(identifier).Allow(), nil
}

// Len is the number of tracked keys.
func (s *LimiterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

func (s *LimiterStore) cleanupLocked(now time.Time) {
	if s.expiresIn <= 0 {
		return
	}
	for key, entry := range s.limiters {
		if now.Sub(entry.lastAccess) > s.expiresIn {
			delete(s.limiters, key)
		}
	}
}
