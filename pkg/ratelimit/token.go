package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenLimiter budgets LLM tokens per minute. The whole budget refills at once when the
// period has elapsed.
type TokenLimiter struct {
	sync.Mutex
	capacity     int
	remaining    int
	refillPeriod time.Duration
	lastRefill   time.Time
	pollInterval time.Duration
}

func NewTokenLimiter(tokensPerMinute int) *TokenLimiter {
	return &TokenLimiter{
		capacity:     tokensPerMinute,
		remaining:    tokensPerMinute,
		refillPeriod: time.Minute,
		lastRefill:   time.Now(),
		pollInterval: 100 * time.Millisecond,
	}
}

// Wait blocks until tokens are available or ctx is done. A request larger than the whole
// budget can never be served and fails immediately.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	if l.capacity > 0 && tokens > l.capacity {
		return fmt.Errorf("request of %d tokens exceeds budget of %d per minute", tokens, l.capacity)
	}
	for {
		l.refill()

		l.Lock()
		if l.capacity <= 0 || l.remaining >= tokens {
			l.remaining -= tokens
			l.Unlock()
			return nil
		}
		l.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *TokenLimiter) refill() {
	l.Lock()
	defer l.Unlock()

	now := time.Now()
	if now.Sub(l.lastRefill) >= l.refillPeriod {
		l.remaining = l.capacity
		l.lastRefill = now
	}
}

func (l *TokenLimiter) GetRemaining() int {
	l.Lock()
	defer l.Unlock()
	return l.remaining
}
