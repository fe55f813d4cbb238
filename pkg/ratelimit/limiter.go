package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Allow takes a token without blocking and reports whether one was available
	Allow() bool
	// Wait blocks until a token is available or ctx is done
	Wait(ctx context.Context) error
	// Observe feeds back the server's remaining quota and the time until it resets
	Observe(remaining float64, reset time.Duration)
	// Reset refills the limiter and clears any server-imposed pause
	Reset()
}

// TokenBucket is a fixed-capacity bucket refilled in full once per period.
// A server report of an exhausted quota pauses the bucket until the reported reset.
type TokenBucket struct {
	mu           sync.Mutex
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	pausedUntil  time.Time
	now          func() time.Time
}

// NewTokenBucket creates a bucket allowing capacity requests per refillPeriod
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     max(capacity, 1),
		tokens:       max(capacity, 1),
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
		now:          time.Now,
	}
}

// PerMinute creates a bucket allowing rpm requests per minute
func PerMinute(rpm int) *TokenBucket {
	return NewTokenBucket(rpm, time.Minute)
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	_, ok := tb.take()
	return ok
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		delay, ok := tb.take()
		tb.mu.Unlock()
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Delay reports how long a caller would currently block in Wait
func (tb *TokenBucket) Delay() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	now := tb.now()
	if now.Before(tb.pausedUntil) {
		return tb.pausedUntil.Sub(now)
	}
	tb.refill(now)
	if tb.tokens > 0 {
		return 0
	}
	return tb.refillPeriod - now.Sub(tb.lastRefill)
}

func (tb *TokenBucket) Observe(remaining float64, reset time.Duration) {
	if remaining >= 1 || reset <= 0 {
		return
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	until := tb.now().Add(reset)
	if until.After(tb.pausedUntil) {
		tb.pausedUntil = until
	}
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
	tb.pausedUntil = time.Time{}
}

// take consumes a token or returns how long to wait for the next one.
// Callers hold tb.mu.
func (tb *TokenBucket) take() (time.Duration, bool) {
	now := tb.now()
	if now.Before(tb.pausedUntil) {
		return tb.pausedUntil.Sub(now), false
	}

	tb.refill(now)
	if tb.tokens > 0 {
		tb.tokens--
		return 0, true
	}

	wait := tb.refillPeriod - now.Sub(tb.lastRefill)
	if wait <= 0 {
		wait = 10 * time.Millisecond
	}
	return wait, false
}

func (tb *TokenBucket) refill(now time.Time) {
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
