// Package ratelimit paces the crawler's outbound traffic. The scraped
// catalog sites tolerate very little load, so every page navigation and
// every asset download goes through a token bucket that enforces a
// minimum spacing between requests.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket. Tokens refill one at a time on a fixed
// interval up to the bucket capacity; each request consumes one token.
type Limiter struct {
	tokens     int
	maxTokens  int
	refillRate time.Duration
	mu         sync.Mutex
	lastRefill time.Time
}

// NewLimiter creates a token bucket holding maxTokens, refilled at one
// token per refillRate.
func NewLimiter(maxTokens int, refillRate time.Duration) *Limiter {
	return &Limiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token if one is available and reports whether the
// request may proceed immediately.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()

	if l.tokens > 0 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or the context is canceled.
// The whole pipeline suspends here between navigations.
func (l *Limiter) Wait(ctx context.Context) error {
	for !l.Allow() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval()):
		}
	}
	return nil
}

// WaitWithTimeout waits for a token for at most the given duration.
// Returns true if a token was acquired.
func (l *Limiter) WaitWithTimeout(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if l.Allow() {
			return true
		}
		sleep := l.pollInterval()
		if remaining := time.Until(deadline); sleep > remaining {
			sleep = remaining
		}
		if sleep > 0 {
			time.Sleep(sleep)
		}
	}
	return false
}

// TokensAvailable returns the current token count after refill.
func (l *Limiter) TokensAvailable() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens
}

func (l *Limiter) pollInterval() time.Duration {
	return l.refillRate / time.Duration(l.maxTokens)
}

// refill adds tokens for the time elapsed since the last refill.
// Caller must hold the mutex.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill)

	tokensToAdd := int(elapsed / l.refillRate)
	if tokensToAdd > 0 {
		l.tokens = min(l.maxTokens, l.tokens+tokensToAdd)
		l.lastRefill = now
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// NewNavigationLimiter paces browser page loads against the catalog
// site: no bursting, one navigation every 1.5s.
func NewNavigationLimiter() *Limiter {
	return NewLimiter(1, 1500*time.Millisecond)
}
