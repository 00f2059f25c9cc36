// Package ratelimiter bounds the rate of expensive operations. The query
// endpoint drives two model generations plus a vector search per request, so
// an unthrottled client can saturate the model server for everyone.
package ratelimiter

import (
	"sync"
	"time"
)

// RateLimiter reports whether one more request may proceed now.
type RateLimiter interface {
	Allow() bool
}

// TokenBucket is a RateLimiter that refills at a steady rate and allows
// bursts up to the bucket capacity.
type TokenBucket struct {
	ratePerSec float64
	capacity   float64

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket that refills ratePerSec tokens per
// second up to capacity.
func NewTokenBucket(ratePerSec float64, capacity int) *TokenBucket {
	return &TokenBucket{
		ratePerSec: ratePerSec,
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

// Allow consumes one token if available.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		b.tokens += elapsed.Seconds() * b.ratePerSec
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.lastRefill = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// compile-time check to ensure TokenBucket implements the RateLimiter interface
var _ RateLimiter = (*TokenBucket)(nil)
