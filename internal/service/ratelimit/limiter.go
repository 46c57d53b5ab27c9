// Package ratelimit implements the per-client token buckets guarding
// the expensive HTTP operations (quick backtests, retrains).
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter keys token buckets by caller identity plus operation, e.g.
// "10.0.0.5:retrain". Capacity and refill rate come from the call
// site so each endpoint sets its own budget.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func New() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket)}
}

// Allow consumes one token from key's bucket, refilling at
// refillPerSec up to capacity. It reports whether the call may
// proceed.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		// A new bucket starts full, so the first burst up to
		// capacity always passes.
		l.buckets[key] = &bucket{tokens: capacity - 1, last: now}
		return true
	}

	b.tokens += now.Sub(b.last).Seconds() * refillPerSec
	if b.tokens > capacity {
		b.tokens = capacity
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
