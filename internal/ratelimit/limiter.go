// Package ratelimit provides a process-local sliding-window request
// limiter keyed by identity. Single-instance, single-tenant deployment
// makes an in-memory approximation acceptable.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter caps requests per key within a sliding window. Timestamps
// are pruned lazily on each check.
type Limiter struct {
	mu     sync.Mutex
	cap    int
	window time.Duration
	hits   map[int64][]time.Time
	now    func() time.Time
}

// New creates a limiter allowing cap requests per window per key.
func New(cap int, window time.Duration) *Limiter {
	return &Limiter{
		cap:    cap,
		window: window,
		hits:   make(map[int64][]time.Time),
		now:    time.Now,
	}
}

// Allow records a request for key and reports whether it is within the
// cap, along with how many requests remain in the current window.
func (l *Limiter) Allow(key int64) (allowed bool, remaining int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	fresh := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= l.cap {
		l.hits[key] = fresh
		return false, 0
	}

	l.hits[key] = append(fresh, now)
	return true, l.cap - len(l.hits[key])
}
