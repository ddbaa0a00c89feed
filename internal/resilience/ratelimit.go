package resilience

import (
	"sync"
	"time"
)

// RateLimiter enforces "at most N operations per key within window W" for
// sensitive actions (incident submission, emergency activation). State is
// in-memory only and lives for the process lifetime.
//
// Unlike the retry wrapper, exceeding a limit is not an error: Allow returns
// false plus the remaining cooldown so the caller can tell the user how long
// to wait.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter returns an empty limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether another operation for key fits inside the sliding
// window, recording it if so. When denied, the second return value is how
// long until the oldest in-window operation expires.
func (l *RateLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	kept := l.entries[key][:0]
	for _, ts := range l.entries[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		l.entries[key] = kept
		retryAfter := kept[0].Add(window).Sub(now)
		return false, retryAfter
	}

	l.entries[key] = append(kept, now)
	return true, 0
}

// Reset clears the window for one key. Used when an operation is rolled back
// before it had any effect.
func (l *RateLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}
