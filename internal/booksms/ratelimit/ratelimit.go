// Package ratelimit guards booksms against message floods from a single
// sender. Every inbound message counts against the quota — including ones
// later rejected by validation and the very message that trips the limit —
// so the quota measures attempts, not successfully processed messages.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultLimit is the maximum number of messages per sender per window.
	DefaultLimit = 20

	// DefaultWindow is the counting window duration.
	DefaultWindow = time.Minute
)

// Limiter is a window-reset rate limiter keyed by sender. Each sender has
// an independent counter that resets once its window elapses. Entries are
// created lazily on first message and garbage-collected by Sweep.
//
// Limiter is safe for concurrent use from multiple goroutines.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
	now     func() time.Time // injectable for window-expiry tests
}

type bucket struct {
	count   int
	resetAt time.Time
}

// New returns a Limiter allowing at most limit messages per sender within
// window. Non-positive arguments take the documented defaults.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Limited records one message attempt for sender and reports whether the
// sender has exceeded the quota. The count increments even on the call
// that trips the limit: attempt number limit+1 within a window is the
// first limited one.
func (l *Limiter) Limited(sender string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	b, ok := l.buckets[sender]
	if !ok || now.After(b.resetAt) {
		l.buckets[sender] = &bucket{count: 1, resetAt: now.Add(l.window)}
		return false
	}
	b.count++
	return b.count > l.limit
}

// Sweep drops buckets whose window has expired and returns how many were
// removed. The app calls this on a timer; correctness never depends on it
// because Limited resets expired buckets on its own.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for sender, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, sender)
			removed++
		}
	}
	return removed
}
