package data

import (
	"context"
	"sync"
	"time"

	"github.com/target/boostd/internal/core"
)

type rateWindow struct {
	count       int
	windowStart time.Time
}

// MemoryRateLimitStore keeps fixed-window counters in process.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
}

// NewMemoryRateLimitStore returns an empty store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{windows: make(map[string]*rateWindow)}
}

// Hit implements core.RateLimitStore. A rejected request does not advance the counter.
func (s *MemoryRateLimitStore) Hit(
	_ context.Context,
	identity string,
	now time.Time,
	limit int,
	window time.Duration,
) (core.RateLimitDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[identity]
	if !ok || now.Sub(w.windowStart) >= window {
		s.windows[identity] = &rateWindow{count: 1, windowStart: now}
		return core.RateLimitDecision{Allowed: true, Count: 1}, nil
	}

	if w.count >= limit {
		return core.RateLimitDecision{
			Allowed:    false,
			Count:      w.count,
			RetryAfter: w.windowStart.Add(window).Sub(now),
		}, nil
	}
	w.count++
	return core.RateLimitDecision{Allowed: true, Count: w.count}, nil
}

// Sweep implements core.RateLimitStore.
func (s *MemoryRateLimitStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, w := range s.windows {
		if w.windowStart.Before(cutoff) {
			delete(s.windows, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked identities.
func (s *MemoryRateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

var _ core.RateLimitStore = (*MemoryRateLimitStore)(nil)
