package data

import (
	"sync"
	"time"

	"github.com/target/boostd/internal/core"
)

// SystemClock reads wall time.
type SystemClock struct{}

// Now implements core.Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock only moves when told to. Job timers still run on wall time, so it
// suits code paths that compare timestamps: rate windows, reaper cutoffs, durations.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a clock stopped at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements core.Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

var (
	_ core.Clock = SystemClock{}
	_ core.Clock = (*ManualClock)(nil)
)
