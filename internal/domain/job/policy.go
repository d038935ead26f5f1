package job

import (
	"errors"
	"time"
)

var (
	// ErrInvalidErrorThreshold indicates the consecutive error threshold is not positive.
	ErrInvalidErrorThreshold = errors.New("max consecutive errors must be positive")
	// ErrInvalidBackoffCap indicates the backoff cap is not positive.
	ErrInvalidBackoffCap = errors.New("backoff cap must be positive")
)

// PolicyOptions configure a RetryPolicy.
type PolicyOptions struct {
	MaxConsecutiveErrors int
	BackoffCap           time.Duration
	TimeoutBuffer        time.Duration
	// ProgressEvery emits a progress event every Nth success. Values below 1 mean every success.
	ProgressEvery int
}

// RetryPolicy decides error thresholds, backoff delays, watchdog deadlines and
// progress event throttling for a single job.
type RetryPolicy struct {
	maxConsecutiveErrors int
	backoffCap           time.Duration
	timeoutBuffer        time.Duration
	progressEvery        int
}

// NewRetryPolicy validates opts and returns a policy.
func NewRetryPolicy(opts PolicyOptions) (*RetryPolicy, error) {
	if opts.MaxConsecutiveErrors < 1 {
		return nil, ErrInvalidErrorThreshold
	}
	if opts.BackoffCap <= 0 {
		return nil, ErrInvalidBackoffCap
	}
	buffer := opts.TimeoutBuffer
	if buffer < 0 {
		buffer = 0
	}
	every := opts.ProgressEvery
	if every < 1 {
		every = 1
	}
	return &RetryPolicy{
		maxConsecutiveErrors: opts.MaxConsecutiveErrors,
		backoffCap:           opts.BackoffCap,
		timeoutBuffer:        buffer,
		progressEvery:        every,
	}, nil
}

// MaxConsecutiveErrors returns the failure threshold.
func (p *RetryPolicy) MaxConsecutiveErrors() int {
	return p.maxConsecutiveErrors
}

// Exhausted reports whether consecutiveErrors has reached the failure threshold.
func (p *RetryPolicy) Exhausted(consecutiveErrors int) bool {
	return consecutiveErrors >= p.maxConsecutiveErrors
}

// Backoff returns min(interval * 2^(consecutiveErrors-1), cap).
// It returns zero below two consecutive errors, where the normal cadence applies.
func (p *RetryPolicy) Backoff(interval time.Duration, consecutiveErrors int) time.Duration {
	if consecutiveErrors < 2 || interval <= 0 {
		return 0
	}
	d := interval
	for i := 1; i < consecutiveErrors; i++ {
		if d >= p.backoffCap {
			return p.backoffCap
		}
		d *= 2
	}
	if d > p.backoffCap {
		return p.backoffCap
	}
	return d
}

// NextDelay is the wait before the next attempt given the current error streak.
func (p *RetryPolicy) NextDelay(interval time.Duration, consecutiveErrors int) time.Duration {
	if b := p.Backoff(interval, consecutiveErrors); b > 0 {
		return b
	}
	return interval
}

// Deadline is target*interval plus the fixed buffer, measured from job start.
func (p *RetryPolicy) Deadline(target int, interval time.Duration) time.Duration {
	if target < 0 {
		target = 0
	}
	return time.Duration(target)*interval + p.timeoutBuffer
}

// ShouldEmitProgress reports whether the success that produced count should be broadcast.
func (p *RetryPolicy) ShouldEmitProgress(count, target int) bool {
	return count >= target || count%p.progressEvery == 0
}
