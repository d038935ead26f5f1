package config

import (
	"strings"
	"time"
)

// RateLimitBackend selects where fixed-window counters live.
type RateLimitBackend string

const (
	// RateLimitBackendMemory keeps counters in process.
	RateLimitBackendMemory RateLimitBackend = "memory"
	// RateLimitBackendRedis shares counters through Redis.
	RateLimitBackendRedis RateLimitBackend = "redis"
)

// RateLimitConfig controls per-identity submission throttling.
type RateLimitConfig struct {
	Backend RateLimitBackend `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`

	// MaxRequests is the number of submissions accepted per identity per window.
	MaxRequests int `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"10"`

	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// StaleAfter is the age of a window start past which the identity is evicted.
	StaleAfter time.Duration `env:"RATE_LIMIT_STALE_AFTER" envDefault:"10m"`

	// SweepInterval is the housekeeping cadence for evicting stale identities.
	SweepInterval time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" envDefault:"1m"`

	// KeyPrefix namespaces counters in Redis.
	KeyPrefix string `env:"RATE_LIMIT_KEY_PREFIX" envDefault:"boostd:ratelimit:"`
}

// Sanitize applies guardrails to rate limit configuration values.
func (r *RateLimitConfig) Sanitize() {
	r.Backend = RateLimitBackend(strings.ToLower(strings.TrimSpace(string(r.Backend))))
	if r.Backend != RateLimitBackendRedis {
		r.Backend = RateLimitBackendMemory
	}
	if r.MaxRequests < 1 {
		r.MaxRequests = 1
	}
	if r.Window <= 0 {
		r.Window = time.Minute
	}
	if r.StaleAfter < r.Window {
		r.StaleAfter = r.Window
	}
	if r.SweepInterval < time.Second {
		r.SweepInterval = time.Second
	}
	if r.KeyPrefix == "" {
		r.KeyPrefix = "boostd:ratelimit:"
	}
}
