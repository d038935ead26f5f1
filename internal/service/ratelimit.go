package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/target/boostd/config"
	"github.com/target/boostd/internal/core"
	"github.com/target/boostd/internal/data"
	apperrors "github.com/target/boostd/internal/errors"
)

// RateLimiterOptions groups dependencies for RateLimiter.
type RateLimiterOptions struct {
	Store  core.RateLimitStore    // Optional: defaults to an in-memory store
	Config config.RateLimitConfig // Required: ceiling, window and staleness bound
	Clock  core.Clock             // Optional: defaults to wall time
	Logger *slog.Logger           // Optional: structured logger
}

// RateLimiter caps accepted submissions per identity within a fixed window.
type RateLimiter struct {
	store  core.RateLimitStore
	config config.RateLimitConfig
	clock  core.Clock
	logger *slog.Logger
}

// NewRateLimiter constructs a RateLimiter.
func NewRateLimiter(opts RateLimiterOptions) (*RateLimiter, error) {
	if opts.Config.MaxRequests < 1 {
		return nil, errors.New("rate limit ceiling must be positive")
	}
	if opts.Config.Window <= 0 {
		return nil, errors.New("rate limit window must be positive")
	}

	store := opts.Store
	if store == nil {
		store = data.NewMemoryRateLimitStore()
	}
	clock := opts.Clock
	if clock == nil {
		clock = data.SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RateLimiter{
		store:  store,
		config: opts.Config,
		clock:  clock,
		logger: logger.With("component", "rate_limiter"),
	}, nil
}

// MustNewRateLimiter constructs a RateLimiter and panics on error.
func MustNewRateLimiter(opts RateLimiterOptions) *RateLimiter {
	rl, err := NewRateLimiter(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create RateLimiter: %v", err))
	}
	return rl
}

// Allow records a submission attempt for identity. It returns a RateLimited AppError
// when the ceiling is exceeded. A failing store lets the request through.
func (r *RateLimiter) Allow(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		identity = "anonymous"
	}

	decision, err := r.store.Hit(ctx, identity, r.clock.Now(), r.config.MaxRequests, r.config.Window)
	if err != nil {
		r.logger.WarnContext(ctx, "rate limit store unavailable, allowing request", "error", err)
		return nil
	}
	if decision.Allowed {
		return nil
	}

	r.logger.DebugContext(ctx, "submission rate limited",
		"identity", identity,
		"count", decision.Count,
		"retry_after", decision.RetryAfter,
	)
	return apperrors.RateLimited(
		fmt.Sprintf("too many submissions, limit is %d per %s", r.config.MaxRequests, r.config.Window),
		decision.RetryAfter,
	)
}

// Sweep evicts identities whose window started longer ago than the staleness bound.
func (r *RateLimiter) Sweep(ctx context.Context) (int, error) {
	cutoff := r.clock.Now().Add(-r.config.StaleAfter)
	removed, err := r.store.Sweep(ctx, cutoff)
	if err != nil {
		return removed, fmt.Errorf("sweep rate limit windows: %w", err)
	}
	if removed > 0 {
		r.logger.DebugContext(ctx, "evicted stale rate limit windows", "count", removed)
	}
	return removed, nil
}
