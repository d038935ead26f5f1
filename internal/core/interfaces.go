// Package core declares the ports between the boost job scheduler and its collaborators.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/target/boostd/internal/domain/model"
)

// This file contains port definitions (hexagonal architecture).
// Services depend on these interfaces; adapters implement them.

var (
	// ErrTargetNotFound is returned by a TargetResolver when the reference names nothing.
	ErrTargetNotFound = errors.New("target not found")
	// ErrInvalidCredentials is returned by an Authorizer when credentials are rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TargetResolver turns a user-supplied reference into the identifier the action operates on.
type TargetResolver interface {
	Resolve(ctx context.Context, reference string) (string, error)
}

// Authorizer exchanges credentials for an action token.
type Authorizer interface {
	AcquireToken(ctx context.Context, creds model.Credentials) (string, error)
}

// ActionExecutor performs one side-effecting action. Transport errors must be reported
// as retryable and authorization rejections as auth failures.
type ActionExecutor interface {
	Perform(ctx context.Context, target, token string) model.ActionResult
}

// RateLimitDecision is the outcome of a single rate limit check.
type RateLimitDecision struct {
	Allowed bool
	// Count is the number of requests seen in the current window including this one.
	Count int
	// RetryAfter is how long until the window resets. Only meaningful when rejected.
	RetryAfter time.Duration
}

// RateLimitStore holds fixed-window counters keyed by identity.
type RateLimitStore interface {
	// Hit records a request for identity at now and reports whether it fits under limit.
	Hit(ctx context.Context, identity string, now time.Time, limit int, window time.Duration) (RateLimitDecision, error)
	// Sweep evicts identities whose window started before cutoff and returns how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}
