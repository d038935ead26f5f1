package upstream

// Package upstream contains simple hand-written test doubles for the upstream ports.
// These are lightweight and suitable for unit tests that need scripted, concurrent
// behavior without codegen.

import (
	"context"
	"errors"
	"sync"

	"github.com/target/boostd/internal/core"
	"github.com/target/boostd/internal/domain/model"
)

// Ensure compile-time conformance to core ports.
var (
	_ core.TargetResolver = (*StaticResolver)(nil)
	_ core.Authorizer     = (*StaticAuthorizer)(nil)
	_ core.ActionExecutor = (*ScriptedExecutor)(nil)
)

// StaticResolver resolves every reference to Target, or fails with Err.
type StaticResolver struct {
	Target string
	Err    error
	// Block, when set, is waited on before resolving (or until ctx is done).
	Block chan struct{}
}

func (r *StaticResolver) Resolve(ctx context.Context, reference string) (string, error) {
	if r.Block != nil {
		select {
		case <-r.Block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if r.Err != nil {
		return "", r.Err
	}
	if r.Target == "" {
		return reference, nil
	}
	return r.Target, nil
}

// StaticAuthorizer returns Token for every request, or fails with Err.
type StaticAuthorizer struct {
	Token string
	Err   error

	mu       sync.Mutex
	received []model.Credentials
}

func (a *StaticAuthorizer) AcquireToken(_ context.Context, creds model.Credentials) (string, error) {
	a.mu.Lock()
	a.received = append(a.received, creds)
	a.mu.Unlock()
	if a.Err != nil {
		return "", a.Err
	}
	if a.Token == "" {
		return "test-token", nil
	}
	return a.Token, nil
}

// Received returns the credentials passed to AcquireToken so far.
func (a *StaticAuthorizer) Received() []model.Credentials {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.Credentials, len(a.received))
	copy(out, a.received)
	return out
}

// ErrScripted is the failure attached to scripted non-success outcomes.
var ErrScripted = errors.New("scripted failure")

// ScriptedExecutor replays Script in order, then repeats Default (success when unset).
// It is safe for concurrent use.
type ScriptedExecutor struct {
	Script  []model.ActionOutcome
	Default model.ActionOutcome
	// Gate, when set, is waited on before every attempt; the wait ignores ctx so an
	// in-flight attempt can be held across a cancellation.
	Gate chan struct{}
	// Started receives a value when an attempt begins, if non-nil.
	Started chan struct{}

	mu      sync.Mutex
	calls   int
	targets []string
}

func (e *ScriptedExecutor) Perform(_ context.Context, target, _ string) model.ActionResult {
	if e.Started != nil {
		select {
		case e.Started <- struct{}{}:
		default:
		}
	}
	if e.Gate != nil {
		<-e.Gate
	}

	e.mu.Lock()
	idx := e.calls
	e.calls++
	e.targets = append(e.targets, target)
	e.mu.Unlock()

	outcome := e.Default
	if idx < len(e.Script) {
		outcome = e.Script[idx]
	}
	switch outcome {
	case model.ActionRetryable:
		return model.Retryable(ErrScripted)
	case model.ActionAuthFailure:
		return model.AuthRejected(ErrScripted)
	default:
		return model.Succeeded()
	}
}

// Calls returns how many attempts have completed.
func (e *ScriptedExecutor) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Targets returns the targets passed to each attempt in order.
func (e *ScriptedExecutor) Targets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.targets))
	copy(out, e.targets)
	return out
}
