package model

// ActionOutcome is the three-way classification of a single action attempt.
type ActionOutcome string

const (
	// ActionSuccess means the action took effect.
	ActionSuccess ActionOutcome = "success"
	// ActionRetryable means the attempt failed transiently and may be retried.
	ActionRetryable ActionOutcome = "retryable"
	// ActionAuthFailure means the token was rejected; retrying cannot help.
	ActionAuthFailure ActionOutcome = "auth"
)

// ActionResult is returned by an action executor.
type ActionResult struct {
	Outcome ActionOutcome
	// Err describes the failure for non-success outcomes.
	Err error
}

// Succeeded builds a success result.
func Succeeded() ActionResult { return ActionResult{Outcome: ActionSuccess} }

// Retryable builds a transient failure result.
func Retryable(err error) ActionResult { return ActionResult{Outcome: ActionRetryable, Err: err} }

// AuthRejected builds an authorization failure result.
func AuthRejected(err error) ActionResult { return ActionResult{Outcome: ActionAuthFailure, Err: err} }
