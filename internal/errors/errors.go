// Package errors defines the application error taxonomy surfaced at service boundaries.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeValidation indicates a malformed or out-of-range submission.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeRateLimited indicates the caller exceeded its submission budget.
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeResolution indicates target or token lookup failed.
	ErrCodeResolution ErrorCode = "resolution_failure"
	// ErrCodeRetryable indicates a transient action failure.
	ErrCodeRetryable ErrorCode = "retryable_failure"
	// ErrCodeAuth indicates credentials were rejected by the action endpoint.
	ErrCodeAuth ErrorCode = "auth_failure"
	// ErrCodeTimeout indicates a watchdog deadline elapsed.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeStuckCleanup indicates the reaper terminated a job.
	ErrCodeStuckCleanup ErrorCode = "stuck_cleanup"
	// ErrCodeNotFound indicates a job id is unknown.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	Code    ErrorCode
	Message string
	// Cause is the underlying error (optional).
	Cause error
	// Field names the offending input for validation errors (optional).
	Field string
	// RetryAfter tells rate limited callers when to try again (optional).
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// RateLimited creates a RateLimited error that tells the caller when to retry.
func RateLimited(message string, retryAfter time.Duration) *AppError {
	return &AppError{Code: ErrCodeRateLimited, Message: message, RetryAfter: retryAfter}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsRateLimited checks if an error is a RateLimited error.
func IsRateLimited(err error) bool { return isCode(err, ErrCodeRateLimited) }

// IsResolution checks if an error is a ResolutionFailure error.
func IsResolution(err error) bool { return isCode(err, ErrCodeResolution) }

// IsAuth checks if an error is an AuthFailure error.
func IsAuth(err error) bool { return isCode(err, ErrCodeAuth) }

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// GetRetryAfter returns the RetryAfter hint from an error, or zero.
func GetRetryAfter(err error) time.Duration {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.RetryAfter
	}
	return 0
}
