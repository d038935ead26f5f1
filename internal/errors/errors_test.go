package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "job not found"},
			want: "job not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeResolution,
				Message: "resolve target",
				Cause:   errors.New("upstream 404"),
			},
			want: "resolve target: upstream 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Fatalf("wrapping nil must return nil")
	}

	cause := errors.New("boom")
	err := Wrapf(cause, ErrCodeAuth, "perform %s", "action")
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}
	if !IsAuth(err) {
		t.Fatalf("expected auth code")
	}
	if err.Message != "perform action" {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestCodeHelpersThroughWrapping(t *testing.T) {
	base := RateLimited("slow down", 30*time.Second)
	wrapped := fmt.Errorf("submit: %w", base)

	if !IsRateLimited(wrapped) {
		t.Fatalf("expected rate limited")
	}
	if GetCode(wrapped) != ErrCodeRateLimited {
		t.Fatalf("unexpected code %q", GetCode(wrapped))
	}
	if GetRetryAfter(wrapped) != 30*time.Second {
		t.Fatalf("unexpected retry after %v", GetRetryAfter(wrapped))
	}
	if IsValidation(wrapped) || IsNotFound(wrapped) {
		t.Fatalf("unexpected code match")
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("target", "target must be positive")
	if !IsValidation(err) || GetField(err) != "target" {
		t.Fatalf("unexpected validation error %+v", err)
	}
	if GetField(errors.New("plain")) != "" || GetCode(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no code or field")
	}
	if !IsNotFound(NotFoundf("job %s", "x")) || !IsInternal(Internal("x")) {
		t.Fatalf("constructor codes mismatch")
	}
	if !IsResolution(Wrap(errors.New("x"), ErrCodeResolution, "y")) {
		t.Fatalf("expected resolution code")
	}
	if GetRetryAfter(Validation("x")) != 0 {
		t.Fatalf("validation errors carry no retry hint")
	}
}
