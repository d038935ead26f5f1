package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/target/boostd/internal/core"
	apperrors "github.com/target/boostd/internal/errors"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"app code", fmt.Errorf("wrap: %w", apperrors.RateLimited("x", 0)), "rate_limited"},
		{"missing target beats code", apperrors.Wrap(core.ErrTargetNotFound, apperrors.ErrCodeResolution, "resolve"), ClassTargetNotFound},
		{"bad credentials", fmt.Errorf("token: %w", core.ErrInvalidCredentials), ClassInvalidCredentials},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"net timeout", &net.OpError{Op: "dial", Err: timeoutErr{}}, "timeout"},
		{"net refused", &net.OpError{Op: "dial", Err: goerrors.New("connection refused")}, ClassNetwork},
		{"plain", goerrors.New("plain"), ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
