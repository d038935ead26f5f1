// Package errors derives low-cardinality error classes for metric tags and log fields.
package errors

import (
	"context"
	goerrors "errors"
	"net"

	"github.com/target/boostd/internal/core"
	apperrors "github.com/target/boostd/internal/errors"
)

const (
	ClassTargetNotFound     = "target_not_found"
	ClassInvalidCredentials = "invalid_credentials"
	ClassNetwork            = "network"
	ClassOther              = "other"
)

var sentinels = []struct {
	err   error
	class string
}{
	{core.ErrTargetNotFound, ClassTargetNotFound},
	{core.ErrInvalidCredentials, ClassInvalidCredentials},
	{context.DeadlineExceeded, string(apperrors.ErrCodeTimeout)},
	{context.Canceled, string(apperrors.ErrCodeCanceled)},
}

// Classify returns a normalized error class suitable for tagging metrics and logs.
// Port sentinels are checked before the application error code, so a resolution
// failure caused by a missing target reports target_not_found.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, s := range sentinels {
		if goerrors.Is(err, s.err) {
			return s.class
		}
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) {
		if netErr.Timeout() {
			return string(apperrors.ErrCodeTimeout)
		}
		return ClassNetwork
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	return ClassOther
}
