// Package mocks provides mock implementations for testing the boost job scheduler.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the upstream ports.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	exec := mocks.NewMockActionExecutor(ctrl)
//	exec.EXPECT().Perform(gomock.Any(), "target-1", "token").Return(model.Succeeded())
package mocks

// Generate mock for TargetResolver interface from internal/core package.
// This creates MockTargetResolver with methods for all TargetResolver interface methods:
// Resolve
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=target_resolver_mock.go github.com/target/boostd/internal/core TargetResolver

// Generate mock for Authorizer interface from internal/core package.
// This creates MockAuthorizer with methods for all Authorizer interface methods:
// AcquireToken
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=authorizer_mock.go github.com/target/boostd/internal/core Authorizer

// Generate mock for ActionExecutor interface from internal/core package.
// This creates MockActionExecutor with methods for all ActionExecutor interface methods:
// Perform
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=action_executor_mock.go github.com/target/boostd/internal/core ActionExecutor

// Generate mock for RateLimitStore interface from internal/core package.
// This creates MockRateLimitStore with methods for all RateLimitStore interface methods:
// Hit, Sweep
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=rate_limit_store_mock.go github.com/target/boostd/internal/core RateLimitStore
