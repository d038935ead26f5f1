package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/boostd/internal/domain/model"
	"github.com/target/boostd/internal/mocks"
)

type portMocks struct {
	resolver   *mocks.MockTargetResolver
	authorizer *mocks.MockAuthorizer
	executor   *mocks.MockActionExecutor
}

func newMockedService(t *testing.T) (*JobService, portMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := portMocks{
		resolver:   mocks.NewMockTargetResolver(ctrl),
		authorizer: mocks.NewMockAuthorizer(ctrl),
		executor:   mocks.NewMockActionExecutor(ctrl),
	}
	svc, err := NewJobService(JobServiceOptions{
		Resolver:   m.resolver,
		Authorizer: m.authorizer,
		Executor:   m.executor,
		Config:     testSchedulerConfig(),
	})
	require.NoError(t, err)
	// Registered after the controller, so jobs are stopped before expectations are checked.
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return svc, m
}

func TestRunner_CallsPortsWithResolvedTargetAndToken(t *testing.T) {
	svc, m := newMockedService(t)
	req := validRequest()

	m.resolver.EXPECT().Resolve(gomock.Any(), req.Reference).Return("item-1", nil)
	m.authorizer.EXPECT().AcquireToken(gomock.Any(), req.Credentials).Return("tok", nil)
	gomock.InOrder(
		m.executor.EXPECT().Perform(gomock.Any(), "item-1", "tok").Return(model.Succeeded()).Times(2),
		m.executor.EXPECT().Perform(gomock.Any(), "item-1", "tok").Return(model.AuthRejected(errors.New("expired"))),
	)

	res, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	view := waitTerminal(t, svc, res.Job.ID)
	assert.Equal(t, model.JobStatusAuthError, view.Status)
	assert.Equal(t, 2, view.Count)
	assert.Equal(t, "item-1", view.ResolvedTarget)
	assert.Equal(t, 3, view.TotalAttempts)
}

func TestRunner_NotFoundTargetSkipsTokenAndAction(t *testing.T) {
	svc, m := newMockedService(t)

	m.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return("", errors.New("target not found"))

	res, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	view := waitTerminal(t, svc, res.Job.ID)
	assert.Equal(t, model.JobStatusFailed, view.Status)
	assert.Zero(t, view.Count)
	assert.Zero(t, view.TotalAttempts)
}
