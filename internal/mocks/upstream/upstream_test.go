package upstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/boostd/internal/domain/model"
)

func TestScriptedExecutor_ReplaysScriptThenDefault(t *testing.T) {
	exec := &ScriptedExecutor{
		Script:  []model.ActionOutcome{model.ActionRetryable, model.ActionAuthFailure},
		Default: model.ActionSuccess,
	}
	ctx := context.Background()

	assert.Equal(t, model.ActionRetryable, exec.Perform(ctx, "a", "tok").Outcome)
	assert.Equal(t, model.ActionAuthFailure, exec.Perform(ctx, "b", "tok").Outcome)
	assert.Equal(t, model.ActionSuccess, exec.Perform(ctx, "c", "tok").Outcome)
	assert.Equal(t, model.ActionSuccess, exec.Perform(ctx, "d", "tok").Outcome)

	assert.Equal(t, 4, exec.Calls())
	assert.Equal(t, []string{"a", "b", "c", "d"}, exec.Targets())
}

func TestStaticResolver_Defaults(t *testing.T) {
	r := &StaticResolver{}
	got, err := r.Resolve(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "ref-1", got)

	r = &StaticResolver{Target: "resolved"}
	got, err = r.Resolve(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "resolved", got)
}

func TestStaticResolver_BlockHonoursContext(t *testing.T) {
	r := &StaticResolver{Block: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, "ref")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticAuthorizer_RecordsCredentials(t *testing.T) {
	a := &StaticAuthorizer{Token: "tok"}
	got, err := a.AcquireToken(context.Background(), model.Credentials{AccessToken: "x"})
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
	require.Len(t, a.Received(), 1)
	assert.Equal(t, "x", a.Received()[0].AccessToken)
}
