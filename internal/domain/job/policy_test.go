package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(t *testing.T) *RetryPolicy {
	t.Helper()
	p, err := NewRetryPolicy(PolicyOptions{
		MaxConsecutiveErrors: 3,
		BackoffCap:           10 * time.Second,
		TimeoutBuffer:        30 * time.Second,
		ProgressEvery:        2,
	})
	require.NoError(t, err)
	return p
}

func TestNewRetryPolicy_Validation(t *testing.T) {
	_, err := NewRetryPolicy(PolicyOptions{BackoffCap: time.Second})
	require.ErrorIs(t, err, ErrInvalidErrorThreshold)

	_, err = NewRetryPolicy(PolicyOptions{MaxConsecutiveErrors: 1})
	require.ErrorIs(t, err, ErrInvalidBackoffCap)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := newTestPolicy(t)
	interval := time.Second

	tests := []struct {
		errors int
		want   time.Duration
	}{
		{errors: 0, want: 0},
		{errors: 1, want: 0},
		{errors: 2, want: 2 * time.Second},
		{errors: 3, want: 4 * time.Second},
		{errors: 4, want: 8 * time.Second},
		{errors: 5, want: 10 * time.Second},
		{errors: 200, want: 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(interval, tt.errors), "errors=%d", tt.errors)
	}
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	p := newTestPolicy(t)
	assert.Equal(t, time.Second, p.NextDelay(time.Second, 0))
	assert.Equal(t, time.Second, p.NextDelay(time.Second, 1))
	assert.Equal(t, 2*time.Second, p.NextDelay(time.Second, 2))
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	p := newTestPolicy(t)
	assert.False(t, p.Exhausted(2))
	assert.True(t, p.Exhausted(3))
	assert.True(t, p.Exhausted(4))
	assert.Equal(t, 3, p.MaxConsecutiveErrors())
}

func TestRetryPolicy_Deadline(t *testing.T) {
	p := newTestPolicy(t)
	assert.Equal(t, 33*time.Second, p.Deadline(3, time.Second))
	assert.Equal(t, 30*time.Second, p.Deadline(-1, time.Second))
}

func TestRetryPolicy_ShouldEmitProgress(t *testing.T) {
	p := newTestPolicy(t)
	assert.False(t, p.ShouldEmitProgress(1, 5))
	assert.True(t, p.ShouldEmitProgress(2, 5))
	assert.False(t, p.ShouldEmitProgress(3, 5))
	assert.True(t, p.ShouldEmitProgress(5, 5), "final success always emits")
}
