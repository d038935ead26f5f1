package housekeeping

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)

	_, err = NewRunner(RunnerOptions{Tasks: []Task{{Name: "x", Every: time.Second}}})
	require.Error(t, err)

	_, err = NewRunner(RunnerOptions{Tasks: []Task{{
		Name:  "x",
		Every: 10 * time.Millisecond,
		Run:   func(context.Context) error { return nil },
	}}})
	require.Error(t, err)
}

func TestRunner_RunNowJoinsErrors(t *testing.T) {
	var ran atomic.Int32
	r, err := NewRunner(RunnerOptions{Tasks: []Task{
		{Name: "ok", Every: time.Minute, Run: func(context.Context) error { ran.Add(1); return nil }},
		{Name: "bad", Every: time.Minute, Run: func(context.Context) error { ran.Add(1); return errors.New("boom") }},
	}})
	require.NoError(t, err)

	err = r.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Equal(t, int32(2), ran.Load())
}

func TestRunner_RunSchedulesAndStops(t *testing.T) {
	var ran atomic.Int32
	r, err := NewRunner(RunnerOptions{Tasks: []Task{{
		Name:  "sweep",
		Every: time.Second,
		Run:   func(context.Context) error { ran.Add(1); return nil },
	}}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return ran.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
