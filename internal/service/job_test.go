package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/boostd/config"
	"github.com/target/boostd/internal/data"
	domainjob "github.com/target/boostd/internal/domain/job"
	"github.com/target/boostd/internal/domain/model"
	apperrors "github.com/target/boostd/internal/errors"
	"github.com/target/boostd/internal/mocks/upstream"
	"github.com/target/boostd/internal/testutil"
)

const waitFor = 2 * time.Second

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		MinInterval:          time.Millisecond,
		MaxInterval:          time.Second,
		MaxTarget:            100,
		MaxConsecutiveErrors: 10,
		BackoffCap:           20 * time.Millisecond,
		TimeoutBuffer:        time.Minute,
		ActionTimeout:        time.Second,
		ProgressEvery:        1,
		HistoryCapacity:      10,
		SnapshotHistoryLimit: 5,
		SubscriberBuffer:     64,
	}
}

type serviceFixture struct {
	svc        *JobService
	resolver   *upstream.StaticResolver
	authorizer *upstream.StaticAuthorizer
	executor   *upstream.ScriptedExecutor
}

type fixtureOption func(*JobServiceOptions)

func newFixture(t *testing.T, exec *upstream.ScriptedExecutor, opts ...fixtureOption) *serviceFixture {
	t.Helper()
	if exec == nil {
		exec = &upstream.ScriptedExecutor{}
	}
	f := &serviceFixture{
		resolver:   &upstream.StaticResolver{Target: "resolved-1"},
		authorizer: &upstream.StaticAuthorizer{Token: "tok"},
		executor:   exec,
	}
	o := JobServiceOptions{
		Resolver:   f.resolver,
		Authorizer: f.authorizer,
		Executor:   f.executor,
		Config:     testSchedulerConfig(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	svc, err := NewJobService(o)
	require.NoError(t, err)
	f.svc = svc
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return f
}

func validRequest() model.SubmitJobRequest {
	return model.SubmitJobRequest{
		Target:      3,
		Interval:    5 * time.Millisecond,
		Reference:   "https://example.com/items/1",
		Credentials: model.Credentials{AccessToken: "user-token"},
		OwnerID:     "owner-1",
	}
}

// waitTerminal blocks until id lands in history and returns its view.
func waitTerminal(t *testing.T, svc *JobService, id string) model.JobView {
	t.Helper()
	var view model.JobView
	require.Eventually(t, func() bool {
		v, err := svc.Get(context.Background(), id)
		if err != nil || v.Active {
			return false
		}
		view = v
		return true
	}, waitFor, time.Millisecond)
	return view
}

// collectUntilCompleted reads events for id until its completion event arrives.
func collectUntilCompleted(t *testing.T, ch <-chan domainjob.Event, id string) []domainjob.Event {
	t.Helper()
	var got []domainjob.Event
	deadline := time.After(waitFor)
	for {
		select {
		case evt, ok := <-ch:
			require.True(t, ok, "event stream closed early")
			if evt.JobID != id {
				continue
			}
			got = append(got, evt)
			if evt.Type == domainjob.EventCompleted {
				return got
			}
		case <-deadline:
			t.Fatalf("timed out waiting for completion of %s; got %d events", id, len(got))
		}
	}
}

func eventTypes(events []domainjob.Event) []domainjob.EventType {
	out := make([]domainjob.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestNewJobService(t *testing.T) {
	t.Run("requires ports", func(t *testing.T) {
		_, err := NewJobService(JobServiceOptions{Config: testSchedulerConfig()})
		require.Error(t, err)
	})

	t.Run("rejects inverted interval bounds", func(t *testing.T) {
		cfg := testSchedulerConfig()
		cfg.MaxInterval = cfg.MinInterval / 2
		_, err := NewJobService(JobServiceOptions{
			Resolver:   &upstream.StaticResolver{},
			Authorizer: &upstream.StaticAuthorizer{},
			Executor:   &upstream.ScriptedExecutor{},
			Config:     cfg,
		})
		require.Error(t, err)
	})

	t.Run("rejects zero error threshold", func(t *testing.T) {
		cfg := testSchedulerConfig()
		cfg.MaxConsecutiveErrors = 0
		_, err := NewJobService(JobServiceOptions{
			Resolver:   &upstream.StaticResolver{},
			Authorizer: &upstream.StaticAuthorizer{},
			Executor:   &upstream.ScriptedExecutor{},
			Config:     cfg,
		})
		require.ErrorIs(t, err, domainjob.ErrInvalidErrorThreshold)
	})

	t.Run("MustNewJobService panics on invalid options", func(t *testing.T) {
		assert.Panics(t, func() { MustNewJobService(JobServiceOptions{}) })
	})
}

func TestSubmit_CompletesAtTarget(t *testing.T) {
	f := newFixture(t, nil)
	unsub, snap, ch := f.svc.Subscribe()
	defer unsub()
	assert.Equal(t, domainjob.EventSnapshot, snap.Type)

	res, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusInitializing, res.Job.Status)
	assert.Equal(t, 1, res.Session.Active)
	assert.Equal(t, 1, res.Session.Submitted)

	events := collectUntilCompleted(t, ch, res.Job.ID)
	assert.Equal(t, []domainjob.EventType{
		domainjob.EventSubmitted,
		domainjob.EventStarted,
		domainjob.EventProgress,
		domainjob.EventProgress,
		domainjob.EventProgress,
		domainjob.EventCompleted,
	}, eventTypes(events))

	final := events[len(events)-1].Data.(domainjob.CompletedPayload)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.Equal(t, 3, final.Count)

	view := waitTerminal(t, f.svc, res.Job.ID)
	assert.Equal(t, model.JobStatusCompleted, view.Status)
	assert.Equal(t, 3, view.Count)
	assert.Equal(t, "resolved-1", view.ResolvedTarget)
	assert.Equal(t, 3, view.TotalAttempts)
	assert.NotNil(t, view.EndTime)
	assert.Equal(t, 3, f.executor.Calls())
	assert.Equal(t, []string{"resolved-1", "resolved-1", "resolved-1"}, f.executor.Targets())

	sess, err := f.svc.Session(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 0, sess.Active)
	assert.Empty(t, f.svc.ListActive(context.Background()))
}

func TestSubmit_RetryableFailuresExhaustThreshold(t *testing.T) {
	exec := &upstream.ScriptedExecutor{Default: model.ActionRetryable}
	f := newFixture(t, exec, func(o *JobServiceOptions) {
		o.Config.MaxConsecutiveErrors = 2
	})

	res, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	view := waitTerminal(t, f.svc, res.Job.ID)
	assert.Equal(t, model.JobStatusFailed, view.Status)
	assert.Equal(t, 0, view.Count)
	assert.Equal(t, 2, view.ConsecutiveErrors)
	assert.Equal(t, 2, view.TotalFailures)
	assert.Contains(t, view.LastError, "scripted failure")
	assert.Equal(t, 2, exec.Calls())
}

func TestSubmit_SuccessResetsErrorStreak(t *testing.T) {
	exec := &upstream.ScriptedExecutor{Script: []model.ActionOutcome{
		model.ActionRetryable,
		model.ActionSuccess,
		model.ActionRetryable,
		model.ActionSuccess,
	}}
	f := newFixture(t, exec, func(o *JobServiceOptions) {
		o.Config.MaxConsecutiveErrors = 2
	})
	req := validRequest()
	req.Target = 2

	res, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)

	view := waitTerminal(t, f.svc, res.Job.ID)
	assert.Equal(t, model.JobStatusCompleted, view.Status)
	assert.Equal(t, 2, view.Count)
	assert.Equal(t, 0, view.ConsecutiveErrors)
	assert.Equal(t, 4, view.TotalAttempts)
	assert.Equal(t, 2, view.TotalFailures)
	require.NotNil(t, view.SuccessRate)
	assert.InDelta(t, 0.5, *view.SuccessRate, 0.001)
}

func TestSubmit_AuthFailureTerminatesImmediately(t *testing.T) {
	exec := &upstream.ScriptedExecutor{Script: []model.ActionOutcome{
		model.ActionSuccess,
		model.ActionSuccess,
		model.ActionAuthFailure,
	}}
	f := newFixture(t, exec)
	req := validRequest()
	req.Target = 5

	res, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)

	view := waitTerminal(t, f.svc, res.Job.ID)
	assert.Equal(t, model.JobStatusAuthError, view.Status)
	assert.Equal(t, 2, view.Count)
	assert.Equal(t, 3, view.TotalAttempts)
	assert.Contains(t, view.LastError, "auth")
	assert.Equal(t, 3, exec.Calls())
}

func TestSubmit_ResolutionFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.resolver.Err = errors.New("no such item")

	res, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	view := waitTerminal(t, f.svc, res.Job.ID)
	assert.Equal(t, model.JobStatusFailed, view.Status)
	assert.Equal(t, 0, view.Count)
	assert.Contains(t, view.LastError, "no such item")
	assert.Equal(t, 0, f.executor.Calls())
}

func TestSubmit_TokenFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.authorizer.Err = errors.New("bad client")

	res, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	view := waitTerminal(t, f.svc, res.Job.ID)
	assert.Equal(t, model.JobStatusFailed, view.Status)
	assert.Contains(t, view.LastError, "acquire token")
	assert.Equal(t, 0, f.executor.Calls())
}

func TestSubmit_PassesCredentialsToAuthorizer(t *testing.T) {
	f := newFixture(t, nil)
	req := validRequest()
	req.Credentials = model.Credentials{ClientID: "id", ClientSecret: "secret"}

	res, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)
	waitTerminal(t, f.svc, res.Job.ID)

	received := f.authorizer.Received()
	require.Len(t, received, 1)
	assert.Equal(t, "id", received[0].ClientID)
	assert.Equal(t, "secret", received[0].ClientSecret)
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name  string
		mut   func(*model.SubmitJobRequest)
		field string
	}{
		{"zero target", func(r *model.SubmitJobRequest) { r.Target = 0 }, "target"},
		{"target above max", func(r *model.SubmitJobRequest) { r.Target = 101 }, "target"},
		{"interval below min", func(r *model.SubmitJobRequest) { r.Interval = time.Microsecond }, "interval"},
		{"interval above max", func(r *model.SubmitJobRequest) { r.Interval = 2 * time.Second }, "interval"},
		{"empty reference", func(r *model.SubmitJobRequest) { r.Reference = "  " }, "reference"},
		{"no credentials", func(r *model.SubmitJobRequest) { r.Credentials = model.Credentials{} }, "credentials"},
		{"missing owner", func(r *model.SubmitJobRequest) { r.OwnerID = "" }, "owner_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mut(&req)
			_, err := f.svc.Submit(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}

	assert.Equal(t, 0, f.svc.Stats(context.Background()).Active)
	assert.Empty(t, f.svc.History(context.Background(), 0))
}

func TestSubmit_RateLimited(t *testing.T) {
	clock := data.NewManualClock(testutil.TestTime())
	limiter, err := NewRateLimiter(RateLimiterOptions{
		Config: config.RateLimitConfig{MaxRequests: 2, Window: time.Minute, StaleAfter: 10 * time.Minute},
		Clock:  clock,
	})
	require.NoError(t, err)

	gate := make(chan struct{})
	f := newFixture(t, &upstream.ScriptedExecutor{Gate: gate}, func(o *JobServiceOptions) {
		o.RateLimiter = limiter
	})
	t.Cleanup(func() { close(gate) })

	for range 2 {
		_, err := f.svc.Submit(context.Background(), validRequest())
		require.NoError(t, err)
	}

	_, err = f.svc.Submit(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))
	assert.Equal(t, time.Minute, apperrors.GetRetryAfter(err))
	assert.Equal(t, 2, f.svc.Stats(context.Background()).Active)

	// invalid requests still consume budget and are throttled first
	bad := validRequest()
	bad.Target = 0
	_, err = f.svc.Submit(context.Background(), bad)
	assert.True(t, apperrors.IsRateLimited(err))

	clock.Advance(time.Minute)
	_, err = f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
}

func TestSubmit_OwnerQuota(t *testing.T) {
	gate := make(chan struct{})
	f := newFixture(t, &upstream.ScriptedExecutor{Gate: gate}, func(o *JobServiceOptions) {
		o.Config.MaxActivePerOwner = 1
	})
	t.Cleanup(func() { close(gate) })

	_, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))

	other := validRequest()
	other.OwnerID = "owner-2"
	_, err = f.svc.Submit(context.Background(), other)
	require.NoError(t, err)
}

func TestCancel(t *testing.T) {
	t.Run("stops a live job and discards the in-flight attempt", func(t *testing.T) {
		gate := make(chan struct{})
		started := make(chan struct{}, 1)
		exec := &upstream.ScriptedExecutor{Gate: gate, Started: started}
		f := newFixture(t, exec)
		unsub, _, ch := f.svc.Subscribe()
		defer unsub()

		res, err := f.svc.Submit(context.Background(), validRequest())
		require.NoError(t, err)

		select {
		case <-started:
		case <-time.After(waitFor):
			t.Fatal("action never started")
		}

		out, err := f.svc.Cancel(context.Background(), res.Job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CancelStopped, out.Outcome)
		assert.Equal(t, model.JobStatusStopped, out.Job.Status)

		close(gate)
		require.Eventually(t, func() bool { return exec.Calls() == 1 }, waitFor, time.Millisecond)

		events := collectUntilCompleted(t, ch, res.Job.ID)
		payload := events[len(events)-1].Data.(domainjob.CompletedPayload)
		assert.Equal(t, model.JobStatusStopped, payload.Status)

		view, err := f.svc.Get(context.Background(), res.Job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusStopped, view.Status)
		assert.Equal(t, 0, view.Count)
		assert.False(t, view.Active)
	})

	t.Run("reports already terminal for historical jobs", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.Submit(context.Background(), validRequest())
		require.NoError(t, err)
		waitTerminal(t, f.svc, res.Job.ID)

		out, err := f.svc.Cancel(context.Background(), res.Job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CancelAlreadyTerminal, out.Outcome)
		assert.Equal(t, model.JobStatusCompleted, out.Job.Status)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Cancel(context.Background(), "job_missing")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("empty id is a validation error", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Cancel(context.Background(), " ")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestWatchdogTimesOutJob(t *testing.T) {
	gate := make(chan struct{})
	f := newFixture(t, &upstream.ScriptedExecutor{Gate: gate}, func(o *JobServiceOptions) {
		o.Config.TimeoutBuffer = 20 * time.Millisecond
	})
	t.Cleanup(func() { close(gate) })
	req := validRequest()
	req.Target = 2

	res, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)

	view := waitTerminal(t, f.svc, res.Job.ID)
	assert.Equal(t, model.JobStatusTimeout, view.Status)
	assert.Contains(t, view.LastError, "exceeded")
}

func TestTerminateIsIdempotent(t *testing.T) {
	gate := make(chan struct{})
	f := newFixture(t, &upstream.ScriptedExecutor{Gate: gate})
	t.Cleanup(func() { close(gate) })
	unsub, _, ch := f.svc.Subscribe()
	defer unsub()

	res, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	statuses := []model.JobStatus{
		model.JobStatusStopped,
		model.JobStatusTimeout,
		model.JobStatusTimeoutCleanup,
		model.JobStatusFailed,
	}
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, st := range statuses {
		wg.Add(1)
		go func(st model.JobStatus) {
			defer wg.Done()
			if _, ok := f.svc.terminate(terminateParams{ID: res.Job.ID, Status: st}); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(st)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	collectUntilCompleted(t, ch, res.Job.ID)
	select {
	case evt := <-ch:
		if evt.JobID == res.Job.ID {
			assert.NotEqual(t, domainjob.EventCompleted, evt.Type, "second completion event published")
		}
	case <-time.After(20 * time.Millisecond):
	}

	sess, err := f.svc.Session(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 0, sess.Active)
	assert.Len(t, f.svc.History(context.Background(), 0), 1)
}

func TestTerminateStuck(t *testing.T) {
	clock := data.NewManualClock(testutil.TestTime())
	f := newFixture(t, nil, func(o *JobServiceOptions) {
		o.Clock = clock
		o.Config.ActionTimeout = time.Minute
	})
	f.resolver.Block = make(chan struct{})

	res, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Empty(t, f.svc.TerminateStuck(context.Background(), clock.Now().Add(-10*time.Minute)))

	clock.Advance(11 * time.Minute)
	reaped := f.svc.TerminateStuck(context.Background(), clock.Now().Add(-10*time.Minute))
	require.Len(t, reaped, 1)
	assert.Equal(t, res.Job.ID, reaped[0].ID)
	assert.Equal(t, model.JobStatusTimeoutCleanup, reaped[0].Status)
	assert.Equal(t, 11*time.Minute, reaped[0].Duration(clock.Now()))

	view, err := f.svc.Get(context.Background(), res.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusTimeoutCleanup, view.Status)
	assert.Equal(t, 0, f.executor.Calls())
}

func TestSubscribe_SnapshotThenFutureEvents(t *testing.T) {
	f := newFixture(t, nil)

	first, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	waitTerminal(t, f.svc, first.Job.ID)

	unsub, snap, ch := f.svc.Subscribe()
	defer unsub()

	payload, ok := snap.Data.(domainjob.Snapshot)
	require.True(t, ok)
	assert.Empty(t, payload.Active)
	require.Len(t, payload.History, 1)
	assert.Equal(t, first.Job.ID, payload.History[0].ID)
	assert.Equal(t, 1, f.svc.Stats(context.Background()).Subscribers)

	second, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	events := collectUntilCompleted(t, ch, second.Job.ID)
	assert.Equal(t, domainjob.EventSubmitted, events[0].Type)
}

func TestHistoryIsBoundedAndNewestFirst(t *testing.T) {
	f := newFixture(t, nil, func(o *JobServiceOptions) { o.Config.HistoryCapacity = 2 })
	req := validRequest()
	req.Target = 1

	var ids []string
	for range 3 {
		res, err := f.svc.Submit(context.Background(), req)
		require.NoError(t, err)
		waitTerminal(t, f.svc, res.Job.ID)
		ids = append(ids, res.Job.ID)
	}

	hist := f.svc.History(context.Background(), 0)
	require.Len(t, hist, 2)
	assert.Equal(t, ids[2], hist[0].ID)
	assert.Equal(t, ids[1], hist[1].ID)

	_, err := f.svc.Get(context.Background(), ids[0])
	assert.True(t, apperrors.IsNotFound(err))
}

func TestShutdown(t *testing.T) {
	f := newFixture(t, nil)
	req := validRequest()
	req.Interval = time.Second

	res, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(ctx))

	view, err := f.svc.Get(context.Background(), res.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusStopped, view.Status)
	assert.Equal(t, 0, f.executor.Calls())

	_, err = f.svc.Submit(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrShuttingDown)
}
