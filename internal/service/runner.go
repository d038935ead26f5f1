package service

import (
	"context"
	"fmt"
	"time"

	domainjob "github.com/target/boostd/internal/domain/job"
	"github.com/target/boostd/internal/domain/model"
	apperrors "github.com/target/boostd/internal/errors"
)

// runner drives one job from initializing to a terminal status. Exactly one goroutine
// runs per job, so ticks of the same job never overlap.
type runner struct {
	svc         *JobService
	jobID       string
	target      int
	interval    time.Duration
	reference   string
	credentials model.Credentials
	ctx         context.Context

	resolved string
	token    string
}

// tickResult tells the loop what to do after an attempt.
type tickResult struct {
	done  bool
	delay time.Duration
}

func (r *runner) run() {
	defer r.svc.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			r.svc.logger.Error("job runner panicked", "job_id", r.jobID, "panic", rec)
			r.svc.terminate(terminateParams{
				ID:     r.jobID,
				Status: model.JobStatusFailed,
				Err:    apperrors.Internal(fmt.Sprintf("runner panic: %v", rec)),
			})
		}
	}()

	if !r.prepare() {
		return
	}

	delay := r.interval
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-timer.C:
		}

		res := r.tick()
		if res.done {
			return
		}
		timer.Reset(res.delay)
	}
}

// prepare resolves the target and acquires a token, then flips the job to running.
// It reports false when the job has terminated.
func (r *runner) prepare() bool {
	lookupCtx, cancel := context.WithTimeout(r.ctx, r.svc.config.ActionTimeout)
	defer cancel()

	resolved, err := r.svc.resolver.Resolve(lookupCtx, r.reference)
	if err != nil {
		r.failLookup(err, "resolve target")
		return false
	}

	token, err := r.svc.authorizer.AcquireToken(lookupCtx, r.credentials)
	r.credentials = model.Credentials{}
	if err != nil {
		r.failLookup(err, "acquire token")
		return false
	}
	r.resolved = resolved
	r.token = token

	now := r.svc.clock.Now()
	job, ok := r.svc.store.Mutate(r.jobID, func(j *model.Job) {
		j.Status = model.JobStatusRunning
		j.ResolvedTarget = resolved
		j.LastUpdate = now
	})
	if !ok {
		return false
	}

	r.svc.publish(domainjob.EventStarted, job.View(now))
	r.svc.logger.Debug("job running", "job_id", r.jobID, "resolved_target", resolved)
	return true
}

func (r *runner) failLookup(err error, step string) {
	if r.ctx.Err() != nil {
		// cancelled or timed out while looking up; the terminator already recorded why
		return
	}
	r.svc.terminate(terminateParams{
		ID:     r.jobID,
		Status: model.JobStatusFailed,
		Err:    apperrors.Wrap(err, apperrors.ErrCodeResolution, step),
	})
}

// tick performs one action attempt and applies its outcome.
func (r *runner) tick() tickResult {
	// An attempt already underway finishes even if the job is cancelled meanwhile;
	// its outcome is dropped because the job is no longer in the registry.
	actionCtx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), r.svc.config.ActionTimeout)
	start := r.svc.clock.Now()
	res := r.svc.executor.Perform(actionCtx, r.resolved, r.token)
	cancel()
	r.svc.metrics.ActionAttempt(res.Outcome, r.svc.clock.Now().Sub(start))

	switch res.Outcome {
	case model.ActionSuccess:
		return r.onSuccess()
	case model.ActionAuthFailure:
		r.svc.terminate(terminateParams{
			ID:     r.jobID,
			Status: model.JobStatusAuthError,
			Err:    apperrors.Wrap(errOrDefault(res.Err, "credentials rejected"), apperrors.ErrCodeAuth, "authorization rejected"),
			Update: func(j *model.Job) {
				j.TotalAttempts++
				j.TotalFailures++
			},
		})
		return tickResult{done: true}
	default:
		return r.onRetryable(res.Err)
	}
}

func (r *runner) onSuccess() tickResult {
	now := r.svc.clock.Now()
	job, ok := r.svc.store.Mutate(r.jobID, func(j *model.Job) {
		if j.Count < j.Target {
			j.Count++
		}
		j.ConsecutiveErrors = 0
		j.TotalAttempts++
		j.LastUpdate = now
	})
	if !ok {
		return tickResult{done: true}
	}

	if r.svc.policy.ShouldEmitProgress(job.Count, job.Target) {
		r.svc.publish(domainjob.EventProgress, job.View(now))
	}
	if job.Count >= job.Target {
		r.svc.terminate(terminateParams{ID: r.jobID, Status: model.JobStatusCompleted})
		return tickResult{done: true}
	}
	return tickResult{delay: r.interval}
}

func (r *runner) onRetryable(cause error) tickResult {
	err := apperrors.Wrap(errOrDefault(cause, "action failed"), apperrors.ErrCodeRetryable, "action")
	now := r.svc.clock.Now()
	job, ok := r.svc.store.Mutate(r.jobID, func(j *model.Job) {
		j.ConsecutiveErrors++
		j.TotalAttempts++
		j.TotalFailures++
		j.LastError = err.Error()
		j.LastUpdate = now
	})
	if !ok {
		return tickResult{done: true}
	}

	if r.svc.policy.Exhausted(job.ConsecutiveErrors) {
		r.svc.terminate(terminateParams{ID: r.jobID, Status: model.JobStatusFailed, Err: err})
		return tickResult{done: true}
	}

	delay := r.svc.policy.NextDelay(r.interval, job.ConsecutiveErrors)
	r.svc.logger.Debug("action attempt failed",
		"job_id", r.jobID,
		"consecutive_errors", job.ConsecutiveErrors,
		"next_attempt_in", delay,
		"error", cause,
	)
	return tickResult{delay: delay}
}

type outcomeError string

func (e outcomeError) Error() string { return string(e) }

func errOrDefault(err error, msg string) error {
	if err != nil {
		return err
	}
	return outcomeError(msg)
}
