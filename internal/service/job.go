package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/target/boostd/config"
	"github.com/target/boostd/internal/core"
	"github.com/target/boostd/internal/data"
	domainjob "github.com/target/boostd/internal/domain/job"
	"github.com/target/boostd/internal/domain/model"
	apperrors "github.com/target/boostd/internal/errors"
	"github.com/target/boostd/internal/observability/metrics"
)

// ErrShuttingDown is returned by Submit once Shutdown has begun.
var ErrShuttingDown = errors.New("scheduler is shutting down")

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Resolver    core.TargetResolver    // Required: target reference resolution
	Authorizer  core.Authorizer        // Required: token acquisition
	Executor    core.ActionExecutor    // Required: the side-effecting action
	Config      config.SchedulerConfig // Required: bounds and retry policy
	Store       *data.JobStore         // Optional: defaults to a store sized by Config.HistoryCapacity
	RateLimiter *RateLimiter           // Optional: submission throttling
	Broadcaster domainjob.Broadcaster  // Optional: defaults to an in-process broadcaster
	Policy      *domainjob.RetryPolicy // Optional: override the policy derived from Config
	Clock       core.Clock             // Optional: defaults to wall time
	Metrics     metrics.Recorder       // Optional: measurement sink
	Logger      *slog.Logger           // Optional: structured logger
}

// JobService is the scheduling and lifecycle core. It accepts submissions, runs one
// goroutine per job and routes every terminal transition through a single
// idempotent termination path.
type JobService struct {
	resolver   core.TargetResolver
	authorizer core.Authorizer
	executor   core.ActionExecutor
	config     config.SchedulerConfig
	store      *data.JobStore
	limiter    *RateLimiter
	events     domainjob.Broadcaster
	policy     *domainjob.RetryPolicy
	clock      core.Clock
	metrics    metrics.Recorder
	logger     *slog.Logger

	mu      sync.Mutex
	handles map[string]*jobHandle
	closed  bool
	wg      sync.WaitGroup
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Resolver == nil {
		return nil, errors.New("TargetResolver is required")
	}
	if opts.Authorizer == nil {
		return nil, errors.New("Authorizer is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("ActionExecutor is required")
	}
	if opts.Config.MinInterval <= 0 || opts.Config.MaxInterval < opts.Config.MinInterval {
		return nil, errors.New("interval bounds are invalid")
	}
	if opts.Config.MaxTarget < 1 {
		return nil, errors.New("MaxTarget must be positive")
	}
	if opts.Config.ActionTimeout <= 0 {
		opts.Config.ActionTimeout = 10 * time.Second
	}

	policy := opts.Policy
	if policy == nil {
		var err error
		policy, err = domainjob.NewRetryPolicy(domainjob.PolicyOptions{
			MaxConsecutiveErrors: opts.Config.MaxConsecutiveErrors,
			BackoffCap:           opts.Config.BackoffCap,
			TimeoutBuffer:        opts.Config.TimeoutBuffer,
			ProgressEvery:        opts.Config.ProgressEvery,
		})
		if err != nil {
			return nil, fmt.Errorf("create retry policy: %w", err)
		}
	}

	store := opts.Store
	if store == nil {
		store = data.NewJobStore(data.JobStoreOptions{HistoryCapacity: opts.Config.HistoryCapacity})
	}

	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	events := opts.Broadcaster
	if events == nil {
		events = domainjob.NewBroadcaster(domainjob.BroadcasterOptions{
			Buffer: opts.Config.SubscriberBuffer,
			OnDrop: func(t domainjob.EventType) { recorder.EventDropped(string(t)) },
		})
	}

	clock := opts.Clock
	if clock == nil {
		clock = data.SystemClock{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "job_service")
	logger.Debug("JobService initialized",
		"min_interval", opts.Config.MinInterval,
		"max_interval", opts.Config.MaxInterval,
		"max_target", opts.Config.MaxTarget,
		"max_consecutive_errors", policy.MaxConsecutiveErrors(),
	)

	return &JobService{
		resolver:   opts.Resolver,
		authorizer: opts.Authorizer,
		executor:   opts.Executor,
		config:     opts.Config,
		store:      store,
		limiter:    opts.RateLimiter,
		events:     events,
		policy:     policy,
		clock:      clock,
		metrics:    recorder,
		logger:     logger,
		handles:    make(map[string]*jobHandle),
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	Job     model.JobView
	Session model.OwnerSession
}

// Submit validates and throttles a request, registers the job in initializing state
// and starts its runner. It returns as soon as the job is registered.
func (s *JobService) Submit(ctx context.Context, req model.SubmitJobRequest) (SubmitResult, error) {
	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, req.OwnerID); err != nil {
			s.metrics.SubmissionRejected(string(apperrors.ErrCodeRateLimited))
			return SubmitResult{}, err
		}
	}
	if err := s.validate(&req); err != nil {
		s.metrics.SubmissionRejected(string(apperrors.ErrCodeValidation))
		return SubmitResult{}, err
	}

	now := s.clock.Now()
	job := &model.Job{
		ID:         model.NewJobID(),
		Target:     req.Target,
		Interval:   req.Interval,
		Status:     model.JobStatusInitializing,
		StartTime:  now,
		LastUpdate: now,
		OwnerID:    req.OwnerID,
		Reference:  req.Reference,
	}

	runCtx, cancel := context.WithCancel(context.Background())
	h := &jobHandle{cancel: cancel}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return SubmitResult{}, apperrors.Wrap(ErrShuttingDown, apperrors.ErrCodeInternal, "submission refused")
	}
	s.handles[job.ID] = h
	s.wg.Add(1)
	s.mu.Unlock()

	session, err := s.store.Create(data.CreateParams{
		Job:               job,
		MaxActivePerOwner: s.config.MaxActivePerOwner,
		Now:               now,
	})
	if err != nil {
		s.releaseHandle(job.ID)
		s.wg.Done()
		if errors.Is(err, data.ErrOwnerQuotaExceeded) {
			s.metrics.SubmissionRejected("owner_quota")
			return SubmitResult{}, apperrors.RateLimited(
				fmt.Sprintf("owner already has %d active jobs", s.config.MaxActivePerOwner), 0)
		}
		return SubmitResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "register job")
	}

	deadline := s.policy.Deadline(job.Target, job.Interval)
	h.setWatchdog(time.AfterFunc(deadline, func() {
		s.terminate(terminateParams{
			ID:     job.ID,
			Status: model.JobStatusTimeout,
			Err:    apperrors.Wrapf(context.DeadlineExceeded, apperrors.ErrCodeTimeout, "job exceeded %s", deadline),
		})
	}))

	r := &runner{
		svc:         s,
		jobID:       job.ID,
		target:      job.Target,
		interval:    job.Interval,
		reference:   job.Reference,
		credentials: req.Credentials,
		ctx:         runCtx,
	}

	s.metrics.JobSubmitted()
	s.metrics.ActiveJobs(s.store.ActiveCount())
	view := job.View(now)
	s.publish(domainjob.EventSubmitted, view)
	go r.run()

	s.logger.InfoContext(ctx, "job submitted",
		"job_id", job.ID,
		"owner_id", job.OwnerID,
		"target", job.Target,
		"interval", job.Interval,
		"deadline", deadline,
	)

	return SubmitResult{Job: view, Session: session}, nil
}

func (s *JobService) validate(req *model.SubmitJobRequest) error {
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	req.Reference = strings.TrimSpace(req.Reference)

	switch {
	case req.OwnerID == "":
		return apperrors.ValidationField("owner_id", "owner is required")
	case req.Target < 1 || req.Target > s.config.MaxTarget:
		return apperrors.ValidationField("target",
			fmt.Sprintf("target must be between 1 and %d", s.config.MaxTarget))
	case req.Interval < s.config.MinInterval || req.Interval > s.config.MaxInterval:
		return apperrors.ValidationField("interval",
			fmt.Sprintf("interval must be between %s and %s", s.config.MinInterval, s.config.MaxInterval))
	case req.Reference == "":
		return apperrors.ValidationField("reference", "reference is required")
	case !req.Credentials.Usable():
		return apperrors.ValidationField("credentials", "an access token or client credentials are required")
	}
	return nil
}

// Cancel stops a live job. A job that already terminated reports CancelAlreadyTerminal;
// an unknown id is a NotFound error.
func (s *JobService) Cancel(ctx context.Context, id string) (model.CancelResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.CancelResult{}, apperrors.ValidationField("id", "job id is required")
	}

	if job, ok := s.terminate(terminateParams{ID: id, Status: model.JobStatusStopped}); ok {
		s.logger.InfoContext(ctx, "job cancelled", "job_id", id, "count", job.Count)
		return model.CancelResult{Outcome: model.CancelStopped, Job: job}, nil
	}

	job, _, found := s.store.Lookup(id)
	if !found {
		return model.CancelResult{}, apperrors.NotFoundf("job %s not found", id)
	}
	return model.CancelResult{Outcome: model.CancelAlreadyTerminal, Job: job}, nil
}

// Get returns a live or historical job.
func (s *JobService) Get(_ context.Context, id string) (model.JobView, error) {
	job, _, found := s.store.Lookup(strings.TrimSpace(id))
	if !found {
		return model.JobView{}, apperrors.NotFoundf("job %s not found", id)
	}
	return job.View(s.clock.Now()), nil
}

// ListActive returns every live job, oldest first.
func (s *JobService) ListActive(_ context.Context) []model.JobView {
	return s.views(s.store.ListActive())
}

// History returns up to limit terminated jobs, newest first.
func (s *JobService) History(_ context.Context, limit int) []model.JobView {
	return s.views(s.store.ListHistory(limit))
}

// Session returns an owner's accounting.
func (s *JobService) Session(_ context.Context, owner string) (model.OwnerSession, error) {
	sess, ok := s.store.Session(strings.TrimSpace(owner))
	if !ok {
		return model.OwnerSession{}, apperrors.NotFoundf("owner %s has no session", owner)
	}
	return sess, nil
}

// Stats summarises the scheduler.
func (s *JobService) Stats(_ context.Context) model.Stats {
	st := s.store.Stats()
	st.Subscribers = s.events.SubscriberCount()
	return st
}

// Accepting reports whether Shutdown has not started yet.
func (s *JobService) Accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Subscribe registers for live events. The snapshot is taken after subscribing so
// no event is lost between the snapshot and the stream.
func (s *JobService) Subscribe() (func(), domainjob.Event, <-chan domainjob.Event) {
	unsub, ch := s.events.Subscribe()
	active, history := s.store.Snapshot(s.config.SnapshotHistoryLimit)
	snap := domainjob.Event{
		Type:      domainjob.EventSnapshot,
		Timestamp: s.clock.Now(),
		Data: domainjob.Snapshot{
			Active:  s.views(active),
			History: s.views(history),
		},
	}
	return unsub, snap, ch
}

// TerminateStuck ends every live job that started before cutoff with status
// timeout_cleanup and returns the terminated jobs.
func (s *JobService) TerminateStuck(ctx context.Context, cutoff time.Time) []*model.Job {
	var reaped []*model.Job
	for _, id := range s.store.StartedBefore(cutoff) {
		if ctx.Err() != nil {
			break
		}
		job, ok := s.terminate(terminateParams{
			ID:     id,
			Status: model.JobStatusTimeoutCleanup,
			Err:    apperrors.Wrap(errors.New("job exceeded stuck threshold"), apperrors.ErrCodeStuckCleanup, "reaped"),
		})
		if ok {
			reaped = append(reaped, job)
		}
	}
	return reaped
}

// Shutdown refuses new submissions, stops every live job and waits for runners to exit.
func (s *JobService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	for _, job := range s.store.ListActive() {
		s.terminate(terminateParams{ID: job.ID, Status: model.JobStatusStopped})
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	defer s.events.StopAll()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for job runners: %w", ctx.Err())
	}
}

type terminateParams struct {
	ID     string
	Status model.JobStatus
	// Err is recorded as the job's last error when non-nil.
	Err error
	// Update runs inside the same atomic step, before the status changes.
	Update func(*model.Job)
}

// terminate is the single termination path. It stops the job's timers, moves it from
// the registry to history, releases the owner's slot and publishes a completion
// event. Calls for a job that is no longer live do nothing and report false.
func (s *JobService) terminate(p terminateParams) (*model.Job, bool) {
	if h := s.releaseHandle(p.ID); h != nil {
		h.stop()
	}

	now := s.clock.Now()
	job, ok := s.store.Finish(p.ID, now, func(j *model.Job) {
		if p.Update != nil {
			p.Update(j)
		}
		if p.Err != nil {
			j.LastError = p.Err.Error()
		}
		j.Status = p.Status
		end := now
		j.EndTime = &end
		j.LastUpdate = now
	})
	if !ok {
		return nil, false
	}

	duration := job.Duration(now)
	s.metrics.JobFinished(metrics.JobMetric{
		Status:   job.Status,
		Count:    job.Count,
		Duration: duration,
		Err:      p.Err,
	})
	s.metrics.ActiveJobs(s.store.ActiveCount())

	view := job.View(now)
	s.events.Publish(domainjob.Event{
		Type:      domainjob.EventCompleted,
		Timestamp: now,
		JobID:     job.ID,
		Data: domainjob.CompletedPayload{
			Job:        view,
			Status:     job.Status,
			Count:      job.Count,
			DurationMS: duration.Milliseconds(),
		},
	})

	level := slog.LevelInfo
	if job.Status != model.JobStatusCompleted && job.Status != model.JobStatusStopped {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "job finished",
		"job_id", job.ID,
		"owner_id", job.OwnerID,
		"status", job.Status,
		"count", job.Count,
		"target", job.Target,
		"duration", duration,
		"last_error", job.LastError,
	)
	return job, true
}

func (s *JobService) releaseHandle(id string) *jobHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[id]
	if !ok {
		return nil
	}
	delete(s.handles, id)
	return h
}

func (s *JobService) publish(t domainjob.EventType, view model.JobView) {
	s.events.Publish(domainjob.NewJobEvent(t, s.clock.Now(), view))
}

func (s *JobService) views(jobs []*model.Job) []model.JobView {
	now := s.clock.Now()
	out := make([]model.JobView, len(jobs))
	for i, j := range jobs {
		out[i] = j.View(now)
	}
	return out
}

// jobHandle is the cancellation handle for one job's runner and watchdog.
type jobHandle struct {
	cancel context.CancelFunc

	mu       sync.Mutex
	watchdog *time.Timer
	stopped  bool
}

func (h *jobHandle) setWatchdog(t *time.Timer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		t.Stop()
		return
	}
	h.watchdog = t
}

func (h *jobHandle) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	h.cancel()
	if h.watchdog != nil {
		h.watchdog.Stop()
	}
}
