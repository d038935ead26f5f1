package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/boostd/config"
	"github.com/target/boostd/internal/core"
	"github.com/target/boostd/internal/data"
	"github.com/target/boostd/internal/domain/model"
	"github.com/target/boostd/internal/observability/metrics"
)

// StuckJobTerminator ends live jobs that started before a cutoff.
type StuckJobTerminator interface {
	TerminateStuck(ctx context.Context, cutoff time.Time) []*model.Job
}

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Jobs    StuckJobTerminator  // Required: live job owner
	Config  config.ReaperConfig // Required: reaper configuration
	Clock   core.Clock          // Optional: defaults to wall time
	Logger  *slog.Logger        // Optional: structured logger
	Metrics metrics.Recorder    // Optional: measurement sink
}

// ReaperService terminates jobs whose runner never reached a terminal status on its own,
// so they cannot hold owner slots or registry entries forever.
type ReaperService struct {
	jobs    StuckJobTerminator
	config  config.ReaperConfig
	clock   core.Clock
	logger  *slog.Logger
	metrics metrics.Recorder
}

// SweepResult reports a single reaper pass.
type SweepResult struct {
	Reaped  []string      `json:"reaped"`
	Cutoff  time.Time     `json:"cutoff"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("StuckJobTerminator is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("reaper interval must be positive")
	}
	if opts.Config.StuckAfter <= 0 {
		return nil, errors.New("reaper stuck threshold must be positive")
	}

	clock := opts.Clock
	if clock == nil {
		clock = data.SystemClock{}
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"stuck_after", opts.Config.StuckAfter,
		)
	}

	return &ReaperService{
		jobs:    opts.Jobs,
		config:  opts.Config,
		clock:   clock,
		logger:  logger,
		metrics: recorder,
	}, nil
}

// MustNewReaperService constructs a new ReaperService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewReaperService(opts ReaperServiceOptions) *ReaperService {
	svc, err := NewReaperService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create ReaperService: %v", err))
	}
	return svc
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service",
			"interval", s.config.Interval,
			"stuck_after", s.config.StuckAfter,
		)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// Sweep terminates every live job older than the stuck threshold with status
// timeout_cleanup.
func (s *ReaperService) Sweep(ctx context.Context) SweepResult {
	start := s.clock.Now()
	cutoff := start.Add(-s.config.StuckAfter)

	reaped := s.jobs.TerminateStuck(ctx, cutoff)
	ids := make([]string, 0, len(reaped))
	for _, j := range reaped {
		ids = append(ids, j.ID)
	}

	elapsed := s.clock.Now().Sub(start)
	s.metrics.ReaperSweep(len(ids), elapsed)

	if s.logger != nil {
		if len(ids) > 0 {
			s.logger.WarnContext(ctx, "reaped stuck jobs",
				"count", len(ids),
				"job_ids", ids,
				"stuck_after", s.config.StuckAfter,
			)
		} else {
			s.logger.DebugContext(ctx, "reaper sweep found no stuck jobs")
		}
	}

	return SweepResult{Reaped: ids, Cutoff: cutoff, Elapsed: elapsed}
}
