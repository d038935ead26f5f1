// Package housekeeping runs periodic maintenance tasks on a cron schedule.
package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	obserrors "github.com/target/boostd/internal/observability/errors"
	"github.com/target/boostd/internal/observability/metrics"
	"github.com/target/boostd/internal/observability/statsd"
)

// Task is a named maintenance step run every Every.
type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Tasks   []Task
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Runner schedules tasks with robfig/cron. Overlapping runs of the same task are skipped.
type Runner struct {
	tasks   []Task
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewRunner creates a new housekeeping runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if len(opts.Tasks) == 0 {
		return nil, errors.New("at least one housekeeping task is required")
	}
	for _, t := range opts.Tasks {
		if strings.TrimSpace(t.Name) == "" || t.Run == nil {
			return nil, errors.New("housekeeping task requires a name and a function")
		}
		if t.Every < time.Second {
			return nil, fmt.Errorf("housekeeping task %s: interval must be at least 1s", t.Name)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		tasks:   opts.Tasks,
		logger:  logger.With("component", "housekeeping"),
		metrics: opts.Metrics,
	}, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for running
// tasks to finish. Returns nil on graceful shutdown.
func (r *Runner) Run(ctx context.Context) error {
	cl := cronLogger{r.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	for _, task := range r.tasks {
		spec := "@every " + task.Every.String()
		if _, err := c.AddFunc(spec, func() { r.execute(ctx, task) }); err != nil {
			return fmt.Errorf("schedule %s: %w", task.Name, err)
		}
		r.logger.InfoContext(ctx, "scheduled housekeeping task", "task", task.Name, "every", task.Every)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.InfoContext(ctx, "housekeeping stopped", "reason", ctx.Err())

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// RunNow executes every task once, in order, and joins their errors.
func (r *Runner) RunNow(ctx context.Context) error {
	var errs []error
	for _, t := range r.tasks {
		if err := r.execute(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) execute(ctx context.Context, t Task) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	start := time.Now()
	err := t.Run(ctx)
	elapsed := time.Since(start)

	tags := map[string]string{"task": t.Name, "result": metrics.ResultSuccess}
	if err != nil {
		tags["result"] = metrics.ResultError
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
		r.logger.ErrorContext(ctx, "housekeeping task failed", "task", t.Name, "error", err)
	} else {
		r.logger.DebugContext(ctx, "housekeeping task finished", "task", t.Name, "elapsed", elapsed)
	}

	if r.metrics != nil {
		r.metrics.Count("housekeeping.run", 1, tags)
		r.metrics.Timing("housekeeping.duration", elapsed, metrics.CloneTags(tags))
	}
	return err
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
