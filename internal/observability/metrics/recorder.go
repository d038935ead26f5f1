// Package metrics records scheduler activity to StatsD and Prometheus.
package metrics

import (
	"time"

	"github.com/target/boostd/internal/domain/model"
	obserrors "github.com/target/boostd/internal/observability/errors"
	"github.com/target/boostd/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Recorder is the set of measurements the scheduler emits.
type Recorder interface {
	JobSubmitted()
	SubmissionRejected(reason string)
	ActionAttempt(outcome model.ActionOutcome, latency time.Duration)
	JobFinished(in JobMetric)
	ActiveJobs(n int)
	ReaperSweep(reaped int, elapsed time.Duration)
	EventDropped(eventType string)
}

// JobMetric captures a terminal transition.
type JobMetric struct {
	Status   model.JobStatus
	Count    int
	Duration time.Duration
	Err      error
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) JobSubmitted() {}
func (Nop) SubmissionRejected(string) {}
func (Nop) ActionAttempt(model.ActionOutcome, time.Duration) {}
func (Nop) JobFinished(JobMetric) {}
func (Nop) ActiveJobs(int) {}
func (Nop) ReaperSweep(int, time.Duration) {}
func (Nop) EventDropped(string) {}

// StatsdRecorder emits measurements through a statsd.Sink.
type StatsdRecorder struct {
	sink statsd.Sink
}

// NewStatsdRecorder wraps sink. A nil sink yields a recorder that drops everything.
func NewStatsdRecorder(sink statsd.Sink) *StatsdRecorder {
	return &StatsdRecorder{sink: sink}
}

// JobSubmitted counts an accepted submission.
func (r *StatsdRecorder) JobSubmitted() {
	if r.sink == nil {
		return
	}
	r.sink.Count("job.submitted", 1, nil)
}

// SubmissionRejected counts a submission refused before a job was created.
func (r *StatsdRecorder) SubmissionRejected(reason string) {
	if r.sink == nil {
		return
	}
	r.sink.Count("job.rejected", 1, map[string]string{"reason": reason})
}

// ActionAttempt counts and times one external action call.
func (r *StatsdRecorder) ActionAttempt(outcome model.ActionOutcome, latency time.Duration) {
	if r.sink == nil {
		return
	}
	tags := map[string]string{"outcome": string(outcome)}
	r.sink.Count("action.attempt", 1, tags)
	r.sink.Timing("action.latency", latency, CloneTags(tags))
}

// JobFinished emits standardised terminal-transition metrics.
func (r *StatsdRecorder) JobFinished(in JobMetric) {
	if r.sink == nil {
		return
	}

	result := ResultSuccess
	if in.Status != model.JobStatusCompleted {
		result = ResultError
	}
	tags := map[string]string{
		"status": string(in.Status),
		"result": result,
	}
	if in.Err != nil && result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	r.sink.Count("job.finished", 1, tags)
	r.sink.Gauge("job.final_count", float64(in.Count), CloneTags(tags))
	if in.Duration > 0 {
		r.sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// ActiveJobs reports the registry size.
func (r *StatsdRecorder) ActiveJobs(n int) {
	if r.sink == nil {
		return
	}
	r.sink.Gauge("job.active", float64(n), nil)
}

// ReaperSweep reports one reaper pass.
func (r *StatsdRecorder) ReaperSweep(reaped int, elapsed time.Duration) {
	if r.sink == nil {
		return
	}
	result := ResultNoop
	if reaped > 0 {
		result = ResultSuccess
	}
	tags := map[string]string{"result": result}
	r.sink.Count("reaper.reaped", int64(reaped), tags)
	r.sink.Timing("reaper.duration", elapsed, CloneTags(tags))
}

// EventDropped counts an event discarded for a slow subscriber.
func (r *StatsdRecorder) EventDropped(eventType string) {
	if r.sink == nil {
		return
	}
	r.sink.Count("events.dropped", 1, map[string]string{"type": eventType})
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Multi fans every measurement out to several recorders.
type Multi []Recorder

func (m Multi) JobSubmitted() {
	for _, r := range m {
		r.JobSubmitted()
	}
}

func (m Multi) SubmissionRejected(reason string) {
	for _, r := range m {
		r.SubmissionRejected(reason)
	}
}

func (m Multi) ActionAttempt(outcome model.ActionOutcome, latency time.Duration) {
	for _, r := range m {
		r.ActionAttempt(outcome, latency)
	}
}

func (m Multi) JobFinished(in JobMetric) {
	for _, r := range m {
		r.JobFinished(in)
	}
}

func (m Multi) ActiveJobs(n int) {
	for _, r := range m {
		r.ActiveJobs(n)
	}
}

func (m Multi) ReaperSweep(reaped int, elapsed time.Duration) {
	for _, r := range m {
		r.ReaperSweep(reaped, elapsed)
	}
}

func (m Multi) EventDropped(eventType string) {
	for _, r := range m {
		r.EventDropped(eventType)
	}
}

var (
	_ Recorder = Nop{}
	_ Recorder = (*StatsdRecorder)(nil)
	_ Recorder = Multi(nil)
)
