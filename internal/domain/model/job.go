// Package model defines the core data types shared by the boost job scheduler.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a boost job.
type JobStatus string

const (
	// JobStatusInitializing indicates target resolution and token acquisition are in progress.
	JobStatusInitializing JobStatus = "initializing"
	// JobStatusRunning indicates the job is performing action attempts.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job reached its target count.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a lookup failed or the consecutive error threshold was hit.
	JobStatusFailed JobStatus = "failed"
	// JobStatusStopped indicates the job was cancelled by a caller.
	JobStatusStopped JobStatus = "stopped"
	// JobStatusTimeout indicates the watchdog deadline elapsed.
	JobStatusTimeout JobStatus = "timeout"
	// JobStatusAuthError indicates the action endpoint rejected the job's token.
	JobStatusAuthError JobStatus = "auth_error"
	// JobStatusTimeoutCleanup indicates the stuck-job reaper terminated the job.
	JobStatusTimeoutCleanup JobStatus = "timeout_cleanup"
)

// Valid returns true if the JobStatus is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusInitializing, JobStatusRunning, JobStatusCompleted, JobStatusFailed,
		JobStatusStopped, JobStatusTimeout, JobStatusAuthError, JobStatusTimeoutCleanup:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s JobStatus) Terminal() bool {
	return s.Valid() && s != JobStatusInitializing && s != JobStatusRunning
}

// TerminalStatuses lists every terminal status in a stable order.
func TerminalStatuses() []JobStatus {
	return []JobStatus{
		JobStatusCompleted,
		JobStatusFailed,
		JobStatusStopped,
		JobStatusTimeout,
		JobStatusAuthError,
		JobStatusTimeoutCleanup,
	}
}

const jobIDPrefix = "job_"

// NewJobID returns a fresh opaque job identifier.
func NewJobID() string {
	return jobIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Job is the unit of work: repeat an external action Target times, Interval apart.
type Job struct {
	ID                string        `json:"id"`
	Target            int           `json:"target"`
	Interval          time.Duration `json:"-"`
	Count             int           `json:"count"`
	ConsecutiveErrors int           `json:"consecutive_errors"`
	Status            JobStatus     `json:"status"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           *time.Time    `json:"end_time,omitempty"`
	LastUpdate        time.Time     `json:"last_update"`
	OwnerID           string        `json:"owner_id"`
	Reference         string        `json:"reference"`
	ResolvedTarget    string        `json:"resolved_target,omitempty"`
	LastError         string        `json:"last_error,omitempty"`
	TotalAttempts     int           `json:"total_attempts"`
	TotalFailures     int           `json:"total_failures"`
}

// Clone returns a deep copy so that callers never share mutable state with the registry.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.EndTime != nil {
		end := *j.EndTime
		c.EndTime = &end
	}
	return &c
}

// Progress is Count/Target in [0, 1].
func (j *Job) Progress() float64 {
	if j.Target <= 0 {
		return 0
	}
	p := float64(j.Count) / float64(j.Target)
	if p > 1 {
		return 1
	}
	return p
}

// SuccessRate is the share of attempts that succeeded. Zero when nothing was attempted.
func (j *Job) SuccessRate() float64 {
	if j.TotalAttempts <= 0 {
		return 0
	}
	return float64(j.Count) / float64(j.TotalAttempts)
}

// Duration is EndTime-StartTime for terminal jobs and now-StartTime otherwise.
func (j *Job) Duration(now time.Time) time.Duration {
	if j.EndTime != nil {
		return j.EndTime.Sub(j.StartTime)
	}
	return now.Sub(j.StartTime)
}

// Validate checks the structural invariants every job must hold.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if j.Target < 1 {
		return fmt.Errorf("target must be positive")
	}
	if j.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if j.Count < 0 || j.Count > j.Target {
		return fmt.Errorf("count %d outside [0, %d]", j.Count, j.Target)
	}
	if !j.Status.Valid() {
		return fmt.Errorf("invalid status %q", j.Status)
	}
	if j.Status.Terminal() != (j.EndTime != nil) {
		return fmt.Errorf("end time must be set exactly when status is terminal")
	}
	return nil
}

// JobView is the serialized form of a job at the query boundary.
type JobView struct {
	ID                string     `json:"id"`
	Target            int        `json:"target"`
	IntervalMS        int64      `json:"interval_ms"`
	Count             int        `json:"count"`
	ConsecutiveErrors int        `json:"consecutive_errors"`
	Status            JobStatus  `json:"status"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	LastUpdate        time.Time  `json:"last_update"`
	OwnerID           string     `json:"owner_id"`
	Reference         string     `json:"reference"`
	ResolvedTarget    string     `json:"resolved_target,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	TotalAttempts     int        `json:"total_attempts"`
	TotalFailures     int        `json:"total_failures"`
	Progress          float64    `json:"progress"`
	SuccessRate       *float64   `json:"success_rate,omitempty"`
	DurationMS        int64      `json:"duration_ms"`
	Active            bool       `json:"active"`
}

// View renders j for callers. SuccessRate is only reported for terminated jobs.
func (j *Job) View(now time.Time) JobView {
	v := JobView{
		ID:                j.ID,
		Target:            j.Target,
		IntervalMS:        j.Interval.Milliseconds(),
		Count:             j.Count,
		ConsecutiveErrors: j.ConsecutiveErrors,
		Status:            j.Status,
		StartTime:         j.StartTime,
		LastUpdate:        j.LastUpdate,
		OwnerID:           j.OwnerID,
		Reference:         j.Reference,
		ResolvedTarget:    j.ResolvedTarget,
		LastError:         j.LastError,
		TotalAttempts:     j.TotalAttempts,
		TotalFailures:     j.TotalFailures,
		Progress:          j.Progress(),
		DurationMS:        j.Duration(now).Milliseconds(),
		Active:            !j.Status.Terminal(),
	}
	if j.EndTime != nil {
		end := *j.EndTime
		v.EndTime = &end
	}
	if j.Status.Terminal() {
		rate := j.SuccessRate()
		v.SuccessRate = &rate
	}
	return v
}
