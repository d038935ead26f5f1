package testutil

import (
	"time"

	"github.com/target/boostd/internal/domain/model"
)

// JobBuilder provides a fluent interface for building Job values for testing.
type JobBuilder struct {
	job *model.Job
}

// NewJob creates a JobBuilder for a running job with sensible defaults.
func NewJob(id string) *JobBuilder {
	start := TestTime()
	return &JobBuilder{
		job: &model.Job{
			ID:         id,
			Target:     3,
			Interval:   time.Second,
			Status:     model.JobStatusRunning,
			StartTime:  start,
			LastUpdate: start,
			OwnerID:    "owner-1",
			Reference:  "https://example.com/items/1",
		},
	}
}

// WithTarget sets the target count.
func (b *JobBuilder) WithTarget(target int) *JobBuilder {
	b.job.Target = target
	return b
}

// WithCount sets the success count.
func (b *JobBuilder) WithCount(count int) *JobBuilder {
	b.job.Count = count
	return b
}

// WithOwner sets the owner id.
func (b *JobBuilder) WithOwner(owner string) *JobBuilder {
	b.job.OwnerID = owner
	return b
}

// WithStatus sets the status.
func (b *JobBuilder) WithStatus(status model.JobStatus) *JobBuilder {
	b.job.Status = status
	return b
}

// StartedAt sets the start and last update time.
func (b *JobBuilder) StartedAt(t time.Time) *JobBuilder {
	b.job.StartTime = t
	b.job.LastUpdate = t
	return b
}

// Build returns a copy of the job.
func (b *JobBuilder) Build() *model.Job {
	return b.job.Clone()
}
