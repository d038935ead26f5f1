// Package data holds the in-memory state of the scheduler: the live job registry,
// the terminated-job history, owner sessions and rate limit counters.
package data

import (
	"sort"

	"github.com/target/boostd/internal/domain/model"
)

// Registry maps job id to live job state. It is not safe for concurrent use on its
// own; JobStore serialises access.
type Registry struct {
	jobs map[string]*model.Job
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*model.Job)}
}

// Create inserts job. It reports false when the id is already present.
func (r *Registry) Create(job *model.Job) bool {
	if _, exists := r.jobs[job.ID]; exists {
		return false
	}
	r.jobs[job.ID] = job
	return true
}

// Get returns the live job, not a copy.
func (r *Registry) Get(id string) (*model.Job, bool) {
	j, ok := r.jobs[id]
	return j, ok
}

// Mutate applies fn to the job only while it is present.
func (r *Registry) Mutate(id string, fn func(*model.Job)) bool {
	j, ok := r.jobs[id]
	if !ok {
		return false
	}
	fn(j)
	return true
}

// Remove deletes and returns the job.
func (r *Registry) Remove(id string) (*model.Job, bool) {
	j, ok := r.jobs[id]
	if ok {
		delete(r.jobs, id)
	}
	return j, ok
}

// Len returns the number of live jobs.
func (r *Registry) Len() int {
	return len(r.jobs)
}

// List returns the live jobs ordered by start time, oldest first.
func (r *Registry) List() []*model.Job {
	out := make([]*model.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].StartTime.Equal(out[k].StartTime) {
			return out[i].ID < out[k].ID
		}
		return out[i].StartTime.Before(out[k].StartTime)
	})
	return out
}
