package data

import (
	"errors"
	"sync"
	"time"

	"github.com/target/boostd/internal/domain/model"
)

var (
	// ErrDuplicateJob is returned when a job id is already live.
	ErrDuplicateJob = errors.New("job already exists")
	// ErrOwnerQuotaExceeded is returned when an owner already has the maximum number of live jobs.
	ErrOwnerQuotaExceeded = errors.New("owner active job quota exceeded")
)

// JobStore owns the registry, history and owner sessions behind a single lock so that
// moving a job from the registry to history is one atomic step.
// Every job returned from a JobStore is a copy.
type JobStore struct {
	mu       sync.RWMutex
	registry *Registry
	history  *History
	sessions *OwnerSessions
}

// JobStoreOptions configure a JobStore.
type JobStoreOptions struct {
	HistoryCapacity int
}

// NewJobStore returns an empty store.
func NewJobStore(opts JobStoreOptions) *JobStore {
	return &JobStore{
		registry: NewRegistry(),
		history:  NewHistory(opts.HistoryCapacity),
		sessions: NewOwnerSessions(),
	}
}

// CreateParams groups the inputs to Create.
type CreateParams struct {
	Job *model.Job
	// MaxActivePerOwner rejects the insert when the owner already has this many live jobs. Zero disables the check.
	MaxActivePerOwner int
	Now               time.Time
}

// Create inserts a live job and opens or updates its owner session.
func (s *JobStore) Create(p CreateParams) (model.OwnerSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.MaxActivePerOwner > 0 && s.sessions.Active(p.Job.OwnerID) >= p.MaxActivePerOwner {
		return model.OwnerSession{}, ErrOwnerQuotaExceeded
	}
	if _, done := s.history.Find(p.Job.ID); done {
		return model.OwnerSession{}, ErrDuplicateJob
	}
	if !s.registry.Create(p.Job.Clone()) {
		return model.OwnerSession{}, ErrDuplicateJob
	}
	return s.sessions.Started(p.Job.OwnerID, p.Now), nil
}

// Get returns a copy of a live job.
func (s *JobStore) Get(id string) (*model.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.registry.Get(id)
	if !ok {
		return nil, false
	}
	return j.Clone(), true
}

// Lookup finds a job in the registry first and then in history.
// active reports which structure held it.
func (s *JobStore) Lookup(id string) (job *model.Job, active bool, found bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if j, ok := s.registry.Get(id); ok {
		return j.Clone(), true, true
	}
	if j, ok := s.history.Find(id); ok {
		return j.Clone(), false, true
	}
	return nil, false, false
}

// Mutate applies fn to a live job and returns a copy of the result.
// It reports false without calling fn when the job is no longer live.
// fn must not change the job's status to a terminal value; use Finish for that.
func (s *JobStore) Mutate(id string, fn func(*model.Job)) (*model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out *model.Job
	ok := s.registry.Mutate(id, func(j *model.Job) {
		fn(j)
		out = j.Clone()
	})
	return out, ok
}

// Finish atomically applies finalize, removes the job from the registry, records its
// snapshot in history and releases its owner's active slot.
// It reports false, doing nothing, when the job is not live.
func (s *JobStore) Finish(id string, now time.Time, finalize func(*model.Job)) (*model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.registry.Remove(id)
	if !ok {
		return nil, false
	}
	if finalize != nil {
		finalize(j)
	}
	s.history.Record(j)
	s.sessions.Ended(j.OwnerID, now)
	return j.Clone(), true
}

// ActiveCount returns the number of live jobs.
func (s *JobStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Len()
}

// ListActive returns copies of all live jobs, oldest first.
func (s *JobStore) ListActive() []*model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.registry.List())
}

// ListHistory returns copies of up to limit terminated jobs, newest first.
func (s *JobStore) ListHistory(limit int) []*model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.history.List(limit))
}

// Snapshot returns live jobs and recent history read under one lock.
func (s *JobStore) Snapshot(historyLimit int) (active, history []*model.Job) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active = cloneAll(s.registry.List())
	if historyLimit > 0 {
		history = cloneAll(s.history.List(historyLimit))
	} else {
		history = []*model.Job{}
	}
	return active, history
}

// StartedBefore returns ids of live jobs whose start time is before cutoff.
func (s *JobStore) StartedBefore(cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, j := range s.registry.List() {
		if j.StartTime.Before(cutoff) {
			ids = append(ids, j.ID)
		}
	}
	return ids
}

// Session returns a copy of the owner's session.
func (s *JobStore) Session(owner string) (model.OwnerSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions.Get(owner)
}

// Stats counts live jobs by status, history size and known owners.
func (s *JobStore) Stats() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	by := make(map[model.JobStatus]int)
	for _, j := range s.registry.jobs {
		by[j.Status]++
	}
	for _, j := range s.history.entries {
		by[j.Status]++
	}
	return model.Stats{
		Active:   s.registry.Len(),
		ByStatus: by,
		History:  s.history.Len(),
		Owners:   s.sessions.Len(),
	}
}

func cloneAll(jobs []*model.Job) []*model.Job {
	out := make([]*model.Job, len(jobs))
	for i, j := range jobs {
		out[i] = j.Clone()
	}
	return out
}
