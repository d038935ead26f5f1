package data

import "github.com/target/boostd/internal/domain/model"

// History is a capacity-bounded, most-recent-first log of terminated jobs.
// Entries are deep copies and are never mutated after insertion.
type History struct {
	capacity int
	entries  []*model.Job
}

// NewHistory returns a history holding at most capacity entries (minimum 1).
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{capacity: capacity, entries: make([]*model.Job, 0, capacity)}
}

// Record prepends a copy of snapshot and evicts the oldest entry beyond capacity.
func (h *History) Record(snapshot *model.Job) {
	entry := snapshot.Clone()
	if len(h.entries) < h.capacity {
		h.entries = append(h.entries, nil)
	}
	copy(h.entries[1:], h.entries[:len(h.entries)-1])
	h.entries[0] = entry
}

// Find is a linear scan by id.
func (h *History) Find(id string) (*model.Job, bool) {
	for _, e := range h.entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// List returns up to limit entries, newest first. A non-positive limit returns all.
func (h *History) List(limit int) []*model.Job {
	n := len(h.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*model.Job, n)
	copy(out, h.entries[:n])
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Capacity returns the configured bound.
func (h *History) Capacity() int {
	return h.capacity
}
