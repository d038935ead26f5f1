package job

import (
	"time"

	"github.com/target/boostd/internal/domain/model"
)

// EventType names a job lifecycle event.
type EventType string

const (
	EventSubmitted EventType = "job.submitted"
	EventStarted   EventType = "job.started"
	EventProgress  EventType = "job.progress"
	// EventCompleted is published once per job for every terminal status.
	EventCompleted EventType = "job.completed"
	// EventSnapshot is sent to a subscriber on connect, never broadcast.
	EventSnapshot EventType = "snapshot"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"ts"`
	JobID     string    `json:"job_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Snapshot is the on-connect payload: live jobs plus recent history.
type Snapshot struct {
	Active  []model.JobView `json:"active"`
	History []model.JobView `json:"history"`
}

// CompletedPayload carries the final state of a terminated job.
type CompletedPayload struct {
	Job        model.JobView   `json:"job"`
	Status     model.JobStatus `json:"status"`
	Count      int             `json:"count"`
	DurationMS int64           `json:"duration_ms"`
}

// NewJobEvent wraps a job view in an event envelope.
func NewJobEvent(t EventType, now time.Time, view model.JobView) Event {
	return Event{Type: t, Timestamp: now, JobID: view.ID, Data: view}
}
