package model

import "time"

// OwnerSession aggregates per-owner accounting.
type OwnerSession struct {
	OwnerID      string    `json:"owner_id"`
	Active       int       `json:"active"`
	Submitted    int       `json:"submitted"`
	LastActivity time.Time `json:"last_activity"`
}

// SubmitJobRequest is the submission boundary input.
type SubmitJobRequest struct {
	Target      int
	Interval    time.Duration
	Reference   string
	Credentials Credentials
	OwnerID     string
}

// CancelOutcome describes what a cancellation request found.
type CancelOutcome string

const (
	// CancelStopped means a live job was found and stopped.
	CancelStopped CancelOutcome = "stopped"
	// CancelAlreadyTerminal means the job had already terminated.
	CancelAlreadyTerminal CancelOutcome = "already_terminal"
)

// CancelResult is the cancellation boundary output.
type CancelResult struct {
	Outcome CancelOutcome
	Job     *Job
}

// Stats summarises the scheduler for operators.
type Stats struct {
	Active      int               `json:"active"`
	ByStatus    map[JobStatus]int `json:"by_status"`
	History     int               `json:"history"`
	Owners      int               `json:"owners"`
	Subscribers int               `json:"subscribers"`
}
