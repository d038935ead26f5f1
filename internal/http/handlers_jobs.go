// Package httpx provides HTTP handlers and utilities for the boostd job API.
package httpx

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/target/boostd/internal/domain/model"
	"github.com/target/boostd/internal/service"
)

const (
	timeFormat          = time.RFC3339Nano
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// JobHandlers exposes submission, cancellation and query endpoints.
type JobHandlers struct {
	Svc    *service.JobService
	Owners OwnerResolver
	Logger *slog.Logger
}

func (h *JobHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// SubmitJobBody is the JSON accepted by Submit.
type SubmitJobBody struct {
	Target          int               `json:"target"`
	IntervalSeconds float64           `json:"interval_seconds"`
	Reference       string            `json:"reference"`
	Credentials     model.Credentials `json:"credentials"`
}

// SubmitJobResponse is returned with 202 Accepted.
type SubmitJobResponse struct {
	JobID      string          `json:"job_id"`
	Status     model.JobStatus `json:"status"`
	ActiveJobs int             `json:"active_jobs"`
}

// CancelJobResponse reports the outcome of a cancellation.
type CancelJobResponse struct {
	JobID   string              `json:"job_id"`
	Outcome model.CancelOutcome `json:"outcome"`
	Job     model.JobView       `json:"job"`
}

// JobListResponse wraps a list of jobs.
type JobListResponse struct {
	Jobs  []model.JobView `json:"jobs"`
	Count int             `json:"count"`
}

// Submit registers a new job for the requesting owner.
func (h *JobHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var body SubmitJobBody
	if !DecodeJSON(w, r, &body) {
		return
	}

	res, err := h.Svc.Submit(r.Context(), model.SubmitJobRequest{
		Target:      body.Target,
		Interval:    secondsToDuration(body.IntervalSeconds),
		Reference:   body.Reference,
		Credentials: body.Credentials,
		OwnerID:     h.Owners.Owner(r),
	})
	if err != nil {
		h.logger().DebugContext(r.Context(), "submission rejected", "error", err)
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, SubmitJobResponse{
		JobID:      res.Job.ID,
		Status:     res.Job.Status,
		ActiveJobs: res.Session.Active,
	})
}

// Cancel stops a live job.
func (h *JobHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, CancelJobResponse{
		JobID:   res.Job.ID,
		Outcome: res.Outcome,
		Job:     res.Job.View(time.Now()),
	})
}

// Get returns one live or historical job.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// ListActive returns every live job.
func (h *JobHandlers) ListActive(w http.ResponseWriter, r *http.Request) {
	jobs := h.Svc.ListActive(r.Context())
	WriteJSON(w, http.StatusOK, JobListResponse{Jobs: jobs, Count: len(jobs)})
}

// History returns terminated jobs, newest first.
func (h *JobHandlers) History(w http.ResponseWriter, r *http.Request) {
	limit := ParseLimit(r, defaultHistoryLimit, maxHistoryLimit)
	jobs := h.Svc.History(r.Context(), limit)
	WriteJSON(w, http.StatusOK, JobListResponse{Jobs: jobs, Count: len(jobs)})
}

// Owner returns an owner's session accounting.
func (h *JobHandlers) Owner(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.Session(r.Context(), r.PathValue("owner"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sess)
}

// Stats returns scheduler counters.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Svc.Stats(r.Context()))
}

// secondsToDuration converts a JSON seconds value. Non-finite and negative values
// map to zero so validation rejects them.
func secondsToDuration(secs float64) time.Duration {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs <= 0 {
		return 0
	}
	if secs > float64(math.MaxInt64/int64(time.Second)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(secs * float64(time.Second))
}
