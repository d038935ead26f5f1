package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/target/boostd/internal/service"
)

// HealthHandlers serves liveness and readiness.
type HealthHandlers struct {
	Jobs *service.JobService
}

type healthResponse struct {
	Status      string `json:"status"`
	ActiveJobs  int    `json:"active_jobs"`
	Subscribers int    `json:"subscribers"`
}

// Health reports 200 while the scheduler accepts jobs and 503 once it is shutting down.
// HEAD requests get the status line only.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	body := healthResponse{Status: "ok"}
	code := http.StatusOK
	if h.Jobs != nil {
		st := h.Jobs.Stats(r.Context())
		body.ActiveJobs = st.Active
		body.Subscribers = st.Subscribers
		if !h.Jobs.Accepting() {
			body.Status = "stopping"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// AdminHandlers exposes operational triggers.
type AdminHandlers struct {
	Reaper *service.ReaperService
	Logger *slog.Logger
}

type reapResponse struct {
	Reaped    []string `json:"reaped"`
	Cutoff    string   `json:"cutoff"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

// Reap runs one stuck-job sweep immediately.
func (h *AdminHandlers) Reap(w http.ResponseWriter, r *http.Request) {
	res := h.Reaper.Sweep(r.Context())
	if h.Logger != nil && len(res.Reaped) > 0 {
		h.Logger.InfoContext(r.Context(), "manual reap", "reaped", len(res.Reaped))
	}
	WriteJSON(w, http.StatusOK, reapResponse{
		Reaped:    res.Reaped,
		Cutoff:    res.Cutoff.UTC().Format(timeFormat),
		ElapsedMS: res.Elapsed.Milliseconds(),
	})
}
