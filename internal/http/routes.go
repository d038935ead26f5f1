package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/boostd/config"
	"github.com/target/boostd/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs   *service.JobService
	Reaper *service.ReaperService // Optional: enables POST /api/admin/reap
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Config  config.HTTPConfig
	Logger  *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{
		Svc: services.Jobs,
		Owners: OwnerResolver{
			Header:     services.Config.OwnerHeader,
			TrustProxy: services.Config.TrustProxyHeaders,
		},
		Logger: services.Logger,
	}
	eventHandlers := &EventHandlers{
		Svc:       services.Jobs,
		Heartbeat: services.Config.EventHeartbeat,
		Logger:    services.Logger,
	}

	registerJobRoutes(mux, jobHandlers)
	registerEventRoutes(mux, eventHandlers)
	if services.Reaper != nil {
		admin := &AdminHandlers{Reaper: services.Reaper, Logger: services.Logger}
		mux.HandleFunc("POST /api/admin/reap", admin.Reap)
	}
	if services.Metrics != nil {
		mux.Handle("GET /metrics", services.Metrics)
	}
	// GET patterns also match HEAD.
	health := &HealthHandlers{Jobs: services.Jobs}
	mux.HandleFunc("GET /healthz", health.Health)

	return mux
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("POST /api/jobs", h.Submit)
	mux.HandleFunc("GET /api/jobs", h.ListActive)
	mux.HandleFunc("GET /api/jobs/history", h.History)
	mux.HandleFunc("GET /api/jobs/{id}", h.Get)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", h.Cancel)
	mux.HandleFunc("GET /api/owners/{owner}", h.Owner)
	mux.HandleFunc("GET /api/stats", h.Stats)

	// Legacy paths.
	mux.HandleFunc("POST /api/submit", h.Submit)
	mux.HandleFunc("POST /api/stop/{id}", h.Cancel)
	mux.HandleFunc("GET /total", h.ListActive)
	mux.HandleFunc("GET /history", h.History)
}

func registerEventRoutes(mux *http.ServeMux, h *EventHandlers) {
	mux.HandleFunc("GET /api/events", h.Stream)
	mux.HandleFunc("GET /api/ws", h.WebSocket)
}
