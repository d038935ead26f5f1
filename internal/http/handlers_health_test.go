package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/boostd/config"
	"github.com/target/boostd/internal/mocks/upstream"
	"github.com/target/boostd/internal/service"
)

func newHealthService(t *testing.T) *service.JobService {
	t.Helper()
	var cfg config.SchedulerConfig
	cfg.Sanitize()
	jobs, err := service.NewJobService(service.JobServiceOptions{
		Resolver:   &upstream.StaticResolver{},
		Authorizer: &upstream.StaticAuthorizer{},
		Executor:   &upstream.ScriptedExecutor{},
		Config:     cfg,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Shutdown(context.Background()) })
	return jobs
}

func TestHealth(t *testing.T) {
	h := &HealthHandlers{Jobs: newHealthService(t)}

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, healthResponse{Status: "ok"}, body)
}

func TestHealth_HEADHasNoBody(t *testing.T) {
	h := &HealthHandlers{}

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestHealth_StoppingAfterShutdown(t *testing.T) {
	jobs := newHealthService(t)
	require.NoError(t, jobs.Shutdown(context.Background()))
	h := &HealthHandlers{Jobs: jobs}

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"stopping"`)
}
