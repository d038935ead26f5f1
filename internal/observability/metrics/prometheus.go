package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/target/boostd/internal/domain/model"
)

// PrometheusRecorder keeps its collectors on a private registry served by Handler.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	submitted     prometheus.Counter
	rejected      *prometheus.CounterVec
	attempts      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	finished      *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	active        prometheus.Gauge
	reaped        prometheus.Counter
	sweepDuration prometheus.Histogram
	dropped       *prometheus.CounterVec
}

// NewPrometheusRecorder registers collectors under namespace.
func NewPrometheusRecorder(namespace string) *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "The total number of accepted job submissions.",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_rejected_total",
			Help:      "Submissions refused before a job was created.",
		}, []string{"reason"}),
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_attempts_total",
			Help:      "External action attempts by outcome.",
		}, []string{"outcome"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_latency_seconds",
			Help:      "Latency of external action attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		finished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Jobs reaching a terminal status.",
		}, []string{"status"}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time from submission to terminal status.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"status"}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Jobs currently in the registry.",
		}),
		reaped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaper_reaped_total",
			Help:      "Jobs force-terminated by the stuck-job reaper.",
		}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reaper_sweep_duration_seconds",
			Help:      "Duration of reaper sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events discarded because a subscriber buffer was full.",
		}, []string{"type"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry exposes the underlying registry for tests.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) JobSubmitted() { p.submitted.Inc() }

func (p *PrometheusRecorder) SubmissionRejected(reason string) {
	p.rejected.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) ActionAttempt(outcome model.ActionOutcome, latency time.Duration) {
	p.attempts.WithLabelValues(string(outcome)).Inc()
	p.latency.WithLabelValues(string(outcome)).Observe(latency.Seconds())
}

func (p *PrometheusRecorder) JobFinished(in JobMetric) {
	p.finished.WithLabelValues(string(in.Status)).Inc()
	if in.Duration > 0 {
		p.jobDuration.WithLabelValues(string(in.Status)).Observe(in.Duration.Seconds())
	}
}

func (p *PrometheusRecorder) ActiveJobs(n int) { p.active.Set(float64(n)) }

func (p *PrometheusRecorder) ReaperSweep(reaped int, elapsed time.Duration) {
	p.reaped.Add(float64(reaped))
	p.sweepDuration.Observe(elapsed.Seconds())
}

func (p *PrometheusRecorder) EventDropped(eventType string) {
	p.dropped.WithLabelValues(eventType).Inc()
}

var _ Recorder = (*PrometheusRecorder)(nil)
