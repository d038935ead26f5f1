package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/boostd/config"
	"github.com/target/boostd/internal/adapters/housekeeping"
	"github.com/target/boostd/internal/adapters/reaper"
	"github.com/target/boostd/internal/adapters/upstream"
	"github.com/target/boostd/internal/core"
	"github.com/target/boostd/internal/data"
	"github.com/target/boostd/internal/observability/metrics"
	"github.com/target/boostd/internal/observability/statsd"
	"github.com/target/boostd/internal/service"
)

// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
const shutdownWaitTimeout = 15 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs          *service.JobService
	RateLimiter   *service.RateLimiter
	Reaper        *reaper.Runner
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	Recorder      metrics.Recorder
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
	// MetricsHandler serves the Prometheus registry; nil when disabled.
	MetricsHandler http.Handler
}

// Close releases the StatsD socket.
func (o ObservabilityContainer) Close() error {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient // Optional: required for the redis rate limit backend
	Logger      *slog.Logger
	// Upstream overrides the adapters built from config; used by tests.
	Upstream *UpstreamPorts
}

// UpstreamPorts groups the external collaborators of a job.
type UpstreamPorts struct {
	Resolver   core.TargetResolver
	Authorizer core.Authorizer
	Executor   core.ActionExecutor
}

// buildObservability configures metrics adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	recorders := metrics.Multi{}
	out := ObservabilityContainer{MetricsConfig: cfg.Metrics}

	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			out.MetricsSink = client
			recorders = append(recorders, metrics.NewStatsdRecorder(client))
		}
	}

	if cfg.Prometheus.Enabled {
		prom := metrics.NewPrometheusRecorder(cfg.Prometheus.Namespace)
		out.MetricsHandler = prom.Handler()
		recorders = append(recorders, prom)
	}

	if len(recorders) == 0 {
		out.Recorder = metrics.Nop{}
	} else {
		out.Recorder = recorders
	}
	return out
}

// buildUpstream selects resolver, authorizer and executor adapters from config.
func buildUpstream(ctx context.Context, cfg config.UpstreamConfig, logger *slog.Logger) (*UpstreamPorts, error) {
	ports := &UpstreamPorts{}

	if cfg.Resolver.URL == "" {
		ports.Resolver = &upstream.PassthroughResolver{Allowlist: upstream.DomainAllowlist(cfg.Resolver.AllowedDomains)}
	} else {
		res, err := upstream.NewHTTPResolver(upstream.HTTPResolverOptions{
			URL:            cfg.Resolver.URL,
			IDPath:         cfg.Resolver.IDPath,
			AllowedDomains: cfg.Resolver.AllowedDomains,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build resolver: %w", err)
		}
		ports.Resolver = res
	}

	if cfg.Authorizer.UsesOAuth2() {
		auth, err := upstream.NewOAuth2Authorizer(ctx, upstream.OAuth2AuthorizerOptions{
			TokenURL:  cfg.Authorizer.TokenURL,
			IssuerURL: cfg.Authorizer.IssuerURL,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build authorizer: %w", err)
		}
		ports.Authorizer = auth
	} else {
		ports.Authorizer = upstream.BearerAuthorizer{}
	}

	exec, err := upstream.NewWebhookExecutor(upstream.WebhookExecutorOptions{
		Config: cfg.Action,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build executor: %w", err)
	}
	ports.Executor = exec

	return ports, nil
}

//nolint:ireturn // the backend is chosen at runtime.
func buildRateLimitStore(cfg config.RateLimitConfig, client redis.UniversalClient) (core.RateLimitStore, error) {
	if cfg.Backend != config.RateLimitBackendRedis {
		return data.NewMemoryRateLimitStore(), nil
	}
	if client == nil {
		return nil, errors.New("redis rate limit backend requires a redis client")
	}
	return data.NewRedisRateLimitStore(client, cfg.KeyPrefix), nil
}

// NewServices wires the job service and its collaborators.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps require config")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	obs := buildObservability(logger, cfg.Observability)

	ports := deps.Upstream
	if ports == nil {
		var err error
		if ports, err = buildUpstream(ctx, cfg.Upstream, logger); err != nil {
			return ServiceContainer{}, err
		}
	}

	store, err := buildRateLimitStore(cfg.RateLimit, deps.RedisClient)
	if err != nil {
		return ServiceContainer{}, err
	}
	limiter, err := service.NewRateLimiter(service.RateLimiterOptions{
		Store:  store,
		Config: cfg.RateLimit,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build rate limiter: %w", err)
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Resolver:    ports.Resolver,
		Authorizer:  ports.Authorizer,
		Executor:    ports.Executor,
		Config:      cfg.Scheduler,
		RateLimiter: limiter,
		Metrics:     obs.Recorder,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build job service: %w", err)
	}

	reaperRunner, err := reaper.NewRunner(reaper.RunnerOptions{
		Jobs:    jobs,
		Config:  cfg.Reaper,
		Logger:  logger,
		Metrics: obs.Recorder,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build reaper: %w", err)
	}

	return ServiceContainer{
		Jobs:          jobs,
		RateLimiter:   limiter,
		Reaper:        reaperRunner,
		Observability: obs,
	}, nil
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func newReaperBackgroundService(services ServiceContainer) backgroundService {
	return backgroundService{
		mode:  config.ServiceModeReaper,
		name:  "reaper",
		start: services.Reaper.Run,
	}
}

func newHousekeepingBackgroundService(cfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) backgroundService {
	return backgroundService{
		mode: config.ServiceModeHousekeeping,
		name: "housekeeping",
		start: func(ctx context.Context) error {
			var sink statsd.Sink
			if services.Observability.MetricsSink != nil {
				sink = services.Observability.MetricsSink
			}
			runner, err := housekeeping.NewRunner(housekeeping.RunnerOptions{
				Tasks: []housekeeping.Task{{
					Name:  "rate_limit_sweep",
					Every: cfg.RateLimit.SweepInterval,
					Run: func(ctx context.Context) error {
						_, err := services.RateLimiter.Sweep(ctx)
						return err
					},
				}},
				Logger:  logger,
				Metrics: sink,
			})
			if err != nil {
				return fmt.Errorf("create housekeeping runner: %w", err)
			}
			return runner.Run(ctx)
		},
	}
}

// buildBackgroundServices returns the enabled background components.
func buildBackgroundServices(cfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) []backgroundService {
	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return nil
	}
	all := []backgroundService{
		newReaperBackgroundService(services),
		newHousekeepingBackgroundService(cfg, services, logger),
	}
	out := make([]backgroundService, 0, len(all))
	for _, svc := range all {
		if enabled[svc.mode] {
			out = append(out, svc)
		}
	}
	return out
}

// ServiceOrchestrationConfig contains dependencies for running services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and blocks until ctx is cancelled
// or a service fails, then stops everything gracefully.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g, gctx := errgroup.WithContext(ctx)

	var server *http.Server
	if cfg.Config.IsHTTPServerEnabled() {
		server = newHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
		g.Go(func() error {
			logger.InfoContext(gctx, "starting HTTP server", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	for _, svc := range buildBackgroundServices(cfg.Config, cfg.Services, logger) {
		g.Go(func() error {
			logger.InfoContext(gctx, "background service started", "service", svc.name, "mode", svc.mode)
			if err := svc.start(gctx); err != nil {
				return fmt.Errorf("%s failed: %w", svc.name, err)
			}
			logger.InfoContext(gctx, svc.name+" stopped")
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down services...")
		return gracefulStop(shutdownConfig{
			server:  server,
			jobs:    cfg.Services.Jobs,
			timeout: cfg.Config.HTTP.ShutdownTimeout,
			logger:  logger,
		})
	})

	err := g.Wait()
	if closeErr := cfg.Services.Observability.Close(); closeErr != nil {
		logger.Warn("close metrics sink failed", "error", closeErr)
	}
	return err
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	server  *http.Server
	jobs    *service.JobService
	timeout time.Duration
	logger  *slog.Logger
}

// gracefulStop drains the HTTP server, then stops every live job.
func gracefulStop(cfg shutdownConfig) error {
	timeout := cfg.timeout
	if timeout <= 0 {
		timeout = shutdownWaitTimeout
	}

	var errs []error
	if err := ShutdownHTTPServer(ShutdownConfig{
		Timeout: timeout,
		Server:  cfg.server,
		Logger:  cfg.logger,
	}); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}

	if cfg.jobs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()
		if err := cfg.jobs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown job service: %w", err))
		} else {
			cfg.logger.Info("job service stopped")
		}
	}

	return errors.Join(errs...)
}
