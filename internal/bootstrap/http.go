package bootstrap

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/target/boostd/config"
	httpx "github.com/target/boostd/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// newHTTPServer builds the server without starting it.
func newHTTPServer(cfg *HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	routes := httpx.RouterServices{
		Jobs:    cfg.Services.Jobs,
		Metrics: cfg.Services.Observability.MetricsHandler,
		Config:  appCfg.HTTP,
		Logger:  logger,
	}
	if cfg.Services.Reaper != nil {
		routes.Reaper = cfg.Services.Reaper.Service()
	}

	addr := appCfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	// Request contexts end when Shutdown starts so open event streams let go.
	baseCtx, cancel := context.WithCancel(context.Background())

	// Event streams stay open, so there is no write timeout.
	server := &http.Server{
		Addr:              addr,
		Handler:           buildHTTPHandler(logger, routes),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancel)
	return server
}

func buildHTTPHandler(logger *slog.Logger, routes httpx.RouterServices) http.Handler {
	// Order: Recover -> Logging -> Router
	h := httpx.NewRouter(routes)
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)
	return h
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Timeout time.Duration
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
