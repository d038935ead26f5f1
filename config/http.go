package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// OwnerHeader names the request header that carries the submitting owner's identity.
	// Requests without it are attributed to the client IP.
	OwnerHeader string `env:"HTTP_OWNER_HEADER" envDefault:"X-Owner-ID"`

	// TrustProxyHeaders makes the client IP fallback honour X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool `env:"HTTP_TRUST_PROXY_HEADERS" envDefault:"false"`

	// ShutdownTimeout bounds graceful shutdown of the listener.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// EventHeartbeat is the keep-alive cadence for SSE and WebSocket subscribers.
	EventHeartbeat time.Duration `env:"HTTP_EVENT_HEARTBEAT" envDefault:"15s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.OwnerHeader = strings.TrimSpace(h.OwnerHeader)
	if h.OwnerHeader == "" {
		h.OwnerHeader = "X-Owner-ID"
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
	if h.EventHeartbeat < time.Second {
		h.EventHeartbeat = time.Second
	}
}
