package config

import (
	"strings"
	"time"
)

// UpstreamConfig configures the external collaborators a job talks to.
type UpstreamConfig struct {
	Resolver   ResolverConfig
	Authorizer AuthorizerConfig
	Action     ActionConfig
}

// Sanitize applies guardrails to upstream configuration values.
func (u *UpstreamConfig) Sanitize() {
	u.Resolver.Sanitize()
	u.Authorizer.Sanitize()
	u.Action.Sanitize()
}

// ResolverConfig configures target-reference resolution.
// An empty URL selects the passthrough resolver.
type ResolverConfig struct {
	URL string `env:"RESOLVER_URL"`

	// IDPath is a JMESPath expression selecting the identifier from the JSON response.
	IDPath string `env:"RESOLVER_ID_PATH" envDefault:"id"`

	// AllowedDomains restricts URL references to these registrable domains.
	AllowedDomains []string `env:"RESOLVER_ALLOWED_DOMAINS" envSeparator:","`
}

// Sanitize applies guardrails to resolver configuration values.
func (r *ResolverConfig) Sanitize() {
	r.URL = strings.TrimSpace(r.URL)
	r.IDPath = strings.TrimSpace(r.IDPath)
	if r.IDPath == "" {
		r.IDPath = "id"
	}
	domains := r.AllowedDomains[:0]
	for _, d := range r.AllowedDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	r.AllowedDomains = domains
}

// AuthorizerConfig configures token acquisition.
// With neither TokenURL nor IssuerURL set, credentials must carry a ready access token.
type AuthorizerConfig struct {
	TokenURL  string `env:"AUTHORIZER_TOKEN_URL"`
	IssuerURL string `env:"AUTHORIZER_ISSUER_URL"`
}

// Sanitize applies guardrails to authorizer configuration values.
func (a *AuthorizerConfig) Sanitize() {
	a.TokenURL = strings.TrimSpace(a.TokenURL)
	a.IssuerURL = strings.TrimSpace(a.IssuerURL)
}

// UsesOAuth2 reports whether the client-credentials authorizer is configured.
func (a *AuthorizerConfig) UsesOAuth2() bool {
	return a.TokenURL != "" || a.IssuerURL != ""
}

// ActionConfig configures the side-effecting action endpoint.
type ActionConfig struct {
	URL string `env:"ACTION_URL" envDefault:"http://localhost:9090/action"`

	// RatePerSecond throttles outbound actions across all jobs. Zero disables throttling.
	RatePerSecond float64 `env:"ACTION_RATE_LIMIT" envDefault:"0"`
	Burst         int     `env:"ACTION_RATE_BURST" envDefault:"1"`

	// MaxResponseBody caps how much of an error response is kept for diagnostics.
	MaxResponseBody int64 `env:"ACTION_MAX_RESPONSE_BODY" envDefault:"1024"`

	// Timeout is the HTTP client timeout, separate from the per-call context deadline.
	Timeout time.Duration `env:"ACTION_HTTP_TIMEOUT" envDefault:"15s"`
}

// Sanitize applies guardrails to action configuration values.
func (a *ActionConfig) Sanitize() {
	a.URL = strings.TrimSpace(a.URL)
	if a.RatePerSecond < 0 {
		a.RatePerSecond = 0
	}
	if a.Burst < 1 {
		a.Burst = 1
	}
	if a.MaxResponseBody <= 0 {
		a.MaxResponseBody = 1024
	}
	if a.Timeout <= 0 {
		a.Timeout = 15 * time.Second
	}
}
