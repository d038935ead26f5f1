// Package upstream provides HTTP adapters for the external collaborators a job talks to:
// target resolution, token acquisition and the action endpoint.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/target/boostd/internal/core"
	"golang.org/x/net/publicsuffix"
)

// ErrDomainNotAllowed is returned when a URL reference falls outside the allowlist.
var ErrDomainNotAllowed = errors.New("reference domain not allowed")

// DomainAllowlist restricts URL references to a set of registrable domains.
// An empty allowlist allows everything.
type DomainAllowlist []string

// Check returns ErrDomainNotAllowed when reference is a URL whose host is not covered.
// References that are not absolute http(s) URLs are not checked.
func (a DomainAllowlist) Check(reference string) error {
	if len(a) == 0 {
		return nil
	}
	u, err := url.Parse(strings.TrimSpace(reference))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil
	}
	if a.Allows(u.Hostname()) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDomainNotAllowed, u.Hostname())
}

// Allows reports whether host or its registrable domain is listed.
func (a DomainAllowlist) Allows(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	if host == "" {
		return false
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		etld1 = host
	}
	for _, allowed := range a {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || etld1 == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// PassthroughResolver treats the reference itself as the target identifier.
type PassthroughResolver struct {
	Allowlist DomainAllowlist
}

// Resolve implements core.TargetResolver.
func (p *PassthroughResolver) Resolve(_ context.Context, reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", core.ErrTargetNotFound
	}
	if err := p.Allowlist.Check(reference); err != nil {
		return "", err
	}
	return reference, nil
}

// HTTPResolverOptions configures an HTTPResolver.
type HTTPResolverOptions struct {
	URL            string       // Required: lookup endpoint; the reference is sent as ?reference=
	IDPath         string       // Optional: JMESPath expression selecting the identifier, defaults to "id"
	AllowedDomains []string     // Optional: registrable domains URL references must belong to
	Client         *http.Client // Optional: defaults to a client with a 10s timeout
	Logger         *slog.Logger // Optional: structured logger
}

// HTTPResolver looks a reference up on a JSON endpoint and extracts the identifier
// with a JMESPath expression.
type HTTPResolver struct {
	endpoint  *url.URL
	idPath    string
	allowlist DomainAllowlist
	client    *http.Client
	logger    *slog.Logger
}

// NewHTTPResolver validates opts and returns a resolver.
func NewHTTPResolver(opts HTTPResolverOptions) (*HTTPResolver, error) {
	endpoint, err := url.Parse(strings.TrimSpace(opts.URL))
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid resolver URL %q", opts.URL)
	}

	idPath := strings.TrimSpace(opts.IDPath)
	if idPath == "" {
		idPath = "id"
	}
	if _, err := jmespath.Compile(idPath); err != nil {
		return nil, fmt.Errorf("compile id path %q: %w", idPath, err)
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPResolver{
		endpoint:  endpoint,
		idPath:    idPath,
		allowlist: DomainAllowlist(opts.AllowedDomains),
		client:    client,
		logger:    logger.With("component", "http_resolver"),
	}, nil
}

// Resolve implements core.TargetResolver.
func (r *HTTPResolver) Resolve(ctx context.Context, reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", core.ErrTargetNotFound
	}
	if err := r.allowlist.Check(reference); err != nil {
		return "", err
	}

	u := *r.endpoint
	q := u.Query()
	q.Set("reference", reference)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create resolver request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolver request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", core.ErrTargetNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("resolver returned %s", resp.Status)
	}

	var doc any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode resolver response: %w", err)
	}

	found, err := jmespath.Search(r.idPath, doc)
	if err != nil {
		return "", fmt.Errorf("evaluate id path: %w", err)
	}
	id := identifierString(found)
	if id == "" {
		return "", core.ErrTargetNotFound
	}

	r.logger.DebugContext(ctx, "resolved reference", "reference", reference, "target", id)
	return id, nil
}

func identifierString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

var (
	_ core.TargetResolver = (*PassthroughResolver)(nil)
	_ core.TargetResolver = (*HTTPResolver)(nil)
)
