package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/target/boostd/internal/core"
	"github.com/target/boostd/internal/domain/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// BearerAuthorizer uses the access token carried by the credentials as-is.
type BearerAuthorizer struct{}

// AcquireToken implements core.Authorizer.
func (BearerAuthorizer) AcquireToken(_ context.Context, creds model.Credentials) (string, error) {
	token := strings.TrimSpace(creds.AccessToken)
	if token == "" {
		return "", core.ErrInvalidCredentials
	}
	return token, nil
}

// OAuth2AuthorizerOptions configures an OAuth2Authorizer.
type OAuth2AuthorizerOptions struct {
	TokenURL   string       // Token endpoint; takes precedence over IssuerURL
	IssuerURL  string       // OIDC issuer used to discover the token endpoint
	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout
	Logger     *slog.Logger // Optional: structured logger
}

// OAuth2Authorizer exchanges client credentials for an access token. Credentials that
// carry only an access token are passed through.
type OAuth2Authorizer struct {
	tokenURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOAuth2Authorizer returns an authorizer. When only IssuerURL is set the token
// endpoint is discovered from the issuer's OpenID configuration.
func NewOAuth2Authorizer(ctx context.Context, opts OAuth2AuthorizerOptions) (*OAuth2Authorizer, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "oauth2_authorizer")

	tokenURL := strings.TrimSpace(opts.TokenURL)
	if tokenURL == "" {
		issuer := strings.TrimSpace(opts.IssuerURL)
		if issuer == "" {
			return nil, errors.New("token URL or issuer URL is required")
		}
		issuer = strings.TrimSuffix(issuer, "/")
		issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")

		discoverCtx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		op, err := gooidc.NewProvider(discoverCtx, issuer)
		if err != nil {
			return nil, fmt.Errorf("oidc new provider: %w", err)
		}
		tokenURL = op.Endpoint().TokenURL
		if tokenURL == "" {
			return nil, fmt.Errorf("issuer %s advertises no token endpoint", issuer)
		}
		logger.Debug("discovered token endpoint", "issuer", issuer, "token_url", tokenURL)
	}

	return &OAuth2Authorizer{
		tokenURL:   tokenURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// TokenURL returns the token endpoint in use.
func (a *OAuth2Authorizer) TokenURL() string {
	return a.tokenURL
}

// AcquireToken implements core.Authorizer.
func (a *OAuth2Authorizer) AcquireToken(ctx context.Context, creds model.Credentials) (string, error) {
	if !creds.HasClientCredentials() {
		return BearerAuthorizer{}.AcquireToken(ctx, creds)
	}

	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     a.tokenURL,
		Scopes:       creds.Scopes,
	}
	tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, a.httpClient))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil &&
			(re.Response.StatusCode == http.StatusBadRequest || re.Response.StatusCode == http.StatusUnauthorized) {
			return "", fmt.Errorf("%w: %s", core.ErrInvalidCredentials, re.Response.Status)
		}
		return "", fmt.Errorf("fetch token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("token endpoint returned an empty access token")
	}
	return tok.AccessToken, nil
}

var (
	_ core.Authorizer = BearerAuthorizer{}
	_ core.Authorizer = (*OAuth2Authorizer)(nil)
)
