package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/boostd/config"
	"github.com/target/boostd/internal/core"
	"github.com/target/boostd/internal/domain/model"
	"golang.org/x/time/rate"
)

// WebhookExecutorOptions configures a WebhookExecutor.
type WebhookExecutorOptions struct {
	Config config.ActionConfig // Required: endpoint, throttle and limits
	Client *http.Client        // Optional: defaults to a client using Config.Timeout
	Logger *slog.Logger        // Optional: structured logger
}

// WebhookExecutor performs an action by POSTing the target to a configured endpoint.
// All jobs share one outbound rate limiter.
type WebhookExecutor struct {
	url     string
	maxBody int64
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

type actionRequest struct {
	Target string `json:"target"`
}

// NewWebhookExecutor validates opts and returns an executor.
func NewWebhookExecutor(opts WebhookExecutorOptions) (*WebhookExecutor, error) {
	cfg := opts.Config
	cfg.Sanitize()
	if cfg.URL == "" {
		return nil, errors.New("action URL is required")
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	}

	return &WebhookExecutor{
		url:     cfg.URL,
		maxBody: cfg.MaxResponseBody,
		client:  client,
		limiter: limiter,
		logger:  logger.With("component", "webhook_executor"),
	}, nil
}

// Perform implements core.ActionExecutor. 2xx is success, 401 and 403 are
// authorization failures and everything else, including transport errors, is retryable.
func (e *WebhookExecutor) Perform(ctx context.Context, target, token string) model.ActionResult {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return model.Retryable(fmt.Errorf("wait for action slot: %w", err))
		}
	}

	body, err := json.Marshal(actionRequest{Target: target})
	if err != nil {
		return model.Retryable(fmt.Errorf("encode action request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return model.Retryable(fmt.Errorf("create action request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return model.Retryable(fmt.Errorf("action request failed: %w", err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return model.Succeeded()
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, e.maxBody))
	failure := fmt.Errorf("action endpoint %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	e.logger.DebugContext(ctx, "action rejected", "status", resp.StatusCode, "target", target)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return model.AuthRejected(failure)
	}
	return model.Retryable(failure)
}

var _ core.ActionExecutor = (*WebhookExecutor)(nil)
