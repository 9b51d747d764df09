// Package relay pushes a freshly obtained token set to the portal backend,
// which answers with its own session token.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/open-service-portal/oidc-authenticator/internal/config"
	"github.com/open-service-portal/oidc-authenticator/pkg/logging"
	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
)

// TokensPath is appended to the backend base URL.
const TokensPath = "/api/cluster-auth/tokens"

const maxResponseBytes = 1 << 20

// Result is a successful relay.
type Result struct {
	StatusCode int

	// SessionToken is the backend's session token; empty when the backend
	// returned none.
	SessionToken string
}

// Relay posts token sets to one backend.
type Relay struct {
	endpoint   string
	cfg        config.BackendConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// New returns a Relay for cfg. It fails when the backend URL is not an
// absolute http(s) URL. A nil httpClient uses http.DefaultClient.
func New(cfg config.BackendConfig, httpClient *http.Client, logger *slog.Logger) (*Relay, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.URL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.SessionTokenField == "" {
		cfg.SessionTokenField = config.DefaultSessionTokenField
	}

	return &Relay{
		endpoint:   strings.TrimRight(cfg.URL, "/") + TokensPath,
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logging.For(logger, "Relay"),
	}, nil
}

// Endpoint returns the URL tokens are posted to.
func (r *Relay) Endpoint() string {
	return r.endpoint
}

// Push sends tokens to the backend. cookie is forwarded only when
// forward_cookies is enabled. Every failure is an *Error.
func (r *Relay) Push(ctx context.Context, tokens *oauth.TokenSet, cookie string) (*Result, error) {
	body, err := json.Marshal(tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token set: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: ErrBackendUnreachable, Endpoint: r.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.cfg.ForwardCookies && cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if r.cfg.Secret != "" && r.cfg.SecretHeader != "" {
		req.Header.Set(r.cfg.SecretHeader, r.cfg.Secret)
	}

	r.logger.Debug("Relaying tokens to backend",
		"endpoint", r.endpoint,
		"tokens", tokens,
		"cookie_forwarded", req.Header.Get("Cookie") != "")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrBackendUnreachable, Endpoint: r.endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: ErrBackendUnreachable, Endpoint: r.endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: ErrBackendStatus, Endpoint: r.endpoint, StatusCode: resp.StatusCode}
	}

	result := &Result{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return result, nil
	}

	// UseNumber keeps numeric session tokens exact beyond 2^53.
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, &Error{Kind: ErrBackendMalformed, Endpoint: r.endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	result.SessionToken = stringField(payload, r.cfg.SessionTokenField)

	r.logger.Info("Tokens relayed to backend",
		"status", resp.StatusCode,
		"session_token", result.SessionToken != "")
	return result, nil
}

func stringField(payload map[string]any, field string) string {
	switch v := payload[field].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
