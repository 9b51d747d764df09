package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultHTTPTimeout bounds every request to the identity provider.
	DefaultHTTPTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 1 << 20

	// maxErrorBodyBytes caps the raw body quoted in a ProtocolError.
	maxErrorBodyBytes = 512
)

// Client performs the HTTP side of the authorization code flow: endpoint
// discovery and the code-for-token exchange.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	// Resolved endpoints never expire: the provider is fixed for the
	// lifetime of the process.
	endpointsMu sync.RWMutex
	endpoints   map[string]ProviderEndpoints

	// discoveryGroup deduplicates concurrent discovery of the same issuer.
	discoveryGroup singleflight.Group
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		endpoints:  make(map[string]ProviderEndpoints),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Endpoints resolves the authorization and token endpoints of issuer from
// its OpenID Connect discovery document. A successful result is cached for
// the lifetime of the Client; failures are not cached.
func (c *Client) Endpoints(ctx context.Context, issuer string) (ProviderEndpoints, error) {
	if ep, ok := c.cachedEndpoints(issuer); ok {
		return ep, nil
	}

	result, err, shared := c.discoveryGroup.Do(issuer, func() (interface{}, error) {
		if ep, ok := c.cachedEndpoints(issuer); ok {
			return ep, nil
		}
		return c.discover(ctx, issuer)
	})
	if err != nil {
		return ProviderEndpoints{}, err
	}

	if shared {
		c.logger.Debug("Joined in-flight discovery", "issuer", issuer)
	}

	return result.(ProviderEndpoints), nil
}

func (c *Client) cachedEndpoints(issuer string) (ProviderEndpoints, bool) {
	c.endpointsMu.RLock()
	defer c.endpointsMu.RUnlock()
	ep, ok := c.endpoints[issuer]
	return ep, ok
}

func (c *Client) discover(ctx context.Context, issuer string) (ProviderEndpoints, error) {
	discoveryURL := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, c.httpClient), issuer)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return ProviderEndpoints{}, &TransportError{Endpoint: discoveryURL, Kind: ErrProviderUnreachable, Err: err}
		}
		return ProviderEndpoints{}, &TransportError{Endpoint: discoveryURL, Kind: ErrMalformedResponse, Err: err}
	}

	endpoint := provider.Endpoint()
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		return ProviderEndpoints{}, &TransportError{
			Endpoint: discoveryURL,
			Kind:     ErrMalformedResponse,
			Err:      errors.New("discovery document lacks authorization_endpoint or token_endpoint"),
		}
	}

	ep := ProviderEndpoints{
		AuthorizationEndpoint: endpoint.AuthURL,
		TokenEndpoint:         endpoint.TokenURL,
	}

	c.endpointsMu.Lock()
	c.endpoints[issuer] = ep
	c.endpointsMu.Unlock()

	c.logger.Debug("Discovered provider endpoints",
		"issuer", issuer,
		"authorization_endpoint", ep.AuthorizationEndpoint,
		"token_endpoint", ep.TokenEndpoint)

	return ep, nil
}

// ExchangeCode trades an authorization code for a TokenSet.
//
// Failures come in three distinguishable shapes: *ProtocolError for a
// non-2xx answer, ErrMalformedResponse for an unusable 2xx body and
// ErrProviderUnreachable when no response arrived at all.
func (c *Client) ExchangeCode(ctx context.Context, tokenEndpoint, code, redirectURI, clientID, codeVerifier string) (*TokenSet, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {clientID},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {codeVerifier},
	}

	return c.doTokenRequest(ctx, tokenEndpoint, data)
}

func (c *Client) doTokenRequest(ctx context.Context, tokenEndpoint string, data url.Values) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: tokenEndpoint, Kind: ErrProviderUnreachable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Endpoint: tokenEndpoint, Kind: ErrProviderUnreachable, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("Token request rejected",
			"status", resp.StatusCode,
			"body_bytes", len(body))
		return nil, protocolErrorFromBody(resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &TransportError{Endpoint: tokenEndpoint, Kind: ErrMalformedResponse, Err: err}
	}
	if tr.AccessToken == "" {
		return nil, &TransportError{
			Endpoint: tokenEndpoint,
			Kind:     ErrMalformedResponse,
			Err:      errors.New("response has no access_token"),
		}
	}

	tokens := tr.tokenSet()
	c.logger.Debug("Token exchange succeeded", "tokens", tokens)
	return tokens, nil
}

func protocolErrorFromBody(status int, body []byte) *ProtocolError {
	var oauthErr struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
		return &ProtocolError{
			Code:        oauthErr.Error,
			Description: oauthErr.ErrorDescription,
			StatusCode:  status,
		}
	}

	raw := strings.TrimSpace(string(body))
	if len(raw) > maxErrorBodyBytes {
		raw = raw[:maxErrorBodyBytes] + "..."
	}
	return &ProtocolError{StatusCode: status, Body: raw}
}

// BuildAuthorizationURL renders the authorization request for one attempt.
// organization is sent as an extra parameter when non-empty.
func BuildAuthorizationURL(endpoints ProviderEndpoints, clientID, redirectURI, scope, organization, state string, pkce *PKCEChallenge) (string, error) {
	if _, err := url.Parse(endpoints.AuthorizationEndpoint); err != nil || endpoints.AuthorizationEndpoint == "" {
		return "", fmt.Errorf("invalid authorization endpoint %q", endpoints.AuthorizationEndpoint)
	}
	if pkce == nil {
		return "", errors.New("PKCE challenge is required")
	}

	cfg := oauth2.Config{
		ClientID:    clientID,
		Endpoint:    endpoints.oauth2Endpoint(),
		RedirectURL: redirectURI,
		Scopes:      strings.Fields(scope),
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", pkce.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.CodeChallengeMethod),
	}
	if organization != "" {
		opts = append(opts, oauth2.SetAuthURLParam("organization", organization))
	}

	return cfg.AuthCodeURL(state, opts...), nil
}
