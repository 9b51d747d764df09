package oauth

import (
	"context"
	"errors"
)

// ProviderConfig describes the registration of this client at one
// identity provider.
type ProviderConfig struct {
	Issuer       string
	ClientID     string
	RedirectURL  string
	Scope        string
	Organization string

	// Endpoints skips discovery when both fields are set.
	Endpoints ProviderEndpoints
}

// Provider binds a Client to one provider registration. It is what the
// callback server talks to.
type Provider struct {
	client *Client
	cfg    ProviderConfig
}

// NewProvider creates a Provider. A nil client gets a default Client.
func NewProvider(client *Client, cfg ProviderConfig) *Provider {
	if client == nil {
		client = NewClient()
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	return &Provider{client: client, cfg: cfg}
}

// Issuer returns the configured issuer URL.
func (p *Provider) Issuer() string {
	return p.cfg.Issuer
}

// Endpoints returns the configured endpoints, or discovers them from the issuer.
func (p *Provider) Endpoints(ctx context.Context) (ProviderEndpoints, error) {
	if p.cfg.Endpoints.AuthorizationEndpoint != "" && p.cfg.Endpoints.TokenEndpoint != "" {
		return p.cfg.Endpoints, nil
	}
	if p.cfg.Issuer == "" {
		return ProviderEndpoints{}, errors.New("no issuer configured")
	}
	return p.client.Endpoints(ctx, p.cfg.Issuer)
}

// AuthorizationURL returns the URL the browser is redirected to.
func (p *Provider) AuthorizationURL(ctx context.Context, state string, pkce *PKCEChallenge) (string, error) {
	ep, err := p.Endpoints(ctx)
	if err != nil {
		return "", err
	}
	return BuildAuthorizationURL(ep, p.cfg.ClientID, p.cfg.RedirectURL, p.cfg.Scope, p.cfg.Organization, state, pkce)
}

// Exchange trades code and the attempt's verifier for a TokenSet.
func (p *Provider) Exchange(ctx context.Context, code, codeVerifier string) (*TokenSet, error) {
	ep, err := p.Endpoints(ctx)
	if err != nil {
		return nil, err
	}
	return p.client.ExchangeCode(ctx, ep.TokenEndpoint, code, p.cfg.RedirectURL, p.cfg.ClientID, codeVerifier)
}
