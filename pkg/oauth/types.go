package oauth

import (
	"log/slog"

	"golang.org/x/oauth2"
)

const (
	// DefaultTokenType is assumed when a token response omits token_type.
	DefaultTokenType = "Bearer"

	// DefaultScope is requested when no scope is configured.
	DefaultScope = "openid profile email"
)

// TokenSet is the result of a successful code exchange, or of a configured
// bypass. It lives in memory for one request/response cycle and is never
// written to disk by this package.
type TokenSet struct {
	// AccessToken is a compact JWT or JWE.
	AccessToken string `json:"access_token"`

	// IDToken is the OIDC ID token.
	IDToken string `json:"id_token"`

	// RefreshToken is optional and only relayed, never used.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType defaults to "Bearer".
	TokenType string `json:"token_type"`

	// Scope is the granted scope, space-separated.
	Scope string `json:"scope"`
}

// tokenResponse is the token endpoint's JSON body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
}

func (r tokenResponse) tokenSet() *TokenSet {
	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	return &TokenSet{
		AccessToken:  r.AccessToken,
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		TokenType:    tokenType,
		Scope:        r.Scope,
	}
}

// Redacted returns a copy safe for logging and display.
func (t *TokenSet) Redacted() RedactedTokenSet {
	return RedactedTokenSet{
		AccessToken:  NewRedactedToken(t.AccessToken),
		IDToken:      NewRedactedToken(t.IDToken),
		RefreshToken: NewRedactedToken(t.RefreshToken),
		TokenType:    t.TokenType,
		Scope:        t.Scope,
	}
}

// LogValue implements slog.LogValuer. Only lengths and metadata are emitted.
func (t *TokenSet) LogValue() slog.Value {
	r := t.Redacted()
	return slog.GroupValue(
		slog.Int("access_token_len", r.AccessToken.Len()),
		slog.Int("id_token_len", r.IDToken.Len()),
		slog.Bool("refresh_token", !r.RefreshToken.IsEmpty()),
		slog.String("token_type", r.TokenType),
		slog.String("scope", r.Scope),
	)
}

// RedactedTokenSet mirrors TokenSet with every credential wrapped.
type RedactedTokenSet struct {
	AccessToken  RedactedToken `json:"access_token"`
	IDToken      RedactedToken `json:"id_token"`
	RefreshToken RedactedToken `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	Scope        string        `json:"scope"`
}

// ProviderEndpoints are the two endpoints of the identity provider this
// module talks to. Resolved once per process.
type ProviderEndpoints struct {
	AuthorizationEndpoint string
	TokenEndpoint         string
}

func (e ProviderEndpoints) oauth2Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   e.AuthorizationEndpoint,
		TokenURL:  e.TokenEndpoint,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}
