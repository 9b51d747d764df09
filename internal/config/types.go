package config

import (
	"fmt"
	"time"
)

// SessionPolicy selects how pending authorization attempts are stored.
type SessionPolicy string

const (
	// SessionPolicyKeyed keeps one attempt per state value, so several tabs
	// can run a flow against the same daemon.
	SessionPolicyKeyed SessionPolicy = "keyed"

	// SessionPolicySingleSlot keeps only the most recent attempt; a new
	// initiation silently replaces an unconsumed one.
	SessionPolicySingleSlot SessionPolicy = "single-slot"
)

// Config is the fully resolved configuration. It is built once by the
// command layer and passed by value; nothing mutates it afterwards.
type Config struct {
	// Issuer is the OIDC issuer URL used for discovery.
	Issuer string `yaml:"issuer"`

	// ClientID is the public client registered at the issuer.
	ClientID string `yaml:"client_id"`

	// Scope is the space-separated scope requested at authorization.
	Scope string `yaml:"scope"`

	// Organization is forwarded as the "organization" authorization parameter.
	Organization string `yaml:"organization"`

	// Port is the localhost port of the callback server.
	Port int `yaml:"port"`

	// RedirectURL overrides the derived http://localhost:<port> redirect URI.
	RedirectURL string `yaml:"redirect_url"`

	// TargetOrigin is the postMessage target origin of rendered pages.
	TargetOrigin string `yaml:"target_origin"`

	// AuthorizationEndpoint and TokenEndpoint skip discovery when both are set.
	AuthorizationEndpoint string `yaml:"authorization_endpoint"`
	TokenEndpoint         string `yaml:"token_endpoint"`

	// HTTPTimeout bounds every outbound request.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	Session SessionConfig `yaml:"session"`
	Backend BackendConfig `yaml:"backend"`
	Bypass  BypassConfig  `yaml:"bypass"`
	Log     LogConfig     `yaml:"log"`
}

// SessionConfig configures the session manager.
type SessionConfig struct {
	Policy SessionPolicy `yaml:"policy"`

	// Timeout after which an unconsumed attempt is treated as absent.
	// Zero disables expiry.
	Timeout time.Duration `yaml:"timeout"`
}

// BackendConfig configures the token relay.
type BackendConfig struct {
	// URL is the backend base URL; empty disables relaying.
	URL string `yaml:"url"`

	// ForwardCookies copies the callback request's Cookie header to the relay request.
	ForwardCookies bool `yaml:"forward_cookies"`

	// SecretHeader and Secret authenticate the relay request when set.
	SecretHeader string `yaml:"secret_header"`
	Secret       string `yaml:"secret"`

	// SessionTokenField names the response field carrying the downstream session token.
	SessionTokenField string `yaml:"session_token_field"`
}

// Enabled reports whether a backend URL is configured.
func (b BackendConfig) Enabled() bool {
	return b.URL != ""
}

// BypassConfig is a pre-obtained token pair that replaces the OIDC flow.
type BypassConfig struct {
	AccessToken string `yaml:"access_token"`
	IDToken     string `yaml:"id_token"`
}

// Complete reports whether both tokens are present.
func (b BypassConfig) Complete() bool {
	return b.AccessToken != "" && b.IDToken != ""
}

// Partial reports whether exactly one token is present.
func (b BypassConfig) Partial() bool {
	return (b.AccessToken == "") != (b.IDToken == "")
}

// LogConfig configures the logger built by the command layer.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ListenAddr is the loopback address the callback server binds to.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

// ResolvedRedirectURL returns RedirectURL or the default derived from Port.
func (c Config) ResolvedRedirectURL() string {
	if c.RedirectURL != "" {
		return c.RedirectURL
	}
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// LoginURL is the initiation URL for a postMessage flow on this daemon.
func (c Config) LoginURL() string {
	return fmt.Sprintf("http://localhost:%d/?mode=return-tokens", c.Port)
}

// HealthURL is the health endpoint of this daemon.
func (c Config) HealthURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/health", c.Port)
}
