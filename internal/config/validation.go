package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/open-service-portal/oidc-authenticator/pkg/logging"
)

// Validate checks c and returns a ConfigurationErrorCollection listing
// every problem, or nil.
//
// Issuer and client ID are only required when the OIDC flow can actually
// run, i.e. when no complete bypass token pair is configured. A partial
// bypass pair is not an error here; it is reported as a warning when the
// bypass is evaluated and the flow falls through to OIDC.
func (c Config) Validate() error {
	var errs ConfigurationErrorCollection

	if !c.Bypass.Complete() {
		staticEndpoints := c.AuthorizationEndpoint != "" && c.TokenEndpoint != ""
		if c.Issuer == "" && !staticEndpoints {
			errs.AddValidation("issuer", "required unless a complete bypass token pair is configured",
				"set issuer in the config file, OIDC_AUTH_ISSUER or --issuer")
		}
		if c.ClientID == "" {
			errs.AddValidation("client_id", "required unless a complete bypass token pair is configured",
				"set client_id in the config file, OIDC_AUTH_CLIENT_ID or --client-id")
		}
	}

	validateURL(&errs, "issuer", c.Issuer)
	validateURL(&errs, "authorization_endpoint", c.AuthorizationEndpoint)
	validateURL(&errs, "token_endpoint", c.TokenEndpoint)
	validateURL(&errs, "redirect_url", c.RedirectURL)
	validateURL(&errs, "backend.url", c.Backend.URL)

	if (c.AuthorizationEndpoint == "") != (c.TokenEndpoint == "") {
		errs.AddValidation("authorization_endpoint", "authorization_endpoint and token_endpoint must be set together")
	}

	if c.Port < 1 || c.Port > 65535 {
		errs.AddValidation("port", fmt.Sprintf("%d is not a valid TCP port", c.Port))
	}

	switch c.Session.Policy {
	case SessionPolicyKeyed, SessionPolicySingleSlot:
	default:
		errs.AddValidation("session.policy", fmt.Sprintf("unknown policy %q", c.Session.Policy),
			fmt.Sprintf("use %q or %q", SessionPolicyKeyed, SessionPolicySingleSlot))
	}

	if c.Session.Timeout < 0 {
		errs.AddValidation("session.timeout", "must not be negative", "use 0 to disable expiry")
	}
	if c.HTTPTimeout <= 0 {
		errs.AddValidation("http_timeout", "must be positive")
	}

	if c.TargetOrigin == "" {
		errs.AddValidation("target_origin", "must not be empty", `use "*" or an origin such as https://portal.example.com`)
	} else if c.TargetOrigin != "*" {
		if u, err := url.Parse(c.TargetOrigin); err != nil || u.Scheme == "" || u.Host == "" || (u.Path != "" && u.Path != "/") {
			errs.AddValidation("target_origin", fmt.Sprintf("%q is not an origin", c.TargetOrigin),
				"an origin is scheme://host[:port] without a path")
		}
	}

	if c.Backend.Secret != "" && strings.TrimSpace(c.Backend.SecretHeader) == "" {
		errs.AddValidation("backend.secret_header", "required when backend.secret is set")
	}
	if c.Backend.Enabled() && c.Backend.SessionTokenField == "" {
		errs.AddValidation("backend.session_token_field", "must not be empty")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs.AddValidation("log.level", err.Error(), "use debug, info, warn or error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs.AddValidation("log.format", fmt.Sprintf("unknown format %q", c.Log.Format), "use text or json")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateURL(errs *ConfigurationErrorCollection, field, raw string) {
	if raw == "" {
		return
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs.AddValidation(field, fmt.Sprintf("%q is not an absolute URL", raw))
	}
}
