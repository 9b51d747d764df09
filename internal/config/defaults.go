package config

import "time"

const (
	DefaultPort              = 8000
	DefaultScope             = "openid profile email"
	DefaultTargetOrigin      = "*"
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultSessionTimeout    = 180 * time.Second
	DefaultSecretHeader      = "X-Auth-Secret"
	DefaultSessionTokenField = "sessionToken"

	userConfigDir  = ".config/oidc-authenticator"
	configFileName = "config.yaml"
)

// Default returns the configuration used before any file, environment
// variable or flag is applied.
func Default() Config {
	return Config{
		Scope:        DefaultScope,
		Port:         DefaultPort,
		TargetOrigin: DefaultTargetOrigin,
		HTTPTimeout:  DefaultHTTPTimeout,
		Session: SessionConfig{
			Policy:  SessionPolicyKeyed,
			Timeout: DefaultSessionTimeout,
		},
		Backend: BackendConfig{
			SecretHeader:      DefaultSecretHeader,
			SessionTokenField: DefaultSessionTokenField,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
