package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/open-service-portal/oidc-authenticator/pkg/logging"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OIDC_AUTH_"

// DefaultConfigPath returns ~/.config/oidc-authenticator/config.yaml, or ""
// when the home directory cannot be determined.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, userConfigDir, configFileName)
}

// Load resolves defaults, then the YAML file at path, then environment
// overrides. An empty path, or a missing file at the default path, means
// defaults only. explicit marks path as user-provided, in which case a
// missing file is an error.
//
// Load does not validate; call Validate once flags have been applied.
func Load(path string, explicit bool, logger *slog.Logger) (Config, error) {
	logger = logging.For(logger, "Config")
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decodeStrict(data, &cfg); err != nil {
				return Config{}, ConfigurationError{
					Field:       path,
					ErrorType:   ErrorTypeParse,
					Message:     err.Error(),
					Suggestions: []string{"check the file for typos or removed keys"},
				}
			}
			logger.Info("Loaded configuration", "path", path)
		case errors.Is(err, os.ErrNotExist) && !explicit:
			logger.Debug("No configuration file, using defaults", "path", path)
		default:
			return Config{}, ConfigurationError{
				Field:     path,
				ErrorType: ErrorTypeIO,
				Message:   err.Error(),
			}
		}
	}

	if err := applyEnvOverrides(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func decodeStrict(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	var errs ConfigurationErrorCollection

	str := func(dst *string) func(string) {
		return func(v string) { *dst = v }
	}
	overrides := map[string]func(string){
		"ISSUER":                      str(&cfg.Issuer),
		"CLIENT_ID":                   str(&cfg.ClientID),
		"SCOPE":                       str(&cfg.Scope),
		"ORGANIZATION":                str(&cfg.Organization),
		"REDIRECT_URL":                str(&cfg.RedirectURL),
		"TARGET_ORIGIN":               str(&cfg.TargetOrigin),
		"AUTHORIZATION_ENDPOINT":      str(&cfg.AuthorizationEndpoint),
		"TOKEN_ENDPOINT":              str(&cfg.TokenEndpoint),
		"BACKEND_URL":                 str(&cfg.Backend.URL),
		"BACKEND_SECRET_HEADER":       str(&cfg.Backend.SecretHeader),
		"BACKEND_SECRET":              str(&cfg.Backend.Secret),
		"BACKEND_SESSION_TOKEN_FIELD": str(&cfg.Backend.SessionTokenField),
		"ACCESS_TOKEN":                str(&cfg.Bypass.AccessToken),
		"ID_TOKEN":                    str(&cfg.Bypass.IDToken),
		"LOG_LEVEL":                   str(&cfg.Log.Level),
		"LOG_FORMAT":                  str(&cfg.Log.Format),
		"SESSION_POLICY":              func(v string) { cfg.Session.Policy = SessionPolicy(v) },
		"PORT": func(v string) {
			port, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs.Add(envError("PORT", v, "must be an integer"))
				return
			}
			cfg.Port = port
		},
		"HTTP_TIMEOUT": func(v string) {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs.Add(envError("HTTP_TIMEOUT", v, "must be a duration such as 30s"))
				return
			}
			cfg.HTTPTimeout = d
		},
		"SESSION_TIMEOUT": func(v string) {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs.Add(envError("SESSION_TIMEOUT", v, "must be a duration such as 3m"))
				return
			}
			cfg.Session.Timeout = d
		},
		"BACKEND_FORWARD_COOKIES": func(v string) {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs.Add(envError("BACKEND_FORWARD_COOKIES", v, "must be true or false"))
				return
			}
			cfg.Backend.ForwardCookies = b
		},
	}

	for key, fn := range overrides {
		if val, ok := lookup(EnvPrefix + key); ok {
			fn(val)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func envError(key, value, message string) ConfigurationError {
	return ConfigurationError{
		Field:     EnvPrefix + key,
		ErrorType: ErrorTypeEnv,
		Message:   fmt.Sprintf("%q %s", value, message),
	}
}
