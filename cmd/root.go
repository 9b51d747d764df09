package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/open-service-portal/oidc-authenticator/internal/cli"
	"github.com/open-service-portal/oidc-authenticator/internal/config"
	"github.com/open-service-portal/oidc-authenticator/pkg/logging"
)

// Persistent flags. They override the config file and the environment only
// when given explicitly.
var (
	cfgFile           string
	verbose           bool
	logFormat         string
	logFile           string
	flagPort          int
	flagIssuer        string
	flagClientID      string
	flagOrganization  string
	flagScope         string
	flagBackendURL    string
	flagTargetOrigin  string
	flagSessionPolicy string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "oidc-authenticator",
	Short: "Localhost OIDC login mediator for browser clients",
	Long: `oidc-authenticator runs the OAuth2 Authorization Code flow with PKCE on
behalf of a browser application that cannot receive the redirect itself.

The resulting tokens are handed back to the opening window with postMessage,
or pushed to a backend service which answers with its own session token.

Configuration is read from ~/.config/oidc-authenticator/config.yaml (or
--config), then OIDC_AUTH_* environment variables, then flags.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with the code matching the
// returned error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "oidc-authenticator version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/oidc-authenticator/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")
	pf.IntVarP(&flagPort, "port", "p", config.DefaultPort, "localhost port of the callback server")
	pf.StringVar(&flagIssuer, "issuer", "", "OIDC issuer URL")
	pf.StringVar(&flagClientID, "client-id", "", "OIDC client ID")
	pf.StringVar(&flagOrganization, "organization", "", "organization passed to the authorization endpoint")
	pf.StringVar(&flagScope, "scope", config.DefaultScope, "requested scope")
	pf.StringVar(&flagBackendURL, "backend-url", "", "backend base URL for token relay")
	pf.StringVar(&flagTargetOrigin, "target-origin", config.DefaultTargetOrigin, "postMessage target origin")
	pf.StringVar(&flagSessionPolicy, "session-policy", string(config.SessionPolicyKeyed), "session store policy: keyed or single-slot")

	rootCmd.AddCommand(newVersionCmd())
}

// printError writes err for a human, with the detailed configuration report
// and any hint attached on the way up.
func printError(w io.Writer, err error) {
	var coll config.ConfigurationErrorCollection
	if errors.As(err, &coll) {
		fmt.Fprintln(w, cli.FormatError(errors.New(coll.GetDetailedReport())))
		return
	}

	fmt.Fprintln(w, cli.FormatError(err))

	if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Hint() != "" {
		fmt.Fprintln(w, cli.FormatWarning(oopsErr.Hint()))
		return
	}
	var connErr *cli.ConnectionError
	if errors.As(err, &connErr) && connErr.Hint() != "" {
		fmt.Fprintln(w, cli.FormatWarning(connErr.Hint()))
	}
}

// applyFlags copies the persistent flags that were set explicitly into cfg.
func applyFlags(changed func(name string) bool, cfg *config.Config) {
	str := map[string]struct {
		dst *string
		val string
	}{
		"issuer":        {&cfg.Issuer, flagIssuer},
		"client-id":     {&cfg.ClientID, flagClientID},
		"organization":  {&cfg.Organization, flagOrganization},
		"scope":         {&cfg.Scope, flagScope},
		"backend-url":   {&cfg.Backend.URL, flagBackendURL},
		"target-origin": {&cfg.TargetOrigin, flagTargetOrigin},
		"log-format":    {&cfg.Log.Format, logFormat},
	}
	for name, f := range str {
		if changed(name) {
			*f.dst = f.val
		}
	}

	if changed("port") {
		cfg.Port = flagPort
	}
	if changed("session-policy") {
		cfg.Session.Policy = config.SessionPolicy(flagSessionPolicy)
	}
	if verbose {
		cfg.Log.Level = logging.LevelDebug.String()
	}
}

// loadConfig resolves the configuration for cmd. validate is false for
// commands that only need the port.
func loadConfig(cmd *cobra.Command, validate bool) (config.Config, error) {
	path := cfgFile
	explicit := cmd.Flags().Changed("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path, explicit, nil)
	if err != nil {
		return config.Config{}, oops.
			In("config").
			With("path", path).
			Wrapf(err, "failed to load configuration")
	}

	applyFlags(cmd.Flags().Changed, &cfg)

	if validate {
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// newLogger builds the process logger. The returned func closes the log
// file, if one was opened.
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, config.ConfigurationError{Field: "log.level", ErrorType: config.ErrorTypeValidation, Message: err.Error()}
	}

	opts := logging.Options{Level: level, Format: cfg.Log.Format}
	closer := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, oops.
				In("logging").
				With("path", logFile).
				Hint("check that the directory exists and is writable").
				Wrapf(err, "failed to open log file")
		}
		opts.Output = f
		closer = func() { _ = f.Close() }
	}

	logger, err := logging.New(opts)
	if err != nil {
		closer()
		return nil, nil, config.ConfigurationError{Field: "log.format", ErrorType: config.ErrorTypeValidation, Message: err.Error()}
	}
	return logger, closer, nil
}

// setup loads and validates the configuration and builds the logger.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, func(), error) {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	logger.Debug("Configuration resolved",
		"port", cfg.Port,
		"issuer", cfg.Issuer,
		"policy", string(cfg.Session.Policy),
		"backend", cfg.Backend.URL,
		"bypass", cfg.Bypass.Complete())
	return cfg, logger, closer, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
