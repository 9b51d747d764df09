package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/pkg/browser"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/open-service-portal/oidc-authenticator/internal/bypass"
	"github.com/open-service-portal/oidc-authenticator/internal/cli"
	"github.com/open-service-portal/oidc-authenticator/internal/config"
	"github.com/open-service-portal/oidc-authenticator/internal/server"
	"github.com/open-service-portal/oidc-authenticator/pkg/claims"
	"github.com/open-service-portal/oidc-authenticator/pkg/logging"
	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
	pkgstrings "github.com/open-service-portal/oidc-authenticator/pkg/strings"
)

// DefaultLoginTimeout bounds a one-shot login.
const DefaultLoginTimeout = 180 * time.Second

// Login-specific flags
var (
	loginTimeout   time.Duration
	loginOutput    string
	loginNoBrowser bool
)

// openBrowser opens the login URL. Tests replace it.
var openBrowser = browser.OpenURL

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in once in the browser and print the result",
	Long: `Starts the callback server, opens the browser at the login URL and waits
for the identity provider to redirect back.

On success a summary of the ID token claims is printed. With --output the
token set is written as JSON to the given file (mode 0600).

When bypass tokens are configured they are used directly and no browser is
opened.

Examples:
  oidc-authenticator login
  oidc-authenticator login --no-browser --timeout 5m
  oidc-authenticator login --output tokens.json`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", DefaultLoginTimeout, "how long to wait for the browser to complete the login")
	loginCmd.Flags().StringVarP(&loginOutput, "output", "o", "", "write the token set as JSON to this file")
	loginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "print the login URL instead of opening a browser")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cfg, logger, closeLog, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	out := cmd.OutOrStdout()

	tokens := bypass.TryBypass(cfg.Bypass, logger)
	if tokens != nil {
		fmt.Fprintln(out, cli.FormatWarning("Using configured bypass tokens, no browser login performed"))
	} else {
		tokens, err = interactiveLogin(commandContext(cmd), cmd, cfg, newProvider(cfg, logger), logger)
		if err != nil {
			return err
		}
	}

	return reportTokens(out, tokens)
}

// interactiveLogin runs one browser flow and waits for its outcome or the
// login timeout.
func interactiveLogin(ctx context.Context, cmd *cobra.Command, cfg config.Config, provider server.Provider, logger *slog.Logger) (*oauth.TokenSet, error) {
	outcomes := make(chan server.Outcome, 1)
	srv, err := server.New(cfg, provider, logger, server.WithOnComplete(func(o server.Outcome) {
		select {
		case outcomes <- o:
		default:
		}
	}))
	if err != nil {
		return nil, oops.In("login").Wrapf(err, "failed to create callback server")
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer stopCancel()
		_ = srv.Stop(stopCtx)
	}()

	out := cmd.OutOrStdout()
	loginURL := cfg.LoginURL()
	if loginNoBrowser {
		fmt.Fprintf(out, "Open this URL in your browser to log in:\n  %s\n", loginURL)
	} else if err := openBrowser(loginURL); err != nil {
		logger.Warn("Could not open browser", logging.Err(err))
		fmt.Fprintf(out, "Could not open a browser. Open this URL to log in:\n  %s\n", loginURL)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = " Waiting for the browser login..."
	s.Start()
	defer s.Stop()

	select {
	case o := <-outcomes:
		if !o.Success() {
			return nil, &cli.AuthFailedError{Issuer: cfg.Issuer, Reason: o.Err}
		}
		return o.Tokens, nil
	case err := <-srv.Err():
		return nil, oops.In("login").Wrapf(err, "callback server failed")
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &cli.TimeoutError{Timeout: loginTimeout}
		}
		return nil, ctx.Err()
	}
}

// reportTokens prints the claim summary and writes --output.
func reportTokens(out io.Writer, tokens *oauth.TokenSet) error {
	if loginOutput != "" {
		if err := writeTokenFile(loginOutput, tokens); err != nil {
			return oops.
				In("login").
				With("path", loginOutput).
				Wrapf(err, "failed to write tokens")
		}
	}

	fmt.Fprintln(out, cli.FormatSuccess("Login successful"))

	summary := claims.Decode(tokens.IDToken).Summarize()
	tbl := cli.NewTable(cli.FormatTable, out)
	tbl.SetHeaders([]string{"Claim", "Value"})
	for _, row := range [][2]string{
		{"subject", summary.Subject},
		{"name", summary.Name},
		{"email", summary.Email},
		{"issuer", summary.Issuer},
		{"expires", summary.ExpiresAt},
		{"scope", tokens.Scope},
	} {
		if row[1] != "" {
			tbl.AppendRow([]string{row[0], pkgstrings.TruncateValue(row[1], pkgstrings.DefaultValueMaxLen)})
		}
	}
	tbl.Render()

	if loginOutput != "" {
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Tokens written to %s", loginOutput)))
	}
	return nil
}

func writeTokenFile(path string, tokens *oauth.TokenSet) error {
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	// An existing file keeps its mode on open.
	if err := f.Chmod(0o600); err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}
