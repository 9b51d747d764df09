package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/open-service-portal/oidc-authenticator/internal/cli"
	"github.com/open-service-portal/oidc-authenticator/internal/config"
	"github.com/open-service-portal/oidc-authenticator/internal/server"
	"github.com/open-service-portal/oidc-authenticator/pkg/logging"
	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
)

// serveCmd runs the callback server until it is interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the callback server until interrupted",
	Long: `Starts the callback server on 127.0.0.1 and keeps it running.

A browser application starts a login by opening
  http://localhost:<port>/              to push tokens to the backend, or
  http://localhost:<port>/?mode=return-tokens   to receive them via postMessage.

GET /health reports whether the server is running. When started by systemd
with Type=notify, readiness is signalled once the port is bound.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, closeLog, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg, newProvider(cfg, logger), logger)
	if err != nil {
		return oops.In("serve").Wrapf(err, "failed to create callback server")
	}

	return serve(ctx, cmd, srv, logger)
}

func serve(ctx context.Context, cmd *cobra.Command, srv *server.Server, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(gctx); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Listening on %s", srv.URL())))
		notifySystemd(logger, daemon.SdNotifyReady)

		select {
		case <-gctx.Done():
			return nil
		case err := <-srv.Err():
			return oops.In("serve").Wrapf(err, "callback server failed")
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		notifySystemd(logger, daemon.SdNotifyStopping)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return oops.In("serve").Wrapf(err, "graceful shutdown failed")
		}
		logger.Info("Callback server stopped")
		return nil
	})

	return g.Wait()
}

func notifySystemd(logger *slog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		logger.Warn("systemd notification failed", "state", state, logging.Err(err))
	case sent:
		logger.Debug("Notified systemd", "state", state)
	}
}

// newProvider returns nil when neither an issuer nor static endpoints are
// configured, which the server accepts only together with bypass tokens.
func newProvider(cfg config.Config, logger *slog.Logger) server.Provider {
	static := cfg.AuthorizationEndpoint != "" && cfg.TokenEndpoint != ""
	if cfg.Issuer == "" && !static {
		return nil
	}

	client := oauth.NewClient(
		oauth.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		oauth.WithLogger(logger),
	)
	return oauth.NewProvider(client, oauth.ProviderConfig{
		Issuer:       cfg.Issuer,
		ClientID:     cfg.ClientID,
		RedirectURL:  cfg.ResolvedRedirectURL(),
		Scope:        cfg.Scope,
		Organization: cfg.Organization,
		Endpoints: oauth.ProviderEndpoints{
			AuthorizationEndpoint: cfg.AuthorizationEndpoint,
			TokenEndpoint:         cfg.TokenEndpoint,
		},
	})
}
