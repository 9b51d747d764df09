package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/open-service-portal/oidc-authenticator/internal/cli"
)

var statusFormat string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the callback server is running",
	Long: `Queries GET /health of the callback server on the configured port and
prints its state and issuer.

Exits non-zero when the server cannot be reached.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "output", "o", string(cli.FormatTable), "output format: table, plain or json")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	format, err := cli.ParseOutputFormat(statusFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}

	url := cfg.HealthURL()
	health, err := cli.CheckHealth(commandContext(cmd), nil, url)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		return cli.PrintJSON(out, struct {
			*cli.Health
			URL string `json:"url"`
		}{health, url})
	}

	tbl := cli.NewTable(format, out)
	tbl.SetHeaders([]string{"Status", "URL", "Issuer"})
	tbl.AppendRow([]string{health.Status, url, health.IssuerOrNone()})
	tbl.Render()

	if health.Status != "running" {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("unexpected status %q", health.Status)))
	}
	return nil
}
