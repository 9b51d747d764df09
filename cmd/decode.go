package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/open-service-portal/oidc-authenticator/internal/cli"
	"github.com/open-service-portal/oidc-authenticator/pkg/claims"
	pkgstrings "github.com/open-service-portal/oidc-authenticator/pkg/strings"
)

var decodeJSON bool

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode [token]",
	Short: "Show the unverified header and claims of a token",
	Long: `Decodes a compact JWT or JWE for inspection. The token is taken from the
argument or, when omitted, from stdin.

Signatures are NOT verified. Encrypted tokens only show their protected
header.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(decodeCmd)
}

type decodeView struct {
	Kind   claims.Kind    `json:"kind"`
	Header map[string]any `json:"header,omitempty"`
	Claims map[string]any `json:"claims,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read token from stdin: %w", err)
		}
		token = string(data)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("no token given")
	}

	res := claims.Decode(token)
	view := decodeView{Kind: res.Kind, Header: res.Header, Claims: res.Claims}
	if res.Err != nil {
		view.Error = res.Err.Error()
	}

	out := cmd.OutOrStdout()
	if decodeJSON {
		if err := cli.PrintJSON(out, view); err != nil {
			return err
		}
	} else {
		printDecodeTable(out, view)
	}

	if res.Kind == claims.KindError {
		return fmt.Errorf("token could not be decoded: %w", res.Err)
	}
	return nil
}

func printDecodeTable(out io.Writer, view decodeView) {
	tbl := cli.NewTable(cli.FormatTable, out)
	tbl.SetHeaders([]string{"Section", "Key", "Value"})
	tbl.AppendRow([]string{"token", "kind", string(view.Kind)})
	appendSection(tbl, "header", view.Header)
	appendSection(tbl, "claims", view.Claims)
	tbl.Render()

	if view.Kind == claims.KindEncrypted {
		fmt.Fprintln(out, cli.FormatWarning("encrypted token: claims need the recipient's key"))
	}
}

func appendSection(tbl cli.Table, section string, values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		tbl.AppendRow([]string{section, k, pkgstrings.TruncateValue(fmt.Sprint(values[k]), pkgstrings.DefaultValueMaxLen)})
	}
}
