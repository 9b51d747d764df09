package cmd

import (
	"bytes"
	"context"
	"net"
	"net/url"
	"os"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/open-service-portal/oidc-authenticator/internal/config"
	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
)

// resetFlags restores every package-level flag variable after the test.
func resetFlags(t *testing.T) {
	t.Helper()

	strs := []*string{
		&cfgFile, &logFormat, &logFile,
		&flagIssuer, &flagClientID, &flagOrganization, &flagScope,
		&flagBackendURL, &flagTargetOrigin, &flagSessionPolicy,
		&loginOutput, &statusFormat,
	}
	bools := []*bool{&verbose, &loginNoBrowser, &decodeJSON}

	savedStrs := make([]string, len(strs))
	for i, p := range strs {
		savedStrs[i] = *p
	}
	savedBools := make([]bool, len(bools))
	for i, p := range bools {
		savedBools[i] = *p
	}
	port, timeout, open := flagPort, loginTimeout, openBrowser

	t.Cleanup(func() {
		for i, p := range strs {
			*p = savedStrs[i]
		}
		for i, p := range bools {
			*p = savedBools[i]
		}
		flagPort, loginTimeout, openBrowser = port, timeout, open
	})
}

// isolateEnv points HOME at an empty directory and clears the variables
// that would otherwise leak into config loading.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"ISSUER", "CLIENT_ID", "PORT", "ACCESS_TOKEN", "ID_TOKEN", "BACKEND_URL",
		"SESSION_POLICY", "TARGET_ORIGIN", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv("OIDC_AUTH_"+key, "")
		require.NoError(t, os.Unsetenv("OIDC_AUTH_"+key))
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

// stubProvider authorizes at a fixed URL and accepts the code "good".
type stubProvider struct {
	tokens *oauth.TokenSet
}

func (p *stubProvider) AuthorizationURL(_ context.Context, state string, _ *oauth.PKCEChallenge) (string, error) {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state), nil
}

func (p *stubProvider) Exchange(_ context.Context, code, _ string) (*oauth.TokenSet, error) {
	if code != "good" {
		return nil, &oauth.ProtocolError{Code: "invalid_grant", StatusCode: 400}
	}
	return p.tokens, nil
}

// testCommand returns a command carrying the persistent flags, bound to the
// package variables, with flags set as if given on the command line.
func testCommand(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	resetFlags(t)

	c := &cobra.Command{Use: "test"}
	f := c.Flags()
	f.StringVar(&cfgFile, "config", "", "")
	f.BoolVar(&verbose, "verbose", false, "")
	f.StringVar(&logFormat, "log-format", "", "")
	f.StringVar(&logFile, "log-file", "", "")
	f.IntVar(&flagPort, "port", config.DefaultPort, "")
	f.StringVar(&flagIssuer, "issuer", "", "")
	f.StringVar(&flagClientID, "client-id", "", "")
	f.StringVar(&flagOrganization, "organization", "", "")
	f.StringVar(&flagScope, "scope", config.DefaultScope, "")
	f.StringVar(&flagBackendURL, "backend-url", "", "")
	f.StringVar(&flagTargetOrigin, "target-origin", config.DefaultTargetOrigin, "")
	f.StringVar(&flagSessionPolicy, "session-policy", string(config.SessionPolicyKeyed), "")

	for name, value := range flags {
		require.NoError(t, f.Set(name, value))
	}

	c.SetOut(&bytes.Buffer{})
	c.SetErr(&bytes.Buffer{})
	c.SetContext(context.Background())
	return c
}

func stdout(c *cobra.Command) string {
	return c.OutOrStdout().(*bytes.Buffer).String()
}
