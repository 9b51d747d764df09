package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/open-service-portal/oidc-authenticator/internal/config"
	"github.com/open-service-portal/oidc-authenticator/internal/session"
	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitConfig     = 2
	ExitAuthFailed = 3
	ExitTimeout    = 4
)

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a network connectivity error (e.g., refused, unreachable).
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError is a failure to reach an endpoint, categorized for
// user feedback.
type ConnectionError struct {
	// Endpoint is the URL that could not be reached.
	Endpoint string
	// Type categorizes the connection error.
	Type ConnectionErrorType
	// Reason is the underlying error.
	Reason error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s reaching %s: %v", e.Type, e.Endpoint, e.Reason)
}

func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// Hint suggests what to do about the failure.
func (e *ConnectionError) Hint() string {
	switch e.Type {
	case ConnectionErrorNetwork:
		return "Is the authenticator running? Start it with: oidc-authenticator serve"
	case ConnectionErrorDNS:
		return "Check the host name in the URL."
	case ConnectionErrorTimeout:
		return "The endpoint did not answer in time; it may be overloaded or blocked by a firewall."
	case ConnectionErrorTLS:
		return "The certificate could not be verified."
	default:
		return ""
	}
}

// ClassifyConnectionError analyzes an error and returns a ConnectionError with the appropriate type.
// If the error is nil, returns nil.
func ClassifyConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil {
		return nil
	}

	ce := &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorUnknown, Reason: err}

	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		ce.Type = ConnectionErrorTLS
	case errors.As(err, &dnsErr):
		ce.Type = ConnectionErrorDNS
	case isTimeoutError(err):
		ce.Type = ConnectionErrorTimeout
	case isNetworkError(err.Error()):
		ce.Type = ConnectionErrorNetwork
	}
	return ce
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	var systemRootsErr *x509.SystemRootsError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if the error is a timeout.
func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if the error string indicates a network connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// TimeoutError means the one-shot login gave up waiting for the browser.
type TimeoutError struct {
	// Timeout is the limit that elapsed.
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(`Login timed out after %s

No callback arrived from the browser. To retry with more time, run:
  oidc-authenticator login --timeout %s`, e.Timeout, 2*e.Timeout)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *TimeoutError) Is(target error) bool {
	_, ok := target.(*TimeoutError)
	return ok
}

// AuthFailedError indicates authentication failed.
type AuthFailedError struct {
	// Issuer is the identity provider that was used.
	Issuer string
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthFailedError) Error() string {
	issuer := e.Issuer
	if issuer == "" {
		issuer = "the identity provider"
	}
	return fmt.Sprintf(`Authentication failed at %s: %v

To retry authentication, run:
  oidc-authenticator login`, issuer, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cfgErr  config.ConfigurationError
		cfgColl config.ConfigurationErrorCollection
		perr    *oauth.ProtocolError
		terr    *oauth.TransportError
	)
	switch {
	case errors.Is(err, &TimeoutError{}):
		return ExitTimeout
	case errors.As(err, &cfgErr), errors.As(err, &cfgColl):
		return ExitConfig
	case errors.Is(err, &AuthFailedError{}),
		errors.As(err, &perr),
		errors.As(err, &terr),
		session.IsSecurityError(err):
		return ExitAuthFailed
	default:
		return ExitError
	}
}
