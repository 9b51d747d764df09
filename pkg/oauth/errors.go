package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnreachable means the token or discovery request never got
	// an HTTP response.
	ErrProviderUnreachable = errors.New("could not reach identity provider")

	// ErrMalformedResponse means the provider answered 2xx with a body that
	// is not JSON or carries no access_token.
	ErrMalformedResponse = errors.New("malformed response from identity provider")
)

// ProtocolError is a rejection by the identity provider: either the error
// parameters of an authorization callback or a non-2xx token response.
type ProtocolError struct {
	// Code is the OAuth error code, e.g. "access_denied" or "invalid_grant".
	Code string

	// Description is the provider's error_description, if any.
	Description string

	// StatusCode is the HTTP status of a token response; 0 for callbacks.
	StatusCode int

	// Body is the raw response body when the provider sent no error fields.
	Body string
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("identity provider returned %s: %s", e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("identity provider returned %s", e.Code)
	case e.Body != "":
		return fmt.Sprintf("identity provider returned status %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("identity provider returned status %d", e.StatusCode)
	}
}

// Is matches any *ProtocolError.
func (e *ProtocolError) Is(target error) bool {
	_, ok := target.(*ProtocolError)
	return ok
}

// TransportError wraps ErrProviderUnreachable or ErrMalformedResponse with
// the endpoint and the underlying cause.
type TransportError struct {
	// Endpoint is the URL that was called.
	Endpoint string

	// Kind is ErrProviderUnreachable or ErrMalformedResponse.
	Kind error

	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", e.Kind, e.Endpoint)
	}
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Endpoint, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsUnreachable reports whether err is a network failure towards the provider.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrProviderUnreachable)
}

// IsMalformed reports whether err is an unparseable provider response.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}
