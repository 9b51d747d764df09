package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnreachable means the relay request got no HTTP response.
	ErrBackendUnreachable = errors.New("backend unreachable")

	// ErrBackendStatus means the backend answered with a non-2xx status.
	ErrBackendStatus = errors.New("backend rejected tokens")

	// ErrBackendMalformed means a 2xx body was not JSON.
	ErrBackendMalformed = errors.New("malformed backend response")
)

// Error describes a failed relay. Relay failures never fail the login
// itself; callers surface them as a warning.
type Error struct {
	// Kind is one of the Err* sentinels of this package.
	Kind error

	// Endpoint is the URL that was called.
	Endpoint string

	// StatusCode is set for ErrBackendStatus and ErrBackendMalformed.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("token relay to %s failed: %v", e.Endpoint, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
