package session

import (
	"errors"
	"fmt"
)

var (
	// ErrStateMismatch means sessions are pending but none carries the
	// presented state.
	ErrStateMismatch = errors.New("state mismatch: possible replay or CSRF")

	// ErrNoSession means nothing is pending: the attempt expired, was
	// already consumed or never started.
	ErrNoSession = errors.New("no pending session: expired or never started")

	// ErrSessionExpired is the matched-but-too-old case of ErrNoSession.
	ErrSessionExpired = fmt.Errorf("session expired: %w", ErrNoSession)
)

// SecurityError is returned for every rejected callback. It is kept apart
// from ordinary failures because it may indicate CSRF or a stale tab.
type SecurityError struct {
	// Reason is ErrStateMismatch, ErrNoSession or ErrSessionExpired.
	Reason error

	// SessionID is set when a session was matched but rejected.
	SessionID string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("callback rejected: %v", e.Reason)
}

func (e *SecurityError) Unwrap() error {
	return e.Reason
}

// IsSecurityError reports whether err is, or wraps, a *SecurityError.
func IsSecurityError(err error) bool {
	var secErr *SecurityError
	return errors.As(err, &secErr)
}
