package session

import (
	"time"

	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
)

// DeliveryMode decides where the tokens of a completed attempt go.
type DeliveryMode string

const (
	// PostMessageToOpener hands the token set to the opening window.
	PostMessageToOpener DeliveryMode = "postMessageToOpener"

	// PushToBackend relays the token set to the configured backend and
	// hands only the backend's session token to the opening window.
	PushToBackend DeliveryMode = "pushToBackend"
)

// ReturnTokensMode is the initiation query value that selects PostMessageToOpener.
const ReturnTokensMode = "return-tokens"

// ModeFromQuery maps the "mode" query parameter of an initiation request
// to a DeliveryMode. Anything but "return-tokens" keeps the backend push.
func ModeFromQuery(mode string) DeliveryMode {
	if mode == ReturnTokensMode {
		return PostMessageToOpener
	}
	return PushToBackend
}

// AuthSession is one in-flight browser authorization attempt.
type AuthSession struct {
	// ID correlates log lines; it is never used for lookup.
	ID string

	// CodeVerifier never leaves the process except in the token request.
	CodeVerifier string

	// CodeChallenge is the S256 hash sent with the authorization request.
	CodeChallenge string

	// State binds the callback to this attempt.
	State string

	// DeliveryMode is fixed at creation.
	DeliveryMode DeliveryMode

	CreatedAt time.Time
}

// Age returns how old the session is at now.
func (s *AuthSession) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// PKCE returns the session's verifier/challenge pair.
func (s *AuthSession) PKCE() *oauth.PKCEChallenge {
	return &oauth.PKCEChallenge{
		CodeVerifier:        s.CodeVerifier,
		CodeChallenge:       s.CodeChallenge,
		CodeChallengeMethod: oauth.ChallengeMethodS256,
	}
}
