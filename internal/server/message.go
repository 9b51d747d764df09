package server

import (
	"github.com/open-service-portal/oidc-authenticator/internal/session"
	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
)

// MessageVersion is bumped on incompatible changes to DeliveryMessage.
const MessageVersion = 1

// MessageType tells the receiving window what the message carries.
type MessageType string

const (
	// MessageTokenSet carries the full token set.
	MessageTokenSet MessageType = "token-set"

	// MessageDeliveryComplete reports that tokens went to the backend.
	MessageDeliveryComplete MessageType = "delivery-complete"
)

// DeliveryMessage is posted to window.opener by the success page.
// Receivers must check event.origin before trusting it.
type DeliveryMessage struct {
	Version      int             `json:"version"`
	Type         MessageType     `json:"type"`
	Tokens       *oauth.TokenSet `json:"tokens,omitempty"`
	SessionToken string          `json:"sessionToken,omitempty"`
	Success      bool            `json:"success"`

	// Warning is set when the backend relay failed.
	Warning string `json:"warning,omitempty"`
}

// Outcome is reported to the completion hook when an attempt ends.
type Outcome struct {
	// Tokens is set on success.
	Tokens *oauth.TokenSet

	Mode session.DeliveryMode

	// SessionToken is the backend's session token in backend mode.
	SessionToken string

	// SessionID identifies the consumed session; "bypass" for bypass deliveries.
	SessionID string

	// RelayErr is a failed relay. The attempt still counts as a success.
	RelayErr error

	// Err is the reason the attempt failed; nil on success.
	Err error
}

// Success reports whether tokens were obtained.
func (o Outcome) Success() bool {
	return o.Err == nil && o.Tokens != nil
}
