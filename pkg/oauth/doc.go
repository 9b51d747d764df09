// Package oauth implements the client side of the OAuth 2.0 Authorization
// Code flow with PKCE (RFC 6749, RFC 7636) against an OpenID Connect
// provider.
//
// # Components
//
//   - PKCE: verifier/challenge, state and nonce generation
//   - Client: endpoint discovery (go-oidc) and the code-for-token exchange
//   - Provider: a Client bound to one client registration
//   - TokenSet: the exchanged tokens, with redaction helpers for logging
//
// # Errors
//
// Token endpoint failures are reported in three distinguishable forms so
// that callers can show a different message for each:
//
//	var protoErr *oauth.ProtocolError
//	switch {
//	case errors.As(err, &protoErr):  // provider said no
//	case oauth.IsMalformed(err):     // 2xx, but not a token response
//	case oauth.IsUnreachable(err):   // no response at all
//	}
package oauth
