// Package server implements the localhost callback server.
//
// The same origin both starts a login and receives the identity
// provider's redirect:
//
//	GET /                     start a login (302 to the provider)
//	GET /?code=...&state=...  finish it: exchange the code and deliver
//	GET /?error=...           show the provider's error
//	GET /health               liveness, with CORS for browser probes
//
// Tokens reach their consumer in one of two ways. In postMessage mode
// (?mode=return-tokens) the rendered page posts the token set to
// window.opener. Otherwise the tokens are pushed to the configured backend
// and the page posts only the backend's session token.
//
// Every terminal state is reported through the WithOnComplete hook, which
// is how the one-shot login command learns the result.
package server
