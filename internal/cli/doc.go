// Package cli holds the presentation and error plumbing shared by the
// oidc-authenticator commands.
//
// Output is rendered either as rounded go-pretty tables, as plain
// kubectl-style columns for piping, or as JSON. Errors that reach the
// command boundary are mapped to process exit codes by ExitCode:
//
//	0  success
//	1  unexpected error
//	2  configuration error
//	3  authentication failed
//	4  login timed out
//
// CheckHealth probes a running authenticator and classifies transport
// failures into ConnectionError values that carry a user-facing hint.
package cli
