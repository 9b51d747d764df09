// Package logging builds the slog loggers used across oidc-authenticator.
//
// There is no package-level logger. The command layer calls New once with
// the resolved configuration and hands the result to every constructor,
// which derives its own child with For:
//
//	logger, err := logging.New(logging.Options{Level: logging.LevelInfo, Format: "json"})
//	sessions := session.NewManager(cfg, logging.For(logger, "Session"))
//
// # Levels
//
//   - Debug: protocol detail (discovered endpoints, token sizes)
//   - Info: lifecycle (server started, flow delivered)
//   - Warn: recoverable trouble (relay failed, partial bypass config)
//   - Error: failures that end a flow
//
// # Audit logging
//
// Security decisions go through Audit, which tags records with
// event=security and truncates session identifiers:
//
//	logging.Audit(logger, logging.AuditEvent{
//	    Action:  "callback",
//	    Outcome: "rejected",
//	    Reason:  "state mismatch",
//	})
//
// Token values are never logged; see oauth.TokenSet.LogValue.
package logging
