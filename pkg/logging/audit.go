package logging

import (
	"context"
	"log/slog"
)

// AuditEvent describes a security-relevant decision, such as a rejected
// callback state.
type AuditEvent struct {
	// Action is what was attempted, e.g. "callback" or "relay".
	Action string
	// Outcome is "success", "rejected" or "failed".
	Outcome string
	// SessionID is truncated before logging.
	SessionID string
	// Reason explains a non-success outcome.
	Reason string
	// RemoteAddr is the peer of the triggering request, if any.
	RemoteAddr string
}

// Audit logs e at WARN for rejections and INFO otherwise, tagged with
// event=security so that log pipelines can route it separately.
func Audit(logger *slog.Logger, e AuditEvent) {
	if logger == nil {
		return
	}

	level := slog.LevelInfo
	if e.Outcome != "success" {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("event", "security"),
		slog.String("action", e.Action),
		slog.String("outcome", e.Outcome),
	}
	if e.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", TruncateSessionID(e.SessionID)))
	}
	if e.Reason != "" {
		attrs = append(attrs, slog.String("reason", e.Reason))
	}
	if e.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", e.RemoteAddr))
	}

	logger.LogAttrs(context.Background(), level, "[AUDIT] "+e.Action+" "+e.Outcome, attrs...)
}

// TruncateSessionID keeps the first eight characters of id.
func TruncateSessionID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
