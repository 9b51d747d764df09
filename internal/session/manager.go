package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/open-service-portal/oidc-authenticator/internal/config"
	"github.com/open-service-portal/oidc-authenticator/pkg/logging"
	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
)

// Manager creates and consumes authorization sessions under one policy.
// It is safe for concurrent use.
type Manager struct {
	policy  config.SessionPolicy
	timeout time.Duration
	store   store
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now; tests use it to age sessions.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager returns a Manager for the given session settings. An unknown
// policy falls back to keyed; config validation rejects it earlier.
func NewManager(cfg config.SessionConfig, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		policy:  cfg.Policy,
		timeout: cfg.Timeout,
		now:     time.Now,
		logger:  logging.For(logger, "Session"),
	}
	for _, opt := range opts {
		opt(m)
	}

	switch cfg.Policy {
	case config.SessionPolicySingleSlot:
		m.store = &singleSlotStore{}
	default:
		m.policy = config.SessionPolicyKeyed
		m.store = newKeyedStore(cfg.Timeout)
	}
	return m
}

// Policy returns the effective session policy.
func (m *Manager) Policy() config.SessionPolicy {
	return m.policy
}

// Begin creates and stores a fresh session with new PKCE material and
// state. Under the single-slot policy it replaces any pending session.
func (m *Manager) Begin(mode DeliveryMode) (*AuthSession, error) {
	pkce, err := oauth.GeneratePKCE()
	if err != nil {
		return nil, err
	}
	state, err := oauth.GenerateState()
	if err != nil {
		return nil, err
	}

	sess := &AuthSession{
		ID:            uuid.NewString(),
		CodeVerifier:  pkce.CodeVerifier,
		CodeChallenge: pkce.CodeChallenge,
		State:         state,
		DeliveryMode:  mode,
		CreatedAt:     m.now(),
	}

	if replaced := m.store.put(sess); replaced != nil {
		m.logger.Warn("Replaced unconsumed session",
			"replaced_session", replaced.ID,
			"age", replaced.Age(sess.CreatedAt).Round(time.Millisecond))
	}

	m.logger.Debug("Session started",
		"session", sess.ID,
		"mode", string(mode),
		"state", logging.TruncateSessionID(state),
		"pending", m.Pending())
	return sess, nil
}

// Consume looks up the session for state and removes it. It succeeds at
// most once per session; every failure is a *SecurityError.
func (m *Manager) Consume(state string) (*AuthSession, error) {
	sess, err := m.store.take(state)
	if err != nil {
		return nil, &SecurityError{Reason: err}
	}

	if m.timeout > 0 && sess.Age(m.now()) > m.timeout {
		return nil, &SecurityError{Reason: ErrSessionExpired, SessionID: sess.ID}
	}
	return sess, nil
}

// Pending returns the number of sessions awaiting a callback, expired ones
// not yet reclaimed included.
func (m *Manager) Pending() int {
	return m.store.len()
}
