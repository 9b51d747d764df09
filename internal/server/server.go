// Package server implements the loopback HTTP server that starts an
// authorization attempt, receives the provider's callback and delivers the
// resulting tokens to the opening browser window or the portal backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/open-service-portal/oidc-authenticator/internal/bypass"
	"github.com/open-service-portal/oidc-authenticator/internal/config"
	"github.com/open-service-portal/oidc-authenticator/internal/relay"
	"github.com/open-service-portal/oidc-authenticator/internal/session"
	"github.com/open-service-portal/oidc-authenticator/pkg/logging"
	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
)

// ShutdownTimeout bounds a graceful Stop.
const ShutdownTimeout = 5 * time.Second

// Provider is the identity provider side of the flow.
type Provider interface {
	AuthorizationURL(ctx context.Context, state string, pkce *oauth.PKCEChallenge) (string, error)
	Exchange(ctx context.Context, code, codeVerifier string) (*oauth.TokenSet, error)
}

// TokenRelay pushes tokens to the portal backend.
type TokenRelay interface {
	Push(ctx context.Context, tokens *oauth.TokenSet, cookie string) (*relay.Result, error)
}

// Server is the callback server. Create it with New.
type Server struct {
	cfg        config.Config
	provider   Provider
	sessions   *session.Manager
	relay      TokenRelay
	bypass     *oauth.TokenSet
	pages      *pages
	logger     *slog.Logger
	onComplete func(Outcome)
	handler    http.Handler

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	errCh      chan error
}

// Option configures a Server.
type Option func(*Server)

// WithSessionManager replaces the session manager built from cfg.Session.
func WithSessionManager(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// WithRelay replaces the relay built from cfg.Backend. A nil relay
// disables relaying.
func WithRelay(r TokenRelay) Option {
	return func(s *Server) {
		s.relay = r
	}
}

// WithOnComplete registers fn to be called once per finished attempt,
// after the response page was written.
func WithOnComplete(fn func(Outcome)) Option {
	return func(s *Server) {
		s.onComplete = fn
	}
}

// New creates a Server. provider may be nil only when cfg carries a
// complete bypass.
func New(cfg config.Config, provider Provider, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		provider: provider,
		logger:   logging.For(logger, "Server"),
		errCh:    make(chan error, 1),
	}

	if cfg.Backend.Enabled() {
		r, err := relay.New(cfg.Backend, &http.Client{Timeout: cfg.HTTPTimeout}, logger)
		if err != nil {
			return nil, err
		}
		s.relay = r
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.sessions == nil {
		s.sessions = session.NewManager(cfg.Session, logger)
	}

	s.bypass = bypass.TryBypass(cfg.Bypass, logger)
	if s.bypass == nil && provider == nil {
		return nil, errors.New("an identity provider is required unless bypass tokens are configured")
	}

	p, err := newPages(cfg.TargetOrigin)
	if err != nil {
		return nil, err
	}
	s.pages = p
	s.handler = s.routes()

	return s, nil
}

// Handler returns the HTTP handler; tests mount it on httptest servers.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the loopback listener and serves in the background until
// ctx is cancelled or Stop is called. Serve failures arrive on Err.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return errors.New("server already started")
	}

	addr := s.cfg.ListenAddr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return oops.
			In("server").
			With("addr", addr).
			Hint("another process may be using the port; pick a different one with --port").
			Wrapf(err, "failed to start callback server on %s", addr)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		_ = s.Stop(stopCtx)
	}()

	s.logger.Info("Callback server listening",
		"addr", listener.Addr().String(),
		"policy", string(s.sessions.Policy()),
		"bypass", s.bypass != nil,
		"relay", s.relay != nil)
	return nil
}

// Err delivers a failure of the background serve loop.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return fmt.Sprintf("http://%s", addr)
}

// Stop gracefully shuts the server down. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("Callback server stopping", "pending_sessions", s.sessions.Pending())
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) complete(o Outcome) {
	if s.onComplete != nil {
		s.onComplete(o)
	}
}
