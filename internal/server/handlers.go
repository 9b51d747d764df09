package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/open-service-portal/oidc-authenticator/internal/session"
	"github.com/open-service-portal/oidc-authenticator/pkg/logging"
	"github.com/open-service-portal/oidc-authenticator/pkg/oauth"
)

// BypassSessionID marks outcomes produced from bypass tokens.
const BypassSessionID = "bypass"

type healthResponse struct {
	Status string  `json:"status"`
	Issuer *string `json:"issuer"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "running"}
	if s.cfg.Issuer != "" {
		issuer := s.cfg.Issuer
		resp.Issuer = &issuer
	}

	// cors only answers requests carrying an Origin header; plain fetches
	// from other tools still expect the wildcard.
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleRoot serves both the initiation and the provider's redirect back,
// since the registered redirect URI is the server root.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("code") != "" || q.Get("error") != "" {
		s.handleCallback(w, r)
		return
	}
	s.handleInitiation(w, r)
}

func (s *Server) handleInitiation(w http.ResponseWriter, r *http.Request) {
	mode := session.ModeFromQuery(r.URL.Query().Get("mode"))

	if s.bypass != nil {
		s.logger.Info("Delivering bypass tokens", "mode", string(mode))
		s.deliver(w, r, mode, s.bypass, BypassSessionID)
		return
	}

	sess, err := s.sessions.Begin(mode)
	if err != nil {
		s.logger.Error("Failed to start authorization session", logging.Err(err))
		s.pages.fail(w, http.StatusInternalServerError, errorPage{
			Title: "Could not start login",
			Hint:  "Generating secure random values failed.",
			Retry: true,
		})
		return
	}

	authURL, err := s.provider.AuthorizationURL(r.Context(), sess.State, sess.PKCE())
	if err != nil {
		// Drop the session, nobody will ever call back for it.
		_, _ = s.sessions.Consume(sess.State)

		s.logger.Error("Failed to build authorization URL", "session", sess.ID, logging.Err(err))
		s.pages.fail(w, http.StatusBadGateway, errorPage{
			Title:       "Could not reach the identity provider",
			Description: err.Error(),
			Hint:        "Check the issuer setting and your network connection.",
			Retry:       true,
		})
		s.complete(Outcome{Mode: mode, SessionID: sess.ID, Err: err})
		return
	}

	s.logger.Info("Redirecting to identity provider", "session", sess.ID, "mode", string(mode))
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if code := q.Get("error"); code != "" {
		s.handleProviderError(w, r, &oauth.ProtocolError{
			Code:        code,
			Description: q.Get("error_description"),
		})
		return
	}

	sess, err := s.sessions.Consume(q.Get("state"))
	if err != nil {
		var secErr *session.SecurityError
		errors.As(err, &secErr)
		logging.Audit(s.logger, logging.AuditEvent{
			Action:     "callback",
			Outcome:    "rejected",
			SessionID:  sessionIDOf(secErr),
			Reason:     err.Error(),
			RemoteAddr: r.RemoteAddr,
		})

		s.pages.fail(w, http.StatusBadRequest, errorPage{
			Title:       "Login request rejected",
			Description: securityDescription(err),
			Retry:       true,
		})
		return
	}

	logging.Audit(s.logger, logging.AuditEvent{
		Action:     "callback",
		Outcome:    "success",
		SessionID:  sess.ID,
		RemoteAddr: r.RemoteAddr,
	})

	tokens, err := s.provider.Exchange(r.Context(), q.Get("code"), sess.CodeVerifier)
	if err != nil {
		s.logger.Error("Token exchange failed", "session", sess.ID, logging.Err(err))
		s.pages.fail(w, http.StatusBadGateway, exchangeErrorPage(err))
		s.complete(Outcome{Mode: sess.DeliveryMode, SessionID: sess.ID, Err: err})
		return
	}

	s.logger.Info("Token exchange succeeded", "session", sess.ID, "tokens", tokens)
	s.deliver(w, r, sess.DeliveryMode, tokens, sess.ID)
}

// handleProviderError renders the provider's error. Only an error carrying
// the state of a pending session ends that session; anything else is audited
// and leaves pending logins untouched.
func (s *Server) handleProviderError(w http.ResponseWriter, r *http.Request, perr *oauth.ProtocolError) {
	outcome := Outcome{Err: perr}
	matched := false
	if state := r.URL.Query().Get("state"); state != "" {
		if sess, err := s.sessions.Consume(state); err == nil {
			outcome.SessionID = sess.ID
			outcome.Mode = sess.DeliveryMode
			matched = true
		}
	}

	s.logger.Warn("Identity provider returned an error",
		"code", perr.Code,
		"description", perr.Description,
		"session", outcome.SessionID)

	if !matched {
		logging.Audit(s.logger, logging.AuditEvent{
			Action:     "callback",
			Outcome:    "rejected",
			Reason:     "provider error without a pending session",
			RemoteAddr: r.RemoteAddr,
		})
	}

	s.pages.fail(w, http.StatusOK, errorPage{
		Title:       "Authentication failed",
		Code:        perr.Code,
		Description: perr.Description,
		Retry:       true,
	})
	if matched {
		s.complete(outcome)
	}
}

func (s *Server) deliver(w http.ResponseWriter, r *http.Request, mode session.DeliveryMode, tokens *oauth.TokenSet, sessionID string) {
	outcome := Outcome{Tokens: tokens, Mode: mode, SessionID: sessionID}
	msg := DeliveryMessage{Version: MessageVersion, Success: true}

	switch mode {
	case session.PostMessageToOpener:
		msg.Type = MessageTokenSet
		msg.Tokens = tokens
	default:
		msg.Type = MessageDeliveryComplete
		if s.relay == nil {
			s.logger.Warn("No backend configured, tokens were not relayed", "session", sessionID)
			msg.Warning = "No backend is configured, so the tokens were not delivered."
			break
		}

		result, err := s.relay.Push(r.Context(), tokens, r.Header.Get("Cookie"))
		if err != nil {
			s.logger.Warn("Token relay failed", "session", sessionID, logging.Err(err))
			msg.Warning = "Login succeeded, but the tokens could not be delivered to the portal backend."
			outcome.RelayErr = err
			break
		}
		msg.SessionToken = result.SessionToken
		outcome.SessionToken = result.SessionToken
	}

	s.pages.delivery(w, msg)
	s.complete(outcome)
}

func exchangeErrorPage(err error) errorPage {
	var perr *oauth.ProtocolError
	switch {
	case errors.As(err, &perr):
		desc := perr.Description
		if desc == "" {
			desc = perr.Body
		}
		return errorPage{
			Title:       "The identity provider rejected the login",
			Code:        perr.Code,
			Description: desc,
			Retry:       true,
		}
	case oauth.IsUnreachable(err):
		return errorPage{
			Title: "Could not reach the identity provider",
			Hint:  "Check your network connection.",
			Retry: true,
		}
	case oauth.IsMalformed(err):
		return errorPage{
			Title: "Unexpected response from the identity provider",
			Hint:  "The token endpoint did not return a usable token set.",
		}
	default:
		return errorPage{
			Title:       "Token exchange failed",
			Description: err.Error(),
			Retry:       true,
		}
	}
}

func securityDescription(err error) string {
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		return "The login took too long and has expired."
	case errors.Is(err, session.ErrNoSession):
		return "No login is in progress. It may have expired or already completed."
	default:
		return "The response did not match the login in progress. This can indicate a replayed or forged request."
	}
}

func sessionIDOf(secErr *session.SecurityError) string {
	if secErr == nil {
		return ""
	}
	return secErr.SessionID
}
