// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/vfriends/vfriends/internal/observability"
	"github.com/vfriends/vfriends/internal/secret"
	"github.com/vfriends/vfriends/internal/vrchat"
	"github.com/vfriends/vfriends/pkg/errutil"
)

// User-facing messages.
const (
	msgCredentialsRequired = "Please enter your username and password."
	msgEnterCode           = "Please enter your 2FA code"
	msgSelectMethod        = "Please select a 2FA method"
	msgSessionNotFound     = "2FA session not found. Please log in again"
	msgAnotherMethod       = "Another 2FA method is required"
	msgUnsupportedMethod   = "Unsupported 2FA method."
	msgLockFailed          = "Failed to lock auth state"
	msgResetFailed         = "Failed to reset auth state"
)

// PipelineController starts and stops the event stream for a session.
type PipelineController interface {
	// Start begins streaming with the token found in cookieHeader and
	// reports whether a stream was started.
	Start(cookieHeader, userAgent string) bool
	Stop()
}

// ManagerConfig holds the Manager's collaborators. Clients and Secrets are
// required.
type ManagerConfig struct {
	Clients  ClientFactory
	Secrets  secret.Store
	Pipeline PipelineController
	Events   Emitter
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Manager runs the login protocol against the single process session.
type Manager struct {
	clients  ClientFactory
	secrets  secret.Store
	pipeline PipelineController
	events   Emitter
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	session session
}

// NewManager creates a Manager whose session is hydrated from the persisted
// cookie, if any. No network call is made.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Clients == nil {
		return nil, oops.Errorf("client factory is required")
	}
	if cfg.Secrets == nil {
		return nil, oops.Errorf("secret store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Manager{
		clients:  cfg.Clients,
		secrets:  cfg.Secrets,
		pipeline: cfg.Pipeline,
		events:   cfg.Events,
		logger:   logger,
		metrics:  cfg.Metrics,
	}

	cookie, err := m.secrets.Get()
	switch {
	case errors.Is(err, secret.ErrNotFound):
		cookie = ""
	case err != nil:
		errutil.LogWarn(logger, "failed to read saved session", err)
		cookie = ""
	}

	client, err := m.clients(cookie)
	if err != nil && cookie != "" {
		errutil.LogWarn(logger, "failed to restore saved cookies", err)
		client, err = m.clients("")
	}
	if err != nil {
		return nil, oops.Code("AUTH_CLIENT").Wrap(err)
	}
	m.session.client = client
	return m, nil
}

// BeginLogin submits credentials. Empty input fails without any network
// call. On an error the credentials are cleared so they are never retried
// implicitly.
func (m *Manager) BeginLogin(ctx context.Context, username, password string) Outcome {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return m.emit(failure(msgCredentialsRequired, ""))
	}

	var client APIClient
	if err := m.withSession(func(s *session) error {
		if err := m.resetLocked(s); err != nil {
			return err
		}
		s.client.SetCredentials(username, password)
		client = s.client
		return nil
	}); err != nil {
		return m.emitError(err)
	}
	m.emit(started(ActionCredentials))

	result, err := client.CurrentUser(ctx)
	if err != nil {
		if clearErr := m.withSession(func(s *session) error {
			s.client.ClearCredentials()
			return nil
		}); clearErr != nil {
			errutil.LogError(m.logger, "clear credentials after failed login", clearErr)
		}
		return m.emitError(err)
	}

	if result.RequiresTwoFactor() {
		if err := m.withSession(func(s *session) error {
			s.pendingTwoFactor = true
			return nil
		}); err != nil {
			return m.emitError(err)
		}
		return m.emit(twoFactorRequired(result.TwoFactorMethods, msgEnterCode))
	}

	return m.finalize(toUser(result.User))
}

// VerifyTwoFactor submits a second-factor code for the pending login.
// Failures leave the pending flag unchanged so the user can retry.
func (m *Manager) VerifyTwoFactor(ctx context.Context, code, method string) Outcome {
	code = strings.TrimSpace(code)
	method = strings.TrimSpace(method)
	if code == "" {
		return m.emit(failure(msgEnterCode, ""))
	}
	if method == "" {
		return m.emit(failure(msgSelectMethod, ""))
	}

	var (
		client  APIClient
		pending bool
	)
	if err := m.withSession(func(s *session) error {
		client, pending = s.client, s.pendingTwoFactor
		return nil
	}); err != nil {
		return m.emitError(err)
	}
	if !pending {
		return m.emit(failure(msgSessionNotFound, ""))
	}

	m.emit(started(ActionTwoFactor))

	parsed, err := ParseTwoFactorMethod(method)
	if err != nil {
		return m.emitError(err)
	}
	if err := parsed.verify(ctx, client, code); err != nil {
		return m.emitError(err)
	}

	result, err := client.CurrentUser(ctx)
	if err != nil {
		return m.emitError(err)
	}
	if result.RequiresTwoFactor() {
		if err := m.withSession(func(s *session) error {
			s.pendingTwoFactor = true
			return nil
		}); err != nil {
			return m.emitError(err)
		}
		return m.emit(twoFactorRequired(result.TwoFactorMethods, msgAnotherMethod))
	}

	return m.finalize(toUser(result.User))
}

// RestoreSession validates a persisted cookie. It returns nil without a
// network call when there is none. A rejected cookie (401/403 or a new
// second-factor challenge) clears the session and durable storage; any
// other error is treated as transient and leaves the session untouched.
func (m *Manager) RestoreSession(ctx context.Context) *User {
	var client APIClient
	if err := m.withSession(func(s *session) error {
		client = s.client
		return nil
	}); err != nil {
		errutil.LogError(m.logger, "restore session", err)
		return nil
	}
	if client.CookieHeader() == "" {
		return nil
	}

	result, err := client.CurrentUser(ctx)
	if err != nil {
		if vrchat.IsAuthError(err) {
			m.logger.Info("saved session rejected, clearing", "code", vrchat.ErrorCode(err))
			m.invalidate()
			return nil
		}
		errutil.LogWarn(m.logger, "session restore failed, keeping saved session", err)
		return nil
	}
	if result.RequiresTwoFactor() {
		m.logger.Info("saved session requires a second factor, clearing")
		m.invalidate()
		return nil
	}

	user := toUser(result.User)
	if o := m.finalize(user); o.Type != OutcomeSuccess {
		return nil
	}
	return user
}

// Logout stops the pipeline, resets the session and forgets the persisted
// cookie. It is safe to call with no active session.
func (m *Manager) Logout() Outcome {
	if m.pipeline != nil {
		m.pipeline.Stop()
	}
	if err := m.withSession(m.resetLocked); err != nil {
		errutil.LogError(m.logger, "reset session on logout", err)
	}
	m.clearSaved()
	return m.emit(Outcome{Type: OutcomeLoggedOut})
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		PendingTwoFactor: m.session.pendingTwoFactor,
		HasCredentials:   m.session.client.HasCredentials(),
		HasCookie:        m.session.client.CookieHeader() != "",
		User:             m.session.user,
	}
}

// Client returns the current session's API client.
func (m *Manager) Client() APIClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.client
}

// finalize completes a login: it clears the pending flag and credentials,
// persists the cookie (failures are only logged), hands the cookie to the
// pipeline and emits Success.
func (m *Manager) finalize(user *User) Outcome {
	var cookie, userAgent string
	if err := m.withSession(func(s *session) error {
		s.pendingTwoFactor = false
		s.client.ClearCredentials()
		s.user = user
		cookie = s.client.CookieHeader()
		userAgent = s.client.UserAgent()
		return nil
	}); err != nil {
		return m.emitError(err)
	}

	if cookie != "" {
		if err := m.secrets.Set(cookie); err != nil {
			errutil.LogWarn(m.logger, "failed to save session cookie", err)
		}
	}
	if m.pipeline != nil && !m.pipeline.Start(cookie, userAgent) {
		m.logger.Warn("event pipeline not started: no auth token in session cookie")
	}

	return m.emit(success(user))
}

func (m *Manager) invalidate() {
	if err := m.withSession(m.resetLocked); err != nil {
		errutil.LogError(m.logger, "reset session", err)
	}
	m.clearSaved()
}

func (m *Manager) clearSaved() {
	if err := m.secrets.Delete(); err != nil && !errors.Is(err, secret.ErrNotFound) {
		errutil.LogWarn(m.logger, "failed to clear saved session", err)
	}
}

// resetLocked replaces the session with a clean, cookie-less one.
func (m *Manager) resetLocked(s *session) error {
	client, err := m.clients("")
	if err != nil {
		return oops.Code("AUTH_CLIENT").Public(msgResetFailed).Wrap(err)
	}
	*s = session{client: client}
	return nil
}

// withSession runs fn under the session lock. A panic inside fn is
// contained: the lock is released and a generic error is returned.
func (m *Manager) withSession(fn func(*session) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = oops.Code("AUTH_LOCK").
				Public(msgLockFailed).
				Errorf("auth state update panicked: %v", r)
		}
	}()
	return fn(&m.session)
}

func (m *Manager) emitError(err error) Outcome {
	errutil.LogWarn(m.logger, "auth operation failed", err)
	return m.emit(failure(errutil.PublicMessage(err), vrchat.ErrorCode(err)))
}

func (m *Manager) emit(o Outcome) Outcome {
	m.metrics.AuthOutcome(string(o.Type))
	if o.Type != OutcomeStarted {
		m.logger.Debug("auth outcome", "type", string(o.Type), "message", o.Message)
	}
	if m.events != nil {
		m.events.Emit(o)
	}
	return o
}
