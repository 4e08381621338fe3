package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oachat/chat-connector/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

var ErrNotAuthenticated = errors.New("no authenticated session")

// AuthError indicates the platform rejected the credentials or that a refresh
// could not be recovered by a full re-login.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Cause)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Authenticator is the slice of the transport boundary the Manager needs.
type Authenticator interface {
	Login(ctx context.Context, credentials Credentials) (Payload, error)
	Refresh(ctx context.Context, current Session) (Payload, error)
}

// Manager owns the one current Session.  All authenticate/refresh attempts
// are serialized behind the mutex so concurrent callers that observe an
// expired session await the single in-flight attempt instead of issuing
// duplicate login calls.
type Manager struct {
	mu            sync.Mutex
	authenticator Authenticator
	credentials   Credentials
	sessionTTL    time.Duration
	current       Session
	authenticated bool
}

func NewManager(authenticator Authenticator, credentials Credentials, sessionTTL time.Duration) (*Manager, error) {
	if err := credentials.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	return &Manager{
		authenticator: authenticator,
		credentials:   credentials,
		sessionTTL:    sessionTTL,
	}, nil
}

// Authenticate performs a full login and installs the resulting session as
// the current one.
func (m *Manager) Authenticate(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.login(ctx)
}

// Current returns a copy of the current session.  It never triggers network
// activity.
func (m *Manager) Current() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authenticated {
		return Session{}, ErrNotAuthenticated
	}

	return m.current, nil
}

// RefreshOrReauthenticate replaces the session the caller observed as
// expired.  When multiple callers race here, the first one through the lock
// performs the network call.  The rest find a newer valid session already
// installed and return it without another round trip.
func (m *Manager) RefreshOrReauthenticate(ctx context.Context, observed Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.authenticated && m.current.generation != observed.generation && m.current.Valid(time.Now()) {
		logger.Log.Debug("Session was already refreshed by a concurrent caller")
		return m.current, nil
	}

	if m.authenticated && m.current.RefreshToken != "" {
		payload, err := m.authenticator.Refresh(ctx, m.current)
		if err == nil {
			return m.install(payload), nil
		}

		logger.Log.WithFields(logrus.Fields{"error": err}).Warn("Session refresh failed, falling back to a full login")
	}

	return m.login(ctx)
}

func (m *Manager) login(ctx context.Context) (Session, error) {
	payload, err := m.authenticator.Login(ctx, m.credentials)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"error": err, "credentials": m.credentials.String()}).Error("Login failed")
		return Session{}, &AuthError{Cause: err}
	}

	logger.Log.Info("Authenticated with the chat platform")

	return m.install(payload), nil
}

func (m *Manager) install(payload Payload) Session {
	expiresAt := payload.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = tokenExpiry(payload.Token, time.Now(), m.sessionTTL)
	}

	m.current = Session{
		Token:        payload.Token,
		XSRFToken:    payload.XSRFToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    expiresAt,
		generation:   m.current.generation + 1,
	}
	m.authenticated = true

	return m.current
}
