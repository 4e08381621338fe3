package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oachat/chat-connector/internal/config"
	"github.com/oachat/chat-connector/internal/session"
)

type scriptedAuthenticator struct {
	loginErrs    []error
	refreshErrs  []error
	loginCount   int
	refreshCount int
	payload      session.Payload
	blockLogin   bool
}

func (sa *scriptedAuthenticator) Login(ctx context.Context, credentials session.Credentials) (session.Payload, error) {
	sa.loginCount++

	if sa.blockLogin {
		<-ctx.Done()
		return session.Payload{}, ctx.Err()
	}

	if len(sa.loginErrs) > 0 {
		err := sa.loginErrs[0]
		sa.loginErrs = sa.loginErrs[1:]
		if err != nil {
			return session.Payload{}, err
		}
	}
	return sa.payload, nil
}

func (sa *scriptedAuthenticator) Refresh(ctx context.Context, current session.Session) (session.Payload, error) {
	sa.refreshCount++

	if len(sa.refreshErrs) > 0 {
		err := sa.refreshErrs[0]
		sa.refreshErrs = sa.refreshErrs[1:]
		if err != nil {
			return session.Payload{}, err
		}
	}
	return sa.payload, nil
}

func testAuthenticatorConfig() *config.Config {
	return &config.Config{
		TransportRetryMaxAttempts: 2,
		TransportRetryBackoffBase: time.Millisecond,
		TransportRetryBackoffCap:  2 * time.Millisecond,
		AuthTimeout:               10 * time.Millisecond,
	}
}

func TestLoginTimesOutInsteadOfBlocking(t *testing.T) {
	raw := &scriptedAuthenticator{blockLogin: true}
	authenticator := NewRetryingAuthenticator(raw, testAuthenticatorConfig())

	started := time.Now()
	_, err := authenticator.Login(context.Background(), session.NewPasswordCredentials("bot-operator@example.com", "secret", "support-bot"))
	elapsed := time.Since(started)

	if err == nil {
		t.Fatal("expected the stalled login to fail")
	}
	if !IsRetryable(err) {
		t.Fatalf("expected the deadline to classify as retryable, got %v", err)
	}
	if elapsed > 3*time.Second {
		t.Fatalf("expected the login to give up within its budget, took %s", elapsed)
	}
	if raw.loginCount != 2 {
		t.Fatalf("expected the configured 2 attempts, got %d", raw.loginCount)
	}
}

func TestLoginRetriesTransientFailures(t *testing.T) {
	raw := &scriptedAuthenticator{
		loginErrs: []error{NewRetryableError("login", errors.New("connection reset")), nil},
		payload:   session.Payload{Token: "tok-1"},
	}
	authenticator := NewRetryingAuthenticator(raw, testAuthenticatorConfig())

	payload, err := authenticator.Login(context.Background(), session.NewPasswordCredentials("bot-operator@example.com", "secret", "support-bot"))

	if err != nil {
		t.Fatal("unexpected error ", err)
	}
	if payload.Token != "tok-1" {
		t.Fatalf("expected the payload from the second attempt, got %+v", payload)
	}
	if raw.loginCount != 2 {
		t.Fatalf("expected 2 login attempts, got %d", raw.loginCount)
	}
}

func TestLoginDoesNotRetryRejectedCredentials(t *testing.T) {
	raw := &scriptedAuthenticator{
		loginErrs: []error{errors.New("bad credentials")},
	}
	authenticator := NewRetryingAuthenticator(raw, testAuthenticatorConfig())

	_, err := authenticator.Login(context.Background(), session.NewPasswordCredentials("bot-operator@example.com", "secret", "support-bot"))

	if err == nil {
		t.Fatal("expected the rejection to surface")
	}
	if IsRetryable(err) {
		t.Fatalf("expected a terminal classification, got %v", err)
	}
	if raw.loginCount != 1 {
		t.Fatalf("expected no retry for rejected credentials, got %d attempts", raw.loginCount)
	}
}

func TestRefreshSurfacesSessionExpiryWithoutRetry(t *testing.T) {
	raw := &scriptedAuthenticator{
		refreshErrs: []error{NewSessionExpiredError("refresh", errors.New("refresh token rejected"))},
	}
	authenticator := NewRetryingAuthenticator(raw, testAuthenticatorConfig())

	_, err := authenticator.Refresh(context.Background(), session.Session{Token: "stale"})

	if !IsSessionExpired(err) {
		t.Fatalf("expected the session expiry to surface, got %v", err)
	}
	if raw.refreshCount != 1 {
		t.Fatalf("expected a single refresh attempt, got %d", raw.refreshCount)
	}
}
