package transport

import (
	"context"
	"time"

	"github.com/oachat/chat-connector/internal/config"
	"github.com/oachat/chat-connector/internal/platform/logger"
	"github.com/oachat/chat-connector/internal/session"

	"github.com/sirupsen/logrus"
)

// Authenticator is the raw login/refresh boundary the wrapper covers.
type Authenticator interface {
	Login(ctx context.Context, credentials session.Credentials) (session.Payload, error)
	Refresh(ctx context.Context, current session.Session) (session.Payload, error)
}

// RetryingAuthenticator gives login and refresh the same treatment the
// RetryingClient gives the other calls: a per-attempt timeout and bounded
// retries with jittered backoff for transient failures.  Rejected
// credentials and other terminal errors surface immediately.
type RetryingAuthenticator struct {
	authenticator Authenticator
	maxAttempts   int
	backoffBase   time.Duration
	backoffCap    time.Duration
	authTimeout   time.Duration
}

func NewRetryingAuthenticator(authenticator Authenticator, cfg *config.Config) *RetryingAuthenticator {
	return &RetryingAuthenticator{
		authenticator: authenticator,
		maxAttempts:   cfg.TransportRetryMaxAttempts,
		backoffBase:   cfg.TransportRetryBackoffBase,
		backoffCap:    cfg.TransportRetryBackoffCap,
		authTimeout:   cfg.AuthTimeout,
	}
}

func (a *RetryingAuthenticator) Login(ctx context.Context, credentials session.Credentials) (session.Payload, error) {
	var payload session.Payload

	err := a.attempt(ctx, "login", func(callCtx context.Context) error {
		var loginErr error
		payload, loginErr = a.authenticator.Login(callCtx, credentials)
		return loginErr
	})

	return payload, err
}

func (a *RetryingAuthenticator) Refresh(ctx context.Context, current session.Session) (session.Payload, error) {
	var payload session.Payload

	err := a.attempt(ctx, "refresh", func(callCtx context.Context) error {
		var refreshErr error
		payload, refreshErr = a.authenticator.Refresh(callCtx, current)
		return refreshErr
	})

	return payload, err
}

func (a *RetryingAuthenticator) attempt(ctx context.Context, op string, do func(ctx context.Context) error) error {
	attempts := 0

	for {
		callCtx, cancel := context.WithTimeout(ctx, a.authTimeout)
		err := do(callCtx)
		cancel()

		if err == nil {
			return nil
		}

		err = classifyCallError(op, err)

		if ctx.Err() != nil {
			return err
		}

		if !IsRetryable(err) {
			return err
		}

		attempts++
		if attempts >= a.maxAttempts {
			logger.Log.WithFields(logrus.Fields{"error": err, "op": op, "attempts": attempts}).Error("Authentication call failed, retry budget exhausted")
			return err
		}

		metrics.callRetryCounter.Inc()

		if waitErr := sleepWithContext(ctx, BackoffDuration(a.backoffBase, a.backoffCap, attempts)); waitErr != nil {
			return err
		}
	}
}
