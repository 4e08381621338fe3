package transport

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/oachat/chat-connector/internal/config"
	"github.com/oachat/chat-connector/internal/domain"
	"github.com/oachat/chat-connector/internal/platform/logger"
	"github.com/oachat/chat-connector/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var errNoChatControls = errors.New("the configured transport does not support chat control calls")

// SessionSource is the slice of the session manager the client needs.
type SessionSource interface {
	Current() (session.Session, error)
	RefreshOrReauthenticate(ctx context.Context, observed session.Session) (session.Session, error)
}

// RetryingClient wraps the raw transport calls with per-call timeouts,
// bounded retries with jittered exponential backoff, and a single automatic
// re-authentication retry when a call fails only because the session expired.
type RetryingClient struct {
	events      EventSource
	sender      Sender
	controls    ChatControls
	sessions    SessionSource
	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
	pollTimeout time.Duration
	callTimeout time.Duration
}

func NewRetryingClient(events EventSource, sender Sender, controls ChatControls, sessions SessionSource, cfg *config.Config) *RetryingClient {
	return &RetryingClient{
		events:      events,
		sender:      sender,
		controls:    controls,
		sessions:    sessions,
		maxAttempts: cfg.TransportRetryMaxAttempts,
		backoffBase: cfg.TransportRetryBackoffBase,
		backoffCap:  cfg.TransportRetryBackoffCap,
		pollTimeout: cfg.PollTimeout,
		callTimeout: cfg.CallTimeout,
	}
}

func (c *RetryingClient) Poll(ctx context.Context, cursor Cursor) ([]RawEvent, Cursor, error) {
	callDurationTimer := prometheus.NewTimer(metrics.pollDuration)
	defer callDurationTimer.ObserveDuration()

	var batch []RawEvent
	next := cursor

	err := c.call(ctx, "poll", c.pollTimeout, func(callCtx context.Context, sess session.Session) error {
		var pollErr error
		batch, next, pollErr = c.events.Poll(callCtx, sess, cursor)
		return pollErr
	})

	return batch, next, err
}

func (c *RetryingClient) Send(ctx context.Context, msg Message) (Ack, error) {
	var ack Ack

	err := c.call(ctx, "send", c.callTimeout, func(callCtx context.Context, sess session.Session) error {
		var sendErr error
		ack, sendErr = c.sender.Send(callCtx, sess, msg)
		return sendErr
	})

	return ack, err
}

func (c *RetryingClient) SetTyping(ctx context.Context, contactID domain.ContactID) error {
	if c.controls == nil {
		return errNoChatControls
	}

	return c.call(ctx, "setTyping", c.callTimeout, func(callCtx context.Context, sess session.Session) error {
		return c.controls.SetTyping(callCtx, sess, contactID)
	})
}

func (c *RetryingClient) MarkAsRead(ctx context.Context, contactID domain.ContactID, messageID string) error {
	if c.controls == nil {
		return errNoChatControls
	}

	return c.call(ctx, "markAsRead", c.callTimeout, func(callCtx context.Context, sess session.Session) error {
		return c.controls.MarkAsRead(callCtx, sess, contactID, messageID)
	})
}

func (c *RetryingClient) UseManualChat(ctx context.Context, contactID domain.ContactID, expiresAt time.Time) error {
	if c.controls == nil {
		return errNoChatControls
	}

	return c.call(ctx, "useManualChat", c.callTimeout, func(callCtx context.Context, sess session.Session) error {
		return c.controls.UseManualChat(callCtx, sess, contactID, expiresAt)
	})
}

func (c *RetryingClient) call(ctx context.Context, op string, timeout time.Duration, do func(ctx context.Context, sess session.Session) error) error {

	sess, err := c.sessions.Current()
	if err != nil {
		return err
	}

	attempts := 0
	reauthenticated := false

	for {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		err = do(callCtx, sess)
		cancel()

		if err == nil {
			return nil
		}

		err = classifyCallError(op, err)

		if ctx.Err() != nil {
			return err
		}

		if IsSessionExpired(err) && !reauthenticated {
			logger.Log.WithFields(logrus.Fields{"op": op}).Info("Session expired, re-authenticating and retrying the call once")
			metrics.reauthenticateCounter.Inc()

			sess, err = c.sessions.RefreshOrReauthenticate(ctx, sess)
			if err != nil {
				return err
			}

			reauthenticated = true
			continue
		}

		if !IsRetryable(err) {
			metrics.terminalErrorCounter.Inc()
			return err
		}

		attempts++
		if attempts >= c.maxAttempts {
			logger.Log.WithFields(logrus.Fields{"error": err, "op": op, "attempts": attempts}).Error("Transport call failed, retry budget exhausted")
			return err
		}

		metrics.callRetryCounter.Inc()

		if waitErr := sleepWithContext(ctx, BackoffDuration(c.backoffBase, c.backoffCap, attempts)); waitErr != nil {
			return err
		}
	}
}

// BackoffDuration computes a capped exponential backoff with jitter.  The
// jitter spreads retries over the second half of the window so a fleet of
// bots does not hammer the platform in lockstep.
func BackoffDuration(base time.Duration, cap time.Duration, attempt int) time.Duration {
	duration := base
	if duration > cap {
		duration = cap
	}
	for i := 1; i < attempt; i++ {
		duration *= 2
		if duration >= cap {
			duration = cap
			break
		}
	}

	half := duration / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func sleepWithContext(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
