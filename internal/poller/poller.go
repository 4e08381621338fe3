package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oachat/chat-connector/internal/config"
	"github.com/oachat/chat-connector/internal/cursor_repository"
	"github.com/oachat/chat-connector/internal/dispatch"
	"github.com/oachat/chat-connector/internal/domain"
	"github.com/oachat/chat-connector/internal/events"
	"github.com/oachat/chat-connector/internal/platform/logger"
	"github.com/oachat/chat-connector/internal/session"
	"github.com/oachat/chat-connector/internal/transport"

	"github.com/sirupsen/logrus"
)

type State string

const (
	StateIdle           State = "idle"
	StateAuthenticating State = "authenticating"
	StatePolling        State = "polling"
	StateBackoff        State = "backoff"
	StateStopped        State = "stopped"
)

// FatalError is surfaced from Run when the failure budget is exhausted or the
// initial authentication cannot be recovered.
type FatalError struct {
	ConsecutiveFailures int
	Cause               error
}

func (fe *FatalError) Error() string {
	return fmt.Sprintf("poll loop aborted after %d consecutive failures: %v", fe.ConsecutiveFailures, fe.Cause)
}

func (fe *FatalError) Unwrap() error {
	return fe.Cause
}

// EventClient is the slice of the transport client the poller drives.
type EventClient interface {
	Poll(ctx context.Context, cursor transport.Cursor) ([]transport.RawEvent, transport.Cursor, error)
}

// SessionManager is the slice of the session manager the poller needs.
type SessionManager interface {
	Authenticate(ctx context.Context) (session.Session, error)
	Current() (session.Session, error)
	RefreshOrReauthenticate(ctx context.Context, observed session.Session) (session.Session, error)
}

// EventDispatcher delivers one classified event to its handlers.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event events.Event) []*dispatch.HandlerError
}

// BotIdentity exposes which bot the authenticated session belongs to.  Used
// to key the persisted poll cursor.
type BotIdentity interface {
	Bot() domain.BotInfo
}

// EventPoller is the single loop that owns network I/O:  authenticate, poll
// a batch, dedup, classify, dispatch synchronously, repeat.  Dispatch of a
// batch completes before the next poll is issued, so per-event ordering
// holds and the dedup window has a single writer.
type EventPoller struct {
	sessions   SessionManager
	client     EventClient
	dispatcher EventDispatcher
	window     *events.Window
	cursors    cursor_repository.CursorStore
	identity   BotIdentity

	pollInterval           time.Duration
	backoffBase            time.Duration
	backoffCap             time.Duration
	maxConsecutiveFailures int

	lock     sync.Mutex
	state    State
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewEventPoller(sessions SessionManager, client EventClient, dispatcher EventDispatcher, window *events.Window, cursors cursor_repository.CursorStore, identity BotIdentity, cfg *config.Config) *EventPoller {
	return &EventPoller{
		sessions:               sessions,
		client:                 client,
		dispatcher:             dispatcher,
		window:                 window,
		cursors:                cursors,
		identity:               identity,
		pollInterval:           cfg.PollInterval,
		backoffBase:            cfg.PollerBackoffBase,
		backoffCap:             cfg.PollerBackoffCap,
		maxConsecutiveFailures: cfg.PollerMaxConsecutiveFailures,
		state:                  StateIdle,
		stopChan:               make(chan struct{}),
	}
}

func (p *EventPoller) State() State {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.state
}

func (p *EventPoller) setState(state State) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.state != state {
		logger.Log.WithFields(logrus.Fields{"from": p.state, "to": state}).Debug("Poller state transition")
		p.state = state
	}
}

// Stop signals the loop to halt.  The transition is observed at the next
// iteration boundary, the in-flight batch is always dispatched to completion.
func (p *EventPoller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
}

func (p *EventPoller) stopRequested(ctx context.Context) bool {
	select {
	case <-p.stopChan:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Run drives the loop until Stop is called, the context is cancelled, or the
// consecutive-failure budget is exhausted.  Only budget exhaustion returns an
// error, a FatalError.
func (p *EventPoller) Run(ctx context.Context) error {
	p.setState(StateAuthenticating)

	if _, err := p.sessions.Authenticate(ctx); err != nil {
		p.setState(StateStopped)
		return &FatalError{Cause: err}
	}

	cursor := p.loadCursor(ctx)

	consecutiveFailures := 0
	p.setState(StatePolling)

	for {
		if p.stopRequested(ctx) {
			p.setState(StateStopped)
			return nil
		}

		batch, next, err := p.client.Poll(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				p.setState(StateStopped)
				return nil
			}

			consecutiveFailures++
			metrics.pollFailureCounter.Inc()

			if consecutiveFailures >= p.maxConsecutiveFailures {
				fatal := &FatalError{ConsecutiveFailures: consecutiveFailures, Cause: err}
				logger.LogError("Poll loop failure budget exhausted", fatal)
				p.setState(StateStopped)
				return fatal
			}

			if !p.backoffAndRecover(ctx, err, consecutiveFailures) {
				p.setState(StateStopped)
				return nil
			}

			p.setState(StatePolling)
			continue
		}

		consecutiveFailures = 0
		cursor = next

		p.deliverBatch(ctx, batch)
		p.saveCursor(ctx, cursor)

		if p.pollInterval > 0 {
			if !p.sleep(ctx, p.pollInterval) {
				p.setState(StateStopped)
				return nil
			}
		}
	}
}

// backoffAndRecover waits out the capped backoff for this failure streak and,
// when the failure was a session expiry the transport client could not clear
// on its own, replaces the session.  Returns false when a stop arrived during
// the wait.
func (p *EventPoller) backoffAndRecover(ctx context.Context, pollErr error, consecutiveFailures int) bool {
	p.setState(StateBackoff)
	metrics.backoffCounter.Inc()

	wait := transport.BackoffDuration(p.backoffBase, p.backoffCap, consecutiveFailures)

	logger.Log.WithFields(logrus.Fields{
		"error":                pollErr,
		"consecutive_failures": consecutiveFailures,
		"backoff":              wait,
	}).Warn("Poll failed, backing off")

	if !p.sleep(ctx, wait) {
		return false
	}

	if transport.IsSessionExpired(pollErr) {
		observed, err := p.sessions.Current()
		if err != nil && !errors.Is(err, session.ErrNotAuthenticated) {
			return true
		}

		if _, err := p.sessions.RefreshOrReauthenticate(ctx, observed); err != nil {
			logger.LogError("Re-authentication during backoff failed", err)
		}
	}

	return true
}

// deliverBatch processes one poll batch in arrival order:  skip identifiers
// already in the dedup window, classify, dispatch synchronously, then mark
// the identifier delivered.
func (p *EventPoller) deliverBatch(ctx context.Context, batch []transport.RawEvent) {
	if len(batch) > 0 {
		metrics.batchCounter.Inc()
	}

	for _, raw := range batch {
		if p.window.Seen(raw.ID) {
			logger.Log.WithFields(logrus.Fields{"event_id": raw.ID}).Debug("Skipping duplicate event")
			continue
		}

		event := events.Classify(raw)
		p.dispatcher.Dispatch(ctx, event)
		p.window.Add(raw.ID)

		metrics.deliveredCounter.Inc()
	}
}

func (p *EventPoller) loadCursor(ctx context.Context) transport.Cursor {
	botID := p.botID()
	if botID == "" {
		return ""
	}

	cursor, err := p.cursors.Load(ctx, botID)
	if err != nil {
		if !errors.Is(err, cursor_repository.ErrCursorNotFound) {
			logger.LogError("Unable to load the persisted poll cursor", err)
		}
		return ""
	}

	logger.Log.WithFields(logrus.Fields{"bot_id": botID, "cursor": cursor}).Info("Resuming from persisted poll cursor")

	return cursor
}

func (p *EventPoller) saveCursor(ctx context.Context, cursor transport.Cursor) {
	botID := p.botID()
	if botID == "" || cursor == "" {
		return
	}

	if err := p.cursors.Save(ctx, botID, cursor); err != nil {
		logger.LogError("Unable to persist the poll cursor", err)
	}
}

func (p *EventPoller) botID() domain.BotID {
	if p.identity == nil {
		return ""
	}

	return p.identity.Bot().BotID
}

func (p *EventPoller) sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-p.stopChan:
		return false
	case <-ctx.Done():
		return false
	}
}
