package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oachat/chat-connector/internal/config"
	"github.com/oachat/chat-connector/internal/platform/logger"
	"github.com/oachat/chat-connector/internal/session"
)

func init() {
	logger.InitLogger()
}

type scriptedEventSource struct {
	pollCount int
	errs      []error
	batch     []RawEvent
	next      Cursor
}

func (s *scriptedEventSource) Poll(ctx context.Context, sess session.Session, cursor Cursor) ([]RawEvent, Cursor, error) {
	s.pollCount++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, cursor, err
		}
	}
	return s.batch, s.next, nil
}

type mockSessionSource struct {
	refreshCount int
	current      session.Session
	refreshErr   error
}

func (m *mockSessionSource) Current() (session.Session, error) {
	return m.current, nil
}

func (m *mockSessionSource) RefreshOrReauthenticate(ctx context.Context, observed session.Session) (session.Session, error) {
	m.refreshCount++
	if m.refreshErr != nil {
		return session.Session{}, m.refreshErr
	}
	return m.current, nil
}

func testClientConfig() *config.Config {
	return &config.Config{
		TransportRetryMaxAttempts: 3,
		TransportRetryBackoffBase: time.Millisecond,
		TransportRetryBackoffCap:  5 * time.Millisecond,
		PollTimeout:               time.Second,
		CallTimeout:               time.Second,
	}
}

func TestPollPassesBatchThrough(t *testing.T) {
	source := &scriptedEventSource{
		batch: []RawEvent{{ID: "e1", Name: "chat"}},
		next:  Cursor("e1"),
	}
	client := NewRetryingClient(source, nil, nil, &mockSessionSource{}, testClientConfig())

	batch, next, err := client.Poll(context.Background(), "")

	if err != nil {
		t.Fatal("unexpected error ", err)
	}
	if len(batch) != 1 || batch[0].ID != "e1" {
		t.Fatalf("expected the source batch, got %v", batch)
	}
	if next != Cursor("e1") {
		t.Fatalf("expected cursor e1, got %s", next)
	}
}

func TestPollRetriesTransientFailures(t *testing.T) {
	source := &scriptedEventSource{
		errs:  []error{NewRetryableError("poll", errors.New("connection reset")), nil},
		batch: []RawEvent{{ID: "e1", Name: "chat"}},
	}
	client := NewRetryingClient(source, nil, nil, &mockSessionSource{}, testClientConfig())

	batch, _, err := client.Poll(context.Background(), "")

	if err != nil {
		t.Fatal("unexpected error ", err)
	}
	if source.pollCount != 2 {
		t.Fatalf("expected 2 poll attempts, got %d", source.pollCount)
	}
	if len(batch) != 1 {
		t.Fatalf("expected the batch from the second attempt, got %v", batch)
	}
}

func TestPollExhaustsRetryBudget(t *testing.T) {
	source := &scriptedEventSource{
		errs: []error{
			NewRetryableError("poll", errors.New("connection reset")),
			NewRetryableError("poll", errors.New("connection reset")),
			NewRetryableError("poll", errors.New("connection reset")),
			NewRetryableError("poll", errors.New("connection reset")),
		},
	}
	client := NewRetryingClient(source, nil, nil, &mockSessionSource{}, testClientConfig())

	_, _, err := client.Poll(context.Background(), "")

	if !IsRetryable(err) {
		t.Fatalf("expected the retryable error to surface, got %v", err)
	}
	if source.pollCount != 3 {
		t.Fatalf("expected the configured 3 attempts, got %d", source.pollCount)
	}
}

func TestPollReauthenticatesOnceOnSessionExpiry(t *testing.T) {
	source := &scriptedEventSource{
		errs:  []error{NewSessionExpiredError("poll", errors.New("token rejected")), nil},
		batch: []RawEvent{{ID: "e1", Name: "chat"}},
	}
	sessions := &mockSessionSource{}
	client := NewRetryingClient(source, nil, nil, sessions, testClientConfig())

	batch, _, err := client.Poll(context.Background(), "")

	if err != nil {
		t.Fatal("unexpected error ", err)
	}
	if sessions.refreshCount != 1 {
		t.Fatalf("expected exactly one re-authentication, got %d", sessions.refreshCount)
	}
	if source.pollCount != 2 {
		t.Fatalf("expected the original call to be retried once, got %d attempts", source.pollCount)
	}
	if len(batch) != 1 {
		t.Fatal("expected the retried call's batch")
	}
}

func TestPollDoesNotReauthenticateTwice(t *testing.T) {
	source := &scriptedEventSource{
		errs: []error{
			NewSessionExpiredError("poll", errors.New("token rejected")),
			NewSessionExpiredError("poll", errors.New("token rejected")),
		},
	}
	sessions := &mockSessionSource{}
	client := NewRetryingClient(source, nil, nil, sessions, testClientConfig())

	_, _, err := client.Poll(context.Background(), "")

	if !IsSessionExpired(err) {
		t.Fatalf("expected the session expiry to surface, got %v", err)
	}
	if sessions.refreshCount != 1 {
		t.Fatalf("expected exactly one re-authentication, got %d", sessions.refreshCount)
	}
}

func TestTerminalErrorsSurfaceImmediately(t *testing.T) {
	source := &scriptedEventSource{
		errs: []error{NewTerminalError("poll", errors.New("malformed request"))},
	}
	client := NewRetryingClient(source, nil, nil, &mockSessionSource{}, testClientConfig())

	_, _, err := client.Poll(context.Background(), "")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) || transportErr.Kind != ErrorKindTerminal {
		t.Fatalf("expected a terminal transport error, got %v", err)
	}
	if source.pollCount != 1 {
		t.Fatalf("expected no retries for a terminal error, got %d attempts", source.pollCount)
	}
}

func TestBackoffDurationIsCappedAndJittered(t *testing.T) {
	base := 100 * time.Millisecond
	cap := 800 * time.Millisecond

	for attempt := 1; attempt < 10; attempt++ {
		duration := BackoffDuration(base, cap, attempt)
		if duration > cap {
			t.Fatalf("attempt %d produced %s, above the cap %s", attempt, duration, cap)
		}
		if duration < base/2 {
			t.Fatalf("attempt %d produced %s, below half the base %s", attempt, duration, base)
		}
	}
}

func TestBackoffDurationHonorsCapBelowBase(t *testing.T) {
	base := 10 * time.Second
	cap := time.Second

	for attempt := 1; attempt < 5; attempt++ {
		duration := BackoffDuration(base, cap, attempt)
		if duration > cap {
			t.Fatalf("attempt %d produced %s, above the cap %s", attempt, duration, cap)
		}
	}
}
