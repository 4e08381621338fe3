package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type ErrorKind string

const (
	// ErrorKindRetryable covers connection failures and 5xx-class
	// responses worth another attempt
	ErrorKindRetryable ErrorKind = "retryable"

	// ErrorKindTerminal covers malformed requests and permanent
	// rejections, surfaced immediately
	ErrorKindTerminal ErrorKind = "terminal"

	// ErrorKindSessionExpired means the call failed only because the
	// session is no longer accepted by the platform
	ErrorKindSessionExpired ErrorKind = "session_expired"
)

type TransportError struct {
	Kind  ErrorKind
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed (%s): %v", e.Op, e.Kind, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

func NewRetryableError(op string, cause error) *TransportError {
	return &TransportError{Kind: ErrorKindRetryable, Op: op, Cause: cause}
}

func NewTerminalError(op string, cause error) *TransportError {
	return &TransportError{Kind: ErrorKindTerminal, Op: op, Cause: cause}
}

func NewSessionExpiredError(op string, cause error) *TransportError {
	return &TransportError{Kind: ErrorKindSessionExpired, Op: op, Cause: cause}
}

func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Kind == ErrorKindRetryable
	}
	return false
}

func IsSessionExpired(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Kind == ErrorKindSessionExpired
	}
	return false
}

// classifyCallError buckets plain network failures for the retry loop.
// Typed errors pass through untouched.
func classifyCallError(op string, err error) error {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return NewRetryableError(op, err)
	}

	return NewTerminalError(op, err)
}
