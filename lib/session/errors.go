package session

import (
	"errors"
	"fmt"
)

var (
	ErrClosed            = errors.New("session is closed")
	ErrNotConnected      = errors.New("session is not connected")
	ErrAlreadyConnected  = errors.New("session was connected already")
	ErrHandshakeTimeout  = errors.New("handshake was not accepted in time")
	ErrUnexpectedMessage = errors.New("read an unexpected message")
)

// HandshakeRejectedError is returned by Connect
// when the daemon closes the connection instead of accepting the Hello.
type HandshakeRejectedError struct {
	Reason string
}

func (e *HandshakeRejectedError) Error() string {
	return fmt.Sprintf("handshake rejected: %v", e.Reason)
}

// ConnectionClosedError is the closure cause of a connected session
// that was closed by the daemon.
type ConnectionClosedError struct {
	Reason string
}

func (e *ConnectionClosedError) Error() string {
	return fmt.Sprintf("connection closed by peer: %v", e.Reason)
}

// RequestFailedError carries the error message the daemon returned for a request.
type RequestFailedError struct {
	ID      string
	Message string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request %q failed: %v", e.ID, e.Message)
}

// closedError is the error pending requests are resolved with on closure.
// It matches ErrClosed and, if present, the cause of the closure.
func closedError(cause error) error {
	if cause == nil {
		return ErrClosed
	}
	return fmt.Errorf("%w: %w", ErrClosed, cause)
}
