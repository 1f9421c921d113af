// Package protocol moves messages between a session and its two streams.
//
// A Writer serializes outgoing frames, a Loop reads incoming frames
// and hands every decoded message to a Handler in the order it was read.
// The two never talk to each other directly.
package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTransport    = errors.New("transport failure")
	ErrWriterBroken = errors.New("writer failed previously")
)

// TransportError reports a failed read or write on one of the streams.
// It matches ErrTransport with errors.Is.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
