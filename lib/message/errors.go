package message

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrNoContent   = errors.New("no message content")
	ErrUnknownKind = errors.New("unknown message kind")
	ErrNoOutcome   = errors.New("response without outcome")
)

// DecodeError reports a frame that was read completely
// but whose content could not be decoded.
// The stream remains positioned at the next frame.
type DecodeError struct {
	Size int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame of %v bytes: %v", e.Size, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
