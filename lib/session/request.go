package session

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/anypb"

	"projekt/control/lib/automaton"
	"projekt/control/lib/message"
	"projekt/control/lib/pending"
	"projekt/control/lib/protocol"
)

// Future is the handle of a sent request.
type Future struct {
	waiter *pending.Waiter
	table  *pending.Table
}

// ID returns the identifier the request was sent with.
func (f *Future) ID() string {
	return f.waiter.ID()
}

// Done is closed once the request is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.waiter.Done()
}

// Wait blocks until the response arrives, the session closes or ctx is done.
// A response with a failure outcome is returned without error.
// Once the session is closed the error matches ErrClosed.
func (f *Future) Wait(ctx context.Context) (message.Response, error) {
	return f.waiter.Wait(ctx)
}

// Payload waits like Wait and unpacks a successful outcome.
// A failure outcome is returned as *RequestFailedError.
func (f *Future) Payload(ctx context.Context) (*anypb.Any, error) {
	response, err := f.Wait(ctx)
	if err != nil {
		return nil, err
	}
	switch outcome := response.Outcome.(type) {
	case message.Success:
		return outcome.Payload, nil
	case message.Failure:
		return nil, &RequestFailedError{ID: response.ID, Message: outcome.Message}
	default:
		return nil, message.ErrNoOutcome
	}
}

// Cancel abandons the request locally. The daemon may still answer it,
// the answer is then reported as an unmatched response.
// It returns false if the request was resolved already.
func (f *Future) Cancel() bool {
	return f.table.Abandon(f.waiter)
}

// SendRequest sends a request and returns a Future for its response.
// An empty identifier is replaced by a generated one.
//
// It fails with ErrNotConnected before the handshake was accepted,
// with ErrClosed after the session was closed,
// and with pending.ErrDuplicateIdentifier if a request with the same identifier
// is still pending. None of these touch the transport.
// A failed write closes the session and returns a *protocol.TransportError.
// Requests are never retried.
func (s *Session) SendRequest(request message.Request) (*Future, error) {
	if request.ID == "" {
		request.ID = s.newID()
	}
	r := &registration{id: request.ID}
	if err := s.apply(evSend, r); err != nil {
		if errors.Is(err, automaton.ErrBadState) {
			return nil, s.notSendable()
		}
		return nil, err
	}
	s.metrics.SetPending(s.table.Len())

	if err := s.writer.Send(request); err != nil {
		if !s.table.Fail(r.waiter, err) {
			// the session was closed while writing
			return nil, closedError(s.Err())
		}
		if errors.Is(err, protocol.ErrTransport) {
			s.fail(err)
		}
		s.log.Warn("Failed to send request", zap.String("id", request.ID), zap.Error(err))
		return nil, err
	}
	return &Future{waiter: r.waiter, table: s.table}, nil
}

// Request sends a request and waits for its response.
// If ctx is done first, the request is abandoned.
func (s *Session) Request(ctx context.Context, request message.Request) (message.Response, error) {
	f, err := s.SendRequest(request)
	if err != nil {
		return message.Response{}, err
	}
	response, err := f.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		f.Cancel()
	}
	return response, err
}

func (s *Session) notSendable() error {
	if s.State() == Closed {
		return ErrClosed
	}
	return ErrNotConnected
}
