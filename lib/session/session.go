// Package session implements the controller side of a control interface session.
//
// A Session owns one Transport. After Connect has exchanged Hello and
// HandshakeAccepted with the daemon, requests can be sent and their responses
// are matched by identifier. Events pushed by the daemon are handed to subscribers.
//
// The lifecycle is Disconnected, Handshaking, Connected and finally Closed.
// Closed is terminal: every pending request is resolved with ErrClosed
// and nothing can be sent anymore.
//
// Two goroutines share a session: callers writing requests and one reader
// goroutine started by Connect. They only meet in the state machine
// and in the table of pending requests, both of which are guarded by locks.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"projekt/control/lib/automaton"
	"projekt/control/lib/message"
	"projekt/control/lib/pending"
	"projekt/control/lib/protocol"
	"projekt/control/lib/transport"
)

type Session struct {
	options
	transport transport.Transport
	writer    *protocol.Writer
	table     *pending.Table

	// guarded by mutex
	mutex         sync.Mutex
	state         State
	machine       *automaton.CompiledAutomaton
	cause         error
	reading       bool
	subscriptions map[*Subscription]struct{}

	connected  chan struct{}
	done       chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once
	closeErr   error
}

// New creates a disconnected session on t.
// The session takes ownership of t and closes it once the session is closed.
func New(t transport.Transport, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Session{
		options:       o,
		transport:     t,
		table:         pending.NewTable(),
		state:         Disconnected,
		subscriptions: make(map[*Subscription]struct{}),
		connected:     make(chan struct{}),
		done:          make(chan struct{}),
		readerDone:    make(chan struct{}),
	}
	s.log = s.log.Named("session")
	s.writer = protocol.NewWriter(t, s.log.Named("writer"), s.metrics)
	s.machine = automaton.NewAutomaton(s.transitions()).Compile(&s.state)
	s.metrics.SetState(int(Disconnected))
	return s
}

// Connect sends Hello with the given protocol version and waits until
// the daemon accepts it. The reader goroutine is started here.
//
// It returns a *HandshakeRejectedError if the daemon closes the connection,
// ErrHandshakeTimeout if neither happens within the handshake timeout or
// before ctx is done, and a *protocol.TransportError if the streams fail.
// In all of these cases the session is Closed afterwards.
func (s *Session) Connect(ctx context.Context, protocolVersion string) error {
	if err := s.apply(evConnect, nil); err != nil {
		if s.State() == Closed {
			return ErrClosed
		}
		return ErrAlreadyConnected
	}

	go s.read()

	if err := s.writer.Send(message.Hello{ProtocolVersion: protocolVersion}); err != nil {
		s.fail(err)
		return s.handshakeError()
	}
	s.log.Info("Sent Hello, waiting for the handshake", zap.String("protocolVersion", protocolVersion))

	var timeout <-chan time.Time
	if s.handshakeTimeout > 0 {
		timer := time.NewTimer(s.handshakeTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-s.connected:
		s.log.Info("Connection established")
		return nil
	case <-s.done:
		return s.handshakeError()
	case <-timeout:
		_ = s.apply(evHandshakeTimeout, ErrHandshakeTimeout)
	case <-ctx.Done():
		_ = s.apply(evHandshakeTimeout, errors.Join(ErrHandshakeTimeout, ctx.Err()))
	}

	// The handshake may have been accepted just before the timeout fired.
	select {
	case <-s.connected:
		if s.State() == Connected {
			return nil
		}
	default:
	}
	return s.handshakeError()
}

func (s *Session) handshakeError() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.cause == nil {
		return ErrClosed
	}
	return s.cause
}

// read runs the inbound loop until the input stream ends or fails.
func (s *Session) read() {
	defer close(s.readerDone)
	loop := protocol.NewLoop(s.transport, inbound{s}, s.log.Named("reader"), s.metrics)
	_ = loop.Run()
}

// inbound feeds the reader loop into the state machine.
type inbound struct {
	s *Session
}

func (in inbound) OnMessage(m message.Message) {
	s := in.s
	var event automaton.Event
	switch m := m.(type) {
	case message.HandshakeAccepted:
		event = evAccepted
	case message.ConnectionClosed:
		s.log.Info("Received ConnectionClosed", zap.String("reason", m.Reason))
		event = evConnectionClosed
	case message.Response:
		event = evResponse
	case message.Event:
		event = evEvent
	case message.Hello, message.Request:
		s.anomalous(ErrUnexpectedMessage, m)
		return
	}

	err := s.apply(event, m)
	switch {
	case err == nil:
		if event == evEvent {
			s.metrics.Event()
		}
		if event == evResponse {
			s.metrics.SetPending(s.table.Len())
		}
	case errors.Is(err, pending.ErrUnmatchedResponse):
		s.metrics.UnmatchedResponse()
		s.anomalous(err, m)
	case errors.Is(err, automaton.ErrBadState):
		s.anomalous(ErrUnexpectedMessage, m)
	default:
		s.log.Error("Failed to handle message", zap.String("kind", string(m.Kind())), zap.Error(err))
	}
}

func (in inbound) OnEnd(err error) {
	in.s.fail(err)
}

func (s *Session) anomalous(err error, m message.Message) {
	s.log.Warn("Skipping message",
		zap.String("kind", string(m.Kind())),
		zap.String("state", StateName(s.State())),
		zap.Error(err))
	s.anomaly(err)
}

// apply runs a transition under the session lock.
// Entering Closed drains the pending table, ends all subscriptions
// and closes the transport.
func (s *Session) apply(event automaton.Event, in interface{}) error {
	s.mutex.Lock()
	previous := s.state
	err := s.machine.Transition(event, in)
	current := s.state
	entered := previous != current
	if entered && current == Closed {
		s.finish()
	}
	s.mutex.Unlock()

	if entered {
		s.metrics.SetState(int(current))
		s.log.Debug("State changed",
			zap.String("event", string(event)),
			zap.String("from", StateName(previous)),
			zap.String("to", StateName(current)))
		if current == Closed {
			s.closeTransport()
		}
	}
	return err
}

// must be called with the mutex held.
func (s *Session) finish() {
	n := s.table.ResolveAll(closedError(s.cause))
	for sub := range s.subscriptions {
		sub.end()
		delete(s.subscriptions, sub)
	}
	close(s.done)
	if !s.reading {
		close(s.readerDone)
	}
	s.metrics.SetPending(0)
	if s.cause != nil {
		s.log.Info("Session closed", zap.Int("pending", n), zap.Error(s.cause))
	} else {
		s.log.Info("Session closed", zap.Int("pending", n))
	}
}

// fail closes the session because a stream ended or failed.
// A nil error means the input stream ended cleanly.
func (s *Session) fail(err error) {
	_ = s.apply(evEnd, err)
}

func (s *Session) closeTransport() {
	s.closeOnce.Do(func() {
		s.closeErr = s.transport.Close()
	})
}

// Close closes the session and its transport.
// Pending requests are resolved with ErrClosed.
// It is safe to call Close more than once and from any goroutine.
func (s *Session) Close() error {
	_ = s.apply(evClose, nil)
	s.closeTransport()
	return s.closeErr
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Done is closed once the session is Closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns why the session was closed.
// It is nil while the session is open and after a local Close
// or a clean end of the input stream.
func (s *Session) Err() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.cause
}

// Wait blocks until the reader goroutine has stopped or ctx is done.
// For a session that was closed without ever connecting it returns immediately.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.readerDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
