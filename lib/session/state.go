package session

import (
	"projekt/control/lib/automaton"
	"projekt/control/lib/message"
	"projekt/control/lib/pending"
)

// State is the lifecycle state of a Session.
type State = automaton.State

const (
	Disconnected State = iota + 1
	Handshaking
	Connected
	Closed
)

// StateName returns a readable name for a session state.
func StateName(state State) string {
	switch state {
	case Disconnected:
		return "Disconnected"
	case Handshaking:
		return "Handshaking"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Invalid"
	}
}

const (
	evConnect          automaton.Event = "connect"
	evAccepted         automaton.Event = automaton.Event(message.KindHandshakeAccepted)
	evConnectionClosed automaton.Event = automaton.Event(message.KindConnectionClosed)
	evResponse         automaton.Event = automaton.Event(message.KindResponse)
	evEvent            automaton.Event = automaton.Event(message.KindEvent)
	evSend             automaton.Event = "send"
	evHandshakeTimeout automaton.Event = "handshake-timeout"
	evEnd              automaton.Event = "end"
	evClose            automaton.Event = "close"
)

// registration is the input of evSend.
type registration struct {
	id     string
	waiter *pending.Waiter
}

// transitions declares the session lifecycle.
// Every Do handler runs with the session mutex held.
// Closed has no outgoing transitions.
func (s *Session) transitions() automaton.Transitions {
	open := automaton.States{Disconnected, Handshaking, Connected}
	return automaton.Transitions{
		evConnect: {
			{At: automaton.States{Disconnected}, To: Handshaking, Do: s.startReading},
		},
		evAccepted: {
			{At: automaton.States{Handshaking}, To: Connected, Do: s.accept},
		},
		evConnectionClosed: {
			{At: automaton.States{Handshaking, Connected}, To: Closed, Do: s.peerClosed},
		},
		evResponse: {
			{At: automaton.States{Connected}, Do: s.correlate},
		},
		evEvent: {
			{At: automaton.States{Connected}, Do: s.publish},
		},
		evSend: {
			{At: automaton.States{Connected}, Do: s.register},
		},
		evHandshakeTimeout: {
			{At: automaton.States{Handshaking}, To: Closed, Do: s.setCause},
		},
		evEnd: {
			{At: open, To: Closed, Do: s.setCause},
		},
		evClose: {
			{At: open, To: Closed, Do: s.setCause},
		},
	}
}

func (s *Session) startReading(_ *automaton.StateHandle, _ interface{}) error {
	s.reading = true
	return nil
}

func (s *Session) accept(_ *automaton.StateHandle, _ interface{}) error {
	close(s.connected)
	return nil
}

func (s *Session) peerClosed(state *automaton.StateHandle, in interface{}) error {
	reason := in.(message.ConnectionClosed).Reason
	if state.Is(Handshaking) {
		s.cause = &HandshakeRejectedError{Reason: reason}
	} else {
		s.cause = &ConnectionClosedError{Reason: reason}
	}
	return nil
}

func (s *Session) correlate(_ *automaton.StateHandle, in interface{}) error {
	return s.table.Resolve(in.(message.Response))
}

func (s *Session) publish(_ *automaton.StateHandle, in interface{}) error {
	event := in.(message.Event)
	for sub := range s.subscriptions {
		sub.push(event)
	}
	return nil
}

func (s *Session) register(_ *automaton.StateHandle, in interface{}) (err error) {
	r := in.(*registration)
	r.waiter, err = s.table.Register(r.id)
	return
}

func (s *Session) setCause(_ *automaton.StateHandle, in interface{}) error {
	if cause, ok := in.(error); ok {
		s.cause = cause
	}
	return nil
}
