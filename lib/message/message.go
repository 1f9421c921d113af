// Package message defines the messages exchanged on the control interface
// and their protobuf wire encoding.
//
// Messages written by the controller are wrapped in a ToServer envelope,
// messages written by the daemon in a FromServer envelope.
// Both envelopes hold exactly one of their variants.
package message

import (
	"google.golang.org/protobuf/types/known/anypb"
)

// Direction selects the envelope a message is carried in.
type Direction int

const (
	ToServer Direction = iota + 1
	FromServer
)

func (d Direction) String() string {
	switch d {
	case ToServer:
		return "ToServer"
	case FromServer:
		return "FromServer"
	default:
		return "InvalidDirection"
	}
}

// Kind names the variant of a Message.
type Kind string

const (
	KindHello             Kind = "Hello"
	KindHandshakeAccepted Kind = "HandshakeAccepted"
	KindConnectionClosed  Kind = "ConnectionClosed"
	KindRequest           Kind = "Request"
	KindResponse          Kind = "Response"
	KindEvent             Kind = "Event"
)

// Message is one of Hello, HandshakeAccepted, ConnectionClosed,
// Request, Response or Event. Values are not modified after construction.
type Message interface {
	Kind() Kind
	Direction() Direction
	isMessage()
}

// Hello opens the session and announces the protocol version of the controller.
type Hello struct {
	ProtocolVersion string
}

// HandshakeAccepted admits application traffic after a Hello.
type HandshakeAccepted struct{}

// ConnectionClosed is sent by the daemon before it stops serving the session.
type ConnectionClosed struct {
	Reason string
}

// Request is an application request with an opaque payload.
type Request struct {
	ID      string
	Payload *anypb.Any
}

// Response answers the Request with the same ID.
type Response struct {
	ID      string
	Outcome Outcome
}

// Event is pushed by the daemon without being asked for.
// Name tells subscribers how to interpret the payload.
type Event struct {
	Name    string
	Payload *anypb.Any
}

func (Hello) Kind() Kind             { return KindHello }
func (HandshakeAccepted) Kind() Kind { return KindHandshakeAccepted }
func (ConnectionClosed) Kind() Kind  { return KindConnectionClosed }
func (Request) Kind() Kind           { return KindRequest }
func (Response) Kind() Kind          { return KindResponse }
func (Event) Kind() Kind             { return KindEvent }

func (Hello) Direction() Direction             { return ToServer }
func (HandshakeAccepted) Direction() Direction { return FromServer }
func (ConnectionClosed) Direction() Direction  { return FromServer }
func (Request) Direction() Direction           { return ToServer }
func (Response) Direction() Direction          { return FromServer }
func (Event) Direction() Direction             { return FromServer }

func (Hello) isMessage()             {}
func (HandshakeAccepted) isMessage() {}
func (ConnectionClosed) isMessage()  {}
func (Request) isMessage()           {}
func (Response) isMessage()          {}
func (Event) isMessage()             {}

// Outcome is either Success or Failure.
type Outcome interface {
	isOutcome()
}

// Success carries the result payload of a request.
type Success struct {
	Payload *anypb.Any
}

// Failure carries the error message the daemon reported for a request.
type Failure struct {
	Message string
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}
