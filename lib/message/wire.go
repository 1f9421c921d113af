package message

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/anypb"
)

var marshalOptions = proto.MarshalOptions{Deterministic: true}

// Marshal encodes a Message in the envelope of its Direction.
func Marshal(m Message) ([]byte, error) {
	var envelope *dynamicpb.Message
	switch m := m.(type) {
	case Hello:
		envelope = dynamicpb.NewMessage(schema.toServer)
		body := variant(envelope, fieldHello)
		setString(body, fieldProtocolVersion, m.ProtocolVersion)
	case Request:
		envelope = dynamicpb.NewMessage(schema.toServer)
		body := variant(envelope, fieldRequest)
		setString(body, fieldRequestID, m.ID)
		setAny(body, fieldPayload, m.Payload)
	case Response:
		envelope = dynamicpb.NewMessage(schema.fromServer)
		body := variant(envelope, fieldResponse)
		setString(body, fieldRequestID, m.ID)
		switch outcome := m.Outcome.(type) {
		case Success:
			// present even without payload, it selects the outcome
			variant(body, fieldSuccess)
			setAny(body, fieldSuccess, outcome.Payload)
		case Failure:
			setString(variant(body, fieldError), fieldMessage, outcome.Message)
		default:
			return nil, ErrNoOutcome
		}
	case HandshakeAccepted:
		envelope = dynamicpb.NewMessage(schema.fromServer)
		variant(envelope, fieldHandshakeAccepted)
	case Event:
		envelope = dynamicpb.NewMessage(schema.fromServer)
		body := variant(envelope, fieldEvent)
		setString(body, fieldName, m.Name)
		setAny(body, fieldPayload, m.Payload)
	case ConnectionClosed:
		envelope = dynamicpb.NewMessage(schema.fromServer)
		setString(variant(envelope, fieldConnectionClosed), fieldReason, m.Reason)
	case nil:
		return nil, ErrNoContent
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, m)
	}
	return marshalOptions.Marshal(envelope)
}

// Unmarshal decodes an envelope of the given Direction.
// Unknown fields are skipped. An envelope without a known variant
// yields ErrNoContent or ErrUnknownKind.
func Unmarshal(direction Direction, data []byte) (Message, error) {
	var desc protoreflect.MessageDescriptor
	switch direction {
	case ToServer:
		desc = schema.toServer
	case FromServer:
		desc = schema.fromServer
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, direction)
	}

	envelope := dynamicpb.NewMessage(desc)
	if err := proto.Unmarshal(data, envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	fd := envelope.WhichOneof(desc.Oneofs().ByName(contentOneof))
	if fd == nil {
		if len(envelope.GetUnknown()) > 0 {
			return nil, ErrUnknownKind
		}
		return nil, ErrNoContent
	}

	body := envelope.Get(fd).Message()
	switch fd.Name() {
	case fieldHello:
		return Hello{ProtocolVersion: getString(body, fieldProtocolVersion)}, nil
	case fieldRequest:
		return Request{ID: getString(body, fieldRequestID), Payload: getAny(body, fieldPayload)}, nil
	case fieldResponse:
		return unmarshalResponse(body)
	case fieldHandshakeAccepted:
		return HandshakeAccepted{}, nil
	case fieldEvent:
		return Event{Name: getString(body, fieldName), Payload: getAny(body, fieldPayload)}, nil
	case fieldConnectionClosed:
		return ConnectionClosed{Reason: getString(body, fieldReason)}, nil
	}
	return nil, ErrUnknownKind
}

func unmarshalResponse(body protoreflect.Message) (Message, error) {
	response := Response{ID: getString(body, fieldRequestID)}
	outcome := body.WhichOneof(body.Descriptor().Oneofs().ByName(outcomeOneof))
	if outcome == nil {
		return nil, ErrNoOutcome
	}
	switch outcome.Name() {
	case fieldSuccess:
		response.Outcome = Success{Payload: getAny(body, fieldSuccess)}
	case fieldError:
		response.Outcome = Failure{Message: getString(body.Get(outcome).Message(), fieldMessage)}
	}
	return response, nil
}

func field(m protoreflect.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	return m.Descriptor().Fields().ByName(name)
}

// variant sets the message field name to an empty message, marking it present.
func variant(m protoreflect.Message, name protoreflect.Name) protoreflect.Message {
	return m.Mutable(field(m, name)).Message()
}

func setString(m protoreflect.Message, name protoreflect.Name, v string) {
	if v != "" {
		m.Set(field(m, name), protoreflect.ValueOfString(v))
	}
}

func getString(m protoreflect.Message, name protoreflect.Name) string {
	return m.Get(field(m, name)).String()
}

func setAny(m protoreflect.Message, name protoreflect.Name, payload *anypb.Any) {
	if payload != nil {
		m.Set(field(m, name), protoreflect.ValueOfMessage(payload.ProtoReflect()))
	}
}

// getAny returns nil for an absent or empty payload.
func getAny(m protoreflect.Message, name protoreflect.Name) *anypb.Any {
	fd := field(m, name)
	if !m.Has(fd) {
		return nil
	}
	payload := m.Get(fd).Message()
	fields := payload.Descriptor().Fields()
	typeURL := payload.Get(fields.ByName("type_url")).String()
	value := payload.Get(fields.ByName("value")).Bytes()
	if typeURL == "" && len(value) == 0 {
		return nil
	}
	return &anypb.Any{TypeUrl: typeURL, Value: append([]byte(nil), value...)}
}
