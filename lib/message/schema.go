package message

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/anypb"
)

// The catalog as a protobuf file, equivalent to
//
//	syntax = "proto3";
//	package control_api;
//	import "google/protobuf/any.proto";
//
//	message ToServer {
//	  oneof content {
//	    Hello hello = 1;
//	    Request request = 3;
//	  }
//	}
//	message FromServer {
//	  oneof content {
//	    Response response = 3;
//	    HandshakeAccepted handshake_accepted = 5;
//	    Event event = 7;
//	    ConnectionClosed connection_closed = 15;
//	  }
//	}
//	message Hello { string protocol_version = 1; }
//	message Request { string request_id = 1; google.protobuf.Any payload = 2; }
//	message Response {
//	  string request_id = 1;
//	  oneof outcome {
//	    Error error = 2;
//	    google.protobuf.Any success = 3;
//	  }
//	}
//	message Error { string message = 1; }
//	message HandshakeAccepted {}
//	message Event { string name = 1; google.protobuf.Any payload = 2; }
//	message ConnectionClosed { string reason = 1; }
const (
	schemaFile    = "projekt/control/control_api.proto"
	schemaPackage = "control_api"
)

// field and oneof names of the catalog
const (
	contentOneof protoreflect.Name = "content"
	outcomeOneof protoreflect.Name = "outcome"

	fieldHello             protoreflect.Name = "hello"
	fieldRequest           protoreflect.Name = "request"
	fieldResponse          protoreflect.Name = "response"
	fieldHandshakeAccepted protoreflect.Name = "handshake_accepted"
	fieldEvent             protoreflect.Name = "event"
	fieldConnectionClosed  protoreflect.Name = "connection_closed"

	fieldProtocolVersion protoreflect.Name = "protocol_version"
	fieldRequestID       protoreflect.Name = "request_id"
	fieldPayload         protoreflect.Name = "payload"
	fieldError           protoreflect.Name = "error"
	fieldSuccess         protoreflect.Name = "success"
	fieldMessage         protoreflect.Name = "message"
	fieldName            protoreflect.Name = "name"
	fieldReason          protoreflect.Name = "reason"
)

type envelopes struct {
	toServer   protoreflect.MessageDescriptor
	fromServer protoreflect.MessageDescriptor
}

var schema = loadSchema()

func loadSchema() envelopes {
	file, err := protodesc.NewFile(schemaDescriptor(), protoregistry.GlobalFiles)
	if err != nil {
		panic(err)
	}
	messages := file.Messages()
	return envelopes{
		toServer:   messages.ByName("ToServer"),
		fromServer: messages.ByName("FromServer"),
	}
}

func schemaDescriptor() *descriptorpb.FileDescriptorProto {
	anyType := "." + string((&anypb.Any{}).ProtoReflect().Descriptor().FullName())
	local := func(name string) string {
		return "." + schemaPackage + "." + name
	}
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(schemaFile),
		Package:    proto.String(schemaPackage),
		Dependency: []string{"google/protobuf/any.proto"},
		Syntax:     proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			messageType("ToServer", []string{string(contentOneof)},
				inOneof(0, messageField(fieldHello, 1, local("Hello"))),
				inOneof(0, messageField(fieldRequest, 3, local("Request"))),
			),
			messageType("FromServer", []string{string(contentOneof)},
				inOneof(0, messageField(fieldResponse, 3, local("Response"))),
				inOneof(0, messageField(fieldHandshakeAccepted, 5, local("HandshakeAccepted"))),
				inOneof(0, messageField(fieldEvent, 7, local("Event"))),
				inOneof(0, messageField(fieldConnectionClosed, 15, local("ConnectionClosed"))),
			),
			messageType("Hello", nil,
				stringField(fieldProtocolVersion, 1),
			),
			messageType("Request", nil,
				stringField(fieldRequestID, 1),
				messageField(fieldPayload, 2, anyType),
			),
			messageType("Response", []string{string(outcomeOneof)},
				stringField(fieldRequestID, 1),
				inOneof(0, messageField(fieldError, 2, local("Error"))),
				inOneof(0, messageField(fieldSuccess, 3, anyType)),
			),
			messageType("Error", nil,
				stringField(fieldMessage, 1),
			),
			messageType("HandshakeAccepted", nil),
			messageType("Event", nil,
				stringField(fieldName, 1),
				messageField(fieldPayload, 2, anyType),
			),
			messageType("ConnectionClosed", nil,
				stringField(fieldReason, 1),
			),
		},
	}
}

func messageType(name string, oneofs []string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	m := &descriptorpb.DescriptorProto{
		Name:  proto.String(name),
		Field: fields,
	}
	for _, oneof := range oneofs {
		m.OneofDecl = append(m.OneofDecl, &descriptorpb.OneofDescriptorProto{Name: proto.String(oneof)})
	}
	return m
}

func stringField(name protoreflect.Name, number int32) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(string(name)),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
	}
}

func messageField(name protoreflect.Name, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(string(name)),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String(typeName),
	}
}

func inOneof(index int32, field *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	field.OneofIndex = proto.Int32(index)
	return field
}
