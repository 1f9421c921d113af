package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"

	"projekt/control/lib/message"
	"projekt/control/lib/protocol"
)

const EventKind = "heartbeat"

// Daemon plays the daemon side of the control interface.
// It accepts a Hello with the expected protocol version,
// echoes the payload of every request and pushes heartbeat events.
type Daemon struct {
	Version string
	// Zero disables heartbeat events.
	EventInterval time.Duration
	Log           *zap.Logger
}

// Serve accepts connections on l until ctx is done.
func (d *Daemon) Serve(ctx context.Context, l net.Listener) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-ctx.Done()
		return l.Close()
	})
	group.Go(func() error {
		for {
			conn, err := l.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			group.Go(func() error {
				d.handle(ctx, conn)
				return nil
			})
		}
	})
	return group.Wait()
}

// errHungUp ends a connection whose controller closed its stream.
var errHungUp = errors.New("controller closed its stream")

func (d *Daemon) handle(ctx context.Context, conn net.Conn) {
	log := d.Log.With(zap.String("remote", conn.RemoteAddr().String()))
	defer conn.Close()

	decoder := message.NewDecoder(conn, message.ToServer)
	writer := protocol.NewWriter(conn, log.Named("writer"), nil)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-groupCtx.Done()
		conn.Close()
		return nil
	})
	group.Go(func() error {
		if err := d.handshake(decoder, writer); err != nil {
			log.Info("Handshake failed", zap.Error(err))
			return err
		}
		log.Info("Controller connected")
		if d.EventInterval > 0 {
			group.Go(func() error {
				return d.heartbeat(groupCtx, writer)
			})
		}
		return d.answer(decoder, writer, log)
	})

	err := group.Wait()
	if err != nil && !errors.Is(err, errHungUp) && ctx.Err() == nil {
		log.Info("Controller disconnected", zap.Error(err))
		return
	}
	log.Info("Controller disconnected")
}

func (d *Daemon) handshake(decoder *message.Decoder, writer *protocol.Writer) error {
	m, err := decoder.Decode()
	if err != nil {
		return err
	}
	hello, ok := m.(message.Hello)
	if !ok {
		reason := fmt.Sprintf("expected Hello, got %v", m.Kind())
		_ = writer.Send(message.ConnectionClosed{Reason: reason})
		return errors.New(reason)
	}
	if hello.ProtocolVersion != d.Version {
		reason := fmt.Sprintf("unsupported protocol version %q, expected %q", hello.ProtocolVersion, d.Version)
		_ = writer.Send(message.ConnectionClosed{Reason: reason})
		return errors.New(reason)
	}
	return writer.Send(message.HandshakeAccepted{})
}

// answer echoes request payloads until the controller closes its stream.
// A request without payload is answered with a failure.
func (d *Daemon) answer(decoder *message.Decoder, writer *protocol.Writer, log *zap.Logger) error {
	for {
		m, err := decoder.Decode()
		if err == io.EOF {
			return errHungUp
		}
		var decodeErr *message.DecodeError
		if errors.As(err, &decodeErr) {
			log.Warn("Invalid message, skipping frame", zap.Error(err))
			continue
		}
		if err != nil {
			return err
		}
		request, ok := m.(message.Request)
		if !ok {
			log.Warn("Skipping unexpected message", zap.String("kind", string(m.Kind())))
			continue
		}
		log.Debug("Answering request", zap.String("id", request.ID))

		response := message.Response{ID: request.ID}
		if request.Payload == nil {
			response.Outcome = message.Failure{Message: "request without content"}
		} else {
			response.Outcome = message.Success{Payload: request.Payload}
		}
		if err := writer.Send(response); err != nil {
			return err
		}
	}
}

func (d *Daemon) heartbeat(ctx context.Context, writer *protocol.Writer) error {
	ticker := time.NewTicker(d.EventInterval)
	defer ticker.Stop()
	for sequence := 1; ; sequence++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			payload, err := heartbeatPayload(sequence, now)
			if err != nil {
				return err
			}
			if err := writer.Send(message.Event{Name: EventKind, Payload: payload}); err != nil {
				return err
			}
		}
	}
}

func heartbeatPayload(sequence int, now time.Time) (*anypb.Any, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"sequence": sequence,
		"time":     now.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return anypb.New(s)
}
