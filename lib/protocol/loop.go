package protocol

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"projekt/control/lib/message"
	"projekt/control/lib/metrics"
)

// Handler receives what the Loop reads.
// OnMessage is called once per decoded message, in stream order.
// OnEnd is called exactly once when the loop stops:
// with nil on a clean end of stream, otherwise with a *TransportError.
type Handler interface {
	OnMessage(m message.Message)
	OnEnd(err error)
}

// Loop reads messages from the inbound stream. It never writes.
type Loop struct {
	decoder *message.Decoder
	handler Handler
	log     *zap.Logger
	metrics *metrics.Collector
}

func NewLoop(r io.Reader, handler Handler, log *zap.Logger, m *metrics.Collector) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		decoder: message.NewDecoder(r, message.FromServer),
		handler: handler,
		log:     log,
		metrics: m,
	}
}

// Run blocks until the stream ends or fails.
// Frames that cannot be decoded are logged and skipped.
// It returns nil on a clean end of stream.
func (l *Loop) Run() error {
	for {
		m, err := l.decoder.Decode()
		if err == nil {
			l.metrics.FrameReceived(string(m.Kind()))
			l.log.Debug("<-", zap.String("kind", string(m.Kind())))
			l.handler.OnMessage(m)
			continue
		}
		var decodeErr *message.DecodeError
		if errors.As(err, &decodeErr) {
			l.metrics.DecodeError()
			l.log.Warn("Invalid message, skipping frame", zap.Error(err))
			continue
		}
		if err == io.EOF {
			l.log.Debug("End of input stream")
			l.handler.OnEnd(nil)
			return nil
		}
		err = &TransportError{Op: "read", Err: err}
		l.log.Warn("Stopped reading input stream", zap.Error(err))
		l.handler.OnEnd(err)
		return err
	}
}
