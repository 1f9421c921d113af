package protocol

import (
	"bufio"
	"io"
	"sync"

	"go.uber.org/zap"

	"projekt/control/lib/message"
	"projekt/control/lib/metrics"
)

// Writer writes messages to the outbound stream, one frame at a time.
// It is safe for concurrent use; frames of concurrent callers never interleave.
type Writer struct {
	mutex   sync.Mutex
	out     *bufio.Writer
	broken  error
	log     *zap.Logger
	metrics *metrics.Collector
}

func NewWriter(w io.Writer, log *zap.Logger, m *metrics.Collector) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		out:     bufio.NewWriter(w),
		log:     log,
		metrics: m,
	}
}

// Send encodes a message, writes its frame and flushes it
// before the next caller may write.
// An encoding error is returned as is and leaves the writer usable.
// A failed write returns a *TransportError and every later call fails as well,
// since a partially written frame cannot be taken back.
func (w *Writer) Send(m message.Message) error {
	p, err := message.Encode(m)
	if err != nil {
		return err
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.broken != nil {
		return &TransportError{Op: "write", Err: ErrWriterBroken}
	}
	if _, err = p.WriteTo(w.out); err == nil {
		err = w.out.Flush()
	}
	if err != nil {
		w.broken = err
		w.log.Warn("Failed to write frame", zap.String("kind", string(m.Kind())), zap.Error(err))
		return &TransportError{Op: "write", Err: err}
	}
	w.metrics.FrameSent()
	w.log.Debug("->", zap.String("kind", string(m.Kind())), zap.Int64("size", p.Size()))
	return nil
}
