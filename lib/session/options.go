package session

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"projekt/control/lib/metrics"
)

// DefaultHandshakeTimeout bounds the wait for HandshakeAccepted in Connect.
const DefaultHandshakeTimeout = 5 * time.Second

type options struct {
	log              *zap.Logger
	metrics          *metrics.Collector
	handshakeTimeout time.Duration
	newID            func() string
	anomaly          func(error)
}

type Option func(*options)

func defaultOptions() options {
	return options{
		log:              zap.NewNop(),
		handshakeTimeout: DefaultHandshakeTimeout,
		newID:            uuid.NewString,
		anomaly:          func(error) {},
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithHandshakeTimeout sets the bound for the handshake.
// Zero disables it, leaving only the context passed to Connect.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.handshakeTimeout = d
	}
}

// WithIDGenerator replaces the generator for requests sent without an identifier.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// WithAnomalyHook receives protocol anomalies such as unmatched responses
// and messages that are not valid in the current state.
// The hook is called from the reader goroutine and must not block.
func WithAnomalyHook(hook func(error)) Option {
	return func(o *options) {
		if hook != nil {
			o.anomaly = hook
		}
	}
}
