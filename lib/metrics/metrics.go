// Package metrics exposes session counters as Prometheus collectors.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "control_interface"

type Collector struct {
	FramesSent         prometheus.Counter
	FramesReceived     *prometheus.CounterVec
	DecodeErrors       prometheus.Counter
	UnmatchedResponses prometheus.Counter
	Events             prometheus.Counter
	Pending            prometheus.Gauge
	State              prometheus.Gauge
}

// NewCollector creates the session collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames written to the output stream.",
		}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames decoded from the input stream by message kind.",
		}, []string{"kind"}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Frames that could not be decoded.",
		}),
		UnmatchedResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmatched_responses_total",
			Help:      "Responses without a pending request.",
		}),
		Events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Unsolicited events delivered to subscribers.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Requests waiting for a response.",
		}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current session state (1 disconnected, 2 handshaking, 3 connected, 4 closed).",
		}),
	}
	if reg == nil {
		return c, nil
	}
	for _, collector := range []prometheus.Collector{
		c.FramesSent, c.FramesReceived, c.DecodeErrors, c.UnmatchedResponses,
		c.Events, c.Pending, c.State,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) FrameSent() {
	if c != nil {
		c.FramesSent.Inc()
	}
}

func (c *Collector) FrameReceived(kind string) {
	if c != nil {
		c.FramesReceived.WithLabelValues(kind).Inc()
	}
}

func (c *Collector) DecodeError() {
	if c != nil {
		c.DecodeErrors.Inc()
	}
}

func (c *Collector) UnmatchedResponse() {
	if c != nil {
		c.UnmatchedResponses.Inc()
	}
}

func (c *Collector) Event() {
	if c != nil {
		c.Events.Inc()
	}
}

func (c *Collector) SetPending(n int) {
	if c != nil {
		c.Pending.Set(float64(n))
	}
}

func (c *Collector) SetState(state int) {
	if c != nil {
		c.State.Set(float64(state))
	}
}
