package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ops-level collectors for the ingestion pipeline. All
// Record helpers are nil-safe so components can run without metrics wired.
type Metrics struct {
	MessagesReceived  prometheus.Counter
	MessagesDropped   prometheus.Counter
	MessagesDiscarded *prometheus.CounterVec
	BytesReceived     prometheus.Counter
	Reconnects        prometheus.Counter
	ConnectionState   prometheus.Gauge
	TopicsDiscovered  prometheus.Gauge
	Evictions         prometheus.Counter
	Truncations       prometheus.Counter
}

// NewMetrics creates the collector set under the mqtop namespace.
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqtop",
			Subsystem: "messages",
			Name:      "received_total",
			Help:      "Total messages received from the transport",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqtop",
			Subsystem: "messages",
			Name:      "dropped_total",
			Help:      "Messages dropped by inbound channel saturation",
		}),
		MessagesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mqtop",
			Subsystem: "messages",
			Name:      "discarded_total",
			Help:      "Messages discarded per pipeline stage failure",
		}, []string{"stage"}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqtop",
			Subsystem: "messages",
			Name:      "bytes_total",
			Help:      "Total payload bytes received",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqtop",
			Subsystem: "connection",
			Name:      "reconnects_total",
			Help:      "Total reconnections established",
		}),
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mqtop",
			Subsystem: "connection",
			Name:      "state",
			Help:      "Connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)",
		}),
		TopicsDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mqtop",
			Subsystem: "topics",
			Name:      "discovered",
			Help:      "Distinct topics seen this session",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqtop",
			Subsystem: "store",
			Name:      "evictions_total",
			Help:      "Ring buffer FIFO evictions",
		}),
		Truncations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mqtop",
			Subsystem: "store",
			Name:      "truncations_total",
			Help:      "Payloads truncated to the size cap",
		}),
	}
}

// Register adds all collectors to a registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil {
		return nil
	}
	collectors := []prometheus.Collector{
		m.MessagesReceived,
		m.MessagesDropped,
		m.MessagesDiscarded,
		m.BytesReceived,
		m.Reconnects,
		m.ConnectionState,
		m.TopicsDiscovered,
		m.Evictions,
		m.Truncations,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordMessageReceived counts one inbound message and its payload size.
func (m *Metrics) RecordMessageReceived(bytes int) {
	if m == nil {
		return
	}
	m.MessagesReceived.Inc()
	m.BytesReceived.Add(float64(bytes))
}

// RecordMessageDropped counts one saturation drop.
func (m *Metrics) RecordMessageDropped() {
	if m == nil {
		return
	}
	m.MessagesDropped.Inc()
}

// RecordDiscarded counts a per-stage message discard.
func (m *Metrics) RecordDiscarded(stage string) {
	if m == nil {
		return
	}
	m.MessagesDiscarded.WithLabelValues(stage).Inc()
}

// RecordReconnect counts one re-established connection.
func (m *Metrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

// SetConnectionState publishes the supervisor state as a gauge.
func (m *Metrics) SetConnectionState(state int) {
	if m == nil {
		return
	}
	m.ConnectionState.Set(float64(state))
}

// SetTopicCount publishes the distinct topic count.
func (m *Metrics) SetTopicCount(n int) {
	if m == nil {
		return
	}
	m.TopicsDiscovered.Set(float64(n))
}

// RecordEviction counts one ring buffer eviction.
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.Evictions.Inc()
}

// RecordTruncation counts one payload truncation.
func (m *Metrics) RecordTruncation() {
	if m == nil {
		return
	}
	m.Truncations.Inc()
}
