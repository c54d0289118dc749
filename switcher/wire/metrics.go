package wire

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instrumentation for one switcher
// transport. Nothing is auto-registered; the caller constructs and
// registers a Metrics explicitly, so embedding applications control
// their own registry.
type Metrics struct {
	PacketsSent       prometheus.Counter
	PacketsReceived   prometheus.Counter
	Retransmits       prometheus.Counter
	Reconnects        prometheus.Counter
	MalformedDropped  prometheus.Counter
	SessionLevel      prometheus.Gauge
	CommandLatency    prometheus.Histogram
	CommandTimeouts   prometheus.Counter
}

// NewMetrics builds a Metrics with the given constant labels (e.g.
// device address) but does not register it; call Register explicitly.
func NewMetrics(namespace string, constLabels prometheus.Labels) *Metrics {
	return &Metrics{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "switcher_packets_sent_total",
			Help:        "Total switcher datagrams sent.",
			ConstLabels: constLabels,
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "switcher_packets_received_total",
			Help:        "Total switcher datagrams received.",
			ConstLabels: constLabels,
		}),
		Retransmits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "switcher_retransmits_total",
			Help:        "Total inbound datagrams flagged as retransmissions.",
			ConstLabels: constLabels,
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "switcher_reconnects_total",
			Help:        "Total times the session re-ran the handshake.",
			ConstLabels: constLabels,
		}),
		MalformedDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "switcher_malformed_packets_dropped_total",
			Help:        "Total inbound datagrams dropped for a malformed header.",
			ConstLabels: constLabels,
		}),
		SessionLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "switcher_session_level",
			Help:        "Current session level (0=disconnected,1=handshaking,2=initializing,3=ready).",
			ConstLabels: constLabels,
		}),
		CommandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "switcher_command_latency_seconds",
			Help:        "Latency from command send to matching ACK.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
		CommandTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "switcher_command_timeouts_total",
			Help:        "Total reliable commands that never received an ACK.",
			ConstLabels: constLabels,
		}),
	}
}

// Register adds every metric to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.PacketsSent, m.PacketsReceived, m.Retransmits, m.Reconnects,
		m.MalformedDropped, m.SessionLevel, m.CommandLatency, m.CommandTimeouts,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
