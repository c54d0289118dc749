package ptz

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instrumentation for one PTZ camera
// client, built the same opt-in way as switcher/wire.Metrics.
type Metrics struct {
	Reconnects      prometheus.Counter
	CommandFailures prometheus.Counter
	CommandLatency  prometheus.Histogram
}

// NewMetrics builds a Metrics with the given constant labels (e.g.
// camera display name) but does not register it.
func NewMetrics(namespace string, constLabels prometheus.Labels) *Metrics {
	return &Metrics{
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "ptz_reconnects_total",
			Help:        "Total times the PTZ stream reconnected.",
			ConstLabels: constLabels,
		}),
		CommandFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "ptz_command_failures_total",
			Help:        "Total PTZ commands that failed: not connected, write error, or ACK/COMPLETION validation.",
			ConstLabels: constLabels,
		}),
		CommandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "ptz_command_latency_seconds",
			Help:        "Latency from command send to COMPLETION.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
}

// Register adds every metric to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Reconnects, m.CommandFailures, m.CommandLatency} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
