package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the engine's Prometheus collectors. A single instance
// is created at startup and handed to the components that record into it.
type Metrics struct {
	LiveMessages   *prometheus.CounterVec // by message type
	LiveDropped    prometheus.Counter
	LiveReconnects prometheus.Counter
	FetchRetries   prometheus.Counter
	NodeCount      prometheus.Gauge
	EdgeCount      prometheus.Gauge
}

// NewMetrics registers the engine collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LiveMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "galaxy_live_messages_total",
			Help: "Live channel messages applied to the store, by type.",
		}, []string{"type"}),
		LiveDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "galaxy_live_messages_dropped_total",
			Help: "Live channel messages dropped as malformed or unrecognized.",
		}),
		LiveReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "galaxy_live_reconnects_total",
			Help: "Reconnect attempts made by the live channel.",
		}),
		FetchRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "galaxy_upstream_fetch_retries_total",
			Help: "Retries performed against the upstream galaxy API.",
		}),
		NodeCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "galaxy_nodes",
			Help: "Nodes currently held in the graph store.",
		}),
		EdgeCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "galaxy_edges",
			Help: "Edges currently held in the graph store.",
		}),
	}
}
