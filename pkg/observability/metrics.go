// Package observability collects the prometheus metrics exposed on /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics handles application metrics and monitoring
type Metrics struct {
	EventsDispatched  *prometheus.CounterVec
	FramesRendered    prometheus.Counter
	ExpansionRequests *prometheus.CounterVec
	QueryDuration     prometheus.Histogram
	ActiveSessions    prometheus.Gauge
	WSConnections     prometheus.Gauge
}

// NewMetrics creates and registers all application metrics on the given
// registerer. Passing prometheus.DefaultRegisterer wires them to /metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphlens",
			Name:      "store_events_dispatched_total",
			Help:      "Store events dispatched to subscribers, by event type.",
		}, []string{"event_type"}),
		FramesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "graphlens",
			Name:      "render_frames_total",
			Help:      "Render frames pushed to visualization surfaces.",
		}),
		ExpansionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphlens",
			Name:      "node_expansions_total",
			Help:      "Node expansion requests, by outcome (success, failure, noop).",
		}, []string{"outcome"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "graphlens",
			Name:      "query_duration_seconds",
			Help:      "Latency of query execution against the graph backend.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "graphlens",
			Name:      "active_sessions",
			Help:      "Number of live visualization sessions.",
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "graphlens",
			Name:      "websocket_connections",
			Help:      "Number of open websocket connections.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.EventsDispatched,
			m.FramesRendered,
			m.ExpansionRequests,
			m.QueryDuration,
			m.ActiveSessions,
			m.WSConnections,
		)
	}

	return m
}

// NewNopMetrics returns metrics that are collected but never registered.
// Used in tests so parallel packages don't fight over the default registry.
func NewNopMetrics() *Metrics {
	return NewMetrics(nil)
}

// ObserveQuery records a single query execution duration.
func (m *Metrics) ObserveQuery(start time.Time) {
	m.QueryDuration.Observe(time.Since(start).Seconds())
}
