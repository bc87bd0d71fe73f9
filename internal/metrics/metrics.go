// Package metrics exposes Prometheus collectors for the status watcher.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nodeboard"

// Poll outcomes used as the "outcome" label.
const (
	OutcomeApplied        = "applied"
	OutcomeStale          = "stale"
	OutcomeTransportError = "transport_error"
	OutcomeHTTPError      = "http_error"
	OutcomeMalformed      = "malformed"
)

// Metrics holds the watcher's collectors on a private registry, so several
// watchers in one process do not collide on the default registerer.
type Metrics struct {
	Registry *prometheus.Registry

	pollCycles   *prometheus.CounterVec
	pollDuration prometheus.Histogram
	lastApplied  prometheus.Gauge
	activeNodes  prometheus.Gauge
	themeToggles *prometheus.CounterVec
}

// New creates and registers the watcher collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		pollCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "cycles_total",
				Help:      "Status poll cycles by outcome.",
			},
			[]string{"outcome"},
		),
		pollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "duration_seconds",
				Help:      "Latency of status requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
		),
		lastApplied: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "last_applied_sequence",
				Help:      "Sequence number of the last rendered status response.",
			},
		),
		activeNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_nodes",
				Help:      "Collection jobs shown in the last rendered status.",
			},
		),
		themeToggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "theme",
				Name:      "toggles_total",
				Help:      "Theme toggles by resulting theme.",
			},
			[]string{"theme"},
		),
	}

	m.Registry.MustRegister(
		m.pollCycles,
		m.pollDuration,
		m.lastApplied,
		m.activeNodes,
		m.themeToggles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePoll records one completed poll.
func (m *Metrics) ObservePoll(outcome string, latency time.Duration) {
	m.pollCycles.WithLabelValues(outcome).Inc()
	if outcome != OutcomeTransportError {
		m.pollDuration.Observe(latency.Seconds())
	}
}

// Applied records a rendered response.
func (m *Metrics) Applied(seq uint64, nodes int) {
	m.lastApplied.Set(float64(seq))
	m.activeNodes.Set(float64(nodes))
}

// ThemeToggled records a toggle ending in theme.
func (m *Metrics) ThemeToggled(theme string) {
	m.themeToggles.WithLabelValues(theme).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
