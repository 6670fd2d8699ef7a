// Package metrics exposes vibedbg runtime observability data (§4.K) via a
// Prometheus registry, following the teacher's prometheus.go collector
// layout (counters/histograms/gauges registered once at Init time, package
// functions as the recording API so callers never touch a *Metrics value).
//
// Unlike the teacher, there is no parallel in-process JSON metrics store:
// vibedbg has no dashboard to serve it to, so the Prometheus registry is
// the only sink.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BreakerState mirrors circuitbreaker.State's three values for the gauge,
// without importing the circuitbreaker package (metrics stays a leaf).
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

var defaultDurationBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Metrics wraps the Prometheus collectors backing the /metrics endpoint.
type Metrics struct {
	registry *prometheus.Registry

	commandsTotal      *prometheus.CounterVec
	commandDuration    prometheus.Histogram
	activeConnections  prometheus.Gauge
	queueDepth         prometheus.Gauge
	breakerState       prometheus.Gauge
	breakerTripsTotal  *prometheus.CounterVec
	uptime             prometheus.GaugeFunc
}

var (
	current   *Metrics
	startTime = time.Now()
)

// Init builds and registers the collector set under namespace (e.g.
// "vibedbg"). Safe to call once at startup; a nil *Metrics before Init
// makes every Record*/Set* call a no-op so callers never need a nil check.
func Init(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,

		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total debugger commands executed, by outcome",
			},
			[]string{"outcome"}, // success, failed, timeout
		),

		commandDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_ms",
				Help:      "Duration of debugger command execution in milliseconds",
				Buckets:   defaultDurationBuckets,
			},
		),

		activeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Number of connected named-pipe clients",
			},
		),

		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Number of commands queued for async execution",
			},
		),

		breakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "breaker_state",
				Help:      "Circuit breaker state guarding the debugger adapter (0=closed, 1=open, 2=half_open)",
			},
		),

		breakerTripsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_trips_total",
				Help:      "Total circuit breaker state transitions, by destination state",
			},
			[]string{"to_state"},
		),
	}

	m.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since the extension controller started",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)

	registry.MustRegister(
		m.commandsTotal,
		m.commandDuration,
		m.activeConnections,
		m.queueDepth,
		m.breakerState,
		m.breakerTripsTotal,
		m.uptime,
	)

	current = m
	return m
}

// RecordCommand records a completed command execution and its outcome
// ("success", "failed", or "timeout").
func RecordCommand(outcome string, durationMs int64) {
	if current == nil {
		return
	}
	current.commandsTotal.WithLabelValues(outcome).Inc()
	current.commandDuration.Observe(float64(durationMs))
}

// SetActiveConnections sets the current connected-client gauge.
func SetActiveConnections(n int) {
	if current == nil {
		return
	}
	current.activeConnections.Set(float64(n))
}

// SetQueueDepth sets the async queue depth gauge.
func SetQueueDepth(n int) {
	if current == nil {
		return
	}
	current.queueDepth.Set(float64(n))
}

// SetBreakerState sets the breaker state gauge.
func SetBreakerState(s BreakerState) {
	if current == nil {
		return
	}
	current.breakerState.Set(float64(s))
}

// RecordBreakerTrip records a circuit breaker state transition.
func RecordBreakerTrip(toState string) {
	if current == nil {
		return
	}
	current.breakerTripsTotal.WithLabelValues(toState).Inc()
}

// Handler returns the HTTP handler for Prometheus scraping. Init must be
// called first; if it wasn't, the handler reports 503.
func Handler() http.Handler {
	if current == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics not initialized", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(current.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry, or nil before Init.
func Registry() *prometheus.Registry {
	if current == nil {
		return nil
	}
	return current.registry
}
