// Package metrics provides Prometheus metrics for the WrestleGuess scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scoring outcome labels
const (
	OutcomeScored        = "scored"
	OutcomeAlreadyScored = "already_scored"
	OutcomeIncomplete    = "incomplete"
	OutcomeNotFound      = "not_found"
	OutcomePartial       = "partial"
	OutcomeError         = "error"
)

// Manager holds every collector the service exports
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	scoringRuns        *prometheus.CounterVec
	scoringDuration    prometheus.Histogram
	membershipsApplied prometheus.Counter
	membershipsSkipped prometheus.Counter
	legacyPicksSkipped prometheus.Counter
	chunksCommitted    prometheus.Counter
	picksSubmitted     prometheus.Counter

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	wsClients prometheus.Gauge
}

// Option applies a configuration option to the Manager
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets for the latency histograms
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry sets the registerer collectors are attached to
func WithRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Custom registry so /metrics carries only service collectors
var customRegistry = prometheus.NewRegistry()

var defaultManager = NewManager(WithRegistry(customRegistry))

// Default returns the process-wide manager registered on the custom registry
func Default() *Manager {
	return defaultManager
}

// GetRegistry returns the registry served on /metrics
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// NewManager creates a manager and registers its collectors
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wrestleguess",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scoringRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Score event invocations by outcome",
	}, []string{"outcome"})

	m.scoringDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a score event invocation",
		Buckets:   m.histogramBuckets,
	})

	m.membershipsApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "memberships_applied_total",
		Help:      "League memberships credited with an event score",
	})

	m.membershipsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "memberships_skipped_total",
		Help:      "Membership writes skipped because the event was already applied",
	})

	m.legacyPicksSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "legacy_picks_skipped_total",
		Help:      "Legacy-format picks excluded from scoring",
	})

	m.chunksCommitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chunks_committed_total",
		Help:      "Standings chunks committed",
	})

	m.picksSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "picks",
		Name:      "submitted_total",
		Help:      "Picks accepted by the submission endpoint",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})

	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "ws",
		Name:      "clients",
		Help:      "Connected websocket clients",
	})
}

// RecordScoringRun counts one score event call and its duration
func (m *Manager) RecordScoringRun(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.scoringRuns.WithLabelValues(outcome).Inc()
	m.scoringDuration.Observe(seconds)
}

// RecordStandings adds the membership and chunk counts of one run
func (m *Manager) RecordStandings(applied, skipped, chunks int) {
	if m == nil {
		return
	}
	m.membershipsApplied.Add(float64(applied))
	m.membershipsSkipped.Add(float64(skipped))
	m.chunksCommitted.Add(float64(chunks))
}

// RecordLegacySkipped counts legacy picks left out of a run
func (m *Manager) RecordLegacySkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.legacyPicksSkipped.Add(float64(n))
}

// RecordPickSubmitted counts an accepted pick
func (m *Manager) RecordPickSubmitted() {
	if m == nil {
		return
	}
	m.picksSubmitted.Inc()
}

// RecordHTTPRequest counts one request and observes its latency
func (m *Manager) RecordHTTPRequest(route, method, statusCode string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(seconds)
}

// SetWebsocketClients reports the current hub size
func (m *Manager) SetWebsocketClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}
