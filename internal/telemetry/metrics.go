// Package telemetry owns the process-wide Prometheus registry and the
// OpenTelemetry tracer provider.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slackapprove"

// ServiceName is the AppContext service key for the shared *Metrics.
const ServiceName = "telemetry.metrics"

// Result label values shared by the counters below.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultPanic    = "panic"
	ResultDropped  = "dropped"
	ResultTimeout  = "timeout"
	ResultLimited  = "rate_limited"
	ResultUnrouted = "unrouted"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	// Interactions counts inbound units of work by kind, routing ID and result.
	Interactions *prometheus.CounterVec

	// InteractionDuration observes handler latency per kind.
	InteractionDuration *prometheus.HistogramVec

	// InboxDepth is the number of units waiting for a worker.
	InboxDepth prometheus.Gauge

	// PlatformCalls counts Slack Web API calls by method and result.
	PlatformCalls *prometheus.CounterVec

	// LedgerClaims counts decision ledger claims by backend and outcome
	// (claimed, duplicate, conflict, error).
	LedgerClaims *prometheus.CounterVec

	// WebhookRequests counts inbound webhook requests by source and status code.
	WebhookRequests *prometheus.CounterVec
}

// NewMetrics registers all collectors on reg. A nil reg gets a fresh
// registry that is not exposed anywhere.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Interactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Inbound Slack interactions by kind, routing ID and result.",
		}, []string{"kind", "id", "result"}),

		InteractionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interaction_duration_seconds",
			Help:      "Time spent handling one interaction.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),

		InboxDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "router_inbox_depth",
			Help:      "Interactions queued for a worker.",
		}),

		PlatformCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_calls_total",
			Help:      "Slack Web API calls by method and result.",
		}, []string{"method", "result"}),

		LedgerClaims: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_claims_total",
			Help:      "Decision ledger claims by backend and outcome.",
		}, []string{"backend", "outcome"}),

		WebhookRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Inbound webhook requests by source and HTTP status.",
		}, []string{"source", "code"}),
	}
}

// RegisterRuntime adds the Go runtime and process collectors.
func (m *Metrics) RegisterRuntime() {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
