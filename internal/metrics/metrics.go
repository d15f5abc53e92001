// Package metrics exposes Prometheus instruments for tool calls, store
// operations and the HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every onboarding metric plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	toolCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboard_tool_calls_total",
			Help: "Tool invocations by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	toolDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onboard_tool_duration_seconds",
			Help:    "Tool invocation latency",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"tool"},
	)

	storeOps = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboard_store_operations_total",
			Help: "Document store operations by backend, operation and outcome",
		},
		[]string{"backend", "op", "outcome"},
	)

	storeDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onboard_store_duration_seconds",
			Help:    "Document store operation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"backend", "op"},
	)

	profilesCompleted = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "onboard_profiles_completed_total",
			Help: "Profiles that transitioned to complete",
		},
	)

	rateLimited = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "onboard_http_rate_limited_total",
			Help: "HTTP requests rejected by the per-client rate limiter",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Outcome labels.
const (
	OutcomeOK         = "ok"
	OutcomeRejected   = "rejected"
	OutcomeError      = "error"
	OutcomeConflict   = "conflict"
	OutcomeNotFound   = "not_found"
	OutcomeDuplicated = "exists"
)

// ObserveTool records one tool call.
func ObserveTool(tool, outcome string, d time.Duration) {
	toolCalls.WithLabelValues(tool, outcome).Inc()
	toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveStore records one repository operation.
func ObserveStore(backend, op, outcome string, d time.Duration) {
	storeOps.WithLabelValues(backend, op, outcome).Inc()
	storeDuration.WithLabelValues(backend, op).Observe(d.Seconds())
}

// ProfileCompleted counts a transition to complete.
func ProfileCompleted() {
	profilesCompleted.Inc()
}

// RateLimited counts a rejected HTTP request.
func RateLimited() {
	rateLimited.Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
