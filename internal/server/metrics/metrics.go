// Package metrics exposes gateway counters in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes of a gateway request.
const (
	OutcomeForwarded = "forwarded"
	OutcomeDenied    = "denied"
	OutcomeUpstream  = "upstream_error"
	OutcomeInternal  = "internal_error"
	OutcomeInvalid   = "invalid"
)

// UnlistedMethod replaces method names outside the allowlist in labels so
// callers cannot grow the series count.
const UnlistedMethod = "unlisted"

// Metrics is safe to use as a nil pointer, in which case it records nothing.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	denials  *prometheus.CounterVec
	backend  *prometheus.HistogramVec
}

// New registers the gateway collectors. connections reports the number of open client connections.
func New(connections func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verusgate",
			Name:      "requests_total",
			Help:      "RPC requests by method and outcome.",
		}, []string{"method", "outcome"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verusgate",
			Name:      "denials_total",
			Help:      "Calls refused by the allowlist by reason.",
		}, []string{"reason"}),
		backend: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "verusgate",
			Name:      "backend_call_seconds",
			Help:      "Latency of calls forwarded to the node.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "ok"}),
	}
	m.registry.MustRegister(
		m.requests, m.denials, m.backend,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if connections != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "verusgate",
			Name:      "open_connections",
			Help:      "Client connections currently open.",
		}, connections))
	}
	return m
}

// ObserveRequest counts one request. method must already be reduced with a label guard.
func (m *Metrics) ObserveRequest(method, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) ObserveDenial(reason string) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveBackend(method string, d time.Duration, err error) {
	if m == nil {
		return
	}
	ok := "true"
	if err != nil {
		ok = "false"
	}
	m.backend.WithLabelValues(method, ok).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
