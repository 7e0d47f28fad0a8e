package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout outcome labels.
const (
	OutcomeSuccess       = "success"
	OutcomeEmptyCart     = "empty_cart"
	OutcomeUnavailable   = "product_unavailable"
	OutcomeInsufficient  = "insufficient_stock"
	OutcomeInvalidMethod = "invalid_payment_method"
	OutcomeConflict      = "conflict"
	OutcomeReplay        = "replay"
	OutcomeError         = "error"
)

type ServerMetrics struct {
	registry *prometheus.Registry

	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Checkouts *prometheus.CounterVec
	Relayed   *prometheus.CounterVec
}

// NewServerMetrics registers the storefront collectors on a registry of
// their own, so several instances can coexist in tests.
func NewServerMetrics(service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	relayed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "outbox_relayed_total",
		Help:      "Outbox records published to the broker, by topic.",
	}, []string{"topic"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		requests, latency, checkouts, relayed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &ServerMetrics{
		registry:  registry,
		Requests:  requests,
		LatencyMS: latency,
		Checkouts: checkouts,
		Relayed:   relayed,
	}
}

// CheckoutOutcome counts one checkout attempt.
func (m *ServerMetrics) CheckoutOutcome(outcome string) {
	m.Checkouts.WithLabelValues(outcome).Inc()
}

// OutboxRelayed counts one record published on topic.
func (m *ServerMetrics) OutboxRelayed(topic string) {
	m.Relayed.WithLabelValues(topic).Inc()
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
