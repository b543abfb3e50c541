// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Payments  *prometheus.CounterVec
	Amount    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewServerMetrics registers the collectors on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func NewServerMetrics(reg *prometheus.Registry) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "checkout",
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "payment_attempts_total",
		Help:      "Terminal payment attempts by status and error kind.",
	}, []string{"provider", "status", "kind"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "payment_captured_minor_units_total",
		Help:      "Sum of successfully paid amounts in minor units.",
	}, []string{"currency"})

	reg.MustRegister(requests, latency, payments, amount)
	return &ServerMetrics{
		Requests:  requests,
		LatencyMS: latency,
		Payments:  payments,
		Amount:    amount,
		gatherer:  reg,
	}
}

// ObservePayment counts one terminal attempt. kind is empty on success.
func (m *ServerMetrics) ObservePayment(provider, status, kind, currency string, minor int64) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	m.Payments.WithLabelValues(provider, status, kind).Inc()
	if kind == "none" && minor > 0 {
		m.Amount.WithLabelValues(currency).Add(float64(minor))
	}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
