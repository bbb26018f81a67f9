// Package metrics exports storefront Prometheus metrics. A nil *Metrics, or
// one built with a nil registerer, records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	ordersCreated  *prometheus.CounterVec
	ordersRejected *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	breakerState   *prometheus.GaugeVec
}

// New registers the storefront metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Orders placed, by tenant.",
	}, []string{"tenant"})
	ordersRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_rejected_total",
		Help: "Order placements rejected, by reason.",
	}, []string{"reason"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_transitions_total",
		Help: "Order status transitions.",
	}, []string{"from", "to"})
	breakerState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storefront_client_circuit_breaker_state",
		Help: "Order client circuit breaker state (0=closed, 1=open, 2=half-open).",
	}, []string{"name"})

	reg.MustRegister(httpRequests, httpDuration, ordersCreated, ordersRejected, transitions, breakerState)
	return &Metrics{
		httpRequests:   httpRequests,
		httpDuration:   httpDuration,
		ordersCreated:  ordersCreated,
		ordersRejected: ordersRejected,
		transitions:    transitions,
		breakerState:   breakerState,
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	route = normalizeLabel(route)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) OrderPlaced(tenantID string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(tenantID)).Inc()
}

func (m *Metrics) OrderRejected(reason string) {
	if m == nil || m.ordersRejected == nil {
		return
	}
	m.ordersRejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) StatusChanged(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// SetBreakerState records state as 0 (closed), 1 (open) or 2 (half-open).
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil || m.breakerState == nil {
		return
	}
	m.breakerState.WithLabelValues(normalizeLabel(name)).Set(float64(state))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
