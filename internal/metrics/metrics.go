// Package metrics exposes Prometheus instrumentation for the storefront.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics holds the storefront collectors. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry setup.
type Metrics struct {
	transitions    *prometheus.CounterVec
	ordersPlaced   prometheus.Counter
	storageErrors  *prometheus.CounterVec
	providerErrors *prometheus.CounterVec
	activeClients  prometheus.Gauge
	httpRequests   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. If reg also implements
// prometheus.Gatherer, Handler serves from it.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_transitions_total",
			Help:      "Checkout step transition attempts by origin, target and result.",
		}, []string{"from", "to", "result"}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Order numbers generated.",
		}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Durable storage failures that were recovered locally.",
		}, []string{"op"}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_provider_errors_total",
			Help:      "Identity provider failures degraded to no session.",
		}, []string{"op"}),
		activeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_clients",
			Help:      "Client sessions currently held in memory.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	reg.MustRegister(m.transitions, m.ordersPlaced, m.storageErrors, m.providerErrors, m.activeClients, m.httpRequests)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Transition records a checkout transition attempt.
func (m *Metrics) Transition(from, to, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, result).Inc()
}

// OrderPlaced records a generated order number.
func (m *Metrics) OrderPlaced() {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
}

// StorageError records a recovered storage failure for op ("load", "save").
func (m *Metrics) StorageError(op string) {
	if m == nil {
		return
	}
	m.storageErrors.WithLabelValues(op).Inc()
}

// ProviderError records an identity provider failure.
func (m *Metrics) ProviderError(op string) {
	if m == nil {
		return
	}
	m.providerErrors.WithLabelValues(op).Inc()
}

// SetActiveClients sets the number of live client sessions.
func (m *Metrics) SetActiveClients(n int) {
	if m == nil {
		return
	}
	m.activeClients.Set(float64(n))
}

// HTTPRequest records a served request.
func (m *Metrics) HTTPRequest(method, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, code).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
