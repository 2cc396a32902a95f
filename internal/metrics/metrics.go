// Package metrics exposes Prometheus collectors for the live channel, the
// event pipeline and the ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/streamreact/companion/internal/domain"
)

// Metrics groups the service collectors under a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Connections   prometheus.Gauge
	Balance       prometheus.Gauge
	Events        *prometheus.CounterVec
	Reactions     *prometheus.CounterVec
	Purchases     *prometheus.CounterVec
	SlowConsumers prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "companion",
			Name:      "live_connections",
			Help:      "Currently open live channel connections.",
		}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "companion",
			Name:      "ledger_balance",
			Help:      "Current wallet balance.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "companion",
			Name:      "inbound_events_total",
			Help:      "Inbound live channel events by name.",
		}, []string{"event"}),
		Reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "companion",
			Name:      "reactions_total",
			Help:      "Broadcast reactions by trigger category.",
		}, []string{"category"}),
		Purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "companion",
			Name:      "purchases_total",
			Help:      "Purchase attempts by outcome.",
		}, []string{"outcome"}),
		SlowConsumers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "companion",
			Name:      "slow_consumers_dropped_total",
			Help:      "Connections dropped because their send buffer was full.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Connections, m.Balance, m.Events, m.Reactions, m.Purchases, m.SlowConsumers,
	)
	return m
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveEvent counts an inbound event.
func (m *Metrics) ObserveEvent(name string) {
	m.Events.WithLabelValues(name).Inc()
}

// ObserveReaction counts a broadcast reaction.
func (m *Metrics) ObserveReaction(category string) {
	m.Reactions.WithLabelValues(category).Inc()
}

// ObservePurchase counts a purchase attempt.
func (m *Metrics) ObservePurchase(outcome domain.PurchaseOutcome) {
	m.Purchases.WithLabelValues(string(outcome)).Inc()
}

// SetBalance publishes the ledger balance.
func (m *Metrics) SetBalance(balance decimal.Decimal) {
	f, _ := balance.Float64()
	m.Balance.Set(f)
}
