// Package metrics exposes Prometheus instrumentation for the ledger.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/splitledger/internal/calculator"
)

const namespace = "splitledger"

// Metrics holds the ledger's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	balanceComputations *prometheus.CounterVec
	balanceDuration     prometheus.Histogram
	openEdges           prometheus.Gauge
	outstandingCents    prometheus.Gauge
	settlementsRecorded prometheus.Counter
	settledCents        prometheus.Counter
	assignmentsPaid     prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		balanceComputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_computations_total",
			Help:      "Balance computations by outcome.",
		}, []string{"outcome"}),
		balanceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "balance_computation_seconds",
			Help:      "Time spent computing balances from a snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		openEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_edges",
			Help:      "Netted edges in the most recent balance computation.",
		}),
		outstandingCents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outstanding_cents",
			Help:      "Sum of netted edge amounts in the most recent balance computation.",
		}),
		settlementsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_recorded_total",
			Help:      "Settlements persisted.",
		}),
		settledCents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_cents_total",
			Help:      "Cents paid through recorded settlements.",
		}),
		assignmentsPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_marked_paid_total",
			Help:      "Assignments flipped to paid by settlement reconciliation.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.balanceComputations,
		m.balanceDuration,
		m.openEdges,
		m.outstandingCents,
		m.settlementsRecorded,
		m.settledCents,
		m.assignmentsPaid,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBalances records a successful computation.
func (m *Metrics) ObserveBalances(elapsed time.Duration, res *calculator.Result) {
	if m == nil {
		return
	}
	m.balanceComputations.WithLabelValues("ok").Inc()
	m.balanceDuration.Observe(elapsed.Seconds())

	var outstanding int64
	for _, e := range res.Edges {
		outstanding += e.AmountCents
	}
	m.openEdges.Set(float64(len(res.Edges)))
	m.outstandingCents.Set(float64(outstanding))
}

// BalanceFailed records a computation that returned an error.
func (m *Metrics) BalanceFailed() {
	if m == nil {
		return
	}
	m.balanceComputations.WithLabelValues("error").Inc()
}

// SettlementRecorded records a persisted settlement and how many
// assignments it marked paid.
func (m *Metrics) SettlementRecorded(amountCents int64, markedPaid int) {
	if m == nil {
		return
	}
	m.settlementsRecorded.Inc()
	m.settledCents.Add(float64(amountCents))
	m.assignmentsPaid.Add(float64(markedPaid))
}
