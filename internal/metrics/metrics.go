// Package metrics exposes the dashboard's Prometheus instruments.
// Every recording method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadboard"

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	snapshots           *prometheus.CounterVec
	subscriptionErrors  *prometheus.CounterVec
	activeSubscriptions *prometheus.GaugeVec
	mutations           *prometheus.CounterVec
	cascadeDeletes      *prometheus.CounterVec
	transitions         *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_snapshots_total",
			Help:      "Collection snapshots received by a mirror.",
		}, []string{"role"}),
		subscriptionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_subscription_errors_total",
			Help:      "Subscriptions ended by a store error.",
		}, []string{"role"}),
		activeSubscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mirror_active_subscriptions",
			Help:      "Live subscriptions per mirror role.",
		}, []string{"role"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Client mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		cascadeDeletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_lead_deletes_total",
			Help:      "Lead deletions issued by client cascades.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_transitions_total",
			Help:      "Applied view-state transitions by event and resulting view.",
		}, []string{"event", "view"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.snapshots,
		m.subscriptionErrors,
		m.activeSubscriptions,
		m.mutations,
		m.cascadeDeletes,
		m.transitions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SnapshotReceived(role string) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(role).Inc()
}

func (m *Metrics) SubscriptionFailed(role string) {
	if m == nil {
		return
	}
	m.subscriptionErrors.WithLabelValues(role).Inc()
}

func (m *Metrics) SubscriptionOpened(role string) {
	if m == nil {
		return
	}
	m.activeSubscriptions.WithLabelValues(role).Inc()
}

func (m *Metrics) SubscriptionClosed(role string) {
	if m == nil {
		return
	}
	m.activeSubscriptions.WithLabelValues(role).Dec()
}

func (m *Metrics) Mutation(operation, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) CascadeDelete(outcome string) {
	if m == nil {
		return
	}
	m.cascadeDeletes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Transition(event, view string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(event, view).Inc()
}
