// Package metrics holds the Prometheus instruments for simulation sessions.
// Each Registry owns its own prometheus.Registry so tests and parallel
// sweeps never share counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nvandessel/supplyshock/internal/kpi"
	"github.com/nvandessel/supplyshock/internal/mutation"
)

// Registry holds all supplyshock metrics.
type Registry struct {
	EventsGenerated  *prometheus.CounterVec
	Mutations        *prometheus.CounterVec
	AnalysisAttempts *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	KPI              *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewRegistry creates a Registry with every metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,

		EventsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supplyshock_events_generated_total",
				Help: "World events generated, by event type",
			},
			[]string{"event_type"},
		),
		Mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supplyshock_mutations_total",
				Help: "Mutation instructions processed, by entity type and outcome",
			},
			[]string{"entity_type", "outcome"},
		),
		AnalysisAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supplyshock_analysis_attempts_total",
				Help: "Calls to the reasoning service, by outcome",
			},
			[]string{"outcome"},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supplyshock_transitions_total",
				Help: "Session state transitions, by target state",
			},
			[]string{"to"},
		),
		KPI: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "supplyshock_kpi",
				Help: "Current KPI values of the session",
			},
			[]string{"metric"},
		),
	}
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordEvent counts a generated event.
func (r *Registry) RecordEvent(eventType string) {
	if r == nil {
		return
	}
	r.EventsGenerated.WithLabelValues(eventType).Inc()
}

// RecordMutations counts each instruction by its apply outcome.
func (r *Registry) RecordMutations(ins []mutation.Instruction, report mutation.Report) {
	if r == nil {
		return
	}
	for i, o := range report.Outcomes {
		entity := "unknown"
		if i < len(ins) && ins[i].EntityType != "" {
			entity = string(ins[i].EntityType)
		}
		r.Mutations.WithLabelValues(entity, string(o)).Inc()
	}
}

// ObserveAnalysisAttempt counts one reasoning call. It satisfies
// reasoning.AttemptObserver.
func (r *Registry) ObserveAnalysisAttempt(outcome string) {
	if r == nil {
		return
	}
	r.AnalysisAttempts.WithLabelValues(outcome).Inc()
}

// RecordTransition counts a state change and publishes the KPIs reached.
func (r *Registry) RecordTransition(to string, current kpi.Set) {
	if r == nil {
		return
	}
	r.Transitions.WithLabelValues(to).Inc()
	r.SetKPIs(current)
}

// SetKPIs publishes the given KPI set on the gauge.
func (r *Registry) SetKPIs(s kpi.Set) {
	if r == nil {
		return
	}
	r.KPI.WithLabelValues("service_level").Set(float64(s.ServiceLevel))
	r.KPI.WithLabelValues("stockout_risk_customers").Set(float64(s.StockoutRiskCustomers))
	r.KPI.WithLabelValues("avg_lead_time").Set(float64(s.AvgLeadTime))
	r.KPI.WithLabelValues("cost_index").Set(float64(s.CostIndex))
}
