// Package observability provides a Prometheus-backed trace sink for
// the intake engine. Hooks are fire-and-forget: the core succeeds
// identically whether or not they are attached.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/intake/pkg/domain"
)

// Metrics holds the collectors fed by engine trace events.
type Metrics struct {
	candidates *prometheus.CounterVec
	decisions  *prometheus.CounterVec
	repairs    *prometheus.CounterVec
	steps      *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_extraction_candidates_total",
				Help: "Extraction candidates produced, by slot key and pattern tier.",
			},
			[]string{"key", "tier"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_merge_decisions_total",
				Help: "Merge decisions, by slot key and action.",
			},
			[]string{"key", "action"},
		),
		repairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_sanitizer_repairs_total",
				Help: "Contaminated slots nullified by the sanitizer, by slot key.",
			},
			[]string{"key"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_step_outcomes_total",
				Help: "Sequencer step outcomes, by outcome.",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.candidates, m.decisions, m.repairs, m.steps)
	return m
}

// Hooks returns trace hooks feeding these collectors.
func (m *Metrics) Hooks() domain.TraceHooks {
	return domain.TraceHooks{
		OnCandidate: func(_ context.Context, e *domain.CandidateEvent) {
			m.candidates.WithLabelValues(e.Key, string(e.Tier)).Inc()
		},
		OnDecision: func(_ context.Context, e *domain.DecisionEvent) {
			m.decisions.WithLabelValues(e.Key, string(e.Action)).Inc()
		},
		OnRepair: func(_ context.Context, e *domain.RepairEvent) {
			m.repairs.WithLabelValues(e.Key).Inc()
		},
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			m.steps.WithLabelValues(e.Outcome).Inc()
		},
	}
}
