package metrics

import (
	"nocturne-labs/doorman/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks metrics related to individual admission decisions.
//
// Metrics:
//   - doorman_game_decisions_total: Decision count by scenario, outcome, forced
//   - doorman_game_decision_score: Histogram of decision scores
//   - doorman_game_admission_threshold: Current admission threshold
//   - doorman_game_constraint_deficit: Remaining deficit per constraint
//   - doorman_game_constraint_weight: Current weight per constraint
//   - doorman_game_capacity_remaining: Venue capacity still unfilled
//   - doorman_game_rejection_budget_remaining: Rejections still affordable
type DecisionMetrics struct {
	// Decision counts by outcome
	decisionsTotal *prometheus.CounterVec

	// Score distribution of scored (non-forced) decisions
	decisionScore *prometheus.HistogramVec

	// Current admission threshold
	admissionThreshold *prometheus.GaugeVec

	// Per-constraint progress
	constraintDeficit *prometheus.GaugeVec
	constraintWeight  *prometheus.GaugeVec

	// Occupancy state
	capacityRemaining *prometheus.GaugeVec
	budgetRemaining   *prometheus.GaugeVec
}

// NewDecisionMetrics creates and registers decision metrics with the provided registry.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Total number of admission decisions",
			},
			[]string{"scenario", "outcome", "forced"},
		),

		decisionScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_score",
				Help:      "Distribution of weighted scores at decision time",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 0.01 to ~20
			},
			[]string{"scenario"},
		),

		admissionThreshold: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "admission_threshold",
				Help:      "Current admission threshold for scored decisions",
			},
			[]string{"scenario"},
		),

		constraintDeficit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "constraint_deficit",
				Help:      "Admissions still required to satisfy a constraint",
			},
			[]string{"scenario", "attribute"},
		),

		constraintWeight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "constraint_weight",
				Help:      "Current scoring weight of a constraint",
			},
			[]string{"scenario", "attribute"},
		),

		capacityRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "capacity_remaining",
				Help:      "Venue capacity still unfilled",
			},
			[]string{"scenario"},
		),

		budgetRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rejection_budget_remaining",
				Help:      "Rejections remaining before the game is lost",
			},
			[]string{"scenario"},
		),
	}

	registry.MustRegister(
		dm.decisionsTotal,
		dm.decisionScore,
		dm.admissionThreshold,
		dm.constraintDeficit,
		dm.constraintWeight,
		dm.capacityRemaining,
		dm.budgetRemaining,
	)

	return dm
}

// RecordDecision records a single admission decision.
//
// Parameters:
//   - scenario: Scenario label
//   - outcome: "accept" or "reject"
//   - forced: "true" when the decision was forced by slack or satisfaction
//   - score: Weighted score of the person
//   - threshold: Threshold the score was compared against
func (dm *DecisionMetrics) RecordDecision(scenario, outcome, forced string, score, threshold float64) {
	dm.decisionsTotal.WithLabelValues(scenario, outcome, forced).Inc()
	if forced == "false" {
		dm.decisionScore.WithLabelValues(scenario).Observe(score)
	}
	dm.admissionThreshold.WithLabelValues(scenario).Set(threshold)
}

// UpdateConstraint updates the deficit and weight gauges for one constraint.
func (dm *DecisionMetrics) UpdateConstraint(scenario, attribute string, deficit int, weight float64) {
	dm.constraintDeficit.WithLabelValues(scenario, attribute).Set(float64(deficit))
	dm.constraintWeight.WithLabelValues(scenario, attribute).Set(weight)
}

// UpdateOccupancy updates the remaining capacity and budget gauges.
func (dm *DecisionMetrics) UpdateOccupancy(scenario string, capacityRemaining, budgetRemaining int) {
	dm.capacityRemaining.WithLabelValues(scenario).Set(float64(capacityRemaining))
	dm.budgetRemaining.WithLabelValues(scenario).Set(float64(budgetRemaining))
}
