// Package metrics holds the Prometheus collectors for the governance engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine
type Metrics struct {
	// Operation metrics
	OperationTotal    *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Voting power metrics
	VotingPower    prometheus.Histogram
	WhaleDiscounts prometheus.Counter

	// Detection and penalty metrics
	AlertRiskScore  *prometheus.HistogramVec
	PenaltiesIssued *prometheus.CounterVec
	ActivePenalties prometheus.Gauge

	// Appeal metrics
	AppealOutcomes *prometheus.CounterVec

	// Sweeper metrics
	SweepRuns    prometheus.Counter
	SweepActions *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on reg. A nil reg uses the
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		OperationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairgov_operation_total",
				Help: "Engine operations by outcome",
			},
			[]string{"operation", "result"}, // result: ok, config, precondition, state, arithmetic, not_found, internal
		),

		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fairgov_operation_duration_seconds",
				Help:    "Duration of engine operations including persistence",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		VotingPower: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fairgov_voting_power",
				Help:    "Final voting power after the whale cap and discount",
				Buckets: prometheus.ExponentialBuckets(1_000, 4, 10),
			},
		),

		WhaleDiscounts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fairgov_whale_discounts_total",
				Help: "Voting power computations that applied the whale discount",
			},
		),

		AlertRiskScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fairgov_alert_risk_score",
				Help:    "Risk score of created alerts",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
			[]string{"alert_type"},
		),

		PenaltiesIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairgov_penalties_issued_total",
				Help: "Penalties issued by type",
			},
			[]string{"penalty_type"},
		),

		ActivePenalties: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fairgov_active_penalties",
				Help: "Penalties still outstanding",
			},
		),

		AppealOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairgov_appeal_outcomes_total",
				Help: "Appeals reaching a terminal state",
			},
			[]string{"status"}, // APPROVED, REJECTED, EXPIRED
		),

		SweepRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fairgov_sweep_runs_total",
				Help: "Completed sweeper runs",
			},
		),

		SweepActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairgov_sweep_actions_total",
				Help: "Records changed by the sweeper",
			},
			[]string{"action"}, // appeal_expired, penalty_expired, restriction_lifted
		),
	}
}

// ObserveOperation records the outcome and latency of one operation.
func (m *Metrics) ObserveOperation(operation, result string, started time.Time) {
	m.OperationTotal.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
