package metrics

import (
	"time"

	"ruleforge-hq/anvil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckMetrics tracks rule checking.
//
// Metrics:
//   - anvil_rule_evaluations_total: Rule evaluations by rule and result
//   - anvil_rule_evaluation_duration_seconds: Time spent per rule per check
//   - anvil_violations_total: Violations by rule and severity
//   - anvil_runtime_faults_total: Programs that failed closed at run time
//   - anvil_check_runs_total: Completed check runs by status
//   - anvil_check_duration_seconds: Duration of whole check runs
//   - anvil_rule_reloads_total: Rule set reloads by status
type CheckMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	violationsTotal    *prometheus.CounterVec
	faultsTotal        *prometheus.CounterVec
	runsTotal          *prometheus.CounterVec
	runDuration        prometheus.Histogram
	reloadsTotal       *prometheus.CounterVec
}

// NewCheckMetrics creates and registers check metrics with the provided registry.
func NewCheckMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CheckMetrics {
	cm := &CheckMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_evaluations_total",
				Help:      "Total number of rule evaluations",
			},
			[]string{"rule", "result"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_evaluation_duration_seconds",
				Help:      "Time spent evaluating one rule over a board in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"rule"},
		),

		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "violations_total",
				Help:      "Total number of rule violations",
			},
			[]string{"rule", "severity"},
		),

		faultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "runtime_faults_total",
				Help:      "Total number of program runs that failed closed",
			},
			[]string{"rule"},
		),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "check_runs_total",
				Help:      "Total number of check runs",
			},
			[]string{"status"},
		),

		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "check_duration_seconds",
				Help:      "Duration of check runs in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_reloads_total",
				Help:      "Total number of rule set reloads",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		cm.evaluationsTotal,
		cm.evaluationDuration,
		cm.violationsTotal,
		cm.faultsTotal,
		cm.runsTotal,
		cm.runDuration,
		cm.reloadsTotal,
	)

	return cm
}

// RecordEvaluation records one rule evaluation with result "pass", "fail"
// or "skipped".
func (cm *CheckMetrics) RecordEvaluation(rule, result string) {
	cm.evaluationsTotal.WithLabelValues(rule, result).Inc()
}

// ObserveRule records the time spent on one rule during a check.
func (cm *CheckMetrics) ObserveRule(rule string, duration time.Duration) {
	cm.evaluationDuration.WithLabelValues(rule).Observe(duration.Seconds())
}

// RecordViolation records a violation.
func (cm *CheckMetrics) RecordViolation(rule, severity string) {
	cm.violationsTotal.WithLabelValues(rule, severity).Inc()
}

// RecordFault records a program run that failed closed.
func (cm *CheckMetrics) RecordFault(rule string) {
	cm.faultsTotal.WithLabelValues(rule).Inc()
}

// RecordRun records a completed check run.
func (cm *CheckMetrics) RecordRun(status string, duration time.Duration) {
	cm.runsTotal.WithLabelValues(status).Inc()
	cm.runDuration.Observe(duration.Seconds())
}

// RecordReload records a rule set reload.
func (cm *CheckMetrics) RecordReload(status string) {
	cm.reloadsTotal.WithLabelValues(status).Inc()
}
