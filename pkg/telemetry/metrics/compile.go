package metrics

import (
	"time"

	"ruleforge-hq/anvil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CompileMetrics tracks expression compilation.
//
// Metrics:
//   - anvil_compilations_total: Compilations by outcome and failing stage
//   - anvil_compile_duration_seconds: Compilation duration
//   - anvil_advisories_total: Advisory diagnostics raised during compilation
type CompileMetrics struct {
	compilationsTotal *prometheus.CounterVec
	compileDuration   prometheus.Histogram
	advisoriesTotal   prometheus.Counter
}

// NewCompileMetrics creates and registers compile metrics with the provided registry.
func NewCompileMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CompileMetrics {
	cm := &CompileMetrics{
		compilationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "compilations_total",
				Help:      "Total number of expression compilations",
			},
			[]string{"outcome", "stage"},
		),

		compileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "compile_duration_seconds",
				Help:      "Duration of expression compilation in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),

		advisoriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "advisories_total",
				Help:      "Total number of advisory compile diagnostics",
			},
		),
	}

	registry.MustRegister(
		cm.compilationsTotal,
		cm.compileDuration,
		cm.advisoriesTotal,
	)

	return cm
}

// RecordCompile records one compilation. stage names the stage that failed
// and is ignored for successful compilations.
func (cm *CompileMetrics) RecordCompile(stage string, ok bool, duration time.Duration) {
	outcome := "success"
	if ok {
		stage = "none"
	} else {
		outcome = "error"
	}
	cm.compilationsTotal.WithLabelValues(outcome, stage).Inc()
	cm.compileDuration.Observe(duration.Seconds())
}

// RecordAdvisory records an advisory diagnostic.
func (cm *CompileMetrics) RecordAdvisory() {
	cm.advisoriesTotal.Inc()
}
