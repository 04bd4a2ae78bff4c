package metrics

import (
	"sync"
	"time"

	"ruleforge-hq/anvil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the main orchestrator for all Prometheus metrics in Anvil.
// It manages metric registration and provides a unified interface for
// recording metrics across the compiler and the rule checker.
//
// All methods are safe to call on a nil *Collector, which records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	compileMetrics *CompileMetrics
	checkMetrics   *CheckMetrics

	// Rule names come from user files; cap the label values they produce
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "anvil",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}

	c.compileMetrics = NewCompileMetrics(cfg, registry)
	c.checkMetrics = NewCheckMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// ruleLabel returns rule, or "other" once the cardinality limit is reached.
func (c *Collector) ruleLabel(rule string) string {
	if !c.cardinalityLimiter.Allow(rule) {
		return "other"
	}
	return rule
}

// RecordCompile records a compilation.
//
// Parameters:
//   - stage: stage of the first error ("parse", "codegen"), ignored when ok
//   - ok: whether compilation succeeded
//   - duration: time spent compiling
func (c *Collector) RecordCompile(stage string, ok bool, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.compileMetrics.RecordCompile(stage, ok, duration)
}

// RecordAdvisory records an advisory compile diagnostic.
func (c *Collector) RecordAdvisory() {
	if !c.enabled() {
		return
	}
	c.compileMetrics.RecordAdvisory()
}

// RecordRuleEvaluation records the outcome of evaluating a rule for one
// item or pair. result is "pass", "fail" or "skipped".
func (c *Collector) RecordRuleEvaluation(rule, result string) {
	if !c.enabled() {
		return
	}
	c.checkMetrics.RecordEvaluation(c.ruleLabel(rule), result)
}

// ObserveRule records the time spent on one rule during a check.
func (c *Collector) ObserveRule(rule string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.checkMetrics.ObserveRule(c.ruleLabel(rule), duration)
}

// RecordViolation records a violation.
func (c *Collector) RecordViolation(rule, severity string) {
	if !c.enabled() {
		return
	}
	c.checkMetrics.RecordViolation(c.ruleLabel(rule), severity)
}

// RecordRuntimeFault records a program run that failed closed.
func (c *Collector) RecordRuntimeFault(rule string) {
	if !c.enabled() {
		return
	}
	c.checkMetrics.RecordFault(c.ruleLabel(rule))
}

// RecordCheckRun records a completed check run with status "clean",
// "violations" or "error".
func (c *Collector) RecordCheckRun(status string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.checkMetrics.RecordRun(status, duration)
}

// RecordRulesReload records a rule set reload with status "success" or "error".
func (c *Collector) RecordRulesReload(status string) {
	if !c.enabled() {
		return
	}
	c.checkMetrics.RecordReload(status)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
