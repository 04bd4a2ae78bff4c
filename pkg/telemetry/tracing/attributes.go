package tracing

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names used by the compiler pipeline and the rule checker.
const (
	SpanCompileRules = "anvil.rules.compile"
	SpanCheck        = "anvil.check"
	SpanRule         = "anvil.check.rule"
	SpanStoreRun     = "anvil.report.store"
)

// Custom attribute keys use the "anvil.*" namespace.
const (
	AttrRunID    = "anvil.run_id"
	AttrBoard    = "anvil.board"
	AttrRuleFile = "anvil.rule_file"

	AttrRule         = "anvil.rule"
	AttrRuleSeverity = "anvil.rule.severity"
	AttrRulePairwise = "anvil.rule.pairwise"

	AttrRuleCount      = "anvil.rules.count"
	AttrRuleErrorCount = "anvil.rules.errors"

	AttrItems      = "anvil.items"
	AttrEvaluated  = "anvil.evaluations"
	AttrViolations = "anvil.violations"
	AttrFaults     = "anvil.faults"

	AttrCompileStage  = "anvil.compile.stage"
	AttrCompileOffset = "anvil.compile.offset"

	AttrErrorType    = "anvil.error.type"
	AttrErrorMessage = "error.message"
)

// SetRuleAttributes sets rule-related attributes on a span.
//
// Example:
//
//	SetRuleAttributes(span, "min-clearance", "error", true)
func SetRuleAttributes(span trace.Span, rule, severity string, pairwise bool) {
	span.SetAttributes(
		attribute.String(AttrRule, rule),
		attribute.String(AttrRuleSeverity, severity),
		attribute.Bool(AttrRulePairwise, pairwise),
	)
}

// SetCheckResultAttributes records the totals of a finished check.
func SetCheckResultAttributes(span trace.Span, evaluations, violations, faults int) {
	span.SetAttributes(
		attribute.Int(AttrEvaluated, evaluations),
		attribute.Int(AttrViolations, violations),
		attribute.Int(AttrFaults, faults),
	)
}

// SetErrorAttributes sets error-related attributes on a span.
// This also records the error using span.RecordError() and sets the span status.
//
// Example:
//
//	SetErrorAttributes(span, err, "compile")
func SetErrorAttributes(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}

	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String(AttrErrorType, errorType),
		attribute.String(AttrErrorMessage, err.Error()),
	)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent adds a named event to the span with optional attributes.
//
// Example:
//
//	AddEvent(span, "compile_error",
//	    attribute.String(AttrCompileStage, "parse"),
//	    attribute.Int(AttrCompileOffset, 7),
//	)
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AttributeBuilder provides a fluent interface for building span attributes.
type AttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewAttributeBuilder creates a new attribute builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithRun adds the run ID and board name.
func (ab *AttributeBuilder) WithRun(runID, board string) *AttributeBuilder {
	if runID != "" {
		ab.attrs = append(ab.attrs, attribute.String(AttrRunID, runID))
	}
	ab.attrs = append(ab.attrs, attribute.String(AttrBoard, board))
	return ab
}

// WithRuleFile adds the rule file path.
func (ab *AttributeBuilder) WithRuleFile(path string) *AttributeBuilder {
	if path != "" {
		ab.attrs = append(ab.attrs, attribute.String(AttrRuleFile, path))
	}
	return ab
}

// WithRules adds the number of rules and how many failed to compile.
func (ab *AttributeBuilder) WithRules(count, errors int) *AttributeBuilder {
	ab.attrs = append(ab.attrs,
		attribute.Int(AttrRuleCount, count),
		attribute.Int(AttrRuleErrorCount, errors),
	)
	return ab
}

// WithItems adds the number of board items.
func (ab *AttributeBuilder) WithItems(n int) *AttributeBuilder {
	ab.attrs = append(ab.attrs, attribute.Int(AttrItems, n))
	return ab
}

// WithCustom adds a custom attribute.
func (ab *AttributeBuilder) WithCustom(key string, value interface{}) *AttributeBuilder {
	switch v := value.(type) {
	case string:
		ab.attrs = append(ab.attrs, attribute.String(key, v))
	case int:
		ab.attrs = append(ab.attrs, attribute.Int(key, v))
	case int64:
		ab.attrs = append(ab.attrs, attribute.Int64(key, v))
	case float64:
		ab.attrs = append(ab.attrs, attribute.Float64(key, v))
	case bool:
		ab.attrs = append(ab.attrs, attribute.Bool(key, v))
	default:
		ab.attrs = append(ab.attrs, attribute.String(key, fmt.Sprintf("%v", v)))
	}
	return ab
}

// Build returns the built attributes as a trace.SpanStartOption.
func (ab *AttributeBuilder) Build() trace.SpanStartOption {
	return trace.WithAttributes(ab.attrs...)
}

// Apply applies the attributes to a span.
func (ab *AttributeBuilder) Apply(span trace.Span) {
	span.SetAttributes(ab.attrs...)
}

// Attributes returns the raw attribute slice.
func (ab *AttributeBuilder) Attributes() []attribute.KeyValue {
	return ab.attrs
}
