package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ruleforge-hq/anvil/pkg/board"
	"ruleforge-hq/anvil/pkg/libeval"
	"ruleforge-hq/anvil/pkg/telemetry/logging"
	"ruleforge-hq/anvil/pkg/telemetry/tracing"
	"ruleforge-hq/anvil/pkg/textexpr"

	"go.opentelemetry.io/otel/attribute"
)

// Violation is an assertion that evaluated to zero.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	ItemA    string   `json:"item_a"`
	ItemB    string   `json:"item_b,omitempty"`
	Message  string   `json:"message"`

	// Fault is set when the assertion failed closed on a run-time error
	// rather than evaluating to zero.
	Fault string `json:"fault,omitempty"`
}

// Result summarizes a check run.
type Result struct {
	Board       string        `json:"board"`
	Items       int           `json:"items"`
	Rules       int           `json:"rules"`
	Evaluations int           `json:"evaluations"`
	Faults      int           `json:"faults"`
	Violations  []Violation   `json:"violations"`
	Duration    time.Duration `json:"duration"`
}

// Status returns "clean" or "violations".
func (r *Result) Status() string {
	if len(r.Violations) > 0 {
		return "violations"
	}
	return "clean"
}

// Count returns the number of violations with severity s.
func (r *Result) Count(s Severity) int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == s {
			n++
		}
	}
	return n
}

// Checker evaluates a compiled rule set against boards. A Checker may be
// used by several goroutines; each Check runs with its own context.
type Checker struct {
	set  *CompiledSet
	opts *options
}

// NewChecker returns a Checker for set.
func NewChecker(set *CompiledSet, opts ...Option) *Checker {
	return &Checker{set: set, opts: newOptions(opts)}
}

// Set returns the compiled rule set.
func (c *Checker) Set() *CompiledSet {
	return c.set
}

// Check evaluates every rule against b. Single-item rules bind each item
// as A; pairwise rules bind every ordered pair of distinct items as A and
// B. A rule applies when its condition is empty or non-zero, and an
// applicable rule whose assertion evaluates to zero produces a Violation.
//
// Cancellation of ctx is honored between items; the partial result is
// returned together with ctx.Err().
func (c *Checker) Check(ctx context.Context, b *board.Board) (*Result, error) {
	start := time.Now()
	res := &Result{
		Board:      b.Name,
		Items:      len(b.Items),
		Rules:      len(c.set.Rules),
		Violations: []Violation{},
	}

	ctx, span := c.opts.tracer.Start(ctx, tracing.SpanCheck,
		tracing.NewAttributeBuilder().
			WithRun(logging.GetRunID(ctx), b.Name).
			WithRuleFile(logging.GetRuleFile(ctx)).
			WithItems(len(b.Items)).
			Build())
	defer span.End()

	logger := c.opts.logger.With("board", b.Name)
	if runID := logging.GetRunID(ctx); runID != "" {
		logger = logger.With(string(logging.RunIDKey), runID)
	}

	ev := &ruleEval{
		ectx:  libeval.NewContext(),
		board: b,
		opts:  c.opts,
		res:   res,
	}

	var err error
	for i, cr := range c.set.Rules {
		if err = c.checkRule(ctx, ev, cr, logger); err != nil {
			break
		}
		if c.opts.progress != nil {
			c.opts.progress(i+1, len(c.set.Rules))
		}
	}

	res.Duration = time.Since(start)
	tracing.SetCheckResultAttributes(span, res.Evaluations, len(res.Violations), res.Faults)

	status := res.Status()
	if err != nil {
		status = "error"
		tracing.SetErrorAttributes(span, err, "cancelled")
	}
	c.opts.metrics.RecordCheckRun(status, res.Duration)

	logger.Info("check finished",
		"status", status,
		"rules", res.Rules,
		"items", res.Items,
		"violations", len(res.Violations),
		"faults", res.Faults,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, err
}

func (c *Checker) checkRule(ctx context.Context, ev *ruleEval, cr *CompiledRule, logger *slog.Logger) error {
	rule := cr.Rule
	start := time.Now()

	_, span := c.opts.tracer.Start(ctx, tracing.SpanRule)
	tracing.SetRuleAttributes(span, rule.Name, string(rule.Severity), rule.Pairwise)
	defer span.End()

	ev.logger = logger.With(string(logging.RuleKey), rule.Name)
	before := len(ev.res.Violations)
	defer func() {
		c.opts.metrics.ObserveRule(rule.Name, time.Since(start))
		span.SetAttributes(attribute.Int(tracing.AttrViolations, len(ev.res.Violations)-before))
	}()

	items := ev.board.Items
	for _, a := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !rule.Pairwise {
			ev.evaluate(cr, a, nil)
			continue
		}
		for _, b := range items {
			if b != a {
				ev.evaluate(cr, a, b)
			}
		}
	}
	return nil
}

// ruleEval carries the state of one check run.
type ruleEval struct {
	ectx   *libeval.Context
	board  *board.Board
	opts   *options
	res    *Result
	logger *slog.Logger
}

// evaluate checks one rule against item a, or the pair (a, b).
func (ev *ruleEval) evaluate(cr *CompiledRule, a, b *board.Item) {
	rule := cr.Rule
	board.Bind(ev.ectx, a, b)
	ev.res.Evaluations++

	if cr.Condition != nil {
		v, err := cr.Condition.RunE(ev.ectx)
		if err != nil {
			ev.fault(rule, "condition", a, b, err)
			ev.opts.metrics.RecordRuleEvaluation(rule.Name, "fault")
			return
		}
		if v.AsDouble() == 0 {
			ev.opts.metrics.RecordRuleEvaluation(rule.Name, "skipped")
			return
		}
	}

	v, err := cr.Assert.RunE(ev.ectx)
	ev.logRuntimeErrors(a, b)

	if err == nil && v.AsDouble() != 0 {
		ev.opts.metrics.RecordRuleEvaluation(rule.Name, "pass")
		return
	}

	viol := Violation{
		Rule:     rule.Name,
		Severity: rule.Severity,
		ItemA:    a.Name,
	}
	if b != nil {
		viol.ItemB = b.Name
	}
	if err != nil {
		ev.fault(rule, "assert", a, b, err)
		viol.Fault = err.Error()
	}
	viol.Message = ev.message(cr, a, b)

	ev.res.Violations = append(ev.res.Violations, viol)
	ev.opts.metrics.RecordRuleEvaluation(rule.Name, "fail")
	ev.opts.metrics.RecordViolation(rule.Name, string(rule.Severity))
}

func (ev *ruleEval) fault(rule *Rule, field string, a, b *board.Item, err error) {
	ev.res.Faults++
	ev.opts.metrics.RecordRuntimeFault(rule.Name)

	args := []any{"field", field, "item_a", a.Name, "error", err}
	if b != nil {
		args = append(args, "item_b", b.Name)
	}
	ev.logger.Warn("rule evaluation failed", args...)
}

func (ev *ruleEval) logRuntimeErrors(a, b *board.Item) {
	for _, msg := range ev.ectx.Errors() {
		args := []any{"item_a", a.Name, "error", msg}
		if b != nil {
			args = append(args, "item_b", b.Name)
		}
		ev.logger.Debug("runtime diagnostic", args...)
	}
}

// message expands the rule message with the items still bound, or
// returns a default text when the rule has none.
func (ev *ruleEval) message(cr *CompiledRule, a, b *board.Item) string {
	if cr.Rule.Message == "" {
		if b != nil {
			return fmt.Sprintf("%s failed for %s and %s", cr.Rule.Name, a.Name, b.Name)
		}
		return fmt.Sprintf("%s failed for %s", cr.Rule.Name, a.Name)
	}

	eval := textexpr.EvaluatorFunc(func(expr string) (libeval.Value, error) {
		prog, ok := cr.messages[expr]
		if !ok || prog == nil {
			return libeval.Value{}, fmt.Errorf("expression %q was not compiled", expr)
		}
		return prog.RunE(ev.ectx)
	})

	msg, err := textexpr.Expand(cr.Rule.Message, eval, textexpr.WithResolver(ev.board.Resolver()))
	if err != nil {
		ev.logger.Debug("message expansion failed", "error", err)
	}
	return msg
}
