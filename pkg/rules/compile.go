package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ruleforge-hq/anvil/pkg/board"
	"ruleforge-hq/anvil/pkg/libeval"
	"ruleforge-hq/anvil/pkg/telemetry/metrics"
	"ruleforge-hq/anvil/pkg/telemetry/tracing"
	"ruleforge-hq/anvil/pkg/textexpr"
)

// Option configures compilation and checking.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	metrics    *metrics.Collector
	tracer     *tracing.Tracer
	maxExprLen int
	progress   func(done, total int)
}

func newOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records compile and check metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// WithTracer wraps compilation and checks in spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithProgress calls fn after each rule of a check with the number of
// rules done so far.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithMaxExpressionLength rejects expressions longer than n bytes.
// 0 disables the limit.
func WithMaxExpressionLength(n int) Option {
	return func(o *options) {
		o.maxExprLen = n
	}
}

// CompiledRule is a rule with its expressions translated to programs.
type CompiledRule struct {
	Rule *Rule

	// Condition is nil when the rule has no condition.
	Condition *libeval.Program
	Assert    *libeval.Program

	// messages holds the programs of the message substitutions by
	// expression text.
	messages map[string]*libeval.Program
}

// CompiledSet is the result of compiling a rule set against a board.
type CompiledSet struct {
	Rules []*CompiledRule

	// Errors holds the diagnostics of rules that failed to compile; those
	// rules are not part of Rules.
	Errors []*RuleError

	// Advisories holds advisory diagnostics of rules that compiled.
	Advisories []*RuleError

	// Disabled counts rules skipped because they are disabled.
	Disabled int
}

// Err joins the compile errors of all failed rules, or returns nil.
func (cs *CompiledSet) Err() error {
	errs := make([]error, len(cs.Errors))
	for i, e := range cs.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Compile compiles every enabled rule of set against b with a single
// compiler. Rules with errors are left out of the returned set and their
// diagnostics collected in CompiledSet.Errors; the returned error joins
// them.
func Compile(ctx context.Context, set *RuleSet, b *board.Board, opts ...Option) (*CompiledSet, error) {
	o := newOptions(opts)

	_, span := o.tracer.Start(ctx, tracing.SpanCompileRules)
	defer span.End()

	compiler := libeval.NewCompiler(b.Resolver(), libeval.WithLogger(o.logger))
	host := board.NewBinder(b)
	cs := &CompiledSet{}

	for _, r := range set.Rules {
		if r.Disabled {
			cs.Disabled++
			continue
		}

		rc := &ruleCompiler{rule: r, compiler: compiler, host: host, opts: o}
		cr := rc.compile()
		if len(rc.errs) > 0 {
			cs.Errors = append(cs.Errors, rc.errs...)
			continue
		}
		cs.Advisories = append(cs.Advisories, rc.advisories...)
		cs.Rules = append(cs.Rules, cr)
	}

	tracing.NewAttributeBuilder().WithRules(len(cs.Rules)+len(cs.Errors), len(cs.Errors)).Apply(span)

	err := cs.Err()
	if err != nil {
		tracing.SetErrorAttributes(span, err, "compile")
		o.logger.Warn("rules failed to compile",
			"compiled", len(cs.Rules),
			"failed", len(cs.Errors),
		)
	} else {
		o.logger.Debug("rules compiled",
			"compiled", len(cs.Rules),
			"advisories", len(cs.Advisories),
		)
	}
	return cs, err
}

type ruleCompiler struct {
	rule     *Rule
	compiler *libeval.Compiler
	host     libeval.Host
	opts     *options

	errs       []*RuleError
	advisories []*RuleError
}

func (rc *ruleCompiler) compile() *CompiledRule {
	cr := &CompiledRule{
		Rule:     rc.rule,
		messages: make(map[string]*libeval.Program),
	}

	if rc.rule.Condition != "" {
		cr.Condition = rc.expr("condition", rc.rule.Condition)
	}
	cr.Assert = rc.expr("assert", rc.rule.Assert)

	if rc.rule.Message != "" {
		collect := textexpr.EvaluatorFunc(func(expr string) (libeval.Value, error) {
			if _, seen := cr.messages[expr]; !seen {
				cr.messages[expr] = rc.expr("message", expr)
			}
			return libeval.Value{}, nil
		})
		if _, err := textexpr.Expand(rc.rule.Message, collect); err != nil {
			rc.errs = append(rc.errs, &RuleError{
				Rule:   rc.rule.Name,
				Source: rc.rule.Source,
				Field:  "message",
				Expr:   rc.rule.Message,
				Err:    err,
			})
		}
	}
	return cr
}

// lineBreaks maps the whitespace YAML block scalars introduce onto spaces,
// one byte for one, so diagnostic offsets still index the rule text.
var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")

func (rc *ruleCompiler) expr(field, src string) *libeval.Program {
	src = lineBreaks.Replace(src)

	ruleErr := func(err error) *RuleError {
		return &RuleError{Rule: rc.rule.Name, Source: rc.rule.Source, Field: field, Expr: src, Err: err}
	}

	if rc.opts.maxExprLen > 0 && len(src) > rc.opts.maxExprLen {
		rc.errs = append(rc.errs, ruleErr(fmt.Errorf("%w: %d bytes, limit %d", ErrExpressionTooLong, len(src), rc.opts.maxExprLen)))
		return nil
	}

	start := time.Now()
	prog, err := rc.compiler.Compile(src, rc.host)
	duration := time.Since(start)

	if err != nil {
		stage := "unknown"
		var le *libeval.Error
		if errors.As(err, &le) {
			stage = le.Stage.String()
		}
		rc.opts.metrics.RecordCompile(stage, false, duration)
		rc.errs = append(rc.errs, ruleErr(err))
		return prog
	}
	rc.opts.metrics.RecordCompile("", true, duration)

	for _, d := range rc.compiler.Diagnostics() {
		if d.Advisory {
			rc.opts.metrics.RecordAdvisory()
			rc.advisories = append(rc.advisories, ruleErr(d))
		}
	}
	return prog
}
