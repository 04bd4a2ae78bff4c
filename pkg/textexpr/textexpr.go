package textexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ruleforge-hq/anvil/pkg/libeval"
	"ruleforge-hq/anvil/pkg/units"
)

// Evaluator evaluates a single expression.
type Evaluator interface {
	Evaluate(expr string) (libeval.Value, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(expr string) (libeval.Value, error)

// Evaluate calls f(expr).
func (f EvaluatorFunc) Evaluate(expr string) (libeval.Value, error) {
	return f(expr)
}

// ExprError reports a substitution that could not be evaluated.
type ExprError struct {
	Expr   string
	Offset int // offset of "@{" in the text
	Err    error
}

// Error returns the error message.
func (e *ExprError) Error() string {
	return fmt.Sprintf("expression %q at offset %d: %v", e.Expr, e.Offset, e.Err)
}

// Unwrap returns the evaluation error.
func (e *ExprError) Unwrap() error {
	return e.Err
}

// ErrUnterminated is wrapped by ExprError for "@{" without a closing brace.
var ErrUnterminated = errors.New("unterminated substitution")

// Option configures Expand.
type Option func(*expander)

// WithResolver formats quantities with the unit names of r.
func WithResolver(r *units.Resolver) Option {
	return func(e *expander) {
		e.resolver = r
	}
}

type expander struct {
	resolver *units.Resolver
}

// Expand replaces every "@{expr}" in text with the value of expr. Numbers
// carrying a unit are rendered through the resolver, other numbers in
// shortest form and strings verbatim. A substitution that fails is left in
// place and reported; all failures are joined into the returned error.
//
// Braces inside quoted strings do not close a substitution, so
// "@{A.Name == '}'}" is a single expression.
func Expand(text string, eval Evaluator, opts ...Option) (string, error) {
	e := &expander{}
	for _, opt := range opts {
		opt(e)
	}

	if !strings.Contains(text, "@{") {
		return text, nil
	}

	var (
		sb   strings.Builder
		errs []error
	)
	sb.Grow(len(text))

	for i := 0; i < len(text); {
		start := strings.Index(text[i:], "@{")
		if start < 0 {
			sb.WriteString(text[i:])
			break
		}
		start += i
		sb.WriteString(text[i:start])

		end := closingBrace(text, start+2)
		if end < 0 {
			errs = append(errs, &ExprError{Expr: text[start+2:], Offset: start, Err: ErrUnterminated})
			sb.WriteString(text[start:])
			break
		}

		expr := text[start+2 : end]
		v, err := eval.Evaluate(expr)
		if err != nil {
			errs = append(errs, &ExprError{Expr: expr, Offset: start, Err: err})
			sb.WriteString(text[start : end+1])
		} else {
			sb.WriteString(e.format(v))
		}
		i = end + 1
	}

	return sb.String(), errors.Join(errs...)
}

// closingBrace returns the index of the '}' ending a substitution body that
// starts at from, skipping quoted strings, or -1.
func closingBrace(text string, from int) int {
	var quote byte
	for i := from; i < len(text); i++ {
		ch := text[i]
		switch {
		case quote != 0:
			if ch == '\\' && i+1 < len(text) {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '}':
			return i
		}
	}
	return -1
}

func (e *expander) format(v libeval.Value) string {
	switch v.Type() {
	case libeval.TypeString:
		return v.AsString()
	case libeval.TypeNumeric:
		if e.resolver != nil && v.Unit() != units.None {
			return e.resolver.FormatQuantity(v.AsDouble(), v.Unit())
		}
		return strconv.FormatFloat(v.AsDouble(), 'g', -1, 64)
	case libeval.TypeNull:
		return "null"
	default:
		return ""
	}
}
