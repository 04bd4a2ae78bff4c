package textexpr

import (
	"errors"
	"testing"

	"ruleforge-hq/anvil/pkg/libeval"
	"ruleforge-hq/anvil/pkg/units"
)

var errBad = errors.New("bad expression")

func mapEvaluator(values map[string]libeval.Value) Evaluator {
	return EvaluatorFunc(func(expr string) (libeval.Value, error) {
		v, ok := values[expr]
		if !ok {
			return libeval.Value{}, errBad
		}
		return v, nil
	})
}

func TestExpand(t *testing.T) {
	eval := mapEvaluator(map[string]libeval.Value{
		"A.Name":          libeval.String("R1"),
		"A.Width":         libeval.Quantity(250000, units.Distance),
		"2*3":             libeval.Number(6),
		"1/2":             libeval.Number(0.5),
		"A.Net":           libeval.Null(),
		"A.Name == '}'":   libeval.Number(0),
		"A.Layer":         libeval.String("F.Cu"),
		" A.Name ":        libeval.String("padded"),
		"A.Angle":         libeval.Quantity(45, units.Angle),
		"A.Type == \"x\"": libeval.Number(1),
	})

	tests := []struct {
		name    string
		text    string
		want    string
		wantErr int
	}{
		{"no substitutions", "plain text", "plain text", 0},
		{"string", "item @{A.Name}", "item R1", 0},
		{"quantity", "width @{A.Width}", "width 0.25mm", 0},
		{"plain number", "@{2*3} pads", "6 pads", 0},
		{"fraction", "@{1/2}", "0.5", 0},
		{"null", "net @{A.Net}", "net null", 0},
		{"several", "@{A.Name} on @{A.Layer}", "R1 on F.Cu", 0},
		{"whitespace kept in expression", "@{ A.Name }", "padded", 0},
		{"brace in single quotes", "@{A.Name == '}'}!", "0!", 0},
		{"double quotes", `@{A.Type == "x"}`, "1", 0},
		{"angle", "@{A.Angle}", "45deg", 0},
		{"failure kept", "see @{A.Missing} here", "see @{A.Missing} here", 1},
		{"failure and success", "@{A.Missing}/@{A.Name}/@{B.Missing}", "@{A.Missing}/R1/@{B.Missing}", 2},
		{"unterminated", "oops @{A.Name", "oops @{A.Name", 1},
		{"lone at", "mail@example.com", "mail@example.com", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.text, eval, WithResolver(units.Board()))
			if got != tt.want {
				t.Errorf("Expand() = %q, want %q", got, tt.want)
			}

			var n int
			if err != nil {
				if joined, ok := err.(interface{ Unwrap() []error }); ok {
					n = len(joined.Unwrap())
				}
			}
			if n != tt.wantErr {
				t.Errorf("got %d errors (%v), want %d", n, err, tt.wantErr)
			}
		})
	}
}

func TestExpand_ErrorDetails(t *testing.T) {
	eval := mapEvaluator(nil)

	_, err := Expand("ab @{x}", eval)
	var exprErr *ExprError
	if !errors.As(err, &exprErr) {
		t.Fatalf("expected *ExprError, got %T", err)
	}
	if exprErr.Expr != "x" || exprErr.Offset != 3 {
		t.Errorf("ExprError = %+v", exprErr)
	}
	if !errors.Is(err, errBad) {
		t.Error("expected evaluation error to be wrapped")
	}

	_, err = Expand("@{x", eval)
	if !errors.Is(err, ErrUnterminated) {
		t.Errorf("expected ErrUnterminated, got %v", err)
	}
}

func TestExpand_NoResolver(t *testing.T) {
	eval := mapEvaluator(map[string]libeval.Value{
		"w": libeval.Quantity(250000, units.Distance),
	})

	got, err := Expand("@{w}", eval)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if got != "250000" {
		t.Errorf("Expand() = %q, want raw base units", got)
	}
}
