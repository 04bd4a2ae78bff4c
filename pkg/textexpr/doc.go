// Package textexpr expands computed text: every "@{expr}" in a string is
// replaced by the value of the expression.
//
// Rule messages use it to name the offending items and values:
//
//	msg, err := textexpr.Expand(
//	    "@{A.Name} is @{A.Clearance}, needs 0.2mm",
//	    evaluator,
//	    textexpr.WithResolver(units.Board()),
//	)
//
// A failed substitution keeps its original "@{...}" text so the message
// stays readable, and the failure is returned as an *ExprError.
package textexpr
