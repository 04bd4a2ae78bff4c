package rules

import (
	"errors"
	"fmt"

	"ruleforge-hq/anvil/pkg/libeval"
)

// Common sentinel errors
var (
	// ErrNoRules indicates a rule set without enabled rules.
	ErrNoRules = errors.New("no rules loaded")

	// ErrExpressionTooLong indicates an expression over the configured limit.
	ErrExpressionTooLong = errors.New("expression too long")
)

// LoadError represents an error that occurred while reading or decoding a
// rule file.
type LoadError struct {
	FilePath string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load rule file %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load rule file %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// RuleError is a compile diagnostic for one expression of a rule.
type RuleError struct {
	Rule   string
	Source string
	Field  string // "condition", "assert" or "message"
	Expr   string
	Err    error
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %q %s: %v", e.Rule, e.Field, e.Err)
}

// Unwrap returns the compiler diagnostic.
func (e *RuleError) Unwrap() error {
	return e.Err
}

// Offset returns the byte offset of the diagnostic within Expr, or -1.
func (e *RuleError) Offset() int {
	var le *libeval.Error
	if errors.As(e.Err, &le) {
		return le.Offset
	}
	return -1
}

// Advisory reports whether the diagnostic is advisory only.
func (e *RuleError) Advisory() bool {
	var le *libeval.Error
	return errors.As(e.Err, &le) && le.Advisory
}
