package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Severity classifies a violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Rule is a single design rule as written in a rule file.
//
//	- name: min-clearance
//	  condition: A.Type == 'pad'
//	  assert: A.Clearance >= 0.15mm
//	  severity: error
//	  message: "@{A.Name} clearance is @{A.Clearance}"
type Rule struct {
	// Name identifies the rule; unique within a rule set.
	Name string `yaml:"name"`

	// Condition selects the items (or pairs) the rule applies to. Empty
	// applies the rule to everything.
	Condition string `yaml:"condition"`

	// Assert must evaluate to non-zero for every selected item.
	Assert string `yaml:"assert"`

	// Severity of violations. Default: "error"
	Severity Severity `yaml:"severity"`

	// Message is the violation text; "@{expr}" substitutions are expanded
	// with the offending items bound.
	Message string `yaml:"message"`

	// Pairwise evaluates the rule over every ordered pair of distinct
	// items, bound as A and B.
	Pairwise bool `yaml:"pairwise"`

	// Disabled rules are parsed but never compiled or checked.
	Disabled bool `yaml:"disabled"`

	// Source is the file the rule was loaded from.
	Source string `yaml:"-"`
}

// RuleSet is an ordered collection of rules.
type RuleSet struct {
	Rules []*Rule `yaml:"rules"`
}

// Parse decodes a rule file. Unknown keys are rejected so that typos such
// as "asert" do not silently disable a rule.
func Parse(data []byte, source string) (*RuleSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var set RuleSet
	if err := dec.Decode(&set); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{FilePath: source, Message: "invalid YAML", Cause: err}
	}

	for _, r := range set.Rules {
		if r == nil {
			continue
		}
		r.Source = source
		if r.Severity == "" {
			r.Severity = SeverityError
		}
	}

	if err := set.Validate(); err != nil {
		return nil, &LoadError{FilePath: source, Message: "invalid rule set", Cause: err}
	}
	return &set, nil
}

// Validate checks rule names, assertions and severities.
func (s *RuleSet) Validate() error {
	var errs []error
	seen := make(map[string]string, len(s.Rules))

	for i, r := range s.Rules {
		if r == nil {
			errs = append(errs, fmt.Errorf("rule %d is empty", i))
			continue
		}
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("rule %d has no name", i))
			continue
		}
		if src, dup := seen[r.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate rule name %q (first defined in %s)", r.Name, src))
		}
		seen[r.Name] = r.Source

		if r.Assert == "" {
			errs = append(errs, fmt.Errorf("rule %q has no assert expression", r.Name))
		}
		if !r.Severity.Valid() {
			errs = append(errs, fmt.Errorf("rule %q has invalid severity %q", r.Name, r.Severity))
		}
	}
	return errors.Join(errs...)
}

// Merge appends the rules of others to s.
func (s *RuleSet) Merge(others ...*RuleSet) {
	for _, o := range others {
		if o != nil {
			s.Rules = append(s.Rules, o.Rules...)
		}
	}
}

// Enabled returns the rules that are not disabled.
func (s *RuleSet) Enabled() []*Rule {
	out := make([]*Rule, 0, len(s.Rules))
	for _, r := range s.Rules {
		if !r.Disabled {
			out = append(out, r)
		}
	}
	return out
}
