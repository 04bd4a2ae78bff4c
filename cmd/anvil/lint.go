package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"ruleforge-hq/anvil/pkg/cli"
	"ruleforge-hq/anvil/pkg/rules"
)

var lintFlags struct {
	rules  string
	board  string
	strict bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rule files",
	Long: `Validate rule files against a board without checking it.

The lint command performs:
  - YAML syntax and structure validation
  - Compilation of every condition, assert and message expression
  - Resolution of item fields, properties, functions and layer names
  - Advisory checks such as numbers written without units

Examples:
  # Lint a single file
  anvil lint --rules rules.yaml --board board.yaml

  # Lint a directory, treating warnings as errors
  anvil lint --rules rules/ --board board.yaml --strict

  # JSON output for CI/CD
  anvil lint --rules rules/ --board board.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.rules, "rules", "r", "", "rule file or directory (default from config)")
	lintCmd.Flags().StringVarP(&lintFlags.board, "board", "b", "", "board file the rules are compiled against")
	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json, csv")
}

// LintDiagnostic is a single compile diagnostic of a rule.
type LintDiagnostic struct {
	Rule       string `json:"rule"`
	Source     string `json:"source,omitempty"`
	Field      string `json:"field"`
	Expression string `json:"expression"`
	Offset     int    `json:"offset"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
}

// LintReport is the outcome of linting a rule set.
type LintReport struct {
	Path     string           `json:"path"`
	Board    string           `json:"board"`
	Rules    int              `json:"rules"`
	Disabled int              `json:"disabled"`
	Valid    bool             `json:"valid"`
	Errors   []LintDiagnostic `json:"errors,omitempty"`
	Warnings []LintDiagnostic `json:"warnings,omitempty"`
}

func lintRules(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	format, err := cli.ParseFormat(lintFlags.format)
	if err != nil {
		return err
	}

	b, err := loadBoard(lintFlags.board)
	if err != nil {
		return err
	}

	loc, err := e.locateRules(lintFlags.rules)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	set, err := loc.src.Load(ctx)
	if err != nil {
		return cli.NewCommandError("lint", err)
	}

	cs, err := rules.Compile(ctx, set, b, e.ruleOptions()...)
	if err != nil && cs == nil {
		return cli.NewCommandError("lint", err)
	}

	rep := &LintReport{
		Path:     loc.name,
		Board:    b.Name,
		Rules:    len(cs.Rules) + len(cs.Errors),
		Disabled: cs.Disabled,
	}
	for _, re := range cs.Errors {
		rep.Errors = append(rep.Errors, newLintDiagnostic(re, "error"))
	}
	if e.cfg.Engine.ReportAdvisories || lintFlags.strict {
		for _, re := range cs.Advisories {
			rep.Warnings = append(rep.Warnings, newLintDiagnostic(re, "warning"))
		}
	}

	failed := len(rep.Errors)
	if lintFlags.strict {
		failed += len(rep.Warnings)
	}
	rep.Valid = failed == 0

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), rep); err != nil {
		return cli.NewCommandError("lint", err)
	}
	if failed > 0 {
		return &cli.ViolationsError{Count: failed, What: "rule problems"}
	}
	return nil
}

func newLintDiagnostic(re *rules.RuleError, severity string) LintDiagnostic {
	return LintDiagnostic{
		Rule:       re.Rule,
		Source:     re.Source,
		Field:      re.Field,
		Expression: re.Expr,
		Offset:     re.Offset(),
		Severity:   severity,
		Message:    re.Err.Error(),
	}
}

// RenderText implements cli.TextRenderer.
func (r *LintReport) RenderText(w io.Writer) error {
	for _, d := range append(append([]LintDiagnostic(nil), r.Errors...), r.Warnings...) {
		loc := d.Rule
		if d.Source != "" {
			loc = d.Source + ": " + d.Rule
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n", d.Severity, loc, d.Field, d.Message)
		if d.Offset >= 0 && d.Offset <= len(d.Expression) {
			fmt.Fprintf(w, "  %s\n  %*s^\n", d.Expression, d.Offset, "")
		}
	}

	status := "valid"
	if !r.Valid {
		status = "invalid"
	}
	_, err := fmt.Fprintf(w, "%s: %s against board %q, %s, %s (%s)\n",
		r.Path, plural(r.Rules, "rule"), r.Board,
		plural(len(r.Errors), "error"), plural(len(r.Warnings), "warning"), status)
	return err
}

// Header implements cli.Tabular.
func (r *LintReport) Header() []string {
	return []string{"severity", "rule", "source", "field", "offset", "message"}
}

// Rows implements cli.Tabular.
func (r *LintReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Errors)+len(r.Warnings))
	for _, group := range [][]LintDiagnostic{r.Errors, r.Warnings} {
		for _, d := range group {
			rows = append(rows, []string{d.Severity, d.Rule, d.Source, d.Field, strconv.Itoa(d.Offset), d.Message})
		}
	}
	return rows
}
