package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"ruleforge-hq/anvil/pkg/cli"
	"ruleforge-hq/anvil/pkg/rules"
)

var checkFlags struct {
	rules    string
	board    string
	format   string
	failOn   string
	progress bool
	noRecord bool
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a board against rule files",
	Long: `Compile the rules against a board, evaluate them and report violations.

Rules that fail to compile are reported and skipped, or abort the check when
rules.strict is set in the configuration. Each run is recorded in the run
history unless --no-record is given or report.enabled is false.

The command exits with status 1 when violations at or above the --fail-on
severity are found.

Examples:
  # Check a board
  anvil check --rules rules/ --board board.yaml

  # Fail only on errors, print JSON
  anvil check --rules rules/ --board board.yaml --fail-on error --format json

  # Show progress on stderr
  anvil check --rules rules/ --board board.yaml --progress`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFlags.rules, "rules", "r", "", "rule file or directory (default from config)")
	checkCmd.Flags().StringVarP(&checkFlags.board, "board", "b", "", "board file to check")
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json, csv")
	checkCmd.Flags().StringVar(&checkFlags.failOn, "fail-on", "warning", "lowest severity that fails the check: error, warning, info, none")
	checkCmd.Flags().BoolVar(&checkFlags.progress, "progress", false, "show progress on stderr")
	checkCmd.Flags().BoolVar(&checkFlags.noRecord, "no-record", false, "do not record the run in the history")
}

// CheckReport is the output of a check run.
type CheckReport struct {
	RunID    string        `json:"run_id"`
	RuleFile string        `json:"rule_file"`
	Skipped  []string      `json:"skipped_rules,omitempty"`
	Result   *rules.Result `json:"result"`

	failOn []rules.Severity
}

func runCheck(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	format, err := cli.ParseFormat(checkFlags.format)
	if err != nil {
		return err
	}
	failOn, err := failSeverities(checkFlags.failOn)
	if err != nil {
		return err
	}

	b, err := loadBoard(checkFlags.board)
	if err != nil {
		return err
	}
	loc, err := e.locateRules(checkFlags.rules)
	if err != nil {
		return err
	}
	path := loc.name

	var extra []rules.Option
	var progress cli.ProgressReporter
	if checkFlags.progress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "rules")
		extra = append(extra, rules.WithProgress(func(done, _ int) {
			progress.Update(int64(done))
		}))
	}

	loader := e.newLoader(loc, b, extra...)
	ctx := e.traceContext(cmd.Context())

	cs, err := loader.Reload(ctx)
	if err != nil {
		printRuleErrors(cmd.ErrOrStderr(), cs)
		return cli.NewCommandError("check", err)
	}
	printRuleErrors(cmd.ErrOrStderr(), cs)

	var hist *history
	if !checkFlags.noRecord {
		if hist, err = e.openHistory(); err != nil {
			return err
		}
		defer func() {
			if err := hist.Close(); err != nil {
				e.logger.Error("failed to close run history", "error", err)
			}
		}()
	}

	checker := loader.Current()
	ctx, runID := runContext(ctx, path, b.Name)

	if progress != nil {
		progress.Start(int64(len(checker.Set().Rules)))
	}
	started := time.Now()
	res, runErr := checker.Check(ctx, b)
	if progress != nil {
		if runErr != nil {
			progress.Error(runErr)
		} else {
			progress.Finish()
		}
	}

	if err := hist.record(ctx, newRun(runID, path, started, checker, res, runErr)); err != nil {
		e.logger.Error("failed to record run", "run_id", runID, "error", err)
	}
	if runErr != nil {
		return cli.NewCommandError("check", runErr)
	}

	rep := &CheckReport{RunID: runID, RuleFile: path, Result: res, failOn: failOn}
	for _, re := range cs.Errors {
		rep.Skipped = append(rep.Skipped, re.Rule)
	}
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), rep); err != nil {
		return cli.NewCommandError("check", err)
	}

	if n := rep.failing(); n > 0 {
		return &cli.ViolationsError{Count: n, What: "violations"}
	}
	return nil
}

// failSeverities returns the severities that fail a check for the
// --fail-on threshold.
func failSeverities(threshold string) ([]rules.Severity, error) {
	all := []rules.Severity{rules.SeverityError, rules.SeverityWarning, rules.SeverityInfo}
	if threshold == "none" {
		return nil, nil
	}
	for i, s := range all {
		if string(s) == threshold {
			return all[:i+1], nil
		}
	}
	return nil, cli.NewConfigError("fail-on", fmt.Sprintf("unknown severity %q (error, warning, info, none)", threshold))
}

func (r *CheckReport) failing() int {
	n := 0
	for _, s := range r.failOn {
		n += r.Result.Count(s)
	}
	return n
}

func printRuleErrors(w io.Writer, cs *rules.CompiledSet) {
	if cs == nil {
		return
	}
	for _, re := range cs.Errors {
		fmt.Fprintf(w, "error: %v\n", re)
	}
}

// RenderText implements cli.TextRenderer.
func (r *CheckReport) RenderText(w io.Writer) error {
	res := r.Result
	fmt.Fprintf(w, "Board %s: %s, %s, %s in %s\n",
		res.Board, plural(res.Items, "item"), plural(res.Rules, "rule"),
		plural(res.Evaluations, "evaluation"), res.Duration.Round(time.Microsecond))
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped rules with errors: %s\n", strings.Join(r.Skipped, ", "))
	}

	if len(res.Violations) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, v := range res.Violations {
			items := v.ItemA
			if v.ItemB != "" {
				items += ", " + v.ItemB
			}
			msg := v.Message
			if v.Fault != "" {
				msg += " (fault: " + v.Fault + ")"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", strings.ToUpper(string(v.Severity)), v.Rule, items, msg)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	_, err := fmt.Fprintf(w, "%s, %s, %s, %s (run %s)\n",
		plural(res.Count(rules.SeverityError), "error"),
		plural(res.Count(rules.SeverityWarning), "warning"),
		plural(res.Count(rules.SeverityInfo), "info message"),
		plural(res.Faults, "fault"),
		r.RunID)
	return err
}

// Header implements cli.Tabular.
func (r *CheckReport) Header() []string {
	return []string{"run_id", "board", "rule", "severity", "item_a", "item_b", "message", "fault"}
}

// Rows implements cli.Tabular.
func (r *CheckReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Result.Violations))
	for _, v := range r.Result.Violations {
		rows = append(rows, []string{r.RunID, r.Result.Board, v.Rule, string(v.Severity), v.ItemA, v.ItemB, v.Message, v.Fault})
	}
	return rows
}
