package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"ruleforge-hq/anvil/pkg/cli"
	"ruleforge-hq/anvil/pkg/report"
	"ruleforge-hq/anvil/pkg/report/export"
	"ruleforge-hq/anvil/pkg/report/retention"
)

var historyFlags struct {
	board  string
	status string
	rule   string
	since  string
	until  string
	limit  int
	offset int
	format string
	days   int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query recorded check runs",
	Long: `Query, export and prune the run history recorded by check and watch.

Subcommands:
  list    - List runs with filters (default)
  show    - Show one run with its violations
  prune   - Delete runs older than the retention period

Time Format:
  --since and --until accept RFC3339 timestamps or durations relative to
  now, e.g. "24h" or "30m".

Examples:
  # Runs of the last day
  anvil history --since 24h

  # Failed runs of one board as CSV
  anvil history list --board demo --status violations --format csv

  # One run with its violations
  anvil history show 3f1c2a9e-...

  # Delete runs older than 7 days
  anvil history prune --days 7`,
	RunE: listRuns,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE:  listRuns,
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  showRun,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than the retention period",
	RunE:  pruneRuns,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)

	for _, c := range []*cobra.Command{historyCmd, historyListCmd} {
		c.Flags().StringVar(&historyFlags.board, "board", "", "filter by board name")
		c.Flags().StringVar(&historyFlags.status, "status", "", "filter by status: clean, violations, error")
		c.Flags().StringVar(&historyFlags.rule, "rule", "", "filter by runs violating this rule")
		c.Flags().StringVar(&historyFlags.since, "since", "", "runs started at or after (RFC3339 or duration)")
		c.Flags().StringVar(&historyFlags.until, "until", "", "runs started at or before (RFC3339 or duration)")
		c.Flags().IntVar(&historyFlags.limit, "limit", 0, "max results (default from config)")
		c.Flags().IntVar(&historyFlags.offset, "offset", 0, "pagination offset")
		c.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json, csv")
	}
	historyShowCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json, csv")
	historyPruneCmd.Flags().IntVar(&historyFlags.days, "days", 0, "retention in days (default from config)")
}

// parseTime accepts an RFC3339 timestamp or a duration before now.
func parseTime(s string, now time.Time) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: want RFC3339 or a duration such as 24h", s)
	}
	t := now.Add(-d)
	return &t, nil
}

func historyQuery(e *env, now time.Time) (*report.Query, error) {
	q := &report.Query{
		Board:  historyFlags.board,
		Status: historyFlags.status,
		Rule:   historyFlags.rule,
		Limit:  historyFlags.limit,
		Offset: historyFlags.offset,
	}
	var err error
	if q.Since, err = parseTime(historyFlags.since, now); err != nil {
		return nil, cli.NewConfigError("since", err.Error())
	}
	if q.Until, err = parseTime(historyFlags.until, now); err != nil {
		return nil, cli.NewConfigError("until", err.Error())
	}

	report.ApplyDefaults(q, e.cfg.Report.Query.DefaultLimit)
	if err := report.Validate(q, e.cfg.Report.Query.MaxLimit); err != nil {
		return nil, cli.NewConfigError("query", err.Error())
	}
	return q, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return err
	}
	q, err := historyQuery(e, time.Now())
	if err != nil {
		return err
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	runs, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("history", report.NewQueryError(q, err))
	}

	if format != cli.FormatText {
		return exportRuns(cmd, string(format), runs)
	}

	total, err := store.Count(ctx, q)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	list := &runList{runs: runs, total: total, offset: q.Offset}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), list)
}

func showRun(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return err
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if errors.Is(err, report.ErrNotFound) {
		return cli.NewCommandError("history", fmt.Errorf("run %q not found", args[0]))
	}
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	if format != cli.FormatText {
		return exportRuns(cmd, string(format), []*report.Run{run})
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), runDetail{run})
}

func pruneRuns(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	cfg := e.cfg.Report.Retention
	if cmd.Flags().Changed("days") {
		cfg.Days = historyFlags.days
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	pruner := retention.NewPruner(store, &cfg, e.slog())
	cutoff, ok := pruner.Cutoff()
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Retention is unlimited, nothing to prune")
		return nil
	}

	deleted, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s started before %s\n", plural(int(deleted), "run"), cutoff.UTC().Format(time.RFC3339))
	return nil
}

func exportRuns(cmd *cobra.Command, format string, runs []*report.Run) error {
	exp, err := export.New(format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	if err := exp.Export(cmd.Context(), runs, cmd.OutOrStdout()); err != nil {
		return cli.NewCommandError("history", report.NewExportError(format, len(runs), err))
	}
	return nil
}

// runList renders a page of runs as a table.
type runList struct {
	runs   []*report.Run
	total  int64
	offset int
}

// RenderText implements cli.TextRenderer.
func (l *runList) RenderText(w io.Writer) error {
	if len(l.runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tBOARD\tSTATUS\tRULES\tVIOLATIONS\tDURATION")
	for _, r := range l.runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Board, r.Status,
			r.Rules, len(r.Violations), r.Duration.Round(time.Microsecond))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nShowing %d-%d of %d\n", l.offset+1, l.offset+len(l.runs), l.total)
	return err
}

// runDetail renders a single run with its violations.
type runDetail struct {
	run *report.Run
}

// RenderText implements cli.TextRenderer.
func (d runDetail) RenderText(w io.Writer) error {
	r := d.run
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Board:\t%s\n", r.Board)
	fmt.Fprintf(tw, "Rules:\t%s (%d rules, hash %s)\n", r.RuleFile, r.Rules, shortHash(r.RulesHash))
	fmt.Fprintf(tw, "Started:\t%s\n", r.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(tw, "Duration:\t%s\n", r.Duration.Round(time.Microsecond))
	fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
	fmt.Fprintf(tw, "Evaluations:\t%d (%s)\n", r.Evaluations, plural(r.Faults, "fault"))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Violations) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tRULE\tITEMS\tMESSAGE")
	for _, v := range r.Violations {
		items := v.ItemA
		if v.ItemB != "" {
			items += ", " + v.ItemB
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Severity, v.Rule, items, v.Message)
	}
	return tw.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	if h == "" {
		return "-"
	}
	return h
}
