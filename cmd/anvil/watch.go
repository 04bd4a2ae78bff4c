package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"ruleforge-hq/anvil/pkg/board"
	"ruleforge-hq/anvil/pkg/cli"
	"ruleforge-hq/anvil/pkg/report"
	"ruleforge-hq/anvil/pkg/report/retention"
	"ruleforge-hq/anvil/pkg/rules"
	"ruleforge-hq/anvil/pkg/telemetry/health"
	"ruleforge-hq/anvil/pkg/telemetry/tracing"
)

var watchFlags struct {
	rules  string
	board  string
	listen string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check a board whenever its rules change",
	Long: `Load the rules, check the board and keep running: every change to the
rule files triggers a reload and a new check, and rules.recheck_schedule
adds periodic checks.

While running, the command serves:
  /metrics   Prometheus metrics (telemetry.metrics.path)
  /health    liveness
  /ready     readiness: rules loaded and the last check succeeded
  /version   build information

Runs are recorded in the run history and pruned according to
report.retention.

Examples:
  # Watch a rule directory
  anvil watch --rules rules/ --board board.yaml

  # Serve metrics on another address
  anvil watch --rules rules/ --board board.yaml --listen 0.0.0.0:9464`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.rules, "rules", "r", "", "rule file or directory (default from config)")
	watchCmd.Flags().StringVarP(&watchFlags.board, "board", "b", "", "board file to check")
	watchCmd.Flags().StringVarP(&watchFlags.listen, "listen", "l", "", "override metrics and health listen address")
}

// watchSession is the state of a running `anvil watch`.
type watchSession struct {
	env      *env
	board    *board.Board
	rulePath string
	loader   *rules.Loader
	hist     *history
	tracker  *health.RunTracker
	out      io.Writer

	// mu serializes checks triggered by file events and the schedule.
	mu sync.Mutex
}

func newWatchSession(e *env, b *board.Board, loc *ruleLocation, hist *history, out io.Writer) *watchSession {
	return &watchSession{
		env:      e,
		board:    b,
		rulePath: loc.name,
		loader:   e.newLoader(loc, b),
		hist:     hist,
		tracker:  health.NewRunTracker(),
		out:      out,
	}
}

// reload recompiles the rules and checks the board with them. A rejected
// rule set keeps the previous rules active.
func (s *watchSession) reload(ctx context.Context) error {
	cs, err := s.loader.Reload(ctx)
	if cs != nil {
		for _, re := range cs.Errors {
			s.env.logger.Warn("rule failed to compile", "rule", re.Rule, "error", re.Err)
		}
	}
	if err != nil {
		return err
	}
	return s.check(ctx)
}

// check runs the active rules against the board and records the run.
func (s *watchSession) check(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	checker := s.loader.Current()
	if checker == nil {
		return rules.ErrNoRules
	}

	ctx, runID := runContext(ctx, s.rulePath, s.board.Name)
	started := time.Now()
	res, err := checker.Check(ctx, s.board)
	s.tracker.Record(err)

	if rerr := s.hist.record(ctx, newRun(runID, s.rulePath, started, checker, res, err)); rerr != nil {
		s.env.logger.Error("failed to record run", "run_id", runID, "error", rerr)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "%s  %s: %s, %s, %s\n",
		started.Format(time.TimeOnly), res.Board,
		plural(res.Count(rules.SeverityError), "error"),
		plural(res.Count(rules.SeverityWarning), "warning"),
		plural(res.Faults, "fault"))
	return nil
}

// healthChecker returns the readiness checks of the session.
func (s *watchSession) healthChecker() *health.Checker {
	hc := health.New(0)
	hc.RegisterCheck("rules", func(ctx context.Context) error {
		if s.loader.Current() == nil {
			return rules.ErrNoRules
		}
		return nil
	})
	hc.RegisterCheck("last_run", s.tracker.Check(0))
	if s.hist != nil {
		hc.RegisterCheck("history", func(ctx context.Context) error {
			_, err := s.hist.store.Count(ctx, &report.Query{})
			return err
		})
	}
	return hc
}

// startSchedule runs checks on the cron schedule until the returned
// stop function is called. An empty schedule runs nothing.
func (s *watchSession) startSchedule(ctx context.Context, schedule string) (func(), error) {
	if schedule == "" {
		return func() {}, nil
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := s.check(ctx); err != nil {
			s.env.logger.Error("scheduled check failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid recheck schedule %q: %w", schedule, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := cli.SetupSignalHandler(e.traceContext(cmd.Context()))
	defer cancel()

	b, err := loadBoard(watchFlags.board)
	if err != nil {
		return err
	}
	loc, err := e.locateRules(watchFlags.rules)
	if err != nil {
		return err
	}

	hist, err := e.openHistory()
	if err != nil {
		return err
	}
	defer func() {
		if err := hist.Close(); err != nil {
			e.logger.Error("failed to close run history", "error", err)
		}
	}()

	s := newWatchSession(e, b, loc, hist, cmd.OutOrStdout())
	if err := s.reload(ctx); err != nil {
		return cli.NewCommandError("watch", err)
	}

	if hist != nil {
		pruner := retention.NewPruner(hist.store, &e.cfg.Report.Retention, e.slog())
		scheduler := retention.NewScheduler(pruner, e.cfg.Report.Retention.PruneSchedule)
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewConfigError("report.retention.prune_schedule", err.Error())
		}
		defer scheduler.Stop()
	}

	stopSchedule, err := s.startSchedule(ctx, e.cfg.Rules.RecheckSchedule)
	if err != nil {
		return cli.NewConfigError("rules.recheck_schedule", err.Error())
	}
	defer stopSchedule()

	rw, err := loc.watcher(e)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- rw.Watch(ctx, s.reload)
	}()
	defer func() {
		if err := rw.Stop(); err != nil {
			e.logger.Warn("failed to stop rule watcher", "error", err)
		}
	}()

	addr := watchFlags.listen
	if addr == "" {
		addr = e.cfg.Telemetry.Metrics.ListenAddress
	}
	srv, ln, err := s.listen(addr)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s, serving on http://%s (Ctrl+C to stop)\n", loc.name, ln.Addr())

	select {
	case <-ctx.Done():
	case err := <-watchErr:
		if err != nil {
			return cli.NewCommandError("watch", err)
		}
	case err := <-serveErr:
		return cli.NewCommandError("watch", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		e.logger.Error("shutdown failed", "error", err)
		return cli.NewCommandError("watch", err)
	}
	return nil
}

// listen binds addr and returns the metrics and health server for it.
func (s *watchSession) listen(addr string) (*http.Server, net.Listener, error) {
	mcfg := s.env.cfg.Telemetry.Metrics
	info := health.NewVersionInfo(Version, GitCommit, BuildDate)
	hc := s.healthChecker()

	srv := s.env.metrics.NewServer(addr, mcfg.Path, func(mux *http.ServeMux) {
		hc.Register(mux, info)
	})
	srv.Handler = tracing.HTTPMiddleware(srv.Handler)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return srv, ln, nil
}
