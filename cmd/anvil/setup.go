package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"ruleforge-hq/anvil/pkg/board"
	"ruleforge-hq/anvil/pkg/cli"
	"ruleforge-hq/anvil/pkg/config"
	"ruleforge-hq/anvil/pkg/report"
	"ruleforge-hq/anvil/pkg/report/storage"
	"ruleforge-hq/anvil/pkg/rules"
	"ruleforge-hq/anvil/pkg/rules/source"
	"ruleforge-hq/anvil/pkg/telemetry/logging"
	"ruleforge-hq/anvil/pkg/telemetry/metrics"
	"ruleforge-hq/anvil/pkg/telemetry/tracing"
)

// env holds the configuration and telemetry shared by all commands.
type env struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// setup loads the configuration named by --config (or the defaults) with
// environment overrides, and initializes logging, metrics and tracing.
func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	config.SetConfig(cfg)

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, cmd.ErrOrStderr()))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.SetDefault()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	return &env{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		tracer:  tracer,
	}, nil
}

// close flushes pending spans.
func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.tracer.Shutdown(ctx); err != nil {
		e.logger.Warn("tracer shutdown failed", "error", err)
	}
}

// slog returns the underlying structured logger.
func (e *env) slog() *slog.Logger {
	return e.logger.Slog()
}

// traceContext joins the trace of a parent process announced through
// TRACEPARENT, if any.
func (e *env) traceContext(ctx context.Context) context.Context {
	return tracing.ExtractFromEnv(ctx, os.Getenv)
}

// ruleOptions returns the compile and check options derived from the
// configuration.
func (e *env) ruleOptions(extra ...rules.Option) []rules.Option {
	opts := []rules.Option{
		rules.WithLogger(e.slog()),
		rules.WithMetrics(e.metrics),
		rules.WithTracer(e.tracer),
		rules.WithMaxExpressionLength(e.cfg.Engine.MaxExpressionLength),
	}
	return append(opts, extra...)
}

// ruleLocation is where a command reads its rules from.
type ruleLocation struct {
	name string // rule path or repository, as shown in reports
	src  rules.Source
	git  *source.GitSource // nil for local rule files
}

// locateRules returns the rules named by flag, the configured Git
// repository, or the configured rule path, in that order.
func (e *env) locateRules(flag string) (*ruleLocation, error) {
	gcfg := &e.cfg.Rules.Git
	if flag == "" && gcfg.Repository != "" {
		gs, err := source.NewGitSource(gcfg, e.slog())
		if err != nil {
			return nil, cli.NewConfigError("rules.git", err.Error())
		}
		name := gcfg.Repository + "@" + gcfg.Branch
		if gcfg.Path != "" {
			name += ":" + gcfg.Path
		}
		return &ruleLocation{name: name, src: gs, git: gs}, nil
	}

	path := flag
	if path == "" {
		path = e.cfg.Rules.Path
	}
	return &ruleLocation{name: path, src: source.NewFileSource(path, e.slog())}, nil
}

// ruleWatcher is implemented by source.FileWatcher and source.GitWatcher.
type ruleWatcher interface {
	Watch(ctx context.Context, onReload func(context.Context) error) error
	Stop() error
}

// watcher returns a watcher for changes to the rules: fsnotify for local
// files, polling for a Git repository.
func (l *ruleLocation) watcher(e *env) (ruleWatcher, error) {
	if l.git != nil {
		return source.NewGitWatcher(l.git, e.cfg.Rules.Git.PollInterval, e.slog()), nil
	}
	fw, err := source.NewFileWatcher(l.name, e.cfg.Rules.Debounce, e.slog())
	if err != nil {
		return nil, err
	}
	return fw, nil
}

// loadBoard reads the board file named by path.
func loadBoard(path string) (*board.Board, error) {
	if path == "" {
		return nil, cli.NewConfigError("board", "--board is required")
	}
	b, err := board.Load(path)
	if err != nil {
		return nil, cli.NewConfigError("board", err.Error())
	}
	return b, nil
}

// newLoader returns a rule loader reading loc for b.
func (e *env) newLoader(loc *ruleLocation, b *board.Board, extra ...rules.Option) *rules.Loader {
	return rules.NewLoader(loc.src, b, e.cfg.Rules.Strict, e.ruleOptions(extra...)...)
}

// history records check runs into the configured store. A nil history
// records nothing.
type history struct {
	store    report.Storage
	recorder *report.Recorder
}

// openHistory opens the run store, or returns nil when recording is
// disabled.
func (e *env) openHistory() (*history, error) {
	if !e.cfg.Report.Enabled {
		return nil, nil
	}
	store, err := e.openStore()
	if err != nil {
		return nil, err
	}
	return &history{
		store:    store,
		recorder: report.NewRecorder(store, report.DefaultRecorderConfig(), e.slog()),
	}, nil
}

// openStore opens the configured run store regardless of report.enabled.
func (e *env) openStore() (report.Storage, error) {
	store, err := storage.New(&e.cfg.Report, e.slog())
	if err != nil {
		return nil, cli.NewConfigError("report", err.Error())
	}
	return store, nil
}

func (h *history) record(ctx context.Context, run *report.Run) error {
	if h == nil {
		return nil
	}
	return h.recorder.Record(ctx, run)
}

// Close drains pending records and closes the store.
func (h *history) Close() error {
	if h == nil {
		return nil
	}
	return errors.Join(h.recorder.Close(), h.store.Close())
}

// newRun converts a check result into a run record.
func newRun(runID, ruleFile string, startedAt time.Time, checker *rules.Checker, res *rules.Result, runErr error) *report.Run {
	run := report.FromResult(runID, ruleFile, startedAt, res, runErr)
	compiled := checker.Set().Rules
	rs := make([]*rules.Rule, len(compiled))
	for i, cr := range compiled {
		rs[i] = cr.Rule
	}
	run.RulesHash = report.HashRules(rs)
	return run
}

// runContext tags ctx with a fresh run ID and the rule and board names
// for logs and spans.
func runContext(ctx context.Context, ruleFile, boardName string) (context.Context, string) {
	runID := report.NewRunID()
	ctx = logging.WithRunID(ctx, runID)
	ctx = logging.WithRuleFile(ctx, ruleFile)
	ctx = logging.WithBoard(ctx, boardName)
	return ctx, runID
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
