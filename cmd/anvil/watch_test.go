package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"ruleforge-hq/anvil/pkg/board"
	"ruleforge-hq/anvil/pkg/config"
	"ruleforge-hq/anvil/pkg/report"
	"ruleforge-hq/anvil/pkg/report/storage"
	"ruleforge-hq/anvil/pkg/rules"
	"ruleforge-hq/anvil/pkg/rules/source"
	"ruleforge-hq/anvil/pkg/telemetry/health"
	"ruleforge-hq/anvil/pkg/telemetry/logging"
	"ruleforge-hq/anvil/pkg/telemetry/metrics"
	"ruleforge-hq/anvil/pkg/telemetry/tracing"
)

// newTestSession builds a watch session over the fixture with an in-memory
// run history.
func newTestSession(t *testing.T) (*watchSession, *bytes.Buffer) {
	t.Helper()
	f := newFixture(t)

	cfg := config.NewDefault()
	cfg.Report.Backend = "memory"
	cfg.Telemetry.Metrics.Namespace = "test"

	logger, err := logging.New(logging.Config{Level: "error", Format: "text", Writer: io.Discard})
	if err != nil {
		t.Fatalf("logging.New() error = %v", err)
	}
	e := &env{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		tracer:  tracing.Noop(),
	}

	b, err := board.Load(f.board)
	if err != nil {
		t.Fatalf("board.Load() error = %v", err)
	}
	store, err := storage.New(&cfg.Report, e.slog())
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	hist := &history{
		store:    store,
		recorder: report.NewRecorder(store, report.DefaultRecorderConfig(), e.slog()),
	}
	t.Cleanup(func() { _ = hist.Close() })

	loc, err := e.locateRules(f.rules)
	if err != nil {
		t.Fatalf("locateRules() error = %v", err)
	}

	var out bytes.Buffer
	return newWatchSession(e, b, loc, hist, &out), &out
}

func TestLocateRules(t *testing.T) {
	s, _ := newTestSession(t)
	e := s.env

	loc, err := e.locateRules("")
	if err != nil {
		t.Fatalf("locateRules() error = %v", err)
	}
	if loc.name != e.cfg.Rules.Path || loc.git != nil {
		t.Errorf("default location = %+v", loc)
	}
	if _, ok := loc.src.(*source.FileSource); !ok {
		t.Errorf("default source = %T, want *source.FileSource", loc.src)
	}

	e.cfg.Rules.Git.Repository = "https://example.com/drc.git"
	e.cfg.Rules.Git.Path = "rules"
	e.cfg.Rules.Git.LocalPath = t.TempDir()

	loc, err = e.locateRules("")
	if err != nil {
		t.Fatalf("locateRules() with git error = %v", err)
	}
	if loc.git == nil || loc.name != "https://example.com/drc.git@main:rules" {
		t.Errorf("git location = %+v", loc)
	}
	w, err := loc.watcher(e)
	if err != nil {
		t.Fatalf("watcher() error = %v", err)
	}
	if _, ok := w.(*source.GitWatcher); !ok {
		t.Errorf("watcher = %T, want *source.GitWatcher", w)
	}

	// An explicit --rules wins over the repository.
	loc, err = e.locateRules(s.rulePath)
	if err != nil || loc.git != nil || loc.name != s.rulePath {
		t.Errorf("flag location = %+v, %v", loc, err)
	}

	e.cfg.Rules.Git.Auth.Type = "token"
	if _, err := e.locateRules(""); err == nil {
		t.Error("expected config error for token auth without token")
	}
}

func TestWatchSession_Reload(t *testing.T) {
	s, out := newTestSession(t)
	ctx := context.Background()
	hc := s.healthChecker()

	if got := hc.CheckReadiness(ctx).Status; got != health.StatusDegraded {
		t.Errorf("readiness before first run = %q, want %q", got, health.StatusDegraded)
	}
	if err := s.check(ctx); err != rules.ErrNoRules {
		t.Errorf("check before load = %v, want ErrNoRules", err)
	}

	if err := s.reload(ctx); err != nil {
		t.Fatalf("reload() error = %v", err)
	}
	if !strings.Contains(out.String(), "demo: 1 error, 0 warnings, 0 faults") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if got := hc.CheckReadiness(ctx).Status; got != health.StatusReady {
		t.Errorf("readiness after run = %q, want %q", got, health.StatusReady)
	}

	// Drain the recorder before reading the store.
	if err := s.hist.recorder.Close(); err != nil {
		t.Fatalf("recorder.Close() error = %v", err)
	}
	n, err := s.hist.store.Count(ctx, &report.Query{Board: "demo"})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("recorded runs = %d, want 1", n)
	}
}

func TestWatchSession_RejectedReload(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	if err := s.reload(ctx); err != nil {
		t.Fatalf("reload() error = %v", err)
	}
	before := s.loader.Current()

	writeFile(t, s.rulePath, "rules:\n  - name: broken\n    assert: A.Color == 'red'\n")
	if err := s.reload(ctx); err == nil {
		t.Fatal("expected reload of broken rules to fail")
	}
	if s.loader.Current() != before {
		t.Error("rejected reload replaced the active rules")
	}
}

func TestWatchSession_Schedule(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	stop, err := s.startSchedule(ctx, "")
	if err != nil {
		t.Fatalf("startSchedule(\"\") error = %v", err)
	}
	stop()

	if _, err := s.startSchedule(ctx, "bogus"); err == nil {
		t.Error("expected error for invalid schedule")
	}

	stop, err = s.startSchedule(ctx, "@every 1h")
	if err != nil {
		t.Fatalf("startSchedule() error = %v", err)
	}
	stop()
}

func TestWatchSession_Listen(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.reload(context.Background()); err != nil {
		t.Fatalf("reload() error = %v", err)
	}

	srv, ln, err := s.listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen() error = %v", err)
	}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	base := "http://" + ln.Addr().String()
	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/ready", http.StatusOK, `"status":"ready"`},
		{"/health", http.StatusOK, `"status":"ok"`},
		{"/metrics", http.StatusOK, "test_check_runs_total"},
		{"/missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(base + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body missing %q:\n%s", tt.wantBody, body)
			}
		})
	}
}
