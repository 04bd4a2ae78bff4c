package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"ruleforge-hq/anvil/pkg/cli"
	"ruleforge-hq/anvil/pkg/report"
	"ruleforge-hq/anvil/pkg/rules"
)

func TestCheckCommand(t *testing.T) {
	f := newFixture(t)

	out, _, err := execute(t, "--config", f.config, "check", "--board", f.board)

	var verr *cli.ViolationsError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ViolationsError", err)
	}
	if verr.Count != 1 {
		t.Errorf("violations = %d, want 1", verr.Count)
	}
	for _, want := range []string{"Board demo: 2 items, 2 rules", "ERROR", "pad-clearance", "P2 clearance is 0.1mm", "1 error, 0 warnings"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckCommand_FailOn(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		failOn   string
		wantCode int
	}{
		{"error", "error", cli.ExitViolations},
		{"info", "info", cli.ExitViolations},
		{"none", "none", cli.ExitOK},
		{"unknown", "fatal", cli.ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "--config", f.config, "check", "--board", f.board, "--no-record", "--fail-on", tt.failOn)
			if code := cli.ExitCode(err); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (err = %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestCheckCommand_JSON(t *testing.T) {
	f := newFixture(t)

	out, _, err := execute(t, "--config", f.config, "check", "--board", f.board, "--format", "json", "--no-record")
	if cli.ExitCode(err) != cli.ExitViolations {
		t.Fatalf("error = %v, want violations", err)
	}

	var rep struct {
		RunID  string `json:"run_id"`
		Result struct {
			Board      string `json:"board"`
			Violations []struct {
				Rule  string `json:"rule"`
				ItemA string `json:"item_a"`
			} `json:"violations"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if rep.RunID == "" || rep.Result.Board != "demo" {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.Result.Violations) != 1 || rep.Result.Violations[0].ItemA != "P2" {
		t.Errorf("violations = %+v", rep.Result.Violations)
	}
}

func TestCheckCommand_SkipsBrokenRules(t *testing.T) {
	f := newFixture(t)

	path := filepath.Join(f.dir, "mixed.yaml")
	writeFile(t, path, `
rules:
  - name: broken
    assert: A.Color == 'red'
  - name: nets
    assert: A.Net != ''
`)

	out, stderr, err := execute(t, "--config", f.config, "check", "--board", f.board, "--rules", path, "--no-record")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	if !strings.Contains(stderr, `rule "broken"`) {
		t.Errorf("stderr missing compile error:\n%s", stderr)
	}
	if !strings.Contains(out, "Skipped rules with errors: broken") {
		t.Errorf("output missing skipped rule:\n%s", out)
	}
}

func TestCheckCommand_Progress(t *testing.T) {
	f := newFixture(t)

	_, stderr, err := execute(t, "--config", f.config, "check", "--board", f.board, "--no-record", "--fail-on", "none", "--progress")
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	if !strings.Contains(stderr, "(2/2 rules)") {
		t.Errorf("stderr missing progress:\n%s", stderr)
	}
}

func TestHistoryCommands(t *testing.T) {
	f := newFixture(t)

	if _, _, err := execute(t, "--config", f.config, "check", "--board", f.board); cli.ExitCode(err) != cli.ExitViolations {
		t.Fatalf("check error = %v", err)
	}
	if _, _, err := execute(t, "--config", f.config, "check", "--board", f.board, "--no-record"); cli.ExitCode(err) != cli.ExitViolations {
		t.Fatalf("check error = %v", err)
	}

	out, _, err := execute(t, "--config", f.config, "history", "list", "--format", "json")
	if err != nil {
		t.Fatalf("history list error = %v", err)
	}
	var runs []*report.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v\n%s", err, out)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.Board != "demo" || run.Status != report.StatusViolations || run.RulesHash == "" {
		t.Errorf("run = %+v", run)
	}

	t.Run("text list", func(t *testing.T) {
		out, _, err := execute(t, "--config", f.config, "history")
		if err != nil {
			t.Fatalf("history error = %v", err)
		}
		if !strings.Contains(out, run.ID) || !strings.Contains(out, "Showing 1-1 of 1") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("filtered out", func(t *testing.T) {
		out, _, err := execute(t, "--config", f.config, "history", "list", "--status", "clean")
		if err != nil {
			t.Fatalf("history error = %v", err)
		}
		if !strings.Contains(out, "No runs found") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("show", func(t *testing.T) {
		out, _, err := execute(t, "--config", f.config, "history", "show", run.ID)
		if err != nil {
			t.Fatalf("history show error = %v", err)
		}
		for _, want := range []string{run.ID, "pad-clearance", "P2 clearance is 0.1mm"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("show csv", func(t *testing.T) {
		out, _, err := execute(t, "--config", f.config, "history", "show", run.ID, "--format", "csv")
		if err != nil {
			t.Fatalf("history show error = %v", err)
		}
		if lines := strings.Count(strings.TrimSpace(out), "\n") + 1; lines != 2 {
			t.Errorf("csv lines = %d, want header and one violation:\n%s", lines, out)
		}
	})

	t.Run("show unknown", func(t *testing.T) {
		_, _, err := execute(t, "--config", f.config, "history", "show", "no-such-run")
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("error = %v, want not found", err)
		}
	})

	t.Run("prune", func(t *testing.T) {
		out, _, err := execute(t, "--config", f.config, "history", "prune", "--days", "1")
		if err != nil {
			t.Fatalf("prune error = %v", err)
		}
		if !strings.Contains(out, "Pruned 0 runs") {
			t.Errorf("unexpected output:\n%s", out)
		}

		out, _, err = execute(t, "--config", f.config, "history", "prune", "--days", "0")
		if err != nil {
			t.Fatalf("prune error = %v", err)
		}
		if !strings.Contains(out, "nothing to prune") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("bad since", func(t *testing.T) {
		_, _, err := execute(t, "--config", f.config, "history", "--since", "yesterday")
		if cli.ExitCode(err) != cli.ExitError || !strings.Contains(err.Error(), "since") {
			t.Errorf("error = %v, want since config error", err)
		}
	})
}

func TestFailSeverities(t *testing.T) {
	tests := []struct {
		threshold string
		want      []rules.Severity
		wantErr   bool
	}{
		{"error", []rules.Severity{rules.SeverityError}, false},
		{"warning", []rules.Severity{rules.SeverityError, rules.SeverityWarning}, false},
		{"info", []rules.Severity{rules.SeverityError, rules.SeverityWarning, rules.SeverityInfo}, false},
		{"none", nil, false},
		{"critical", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.threshold, func(t *testing.T) {
			got, err := failSeverities(tt.threshold)
			if (err != nil) != tt.wantErr {
				t.Fatalf("failSeverities() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("failSeverities() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	abs := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      string
		want    *time.Time
		wantErr bool
	}{
		{name: "empty", in: ""},
		{name: "rfc3339", in: "2026-03-01T08:30:00Z", want: &abs},
		{name: "duration", in: "90m", want: ptr(now.Add(-90 * time.Minute))},
		{name: "invalid", in: "last week", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.in, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTime() error = %v, wantErr %v", err, tt.wantErr)
			}
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("parseTime() = %v, want nil", got)
			case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
				t.Errorf("parseTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShortHash(t *testing.T) {
	if got := shortHash(""); got != "-" {
		t.Errorf("shortHash(\"\") = %q", got)
	}
	if got := shortHash("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("shortHash() = %q", got)
	}
}

func ptr[T any](v T) *T { return &v }
