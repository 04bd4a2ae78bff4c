package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"ruleforge-hq/anvil/pkg/cli"
)

func TestLintCommand(t *testing.T) {
	f := newFixture(t)

	out, _, err := execute(t, "--config", f.config, "lint", "--board", f.board)
	if err != nil {
		t.Fatalf("lint error = %v", err)
	}
	if !strings.Contains(out, "2 rules") || !strings.Contains(out, "(valid)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestLintCommand_Problems(t *testing.T) {
	f := newFixture(t)

	broken := filepath.Join(f.dir, "broken.yaml")
	writeFile(t, broken, `
rules:
  - name: good
    assert: A.Clearance >= 0.1mm
  - name: bad-property
    assert: A.Color == 'red'
  - name: bare-number
    assert: A.Clearance > 0.1
`)

	tests := []struct {
		name      string
		args      []string
		wantCount int
		wantOut   []string
	}{
		{
			name:      "errors fail",
			args:      []string{"--rules", broken},
			wantCount: 1,
			wantOut:   []string{"error: ", "bad-property", "unrecognized property", "(invalid)"},
		},
		{
			name:      "strict fails on warnings",
			args:      []string{"--rules", broken, "--strict"},
			wantCount: 2,
			wantOut:   []string{"warning: ", "bare-number", "missing units"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", f.config, "lint", "--board", f.board}, tt.args...)
			out, _, err := execute(t, args...)

			var verr *cli.ViolationsError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ViolationsError", err)
			}
			if verr.Count != tt.wantCount {
				t.Errorf("count = %d, want %d", verr.Count, tt.wantCount)
			}
			if code := cli.ExitCode(err); code != cli.ExitViolations {
				t.Errorf("exit code = %d, want %d", code, cli.ExitViolations)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestLintCommand_JSON(t *testing.T) {
	f := newFixture(t)

	broken := filepath.Join(f.dir, "broken.yaml")
	writeFile(t, broken, `
rules:
  - name: bad-property
    assert: A.Color == 'red'
`)

	out, _, err := execute(t, "--config", f.config, "lint", "--board", f.board, "--rules", broken, "--format", "json")
	if err == nil {
		t.Fatal("expected lint failure")
	}

	var rep LintReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if rep.Valid || rep.Board != "demo" || rep.Rules != 1 {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(rep.Errors))
	}
	d := rep.Errors[0]
	if d.Rule != "bad-property" || d.Field != "assert" || d.Severity != "error" {
		t.Errorf("diagnostic = %+v", d)
	}
}

func TestLintCommand_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no board", []string{}, "--board is required"},
		{"missing board", []string{"--board", filepath.Join(f.dir, "none.yaml")}, "config error in board"},
		{"missing rules", []string{"--board", f.board, "--rules", filepath.Join(f.dir, "none.yaml")}, "command lint failed"},
		{"bad format", []string{"--board", f.board, "--format", "xml"}, "format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", f.config, "lint"}, tt.args...)
			_, _, err := execute(t, args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
			if code := cli.ExitCode(err); code != cli.ExitError {
				t.Errorf("exit code = %d, want %d", code, cli.ExitError)
			}
		})
	}
}
