package main

import (
	"strings"
	"testing"

	"ruleforge-hq/anvil/pkg/cli"
	"ruleforge-hq/anvil/pkg/libeval"
	"ruleforge-hq/anvil/pkg/units"
)

func TestEvalCommand(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "arithmetic",
			args: []string{"2 * (3 + 4)"},
			want: "14\n",
		},
		{
			name: "mixed units",
			args: []string{"1mm + 2mil"},
			want: "1.0508mm\n",
		},
		{
			name: "schematic units",
			args: []string{"--units", "schematic", "1mm"},
			want: "1mm\n",
		},
		{
			name: "string field",
			args: []string{"--board", f.board, "--a", "P1", "A.Net"},
			want: "VCC\n",
		},
		{
			name: "failing assertion",
			args: []string{"--board", f.board, "--a", "P2", "A.Clearance >= 0.15mm"},
			want: "0\n",
		},
		{
			name: "pair",
			args: []string{"--board", f.board, "--a", "P1", "--b", "P2", "A.Net != B.Net"},
			want: "1\n",
		},
		{
			name: "computed text",
			args: []string{"--text", "--board", f.board, "--a", "P2", "@{A.Name} clearance is @{A.Clearance}"},
			want: "P2 clearance is 0.1mm\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", f.config, "eval"}, tt.args...)
			out, _, err := execute(t, args...)
			if err != nil {
				t.Fatalf("eval error = %v", err)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestEvalCommand_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "parse error",
			args:    []string{"1 +"},
			wantErr: "command eval failed",
		},
		{
			name:    "item without board",
			args:    []string{"--a", "P1", "A.Net"},
			wantErr: "items require --board",
		},
		{
			name:    "unknown item",
			args:    []string{"--board", f.board, "--a", "P9", "A.Net"},
			wantErr: `no item "P9"`,
		},
		{
			name:    "unknown property",
			args:    []string{"--board", f.board, "--a", "P1", "A.Color"},
			wantErr: "unrecognized property",
		},
		{
			name:    "unknown unit system",
			args:    []string{"--units", "imperial", "1"},
			wantErr: "config error in units",
		},
		{
			name:    "no expression",
			args:    []string{},
			wantErr: "accepts 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", f.config, "eval"}, tt.args...)
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

func TestEvalCommand_Diagnostics(t *testing.T) {
	f := newFixture(t)

	_, stderr, err := execute(t, "--config", f.config, "eval", "1 $ 2")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(stderr, "1 $ 2\n    ^") {
		t.Errorf("stderr missing caret under offset 2:\n%s", stderr)
	}

	out, stderr, err := execute(t, "--config", f.config, "eval", "--board", f.board, "--a", "P1", "A.Clearance > 0.1")
	if err != nil {
		t.Fatalf("advisory must not fail: %v", err)
	}
	if out != "1\n" {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(stderr, "warning: ") || !strings.Contains(stderr, "missing units") {
		t.Errorf("stderr missing advisory:\n%s", stderr)
	}
}

func TestFormatValue(t *testing.T) {
	r := units.Board()
	tests := []struct {
		name string
		v    libeval.Value
		want string
	}{
		{"number", libeval.Number(2.5), "2.5"},
		{"distance", libeval.Quantity(250000, units.Distance), "0.25mm"},
		{"string", libeval.String("GND"), "GND"},
		{"null", libeval.Null(), "null"},
		{"undefined", libeval.Value{}, "undefined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(tt.v, r); got != tt.want {
				t.Errorf("formatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDumpCommand(t *testing.T) {
	f := newFixture(t)

	out, _, err := execute(t, "--config", f.config, "dump", "1+2")
	if err != nil {
		t.Fatalf("dump error = %v", err)
	}
	want := "Syntax tree:\nADD @1\n  NUMBER \"1\" @0\n  NUMBER \"2\" @2\n\n" +
		"Program (3 instructions):\n0000 PUSH_CONST 1\n0001 PUSH_CONST 2\n0002 ADD\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	out, _, err = execute(t, "--config", f.config, "dump", "--board", f.board, "A.existsOnLayer('*.Cu')")
	if err != nil {
		t.Fatalf("dump with board error = %v", err)
	}
	if !strings.Contains(out, "METHOD_CALL") {
		t.Errorf("program missing method call:\n%s", out)
	}

	if _, _, err := execute(t, "--config", f.config, "dump", "(1"); err == nil {
		t.Error("expected error for unbalanced parenthesis")
	}
}
