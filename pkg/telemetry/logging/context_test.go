package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithRunID(ctx, "run-123")
	if got := GetRunID(ctx); got != "run-123" {
		t.Errorf("GetRunID() = %q, want %q", got, "run-123")
	}

	ctx = WithBoard(ctx, "mainboard")
	if got := GetBoard(ctx); got != "mainboard" {
		t.Errorf("GetBoard() = %q, want %q", got, "mainboard")
	}

	ctx = WithRule(ctx, "min-clearance")
	if got := GetRule(ctx); got != "min-clearance" {
		t.Errorf("GetRule() = %q, want %q", got, "min-clearance")
	}

	ctx = WithRuleFile(ctx, "rules.yaml")
	if got := GetRuleFile(ctx); got != "rules.yaml" {
		t.Errorf("GetRuleFile() = %q, want %q", got, "rules.yaml")
	}

	ctx = WithTraceID(ctx, "trace-1")
	if got := GetTraceID(ctx); got != "trace-1" {
		t.Errorf("GetTraceID() = %q, want %q", got, "trace-1")
	}

	ctx = WithSpanID(ctx, "span-1")
	if got := GetSpanID(ctx); got != "span-1" {
		t.Errorf("GetSpanID() = %q, want %q", got, "span-1")
	}
}

func TestContextKeys_Missing(t *testing.T) {
	ctx := context.Background()
	if got := GetRunID(ctx); got != "" {
		t.Errorf("GetRunID() = %q, want empty", got)
	}
	if fields := extractContextFields(ctx); len(fields) != 0 {
		t.Errorf("extractContextFields() = %v, want none", fields)
	}
}

func TestExtractContextFields_Order(t *testing.T) {
	ctx := WithRule(WithRunID(context.Background(), "r1"), "width")
	fields := extractContextFields(ctx)

	want := []any{"run_id", "r1", "rule", "width"}
	if len(fields) != len(want) {
		t.Fatalf("extractContextFields() = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d = %v, want %v", i, fields[i], want[i])
		}
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithBoard(WithRunID(context.Background(), "run-9"), "demo")
	cl := NewContextLogger(logger, ctx).With("item", "R1")
	cl.Warn("violation", "rule", "clearance")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON output %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"run_id": "run-9",
		"board":  "demo",
		"item":   "R1",
		"rule":   "clearance",
		"level":  "WARN",
		"msg":    "violation",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %q", key, entry[key], want)
		}
	}
}
