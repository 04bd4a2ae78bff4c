package config

import (
	"testing"
	"time"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	if cfg.Engine.Units != DefaultUnits {
		t.Errorf("expected units %q, got %q", DefaultUnits, cfg.Engine.Units)
	}
	if !cfg.Engine.ReportAdvisories {
		t.Error("expected advisories to be reported by default")
	}
	if cfg.Rules.Debounce != 100*time.Millisecond {
		t.Errorf("expected debounce 100ms, got %v", cfg.Rules.Debounce)
	}
	if !cfg.Report.Enabled || cfg.Report.Backend != "sqlite" {
		t.Errorf("expected sqlite reporting enabled, got %+v", cfg.Report)
	}
	if cfg.Report.SQLite.Driver != "sqlite3" {
		t.Errorf("expected driver sqlite3, got %q", cfg.Report.SQLite.Driver)
	}
	if cfg.Report.Retention.Days != DefaultRetentionDays {
		t.Errorf("expected %d retention days, got %d", DefaultRetentionDays, cfg.Report.Retention.Days)
	}
	if !cfg.Telemetry.Tracing.OTLP.Insecure {
		t.Error("expected insecure OTLP by default")
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) != len(DefaultDurationBuckets) {
		t.Errorf("expected default buckets, got %v", cfg.Telemetry.Metrics.DurationBuckets)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default configuration should be valid: %v", err)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	first := *cfg

	ApplyDefaults(cfg)
	if cfg.Rules.Path != first.Rules.Path || cfg.Report.SQLite.Path != first.Report.SQLite.Path {
		t.Error("ApplyDefaults changed an already-defaulted config")
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Engine: EngineConfig{Units: "schematic"},
		Rules:  RulesConfig{Path: "/etc/anvil/rules", Debounce: time.Second},
	}
	ApplyDefaults(cfg)

	if cfg.Engine.Units != "schematic" {
		t.Errorf("units overwritten: %q", cfg.Engine.Units)
	}
	if cfg.Rules.Path != "/etc/anvil/rules" {
		t.Errorf("rules path overwritten: %q", cfg.Rules.Path)
	}
	if cfg.Rules.Debounce != time.Second {
		t.Errorf("debounce overwritten: %v", cfg.Rules.Debounce)
	}
}
