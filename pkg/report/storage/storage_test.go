package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"ruleforge-hq/anvil/pkg/config"
	"ruleforge-hq/anvil/pkg/report"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRun(i int, board, status string, violations ...string) *report.Run {
	id := fmt.Sprintf("run-%02d", i)
	run := &report.Run{
		ID:        id,
		Board:     board,
		RuleFile:  "rules.yaml",
		RulesHash: "abc",
		Status:    status,
		StartedAt: baseTime.Add(time.Duration(i) * time.Hour),
		Duration:  time.Duration(i) * time.Millisecond,
		Items:     10,
		Rules:     2,
	}
	for j, rule := range violations {
		run.Violations = append(run.Violations, report.Violation{
			ID:       fmt.Sprintf("%s-v%d", id, j),
			RunID:    id,
			Rule:     rule,
			Severity: "error",
			ItemA:    "P1",
			ItemB:    "P2",
			Message:  rule + " failed",
		})
	}
	return run
}

func backends(t *testing.T) map[string]func(t *testing.T) report.Storage {
	sqlite := func(driver string) func(t *testing.T) report.Storage {
		return func(t *testing.T) report.Storage {
			s, err := NewSQLiteStorage(&config.SQLiteConfig{
				Path:         filepath.Join(t.TempDir(), "db", "anvil.db"),
				Driver:       driver,
				MaxOpenConns: 1,
				WALMode:      true,
				BusyTimeout:  time.Second,
			}, nil)
			if err != nil {
				t.Fatalf("NewSQLiteStorage(%s) error = %v", driver, err)
			}
			return s
		}
	}
	return map[string]func(t *testing.T) report.Storage{
		"memory":         func(*testing.T) report.Storage { return NewMemoryStorage() },
		"sqlite-cgo":     sqlite(DriverCGo),
		"sqlite-pure-go": sqlite(DriverPureGo),
	}
}

func seed(t *testing.T, s report.Storage) {
	t.Helper()
	runs := []*report.Run{
		testRun(1, "demo", report.StatusClean),
		testRun(2, "demo", report.StatusViolations, "clearance", "spacing"),
		testRun(3, "other", report.StatusViolations, "spacing"),
		testRun(4, "demo", report.StatusError),
	}
	for _, r := range runs {
		if err := s.Store(context.Background(), r); err != nil {
			t.Fatalf("Store(%s) error = %v", r.ID, err)
		}
	}
}

func TestStorage_GetRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()
			seed(t, s)

			run, err := s.Get(context.Background(), "run-02")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			want := testRun(2, "demo", report.StatusViolations, "clearance", "spacing")
			if run.Board != want.Board || run.RulesHash != "abc" || run.Duration != want.Duration {
				t.Errorf("run = %+v", run)
			}
			if !run.StartedAt.Equal(want.StartedAt) {
				t.Errorf("StartedAt = %v, want %v", run.StartedAt, want.StartedAt)
			}
			if len(run.Violations) != 2 || run.Violations[0] != want.Violations[0] || run.Violations[1] != want.Violations[1] {
				t.Errorf("violations = %+v", run.Violations)
			}

			if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, report.ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStorage_Query(t *testing.T) {
	since := baseTime.Add(2 * time.Hour)

	tests := []struct {
		name  string
		query report.Query
		want  []string
	}{
		{"all newest first", report.Query{}, []string{"run-04", "run-03", "run-02", "run-01"}},
		{"board", report.Query{Board: "demo"}, []string{"run-04", "run-02", "run-01"}},
		{"status", report.Query{Status: report.StatusViolations}, []string{"run-03", "run-02"}},
		{"rule", report.Query{Rule: "clearance"}, []string{"run-02"}},
		{"since", report.Query{Since: &since}, []string{"run-04", "run-03", "run-02"}},
		{"limit", report.Query{Limit: 2}, []string{"run-04", "run-03"}},
		{"offset", report.Query{Limit: 2, Offset: 3}, []string{"run-01"}},
		{"offset past end", report.Query{Offset: 10}, []string{}},
	}

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()
			seed(t, s)

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					runs, err := s.Query(context.Background(), &tt.query)
					if err != nil {
						t.Fatalf("Query() error = %v", err)
					}
					got := make([]string, len(runs))
					for i, r := range runs {
						got[i] = r.ID
					}
					if fmt.Sprint(got) != fmt.Sprint(tt.want) {
						t.Errorf("Query() = %v, want %v", got, tt.want)
					}
				})
			}

			count, err := s.Count(context.Background(), &report.Query{Board: "demo"})
			if err != nil || count != 3 {
				t.Errorf("Count() = %d, %v; want 3", count, err)
			}

			if _, err := s.Query(context.Background(), &report.Query{Limit: -1}); err == nil {
				t.Error("expected invalid query error")
			}
		})
	}
}

func TestStorage_Prune(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()
			seed(t, s)

			deleted, err := s.Prune(context.Background(), baseTime.Add(3*time.Hour))
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != 2 {
				t.Errorf("deleted = %d, want 2", deleted)
			}

			count, _ := s.Count(context.Background(), &report.Query{})
			if count != 2 {
				t.Errorf("remaining = %d, want 2", count)
			}
			if runs, _ := s.Query(context.Background(), &report.Query{Rule: "clearance"}); len(runs) != 0 {
				t.Errorf("violations of pruned run still match: %v", runs)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ReportConfig
		wantErr bool
	}{
		{"memory", config.ReportConfig{Backend: "memory"}, false},
		{"sqlite", config.ReportConfig{Backend: "sqlite", SQLite: config.SQLiteConfig{
			Path: filepath.Join(t.TempDir(), "anvil.db"), Driver: DriverPureGo,
		}}, false},
		{"bad driver", config.ReportConfig{Backend: "sqlite", SQLite: config.SQLiteConfig{
			Path: filepath.Join(t.TempDir(), "anvil.db"), Driver: "postgres",
		}}, true},
		{"unknown backend", config.ReportConfig{Backend: "s3"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(&tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				_ = s.Close()
			}
			var se *report.StorageError
			if err != nil && !errors.As(err, &se) {
				t.Errorf("error %T is not a StorageError", err)
			}
		})
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	cfg := &config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "anvil.db"), Driver: DriverPureGo}

	s, err := NewSQLiteStorage(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	seed(t, s)
	_ = s.Close()

	s, err = NewSQLiteStorage(cfg, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	count, err := s.Count(context.Background(), &report.Query{})
	if err != nil || count != 4 {
		t.Errorf("Count() after reopen = %d, %v", count, err)
	}
}
