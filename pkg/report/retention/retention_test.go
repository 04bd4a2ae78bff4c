package retention

import (
	"context"
	"testing"
	"time"

	"ruleforge-hq/anvil/pkg/config"
	"ruleforge-hq/anvil/pkg/report"
	"ruleforge-hq/anvil/pkg/report/storage"
)

func seedRuns(t *testing.T, s report.Storage, now time.Time, ages ...time.Duration) {
	t.Helper()
	for _, age := range ages {
		run := &report.Run{ID: report.NewRunID(), Board: "demo", Status: report.StatusClean, StartedAt: now.Add(-age)}
		if err := s.Store(context.Background(), run); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPruner_Prune(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name        string
		days        int
		wantDeleted int64
	}{
		{"thirty days", 30, 2},
		{"one day", 1, 3},
		{"unlimited", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			seedRuns(t, s, now, time.Hour, 2*day, 31*day, 90*day)

			p := NewPruner(s, &config.RetentionConfig{Days: tt.days}, nil)
			p.now = func() time.Time { return now }

			deleted, err := p.Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("deleted = %d, want %d", deleted, tt.wantDeleted)
			}
		})
	}
}

func TestScheduler(t *testing.T) {
	s := storage.NewMemoryStorage()

	t.Run("idle without schedule", func(t *testing.T) {
		sched := NewScheduler(NewPruner(s, &config.RetentionConfig{Days: 30}, nil), "")
		if err := sched.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		if sched.IsRunning() || sched.NextRun() != nil {
			t.Error("scheduler should be idle")
		}
	})

	t.Run("idle with unlimited retention", func(t *testing.T) {
		sched := NewScheduler(NewPruner(s, &config.RetentionConfig{}, nil), "0 3 * * *")
		if err := sched.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		if sched.IsRunning() {
			t.Error("scheduler should be idle")
		}
	})

	t.Run("invalid schedule", func(t *testing.T) {
		sched := NewScheduler(NewPruner(s, &config.RetentionConfig{Days: 30}, nil), "every day")
		if err := sched.Start(context.Background()); err == nil {
			t.Error("expected error for invalid schedule")
		}
	})

	t.Run("running", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		sched := NewScheduler(NewPruner(s, &config.RetentionConfig{Days: 30}, nil), "0 3 * * *")
		if err := sched.Start(ctx); err != nil {
			t.Fatal(err)
		}
		if !sched.IsRunning() {
			t.Fatal("scheduler not running")
		}
		next := sched.NextRun()
		if next == nil || next.Hour() != 3 || next.Minute() != 0 {
			t.Errorf("NextRun() = %v", next)
		}

		cancel()
		deadline := time.Now().Add(2 * time.Second)
		for sched.IsRunning() && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		if sched.IsRunning() {
			t.Error("scheduler still running after cancel")
		}
	})
}
