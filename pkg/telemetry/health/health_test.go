package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestNew tests the creation of a new health checker.
func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{"default timeout", 0, 5 * time.Second},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.checkTimeout)
			}
			if len(checker.Checks()) != 0 {
				t.Errorf("expected no checks, got %v", checker.Checks())
			}
		})
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("storage", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("rules", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("rules", func(ctx context.Context) error { return nil })

	if got := strings.Join(checker.Checks(), ","); got != "rules,storage" {
		t.Errorf("Checks() = %q", got)
	}

	checker.UnregisterCheck("storage")
	if got := strings.Join(checker.Checks(), ","); got != "rules" {
		t.Errorf("Checks() after unregister = %q", got)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		unhealthy  map[string]string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"rules":   func(ctx context.Context) error { return nil },
				"storage": func(ctx context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one unhealthy",
			checks: map[string]CheckFunc{
				"rules":   func(ctx context.Context) error { return nil },
				"storage": func(ctx context.Context) error { return errors.New("database is locked") },
			},
			wantStatus: StatusDegraded,
			unhealthy:  map[string]string{"storage": "database is locked"},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					time.Sleep(200 * time.Millisecond)
					return nil
				},
			},
			wantStatus: StatusDegraded,
			unhealthy:  map[string]string{"slow": "health check timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(50 * time.Millisecond)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(status.Checks), len(tt.checks))
			}
			for name, result := range status.Checks {
				msg, bad := tt.unhealthy[name]
				if bad {
					if result.Status != StatusUnhealthy || result.Message != msg {
						t.Errorf("%s = %+v, want unhealthy %q", name, result, msg)
					}
				} else if result.Status != StatusOK {
					t.Errorf("%s = %+v, want ok", name, result)
				}
			}
		})
	}
}

func TestCheckReadiness_ContextCancellation(t *testing.T) {
	checker := New(5 * time.Second)
	checker.RegisterCheck("test", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if result := checker.CheckReadiness(ctx).Checks["test"]; result.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy after cancellation, got %q", result.Status)
	}
}

func TestRunTracker(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	tracker := NewRunTracker()
	tracker.now = func() time.Time { return now }
	check := tracker.Check(10 * time.Minute)

	if err := check(context.Background()); err == nil || err.Error() != "no check run completed yet" {
		t.Errorf("before first run: %v", err)
	}

	tracker.Record(nil)
	if err := check(context.Background()); err != nil {
		t.Errorf("after successful run: %v", err)
	}

	tracker.Record(errors.New("board file missing"))
	if err := check(context.Background()); err == nil || !strings.Contains(err.Error(), "board file missing") {
		t.Errorf("after failed run: %v", err)
	}

	tracker.Record(nil)
	now = now.Add(15 * time.Minute)
	if err := check(context.Background()); err == nil || err.Error() != "last check run was 15m0s ago" {
		t.Errorf("stale run: %v", err)
	}

	if err := tracker.Check(0)(context.Background()); err != nil {
		t.Errorf("maxAge 0 should never go stale: %v", err)
	}
}

func TestHandlers(t *testing.T) {
	checker := New(time.Second)
	mux := http.NewServeMux()
	checker.Register(mux, NewVersionInfo("1.2.0", "abc123", "2026-03-01"))

	tests := []struct {
		name       string
		method     string
		path       string
		failing    bool
		wantCode   int
		wantStatus string
		wantBody   bool
	}{
		{"liveness", http.MethodGet, "/health", false, http.StatusOK, StatusOK, true},
		{"liveness head", http.MethodHead, "/health", false, http.StatusOK, "", false},
		{"liveness post", http.MethodPost, "/health", false, http.StatusMethodNotAllowed, "", false},
		{"ready", http.MethodGet, "/ready", false, http.StatusOK, StatusReady, true},
		{"not ready", http.MethodGet, "/ready", true, http.StatusServiceUnavailable, StatusDegraded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.failing {
				checker.RegisterCheck("rules", func(ctx context.Context) error { return errors.New("no rule set loaded") })
				defer checker.UnregisterCheck("rules")
			}

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if !tt.wantBody {
				return
			}

			var status HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status.Status, tt.wantStatus)
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler(NewVersionInfo("1.2.0", "abc123", "2026-03-01")).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.0" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}
