package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ruleforge-hq/anvil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		DurationBuckets: []float64{0.001, 0.01, 0.1, 1},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.config != cfg {
		t.Error("Collector config not set correctly")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, nil)

	if cfg.Namespace != "anvil" {
		t.Errorf("Namespace = %q, want anvil", cfg.Namespace)
	}
	if len(cfg.DurationBuckets) == 0 {
		t.Error("expected default buckets")
	}
}

func TestCollector_RecordCompile(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordCompile("parse", false, time.Millisecond)
	collector.RecordCompile("parse", false, time.Millisecond)
	collector.RecordCompile("codegen", false, time.Millisecond)
	collector.RecordCompile("parse", true, time.Millisecond)
	collector.RecordAdvisory()

	cm := collector.compileMetrics
	if got := testutil.ToFloat64(cm.compilationsTotal.WithLabelValues("error", "parse")); got != 2 {
		t.Errorf("parse errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(cm.compilationsTotal.WithLabelValues("error", "codegen")); got != 1 {
		t.Errorf("codegen errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.compilationsTotal.WithLabelValues("success", "none")); got != 1 {
		t.Errorf("successes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.advisoriesTotal); got != 1 {
		t.Errorf("advisories = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(cm.compileDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestCollector_RecordCheck(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordRuleEvaluation("clearance", "pass")
	collector.RecordRuleEvaluation("clearance", "fail")
	collector.RecordRuleEvaluation("clearance", "fail")
	collector.RecordViolation("clearance", "error")
	collector.RecordRuntimeFault("clearance")
	collector.ObserveRule("clearance", 3*time.Millisecond)
	collector.RecordCheckRun("violations", 20*time.Millisecond)
	collector.RecordRulesReload("success")

	cm := collector.checkMetrics
	if got := testutil.ToFloat64(cm.evaluationsTotal.WithLabelValues("clearance", "fail")); got != 2 {
		t.Errorf("failed evaluations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(cm.violationsTotal.WithLabelValues("clearance", "error")); got != 1 {
		t.Errorf("violations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.faultsTotal.WithLabelValues("clearance")); got != 1 {
		t.Errorf("faults = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.runsTotal.WithLabelValues("violations")); got != 1 {
		t.Errorf("runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.reloadsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("reloads = %v, want 1", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordViolation("clearance", "error")
	collector.RecordCompile("parse", false, time.Millisecond)

	if got := testutil.CollectAndCount(collector.checkMetrics.violationsTotal); got != 0 {
		t.Errorf("disabled collector recorded %d violation series", got)
	}
	if got := testutil.CollectAndCount(collector.compileMetrics.compilationsTotal); got != 0 {
		t.Errorf("disabled collector recorded %d compile series", got)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var collector *Collector
	collector.RecordCompile("parse", false, time.Millisecond)
	collector.RecordAdvisory()
	collector.RecordRuleEvaluation("r", "pass")
	collector.ObserveRule("r", time.Millisecond)
	collector.RecordViolation("r", "warning")
	collector.RecordRuntimeFault("r")
	collector.RecordCheckRun("clean", time.Millisecond)
	collector.RecordRulesReload("error")
}

func TestCollector_RuleCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.cardinalityLimiter = NewCardinalityLimiter(2)

	for i := 0; i < 5; i++ {
		collector.RecordViolation(fmt.Sprintf("rule-%d", i), "error")
	}

	vt := collector.checkMetrics.violationsTotal
	if got := testutil.ToFloat64(vt.WithLabelValues("other", "error")); got != 3 {
		t.Errorf("other = %v, want 3", got)
	}
	if got := testutil.CollectAndCount(vt); got != 3 {
		t.Errorf("series = %d, want 3", got)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("expected first two values to be allowed")
	}
	if !cl.Allow("a") {
		t.Error("existing value should stay allowed")
	}
	if cl.Allow("c") {
		t.Error("third value should be rejected")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordViolation("clearance", "error")

	srv := httptest.NewServer(collector.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `test_violations_total{rule="clearance",severity="error"} 1`) {
		t.Errorf("metrics output missing violation counter:\n%s", body)
	}
}

func TestCollector_NewServer(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	srv := collector.NewServer("127.0.0.1:0", "/metrics", func(mux *http.ServeMux) {
		mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	tests := []struct {
		path string
		want int
	}{
		{"/metrics", http.StatusOK},
		{"/ping", http.StatusNoContent},
		{"/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
