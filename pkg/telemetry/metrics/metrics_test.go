package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nocturne-labs/doorman/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                true,
		Namespace:              "test",
		Subsystem:              "metrics",
		RequestDurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
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
	if collector.registry != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_NilRegistry(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	if collector.Registry() == nil {
		t.Error("Expected collector to create its own registry")
	}
}

func TestCollector_ConfigDefaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, prometheus.NewRegistry())

	if cfg.Namespace != "doorman" {
		t.Errorf("Expected default namespace %q, got %q", "doorman", cfg.Namespace)
	}
	if cfg.Subsystem != "game" {
		t.Errorf("Expected default subsystem %q, got %q", "game", cfg.Subsystem)
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		t.Error("Expected default request duration buckets")
	}
}

func TestCollector_RecordDecision(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	tests := []struct {
		name        string
		accepted    bool
		forced      bool
		outcome     string
		forcedLabel string
	}{
		{name: "scored accept", accepted: true, forced: false, outcome: "accept", forcedLabel: "false"},
		{name: "scored reject", accepted: false, forced: false, outcome: "reject", forcedLabel: "false"},
		{name: "forced accept", accepted: true, forced: true, outcome: "accept", forcedLabel: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordDecision(1, tt.accepted, tt.forced, 0.4, 0.1)

			count := testutil.ToFloat64(
				collector.decisionMetrics.decisionsTotal.WithLabelValues("1", tt.outcome, tt.forcedLabel))
			if count < 1 {
				t.Errorf("Expected decision counter >= 1, got %f", count)
			}
		})
	}

	// Three decisions processed, all counted as persons.
	persons := testutil.ToFloat64(collector.gameMetrics.personsProcessed.WithLabelValues("1"))
	if persons != 3 {
		t.Errorf("Expected 3 persons processed, got %f", persons)
	}

	// Scored decisions share one histogram series per scenario.
	series := testutil.CollectAndCount(collector.decisionMetrics.decisionScore)
	if series != 1 {
		t.Errorf("Expected 1 score histogram series, got %d", series)
	}
}

func TestCollector_RecordConstraint(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordConstraint(1, "young", 120, 0.35)

	deficit := testutil.ToFloat64(
		collector.decisionMetrics.constraintDeficit.WithLabelValues("1", "young"))
	if deficit != 120 {
		t.Errorf("Expected deficit gauge 120, got %f", deficit)
	}

	weight := testutil.ToFloat64(
		collector.decisionMetrics.constraintWeight.WithLabelValues("1", "young"))
	if weight != 0.35 {
		t.Errorf("Expected weight gauge 0.35, got %f", weight)
	}

	// Updates overwrite, not accumulate.
	collector.RecordConstraint(1, "young", 119, 0.30)
	deficit = testutil.ToFloat64(
		collector.decisionMetrics.constraintDeficit.WithLabelValues("1", "young"))
	if deficit != 119 {
		t.Errorf("Expected deficit gauge 119 after update, got %f", deficit)
	}
}

func TestCollector_UpdateOccupancy(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.UpdateOccupancy(2, 640, 14200)

	capacity := testutil.ToFloat64(
		collector.decisionMetrics.capacityRemaining.WithLabelValues("2"))
	if capacity != 640 {
		t.Errorf("Expected capacity gauge 640, got %f", capacity)
	}

	budget := testutil.ToFloat64(
		collector.decisionMetrics.budgetRemaining.WithLabelValues("2"))
	if budget != 14200 {
		t.Errorf("Expected budget gauge 14200, got %f", budget)
	}
}

func TestCollector_RecordGame(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordGame(1, "completed", 40*time.Minute, 4811)
	collector.RecordGame(1, "failed", 5*time.Minute, 20000)

	completed := testutil.ToFloat64(
		collector.gameMetrics.gamesTotal.WithLabelValues("1", "completed"))
	if completed != 1 {
		t.Errorf("Expected 1 completed game, got %f", completed)
	}

	failed := testutil.ToFloat64(
		collector.gameMetrics.gamesTotal.WithLabelValues("1", "failed"))
	if failed != 1 {
		t.Errorf("Expected 1 failed game, got %f", failed)
	}
}

func TestCollector_RecordAPIRequest(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordAPIRequest("decide_and_next", "success", 120*time.Millisecond)
	collector.RecordAPIRequest("decide_and_next", "success", 90*time.Millisecond)
	collector.RecordAPIRequest("new_game", "error", 2*time.Second)
	collector.RecordAPIRetry("new_game")

	success := testutil.ToFloat64(
		collector.clientMetrics.requestsTotal.WithLabelValues("decide_and_next", "success"))
	if success != 2 {
		t.Errorf("Expected 2 successful requests, got %f", success)
	}

	retries := testutil.ToFloat64(
		collector.clientMetrics.retriesTotal.WithLabelValues("new_game"))
	if retries != 1 {
		t.Errorf("Expected 1 retry, got %f", retries)
	}
}

func TestCollector_DisabledIsNoOp(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordDecision(1, true, false, 0.4, 0.1)
	collector.RecordConstraint(1, "young", 120, 0.35)
	collector.UpdateOccupancy(1, 640, 14200)
	collector.RecordGame(1, "completed", time.Minute, 100)
	collector.RecordAPIRequest("new_game", "success", time.Millisecond)
	collector.RecordAPIRetry("new_game")

	if n := testutil.CollectAndCount(collector.decisionMetrics.decisionsTotal); n != 0 {
		t.Errorf("Expected no decision series when disabled, got %d", n)
	}
	if n := testutil.CollectAndCount(collector.gameMetrics.gamesTotal); n != 0 {
		t.Errorf("Expected no game series when disabled, got %d", n)
	}
	if n := testutil.CollectAndCount(collector.clientMetrics.requestsTotal); n != 0 {
		t.Errorf("Expected no client series when disabled, got %d", n)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordDecision(1, true, false, 0.4, 0.1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "test_metrics_decisions_total") {
		t.Error("Expected metrics exposition to contain decision counter")
	}
}

func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(2)

	if !limiter.Allow("a") {
		t.Error("Expected first label set to be allowed")
	}
	if !limiter.Allow("b") {
		t.Error("Expected second label set to be allowed")
	}
	if limiter.Allow("c") {
		t.Error("Expected third label set to be rejected at limit 2")
	}
	if !limiter.Allow("a") {
		t.Error("Expected known label set to remain allowed")
	}
	if limiter.Count() != 2 {
		t.Errorf("Expected cardinality 2, got %d", limiter.Count())
	}
}

func TestCollector_ConstraintCardinalityOverflow(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.cardinalityLimiter = NewCardinalityLimiter(1)

	collector.RecordConstraint(1, "young", 120, 0.35)
	collector.RecordConstraint(1, "well_dressed", 80, 0.10)

	other := testutil.ToFloat64(
		collector.decisionMetrics.constraintDeficit.WithLabelValues("1", "other"))
	if other != 80 {
		t.Errorf("Expected overflow attribute aggregated into other, got %f", other)
	}
}
