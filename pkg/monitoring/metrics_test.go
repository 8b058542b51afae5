package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInitialization(t *testing.T) {
	// Test that all metrics are properly registered
	metrics := []prometheus.Collector{
		MCPRequestsTotal,
		MCPRequestDuration,
		ComputationsTotal,
		ComputationDuration,
		RankingOutcomes,
		RoutesFiltered,
		SupersededRecalculations,
		RateLimitExceeded,
		CacheHits,
		CacheMisses,
		CacheSize,
		ActiveConnections,
		ErrorsTotal,
		SystemInfo,
		GoRoutines,
		MemoryUsage,
		GCRuns,
	}

	for _, metric := range metrics {
		if metric == nil {
			t.Error("Metric is nil")
		}
	}
}

func TestRecordMCPRequest(t *testing.T) {
	// Clear any existing metrics
	MCPRequestsTotal.Reset()

	// Test successful request
	RecordMCPRequest("test_tool", 100*time.Millisecond, true)

	// Check counter
	if got := testutil.ToFloat64(MCPRequestsTotal.WithLabelValues("test_tool", "success")); got != 1 {
		t.Errorf("Expected 1 successful request, got %v", got)
	}

	// Test failed request
	RecordMCPRequest("test_tool", 200*time.Millisecond, false)

	// Check counter
	if got := testutil.ToFloat64(MCPRequestsTotal.WithLabelValues("test_tool", "error")); got != 1 {
		t.Errorf("Expected 1 failed request, got %v", got)
	}
}

func TestRecordComputation(t *testing.T) {
	// Clear any existing metrics
	ComputationsTotal.Reset()

	RecordComputation("compute_emissions", 2*time.Millisecond, true)
	if got := testutil.ToFloat64(ComputationsTotal.WithLabelValues("compute_emissions", "success")); got != 1 {
		t.Errorf("Expected 1 successful computation, got %v", got)
	}

	RecordComputation("compute_emissions", time.Millisecond, false)
	if got := testutil.ToFloat64(ComputationsTotal.WithLabelValues("compute_emissions", "error")); got != 1 {
		t.Errorf("Expected 1 failed computation, got %v", got)
	}
}

func TestRecordRanking(t *testing.T) {
	RankingOutcomes.Reset()
	before := testutil.ToFloat64(RoutesFiltered)

	RecordRanking("emissions", true, 2)
	RecordRanking("emissions", false, 3)
	RecordRanking("duration", true, 0)

	if got := testutil.ToFloat64(RankingOutcomes.WithLabelValues("emissions", "selected")); got != 1 {
		t.Errorf("Expected 1 selected emissions ranking, got %v", got)
	}
	if got := testutil.ToFloat64(RankingOutcomes.WithLabelValues("emissions", "empty")); got != 1 {
		t.Errorf("Expected 1 empty emissions ranking, got %v", got)
	}
	if got := testutil.ToFloat64(RoutesFiltered) - before; got != 5 {
		t.Errorf("Expected 5 filtered routes, got %v", got)
	}
}

func TestRecordSuperseded(t *testing.T) {
	SupersededRecalculations.Reset()

	RecordSuperseded("http")
	RecordSuperseded("http")
	if got := testutil.ToFloat64(SupersededRecalculations.WithLabelValues("http")); got != 2 {
		t.Errorf("Expected 2 superseded recalculations, got %v", got)
	}
}

func TestCacheMetrics(t *testing.T) {
	// Clear any existing metrics
	CacheHits.Reset()
	CacheMisses.Reset()
	CacheSize.Reset()

	// Test cache hit
	RecordCacheHit("compare_results")
	if got := testutil.ToFloat64(CacheHits.WithLabelValues("compare_results")); got != 1 {
		t.Errorf("Expected 1 cache hit, got %v", got)
	}

	// Test cache miss
	RecordCacheMiss("compare_results")
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("compare_results")); got != 1 {
		t.Errorf("Expected 1 cache miss, got %v", got)
	}

	// Test cache size update
	UpdateCacheSize("compare_results", 42)
	if got := testutil.ToFloat64(CacheSize.WithLabelValues("compare_results")); got != 42 {
		t.Errorf("Expected cache size 42, got %v", got)
	}
}

func TestRateLimitMetrics(t *testing.T) {
	// Clear any existing metrics
	RateLimitExceeded.Reset()

	// Test rate limit exceeded
	RecordRateLimitExceeded("http_api")
	if got := testutil.ToFloat64(RateLimitExceeded.WithLabelValues("http_api")); got != 1 {
		t.Errorf("Expected 1 rate limit exceeded, got %v", got)
	}
}

func TestErrorMetrics(t *testing.T) {
	// Clear any existing metrics
	ErrorsTotal.Reset()

	// Test error recording
	RecordError("engine", "self_check")
	if got := testutil.ToFloat64(ErrorsTotal.WithLabelValues("engine", "self_check")); got != 1 {
		t.Errorf("Expected 1 error, got %v", got)
	}
}

func TestUpdateActiveConnections(t *testing.T) {
	// Clear any existing metrics
	ActiveConnections.Reset()

	// Test connection update
	UpdateActiveConnections("http", "client", 5)
	if got := testutil.ToFloat64(ActiveConnections.WithLabelValues("http", "client")); got != 5 {
		t.Errorf("Expected 5 active connections, got %v", got)
	}
}

func BenchmarkRecordMCPRequest(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RecordMCPRequest("benchmark_tool", 100*time.Millisecond, true)
	}
}

func BenchmarkRecordComputation(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RecordComputation("benchmark_op", time.Millisecond, true)
	}
}

func BenchmarkRecordCacheHit(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RecordCacheHit("benchmark_cache")
	}
}
