package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Service name for metrics
	ServiceName = "ecoroutemcp"
)

var (
	// MCP request metrics
	MCPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoroute_mcp_requests_total",
			Help: "Total number of MCP requests processed",
		},
		[]string{"tool", "status"},
	)

	MCPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecoroute_mcp_request_duration_seconds",
			Help:    "MCP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"tool"},
	)

	// Computation metrics
	ComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoroute_computations_total",
			Help: "Total number of engine computations by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	ComputationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecoroute_computation_duration_seconds",
			Help:    "Engine computation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5},
		},
		[]string{"operation"},
	)

	// Ranking metrics
	RankingOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoroute_ranking_outcomes_total",
			Help: "Ranking runs by priority and whether a route was selected",
		},
		[]string{"priority", "outcome"},
	)

	RoutesFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecoroute_routes_filtered_total",
			Help: "Candidates dropped for exceeding the time budget",
		},
	)

	SupersededRecalculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoroute_superseded_recalculations_total",
			Help: "Recalculations discarded because a newer request was issued",
		},
		[]string{"transport"},
	)

	// Rate limiting metrics
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoroute_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
		[]string{"service"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoroute_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoroute_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ecoroute_cache_size",
			Help: "Current number of items in cache",
		},
		[]string{"cache_type"},
	)

	// Connection metrics
	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ecoroute_active_connections",
			Help: "Number of active connections",
		},
		[]string{"transport", "type"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoroute_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ecoroute_system_info",
			Help: "System information",
		},
		[]string{"version", "go_version", "build_commit", "build_date"},
	)

	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecoroute_goroutines",
			Help: "Number of goroutines",
		},
	)

	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecoroute_memory_usage_bytes",
			Help: "Memory usage in bytes",
		},
	)

	GCRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecoroute_gc_runs_total",
			Help: "Total number of garbage collection runs",
		},
	)
)

// TransportInfo holds transport configuration and status
type TransportInfo struct {
	Type           string `json:"type"`                      // "http+sse" or "stdio"
	HTTPAddr       string `json:"http_addr,omitempty"`       // HTTP address if enabled
	ActiveSessions int    `json:"active_sessions,omitempty"` // Active streaming sessions
}

// ServiceHealth is the body of the /health endpoint.
type ServiceHealth struct {
	Service       string                     `json:"service"`
	Version       string                     `json:"version"`
	Status        string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Uptime        time.Duration              `json:"uptime"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	StartTime     time.Time                  `json:"start_time,omitempty"`
	Components    map[string]ComponentStatus `json:"components"`
	Metrics       map[string]interface{}     `json:"metrics,omitempty"`
	Transport     *TransportInfo             `json:"transport,omitempty"`
}

// ComponentStatus is the last self-check result of one component.
type ComponentStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`               // "ok", "degraded", "error"
	Latency   int64  `json:"latency_ms,omitempty"` // Self-check duration in milliseconds
	LastError string `json:"last_error,omitempty"`
}

// Helper functions for common metric updates
func RecordMCPRequest(tool string, duration time.Duration, success bool) {
	MCPRequestsTotal.WithLabelValues(tool, statusLabel(success)).Inc()
	MCPRequestDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func RecordComputation(operation string, duration time.Duration, success bool) {
	ComputationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
	ComputationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRanking counts one ranking run and the candidates it filtered out.
func RecordRanking(priority string, selected bool, filtered int) {
	outcome := "selected"
	if !selected {
		outcome = "empty"
	}
	RankingOutcomes.WithLabelValues(priority, outcome).Inc()
	if filtered > 0 {
		RoutesFiltered.Add(float64(filtered))
	}
}

func RecordSuperseded(transport string) {
	SupersededRecalculations.WithLabelValues(transport).Inc()
}

func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}

func UpdateCacheSize(cacheType string, size int) {
	CacheSize.WithLabelValues(cacheType).Set(float64(size))
}

func RecordRateLimitExceeded(service string) {
	RateLimitExceeded.WithLabelValues(service).Inc()
}

func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

func UpdateActiveConnections(transport, connType string, count int) {
	ActiveConnections.WithLabelValues(transport, connType).Set(float64(count))
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
