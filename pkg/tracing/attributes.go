package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for MCP operations
const (
	// MCP tool attributes
	AttrMCPToolName     = "mcp.tool.name"
	AttrMCPToolStatus   = "mcp.tool.status"
	AttrMCPToolDuration = "mcp.tool.duration_ms"
	AttrMCPResultSize   = "mcp.tool.result_size"

	// Ranking attributes
	AttrRankPriority   = "ecoroute.rank.priority"
	AttrRankCandidates = "ecoroute.rank.candidates"
	AttrRankViable     = "ecoroute.rank.viable"
	AttrRankSelected   = "ecoroute.rank.selected_id"
	AttrRoutePair      = "ecoroute.route.pair"
	AttrVehicle        = "ecoroute.vehicle"

	// Result cache attributes
	AttrCacheName = "ecoroute.cache.name"
	AttrCacheHit  = "ecoroute.cache.hit"

	// Recalculation attributes
	AttrRequestToken = "ecoroute.request.token"
	AttrSuperseded   = "ecoroute.request.superseded"

	// HTTP transport attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
	AttrHTTPPath       = "http.path"
	AttrHTTPSessionID  = "http.session_id"
	AttrHTTPRequestID  = "http.request_id"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusInvalid     = "invalid_input"
	StatusRateLimited = "rate_limited"
	StatusSuperseded  = "superseded"
)

// MCPToolAttributes returns attributes for MCP tool execution
func MCPToolAttributes(toolName string, status string, durationMs int64, resultSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrMCPToolName, toolName),
		attribute.String(AttrMCPToolStatus, status),
		attribute.Int64(AttrMCPToolDuration, durationMs),
		attribute.Int(AttrMCPResultSize, resultSize),
	}
}

// RankingAttributes describes one ranking run. selectedID is empty when no
// candidate fit the time budget.
func RankingAttributes(priority string, candidates, viable int, selectedID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRankPriority, priority),
		attribute.Int(AttrRankCandidates, candidates),
		attribute.Int(AttrRankViable, viable),
		attribute.String(AttrRankSelected, selectedID),
	}
}

// CacheAttributes returns attributes for result cache lookups
func CacheAttributes(cacheName string, hit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCacheName, cacheName),
		attribute.Bool(AttrCacheHit, hit),
	}
}

// RecalculationAttributes describes a sequenced recalculation.
func RecalculationAttributes(token uint64, superseded bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrRequestToken, int64(token)),
		attribute.Bool(AttrSuperseded, superseded),
	}
}

// ErrorAttributes returns attributes for errors
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, "error"),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
