package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/ecoroutemcp/pkg/core"
	"github.com/NERVsystems/ecoroutemcp/pkg/dashboard"
	"github.com/NERVsystems/ecoroutemcp/pkg/monitoring"
	"github.com/NERVsystems/ecoroutemcp/pkg/tracing"
)

// Registry contains all tool definitions and handlers
type Registry struct {
	logger  *slog.Logger
	factory *core.ToolFactory
	tools   *Toolset
}

// NewRegistry creates a new tool registry over a dashboard
func NewRegistry(logger *slog.Logger, d *dashboard.Dashboard) *Registry {
	return &Registry{
		logger:  logger,
		factory: core.NewToolFactory(),
		tools:   NewToolset(d),
	}
}

// ToolDefinition represents an MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     server.ToolHandlerFunc
}

// GetToolDefinitions returns the list of all available tools.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	f := r.factory
	defs := []ToolDefinition{
		// Version and capability tools
		{
			Name:        "get_version",
			Description: "Get the version information for this route emissions MCP",
			Tool:        GetVersionTool(),
			Handler:     HandleGetVersion,
		},

		// Environmental factor model
		{
			Name:        "global_factors",
			Description: "Convert traffic and weather levels into impact factors. Parameters: traffic_level (0-100), weather_conditions (0-100)",
			Tool:        GlobalFactorsTool(f),
			Handler:     HandleGlobalFactors,
		},
		{
			Name:        "route_factor",
			Description: "Scale a global factor by route sensitivity. Parameters: global_factor (>= 1), sensitivity (1-10)",
			Tool:        RouteFactorTool(f),
			Handler:     HandleRouteFactor,
		},

		// Emissions model
		{
			Name:        "compute_emissions",
			Description: "Compute an emissions breakdown. Parameters: distance_km or route_id, vehicle_preset or category/subtype/efficiency/utilization, factors or conditions, terrain, cargo_weight_kg",
			Tool:        ComputeEmissionsTool(f),
			Handler:     r.tools.HandleComputeEmissions,
		},
		{
			Name:        "compute_equivalents",
			Description: "Express an emissions total as relatable equivalents. Parameters: total (kg CO2e)",
			Tool:        ComputeEquivalentsTool(f),
			Handler:     HandleComputeEquivalents,
		},
		{
			Name:        "compute_optimization_savings",
			Description: "Estimate savings per reduction strategy. Parameters: base_emissions (kg CO2e), strategies (optional array of name/reduction_factor)",
			Tool:        ComputeSavingsTool(f),
			Handler:     r.tools.HandleComputeSavings,
		},

		// Ranking and comparison
		{
			Name:        "rank_routes",
			Description: "Rank routes under conditions and a time budget. Parameters: origin/destination or candidates, traffic_level, weather_conditions, priority, time_constraint_min",
			Tool:        RankRoutesTool(f),
			Handler:     r.tools.HandleRankRoutes,
		},
		{
			Name:        "compare_routes",
			Description: "Compare the current route with its alternatives. Parameters: origin, destination, traffic_level, weather_conditions, priority, time_constraint_min, vehicle, avoid",
			Tool:        CompareRoutesTool(f),
			Handler:     r.tools.HandleCompareRoutes,
		},

		// Catalog
		{
			Name:        "list_cities",
			Description: "List the city directory",
			Tool:        ListCitiesTool(f),
			Handler:     r.tools.HandleListCities,
		},
		{
			Name:        "list_routes",
			Description: "List catalog routes. Parameters: origin, destination (optional), include_path (boolean)",
			Tool:        ListRoutesTool(f),
			Handler:     r.tools.HandleListRoutes,
		},
		{
			Name:        "list_vehicle_presets",
			Description: "List the vehicle presets",
			Tool:        ListVehiclePresetsTool(f),
			Handler:     r.tools.HandleListVehiclePresets,
		},
		{
			Name:        "list_strategies",
			Description: "List reduction strategies and curated combinations",
			Tool:        ListStrategiesTool(f),
			Handler:     r.tools.HandleListStrategies,
		},
	}

	return defs
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, r.instrument(def.Name, def.Handler))
	}
}

// instrument wraps a tool handler with OpenTelemetry tracing and Prometheus
// request metrics. Error results count as failures.
func (r *Registry) instrument(toolName string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		spanName := fmt.Sprintf("mcp.tool.%s", toolName)
		ctx, span := tracing.StartSpan(ctx, spanName,
			trace.WithAttributes(
				attribute.String(tracing.AttrMCPToolName, toolName),
			),
		)
		defer span.End()

		startTime := time.Now()
		result, err := handler(ctx, req)
		duration := time.Since(startTime)
		durationMs := duration.Milliseconds()

		status := tracing.StatusSuccess
		switch {
		case err != nil:
			status = tracing.StatusError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case result != nil && result.IsError:
			status = tracing.StatusInvalid
			span.SetStatus(codes.Error, "tool returned an error result")
		default:
			span.SetStatus(codes.Ok, "")
		}
		monitoring.RecordMCPRequest(toolName, duration, status == tracing.StatusSuccess)
		if status == tracing.StatusError {
			monitoring.RecordError("tool", toolName)
		}

		resultSize := 0
		if result != nil && result.Content != nil {
			if data, marshalErr := json.Marshal(result.Content); marshalErr == nil {
				resultSize = len(data)
			}
		}

		span.SetAttributes(tracing.MCPToolAttributes(toolName, status, durationMs, resultSize)...)

		r.logger.Debug("tool execution traced",
			"tool", toolName,
			"duration_ms", durationMs,
			"status", status,
			"result_size", resultSize,
		)

		return result, err
	}
}

// RegisterPrompts registers all prompts with the MCP server.
func (r *Registry) RegisterPrompts(mcpServer *server.MCPServer) {
	r.logger.Info("registering route planning prompt")
	mcpServer.AddPrompt(RoutePlanningPrompt(), HandleRoutePlanningPrompt)
}

// GetToolNames returns a list of all tool names.
func (r *Registry) GetToolNames() []string {
	defs := r.GetToolDefinitions()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// RegisterAll registers all tools and prompts with the MCP server.
func (r *Registry) RegisterAll(mcpServer *server.MCPServer) {
	r.RegisterTools(mcpServer)
	r.RegisterPrompts(mcpServer)
}
