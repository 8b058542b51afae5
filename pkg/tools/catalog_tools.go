package tools

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ecoroutemcp/pkg/catalog"
	"github.com/NERVsystems/ecoroutemcp/pkg/core"
	"github.com/NERVsystems/ecoroutemcp/pkg/dashboard"
	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
	"github.com/NERVsystems/ecoroutemcp/pkg/geo"
	"github.com/NERVsystems/ecoroutemcp/pkg/ranking"
)

// ListCitiesOutput defines the output of list_cities
type ListCitiesOutput struct {
	Cities []catalog.City `json:"cities"`
}

// ListCitiesTool returns a tool definition for the city directory
func ListCitiesTool(f *core.ToolFactory) mcp.Tool {
	return f.CreateBasicTool("list_cities", "List the cities routes can be compared between")
}

// HandleListCities implements list_cities
func (t *Toolset) HandleListCities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.Default().With("tool", "list_cities")
	return jsonResult(logger, ListCitiesOutput{Cities: t.cat.Cities()}), nil
}

// ListRoutesInput defines the input parameters for list_routes
type ListRoutesInput struct {
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	IncludePath bool   `json:"include_path,omitempty"`
}

// RouteSummary is a catalog route with its path encoded as a polyline.
type RouteSummary struct {
	ranking.RouteRecord
	Polyline string `json:"polyline,omitempty"`
	// Current marks the first route of a pair.
	Current bool `json:"current"`
}

// ListRoutesOutput defines the output of list_routes
type ListRoutesOutput struct {
	Routes []RouteSummary `json:"routes"`
}

// ListRoutesTool returns a tool definition for the route catalog
func ListRoutesTool(f *core.ToolFactory) mcp.Tool {
	opts := append(core.RoutePairParams(false),
		mcp.WithBoolean("include_path",
			mcp.Description("Include the raw coordinate path in addition to the polyline"),
		),
	)
	return f.CreateBasicTool("list_routes",
		"List catalog routes, optionally for one origin/destination pair. "+
			"The first route of each pair is the current route; the rest are suggested alternatives.",
		opts...)
}

// HandleListRoutes implements list_routes
func (t *Toolset) HandleListRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("list_routes", func(ctx context.Context, input ListRoutesInput, logger *slog.Logger) (interface{}, error) {
		var routes []ranking.RouteRecord
		switch {
		case input.Origin == "" && input.Destination == "":
			routes = t.cat.AllRoutes()
		case input.Origin == "":
			return nil, missingParameter("origin")
		case input.Destination == "":
			return nil, missingParameter("destination")
		default:
			query := pairQuery(input.Origin, input.Destination)
			if _, ok := t.cat.City(input.Origin); !ok {
				return nil, unknownLocation("origin", input.Origin, "unknown city", query)
			}
			if _, ok := t.cat.City(input.Destination); !ok {
				return nil, unknownLocation("destination", input.Destination, "unknown city", query)
			}
			routes = t.cat.Routes(input.Origin, input.Destination)
		}

		out := ListRoutesOutput{Routes: make([]RouteSummary, 0, len(routes))}
		for _, r := range routes {
			current, _ := t.cat.CurrentRoute(r.Origin, r.Destination)
			s := RouteSummary{
				RouteRecord: r,
				Polyline:    geo.EncodePolyline(r.Path),
				Current:     current.ID == r.ID,
			}
			if !input.IncludePath {
				s.Path = nil
			}
			out.Routes = append(out.Routes, s)
		}
		return out, nil
	})(ctx, req)
}

// ListVehiclePresetsOutput defines the output of list_vehicle_presets
type ListVehiclePresetsOutput struct {
	Presets []catalog.VehiclePreset `json:"presets"`
	Default string                  `json:"default"`
}

// ListVehiclePresetsTool returns a tool definition for the vehicle presets
func ListVehiclePresetsTool(f *core.ToolFactory) mcp.Tool {
	return f.CreateBasicTool("list_vehicle_presets", "List the named vehicle profiles usable as vehicle_preset")
}

// HandleListVehiclePresets implements list_vehicle_presets
func (t *Toolset) HandleListVehiclePresets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.Default().With("tool", "list_vehicle_presets")
	return jsonResult(logger, ListVehiclePresetsOutput{
		Presets: t.cat.VehiclePresets(),
		Default: dashboard.DefaultPreset,
	}), nil
}

// ListStrategiesOutput defines the output of list_strategies
type ListStrategiesOutput struct {
	Strategies   []emissions.OptimizationStrategy `json:"strategies"`
	Combinations []emissions.OptimizationStrategy `json:"combinations"`
}

// ListStrategiesTool returns a tool definition for the strategy table
func ListStrategiesTool(f *core.ToolFactory) mcp.Tool {
	return f.CreateBasicTool("list_strategies",
		"List the emissions reduction strategies and the curated combinations with their reduction factors")
}

// HandleListStrategies implements list_strategies
func (t *Toolset) HandleListStrategies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.Default().With("tool", "list_strategies")
	return jsonResult(logger, ListStrategiesOutput{
		Strategies:   t.cat.Strategies(),
		Combinations: t.cat.Combinations(),
	}), nil
}
