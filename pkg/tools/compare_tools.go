package tools

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ecoroutemcp/pkg/core"
	"github.com/NERVsystems/ecoroutemcp/pkg/dashboard"
	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
	"github.com/NERVsystems/ecoroutemcp/pkg/ranking"
	"github.com/NERVsystems/ecoroutemcp/pkg/tracing"
)

// CompareRoutesInput defines the input parameters for compare_routes
type CompareRoutesInput struct {
	Origin            string           `json:"origin"`
	Destination       string           `json:"destination"`
	TrafficLevel      *float64         `json:"traffic_level"`
	WeatherConditions *float64         `json:"weather_conditions"`
	Priority          ranking.Priority `json:"priority"`
	TimeConstraint    *float64         `json:"time_constraint_min"`
	Avoid             []string         `json:"avoid,omitempty"`

	PrioritizeFuel      bool `json:"prioritize_fuel,omitempty"`
	PrioritizeEmissions bool `json:"prioritize_emissions,omitempty"`

	VehicleInput
}

// CompareRoutesOutput defines the output of compare_routes
type CompareRoutesOutput struct {
	dashboard.CompareResult
	Cached bool `json:"cached"`
}

// CompareRoutesTool returns a tool definition for the dashboard comparison
func CompareRoutesTool(f *core.ToolFactory) mcp.Tool {
	opts := append(core.RoutePairParams(true), core.VehicleParams()...)
	opts = append(opts,
		mcp.WithArray("avoid",
			mcp.Description("Restriction tags to avoid, e.g. tolls or scenic; trucks always avoid no-trucks routes"),
		),
		mcp.WithBoolean("prioritize_fuel",
			mcp.Description("Checkbox form of priority=fuel; cannot be combined with prioritize_emissions"),
		),
		mcp.WithBoolean("prioritize_emissions",
			mcp.Description("Checkbox form of priority=emissions; cannot be combined with prioritize_fuel"),
		),
	)
	return f.CreateRankingTool("compare_routes",
		"Compare the current route between two cities with its alternatives: rank them under the "+
			"conditions, compute each route's emissions and equivalents, report deltas against the "+
			"current route and the optimization savings of the selected route.",
		opts...)
}

// HandleCompareRoutes implements compare_routes
func (t *Toolset) HandleCompareRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("compare_routes", func(ctx context.Context, input CompareRoutesInput, logger *slog.Logger) (interface{}, error) {
		creq, err := input.compareRequest()
		if err != nil {
			return nil, err
		}

		res, cached, err := t.dash.Compare(creq)
		if err != nil {
			mcpErr := core.FromDomainError(err)
			if mcpErr.Code == string(core.ErrUnknownRoute) {
				mcpErr.WithQuery(pairQuery(creq.Origin, creq.Destination))
			}
			return nil, mcpErr
		}
		tracing.SetAttributes(ctx, tracing.CacheAttributes("compare_results", cached)...)

		logger.Debug("compared routes",
			"origin", res.Origin,
			"destination", res.Destination,
			"routes", len(res.Routes),
			"cached", cached)

		return CompareRoutesOutput{CompareResult: res, Cached: cached}, nil
	})(ctx, req)
}

// compareRequest converts the tool arguments into a dashboard request.
func (in CompareRoutesInput) compareRequest() (dashboard.CompareRequest, error) {
	if in.Origin == "" {
		return dashboard.CompareRequest{}, missingParameter("origin")
	}
	if in.Destination == "" {
		return dashboard.CompareRequest{}, missingParameter("destination")
	}
	traffic, err := requireNumber("traffic_level", in.TrafficLevel)
	if err != nil {
		return dashboard.CompareRequest{}, err
	}
	weather, err := requireNumber("weather_conditions", in.WeatherConditions)
	if err != nil {
		return dashboard.CompareRequest{}, err
	}
	budget, err := requireNumber("time_constraint_min", in.TimeConstraint)
	if err != nil {
		return dashboard.CompareRequest{}, err
	}
	vehicle, err := in.explicitProfile()
	if err != nil {
		return dashboard.CompareRequest{}, err
	}

	return dashboard.CompareRequest{
		Origin:              in.Origin,
		Destination:         in.Destination,
		TrafficLevel:        traffic,
		WeatherConditions:   weather,
		Priority:            in.Priority,
		PrioritizeFuel:      in.PrioritizeFuel,
		PrioritizeEmissions: in.PrioritizeEmissions,
		TimeConstraint:      budget,
		Preset:              in.Preset,
		Vehicle:             vehicle,
		Terrain:             emissions.Terrain(in.Terrain),
		CargoWeight:         in.CargoWeight,
		Avoid:               in.Avoid,
	}, nil
}
