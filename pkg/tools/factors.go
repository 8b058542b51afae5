package tools

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ecoroutemcp/pkg/core"
	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
)

// GlobalFactorsInput defines the input parameters for global_factors
type GlobalFactorsInput struct {
	TrafficLevel      *float64 `json:"traffic_level"`
	WeatherConditions *float64 `json:"weather_conditions"`
}

// GlobalFactorsTool returns a tool definition for converting sliders into factors
func GlobalFactorsTool(f *core.ToolFactory) mcp.Tool {
	return f.CreateConditionsTool("global_factors",
		"Convert traffic and weather levels (0-100) into multiplicative impact factors. "+
			"The traffic factor ranges from 1.0 to 1.5 and the weather factor from 1.0 to 1.3.")
}

// HandleGlobalFactors implements global_factors
func HandleGlobalFactors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("global_factors", func(ctx context.Context, input GlobalFactorsInput, logger *slog.Logger) (interface{}, error) {
		traffic, err := requireNumber("traffic_level", input.TrafficLevel)
		if err != nil {
			return nil, err
		}
		weather, err := requireNumber("weather_conditions", input.WeatherConditions)
		if err != nil {
			return nil, err
		}
		return emissions.GlobalFactors(traffic, weather)
	})(ctx, req)
}

// RouteFactorInput defines the input parameters for route_factor
type RouteFactorInput struct {
	GlobalFactor *float64 `json:"global_factor"`
	Sensitivity  *float64 `json:"sensitivity"`
}

// RouteFactorOutput defines the output of route_factor
type RouteFactorOutput struct {
	GlobalFactor float64 `json:"global_factor"`
	Sensitivity  float64 `json:"sensitivity"`
	RouteFactor  float64 `json:"route_factor"`
}

// RouteFactorTool returns a tool definition for per-route factor attenuation
func RouteFactorTool(f *core.ToolFactory) mcp.Tool {
	return f.CreateBasicTool("route_factor",
		"Scale a global traffic or weather factor by a route's sensitivity (1-10). "+
			"Sensitivity 10 passes the global factor through unchanged.",
		mcp.WithNumber("global_factor",
			mcp.Required(),
			mcp.Description("Global factor of at least 1, as returned by global_factors"),
		),
		mcp.WithNumber("sensitivity",
			mcp.Required(),
			mcp.Description("Route sensitivity from 1 (barely affected) to 10 (fully affected)"),
		),
	)
}

// HandleRouteFactor implements route_factor
func HandleRouteFactor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("route_factor", func(ctx context.Context, input RouteFactorInput, logger *slog.Logger) (interface{}, error) {
		global, err := requireNumber("global_factor", input.GlobalFactor)
		if err != nil {
			return nil, err
		}
		sensitivity, err := requireNumber("sensitivity", input.Sensitivity)
		if err != nil {
			return nil, err
		}

		factor, err := emissions.RouteFactor(global, sensitivity)
		if err != nil {
			return nil, err
		}
		return RouteFactorOutput{
			GlobalFactor: global,
			Sensitivity:  sensitivity,
			RouteFactor:  factor,
		}, nil
	})(ctx, req)
}
