package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ecoroutemcp/pkg/core"
	"github.com/NERVsystems/ecoroutemcp/pkg/dashboard"
	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
	"github.com/NERVsystems/ecoroutemcp/pkg/monitoring"
)

// ComputeEmissionsInput defines the input parameters for compute_emissions
type ComputeEmissionsInput struct {
	Distance *float64 `json:"distance_km,omitempty"`
	RouteID  string   `json:"route_id,omitempty"`

	// Explicit factors, used when no conditions are given.
	TrafficFactor *float64 `json:"traffic_factor,omitempty"`
	WeatherFactor *float64 `json:"weather_factor,omitempty"`

	// Conditions, scaled by the catalog route's sensitivities when route_id is set.
	TrafficLevel      *float64 `json:"traffic_level,omitempty"`
	WeatherConditions *float64 `json:"weather_conditions,omitempty"`

	VehicleInput
}

// ComputeEmissionsOutput defines the output of compute_emissions
type ComputeEmissionsOutput struct {
	RouteID     string                `json:"route_id,omitempty"`
	Distance    float64               `json:"distance_km"`
	Vehicle     string                `json:"vehicle"`
	Terrain     emissions.Terrain     `json:"terrain"`
	CargoWeight float64               `json:"cargo_weight_kg,omitempty"`
	Factors     emissions.Factors     `json:"factors"`
	Emissions   emissions.Breakdown   `json:"emissions"`
	Equivalents emissions.Equivalents `json:"equivalents"`
}

// ComputeEmissionsTool returns a tool definition for the emissions breakdown
func ComputeEmissionsTool(f *core.ToolFactory) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithNumber("distance_km",
			mcp.Description("Route distance in km; required unless route_id is given"),
		),
		mcp.WithString("route_id",
			mcp.Description("Catalog route ID, as returned by list_routes; supplies distance and sensitivities"),
		),
		mcp.WithNumber("traffic_factor",
			mcp.Description("Traffic factor of at least 1"),
			mcp.DefaultNumber(1),
		),
		mcp.WithNumber("weather_factor",
			mcp.Description("Weather factor of at least 1"),
			mcp.DefaultNumber(1),
		),
		mcp.WithNumber("traffic_level",
			mcp.Description("Traffic level 0-100; replaces traffic_factor and weather_factor"),
		),
		mcp.WithNumber("weather_conditions",
			mcp.Description("Weather severity 0-100; replaces traffic_factor and weather_factor"),
		),
	}
	return f.CreateBasicTool("compute_emissions",
		"Compute the CO2e breakdown (base, traffic, weather, terrain) of one route for a vehicle, "+
			"with per-km, per-100-km and per-passenger or per-tonne figures.",
		append(opts, core.VehicleParams()...)...)
}

// HandleComputeEmissions implements compute_emissions
func (t *Toolset) HandleComputeEmissions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("compute_emissions", func(ctx context.Context, input ComputeEmissionsInput, logger *slog.Logger) (out interface{}, err error) {
		start := time.Now()
		defer func() {
			monitoring.RecordComputation("compute_emissions", time.Since(start), err == nil)
		}()

		distance, factors, err := t.routeInputs(input)
		if err != nil {
			return nil, err
		}
		profile, cargo, name, terrain, err := t.resolve(input.VehicleInput)
		if err != nil {
			return nil, err
		}

		breakdown, err := emissions.ComputeEmissions(emissions.Input{
			Distance:      distance,
			Profile:       profile,
			TrafficFactor: factors.Traffic,
			WeatherFactor: factors.Weather,
			Terrain:       terrain,
			CargoWeight:   cargo,
		})
		if err != nil {
			return nil, err
		}
		equivalents, err := emissions.ComputeEquivalents(breakdown.Total)
		if err != nil {
			return nil, err
		}

		logger.Debug("computed emissions", "vehicle", name, "distance_km", distance, "total", breakdown.Total)

		return ComputeEmissionsOutput{
			RouteID:     input.RouteID,
			Distance:    distance,
			Vehicle:     name,
			Terrain:     terrain,
			CargoWeight: cargo,
			Factors:     factors,
			Emissions:   breakdown,
			Equivalents: equivalents,
		}, nil
	})(ctx, req)
}

// routeInputs resolves the distance and traffic/weather factors.
func (t *Toolset) routeInputs(input ComputeEmissionsInput) (float64, emissions.Factors, error) {
	var (
		distance           float64
		trafficSensitivity = emissions.MaxSensitivity
		weatherSensitivity = emissions.MaxSensitivity
	)
	switch {
	case input.RouteID != "" && input.Distance != nil:
		return 0, emissions.Factors{}, core.NewError(core.ErrInvalidParameter, "distance_km cannot be combined with route_id").
			WithField("distance_km").
			WithGuidance("Give either a catalog route_id or an explicit distance_km.")
	case input.RouteID != "":
		route, ok := t.cat.Route(input.RouteID)
		if !ok {
			return 0, emissions.Factors{}, unknownLocation("route", input.RouteID, "unknown route", "route_id="+input.RouteID)
		}
		distance = route.Distance
		trafficSensitivity, weatherSensitivity = route.TrafficSensitivity, route.WeatherSensitivity
	case input.Distance != nil:
		distance = *input.Distance
	default:
		return 0, emissions.Factors{}, missingParameter("distance_km")
	}

	if input.TrafficLevel == nil && input.WeatherConditions == nil {
		factors := emissions.Factors{Traffic: 1, Weather: 1}
		if input.TrafficFactor != nil {
			factors.Traffic = *input.TrafficFactor
		}
		if input.WeatherFactor != nil {
			factors.Weather = *input.WeatherFactor
		}
		return distance, factors, nil
	}

	traffic, err := requireNumber("traffic_level", input.TrafficLevel)
	if err != nil {
		return 0, emissions.Factors{}, err
	}
	weather, err := requireNumber("weather_conditions", input.WeatherConditions)
	if err != nil {
		return 0, emissions.Factors{}, err
	}
	global, err := emissions.GlobalFactors(traffic, weather)
	if err != nil {
		return 0, emissions.Factors{}, err
	}
	factors, err := emissions.RouteFactors(global, trafficSensitivity, weatherSensitivity)
	if err != nil {
		return 0, emissions.Factors{}, err
	}
	return distance, factors, nil
}

// ComputeEquivalentsInput defines the input parameters for compute_equivalents
type ComputeEquivalentsInput struct {
	Total *float64 `json:"total"`
}

// ComputeEquivalentsTool returns a tool definition for relatable equivalents
func ComputeEquivalentsTool(f *core.ToolFactory) mcp.Tool {
	return f.CreateBasicTool("compute_equivalents",
		"Express an emissions total (kg CO2e) as tree-days, tree-years, car-km, flight-km, "+
			"smartphones, laptops and kg of beef.",
		mcp.WithNumber("total",
			mcp.Required(),
			mcp.Description("Emissions total in kg CO2e"),
		),
	)
}

// HandleComputeEquivalents implements compute_equivalents
func HandleComputeEquivalents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("compute_equivalents", func(ctx context.Context, input ComputeEquivalentsInput, logger *slog.Logger) (interface{}, error) {
		total, err := requireNumber("total", input.Total)
		if err != nil {
			return nil, err
		}
		return emissions.ComputeEquivalents(total)
	})(ctx, req)
}

// ComputeSavingsInput defines the input parameters for compute_optimization_savings
type ComputeSavingsInput struct {
	BaseEmissions *float64                         `json:"base_emissions"`
	Strategies    []emissions.OptimizationStrategy `json:"strategies,omitempty"`
}

// ComputeSavingsOutput defines the output of compute_optimization_savings
type ComputeSavingsOutput struct {
	BaseEmissions float64                    `json:"base_emissions"`
	Savings       []dashboard.StrategySaving `json:"savings"`
	// Rejected lists strategies left out for an invalid reduction factor.
	Rejected []*core.MCPError `json:"rejected,omitempty"`
}

// ComputeSavingsTool returns a tool definition for optimization savings
func ComputeSavingsTool(f *core.ToolFactory) mcp.Tool {
	return f.CreateBasicTool("compute_optimization_savings",
		"Estimate the absolute and percentage savings of each reduction strategy against a baseline. "+
			"Strategies are evaluated independently; without strategies the catalog table is used.",
		mcp.WithNumber("base_emissions",
			mcp.Required(),
			mcp.Description("Baseline emissions in kg CO2e"),
		),
		mcp.WithArray("strategies",
			mcp.Description("Strategies as [{name, reduction_factor}] with reduction_factor between 0 and 1"),
		),
	)
}

// HandleComputeSavings implements compute_optimization_savings
func (t *Toolset) HandleComputeSavings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("compute_optimization_savings", func(ctx context.Context, input ComputeSavingsInput, logger *slog.Logger) (interface{}, error) {
		base, err := requireNumber("base_emissions", input.BaseEmissions)
		if err != nil {
			return nil, err
		}

		var rows []dashboard.StrategySaving
		if len(input.Strategies) == 0 {
			rows, err = t.dash.Savings(base)
		} else {
			table, mapErr := emissions.StrategyMap(input.Strategies)
			if mapErr != nil {
				return nil, mapErr
			}
			rows, err = dashboard.SavingsTable(base, table, nil)
		}
		if err != nil && len(rows) == 0 {
			return nil, err
		}

		out := ComputeSavingsOutput{BaseEmissions: base, Savings: rows}
		if err != nil {
			out.Rejected = rejectedStrategies(err)
			logger.Warn("strategies rejected", "rejected", len(out.Rejected), "kept", len(rows))
		}
		return out, nil
	})(ctx, req)
}
