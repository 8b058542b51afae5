package core

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Valid enum values shared by tool schemas.
var (
	Priorities   = []string{"duration", "fuel", "emissions"}
	Terrains     = []string{"flat", "hilly", "mountainous"}
	Categories   = []string{"car", "truck", "van"}
	VehicleSizes = []string{"small", "medium", "large"}
	CarFuels     = []string{"petrol", "diesel", "hybrid", "electric"}
)

// ToolFactory builds tool definitions with standardized parameters
type ToolFactory struct{}

// NewToolFactory creates a new tool factory
func NewToolFactory() *ToolFactory {
	return &ToolFactory{}
}

// CreateBasicTool creates a new tool with the specified name and description
func (f *ToolFactory) CreateBasicTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)...)
}

// CreateConditionsTool creates a tool taking the traffic and weather sliders
func (f *ToolFactory) CreateConditionsTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	base := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithNumber("traffic_level",
			mcp.Required(),
			mcp.Description("Traffic congestion level from 0 (free flow) to 100 (gridlock)"),
		),
		mcp.WithNumber("weather_conditions",
			mcp.Required(),
			mcp.Description("Weather severity from 0 (clear) to 100 (severe)"),
		),
	}
	return mcp.NewTool(name, append(base, opts...)...)
}

// CreateRankingTool creates a tool that ranks routes under conditions, a
// priority and a time budget
func (f *ToolFactory) CreateRankingTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	base := []mcp.ToolOption{
		mcp.WithString("priority",
			mcp.Description("Ranking metric: "+strings.Join(Priorities, ", ")),
			mcp.Enum(Priorities...),
			mcp.DefaultString("duration"),
		),
		mcp.WithNumber("time_constraint_min",
			mcp.Required(),
			mcp.Description("Maximum adjusted duration in minutes; slower routes are dropped"),
		),
	}
	return f.CreateConditionsTool(name, description, append(base, opts...)...)
}

// RoutePairParams adds origin and destination city IDs.
func RoutePairParams(required bool) []mcp.ToolOption {
	prop := func(desc string) []mcp.PropertyOption {
		out := []mcp.PropertyOption{mcp.Description(desc)}
		if required {
			out = append(out, mcp.Required())
		}
		return out
	}
	return []mcp.ToolOption{
		mcp.WithString("origin", prop("Origin city ID, as returned by list_cities")...),
		mcp.WithString("destination", prop("Destination city ID, as returned by list_cities")...),
	}
}

// VehicleParams adds a preset name or an explicit vehicle profile.
func VehicleParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("vehicle_preset",
			mcp.Description("Vehicle preset name, as returned by list_vehicle_presets"),
		),
		mcp.WithString("category",
			mcp.Description("Vehicle category when no preset is given: "+strings.Join(Categories, ", ")),
			mcp.Enum(Categories...),
		),
		mcp.WithString("subtype",
			mcp.Description(fmt.Sprintf("Car fuel (%s) or truck/van size (%s)",
				strings.Join(CarFuels, ", "), strings.Join(VehicleSizes, ", "))),
		),
		mcp.WithNumber("efficiency",
			mcp.Description("Vehicle efficiency from 0 to 1; 1 lowers emissions by 30%"),
		),
		mcp.WithNumber("capacity",
			mcp.Description("Seats for cars, kg for trucks and vans"),
		),
		mcp.WithNumber("utilization",
			mcp.Description("Share of capacity in use, from 0 to 1"),
		),
		mcp.WithNumber("cargo_weight_kg",
			mcp.Description("Cargo weight in kg for per-tonne-km figures"),
		),
		mcp.WithString("terrain",
			mcp.Description("Dominant terrain: "+strings.Join(Terrains, ", ")),
			mcp.Enum(Terrains...),
			mcp.DefaultString("flat"),
		),
	}
}
