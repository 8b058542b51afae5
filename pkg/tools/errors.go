package tools

import (
	"errors"

	"github.com/NERVsystems/ecoroutemcp/pkg/core"
	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
)

// missingParameter reports an absent required argument.
func missingParameter(field string) *core.MCPError {
	return core.NewError(core.ErrMissingParameter, "Missing required parameter: "+field).
		WithField(field).
		WithGuidance("Provide " + field + " and try again.")
}

// unknownLocation reports a catalog miss for field, carrying the lookup that
// failed as the error query.
func unknownLocation(field, value, reason, query string) *core.MCPError {
	return core.FromDomainError(emissions.NewInvalidInputError(field, value, reason)).WithQuery(query)
}

// pairQuery formats an origin/destination lookup.
func pairQuery(origin, destination string) string {
	return origin + "->" + destination
}

// rejectedStrategies splits a joined savings error into one tool error per
// strategy.
func rejectedStrategies(err error) []*core.MCPError {
	errs := []error{err}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		errs = joined.Unwrap()
	}
	out := make([]*core.MCPError, 0, len(errs))
	for _, e := range errs {
		out = append(out, core.FromDomainError(e))
	}
	return out
}

// requireNumber dereferences a required numeric argument.
func requireNumber(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, missingParameter(field)
	}
	return *v, nil
}

// GetToolUsageExample returns an example JSON snippet for using a specific tool
// This is helpful for providing guidance when parameter validation fails
func GetToolUsageExample(toolName string) string {
	examples := map[string]string{
		"global_factors": `{
  "traffic_level": 60,
  "weather_conditions": 25
}`,
		"route_factor": `{
  "global_factor": 1.3,
  "sensitivity": 7
}`,
		"compute_emissions": `{
  "distance_km": 346,
  "vehicle_preset": "family-petrol-car",
  "traffic_factor": 1.27,
  "weather_factor": 1.04,
  "terrain": "hilly"
}`,
		"compute_equivalents": `{
  "total": 52.48
}`,
		"compute_optimization_savings": `{
  "base_emissions": 52.48,
  "strategies": [
    {"name": "Eco-Driving", "reduction_factor": 0.1}
  ]
}`,
		"rank_routes": `{
  "origin": "nyc",
  "destination": "bos",
  "traffic_level": 60,
  "weather_conditions": 25,
  "priority": "emissions",
  "time_constraint_min": 420
}`,
		"list_routes": `{
  "origin": "sf",
  "destination": "la"
}`,
		"compare_routes": `{
  "origin": "nyc",
  "destination": "bos",
  "traffic_level": 60,
  "weather_conditions": 25,
  "priority": "emissions",
  "time_constraint_min": 420,
  "vehicle_preset": "delivery-van-medium",
  "avoid": ["tolls"]
}`,
	}

	return examples[toolName]
}
