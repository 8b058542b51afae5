package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

const routePlanningInstructions = `You help a driver choose between their current route and suggested alternatives.

1. Call list_cities and list_routes to find the origin/destination pair.
2. Ask for the traffic level and weather severity (0-100), the time budget in minutes and
   whether fuel or emissions matter more than time. Duration is the default priority.
3. Call compare_routes. Routes slower than the budget are dropped; an empty list means
   nothing fits, so suggest a larger budget rather than reporting an error.
4. Report the selected route, its emissions delta against the current route and one or two
   equivalents (tree-days, car-km) to make the numbers concrete.
5. Mention the largest optimization saving for the selected route. Curated combinations are
   fixed estimates; never add individual strategy percentages together.

Trucks never use routes tagged no-trucks. Use list_vehicle_presets for vehicle choices.`

// RoutePlanningPrompt returns the route planning system prompt definition.
func RoutePlanningPrompt() mcp.Prompt {
	return mcp.NewPrompt("route_planning_system",
		mcp.WithPromptDescription("System prompt with instructions for comparing routes by time, fuel and emissions"),
	)
}

// HandleRoutePlanningPrompt returns the route planning instructions.
func HandleRoutePlanningPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return mcp.NewGetPromptResult(
		"Route Planning System Instructions",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(routePlanningInstructions),
			),
		},
	), nil
}
