package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ecoroutemcp/pkg/core"
	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
	"github.com/NERVsystems/ecoroutemcp/pkg/monitoring"
	"github.com/NERVsystems/ecoroutemcp/pkg/ranking"
	"github.com/NERVsystems/ecoroutemcp/pkg/tracing"
)

// RankRoutesInput defines the input parameters for rank_routes
type RankRoutesInput struct {
	Candidates  []ranking.RouteRecord `json:"candidates,omitempty"`
	Origin      string                `json:"origin,omitempty"`
	Destination string                `json:"destination,omitempty"`

	TrafficLevel      *float64         `json:"traffic_level"`
	WeatherConditions *float64         `json:"weather_conditions"`
	Priority          ranking.Priority `json:"priority"`
	TimeConstraint    *float64         `json:"time_constraint_min"`
}

// RankRoutesOutput defines the output of rank_routes. An empty route list
// with a null selected_id means nothing fits the time budget.
type RankRoutesOutput struct {
	Priority      ranking.Priority        `json:"priority"`
	GlobalFactors emissions.Factors       `json:"global_factors"`
	Candidates    int                     `json:"candidates"`
	Routes        []ranking.AdjustedRoute `json:"routes"`
	SelectedID    *string                 `json:"selected_id"`
}

// RankRoutesTool returns a tool definition for ranking candidate routes
func RankRoutesTool(f *core.ToolFactory) mcp.Tool {
	opts := append(core.RoutePairParams(false),
		mcp.WithArray("candidates",
			mcp.Description("Inline route records sharing one origin/destination; replaces the catalog lookup"),
		),
	)
	return f.CreateRankingTool("rank_routes",
		"Adjust candidate routes for traffic and weather, drop those slower than the time budget "+
			"and sort the rest by duration, fuel or emissions. Candidates come from the catalog "+
			"(origin/destination) or inline.",
		opts...)
}

// HandleRankRoutes implements rank_routes
func (t *Toolset) HandleRankRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("rank_routes", func(ctx context.Context, input RankRoutesInput, logger *slog.Logger) (out interface{}, err error) {
		start := time.Now()
		defer func() {
			monitoring.RecordComputation("rank_routes", time.Since(start), err == nil)
		}()

		traffic, err := requireNumber("traffic_level", input.TrafficLevel)
		if err != nil {
			return nil, err
		}
		weather, err := requireNumber("weather_conditions", input.WeatherConditions)
		if err != nil {
			return nil, err
		}
		budget, err := requireNumber("time_constraint_min", input.TimeConstraint)
		if err != nil {
			return nil, err
		}

		candidates, err := t.candidates(input)
		if err != nil {
			return nil, err
		}

		cond := ranking.Conditions{TrafficLevel: traffic, WeatherConditions: weather}
		res, err := ranking.RankRoutes(candidates, cond, input.Priority, budget)
		if err != nil {
			return nil, err
		}
		global, err := emissions.GlobalFactors(traffic, weather)
		if err != nil {
			return nil, err
		}

		selected := ""
		if res.SelectedID != nil {
			selected = *res.SelectedID
		}
		tracing.SetAttributes(ctx, tracing.RankingAttributes(input.Priority.String(), len(candidates), len(res.Routes), selected)...)
		monitoring.RecordRanking(input.Priority.String(), res.SelectedID != nil, len(candidates)-len(res.Routes))

		if res.SelectedID == nil {
			logger.Info("no route fits the time budget", "candidates", len(candidates), "time_constraint_min", budget)
		}

		return RankRoutesOutput{
			Priority:      input.Priority,
			GlobalFactors: global,
			Candidates:    len(candidates),
			Routes:        res.Routes,
			SelectedID:    res.SelectedID,
		}, nil
	})(ctx, req)
}

// candidates returns the inline candidates or the catalog routes of the pair.
func (t *Toolset) candidates(input RankRoutesInput) ([]ranking.RouteRecord, error) {
	if input.Candidates != nil {
		if input.Origin != "" || input.Destination != "" {
			return nil, core.NewError(core.ErrInvalidParameter, "candidates cannot be combined with origin/destination").
				WithField("candidates").
				WithGuidance("Give either inline candidates or a catalog origin and destination.")
		}
		return input.Candidates, nil
	}

	if input.Origin == "" {
		return nil, missingParameter("origin")
	}
	if input.Destination == "" {
		return nil, missingParameter("destination")
	}
	query := pairQuery(input.Origin, input.Destination)
	if _, ok := t.cat.City(input.Origin); !ok {
		return nil, unknownLocation("origin", input.Origin, "unknown city", query)
	}
	if _, ok := t.cat.City(input.Destination); !ok {
		return nil, unknownLocation("destination", input.Destination, "unknown city", query)
	}

	routes := t.cat.Routes(input.Origin, input.Destination)
	if len(routes) == 0 {
		return nil, unknownLocation("route", query, "no routes between these cities", query)
	}
	return routes, nil
}
