package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
)

// Weights of the route-level factors in the fuel and emissions adjustments.
const (
	fuelTrafficWeight      = 0.7
	fuelWeatherWeight      = 0.3
	emissionsTrafficWeight = 0.6
	emissionsWeatherWeight = 0.4
)

// Result is the outcome of RankRoutes. An empty Routes slice with a nil
// SelectedID means no candidate fits the time budget; that is not an error.
type Result struct {
	Routes     []AdjustedRoute `json:"routes"`
	SelectedID *string         `json:"selected_id"`
}

// Selected returns the selected route, if any.
func (r Result) Selected() (AdjustedRoute, bool) {
	if r.SelectedID == nil || len(r.Routes) == 0 {
		return AdjustedRoute{}, false
	}
	return r.Routes[0], true
}

// Adjust derives a candidate's metrics under the given global factors.
func Adjust(route RouteRecord, global emissions.Factors) (AdjustedRoute, error) {
	if err := route.Validate(); err != nil {
		return AdjustedRoute{}, err
	}

	f, err := emissions.RouteFactors(global, route.TrafficSensitivity, route.WeatherSensitivity)
	if err != nil {
		return AdjustedRoute{}, err
	}

	adjusted := AdjustedRoute{
		RouteRecord:   route.Clone(),
		Factors:       f,
		BaseDuration:  route.Duration,
		BaseFuel:      route.Fuel,
		BaseEmissions: route.Emissions,
	}
	adjusted.Duration = math.Round(route.Duration * f.Traffic * f.Weather)
	adjusted.Fuel = math.Round(route.Fuel * (f.Traffic*fuelTrafficWeight + f.Weather*fuelWeatherWeight))
	adjusted.Emissions = math.Round(route.Emissions * (f.Traffic*emissionsTrafficWeight + f.Weather*emissionsWeatherWeight))

	return adjusted, nil
}

// RankRoutes adjusts every candidate for the conditions, drops candidates
// whose adjusted duration exceeds timeConstraintMinutes and stable-sorts the
// rest ascending by the priority metric. The first survivor is selected.
//
// Candidates must share one origin/destination pair.
func RankRoutes(candidates []RouteRecord, cond Conditions, priority Priority, timeConstraintMinutes float64) (Result, error) {
	if priority < PriorityDuration || priority > PriorityEmissions {
		return Result{}, emissions.NewInvalidInputError("priority", int(priority), "unknown priority")
	}
	if !(timeConstraintMinutes > 0) {
		return Result{}, emissions.NewInvalidInputError("timeConstraintMinutes", timeConstraintMinutes, "must be greater than 0")
	}

	global, err := emissions.GlobalFactors(cond.TrafficLevel, cond.WeatherConditions)
	if err != nil {
		return Result{}, err
	}

	routes := make([]AdjustedRoute, 0, len(candidates))
	for i, c := range candidates {
		if c.Origin != candidates[0].Origin || c.Destination != candidates[0].Destination {
			return Result{}, emissions.NewInvalidInputError("candidates",
				fmt.Sprintf("%s->%s", c.Origin, c.Destination),
				fmt.Sprintf("candidate %d does not share origin/destination %s->%s", i, candidates[0].Origin, candidates[0].Destination))
		}

		adjusted, err := Adjust(c, global)
		if err != nil {
			return Result{}, fmt.Errorf("candidate %q: %w", c.ID, err)
		}
		if adjusted.Duration > timeConstraintMinutes {
			continue
		}
		routes = append(routes, adjusted)
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return priority.metric(routes[i]) < priority.metric(routes[j])
	})

	res := Result{Routes: routes}
	if len(routes) > 0 {
		id := routes[0].ID
		res.SelectedID = &id
	}
	return res, nil
}
