// Package dashboard drives the "current route vs alternatives" comparison:
// it ranks a catalog pair under the user's conditions, computes emissions
// for every surviving route and reports deltas against the current route.
// Sequencer and Recalculator discard superseded recalculations.
package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/NERVsystems/ecoroutemcp/pkg/cache"
	"github.com/NERVsystems/ecoroutemcp/pkg/catalog"
	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
	"github.com/NERVsystems/ecoroutemcp/pkg/monitoring"
	"github.com/NERVsystems/ecoroutemcp/pkg/ranking"
)

// DefaultPreset is used when a request names neither a preset nor a vehicle.
const DefaultPreset = "family-petrol-car"

// NoTrucksRestriction marks routes closed to trucks.
const NoTrucksRestriction = "no-trucks"

// CompareRequest is one dashboard recalculation.
type CompareRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`

	TrafficLevel      float64          `json:"traffic_level"`
	WeatherConditions float64          `json:"weather_conditions"`
	Priority          ranking.Priority `json:"priority"`
	// PrioritizeFuel and PrioritizeEmissions are the checkbox form of
	// Priority. They are mutually exclusive.
	PrioritizeFuel      bool `json:"prioritize_fuel,omitempty"`
	PrioritizeEmissions bool `json:"prioritize_emissions,omitempty"`
	// TimeConstraint in minutes.
	TimeConstraint float64 `json:"time_constraint_min"`

	// Preset names a catalog vehicle. Vehicle, when set, takes precedence.
	Preset  string                    `json:"vehicle_preset,omitempty"`
	Vehicle *emissions.VehicleProfile `json:"vehicle,omitempty"`
	Terrain emissions.Terrain         `json:"terrain,omitempty"`
	// CargoWeight in kg; nil falls back to the preset's cargo.
	CargoWeight *float64 `json:"cargo_weight_kg,omitempty"`
	// Avoid drops routes carrying any of these restriction tags.
	Avoid []string `json:"avoid,omitempty"`
}

// Delta compares a route against the current route. Positive values mean
// the route is worse than the current one.
type Delta struct {
	Emissions    float64  `json:"emissions_delta"`
	EmissionsPct *float64 `json:"emissions_delta_pct,omitempty"`
	Duration     float64  `json:"duration_delta_min"`
	Fuel         float64  `json:"fuel_delta"`
}

// RouteComparison is one ranked route with its emissions model output.
type RouteComparison struct {
	Route       ranking.AdjustedRoute `json:"route"`
	Current     bool                  `json:"current"`
	Emissions   emissions.Breakdown   `json:"emissions"`
	Equivalents emissions.Equivalents `json:"equivalents"`
	Delta       *Delta                `json:"delta_vs_current,omitempty"`
}

// StrategySaving is one row of the optimization savings table.
type StrategySaving struct {
	Name            string  `json:"name"`
	ReductionFactor float64 `json:"reduction_factor"`
	Curated         bool    `json:"curated"`
	emissions.Saving
}

// CompareResult is the outcome of Compare. Its slices are shared with the
// result cache and must be treated as read-only.
type CompareResult struct {
	Origin        string            `json:"origin"`
	Destination   string            `json:"destination"`
	Priority      ranking.Priority  `json:"priority"`
	GlobalFactors emissions.Factors `json:"global_factors"`
	Vehicle       string            `json:"vehicle"`
	Terrain       emissions.Terrain `json:"terrain"`

	Routes     []RouteComparison `json:"routes"`
	SelectedID *string           `json:"selected_id"`
	CurrentID  string            `json:"current_id"`
	// CurrentFiltered is set when the current route exceeded the time budget
	// or was avoided; no deltas are reported then.
	CurrentFiltered bool `json:"current_filtered"`
	// Savings of the selected route, sorted by name.
	Savings []StrategySaving `json:"savings,omitempty"`

	RequestToken Token `json:"request_token,omitempty"`
}

// Dashboard compares catalog routes. It is safe for concurrent use.
type Dashboard struct {
	catalog *catalog.Catalog
	results *cache.ResultCache[CompareResult]
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithResultCache memoizes Compare results.
func WithResultCache(size int, ttl time.Duration) Option {
	return func(d *Dashboard) {
		d.results = cache.New[CompareResult]("compare_results", size, ttl)
	}
}

// New creates a Dashboard over a catalog.
func New(cat *catalog.Catalog, opts ...Option) *Dashboard {
	d := &Dashboard{catalog: cat}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Catalog returns the catalog the dashboard reads from.
func (d *Dashboard) Catalog() *catalog.Catalog {
	return d.catalog
}

// Compare runs the comparison, serving a cached result when available.
// The boolean reports a cache hit.
func (d *Dashboard) Compare(req CompareRequest) (CompareResult, bool, error) {
	req, err := req.normalize()
	if err != nil {
		return CompareResult{}, false, err
	}
	if d.results == nil {
		res, err := d.compare(req)
		return res, false, err
	}

	key, err := cache.KeyOf(req)
	if err != nil {
		return CompareResult{}, false, err
	}
	return d.results.Do(key, func() (CompareResult, error) {
		return d.compare(req)
	})
}

func (d *Dashboard) compare(req CompareRequest) (res CompareResult, err error) {
	start := time.Now()
	defer func() {
		monitoring.RecordComputation("compare_routes", time.Since(start), err == nil)
	}()

	if _, ok := d.catalog.City(req.Origin); !ok {
		return CompareResult{}, emissions.NewInvalidInputError("origin", req.Origin, "unknown city")
	}
	if _, ok := d.catalog.City(req.Destination); !ok {
		return CompareResult{}, emissions.NewInvalidInputError("destination", req.Destination, "unknown city")
	}
	candidates := d.catalog.Routes(req.Origin, req.Destination)
	if len(candidates) == 0 {
		return CompareResult{}, emissions.NewInvalidInputError("route",
			req.Origin+"->"+req.Destination, "no routes between these cities")
	}
	current := candidates[0]

	profile, cargo, vehicleName, err := d.ResolveVehicle(req.Preset, req.Vehicle, req.CargoWeight)
	if err != nil {
		return CompareResult{}, err
	}
	terrain := emissions.Flat
	if req.Terrain != "" {
		if terrain, err = emissions.ParseTerrain(string(req.Terrain)); err != nil {
			return CompareResult{}, err
		}
	}

	avoid := append([]string(nil), req.Avoid...)
	if profile.Vehicle.Category() == emissions.CategoryTruck {
		avoid = append(avoid, NoTrucksRestriction)
	}
	allowed := candidates[:0]
	for _, c := range candidates {
		if !restricted(c, avoid) {
			allowed = append(allowed, c)
		}
	}

	ranked, err := ranking.RankRoutes(allowed, ranking.Conditions{
		TrafficLevel:      req.TrafficLevel,
		WeatherConditions: req.WeatherConditions,
	}, req.Priority, req.TimeConstraint)
	if err != nil {
		return CompareResult{}, err
	}
	monitoring.RecordRanking(req.Priority.String(), ranked.SelectedID != nil, len(allowed)-len(ranked.Routes))

	global, err := emissions.GlobalFactors(req.TrafficLevel, req.WeatherConditions)
	if err != nil {
		return CompareResult{}, err
	}

	res = CompareResult{
		Origin:          req.Origin,
		Destination:     req.Destination,
		Priority:        req.Priority,
		GlobalFactors:   global,
		Vehicle:         vehicleName,
		Terrain:         terrain,
		Routes:          make([]RouteComparison, 0, len(ranked.Routes)),
		SelectedID:      ranked.SelectedID,
		CurrentID:       current.ID,
		CurrentFiltered: true,
	}

	currentIdx := -1
	for i, r := range ranked.Routes {
		b, err := emissions.ComputeEmissions(emissions.Input{
			Distance:      r.Distance,
			Profile:       profile,
			TrafficFactor: r.Factors.Traffic,
			WeatherFactor: r.Factors.Weather,
			Terrain:       terrain,
			CargoWeight:   cargo,
		})
		if err != nil {
			return CompareResult{}, fmt.Errorf("route %q: %w", r.ID, err)
		}
		eq, err := emissions.ComputeEquivalents(b.Total)
		if err != nil {
			return CompareResult{}, fmt.Errorf("route %q: %w", r.ID, err)
		}
		rc := RouteComparison{Route: r, Emissions: b, Equivalents: eq}
		if r.ID == current.ID {
			rc.Current = true
			res.CurrentFiltered = false
			currentIdx = i
		}
		res.Routes = append(res.Routes, rc)
	}

	if currentIdx >= 0 {
		base := res.Routes[currentIdx]
		for i := range res.Routes {
			if i == currentIdx {
				continue
			}
			res.Routes[i].Delta = delta(res.Routes[i], base)
		}
	}

	if len(res.Routes) > 0 {
		savings, err := d.Savings(res.Routes[0].Emissions.Total)
		if err != nil {
			return CompareResult{}, err
		}
		res.Savings = savings
	}

	return res, nil
}

// normalize folds the checkbox flags into Priority so that equivalent
// requests share a cache key. An explicit fuel or emissions priority must
// agree with the flags.
func (r CompareRequest) normalize() (CompareRequest, error) {
	if !r.PrioritizeFuel && !r.PrioritizeEmissions {
		return r, nil
	}
	p, err := ranking.PriorityFromFlags(r.PrioritizeFuel, r.PrioritizeEmissions)
	if err != nil {
		return r, err
	}
	if r.Priority != ranking.PriorityDuration && r.Priority != p {
		return r, emissions.NewInvalidInputError("priority", r.Priority.String(), "conflicts with the prioritize flags")
	}
	r.Priority = p
	r.PrioritizeFuel, r.PrioritizeEmissions = false, false
	return r, nil
}

// ResolveVehicle picks the explicit vehicle when given, else the named
// preset, else DefaultPreset. cargo overrides the preset's cargo weight.
// It returns the profile, the cargo weight and a display name.
func (d *Dashboard) ResolveVehicle(preset string, vehicle *emissions.VehicleProfile, cargo *float64) (emissions.VehicleProfile, float64, string, error) {
	if vehicle != nil {
		if err := vehicle.Validate(); err != nil {
			return emissions.VehicleProfile{}, 0, "", err
		}
		var weight float64
		if cargo != nil {
			weight = *cargo
		}
		name := fmt.Sprintf("%s/%s", vehicle.Vehicle.Category(), vehicle.Vehicle.Subtype())
		return *vehicle, weight, name, nil
	}

	if preset == "" {
		preset = DefaultPreset
	}
	p, err := d.catalog.VehiclePreset(preset)
	if err != nil {
		return emissions.VehicleProfile{}, 0, "", err
	}
	weight := p.CargoWeight
	if cargo != nil {
		weight = *cargo
	}
	return p.Profile, weight, p.Name, nil
}

// Savings evaluates the catalog strategy table against total.
func (d *Dashboard) Savings(total float64) ([]StrategySaving, error) {
	return SavingsTable(total, d.catalog.StrategyTable(), d.catalog.IsCombination)
}

// SavingsTable evaluates table against total and returns rows sorted by
// name. curated may be nil. Rows with an invalid factor are left out and
// reported in the error; the remaining rows are still returned.
func SavingsTable(total float64, table map[string]float64, curated func(string) bool) ([]StrategySaving, error) {
	computed, err := emissions.ComputeOptimizationSavings(total, table)

	out := make([]StrategySaving, 0, len(computed))
	for name, s := range computed {
		out = append(out, StrategySaving{
			Name:            name,
			ReductionFactor: table[name],
			Curated:         curated != nil && curated(name),
			Saving:          s,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func delta(r, current RouteComparison) *Delta {
	d := &Delta{
		Emissions: emissions.Round(r.Emissions.Total-current.Emissions.Total, 2),
		Duration:  r.Route.Duration - current.Route.Duration,
		Fuel:      r.Route.Fuel - current.Route.Fuel,
	}
	if current.Emissions.Total > 0 {
		pct := emissions.Round((r.Emissions.Total-current.Emissions.Total)/current.Emissions.Total*100, 1)
		d.EmissionsPct = &pct
	}
	return d
}

func restricted(r ranking.RouteRecord, avoid []string) bool {
	for _, tag := range avoid {
		if r.HasRestriction(tag) {
			return true
		}
	}
	return false
}
