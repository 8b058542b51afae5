package emissions

import (
	"math"
	"strings"
)

// Terrain is the dominant relief along a route.
type Terrain string

const (
	Flat        Terrain = "flat"
	Hilly       Terrain = "hilly"
	Mountainous Terrain = "mountainous"
)

// ParseTerrain resolves a terrain key case-insensitively.
func ParseTerrain(s string) (Terrain, error) {
	t := Terrain(strings.ToLower(strings.TrimSpace(s)))
	if _, err := t.Factor(); err != nil {
		return "", err
	}
	return t, nil
}

// Factor returns the multiplicative terrain factor.
func (t Terrain) Factor() (float64, error) {
	switch t {
	case Flat:
		return 1.0, nil
	case Hilly:
		return 1.15, nil
	case Mountainous:
		return 1.35, nil
	}
	return 0, invalidInput("terrain", string(t), "must be one of flat, hilly, mountainous")
}

// maxEfficiencyReduction caps the emissions reduction from vehicle efficiency.
const maxEfficiencyReduction = 0.3

// Input holds the arguments of ComputeEmissions.
type Input struct {
	// Distance in km, > 0.
	Distance float64
	Profile  VehicleProfile
	// TrafficFactor and WeatherFactor are >= 1, usually route-level factors.
	TrafficFactor float64
	WeatherFactor float64
	Terrain       Terrain
	// CargoWeight in kg. Zero means unknown.
	CargoWeight float64
}

// Breakdown decomposes total CO2e (kg) into its contributions.
//
// Total is the rounded raw sum, so the rounded parts may differ from it by a cent.
type Breakdown struct {
	Total      float64 `json:"total"`
	Base       float64 `json:"base"`
	Traffic    float64 `json:"traffic"`
	Weather    float64 `json:"weather"`
	Terrain    float64 `json:"terrain"`
	PerKm      float64 `json:"per_km"`
	ByDistance float64 `json:"by_distance"`
	// PerPassengerKm is set for cars only.
	PerPassengerKm *float64 `json:"per_passenger_km,omitempty"`
	// PerTonneKm is set for trucks and vans with a known cargo weight.
	PerTonneKm *float64 `json:"per_tonne_km,omitempty"`
}

// ComputeEmissions computes the emissions breakdown for one route.
func ComputeEmissions(in Input) (Breakdown, error) {
	if !(in.Distance > 0) || math.IsInf(in.Distance, 1) {
		return Breakdown{}, invalidInput("distance", in.Distance, "must be greater than 0")
	}
	if err := in.Profile.Validate(); err != nil {
		return Breakdown{}, err
	}
	if !(in.TrafficFactor >= 1) || math.IsInf(in.TrafficFactor, 1) {
		return Breakdown{}, invalidInput("trafficFactor", in.TrafficFactor, "must be a finite value of at least 1")
	}
	if !(in.WeatherFactor >= 1) || math.IsInf(in.WeatherFactor, 1) {
		return Breakdown{}, invalidInput("weatherFactor", in.WeatherFactor, "must be a finite value of at least 1")
	}
	if !(in.CargoWeight >= 0) {
		return Breakdown{}, invalidInput("cargoWeight", in.CargoWeight, "must not be negative")
	}

	baseFactor, err := BaseFactor(in.Profile.Vehicle)
	if err != nil {
		return Breakdown{}, err
	}
	terrainFactor, err := in.Terrain.Factor()
	if err != nil {
		return Breakdown{}, err
	}

	efficiencyFactor := 1 - in.Profile.Efficiency*maxEfficiencyReduction

	base := baseFactor * in.Distance * efficiencyFactor
	traffic := base * (in.TrafficFactor - 1)
	weather := base * (in.WeatherFactor - 1)
	terrain := base * (terrainFactor - 1)
	total := base + traffic + weather + terrain
	perKm := total / in.Distance

	out := Breakdown{
		Base:       Round(base, 2),
		Traffic:    Round(traffic, 2),
		Weather:    Round(weather, 2),
		Terrain:    Round(terrain, 2),
		PerKm:      Round(perKm, 3),
		ByDistance: Round(perKm*100, 2),
	}
	out.Total = Round(total, 2)

	switch in.Profile.Vehicle.(type) {
	case Car:
		passengers := math.Max(1, math.Round(in.Profile.Capacity*in.Profile.Utilization))
		v := Round(perKm/passengers, 3)
		out.PerPassengerKm = &v
	case Truck, Van:
		if in.CargoWeight > 0 {
			v := Round(perKm/(in.CargoWeight/1000), 3)
			out.PerTonneKm = &v
		}
	}

	return out, nil
}
