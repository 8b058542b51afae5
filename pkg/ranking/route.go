// Package ranking adjusts candidate routes for traffic and weather, filters
// them by a time budget and orders them by a priority metric.
package ranking

import (
	"slices"
	"strings"

	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
	"github.com/NERVsystems/ecoroutemcp/pkg/geo"
)

// RouteRecord is one candidate route between an origin and a destination.
// The ranker never mutates records; it derives new ones.
type RouteRecord struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name,omitempty" yaml:"name"`
	Origin      string `json:"origin" yaml:"origin"`
	Destination string `json:"destination" yaml:"destination"`
	// Distance in km.
	Distance float64 `json:"distance_km" yaml:"distance_km"`
	// Duration in minutes.
	Duration  float64 `json:"duration_min" yaml:"duration_min"`
	Fuel      float64 `json:"fuel" yaml:"fuel"`
	Emissions float64 `json:"emissions" yaml:"emissions"`
	// Path is opaque to ranking.
	Path               []geo.Location `json:"path,omitempty" yaml:"path"`
	TrafficSensitivity float64        `json:"traffic_sensitivity" yaml:"traffic_sensitivity"`
	WeatherSensitivity float64        `json:"weather_sensitivity" yaml:"weather_sensitivity"`
	Restrictions       []string       `json:"restrictions,omitempty" yaml:"restrictions"`
}

// Clone returns a deep copy of the record.
func (r RouteRecord) Clone() RouteRecord {
	r.Path = slices.Clone(r.Path)
	r.Restrictions = slices.Clone(r.Restrictions)
	return r
}

// HasRestriction reports whether the route carries the given tag.
func (r RouteRecord) HasRestriction(tag string) bool {
	for _, t := range r.Restrictions {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Validate checks the record's numeric ranges.
func (r RouteRecord) Validate() error {
	if r.ID == "" {
		return emissions.NewInvalidInputError("id", r.ID, "route id is required")
	}
	if !(r.Distance > 0) {
		return emissions.NewInvalidInputError("distance", r.Distance, "must be greater than 0")
	}
	if !(r.Duration >= 0) {
		return emissions.NewInvalidInputError("duration", r.Duration, "must not be negative")
	}
	if !(r.Fuel >= 0) {
		return emissions.NewInvalidInputError("fuel", r.Fuel, "must not be negative")
	}
	if !(r.Emissions >= 0) {
		return emissions.NewInvalidInputError("emissions", r.Emissions, "must not be negative")
	}
	if !(r.TrafficSensitivity >= emissions.MinSensitivity && r.TrafficSensitivity <= emissions.MaxSensitivity) {
		return emissions.NewInvalidInputError("trafficSensitivity", r.TrafficSensitivity, "must be between 1 and 10")
	}
	if !(r.WeatherSensitivity >= emissions.MinSensitivity && r.WeatherSensitivity <= emissions.MaxSensitivity) {
		return emissions.NewInvalidInputError("weatherSensitivity", r.WeatherSensitivity, "must be between 1 and 10")
	}
	return nil
}

// Conditions are the environmental sliders, both in [0,100].
type Conditions struct {
	TrafficLevel      float64 `json:"traffic_level"`
	WeatherConditions float64 `json:"weather_conditions"`
}

// AdjustedRoute is a candidate with metrics adjusted for conditions.
type AdjustedRoute struct {
	RouteRecord
	// Route-level factors that produced the adjusted metrics.
	Factors emissions.Factors `json:"factors"`
	// Unadjusted catalog values.
	BaseDuration  float64 `json:"base_duration_min"`
	BaseFuel      float64 `json:"base_fuel"`
	BaseEmissions float64 `json:"base_emissions"`
}
