package tools

import (
	"github.com/NERVsystems/ecoroutemcp/pkg/catalog"
	"github.com/NERVsystems/ecoroutemcp/pkg/core"
	"github.com/NERVsystems/ecoroutemcp/pkg/dashboard"
	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
)

// Toolset binds the catalog-backed tool handlers to a dashboard.
type Toolset struct {
	dash *dashboard.Dashboard
	cat  *catalog.Catalog
}

// NewToolset creates a Toolset over d and its catalog.
func NewToolset(d *dashboard.Dashboard) *Toolset {
	return &Toolset{dash: d, cat: d.Catalog()}
}

// VehicleInput selects a vehicle by preset or by explicit profile.
type VehicleInput struct {
	Preset      string   `json:"vehicle_preset,omitempty"`
	Category    string   `json:"category,omitempty"`
	Subtype     string   `json:"subtype,omitempty"`
	Efficiency  *float64 `json:"efficiency,omitempty"`
	Capacity    *float64 `json:"capacity,omitempty"`
	Utilization *float64 `json:"utilization,omitempty"`
	CargoWeight *float64 `json:"cargo_weight_kg,omitempty"`
	Terrain     string   `json:"terrain,omitempty"`
}

// explicitProfile returns the profile described by category/subtype, or nil
// when the input names no category.
func (v VehicleInput) explicitProfile() (*emissions.VehicleProfile, error) {
	if v.Category == "" {
		if v.Subtype != "" {
			return nil, core.NewError(core.ErrMissingParameter, "subtype given without category").
				WithField("category").
				WithGuidance("Give category together with subtype, or use vehicle_preset.")
		}
		return nil, nil
	}

	vehicle, err := emissions.ParseVehicle(v.Category, v.Subtype)
	if err != nil {
		return nil, err
	}
	efficiency, err := requireNumber("efficiency", v.Efficiency)
	if err != nil {
		return nil, err
	}
	utilization, err := requireNumber("utilization", v.Utilization)
	if err != nil {
		return nil, err
	}
	var capacity float64
	if v.Capacity != nil {
		capacity = *v.Capacity
	}

	return &emissions.VehicleProfile{
		Vehicle:     vehicle,
		Efficiency:  efficiency,
		Capacity:    capacity,
		Utilization: utilization,
	}, nil
}

// resolve returns the vehicle profile, cargo weight, display name and terrain.
func (t *Toolset) resolve(v VehicleInput) (emissions.VehicleProfile, float64, string, emissions.Terrain, error) {
	terrain := emissions.Flat
	if v.Terrain != "" {
		var err error
		if terrain, err = emissions.ParseTerrain(v.Terrain); err != nil {
			return emissions.VehicleProfile{}, 0, "", "", err
		}
	}

	explicit, err := v.explicitProfile()
	if err != nil {
		return emissions.VehicleProfile{}, 0, "", "", err
	}
	profile, cargo, name, err := t.dash.ResolveVehicle(v.Preset, explicit, v.CargoWeight)
	if err != nil {
		return emissions.VehicleProfile{}, 0, "", "", err
	}
	return profile, cargo, name, terrain, nil
}
