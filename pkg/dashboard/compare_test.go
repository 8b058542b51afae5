package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/ecoroutemcp/pkg/catalog"
	"github.com/NERVsystems/ecoroutemcp/pkg/emissions"
	"github.com/NERVsystems/ecoroutemcp/pkg/ranking"
)

func newDashboard(t *testing.T, opts ...Option) *Dashboard {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return New(cat, opts...)
}

func routeIDs(res CompareResult) []string {
	out := make([]string, len(res.Routes))
	for i, r := range res.Routes {
		out[i] = r.Route.ID
	}
	return out
}

func TestCompareByEmissions(t *testing.T) {
	d := newDashboard(t)

	res, cached, err := d.Compare(CompareRequest{
		Origin:         "nyc",
		Destination:    "bos",
		Priority:       ranking.PriorityEmissions,
		TimeConstraint: 600,
	})
	require.NoError(t, err)
	assert.False(t, cached)

	assert.Equal(t, []string{"nyc-bos-coastal", "nyc-bos-i84", "nyc-bos-i95"}, routeIDs(res))
	require.NotNil(t, res.SelectedID)
	assert.Equal(t, "nyc-bos-coastal", *res.SelectedID)
	assert.Equal(t, "nyc-bos-i95", res.CurrentID)
	assert.False(t, res.CurrentFiltered)
	assert.Equal(t, DefaultPreset, res.Vehicle)
	assert.Equal(t, emissions.Flat, res.Terrain)

	// petrol car at efficiency 0.7: 0.192 * 0.79 kg/km, no condition uplift
	current := res.Routes[2]
	assert.True(t, current.Current)
	assert.Nil(t, current.Delta)
	assert.InDelta(t, 52.48, current.Emissions.Total, 1e-9)

	coastal := res.Routes[0]
	assert.InDelta(t, 56.42, coastal.Emissions.Total, 1e-9)
	require.NotNil(t, coastal.Delta)
	assert.InDelta(t, 3.94, coastal.Delta.Emissions, 1e-9)
	require.NotNil(t, coastal.Delta.EmissionsPct)
	assert.InDelta(t, 7.5, *coastal.Delta.EmissionsPct, 1e-9)
	assert.Equal(t, 70.0, coastal.Delta.Duration)
	assert.Equal(t, -4.0, coastal.Delta.Fuel)

	assert.Equal(t, int64(2565), coastal.Equivalents.TreeDays) // 56.42 / 0.022

	require.Len(t, res.Savings, 9)
	for i := 1; i < len(res.Savings); i++ {
		assert.Less(t, res.Savings[i-1].Name, res.Savings[i].Name)
	}
	for _, s := range res.Savings {
		if s.Name == "All Strategies" {
			assert.True(t, s.Curated)
			assert.InDelta(t, 19.75, s.Absolute, 1e-9)
			assert.InDelta(t, 35.0, s.Percentage, 1e-9)
		}
		if s.Name == "Eco-Driving" {
			assert.False(t, s.Curated)
			assert.InDelta(t, 5.64, s.Absolute, 1e-9)
		}
	}
}

func TestCompareCurrentFiltered(t *testing.T) {
	d := newDashboard(t)

	res, _, err := d.Compare(CompareRequest{
		Origin:         "nyc",
		Destination:    "bos",
		TimeConstraint: 600,
		Avoid:          []string{"tolls"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"nyc-bos-i84", "nyc-bos-coastal"}, routeIDs(res))
	assert.True(t, res.CurrentFiltered)
	for _, r := range res.Routes {
		assert.Nil(t, r.Delta)
		assert.False(t, r.Current)
	}
}

func TestCompareTruckAvoidsRestrictedRoutes(t *testing.T) {
	d := newDashboard(t)

	res, _, err := d.Compare(CompareRequest{
		Origin:         "nyc",
		Destination:    "bos",
		Preset:         "long-haul-truck",
		TimeConstraint: 600,
	})
	require.NoError(t, err)

	assert.NotContains(t, routeIDs(res), "nyc-bos-coastal")
	for _, r := range res.Routes {
		assert.NotNil(t, r.Emissions.PerTonneKm)
		assert.Nil(t, r.Emissions.PerPassengerKm)
	}
}

func TestCompareEmptyResult(t *testing.T) {
	d := newDashboard(t)

	res, _, err := d.Compare(CompareRequest{
		Origin:         "sf",
		Destination:    "la",
		TimeConstraint: 30,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Routes)
	assert.Nil(t, res.SelectedID)
	assert.True(t, res.CurrentFiltered)
	assert.Empty(t, res.Savings)
}

func TestCompareExplicitVehicleAndCargo(t *testing.T) {
	d := newDashboard(t)
	cargo := 500.0

	res, _, err := d.Compare(CompareRequest{
		Origin:      "chi",
		Destination: "det",
		Vehicle: &emissions.VehicleProfile{
			Vehicle:     emissions.Van{Size: emissions.Small},
			Efficiency:  0.5,
			Capacity:    800,
			Utilization: 0.6,
		},
		CargoWeight:    &cargo,
		Terrain:        "Hilly",
		TimeConstraint: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, "van/small", res.Vehicle)
	assert.Equal(t, emissions.Hilly, res.Terrain)
	require.NotEmpty(t, res.Routes)
	for _, r := range res.Routes {
		assert.Greater(t, r.Emissions.Terrain, 0.0)
		require.NotNil(t, r.Emissions.PerTonneKm)
	}
}

func TestCompareInvalidInput(t *testing.T) {
	d := newDashboard(t)

	tests := []struct {
		name string
		req  CompareRequest
	}{
		{"unknown origin", CompareRequest{Origin: "atlantis", Destination: "bos", TimeConstraint: 60}},
		{"unknown destination", CompareRequest{Origin: "nyc", Destination: "atlantis", TimeConstraint: 60}},
		{"no routes for pair", CompareRequest{Origin: "bos", Destination: "nyc", TimeConstraint: 60}},
		{"unknown preset", CompareRequest{Origin: "nyc", Destination: "bos", Preset: "rocket", TimeConstraint: 60}},
		{"unknown terrain", CompareRequest{Origin: "nyc", Destination: "bos", Terrain: "lunar", TimeConstraint: 60}},
		{"traffic out of range", CompareRequest{Origin: "nyc", Destination: "bos", TrafficLevel: 101, TimeConstraint: 60}},
		{"zero time budget", CompareRequest{Origin: "nyc", Destination: "bos"}},
		{"bad explicit vehicle", CompareRequest{Origin: "nyc", Destination: "bos", TimeConstraint: 60,
			Vehicle: &emissions.VehicleProfile{Vehicle: emissions.Car{Fuel: emissions.Petrol}, Efficiency: 2}}},
		{"both priority flags", CompareRequest{Origin: "nyc", Destination: "bos", TimeConstraint: 60,
			PrioritizeFuel: true, PrioritizeEmissions: true}},
		{"flag conflicts with priority", CompareRequest{Origin: "nyc", Destination: "bos", TimeConstraint: 60,
			Priority: ranking.PriorityFuel, PrioritizeEmissions: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := d.Compare(tt.req)
			assert.ErrorIs(t, err, emissions.ErrInvalidInput)
		})
	}
}

func TestCompareResultCache(t *testing.T) {
	d := newDashboard(t, WithResultCache(8, time.Minute))
	req := CompareRequest{
		Origin:            "nyc",
		Destination:       "phl",
		TrafficLevel:      30,
		WeatherConditions: 10,
		Priority:          ranking.PriorityFuel,
		TimeConstraint:    240,
	}

	first, cached, err := d.Compare(req)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := d.Compare(req)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)

	req.TrafficLevel = 31
	_, cached, err = d.Compare(req)
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestComparePriorityFlags(t *testing.T) {
	d := newDashboard(t, WithResultCache(8, time.Minute))

	explicit, cached, err := d.Compare(CompareRequest{
		Origin:         "nyc",
		Destination:    "bos",
		Priority:       ranking.PriorityEmissions,
		TimeConstraint: 600,
	})
	require.NoError(t, err)
	assert.False(t, cached)

	flagged, cached, err := d.Compare(CompareRequest{
		Origin:              "nyc",
		Destination:         "bos",
		PrioritizeEmissions: true,
		TimeConstraint:      600,
	})
	require.NoError(t, err)
	assert.True(t, cached, "checkbox form shares the cache entry of the explicit priority")
	assert.Equal(t, ranking.PriorityEmissions, flagged.Priority)
	assert.Equal(t, routeIDs(explicit), routeIDs(flagged))

	fuel, _, err := d.Compare(CompareRequest{
		Origin:         "nyc",
		Destination:    "bos",
		PrioritizeFuel: true,
		Priority:       ranking.PriorityFuel,
		TimeConstraint: 600,
	})
	require.NoError(t, err)
	assert.Equal(t, ranking.PriorityFuel, fuel.Priority)

	_, _, err = d.Compare(CompareRequest{
		Origin:              "nyc",
		Destination:         "bos",
		PrioritizeFuel:      true,
		PrioritizeEmissions: true,
		TimeConstraint:      600,
	})
	var invalid *emissions.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "priority", invalid.Field)
}

func TestResolveVehicle(t *testing.T) {
	d := newDashboard(t)

	profile, cargo, name, err := d.ResolveVehicle("", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPreset, name)
	assert.Equal(t, emissions.Car{Fuel: emissions.Petrol}, profile.Vehicle)
	assert.Zero(t, cargo)

	_, cargo, name, err = d.ResolveVehicle("Long-Haul-Truck", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "long-haul-truck", name)
	assert.InDelta(t, 21600, cargo, 1e-9)

	override := 5000.0
	_, cargo, _, err = d.ResolveVehicle("long-haul-truck", nil, &override)
	require.NoError(t, err)
	assert.InDelta(t, 5000, cargo, 1e-9)

	explicit := &emissions.VehicleProfile{Vehicle: emissions.Van{Size: emissions.Small}, Efficiency: 0.5, Capacity: 800, Utilization: 0.5}
	profile, _, name, err = d.ResolveVehicle("long-haul-truck", explicit, nil)
	require.NoError(t, err)
	assert.Equal(t, "van/small", name)
	assert.Equal(t, *explicit, profile)

	_, _, _, err = d.ResolveVehicle("tractor", nil, nil)
	var invalid *emissions.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "preset", invalid.Field)
}

func TestSavingsTable(t *testing.T) {
	rows, err := SavingsTable(100, map[string]float64{"B": 0.2, "A": 0.1}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Name)
	assert.InDelta(t, 10, rows[0].Absolute, 1e-9)
	assert.InDelta(t, 20, rows[1].Percentage, 1e-9)
	assert.False(t, rows[1].Curated)

	rows, err = SavingsTable(100, map[string]float64{"A": 1.5}, nil)
	assert.ErrorIs(t, err, emissions.ErrInvalidInput)
	assert.Empty(t, rows)
}

func TestSavingsTableKeepsValidRows(t *testing.T) {
	rows, err := SavingsTable(40, map[string]float64{"A": 0.25, "B": 7, "C": 0.5}, nil)
	assert.ErrorIs(t, err, emissions.ErrInvalidInput)
	assert.Contains(t, err.Error(), "reductionFactor[B]")

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Name)
	assert.InDelta(t, 10, rows[0].Absolute, 1e-9)
	assert.Equal(t, "C", rows[1].Name)
	assert.InDelta(t, 20, rows[1].Absolute, 1e-9)
}
