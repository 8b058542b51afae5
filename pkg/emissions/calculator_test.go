package emissions

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func petrolCar() VehicleProfile {
	return VehicleProfile{Vehicle: Car{Fuel: Petrol}, Efficiency: 0.7, Capacity: 5, Utilization: 0.4}
}

func TestComputeEmissionsNeutralConditions(t *testing.T) {
	out, err := ComputeEmissions(Input{
		Distance:      78,
		Profile:       petrolCar(),
		TrafficFactor: 1,
		WeatherFactor: 1,
		Terrain:       Flat,
	})
	require.NoError(t, err)

	// 0.192 * 78 * (1 - 0.7*0.3)
	assert.InDelta(t, 11.83, out.Base, 1e-9)
	assert.Zero(t, out.Traffic)
	assert.Zero(t, out.Weather)
	assert.Zero(t, out.Terrain)
	assert.InDelta(t, 11.83, out.Total, 1e-9)
	assert.InDelta(t, 0.152, out.PerKm, 1e-9)
	assert.InDelta(t, 15.17, out.ByDistance, 1e-9)

	require.NotNil(t, out.PerPassengerKm)
	// two passengers: round(5 * 0.4)
	assert.InDelta(t, 0.076, *out.PerPassengerKm, 1e-9)
	assert.Nil(t, out.PerTonneKm)
}

func TestComputeEmissionsEnvironmentalContributions(t *testing.T) {
	out, err := ComputeEmissions(Input{
		Distance:      100,
		Profile:       VehicleProfile{Vehicle: Car{Fuel: Diesel}, Capacity: 4, Utilization: 1},
		TrafficFactor: 1.5,
		WeatherFactor: 1.3,
		Terrain:       Flat,
	})
	require.NoError(t, err)

	assert.InDelta(t, 17.1, out.Base, 1e-9)
	assert.InDelta(t, 8.55, out.Traffic, 1e-9)
	assert.InDelta(t, 5.13, out.Weather, 1e-9)
	assert.Zero(t, out.Terrain)
	assert.InDelta(t, 30.78, out.Total, 1e-9)
	assert.InDelta(t, 0.308, out.PerKm, 1e-9)
	assert.InDelta(t, 30.78, out.ByDistance, 1e-9)
}

func TestComputeEmissionsTerrainFactors(t *testing.T) {
	profile := VehicleProfile{Vehicle: Truck{Size: Medium}, Capacity: 8000, Utilization: 0.5}

	flat, err := ComputeEmissions(Input{Distance: 200, Profile: profile, TrafficFactor: 1, WeatherFactor: 1, Terrain: Flat})
	require.NoError(t, err)
	hilly, err := ComputeEmissions(Input{Distance: 200, Profile: profile, TrafficFactor: 1, WeatherFactor: 1, Terrain: Hilly})
	require.NoError(t, err)
	mountain, err := ComputeEmissions(Input{Distance: 200, Profile: profile, TrafficFactor: 1, WeatherFactor: 1, Terrain: Mountainous})
	require.NoError(t, err)

	assert.Equal(t, flat.Base, hilly.Base)
	assert.InDelta(t, flat.Base*0.15, hilly.Terrain, 0.01)
	assert.InDelta(t, flat.Base*0.35, mountain.Terrain, 0.01)
	assert.Greater(t, mountain.Total, hilly.Total)
	assert.Greater(t, hilly.Total, flat.Total)
}

func TestComputeEmissionsDecompositionInvariant(t *testing.T) {
	vehicles := []Vehicle{
		Car{Fuel: Petrol}, Car{Fuel: Hybrid}, Car{Fuel: Electric},
		Truck{Size: Small}, Truck{Size: Large}, Van{Size: Medium},
	}
	terrains := []Terrain{Flat, Hilly, Mountainous}
	distances := []float64{0.4, 3.3, 78, 123.45, 999.9}
	factors := []float64{1, 1.05, 1.137, 1.3, 1.5}

	for _, v := range vehicles {
		for _, terrain := range terrains {
			for _, d := range distances {
				for _, f := range factors {
					out, err := ComputeEmissions(Input{
						Distance:      d,
						Profile:       VehicleProfile{Vehicle: v, Efficiency: 0.33, Capacity: 3, Utilization: 0.5},
						TrafficFactor: f,
						WeatherFactor: 2.5 - f,
						Terrain:       terrain,
						CargoWeight:   750,
					})
					require.NoError(t, err)

					sum := out.Base + out.Traffic + out.Weather + out.Terrain
					assert.InDelta(t, out.Total, sum, 0.01+1e-9, "vehicle=%v terrain=%s distance=%v factor=%v", v, terrain, d, f)
				}
			}
		}
	}
}

func TestComputeEmissionsTotalRoundsRawSum(t *testing.T) {
	profile := VehicleProfile{Vehicle: Car{Fuel: Diesel}, Capacity: 5, Utilization: 0.4}

	tests := []struct {
		distance float64
		parts    [4]float64
		total    float64
	}{
		{10, [4]float64{1.71, 0.26, 0.26, 0.26}, 2.48},
		{1, [4]float64{0.17, 0.03, 0.03, 0.03}, 0.25},
	}

	for _, tt := range tests {
		out, err := ComputeEmissions(Input{
			Distance:      tt.distance,
			Profile:       profile,
			TrafficFactor: 1.15,
			WeatherFactor: 1.15,
			Terrain:       Hilly,
		})
		require.NoError(t, err)

		assert.Equal(t, tt.parts, [4]float64{out.Base, out.Traffic, out.Weather, out.Terrain}, "distance=%v", tt.distance)
		assert.Equal(t, tt.total, out.Total, "distance=%v", tt.distance)
	}
}

func TestComputeEmissionsPerTonneKm(t *testing.T) {
	truck := VehicleProfile{Vehicle: Truck{Size: Medium}, Capacity: 10000, Utilization: 0.3}

	without, err := ComputeEmissions(Input{Distance: 100, Profile: truck, TrafficFactor: 1, WeatherFactor: 1, Terrain: Flat})
	require.NoError(t, err)
	assert.Nil(t, without.PerTonneKm, "per tonne-km must be absent when cargo weight is unknown")
	assert.Nil(t, without.PerPassengerKm)

	with, err := ComputeEmissions(Input{Distance: 100, Profile: truck, TrafficFactor: 1, WeatherFactor: 1, Terrain: Flat, CargoWeight: 1000})
	require.NoError(t, err)
	require.NotNil(t, with.PerTonneKm)
	assert.InDelta(t, 0.583, *with.PerTonneKm, 1e-9)

	van := VehicleProfile{Vehicle: Van{Size: Small}, Capacity: 800, Utilization: 1}
	vanOut, err := ComputeEmissions(Input{Distance: 10, Profile: van, TrafficFactor: 1, WeatherFactor: 1, Terrain: Flat})
	require.NoError(t, err)
	assert.Nil(t, vanOut.PerTonneKm)
}

func TestComputeEmissionsPassengerFloor(t *testing.T) {
	empty := VehicleProfile{Vehicle: Car{Fuel: Electric}, Capacity: 5, Utilization: 0}

	out, err := ComputeEmissions(Input{Distance: 50, Profile: empty, TrafficFactor: 1, WeatherFactor: 1, Terrain: Flat})
	require.NoError(t, err)
	require.NotNil(t, out.PerPassengerKm)
	assert.Equal(t, out.PerKm, *out.PerPassengerKm)
}

func TestComputeEmissionsDeterministic(t *testing.T) {
	in := Input{
		Distance:      142.7,
		Profile:       VehicleProfile{Vehicle: Van{Size: Large}, Efficiency: 0.45, Capacity: 1500, Utilization: 0.7},
		TrafficFactor: 1.31,
		WeatherFactor: 1.12,
		Terrain:       Hilly,
		CargoWeight:   900,
	}

	first, err := ComputeEmissions(in)
	require.NoError(t, err)
	second, err := ComputeEmissions(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeEmissionsInvalidInput(t *testing.T) {
	valid := Input{Distance: 10, Profile: petrolCar(), TrafficFactor: 1, WeatherFactor: 1, Terrain: Flat}

	tests := []struct {
		name   string
		mutate func(in *Input)
		field  string
	}{
		{"zero distance", func(in *Input) { in.Distance = 0 }, "distance"},
		{"negative distance", func(in *Input) { in.Distance = -3 }, "distance"},
		{"NaN distance", func(in *Input) { in.Distance = math.NaN() }, "distance"},
		{"traffic factor below one", func(in *Input) { in.TrafficFactor = 0.95 }, "trafficFactor"},
		{"weather factor below one", func(in *Input) { in.WeatherFactor = 0 }, "weatherFactor"},
		{"infinite traffic factor", func(in *Input) { in.TrafficFactor = math.Inf(1) }, "trafficFactor"},
		{"infinite weather factor", func(in *Input) { in.WeatherFactor = math.Inf(1) }, "weatherFactor"},
		{"NaN weather factor", func(in *Input) { in.WeatherFactor = math.NaN() }, "weatherFactor"},
		{"unknown terrain", func(in *Input) { in.Terrain = "swamp" }, "terrain"},
		{"negative cargo", func(in *Input) { in.CargoWeight = -10 }, "cargoWeight"},
		{"unknown car subtype", func(in *Input) { in.Profile.Vehicle = Car{Fuel: "lpg"} }, "subtype"},
		{"efficiency out of range", func(in *Input) { in.Profile.Efficiency = 2 }, "efficiency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			_, err := ComputeEmissions(in)
			var inputErr *InvalidInputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestParseTerrain(t *testing.T) {
	terrain, err := ParseTerrain("Mountainous")
	require.NoError(t, err)
	assert.Equal(t, Mountainous, terrain)

	_, err = ParseTerrain("")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
