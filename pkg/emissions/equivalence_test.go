package emissions

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEquivalents(t *testing.T) {
	out, err := ComputeEquivalents(22)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), out.TreeDays)
	assert.InDelta(t, 2.75, out.TreeYears, 1e-9)
	assert.Equal(t, int64(115), out.CarKm)
	assert.Equal(t, int64(191), out.FlightKm)
	assert.InDelta(t, 0.07, out.Laptops, 1e-9)
	assert.InDelta(t, 0.4, out.BeefKg, 1e-9)
}

func TestComputeEquivalentsLargeTotal(t *testing.T) {
	out, err := ComputeEquivalents(960)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), out.CarKm)
	assert.InDelta(t, 12.0, out.Smartphones, 1e-9)
	assert.InDelta(t, 3.2, out.Laptops, 1e-9)
	assert.InDelta(t, 16.0, out.BeefKg, 1e-9)
	assert.InDelta(t, 120.0, out.TreeYears, 1e-9)
}

func TestComputeEquivalentsZero(t *testing.T) {
	out, err := ComputeEquivalents(0)
	require.NoError(t, err)
	assert.Equal(t, Equivalents{}, out)
}

func TestComputeEquivalentsNegative(t *testing.T) {
	_, err := ComputeEquivalents(-0.01)

	var inputErr *InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "total", inputErr.Field)
}

func TestComputeEquivalentsNonFinite(t *testing.T) {
	for _, total := range []float64{math.Inf(1), math.NaN()} {
		_, err := ComputeEquivalents(total)

		var inputErr *InvalidInputError
		require.ErrorAs(t, err, &inputErr, "total=%v", total)
		assert.Equal(t, "total", inputErr.Field)
	}
}
