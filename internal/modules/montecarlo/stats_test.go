package montecarlo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats(t *testing.T) {
	s := ComputeStats([]float64{50, 15, 40, 20, 35}, 30)

	assert.InDelta(t, 32.0, s.Expected, 1e-12)
	assert.InDelta(t, 16.0, s.Percentile5, 1e-12)
	assert.InDelta(t, 48.0, s.Percentile95, 1e-12)
	assert.InDelta(t, 35.0, s.Median, 1e-12)
	assert.Equal(t, 15.0, s.Min)
	assert.Equal(t, 50.0, s.Max)
	assert.InDelta(t, 0.4, s.ProbabilityOfLoss, 1e-12)
}

func TestComputeStats_ConstantValuesAreExact(t *testing.T) {
	const initial = 4111.1000000000004
	for _, n := range []int{1, 7, 1000, 5000} {
		values := make([]float64, n)
		for i := range values {
			values[i] = initial
		}

		s := ComputeStats(values, initial)

		assert.Equal(t, initial, s.Expected, "n=%d", n)
		assert.Equal(t, initial, s.Percentile5, "n=%d", n)
		assert.Equal(t, initial, s.Percentile95, "n=%d", n)
		assert.Equal(t, initial, s.Median, "n=%d", n)
		assert.Equal(t, 0.0, s.StdDev, "n=%d", n)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil, 100))
}

func TestHistogram(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	bins := Histogram(values, 5)

	require.Len(t, bins, 5)
	total := 0
	for _, b := range bins {
		assert.Equal(t, 2, b.Count)
		total += b.Count
	}
	assert.Equal(t, len(values), total)
	assert.Equal(t, 0.0, bins[0].Lower)
	assert.Equal(t, 9.0, bins[4].Upper)
}

func TestHistogram_ConstantValues(t *testing.T) {
	bins := Histogram([]float64{5, 5, 5}, 2)

	require.Len(t, bins, 2)
	assert.Equal(t, 4.5, bins[0].Lower)
	assert.Equal(t, 5.5, bins[1].Upper)
	assert.Equal(t, 0, bins[0].Count)
	assert.Equal(t, 3, bins[1].Count)
}

func TestHistogram_Degenerate(t *testing.T) {
	assert.Nil(t, Histogram(nil, 10))
	assert.Nil(t, Histogram([]float64{1}, 0))
}
