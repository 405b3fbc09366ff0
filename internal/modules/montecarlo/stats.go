package montecarlo

import (
	"math"
	"sort"

	"github.com/aristath/portfolio-sim/pkg/formulas"
)

// Stats summarises the distribution of terminal values.
type Stats struct {
	Expected          float64 `json:"expected" msgpack:"expected"`
	Percentile5       float64 `json:"percentile_5" msgpack:"percentile_5"`
	Percentile95      float64 `json:"percentile_95" msgpack:"percentile_95"`
	Median            float64 `json:"median" msgpack:"median"`
	StdDev            float64 `json:"std_dev" msgpack:"std_dev"`
	Min               float64 `json:"min" msgpack:"min"`
	Max               float64 `json:"max" msgpack:"max"`
	ProbabilityOfLoss float64 `json:"probability_of_loss" msgpack:"probability_of_loss"`
}

// ComputeStats derives summary statistics from terminal values. Percentiles
// use linear interpolation between closest ranks. When every value is equal,
// Expected is that value exactly.
func ComputeStats(values []float64, initial float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	losses := 0
	for _, v := range values {
		if v < initial {
			losses++
		}
	}

	lo, hi := sorted[0], sorted[len(sorted)-1]
	expected, stdDev := formulas.CompensatedMean(values), formulas.StdDev(values)
	if lo == hi {
		expected, stdDev = lo, 0
	}

	return Stats{
		Expected:          expected,
		Percentile5:       formulas.PercentileSorted(sorted, 5),
		Percentile95:      formulas.PercentileSorted(sorted, 95),
		Median:            formulas.PercentileSorted(sorted, 50),
		StdDev:            stdDev,
		Min:               lo,
		Max:               hi,
		ProbabilityOfLoss: float64(losses) / float64(len(values)),
	}
}

// Bin is one histogram bucket covering [Lower, Upper); the last bucket also
// includes Upper.
type Bin struct {
	Lower float64 `json:"lower" msgpack:"lower"`
	Upper float64 `json:"upper" msgpack:"upper"`
	Count int     `json:"count" msgpack:"count"`
}

// Histogram buckets values into equal-width bins between their min and max.
// When every value is equal the range is widened by 0.5 on each side.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		out[i].Count++
	}
	return out
}
