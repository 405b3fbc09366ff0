package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// SMASeries returns the simple moving average of values over length periods,
// dropping the warm-up prefix. The first element lines up with values[length-1].
// Returns nil when there are fewer than length values.
func SMASeries(values []float64, length int) []float64 {
	if length <= 0 || len(values) < length {
		return nil
	}

	sma := talib.Sma(values, length)
	out := make([]float64, 0, len(sma)-(length-1))
	for _, v := range sma[length-1:] {
		if math.IsNaN(v) {
			v = 0
		}
		out = append(out, v)
	}
	return out
}
