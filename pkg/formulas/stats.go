// Package formulas holds the statistical building blocks shared by the engines.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualisation constant for daily data.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// CompensatedMean is the arithmetic mean using Neumaier summation, so long
// runs of near-equal values do not accumulate rounding drift.
func CompensatedMean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum, c := 0.0, 0.0
	for _, v := range data {
		t := sum + v
		if math.Abs(sum) >= math.Abs(v) {
			c += (sum - t) + v
		} else {
			c += (v - t) + sum
		}
		sum = t
	}
	return (sum + c) / float64(len(data))
}

// StdDev calculates the sample standard deviation (N-1) of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance (N-1) of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: Std Dev of Daily Returns × sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// CalculateReturns converts prices to simple returns
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// ColumnMeans returns the mean of every column of a row-major table.
func ColumnMeans(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	cols := len(rows[0])
	means := make([]float64, cols)
	for _, row := range rows {
		for j := 0; j < cols; j++ {
			means[j] += row[j]
		}
	}
	for j := range means {
		means[j] /= float64(len(rows))
	}
	return means
}

// CovarianceMatrix returns the sample covariance (N-1 denominator) between the
// columns of a row-major table. With fewer than two rows every entry is zero.
func CovarianceMatrix(rows [][]float64) *mat.SymDense {
	if len(rows) == 0 {
		return nil
	}
	cols := len(rows[0])
	if len(rows) < 2 {
		return mat.NewSymDense(cols, nil)
	}

	data := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		data.SetRow(i, row)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	return &cov
}

// QuadForm computes wᵀ·Σ·w.
func QuadForm(w []float64, cov mat.Symmetric) float64 {
	v := mat.NewVecDense(len(w), w)
	return mat.Inner(v, cov, v)
}

// CalculateAnnualReturn calculates annualized return from daily returns
//
// Formula: ((1+r1)*(1+r2)*...*(1+rN))^(252/N) - 1
//
// For fewer than three periods the plain cumulative return is returned
// to avoid extreme annualization.
func CalculateAnnualReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	cumulative := 1.0
	for _, r := range returns {
		cumulative *= (1 + r)
	}

	numPeriods := float64(len(returns))
	if numPeriods < 3 {
		return cumulative - 1
	}
	if cumulative <= 0 {
		return -1
	}

	years := numPeriods / TradingDaysPerYear
	return math.Pow(cumulative, 1.0/years) - 1
}
