// Package optimization searches long-only allocations for the best Sharpe ratio.
package optimization

import (
	"math"

	"github.com/aristath/portfolio-sim/internal/modules/dataset"
	"github.com/aristath/portfolio-sim/pkg/formulas"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Sample is one scored weight vector.
type Sample struct {
	Weights []float64 `json:"weights" msgpack:"weights"`
	Return  float64   `json:"return" msgpack:"return"`
	Risk    float64   `json:"risk" msgpack:"risk"`
	Sharpe  float64   `json:"sharpe" msgpack:"sharpe"`
}

// Model holds the daily mean return vector and sample covariance matrix.
type Model struct {
	Mean []float64
	Cov  *mat.SymDense
}

// NewModel estimates the model from a dataset's return table.
// Covariance uses the N-1 denominator.
func NewModel(ds *dataset.Dataset) *Model {
	return &Model{
		Mean: formulas.ColumnMeans(ds.Returns),
		Cov:  formulas.CovarianceMatrix(ds.Returns),
	}
}

// Evaluate scores weights with the model.
func (m *Model) Evaluate(weights []float64) Sample {
	return Evaluate(weights, m.Mean, m.Cov)
}

// Evaluate annualizes the portfolio's expected return and risk:
//
//	return = 252 * w·μ
//	risk   = sqrt(252) * sqrt(wᵀΣw)
//	sharpe = return / risk, or 0 when risk is 0
func Evaluate(weights, mean []float64, cov mat.Symmetric) Sample {
	daily := 0.0
	for i, w := range weights {
		daily += w * mean[i]
	}
	variance := math.Max(formulas.QuadForm(weights, cov), 0)

	ret := formulas.TradingDaysPerYear * daily
	risk := math.Sqrt(formulas.TradingDaysPerYear) * math.Sqrt(variance)

	return Sample{
		Weights: weights,
		Return:  ret,
		Risk:    risk,
		Sharpe:  formulas.SharpeRatio(ret, risk),
	}
}

// EqualWeights returns 1/n for every asset.
func EqualWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

// normalize scales w in place to sum to 1. An all-zero vector becomes equal weight.
func normalize(w []float64) {
	sum := floats.Sum(w)
	if sum <= 0 {
		copy(w, EqualWeights(len(w)))
		return
	}
	floats.Scale(1/sum, w)
}
