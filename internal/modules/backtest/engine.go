// Package backtest replays a fixed allocation over historical returns.
package backtest

import (
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/aristath/portfolio-sim/internal/modules/dataset"
	"github.com/rs/zerolog"
)

// Result is the portfolio value on each date of the return index.
type Result struct {
	Dates           []time.Time `json:"dates" msgpack:"dates"`
	Values          []float64   `json:"values" msgpack:"values"`
	Weights         []float64   `json:"weights" msgpack:"weights"`
	TotalInvestment float64     `json:"total_investment" msgpack:"total_investment"`
}

// Engine runs buy-and-hold backtests.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a backtest engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("component", "backtest").Logger(),
	}
}

// Weights converts investment amounts into portfolio weights ordered by
// tickers. Tickers absent from investments count as 0. When the total is
// zero every asset gets 1/N.
func Weights(tickers []string, investments domain.Investments) []float64 {
	amounts := investments.For(tickers)
	weights := make([]float64, len(tickers))

	total := 0.0
	for _, a := range amounts {
		total += a
	}
	if total <= 0 {
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
		return weights
	}

	for i, a := range amounts {
		weights[i] = a / total
	}
	return weights
}

// Run holds the allocation from the first return date without rebalancing:
//
//	value[t] = total * Σ w[a] * Π_{s<=t} (1 + r[a][s])
//
// An empty return table yields an empty result.
func (e *Engine) Run(ds *dataset.Dataset, investments domain.Investments) Result {
	n := ds.NumAssets()
	weights := Weights(ds.Tickers, investments)
	total := 0.0
	for _, a := range investments.For(ds.Tickers) {
		total += a
	}

	result := Result{
		Dates:           append([]time.Time(nil), ds.ReturnDates...),
		Values:          make([]float64, ds.Len()),
		Weights:         weights,
		TotalInvestment: total,
	}

	growth := make([]float64, n)
	for a := range growth {
		growth[a] = 1
	}
	for t, row := range ds.Returns {
		value := 0.0
		for a, r := range row {
			growth[a] *= 1 + r
			value += weights[a] * growth[a]
		}
		result.Values[t] = total * value
	}

	e.log.Debug().
		Int("assets", n).
		Int("dates", ds.Len()).
		Float64("total_investment", total).
		Msg("Backtest complete")

	return result
}
