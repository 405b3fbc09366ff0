// Package montecarlo bootstraps future portfolio values from historical returns.
package montecarlo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/aristath/portfolio-sim/internal/modules/dataset"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// batchSize is the number of trials sharing one random stream. Fixed so that
// results depend only on the seed, never on the worker count.
const batchSize = 256

// Params controls a simulation run.
type Params struct {
	Simulations int    `json:"simulations" msgpack:"simulations"`
	Days        int    `json:"days" msgpack:"days"`
	Seed        uint64 `json:"seed" msgpack:"seed"`
	Workers     int    `json:"-" msgpack:"-"`
}

// Validate checks the trial count and horizon.
func (p Params) Validate() error {
	if p.Simulations < 1 {
		return domain.NewValidationError("simulations", "must be at least 1, got %d", p.Simulations)
	}
	if p.Days < 0 {
		return domain.NewValidationError("days", "must not be negative, got %d", p.Days)
	}
	return nil
}

// Result holds every trial's terminal value in trial order.
type Result struct {
	Values       []float64 `json:"values" msgpack:"values"`
	Stats        Stats     `json:"stats" msgpack:"stats"`
	InitialValue float64   `json:"initial_value" msgpack:"initial_value"`
	Params       Params    `json:"params" msgpack:"params"`
}

// Engine runs Monte Carlo simulations.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a Monte Carlo engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("component", "montecarlo").Logger(),
	}
}

// Shares converts investments into share counts at the latest prices.
// A zero price or zero investment gives zero shares.
func Shares(ds *dataset.Dataset, investments domain.Investments) []float64 {
	amounts := investments.For(ds.Tickers)
	shares := make([]float64, len(amounts))
	for a, amount := range amounts {
		if ds.Latest[a] > 0 && amount > 0 {
			shares[a] = amount / ds.Latest[a]
		}
	}
	return shares
}

// Run simulates params.Simulations independent paths of params.Days trading
// days. Each day applies one whole historical return row, sampled uniformly
// with replacement, so cross-asset correlation is preserved.
func (e *Engine) Run(ctx context.Context, ds *dataset.Dataset, investments domain.Investments, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Days > 0 && ds.Len() == 0 {
		return nil, &domain.DataUnavailableError{
			Tickers: ds.Tickers,
			Reason:  "no historical returns to sample from",
		}
	}

	began := time.Now()
	shares := Shares(ds, investments)
	initial := portfolioValue(ds.Latest, shares)

	workers := params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	values := make([]float64, params.Simulations)
	batches := (params.Simulations + batchSize - 1) / batchSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for b := 0; b < batches; b++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lo := b * batchSize
			hi := min(lo+batchSize, params.Simulations)
			e.runBatch(ds, shares, params, uint64(b), values[lo:hi])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("monte carlo simulation interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("monte carlo simulation interrupted: %w", err)
	}

	result := &Result{
		Values:       values,
		Stats:        ComputeStats(values, initial),
		InitialValue: initial,
		Params:       params,
	}

	e.log.Debug().
		Int("simulations", params.Simulations).
		Int("days", params.Days).
		Uint64("seed", params.Seed).
		Int("workers", workers).
		Float64("expected", result.Stats.Expected).
		Dur("duration", time.Since(began)).
		Msg("Monte Carlo simulation complete")

	return result, nil
}

// runBatch fills out with terminal values using the batch's own random stream.
func (e *Engine) runBatch(ds *dataset.Dataset, shares []float64, params Params, batch uint64, out []float64) {
	rng := rand.New(rand.NewPCG(params.Seed, batch))
	rows := make([]int, params.Days)
	prices := make([]float64, ds.NumAssets())

	for i := range out {
		for d := range rows {
			rows[d] = rng.IntN(ds.Len())
		}
		copy(prices, ds.Latest)
		for _, r := range rows {
			row := ds.Returns[r]
			for a := range prices {
				prices[a] *= 1 + row[a]
			}
		}
		out[i] = portfolioValue(prices, shares)
	}
}

func portfolioValue(prices, shares []float64) float64 {
	total := 0.0
	for a, p := range prices {
		total += p * shares[a]
	}
	return total
}
