package optimization

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
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// batchSize is the number of samples sharing one random stream.
	batchSize = 512
	// frontierBins is the number of risk buckets in the reported frontier.
	frontierBins = 50
)

// Params controls a random-search run.
type Params struct {
	Samples int    `json:"samples" msgpack:"samples"`
	Seed    uint64 `json:"seed" msgpack:"seed"`
	Workers int    `json:"-" msgpack:"-"`
	Refine  bool   `json:"refine" msgpack:"refine"`
}

// Result is the sampled population plus the portfolios picked from it.
type Result struct {
	Tickers   []string        `json:"tickers" msgpack:"tickers"`
	Samples   []Sample        `json:"samples" msgpack:"samples"`
	Best      Sample          `json:"best" msgpack:"best"`
	BestIndex int             `json:"best_index" msgpack:"best_index"`
	MinRisk   Sample          `json:"min_risk" msgpack:"min_risk"`
	Frontier  []FrontierPoint `json:"frontier" msgpack:"frontier"`
	Refined   *Sample         `json:"refined,omitempty" msgpack:"refined,omitempty"`
	Params    Params          `json:"params" msgpack:"params"`
}

// Engine runs random-search Sharpe optimization.
type Engine struct {
	refiner *Refiner
	log     zerolog.Logger
}

// NewEngine creates an optimization engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		refiner: NewRefiner(log),
		log:     log.With().Str("component", "optimization").Logger(),
	}
}

// Run draws params.Samples long-only weight vectors, scores each and picks
// the highest Sharpe ratio (first occurrence wins ties).
func (e *Engine) Run(ctx context.Context, ds *dataset.Dataset, params Params) (*Result, error) {
	if params.Samples < 1 {
		return nil, domain.NewValidationError("samples", "must be at least 1, got %d", params.Samples)
	}
	if ds.Len() == 0 {
		return nil, &domain.DataUnavailableError{
			Tickers: ds.Tickers,
			Reason:  "no historical returns to estimate the model from",
		}
	}

	return e.RunModel(ctx, NewModel(ds), ds.Tickers, params)
}

// RunModel is Run over an already estimated model.
func (e *Engine) RunModel(ctx context.Context, model *Model, tickers []string, params Params) (*Result, error) {
	if params.Samples < 1 {
		return nil, domain.NewValidationError("samples", "must be at least 1, got %d", params.Samples)
	}
	if len(model.Mean) == 0 || len(tickers) != len(model.Mean) {
		return nil, fmt.Errorf("model has %d assets for %d tickers", len(model.Mean), len(tickers))
	}

	began := time.Now()

	workers := params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	samples := make([]Sample, params.Samples)
	batches := (params.Samples + batchSize - 1) / batchSize

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
			hi := min(lo+batchSize, params.Samples)
			sampleBatch(model, len(tickers), params.Seed, uint64(b), samples[lo:hi])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("optimization interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("optimization interrupted: %w", err)
	}

	best, minRisk := 0, 0
	for i, s := range samples {
		if s.Sharpe > samples[best].Sharpe {
			best = i
		}
		if s.Risk < samples[minRisk].Risk {
			minRisk = i
		}
	}

	result := &Result{
		Tickers:   append([]string(nil), tickers...),
		Samples:   samples,
		Best:      samples[best],
		BestIndex: best,
		MinRisk:   samples[minRisk],
		Frontier:  Frontier(samples, frontierBins),
		Params:    params,
	}

	if params.Refine {
		refined, err := e.refiner.Refine(model, result.Best)
		if err != nil {
			e.log.Warn().Err(err).Msg("Max-Sharpe refinement failed, keeping random-search result")
		} else if refined != nil && refined.Sharpe >= result.Best.Sharpe {
			result.Refined = refined
		}
	}

	e.log.Debug().
		Int("samples", params.Samples).
		Uint64("seed", params.Seed).
		Int("workers", workers).
		Float64("best_sharpe", result.Best.Sharpe).
		Dur("duration", time.Since(began)).
		Msg("Portfolio optimization complete")

	return result, nil
}

func sampleBatch(model *Model, n int, seed, batch uint64, out []Sample) {
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(seed, batch)}
	for i := range out {
		w := make([]float64, n)
		for a := range w {
			w[a] = uniform.Rand()
		}
		normalize(w)
		out[i] = model.Evaluate(w)
	}
}
