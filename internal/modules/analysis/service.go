package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/aristath/portfolio-sim/internal/modules/backtest"
	"github.com/aristath/portfolio-sim/internal/modules/dataset"
	"github.com/aristath/portfolio-sim/internal/modules/montecarlo"
	"github.com/aristath/portfolio-sim/internal/modules/optimization"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DatasetLoader builds the aligned dataset for a request.
type DatasetLoader interface {
	Load(ctx context.Context, tickers []string, start, end time.Time) (*dataset.Dataset, error)
}

// Insights compares the requested allocation with the best sampled one.
type Insights struct {
	Current     optimization.Sample `json:"current" msgpack:"current"`
	Optimal     optimization.Sample `json:"optimal" msgpack:"optimal"`
	Improvement float64             `json:"improvement" msgpack:"improvement"` // Sharpe improvement in percent
}

// BacktestReport is the outcome of a backtest-only request.
type BacktestReport struct {
	Tickers []string         `json:"tickers" msgpack:"tickers"`
	Result  backtest.Result  `json:"result" msgpack:"result"`
	Summary backtest.Summary `json:"summary" msgpack:"summary"`
}

// Report is the outcome of a full analysis run.
type Report struct {
	ID              uuid.UUID            `json:"id" msgpack:"id"`
	CreatedAt       time.Time            `json:"created_at" msgpack:"created_at"`
	Seed            uint64               `json:"seed" msgpack:"seed"`
	Tickers         []string             `json:"tickers" msgpack:"tickers"`
	Start           time.Time            `json:"start" msgpack:"start"`
	End             time.Time            `json:"end" msgpack:"end"`
	Investments     domain.Investments   `json:"investments" msgpack:"investments"`
	TotalInvestment float64              `json:"total_investment" msgpack:"total_investment"`
	Weights         []float64            `json:"weights" msgpack:"weights"`
	Backtest        backtest.Result      `json:"backtest" msgpack:"backtest"`
	BacktestSummary backtest.Summary     `json:"backtest_summary" msgpack:"backtest_summary"`
	MonteCarlo      *montecarlo.Result   `json:"monte_carlo" msgpack:"monte_carlo"`
	Optimization    *optimization.Result `json:"optimization" msgpack:"optimization"`
	Insights        Insights             `json:"insights" msgpack:"insights"`
}

// Service runs analyses.
type Service struct {
	loader     DatasetLoader
	backtest   *backtest.Engine
	montecarlo *montecarlo.Engine
	optimizer  *optimization.Engine
	defaults   Defaults
	limits     Limits
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates an analysis service.
func NewService(loader DatasetLoader, defaults Defaults, limits Limits, log zerolog.Logger) *Service {
	return &Service{
		loader:     loader,
		backtest:   backtest.NewEngine(log),
		montecarlo: montecarlo.NewEngine(log),
		optimizer:  optimization.NewEngine(log),
		defaults:   defaults,
		limits:     limits,
		now:        time.Now,
		log:        log.With().Str("service", "analysis").Logger(),
	}
}

// prepare normalizes and validates req and resolves its seed.
func (s *Service) prepare(req Request) (Request, uint64, error) {
	req = req.Normalize(s.defaults)
	if err := req.Validate(s.limits); err != nil {
		return req, 0, err
	}
	seed := uint64(s.now().UnixNano())
	if req.Seed != nil {
		seed = *req.Seed
	}
	return req, seed, nil
}

func (s *Service) load(ctx context.Context, req Request) (*dataset.Dataset, error) {
	ds, err := s.loader.Load(ctx, req.Tickers, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	return ds, nil
}

// Run validates req, loads its dataset once and runs backtest, Monte Carlo
// simulation and optimization in that order.
func (s *Service) Run(ctx context.Context, req Request, progress ProgressFunc) (*Report, error) {
	req, seed, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	began := s.now()

	progress.report(StageDownload, "Downloading price history")
	ds, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	progress.report(StageBacktest, "Running backtest")
	bt := s.backtest.Run(ds, req.Investments)

	progress.report(StageMonteCarlo, "Running Monte Carlo simulation")
	mc, err := s.montecarlo.Run(ctx, ds, req.Investments, montecarlo.Params{
		Simulations: req.Simulations,
		Days:        req.Days,
		Seed:        seed,
		Workers:     s.defaults.Workers,
	})
	if err != nil {
		return nil, err
	}

	progress.report(StageOptimization, "Optimizing portfolio")
	opt, err := s.optimizer.Run(ctx, ds, optimization.Params{
		Samples: req.Samples,
		Seed:    seed,
		Workers: s.defaults.Workers,
		Refine:  req.Refine,
	})
	if err != nil {
		return nil, err
	}

	current := optimization.NewModel(ds).Evaluate(bt.Weights)
	report := &Report{
		ID:              uuid.New(),
		CreatedAt:       s.now(),
		Seed:            seed,
		Tickers:         ds.Tickers,
		Start:           req.Start,
		End:             req.End,
		Investments:     req.Investments,
		TotalInvestment: bt.TotalInvestment,
		Weights:         bt.Weights,
		Backtest:        bt,
		BacktestSummary: backtest.Summarize(bt),
		MonteCarlo:      mc,
		Optimization:    opt,
		Insights:        NewInsights(current, opt.Best),
	}

	progress.report(StageComplete, "Analysis complete")

	s.log.Info().
		Str("id", report.ID.String()).
		Strs("tickers", report.Tickers).
		Uint64("seed", seed).
		Float64("expected_value", mc.Stats.Expected).
		Float64("best_sharpe", opt.Best.Sharpe).
		Dur("duration", s.now().Sub(began)).
		Msg("Analysis complete")

	return report, nil
}

// Backtest runs only the historical backtest.
func (s *Service) Backtest(ctx context.Context, req Request) (*BacktestReport, error) {
	req, _, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	ds, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	bt := s.backtest.Run(ds, req.Investments)
	return &BacktestReport{Tickers: ds.Tickers, Result: bt, Summary: backtest.Summarize(bt)}, nil
}

// MonteCarlo runs only the Monte Carlo simulation.
func (s *Service) MonteCarlo(ctx context.Context, req Request) (*montecarlo.Result, error) {
	req, seed, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	ds, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.montecarlo.Run(ctx, ds, req.Investments, montecarlo.Params{
		Simulations: req.Simulations,
		Days:        req.Days,
		Seed:        seed,
		Workers:     s.defaults.Workers,
	})
}

// Optimize runs only the portfolio optimization.
func (s *Service) Optimize(ctx context.Context, req Request) (*optimization.Result, error) {
	req, seed, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	ds, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.optimizer.Run(ctx, ds, optimization.Params{
		Samples: req.Samples,
		Seed:    seed,
		Workers: s.defaults.Workers,
		Refine:  req.Refine,
	})
}

// NewInsights compares current against optimal. Improvement is the relative
// Sharpe gain in percent, or 0 when the current Sharpe is not positive.
func NewInsights(current, optimal optimization.Sample) Insights {
	improvement := 0.0
	if current.Sharpe > 0 {
		improvement = (optimal.Sharpe - current.Sharpe) / current.Sharpe * 100
	}
	return Insights{Current: current, Optimal: optimal, Improvement: improvement}
}
