// Package main runs a single portfolio analysis described by a YAML scenario
// and logs a summary of the backtest, Monte Carlo and optimization results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aristath/portfolio-sim/internal/clients/yahoo"
	"github.com/aristath/portfolio-sim/internal/config"
	"github.com/aristath/portfolio-sim/internal/modules/analysis"
	"github.com/aristath/portfolio-sim/internal/modules/charts"
	"github.com/aristath/portfolio-sim/internal/modules/dataset"
	"github.com/aristath/portfolio-sim/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	scenarioPath := flag.String("scenario", "scenario.yaml", "Scenario YAML file")
	outDir := flag.String("out", "", "Directory for chart PNGs (overrides the scenario's out)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	sc, err := LoadScenario(*scenarioPath)
	if err != nil {
		log.Fatal().Err(err).Str("scenario", *scenarioPath).Msg("Failed to load scenario")
	}
	if *outDir != "" {
		sc.Out = *outDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sc, log); err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}
}

func run(ctx context.Context, cfg *config.Config, sc *Scenario, log zerolog.Logger) error {
	req, err := sc.Request()
	if err != nil {
		return err
	}

	source := yahoo.NewClient(cfg.YahooMaxRetries, log)
	service := analysis.NewService(dataset.NewBuilder(source, log),
		analysis.Defaults{
			Simulations: cfg.Simulation.DefaultSimulations,
			Days:        cfg.Simulation.DefaultDays,
			Samples:     cfg.Simulation.DefaultSamples,
			Workers:     cfg.Simulation.Workers,
		},
		analysis.Limits{
			MaxSimulations: cfg.Simulation.MaxSimulations,
			MaxDays:        cfg.Simulation.MaxDays,
			MaxSamples:     cfg.Simulation.MaxSamples,
		},
		log)

	report, err := service.Run(ctx, req, func(p analysis.Progress) {
		log.Info().Int("percent", p.Percent).Msg(p.Message)
	})
	if err != nil {
		return err
	}

	logReport(log, report)

	if sc.Out != "" {
		if err := writeCharts(charts.NewService(log), report, sc.Out); err != nil {
			return err
		}
		log.Info().Str("dir", sc.Out).Msg("Charts written")
	}
	return nil
}

func logReport(log zerolog.Logger, report *analysis.Report) {
	log.Info().
		Str("id", report.ID.String()).
		Uint64("seed", report.Seed).
		Strs("tickers", report.Tickers).
		Floats64("weights", report.Weights).
		Float64("total_investment", report.TotalInvestment).
		Msg("Analysis complete")

	bt := report.BacktestSummary
	log.Info().
		Float64("final_value", bt.FinalValue).
		Float64("total_return", bt.TotalReturn).
		Float64("annual_return", bt.AnnualReturn).
		Float64("annual_volatility", bt.AnnualVolatility).
		Float64("sharpe", bt.SharpeRatio).
		Float64("max_drawdown", bt.MaxDrawdown).
		Msg("Backtest")

	mc := report.MonteCarlo.Stats
	log.Info().
		Int("simulations", report.MonteCarlo.Params.Simulations).
		Int("days", report.MonteCarlo.Params.Days).
		Float64("expected", mc.Expected).
		Float64("median", mc.Median).
		Float64("p5", mc.Percentile5).
		Float64("p95", mc.Percentile95).
		Float64("probability_of_loss", mc.ProbabilityOfLoss).
		Msg("Monte Carlo")

	best := report.Optimization.Best
	log.Info().
		Floats64("weights", best.Weights).
		Float64("return", best.Return).
		Float64("risk", best.Risk).
		Float64("sharpe", best.Sharpe).
		Float64("improvement_pct", report.Insights.Improvement).
		Msg("Max-Sharpe portfolio")

	if refined := report.Optimization.Refined; refined != nil {
		log.Info().
			Floats64("weights", refined.Weights).
			Float64("sharpe", refined.Sharpe).
			Msg("Refined portfolio")
	}
}

// writeCharts renders the three report charts into dir.
func writeCharts(svc *charts.Service, report *analysis.Report, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}

	renders := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{"backtest.png", func() ([]byte, error) { return svc.Backtest(report.Backtest) }},
		{"montecarlo.png", func() ([]byte, error) { return svc.MonteCarlo(report.MonteCarlo) }},
		{"frontier.png", func() ([]byte, error) { return svc.Frontier(report.Optimization) }},
	}
	for _, r := range renders {
		img, err := r.render()
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", r.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, r.name), img, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", r.name, err)
		}
	}
	return nil
}
