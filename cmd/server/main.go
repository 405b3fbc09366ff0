// Package main is the entry point for the portfolio simulator HTTP API.
//
// It wires the Yahoo Finance price source behind an in-memory cache, the
// analysis engines and the HTTP server, and purges the price cache on a cron
// schedule until SIGINT or SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/portfolio-sim/internal/clients/yahoo"
	"github.com/aristath/portfolio-sim/internal/config"
	"github.com/aristath/portfolio-sim/internal/modules/analysis"
	analysishandlers "github.com/aristath/portfolio-sim/internal/modules/analysis/handlers"
	"github.com/aristath/portfolio-sim/internal/modules/charts"
	"github.com/aristath/portfolio-sim/internal/modules/dataset"
	"github.com/aristath/portfolio-sim/internal/scheduler"
	"github.com/aristath/portfolio-sim/internal/server"
	"github.com/aristath/portfolio-sim/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("workers", cfg.Simulation.Workers).
		Dur("price_cache_ttl", cfg.PriceCacheTTL).
		Msg("Starting portfolio simulator")

	// Price history: Yahoo Finance behind a TTL cache
	yahooClient := yahoo.NewClient(cfg.YahooMaxRetries, log)
	priceCache := dataset.NewCachedSource(yahooClient, cfg.PriceCacheTTL, log)
	builder := dataset.NewBuilder(priceCache, log)

	analysisService := analysis.NewService(builder,
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
	handler := analysishandlers.NewHandler(analysisService, charts.NewService(log), log)

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.PriceCachePurgeCron, scheduler.NewPurgePriceCacheJob(priceCache, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache purge job")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:             log,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
		Workers:         cfg.Simulation.Workers,
		AnalysisHandler: handler,
		Cache:           priceCache,
		Jobs:            sched,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Portfolio simulator started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
