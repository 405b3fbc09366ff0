// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aristath/portfolio-sim/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v3/cpu"
)

// Config holds application configuration
type Config struct {
	LogLevel            string
	Port                int
	DevMode             bool
	Simulation          SimulationConfig
	PriceCacheTTL       time.Duration
	PriceCachePurgeCron string
	YahooMaxRetries     int
}

// SimulationConfig holds engine defaults and request limits
type SimulationConfig struct {
	DefaultSimulations int
	DefaultDays        int
	DefaultSamples     int
	Workers            int // 0 resolves to the number of logical CPUs
	MaxSimulations     int
	MaxDays            int
	MaxSamples         int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		Simulation: SimulationConfig{
			DefaultSimulations: getEnvAsInt("SIM_DEFAULT_SIMULATIONS", 1000),
			DefaultDays:        getEnvAsInt("SIM_DEFAULT_DAYS", 252),
			DefaultSamples:     getEnvAsInt("SIM_DEFAULT_SAMPLES", 5000),
			Workers:            getEnvAsInt("SIM_WORKERS", 0),
			MaxSimulations:     getEnvAsInt("SIM_MAX_SIMULATIONS", 100000),
			MaxDays:            getEnvAsInt("SIM_MAX_DAYS", 2520),
			MaxSamples:         getEnvAsInt("SIM_MAX_SAMPLES", 200000),
		},
		PriceCacheTTL:       getEnvAsDuration("PRICE_CACHE_TTL", 6*time.Hour),
		PriceCachePurgeCron: getEnv("PRICE_CACHE_PURGE_CRON", "0 0 * * * *"),
		YahooMaxRetries:     getEnvAsInt("YAHOO_MAX_RETRIES", 3),
	}

	if cfg.Simulation.Workers == 0 {
		cfg.Simulation.Workers = defaultWorkers()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultWorkers asks the host for its logical CPU count.
func defaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("invalid LOG_LEVEL %q (must be debug, info, warn or error)", c.LogLevel)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}

	positive := []struct {
		name  string
		value int
	}{
		{"SIM_DEFAULT_SIMULATIONS", c.Simulation.DefaultSimulations},
		{"SIM_DEFAULT_DAYS", c.Simulation.DefaultDays},
		{"SIM_DEFAULT_SAMPLES", c.Simulation.DefaultSamples},
		{"SIM_WORKERS", c.Simulation.Workers},
		{"SIM_MAX_SIMULATIONS", c.Simulation.MaxSimulations},
		{"SIM_MAX_DAYS", c.Simulation.MaxDays},
		{"SIM_MAX_SAMPLES", c.Simulation.MaxSamples},
		{"YAHOO_MAX_RETRIES", c.YahooMaxRetries},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}

	if c.Simulation.DefaultSimulations > c.Simulation.MaxSimulations {
		return fmt.Errorf("SIM_DEFAULT_SIMULATIONS %d exceeds SIM_MAX_SIMULATIONS %d", c.Simulation.DefaultSimulations, c.Simulation.MaxSimulations)
	}
	if c.Simulation.DefaultDays > c.Simulation.MaxDays {
		return fmt.Errorf("SIM_DEFAULT_DAYS %d exceeds SIM_MAX_DAYS %d", c.Simulation.DefaultDays, c.Simulation.MaxDays)
	}
	if c.Simulation.DefaultSamples > c.Simulation.MaxSamples {
		return fmt.Errorf("SIM_DEFAULT_SAMPLES %d exceeds SIM_MAX_SAMPLES %d", c.Simulation.DefaultSamples, c.Simulation.MaxSamples)
	}

	if c.PriceCacheTTL <= 0 {
		return fmt.Errorf("PRICE_CACHE_TTL must be positive, got %s", c.PriceCacheTTL)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.PriceCachePurgeCron); err != nil {
		return fmt.Errorf("invalid PRICE_CACHE_PURGE_CRON %q: %w", c.PriceCachePurgeCron, err)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
