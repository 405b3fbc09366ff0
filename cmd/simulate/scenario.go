package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/aristath/portfolio-sim/internal/modules/analysis"
	"gopkg.in/yaml.v3"
)

// Scenario is the YAML description of one analysis run.
//
//	tickers: [AAPL, MSFT]
//	investments: {AAPL: 6000, MSFT: 4000}
//	start_date: 2022-01-01
//	end_date: 2024-01-01
//	simulations: 2000
//	seed: 42
//	out: ./charts
type Scenario struct {
	Tickers     []string           `yaml:"tickers"`
	Investments map[string]float64 `yaml:"investments"`
	StartDate   string             `yaml:"start_date"`
	EndDate     string             `yaml:"end_date"`
	Simulations int                `yaml:"simulations"`
	Days        int                `yaml:"days"`
	Samples     int                `yaml:"samples"`
	Seed        *uint64            `yaml:"seed"`
	Refine      bool               `yaml:"refine"`
	Out         string             `yaml:"out"`
}

// LoadScenario reads and decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario, rejecting unknown keys.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	return &sc, nil
}

// Request converts the scenario into an analysis request.
func (sc *Scenario) Request() (analysis.Request, error) {
	start, err := parseDate("start_date", sc.StartDate)
	if err != nil {
		return analysis.Request{}, err
	}
	end, err := parseDate("end_date", sc.EndDate)
	if err != nil {
		return analysis.Request{}, err
	}
	return analysis.Request{
		Tickers:     sc.Tickers,
		Investments: domain.Investments(sc.Investments),
		Start:       start,
		End:         end,
		Simulations: sc.Simulations,
		Days:        sc.Days,
		Samples:     sc.Samples,
		Seed:        sc.Seed,
		Refine:      sc.Refine,
	}, nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "invalid date %q (expected YYYY-MM-DD)", value)
	}
	return t, nil
}
