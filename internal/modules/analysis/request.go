// Package analysis validates portfolio requests and runs the backtest,
// simulation and optimization engines over one shared dataset.
package analysis

import (
	"math"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
)

// Defaults fill in counts a request leaves at zero.
type Defaults struct {
	Simulations int
	Days        int
	Samples     int
	Workers     int
}

// Limits cap the work a single request may ask for.
type Limits struct {
	MaxSimulations int
	MaxDays        int
	MaxSamples     int
}

// Request describes one analysis run.
type Request struct {
	Tickers     []string
	Investments domain.Investments
	Start       time.Time
	End         time.Time
	Simulations int
	Days        int
	Samples     int
	Seed        *uint64
	Refine      bool
}

// Normalize returns a copy with normalized tickers and investment keys and
// zero counts replaced by defaults.
func (r Request) Normalize(d Defaults) Request {
	out := r
	out.Tickers = make([]string, len(r.Tickers))
	for i, t := range r.Tickers {
		out.Tickers[i] = domain.NormalizeTicker(t)
	}
	out.Investments = r.Investments.Normalized()
	if out.Simulations == 0 {
		out.Simulations = d.Simulations
	}
	if out.Days == 0 {
		out.Days = d.Days
	}
	if out.Samples == 0 {
		out.Samples = d.Samples
	}
	return out
}

// Validate rejects the request before any data is fetched. Call Normalize first.
func (r Request) Validate(l Limits) error {
	if len(r.Tickers) == 0 {
		return domain.NewValidationError("tickers", "at least one ticker is required")
	}
	seen := make(map[string]bool, len(r.Tickers))
	for _, t := range r.Tickers {
		if t == "" {
			return domain.NewValidationError("tickers", "ticker symbols must not be empty")
		}
		if seen[t] {
			return domain.NewValidationError("tickers", "duplicate ticker %s", t)
		}
		seen[t] = true
	}

	for t, amount := range r.Investments {
		if !seen[t] {
			return domain.NewValidationError("investments", "investment given for %s which is not in tickers", t)
		}
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			return domain.NewValidationError("investments", "investment for %s must be a finite number", t)
		}
		if amount < 0 {
			return domain.NewValidationError("investments", "investment for %s must not be negative, got %.2f", t, amount)
		}
	}

	if r.Start.IsZero() || r.End.IsZero() {
		return domain.NewValidationError("dates", "start and end dates are required")
	}
	if !r.Start.Before(r.End) {
		return domain.NewValidationError("dates", "start date %s must be before end date %s",
			r.Start.Format(domain.DateLayout), r.End.Format(domain.DateLayout))
	}

	if err := checkCount("simulations", r.Simulations, l.MaxSimulations); err != nil {
		return err
	}
	if err := checkCount("days", r.Days, l.MaxDays); err != nil {
		return err
	}
	return checkCount("samples", r.Samples, l.MaxSamples)
}

func checkCount(field string, v, limit int) error {
	if v < 1 {
		return domain.NewValidationError(field, "must be a positive integer, got %d", v)
	}
	if limit > 0 && v > limit {
		return domain.NewValidationError(field, "must be at most %d, got %d", limit, v)
	}
	return nil
}
