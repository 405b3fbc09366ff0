package testing

import (
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
)

// FixtureStart is the first trading day of every synthetic fixture.
var FixtureStart = time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC)

// BusinessDays returns n consecutive weekdays starting at start.
func BusinessDays(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	d := start
	for len(days) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return days
}

// SeriesFromReturns compounds returns from an initial close. The series has
// len(returns)+1 points.
func SeriesFromReturns(start time.Time, initial float64, returns []float64) domain.PriceSeries {
	days := BusinessDays(start, len(returns)+1)
	series := make(domain.PriceSeries, len(days))
	price := initial
	series[0] = domain.PricePoint{Date: days[0], Close: price}
	for i, r := range returns {
		price *= 1 + r
		series[i+1] = domain.PricePoint{Date: days[i+1], Close: price}
	}
	return series
}

// ConstantReturnSeries grows initial by r on each of n days.
func ConstantReturnSeries(start time.Time, n int, initial, r float64) domain.PriceSeries {
	returns := make([]float64, n)
	for i := range returns {
		returns[i] = r
	}
	return SeriesFromReturns(start, initial, returns)
}

// AlternatingReturns returns n returns cycling through pattern.
func AlternatingReturns(n int, pattern ...float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

// NewPriceFixtures returns three tickers over 60 trading days:
// AAA and BBB move in opposite directions, CCC drifts up steadily.
func NewPriceFixtures() map[string]domain.PriceSeries {
	return map[string]domain.PriceSeries{
		"AAA": SeriesFromReturns(FixtureStart, 100, AlternatingReturns(60, 0.02, -0.01)),
		"BBB": SeriesFromReturns(FixtureStart, 50, AlternatingReturns(60, -0.01, 0.02)),
		"CCC": ConstantReturnSeries(FixtureStart, 60, 20, 0.001),
	}
}

// NewInvestmentFixtures returns an uneven allocation over the price fixtures.
func NewInvestmentFixtures() domain.Investments {
	return domain.Investments{
		"AAA": 5000,
		"BBB": 3000,
		"CCC": 2000,
	}
}
