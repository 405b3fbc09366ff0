// Package dataset builds the aligned price and return tables every engine reads.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
)

// Dataset is a time-aligned table of adjusted closes and simple daily returns.
// Rows are dates, columns follow Tickers. Returns is one row shorter than
// Prices and ReturnDates[i] == Dates[i+1]. A Dataset is read-only once built;
// engines never mutate it.
type Dataset struct {
	Tickers     []string
	Dates       []time.Time
	Prices      [][]float64
	ReturnDates []time.Time
	Returns     [][]float64
	Latest      []float64
}

// NumAssets returns the number of columns.
func (d *Dataset) NumAssets() int {
	return len(d.Tickers)
}

// Len returns the number of return rows.
func (d *Dataset) Len() int {
	return len(d.Returns)
}

// Column copies the return series of asset j.
func (d *Dataset) Column(j int) []float64 {
	col := make([]float64, len(d.Returns))
	for i, row := range d.Returns {
		col[i] = row[j]
	}
	return col
}

// Index returns the column of ticker, or -1.
func (d *Dataset) Index(ticker string) int {
	for i, t := range d.Tickers {
		if t == ticker {
			return i
		}
	}
	return -1
}

// Validate checks the alignment invariants.
func (d *Dataset) Validate() error {
	n := len(d.Tickers)
	if n == 0 {
		return fmt.Errorf("dataset has no assets")
	}
	if len(d.Latest) != n {
		return fmt.Errorf("latest prices has %d entries, expected %d", len(d.Latest), n)
	}
	if len(d.ReturnDates) != len(d.Returns) {
		return fmt.Errorf("return index has %d dates for %d rows", len(d.ReturnDates), len(d.Returns))
	}
	if len(d.Dates) != len(d.Prices) {
		return fmt.Errorf("price index has %d dates for %d rows", len(d.Dates), len(d.Prices))
	}
	for i, row := range d.Returns {
		if len(row) != n {
			return fmt.Errorf("return row %d has %d columns, expected %d", i, len(row), n)
		}
	}
	for i, row := range d.Prices {
		if len(row) != n {
			return fmt.Errorf("price row %d has %d columns, expected %d", i, len(row), n)
		}
	}
	return nil
}

// Build aligns per-ticker price histories into a Dataset.
//
// Non-positive and non-finite closes are discarded. Only dates present for
// every ticker survive (inner join). A ticker with no usable data, an empty
// intersection, or fewer than two common dates is a DataUnavailableError.
func Build(series map[string]domain.PriceSeries, tickers []string) (*Dataset, error) {
	if len(tickers) == 0 {
		return nil, domain.NewValidationError("tickers", "at least one ticker is required")
	}

	byTicker := make([]map[string]float64, len(tickers))
	var missing []string
	for i, ticker := range tickers {
		closes := make(map[string]float64)
		for _, p := range series[ticker] {
			if p.Close <= 0 || math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
				continue
			}
			closes[p.Date.UTC().Format(domain.DateLayout)] = p.Close
		}
		if len(closes) == 0 {
			missing = append(missing, ticker)
		}
		byTicker[i] = closes
	}
	if len(missing) > 0 {
		return nil, &domain.DataUnavailableError{
			Tickers: missing,
			Reason:  "failed to retrieve price history for tickers",
		}
	}

	// Intersect on the first ticker's dates
	common := make([]string, 0, len(byTicker[0]))
	for day := range byTicker[0] {
		inAll := true
		for _, closes := range byTicker[1:] {
			if _, ok := closes[day]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			common = append(common, day)
		}
	}
	sort.Strings(common)

	if len(common) == 0 {
		return nil, &domain.DataUnavailableError{
			Tickers: tickers,
			Reason:  "no overlapping data found for the provided tickers and date range",
		}
	}
	if len(common) < 2 {
		return nil, &domain.DataUnavailableError{
			Tickers: tickers,
			Reason:  "need at least two overlapping dates to compute returns",
		}
	}

	ds := &Dataset{
		Tickers: append([]string(nil), tickers...),
		Dates:   make([]time.Time, len(common)),
		Prices:  make([][]float64, len(common)),
	}
	for i, day := range common {
		ds.Dates[i], _ = time.Parse(domain.DateLayout, day)
		row := make([]float64, len(tickers))
		for j := range tickers {
			row[j] = byTicker[j][day]
		}
		ds.Prices[i] = row
	}

	ds.ReturnDates = ds.Dates[1:]
	ds.Returns = make([][]float64, len(common)-1)
	for i := 1; i < len(common); i++ {
		prev, cur := ds.Prices[i-1], ds.Prices[i]
		row := make([]float64, len(tickers))
		for j := range row {
			row[j] = (cur[j] - prev[j]) / prev[j]
		}
		ds.Returns[i-1] = row
	}

	ds.Latest = append([]float64(nil), ds.Prices[len(ds.Prices)-1]...)
	return ds, nil
}

// FromReturns wraps an existing return table. Prices and Dates stay empty;
// latest holds the most recent close per ticker.
func FromReturns(tickers []string, dates []time.Time, returns [][]float64, latest []float64) (*Dataset, error) {
	ds := &Dataset{
		Tickers:     append([]string(nil), tickers...),
		ReturnDates: dates,
		Returns:     returns,
		Latest:      latest,
	}
	if ds.ReturnDates == nil {
		ds.ReturnDates = make([]time.Time, len(returns))
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid return table: %w", err)
	}
	return ds, nil
}
