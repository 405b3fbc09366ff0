// Package domain provides core domain models and types.
package domain

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// PricePoint is one adjusted close on a trading day.
type PricePoint struct {
	Date  time.Time `json:"date" msgpack:"date"`
	Close float64   `json:"close" msgpack:"close"`
}

// PriceSeries is an ordered price history for a single ticker.
type PriceSeries []PricePoint

// Investments maps a ticker to the dollar amount invested in it.
type Investments map[string]float64

// Total returns the sum of all investment amounts.
func (inv Investments) Total() float64 {
	total := 0.0
	for _, v := range inv {
		total += v
	}
	return total
}

// Normalized returns a copy keyed by normalized tickers. Duplicate keys after
// normalization are summed.
func (inv Investments) Normalized() Investments {
	out := make(Investments, len(inv))
	for ticker, amount := range inv {
		out[NormalizeTicker(ticker)] += amount
	}
	return out
}

// For returns the amounts ordered by tickers; missing tickers count as 0.
func (inv Investments) For(tickers []string) []float64 {
	amounts := make([]float64, len(tickers))
	for i, t := range tickers {
		amounts[i] = inv[t]
	}
	return amounts
}
