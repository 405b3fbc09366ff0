// Package yahoo provides a Yahoo Finance price source.
package yahoo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// historyFunc fetches daily bars for a Yahoo symbol over a lookback period.
type historyFunc func(symbol, period string) ([]models.Bar, error)

// Client implements domain.PriceSource using the go-yfinance library
type Client struct {
	fetch      historyFunc
	maxRetries int
	backoff    func(attempt int) time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(maxRetries int, log zerolog.Logger) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		fetch:      fetchHistory,
		maxRetries: maxRetries,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
		now: time.Now,
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

func fetchHistory(symbol, period string) ([]models.Bar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	params := models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	}

	bars, err := t.History(params)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices: %w", err)
	}
	return bars, nil
}

// lookbackPeriod picks the shortest Yahoo period that reaches back to start.
func lookbackPeriod(now, start time.Time) string {
	days := now.Sub(start).Hours()/24 + 5
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	case days <= 1825:
		return "5y"
	case days <= 3650:
		return "10y"
	default:
		return "max"
	}
}

// History returns adjusted daily closes for ticker with dates in [start, end].
// Transient failures are retried with exponential backoff.
func (c *Client) History(ctx context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error) {
	period := lookbackPeriod(c.now(), start)

	var bars []models.Bar
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, lastErr = c.fetch(ticker, period)
		if lastErr == nil {
			break
		}

		if attempt < c.maxRetries-1 {
			waitTime := c.backoff(attempt)
			c.log.Warn().Err(lastErr).Str("ticker", ticker).Int("attempt", attempt+1).Dur("wait", waitTime).Msg("Retrying")
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to fetch %s after %d attempts: %w", ticker, c.maxRetries, lastErr)
	}

	series := barsToSeries(bars, start, end)
	c.log.Debug().
		Str("ticker", ticker).
		Str("period", period).
		Int("bars", len(bars)).
		Int("points", len(series)).
		Msg("Fetched price history")

	return series, nil
}

// barsToSeries keeps bars whose calendar day falls in [start, end]. Dates are
// normalized to UTC midnight of the exchange-local day.
func barsToSeries(bars []models.Bar, start, end time.Time) domain.PriceSeries {
	from := calendarDay(start)
	to := calendarDay(end)

	series := make(domain.PriceSeries, 0, len(bars))
	for _, bar := range bars {
		day := calendarDay(bar.Date)
		if day.Before(from) || day.After(to) {
			continue
		}
		price := bar.AdjClose
		if price <= 0 || math.IsNaN(price) {
			price = bar.Close
		}
		series = append(series, domain.PricePoint{Date: day, Close: price})
	}
	return series
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
