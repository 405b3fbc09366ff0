package testing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
)

// MockPriceSource is an in-memory domain.PriceSource for tests.
type MockPriceSource struct {
	mu     sync.RWMutex
	series map[string]domain.PriceSeries
	errs   map[string]error
	delay  time.Duration
	calls  map[string]int
}

// NewMockPriceSource creates a mock serving series.
func NewMockPriceSource(series map[string]domain.PriceSeries) *MockPriceSource {
	if series == nil {
		series = make(map[string]domain.PriceSeries)
	}
	return &MockPriceSource{
		series: series,
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// SetSeries sets the history returned for ticker
func (m *MockPriceSource) SetSeries(ticker string, series domain.PriceSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[ticker] = series
}

// SetError makes every fetch of ticker fail with err
func (m *MockPriceSource) SetError(ticker string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[ticker] = err
}

// SetDelay makes every fetch block for d or until the context ends
func (m *MockPriceSource) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many times ticker was fetched
func (m *MockPriceSource) Calls(ticker string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[ticker]
}

// History returns the points of ticker within [start, end]
func (m *MockPriceSource) History(ctx context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error) {
	m.mu.Lock()
	m.calls[ticker]++
	delay := m.delay
	err := m.errs[ticker]
	series := m.series[ticker]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	out := make(domain.PriceSeries, 0, len(series))
	for _, p := range series {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
