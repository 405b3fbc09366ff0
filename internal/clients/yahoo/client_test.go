package yahoo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnjoon/go-yfinance/pkg/models"
)

func newTestClient(fetch historyFunc, maxRetries int) *Client {
	c := NewClient(maxRetries, zerolog.Nop())
	c.fetch = fetch
	c.backoff = func(int) time.Duration { return 0 }
	c.now = func() time.Time { return time.Date(2024, 6, 28, 20, 0, 0, 0, time.UTC) }
	return c
}

func TestLookbackPeriod(t *testing.T) {
	now := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		start    time.Time
		expected string
	}{
		{now.AddDate(0, 0, -10), "1mo"},
		{now.AddDate(0, -2, 0), "3mo"},
		{now.AddDate(0, -5, 0), "6mo"},
		{now.AddDate(0, -11, 0), "1y"},
		{now.AddDate(-1, -6, 0), "2y"},
		{now.AddDate(-4, 0, 0), "5y"},
		{now.AddDate(-8, 0, 0), "10y"},
		{now.AddDate(-30, 0, 0), "max"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, lookbackPeriod(now, tt.start))
		})
	}
}

func TestClient_History_FiltersWindow(t *testing.T) {
	ny := time.FixedZone("EDT", -4*60*60)

	bars := []models.Bar{
		{Date: time.Date(2024, 6, 3, 9, 30, 0, 0, ny), Close: 10, AdjClose: 9.5},
		{Date: time.Date(2024, 6, 4, 9, 30, 0, 0, ny), Close: 11, AdjClose: 0},
		{Date: time.Date(2024, 6, 5, 9, 30, 0, 0, ny), Close: 12, AdjClose: 11.5},
		{Date: time.Date(2024, 6, 6, 9, 30, 0, 0, ny), Close: 13, AdjClose: 12.5},
	}
	var gotPeriod, gotSymbol string
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		gotSymbol, gotPeriod = symbol, period
		return bars, nil
	}, 3)

	series, err := client.History(context.Background(), "AAPL",
		time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "AAPL", gotSymbol)
	assert.Equal(t, "1mo", gotPeriod)
	require.Len(t, series, 2)
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), series[0].Date)
	assert.Equal(t, 11.0, series[0].Close)
	assert.Equal(t, 11.5, series[1].Close)
}

func TestClient_History_Retries(t *testing.T) {
	calls := 0
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("rate limited")
		}
		return []models.Bar{{Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Close: 10, AdjClose: 10}}, nil
	}, 3)

	series, err := client.History(context.Background(), "MSFT", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, series, 1)
}

func TestClient_History_GivesUp(t *testing.T) {
	boom := errors.New("upstream down")
	calls := 0
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		calls++
		return nil, boom
	}, 2)

	_, err := client.History(context.Background(), "MSFT", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestClient_History_Cancelled(t *testing.T) {
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		t.Fatal("fetch should not be called")
		return nil, nil
	}, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.History(ctx, "MSFT", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_History_NoData(t *testing.T) {
	client := newTestClient(func(symbol, period string) ([]models.Bar, error) {
		return nil, nil
	}, 1)

	series, err := client.History(context.Background(), "NOPE", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, series)
}
