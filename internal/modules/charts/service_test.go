package charts

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/aristath/portfolio-sim/internal/modules/backtest"
	"github.com/aristath/portfolio-sim/internal/modules/montecarlo"
	"github.com/aristath/portfolio-sim/internal/modules/optimization"
	testingpkg "github.com/aristath/portfolio-sim/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG")

func TestService_Backtest(t *testing.T) {
	svc := NewService(zerolog.Nop())
	dates := testingpkg.BusinessDays(testingpkg.FixtureStart, 40)
	values := make([]float64, len(dates))
	for i := range values {
		values[i] = 10000 + float64(i*25)
	}

	img, err := svc.Backtest(backtest.Result{Dates: dates, Values: values, TotalInvestment: 10000})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngHeader))
}

func TestService_MonteCarlo(t *testing.T) {
	svc := NewService(zerolog.Nop())
	values := []float64{9000, 9500, 10000, 10100, 10400, 11000, 12500}

	img, err := svc.MonteCarlo(&montecarlo.Result{
		Values: values,
		Stats:  montecarlo.ComputeStats(values, 10000),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngHeader))
}

func TestService_Frontier(t *testing.T) {
	svc := NewService(zerolog.Nop())
	result := &optimization.Result{
		Best: optimization.Sample{Return: 0.2, Risk: 0.15, Sharpe: 1.33},
		Frontier: []optimization.FrontierPoint{
			{Risk: 0.10, Return: 0.08},
			{Risk: 0.15, Return: 0.20},
			{Risk: 0.25, Return: 0.24},
		},
	}

	img, err := svc.Frontier(result)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngHeader))
}

func TestTailSeries(t *testing.T) {
	bins := []montecarlo.Bin{
		{Lower: 0, Upper: 10, Count: 3},
		{Lower: 10, Upper: 20, Count: 5},
		{Lower: 20, Upper: 30, Count: 7},
		{Lower: 30, Upper: 40, Count: 2},
	}

	rows := tailSeries(bins, 12, 28)

	require.Len(t, rows, 3)
	assert.Equal(t, []float64{3, 0, 0, 0}, rows[0])
	assert.Equal(t, []float64{0, 5, 7, 0}, rows[1])
	assert.Equal(t, []float64{0, 0, 0, 2}, rows[2])
}

func TestFrontierSeries(t *testing.T) {
	points := []optimization.FrontierPoint{
		{Risk: 0.10, Return: 0.08},
		{Risk: 0.20, Return: 0.16},
		{Risk: 0.30, Return: 0.20},
	}

	t.Run("best between frontier points is inserted", func(t *testing.T) {
		best := optimization.Sample{Risk: 0.15, Return: 0.12, Sharpe: 0.8}

		risks, envelope, tangent := frontierSeries(points, best)

		assert.Equal(t, []float64{0.10, 0.15, 0.20, 0.30}, risks)
		require.Len(t, envelope, 4)
		assert.InDelta(t, 12.0, envelope[1], 1e-9)
		assert.InDelta(t, 12.0, tangent[1], 1e-9)
		assert.InDelta(t, 8.0, tangent[0], 1e-9)
	})

	t.Run("best on a frontier point is not duplicated", func(t *testing.T) {
		best := optimization.Sample{Risk: 0.20, Return: 0.16, Sharpe: 0.8}

		risks, envelope, tangent := frontierSeries(points, best)

		assert.Equal(t, []float64{0.10, 0.20, 0.30}, risks)
		assert.InDelta(t, envelope[1], tangent[1], 1e-9)
	})

	t.Run("best beyond the sampled range holds end value", func(t *testing.T) {
		best := optimization.Sample{Risk: 0.40, Return: 0.20, Sharpe: 0.5}

		risks, envelope, _ := frontierSeries(points, best)

		assert.Equal(t, []float64{0.10, 0.20, 0.30, 0.40}, risks)
		assert.InDelta(t, 20.0, envelope[3], 1e-9)
	})
}

func TestService_EmptyInput(t *testing.T) {
	svc := NewService(zerolog.Nop())

	_, err := svc.Backtest(backtest.Result{})
	assert.True(t, errors.Is(err, ErrNoData))
	_, err = svc.MonteCarlo(nil)
	assert.True(t, errors.Is(err, ErrNoData))
	_, err = svc.Frontier(&optimization.Result{})
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"backtest", "montecarlo", "frontier"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, Kind(s), k)
	}

	_, err := ParseKind("pie")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestValueSeries(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	points := ValueSeries(dates, []float64{100, 101, 102})

	assert.Equal(t, []ChartDataPoint{
		{Time: "2024-01-02", Value: 100},
		{Time: "2024-01-03", Value: 101},
	}, points)
}

func TestPaddedRange(t *testing.T) {
	lo, hi := paddedRange([]float64{100, 200})
	assert.InDelta(t, 95.0, lo, 1e-9)
	assert.InDelta(t, 205.0, hi, 1e-9)

	lo, hi = paddedRange([]float64{0, 0})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 1.0, hi)
}
