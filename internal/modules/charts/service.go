// Package charts renders analysis results as chart data and PNG images.
package charts

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/aristath/portfolio-sim/internal/modules/backtest"
	"github.com/aristath/portfolio-sim/internal/modules/montecarlo"
	"github.com/aristath/portfolio-sim/internal/modules/optimization"
	"github.com/rs/zerolog"
	"github.com/vicanso/go-charts/v2"
)

// histogramBins matches the Monte Carlo distribution view.
const histogramBins = 50

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to chart")

// Kind names a chart artifact.
type Kind string

const (
	KindBacktest   Kind = "backtest"
	KindMonteCarlo Kind = "montecarlo"
	KindFrontier   Kind = "frontier"
)

// ParseKind validates a chart kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindBacktest, KindMonteCarlo, KindFrontier:
		return k, nil
	}
	return "", domain.NewValidationError("kind", "unknown chart %q (must be backtest, montecarlo or frontier)", s)
}

// ChartDataPoint represents a single point on a chart
type ChartDataPoint struct {
	Time  string  `json:"time" msgpack:"time"` // YYYY-MM-DD format
	Value float64 `json:"value" msgpack:"value"`
}

// Service renders chart artifacts
type Service struct {
	width  int
	height int
	log    zerolog.Logger
}

// NewService creates a new charts service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		width:  1200,
		height: 600,
		log:    log.With().Str("service", "charts").Logger(),
	}
}

// ValueSeries pairs dates with values for client-side plotting.
func ValueSeries(dates []time.Time, values []float64) []ChartDataPoint {
	n := min(len(dates), len(values))
	points := make([]ChartDataPoint, n)
	for i := 0; i < n; i++ {
		points[i] = ChartDataPoint{Time: dates[i].Format(domain.DateLayout), Value: values[i]}
	}
	return points
}

// Backtest draws the portfolio value over time.
func (s *Service) Backtest(result backtest.Result) ([]byte, error) {
	if len(result.Values) == 0 {
		return nil, ErrNoData
	}

	labels := make([]string, len(result.Values))
	for i := range labels {
		if i < len(result.Dates) {
			labels[i] = result.Dates[i].Format(domain.DateLayout)
		}
	}
	yMin, yMax := paddedRange(result.Values)

	p, err := charts.LineRender(
		[][]float64{result.Values},
		charts.TitleTextOptionFunc("Portfolio Value Over Time", fmt.Sprintf("Initial investment $%.2f", result.TotalInvestment)),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNumber(len(labels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(s.width),
		charts.HeightOptionFunc(s.height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render backtest chart: %w", err)
	}
	return s.bytes(p, KindBacktest)
}

// MonteCarlo draws the distribution of terminal values. Bins in the lower
// and upper 5% tails are drawn as their own series.
func (s *Service) MonteCarlo(result *montecarlo.Result) ([]byte, error) {
	if result == nil || len(result.Values) == 0 {
		return nil, ErrNoData
	}

	st := result.Stats
	bins := montecarlo.Histogram(result.Values, histogramBins)
	labels := make([]string, len(bins))
	for i, b := range bins {
		labels[i] = fmt.Sprintf("$%.0f", (b.Lower+b.Upper)/2)
	}

	names := []string{"≤ 5th pct", "5th to 95th pct", "≥ 95th pct"}
	seriesList := charts.NewSeriesListDataFromValues(tailSeries(bins, st.Percentile5, st.Percentile95), charts.ChartTypeBar)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}

	p, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(
			"Monte Carlo Simulation of Portfolio Value",
			fmt.Sprintf("Expected $%.2f • 5th $%.2f • 95th $%.2f", st.Expected, st.Percentile5, st.Percentile95),
		),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNumber(len(labels)),
		}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(s.width),
		charts.HeightOptionFunc(s.height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render monte carlo chart: %w", err)
	}
	return s.bytes(p, KindMonteCarlo)
}

// tailSeries splits bin counts into lower tail, body and upper tail rows by
// bin midpoint. Each bin is counted in exactly one row.
func tailSeries(bins []montecarlo.Bin, p5, p95 float64) [][]float64 {
	rows := [][]float64{
		make([]float64, len(bins)),
		make([]float64, len(bins)),
		make([]float64, len(bins)),
	}
	for i, b := range bins {
		mid := (b.Lower + b.Upper) / 2
		switch {
		case mid <= p5:
			rows[0][i] = float64(b.Count)
		case mid >= p95:
			rows[2][i] = float64(b.Count)
		default:
			rows[1][i] = float64(b.Count)
		}
	}
	return rows
}

// Frontier draws the efficient frontier envelope and the tangent line through
// the max-Sharpe portfolio, returns in percent against risk in percent.
func (s *Service) Frontier(result *optimization.Result) ([]byte, error) {
	if result == nil || len(result.Frontier) == 0 {
		return nil, ErrNoData
	}

	best := result.Best
	risks, envelope, tangent := frontierSeries(result.Frontier, best)
	labels := make([]string, len(risks))
	for i, r := range risks {
		labels[i] = fmt.Sprintf("%.1f%%", r*100)
	}
	yMin, yMax := paddedRange(append(append([]float64(nil), envelope...), tangent...))

	names := []string{"Efficient frontier", fmt.Sprintf("Max Sharpe %.2f", best.Sharpe)}
	seriesList := charts.NewSeriesListDataFromValues([][]float64{envelope, tangent}, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}

	p, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(
			"Efficient Frontier",
			fmt.Sprintf("Max Sharpe %.2f • return %.1f%% • risk %.1f%%", best.Sharpe, best.Return*100, best.Risk*100),
		),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNumber(len(labels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(s.width),
		charts.HeightOptionFunc(s.height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render frontier chart: %w", err)
	}
	return s.bytes(p, KindFrontier)
}

// frontierSeries places the best portfolio's risk on the frontier's risk axis
// and returns, in percent, the envelope interpolated at every risk and the
// line of constant Sharpe through the best portfolio. The two meet at best.
func frontierSeries(points []optimization.FrontierPoint, best optimization.Sample) (risks, envelope, tangent []float64) {
	risks = make([]float64, 0, len(points)+1)
	inserted := false
	for _, pt := range points {
		if !inserted && best.Risk <= pt.Risk {
			if best.Risk < pt.Risk {
				risks = append(risks, best.Risk)
			}
			inserted = true
		}
		risks = append(risks, pt.Risk)
	}
	if !inserted {
		risks = append(risks, best.Risk)
	}

	envelope = make([]float64, len(risks))
	tangent = make([]float64, len(risks))
	for i, r := range risks {
		envelope[i] = interpolateFrontier(points, r) * 100
		tangent[i] = best.Sharpe * r * 100
	}
	return risks, envelope, tangent
}

// interpolateFrontier returns the envelope return at risk, holding the end
// values outside the sampled range.
func interpolateFrontier(points []optimization.FrontierPoint, risk float64) float64 {
	if risk <= points[0].Risk {
		return points[0].Return
	}
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		if risk <= b.Risk {
			if b.Risk == a.Risk {
				return b.Return
			}
			return a.Return + (b.Return-a.Return)*(risk-a.Risk)/(b.Risk-a.Risk)
		}
	}
	return points[len(points)-1].Return
}

func (s *Service) bytes(p *charts.Painter, kind Kind) ([]byte, error) {
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	s.log.Debug().Str("chart", string(kind)).Int("bytes", len(buf)).Msg("Rendered chart")
	return buf, nil
}

// paddedRange returns the value range widened by 5% on each side.
func paddedRange(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.05, 1)
	}
	return lo - pad, hi + pad
}

func splitNumber(n int) int {
	if n <= 30 {
		return max(n/3, 3)
	}
	return 6
}
