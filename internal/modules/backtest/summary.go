package backtest

import (
	"github.com/aristath/portfolio-sim/pkg/formulas"
)

// trendWindow is the moving-average length for the value trend line.
const trendWindow = 20

// Summary condenses a backtest into headline metrics.
type Summary struct {
	FinalValue       float64   `json:"final_value" msgpack:"final_value"`
	TotalReturn      float64   `json:"total_return" msgpack:"total_return"`
	AnnualReturn     float64   `json:"annual_return" msgpack:"annual_return"`
	AnnualVolatility float64   `json:"annual_volatility" msgpack:"annual_volatility"`
	SharpeRatio      float64   `json:"sharpe_ratio" msgpack:"sharpe_ratio"`
	MaxDrawdown      float64   `json:"max_drawdown" msgpack:"max_drawdown"`
	Trend            []float64 `json:"trend,omitempty" msgpack:"trend,omitempty"`
}

// DailyReturns returns the portfolio's day-over-day returns, starting from
// the initial investment. Nil when nothing was invested.
func (r Result) DailyReturns() []float64 {
	if r.TotalInvestment <= 0 || len(r.Values) == 0 {
		return nil
	}
	series := make([]float64, 0, len(r.Values)+1)
	series = append(series, r.TotalInvestment)
	series = append(series, r.Values...)
	return formulas.CalculateReturns(series)
}

// Summarize computes headline metrics for result.
func Summarize(result Result) Summary {
	var s Summary
	if len(result.Values) == 0 {
		return s
	}

	s.FinalValue = result.Values[len(result.Values)-1]
	if result.TotalInvestment > 0 {
		s.TotalReturn = s.FinalValue/result.TotalInvestment - 1
	}

	daily := result.DailyReturns()
	s.AnnualReturn = formulas.CalculateAnnualReturn(daily)
	s.AnnualVolatility = formulas.AnnualizedVolatility(daily)
	if sharpe := formulas.CalculateSharpeRatio(daily, 0, formulas.TradingDaysPerYear); sharpe != nil {
		s.SharpeRatio = *sharpe
	}
	if dd := formulas.CalculateMaxDrawdown(result.Values); dd != nil {
		s.MaxDrawdown = *dd
	}
	s.Trend = formulas.SMASeries(result.Values, trendWindow)

	return s
}
