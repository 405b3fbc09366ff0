package formulas

import "math"

// SharpeRatio divides annualized return by annualized risk with a zero
// risk-free rate. Zero (or negative) risk yields 0.
func SharpeRatio(annualReturn, annualRisk float64) float64 {
	if annualRisk > 0 {
		return annualReturn / annualRisk
	}
	return 0
}

// CalculateSharpeRatio calculates the annualized Sharpe Ratio of periodic returns
//
//	Sharpe = (Mean Return - Risk-free Rate) / Standard Deviation of Returns
//	Annualized: Sharpe × sqrt(periodsPerYear)
//
// Returns nil if there is insufficient data or no variation.
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev
	annualized := sharpe * math.Sqrt(float64(periodsPerYear))

	return &annualized
}
