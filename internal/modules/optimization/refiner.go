package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/portfolio-sim/pkg/formulas"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

const (
	refineMaxIterations  = 500
	refineMaxEvaluations = 5000
	// minVariance guards the Sharpe objective near zero risk.
	minVariance = 1e-18
)

// Refiner polishes a random-search winner with a local max-Sharpe search.
//
// Weights are parametrized as w = softmax(x) so every iterate is long-only and
// fully invested without penalty terms.
type Refiner struct {
	log zerolog.Logger
}

// NewRefiner creates a refiner.
func NewRefiner(log zerolog.Logger) *Refiner {
	return &Refiner{log: log.With().Str("component", "sharpe_refiner").Logger()}
}

// Refine maximizes the Sharpe ratio starting from start. Returns nil when the
// starting point has no risk to trade against.
func (r *Refiner) Refine(model *Model, start Sample) (*Sample, error) {
	n := len(model.Mean)
	if n == 0 || len(start.Weights) != n {
		return nil, fmt.Errorf("start weights have %d entries, model has %d assets", len(start.Weights), n)
	}
	if start.Risk == 0 {
		return nil, nil
	}
	if n == 1 {
		s := model.Evaluate([]float64{1})
		return &s, nil
	}

	mu := model.Mean
	sigma := model.Cov
	annual := math.Sqrt(formulas.TradingDaysPerYear)

	sharpe := func(w []float64) (ret, variance float64) {
		for i := 0; i < n; i++ {
			ret += mu[i] * w[i]
		}
		wv := mat.NewVecDense(n, w)
		variance = math.Max(mat.Inner(wv, sigma, wv), minVariance)
		return ret, variance
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := softmax(x)
			ret, variance := sharpe(w)
			return -annual * ret / math.Sqrt(variance)
		},
		Grad: func(grad, x []float64) {
			w := softmax(x)
			ret, variance := sharpe(w)
			stdDev := math.Sqrt(variance)

			// d(-S)/dw
			gw := make([]float64, n)
			for i := 0; i < n; i++ {
				var sw float64
				for j := 0; j < n; j++ {
					sw += sigma.At(i, j) * w[j]
				}
				gw[i] = -annual * (mu[i]/stdDev - ret*sw/(stdDev*stdDev*stdDev))
			}

			// Chain through the softmax Jacobian
			dot := 0.0
			for i := 0; i < n; i++ {
				dot += w[i] * gw[i]
			}
			for j := 0; j < n; j++ {
				grad[j] = w[j] * (gw[j] - dot)
			}
		},
	}

	initial := make([]float64, n)
	for i, w := range start.Weights {
		initial[i] = math.Log(w + 1e-12)
	}
	settings := &optimize.Settings{
		MajorIterations: refineMaxIterations,
		FuncEvaluations: refineMaxEvaluations,
	}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
	if err != nil {
		r.log.Debug().Err(err).Msg("BFGS failed, falling back to Nelder-Mead")
		result, err = optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("sharpe refinement failed: %w", err)
		}
	}

	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("sharpe refinement diverged (status %v)", result.Status)
		}
	}

	refined := model.Evaluate(softmax(result.X))
	r.log.Debug().
		Str("status", result.Status.String()).
		Float64("start_sharpe", start.Sharpe).
		Float64("refined_sharpe", refined.Sharpe).
		Msg("Refined max-Sharpe portfolio")

	return &refined, nil
}

// softmax maps unconstrained x onto the probability simplex.
func softmax(x []float64) []float64 {
	hi := math.Inf(-1)
	for _, v := range x {
		hi = math.Max(hi, v)
	}
	w := make([]float64, len(x))
	sum := 0.0
	for i, v := range x {
		w[i] = math.Exp(v - hi)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}
