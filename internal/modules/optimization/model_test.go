package optimization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestEvaluate(t *testing.T) {
	model := scenarioModel()
	s := model.Evaluate(EqualWeights(3))

	assert.InDelta(t, 252*0.0023/3, s.Return, 1e-12)
	assert.InDelta(t, math.Sqrt(252)*0.01, s.Risk, 1e-12)
	assert.InDelta(t, s.Return/s.Risk, s.Sharpe, 1e-12)
}

func TestEvaluate_ZeroRisk(t *testing.T) {
	cov := mat.NewSymDense(2, nil)
	s := Evaluate([]float64{0.5, 0.5}, []float64{0.01, 0.02}, cov)

	assert.Equal(t, 0.0, s.Risk)
	assert.Equal(t, 0.0, s.Sharpe)
	assert.InDelta(t, 252*0.015, s.Return, 1e-12)
}

func TestNormalize(t *testing.T) {
	w := []float64{1, 3}
	normalize(w)
	assert.Equal(t, []float64{0.25, 0.75}, w)

	zero := []float64{0, 0, 0, 0}
	normalize(zero)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, zero)
}

func TestSoftmax(t *testing.T) {
	w := softmax([]float64{math.Log(1), math.Log(3)})
	assert.InDelta(t, 0.25, w[0], 1e-12)
	assert.InDelta(t, 0.75, w[1], 1e-12)

	big := softmax([]float64{1000, 1000})
	assert.InDelta(t, 0.5, big[0], 1e-12)
}

func TestFrontier(t *testing.T) {
	samples := []Sample{
		{Risk: 0.10, Return: 0.05},
		{Risk: 0.12, Return: 0.04},
		{Risk: 0.22, Return: 0.09},
		{Risk: 0.28, Return: 0.07},
		{Risk: 0.40, Return: 0.12},
	}

	points := Frontier(samples, 3)

	assert.Equal(t, []FrontierPoint{
		{Risk: 0.10, Return: 0.05},
		{Risk: 0.22, Return: 0.09},
		{Risk: 0.40, Return: 0.12},
	}, points)

	assert.Nil(t, Frontier(nil, 10))
	assert.Len(t, Frontier([]Sample{{Risk: 0.1, Return: 0.1}}, 10), 1)
}
