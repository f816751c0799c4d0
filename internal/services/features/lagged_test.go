package features

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLagSpecForHorizonStaysBelowHorizon(t *testing.T) {
	for _, horizon := range []int{7, 15, 30, 90} {
		spec := LagSpecForHorizon(horizon)
		require.NotEmpty(t, spec.ReturnLags, "horizon %d", horizon)
		assert.Less(t, spec.MaxLag(), horizon, "horizon %d", horizon)
	}
}

func TestBuildSupervisedRejectsLeakyLags(t *testing.T) {
	returns := make([]float64, 300)
	spec := LagSpec{ReturnLags: []int{1, 10}, VolWindows: []int{21}}

	_, _, err := BuildSupervised(returns, 7, spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leakage")

	// equal to horizon is still a breach
	_, _, err = BuildSupervised(returns, 21, spec)
	require.Error(t, err)
}

func TestBuildSupervisedShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	returns := make([]float64, 200)
	for i := range returns {
		returns[i] = rng.NormFloat64() * 0.01
	}
	spec := LagSpec{ReturnLags: []int{1, 2, 5}, VolWindows: []int{10}}
	X, y, err := BuildSupervised(returns, 15, spec)
	require.NoError(t, err)
	require.Equal(t, len(X), len(y))
	require.NotEmpty(t, X)
	for _, row := range X {
		assert.Len(t, row, 4)
	}
}

func TestBuildSupervisedTargetIsForwardCumulative(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.03, 0.04, 0.05, 0.06, 0.07, 0.08}
	spec := LagSpec{ReturnLags: []int{1}}
	X, y, err := BuildSupervised(returns, 2, spec)
	require.NoError(t, err)
	require.NotEmpty(t, y)
	// row 0 sits at index 0; its target sums returns 1 and 2
	assert.InDelta(t, 0.05, y[0], 1e-12)
	assert.InDelta(t, 0.01, X[0][0], 1e-12)
}

func TestBuildSupervisedTooShort(t *testing.T) {
	_, _, err := BuildSupervised(make([]float64, 5), 30, LagSpec{ReturnLags: []int{1}})
	require.Error(t, err)
}

func TestMetricsAgainstKnownValues(t *testing.T) {
	forecast := []float64{1, 2, 3}
	actual := []float64{2, 2, 5}
	assert.InDelta(t, math.Sqrt(5.0/3.0), RMSE(forecast, actual), 1e-12)
	assert.InDelta(t, 1.0, MAE(forecast, actual), 1e-12)
}

func TestMAPESkipsZeroActuals(t *testing.T) {
	got := MAPE([]float64{1, 2}, []float64{0, 4})
	assert.InDelta(t, 50.0, got, 1e-12)
}

func TestDirectionalAccuracy(t *testing.T) {
	previous := []float64{10, 10, 10, 10}
	actual := []float64{11, 9, 11, 9}
	forecast := []float64{12, 8, 8, 12}
	// first two agree in direction, last two disagree
	assert.InDelta(t, 0.5, DirectionalAccuracy(forecast, actual, previous), 1e-12)
}
