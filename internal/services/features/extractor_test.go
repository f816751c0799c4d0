package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogReturnsOf(t *testing.T) {
	got := LogReturnsOf([]float64{100, 110, 99})
	require.Len(t, got, 2)
	assert.InDelta(t, math.Log(1.1), got[0], 1e-12)
	assert.InDelta(t, math.Log(0.9), got[1], 1e-12)
}

func TestLogReturnsOfNonPositive(t *testing.T) {
	got := LogReturnsOf([]float64{100, 0, 50})
	require.Len(t, got, 2)
	assert.Zero(t, got[0])
	assert.Zero(t, got[1])
}

func TestLogReturnsOfShort(t *testing.T) {
	assert.Nil(t, LogReturnsOf([]float64{100}))
	assert.Nil(t, LogReturnsOf(nil))
}

func TestDiff(t *testing.T) {
	got := Diff([]float64{1, 4, 2})
	assert.Equal(t, []float64{3, -2}, got)
}

func TestStdDevSample(t *testing.T) {
	// variance of {2,4,4,4,5,5,7,9} with n-1 denominator is 32/7
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, math.Sqrt(32.0/7.0), got, 1e-12)
}

func TestStdDevDegenerate(t *testing.T) {
	assert.Zero(t, StdDev([]float64{5}))
	assert.Zero(t, StdDev(nil))
}

func TestRollingStd(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	got := RollingStd(vals, 3)
	require.Len(t, got, 5)
	assert.Zero(t, got[0])
	assert.Zero(t, got[1])
	for i := 2; i < 5; i++ {
		assert.InDelta(t, 1.0, got[i], 1e-12)
	}
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.0, Correlation(x, x), 1e-12)

	y := []float64{5, 4, 3, 2, 1}
	assert.InDelta(t, -1.0, Correlation(x, y), 1e-12)

	flat := []float64{2, 2, 2, 2, 2}
	assert.Zero(t, Correlation(x, flat))
}

func TestPctChange(t *testing.T) {
	vals := []float64{100, 101, 102, 103, 104, 108}
	assert.InDelta(t, 8.0, PctChange(vals, 5), 1e-12)
	assert.Zero(t, PctChange(vals, 10))
	assert.Zero(t, PctChange(vals, 0))
}

func TestAutocorrelationWhiteNoiseVsTrend(t *testing.T) {
	trend := make([]float64, 100)
	for i := range trend {
		trend[i] = float64(i)
	}
	assert.Greater(t, Autocorrelation(trend, 1), 0.9)

	alternating := make([]float64, 100)
	for i := range alternating {
		if i%2 == 0 {
			alternating[i] = 1
		} else {
			alternating[i] = -1
		}
	}
	assert.Less(t, Autocorrelation(alternating, 1), -0.9)
}
