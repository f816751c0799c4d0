package features

import (
	"math"

	"RateCast/internal/domain/models"
)

// LogReturns computes log returns r_t = ln(v_t / v_{t-1}) over a series.
// It returns a slice of length len-1, or nil if insufficient data.
// Non-positive values are carried through as a zero return.
func LogReturns(ts models.TimeSeries) []float64 {
	return LogReturnsOf(ts.Values())
}

// LogReturnsOf is LogReturns over a raw value slice.
func LogReturnsOf(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		cur := values[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// Diff computes first differences d_t = v_t - v_{t-1}.
func Diff(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		out = append(out, values[i]-values[i-1])
	}
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 denominator).
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	variance := sumSquares / float64(len(values)-1)
	return math.Sqrt(variance)
}

// RollingStd computes the sample standard deviation of the trailing window
// ending at each index. Entries before a full window are 0.
func RollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		out[i] = StdDev(values[i-window+1 : i+1])
	}
	return out
}

// Correlation returns the Pearson correlation of two equal-length slices,
// clamped to [-1, 1]. Zero denominators yield 0.
func Correlation(x, y []float64) float64 {
	n := len(x)
	if n == 0 || len(y) != n {
		return 0
	}
	meanX := Mean(x)
	meanY := Mean(y)

	var numerator, denomX, denomY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		numerator += dx * dy
		denomX += dx * dx
		denomY += dy * dy
	}

	denom := math.Sqrt(denomX * denomY)
	if denom == 0 {
		return 0
	}
	corr := numerator / denom
	if corr > 1 {
		return 1
	}
	if corr < -1 {
		return -1
	}
	return corr
}

// PctChange returns the percent change between the value `steps` back and
// the last value, or 0 when the window is unavailable.
func PctChange(values []float64, steps int) float64 {
	if len(values) <= steps || steps <= 0 {
		return 0
	}
	base := values[len(values)-1-steps]
	if base == 0 {
		return 0
	}
	return (values[len(values)-1] - base) / base * 100
}

// Autocorrelation returns the lag-k sample autocorrelation.
func Autocorrelation(values []float64, lag int) float64 {
	n := len(values)
	if lag <= 0 || n <= lag+1 {
		return 0
	}
	mean := Mean(values)
	var num, den float64
	for i := 0; i < n; i++ {
		d := values[i] - mean
		den += d * d
	}
	if den == 0 {
		return 0
	}
	for i := lag; i < n; i++ {
		num += (values[i] - mean) * (values[i-lag] - mean)
	}
	return num / den
}
