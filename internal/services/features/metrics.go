package features

import "math"

// RMSE returns the root-mean-squared error between forecasts and actuals.
// Slices are compared over their common prefix.
func RMSE(forecast, actual []float64) float64 {
	n := minLen(forecast, actual)
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := forecast[i] - actual[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// MAE returns the mean absolute error.
func MAE(forecast, actual []float64) float64 {
	n := minLen(forecast, actual)
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(forecast[i] - actual[i])
	}
	return sum / float64(n)
}

// MAPE returns the mean absolute percentage error. Zero actuals are skipped.
func MAPE(forecast, actual []float64) float64 {
	n := minLen(forecast, actual)
	if n == 0 {
		return 0
	}
	var sum float64
	count := 0
	for i := 0; i < n; i++ {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs((forecast[i] - actual[i]) / actual[i])
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count) * 100
}

// DirectionalAccuracy returns the fraction of steps where forecast and
// actual moved the same direction relative to the previous actual.
func DirectionalAccuracy(forecast, actual, previous []float64) float64 {
	n := minLen(forecast, actual)
	if len(previous) < n {
		n = len(previous)
	}
	if n == 0 {
		return 0
	}
	hits := 0
	for i := 0; i < n; i++ {
		fDir := forecast[i] - previous[i]
		aDir := actual[i] - previous[i]
		if (fDir >= 0) == (aDir >= 0) {
			hits++
		}
	}
	return float64(hits) / float64(n)
}

func minLen(a, b []float64) int {
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}
