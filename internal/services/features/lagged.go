package features

import "fmt"

// LagSpec lists the trailing return lags and realized-volatility windows used
// to build the supervised design matrix for the tree-ensemble adapter.
type LagSpec struct {
	ReturnLags []int
	VolWindows []int
}

// MaxLag returns the deepest reach into the past over all features.
func (s LagSpec) MaxLag() int {
	max := 0
	for _, l := range s.ReturnLags {
		if l > max {
			max = l
		}
	}
	for _, w := range s.VolWindows {
		if w > max {
			max = w
		}
	}
	return max
}

// LagSpecForHorizon derives the feature set for a horizon, keeping every lag
// and window strictly below the horizon so no feature can straddle the
// forecast boundary.
func LagSpecForHorizon(horizon int) LagSpec {
	candidateLags := []int{1, 2, 3, 5, 10, 21, 63}
	candidateWindows := []int{5, 10, 21, 63}

	spec := LagSpec{}
	for _, l := range candidateLags {
		if l < horizon {
			spec.ReturnLags = append(spec.ReturnLags, l)
		}
	}
	for _, w := range candidateWindows {
		if w < horizon {
			spec.VolWindows = append(spec.VolWindows, w)
		}
	}
	if len(spec.ReturnLags) == 0 {
		spec.ReturnLags = []int{1}
	}
	return spec
}

// BuildSupervised assembles the design matrix X and target vector y for
// direct h-step-ahead regression on a return series. Row i holds lagged
// returns and trailing vol features known at time i; y_i is the cumulative
// return over the following `horizon` steps. The lag ceiling is a hard
// guard: any lag or window at or beyond the horizon is rejected.
func BuildSupervised(returns []float64, horizon int, spec LagSpec) ([][]float64, []float64, error) {
	if horizon <= 0 {
		return nil, nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	if maxLag := spec.MaxLag(); maxLag >= horizon {
		return nil, nil, fmt.Errorf("feature lag %d breaches horizon %d leakage boundary", maxLag, horizon)
	}
	maxLag := spec.MaxLag()
	first := maxLag - 1
	if first < 0 {
		first = 0
	}
	last := len(returns) - 1 - horizon
	if last < first {
		return nil, nil, fmt.Errorf("series too short: %d returns for horizon %d with max lag %d", len(returns), horizon, maxLag)
	}

	nFeatures := len(spec.ReturnLags) + len(spec.VolWindows)
	X := make([][]float64, 0, last-first+1)
	y := make([]float64, 0, last-first+1)
	for i := first; i <= last; i++ {
		row := make([]float64, 0, nFeatures)
		for _, l := range spec.ReturnLags {
			row = append(row, returns[i-(l-1)])
		}
		for _, w := range spec.VolWindows {
			row = append(row, StdDev(returns[i-w+1:i+1]))
		}
		target := 0.0
		for s := 1; s <= horizon; s++ {
			target += returns[i+s]
		}
		X = append(X, row)
		y = append(y, target)
	}
	return X, y, nil
}
