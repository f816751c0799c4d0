package drift

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// welchTTest runs the two-sided Welch mean-difference test for unequal
// variances.
func welchTTest(baseline, recent []float64) (float64, float64, error) {
	n1, n2 := float64(len(baseline)), float64(len(recent))
	if n1 < 2 || n2 < 2 {
		return 0, 0, fmt.Errorf("welch: need at least 2 observations per window")
	}
	m1 := stat.Mean(baseline, nil)
	m2 := stat.Mean(recent, nil)
	v1 := stat.Variance(baseline, nil)
	v2 := stat.Variance(recent, nil)

	se := math.Sqrt(v1/n1 + v2/n2)
	if se == 0 {
		return 0, 0, fmt.Errorf("welch: zero pooled standard error")
	}
	t := (m2 - m1) / se

	// Welch-Satterthwaite degrees of freedom.
	df := math.Pow(v1/n1+v2/n2, 2) /
		(math.Pow(v1/n1, 2)/(n1-1) + math.Pow(v2/n2, 2)/(n2-1))
	if df <= 0 || math.IsNaN(df) {
		return 0, 0, fmt.Errorf("welch: degenerate degrees of freedom")
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.CDF(-math.Abs(t))
	return t, p, nil
}

// ksTest runs the two-sample Kolmogorov-Smirnov test. The p-value uses the
// asymptotic Kolmogorov distribution, adequate for windows of 30+.
func ksTest(baseline, recent []float64) (float64, float64, error) {
	n1, n2 := len(baseline), len(recent)
	if n1 < 2 || n2 < 2 {
		return 0, 0, fmt.Errorf("ks: need at least 2 observations per window")
	}
	a := append([]float64(nil), baseline...)
	b := append([]float64(nil), recent...)
	sort.Float64s(a)
	sort.Float64s(b)

	d := 0.0
	i, j := 0, 0
	for i < n1 && j < n2 {
		v1, v2 := a[i], b[j]
		if v1 <= v2 {
			i++
		}
		if v2 <= v1 {
			j++
		}
		diff := math.Abs(float64(i)/float64(n1) - float64(j)/float64(n2))
		if diff > d {
			d = diff
		}
	}

	en := math.Sqrt(float64(n1) * float64(n2) / float64(n1+n2))
	lambda := (en + 0.12 + 0.11/en) * d
	p := ksProbability(lambda)
	return d, p, nil
}

// ksProbability evaluates Q_KS(lambda) = 2 sum (-1)^{j-1} exp(-2 j^2 lambda^2).
func ksProbability(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	sum := 0.0
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(-2*float64(j)*float64(j)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	p := 2 * sum
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// varianceFTest runs the two-sided F test for equality of variances.
func varianceFTest(baseline, recent []float64) (float64, float64, error) {
	n1, n2 := float64(len(baseline)), float64(len(recent))
	if n1 < 2 || n2 < 2 {
		return 0, 0, fmt.Errorf("f-test: need at least 2 observations per window")
	}
	v1 := stat.Variance(baseline, nil)
	v2 := stat.Variance(recent, nil)
	if v1 <= 0 || v2 <= 0 {
		return 0, 0, fmt.Errorf("f-test: zero variance window")
	}

	f := v2 / v1
	dist := distuv.F{D1: n2 - 1, D2: n1 - 1}
	cdf := dist.CDF(f)
	p := 2 * math.Min(cdf, 1-cdf)
	if p > 1 {
		p = 1
	}
	return f, p, nil
}

// autocorrDiffTest compares the lag-1 autocorrelation structure of the two
// windows' first differences via Fisher z.
func autocorrDiffTest(baselineDiff, recentDiff []float64) (float64, float64, error) {
	n1, n2 := float64(len(baselineDiff)), float64(len(recentDiff))
	if n1 < 5 || n2 < 5 {
		return 0, 0, fmt.Errorf("autocorr: need at least 5 differences per window")
	}
	r1 := lag1Autocorr(baselineDiff)
	r2 := lag1Autocorr(recentDiff)
	if math.Abs(r1) >= 1 || math.Abs(r2) >= 1 {
		return 0, 0, fmt.Errorf("autocorr: degenerate correlation")
	}

	z1 := math.Atanh(r1)
	z2 := math.Atanh(r2)
	se := math.Sqrt(1/(n1-3) + 1/(n2-3))
	if se == 0 || math.IsNaN(se) {
		return 0, 0, fmt.Errorf("autocorr: degenerate standard error")
	}
	z := (z2 - z1) / se

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	p := 2 * norm.CDF(-math.Abs(z))
	return z, p, nil
}

func lag1Autocorr(values []float64) float64 {
	n := len(values)
	if n < 3 {
		return 0
	}
	mean := stat.Mean(values, nil)
	var num, den float64
	for i := 0; i < n; i++ {
		d := values[i] - mean
		den += d * d
	}
	if den == 0 {
		return 0
	}
	for i := 1; i < n; i++ {
		num += (values[i] - mean) * (values[i-1] - mean)
	}
	return num / den
}
