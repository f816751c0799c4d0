package adapters

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"RateCast/internal/domain/models"
	"RateCast/internal/services/features"
	"RateCast/pkg/config"
	xlogger "RateCast/pkg/logger"
)

// VARAdapter fits a two-variable vector autoregression over the target
// series and one covariate (typically a correlated commodity price). The
// point forecast and forecast-error variance are produced for the target
// equation only.
type VARAdapter struct {
	cfg config.EngineConfig
	log *xlogger.Logger
}

func NewVARAdapter(cfg config.EngineConfig, log *xlogger.Logger) (*VARAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &models.ConfigurationError{Field: "engine", Reason: err.Error()}
	}
	return &VARAdapter{cfg: cfg, log: log}, nil
}

func (a *VARAdapter) Name() string { return "var" }

func (a *VARAdapter) FitAndForecast(ctx context.Context, series models.TimeSeries, exogenous map[string]models.TimeSeries, horizonSteps int) (models.ModelArtifact, error) {
	if err := ctx.Err(); err != nil {
		return models.ModelArtifact{}, err
	}
	covariate, covName, ok := pickCovariate(exogenous)
	if !ok {
		return models.ModelArtifact{}, &models.ModelConvergenceError{ModelName: a.Name(), Err: fmt.Errorf("no covariate series supplied")}
	}

	target, cov := alignSeries(series, covariate)
	if len(target) < a.cfg.MinTrainSize {
		return models.ModelArtifact{}, &models.DataInsufficientError{Component: a.Name(), Need: a.cfg.MinTrainSize, Got: len(target)}
	}

	r1 := features.LogReturnsOf(target)
	r2 := features.LogReturnsOf(cov)

	fit, err := fitVAR(r1, r2, a.cfg.VAROrder)
	if err != nil {
		return models.ModelArtifact{}, &models.ModelConvergenceError{ModelName: a.Name(), Err: err}
	}
	if a.log != nil {
		a.log.Debug("var fitted",
			xlogger.String("symbol", series.Symbol),
			xlogger.String("covariate", covName),
			xlogger.Int("order", fit.p))
	}

	retForecast := fit.forecastTarget(r1, r2, horizonSteps)
	cumVar := fit.cumulativeTargetVariance(horizonSteps)

	last := target[len(target)-1]
	points := make([]float64, horizonSteps)
	stds := make([]float64, horizonSteps)
	level := last
	for s := 0; s < horizonSteps; s++ {
		level *= math.Exp(retForecast[s])
		points[s] = level
		stds[s] = level * math.Sqrt(cumVar[s])
	}

	rmse := a.backtestRMSE(target, r1, r2, fit)

	return models.ModelArtifact{
		ModelName:     a.Name(),
		PointForecast: points,
		ResidualStd:   stds,
		BacktestRMSE:  rmse,
	}, nil
}

func (a *VARAdapter) backtestRMSE(target, r1, r2 []float64, fit *varFit) float64 {
	window := len(r1) / 4
	if window > 60 {
		window = 60
	}
	if window < 5 {
		return 0
	}
	var preds, actuals []float64
	for i := len(r1) - window; i < len(r1); i++ {
		rhat := fit.predictTargetOne(r1[:i], r2[:i])
		preds = append(preds, target[i]*math.Exp(rhat))
		actuals = append(actuals, target[i+1])
	}
	return features.RMSE(preds, actuals)
}

// pickCovariate selects the first covariate by sorted name so the choice is
// deterministic across cycles.
func pickCovariate(exogenous map[string]models.TimeSeries) (models.TimeSeries, string, bool) {
	if len(exogenous) == 0 {
		return models.TimeSeries{}, "", false
	}
	names := make([]string, 0, len(exogenous))
	for name := range exogenous {
		names = append(names, name)
	}
	sort.Strings(names)
	return exogenous[names[0]], names[0], true
}

// alignSeries intersects two series on shared dates, preserving order.
func alignSeries(a, b models.TimeSeries) ([]float64, []float64) {
	byDate := make(map[time.Time]float64, b.Len())
	for _, o := range b.Observations {
		byDate[o.Date] = o.Value
	}
	var va, vb []float64
	for _, o := range a.Observations {
		if v, ok := byDate[o.Date]; ok {
			va = append(va, o.Value)
			vb = append(vb, v)
		}
	}
	return va, vb
}

// varFit is a fitted VAR(p) over (target, covariate) returns.
type varFit struct {
	p     int
	beta1 []float64 // target equation: intercept then p blocks of (lag target, lag cov)
	beta2 []float64 // covariate equation, same layout
	sigma *mat.SymDense
}

func fitVAR(r1, r2 []float64, p int) (*varFit, error) {
	n := len(r1)
	if len(r2) < n {
		n = len(r2)
	}
	r1 = r1[len(r1)-n:]
	r2 = r2[len(r2)-n:]
	rows := n - p
	if rows < 2*p+3 {
		return nil, fmt.Errorf("var(%d): too few observations: %d", p, n)
	}

	X := make([][]float64, rows)
	y1 := make([]float64, rows)
	y2 := make([]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, 1+2*p)
		row[0] = 1
		for j := 1; j <= p; j++ {
			row[2*j-1] = r1[p+i-j]
			row[2*j] = r2[p+i-j]
		}
		X[i] = row
		y1[i] = r1[p+i]
		y2[i] = r2[p+i]
	}

	beta1, err := olsSolve(X, y1)
	if err != nil {
		return nil, fmt.Errorf("target equation: %w", err)
	}
	beta2, err := olsSolve(X, y2)
	if err != nil {
		return nil, fmt.Errorf("covariate equation: %w", err)
	}

	e1 := residuals(X, y1, beta1)
	e2 := residuals(X, y2, beta2)
	nf := float64(rows)
	sigma := mat.NewSymDense(2, []float64{
		sumSquares(e1) / nf, dot(e1, e2) / nf,
		dot(e1, e2) / nf, sumSquares(e2) / nf,
	})
	if sigma.At(0, 0) <= 0 {
		return nil, fmt.Errorf("degenerate target residual variance")
	}

	return &varFit{p: p, beta1: beta1, beta2: beta2, sigma: sigma}, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func (f *varFit) predictEq(beta, h1, h2 []float64) float64 {
	pred := beta[0]
	for j := 1; j <= f.p; j++ {
		i1 := len(h1) - j
		i2 := len(h2) - j
		if i1 < 0 || i2 < 0 {
			break
		}
		pred += beta[2*j-1]*h1[i1] + beta[2*j]*h2[i2]
	}
	return pred
}

func (f *varFit) predictTargetOne(h1, h2 []float64) float64 {
	return f.predictEq(f.beta1, h1, h2)
}

// forecastTarget iterates both equations forward, feeding forecasts back in
// as lags, and returns the target-equation path.
func (f *varFit) forecastTarget(r1, r2 []float64, h int) []float64 {
	b1 := append([]float64(nil), r1...)
	b2 := append([]float64(nil), r2...)
	out := make([]float64, h)
	for s := 0; s < h; s++ {
		p1 := f.predictEq(f.beta1, b1, b2)
		p2 := f.predictEq(f.beta2, b1, b2)
		out[s] = p1
		b1 = append(b1, p1)
		b2 = append(b2, p2)
	}
	return out
}

// companion builds the 2p x 2p companion matrix of the VAR.
func (f *varFit) companion() *mat.Dense {
	dim := 2 * f.p
	A := mat.NewDense(dim, dim, nil)
	for j := 1; j <= f.p; j++ {
		A.Set(0, 2*(j-1), f.beta1[2*j-1])
		A.Set(0, 2*(j-1)+1, f.beta1[2*j])
		A.Set(1, 2*(j-1), f.beta2[2*j-1])
		A.Set(1, 2*(j-1)+1, f.beta2[2*j])
	}
	for i := 2; i < dim; i++ {
		A.Set(i, i-2, 1)
	}
	return A
}

// cumulativeTargetVariance returns, per step s, the forecast-error variance
// of the cumulative target return over steps 1..s. Innovations are grouped
// by arrival so the moving-average weights accumulate exactly:
// Var(C_s) = sum_{m=0}^{s-1} (B_m Sigma B_m')[0][0] with B_m = sum_{j<=m} Psi_j.
func (f *varFit) cumulativeTargetVariance(h int) []float64 {
	dim := 2 * f.p
	A := f.companion()

	// Psi_j = J A^j J' with J selecting the leading 2x2 block.
	power := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		power.Set(i, i, 1)
	}
	bSum := mat.NewDense(2, 2, nil)
	bVar := make([]float64, h)
	for m := 0; m < h; m++ {
		if m > 0 {
			var next mat.Dense
			next.Mul(A, power)
			power.Copy(&next)
		}
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				bSum.Set(i, j, bSum.At(i, j)+power.At(i, j))
			}
		}
		var tmp, quad mat.Dense
		tmp.Mul(bSum, f.sigma)
		quad.Mul(&tmp, bSum.T())
		bVar[m] = quad.At(0, 0)
	}

	out := make([]float64, h)
	running := 0.0
	for s := 1; s <= h; s++ {
		running += bVar[s-1]
		out[s-1] = running
	}
	return out
}
