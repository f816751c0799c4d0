package adapters

import (
	"context"
	"fmt"
	"math"

	"RateCast/internal/domain/models"
	"RateCast/internal/services/features"
	"RateCast/pkg/config"
	xlogger "RateCast/pkg/logger"
)

// ARGARCHAdapter forecasts with an autoregressive model on log returns
// (automatic order selection by AIC) and a GARCH(1,1) model on the
// residuals. Multi-step volatility is propagated through the GARCH
// recursion step by step rather than repeating the one-step value, so
// long-horizon uncertainty grows the way the model says it should.
type ARGARCHAdapter struct {
	cfg config.EngineConfig
	log *xlogger.Logger
}

func NewARGARCHAdapter(cfg config.EngineConfig, log *xlogger.Logger) (*ARGARCHAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &models.ConfigurationError{Field: "engine", Reason: err.Error()}
	}
	return &ARGARCHAdapter{cfg: cfg, log: log}, nil
}

func (a *ARGARCHAdapter) Name() string { return "ar_garch" }

func (a *ARGARCHAdapter) FitAndForecast(ctx context.Context, series models.TimeSeries, _ map[string]models.TimeSeries, horizonSteps int) (models.ModelArtifact, error) {
	if err := ctx.Err(); err != nil {
		return models.ModelArtifact{}, err
	}
	if series.Len() < a.cfg.MinTrainSize {
		return models.ModelArtifact{}, &models.DataInsufficientError{Component: a.Name(), Need: a.cfg.MinTrainSize, Got: series.Len()}
	}

	values := series.Values()
	returns := features.LogReturnsOf(values)
	if len(returns) < a.cfg.MaxAROrder*3 {
		return models.ModelArtifact{}, &models.DataInsufficientError{Component: a.Name(), Need: a.cfg.MaxAROrder * 3, Got: len(returns)}
	}

	fit, err := selectAROrder(returns, a.cfg.MaxAROrder)
	if err != nil {
		return models.ModelArtifact{}, &models.ModelConvergenceError{ModelName: a.Name(), Err: err}
	}
	if a.log != nil {
		a.log.Debug("ar order selected",
			xlogger.String("symbol", series.Symbol),
			xlogger.Int("order", fit.order),
			xlogger.Any("aic", fit.aic))
	}

	garch, err := fitGARCH11(fit.resid)
	if err != nil {
		return models.ModelArtifact{}, &models.ModelConvergenceError{ModelName: a.Name(), Err: err}
	}

	retForecast := fit.forecast(returns, horizonSteps)
	stepVar := garch.forecastVariances(fit.resid, horizonSteps)

	last := values[len(values)-1]
	points := make([]float64, horizonSteps)
	stds := make([]float64, horizonSteps)
	level := last
	cumVar := 0.0
	for s := 0; s < horizonSteps; s++ {
		level *= math.Exp(retForecast[s])
		cumVar += stepVar[s]
		points[s] = level
		stds[s] = level * math.Sqrt(cumVar)
	}

	rmse := a.backtestRMSE(values, returns, fit)

	return models.ModelArtifact{
		ModelName:     a.Name(),
		PointForecast: points,
		ResidualStd:   stds,
		BacktestRMSE:  rmse,
	}, nil
}

// backtestRMSE scores rolling one-step level predictions over the tail of
// the training window.
func (a *ARGARCHAdapter) backtestRMSE(values, returns []float64, fit *arFit) float64 {
	window := len(returns) / 4
	if window > 60 {
		window = 60
	}
	if window < 5 {
		return 0
	}
	var preds, actuals []float64
	for i := len(returns) - window; i < len(returns); i++ {
		rhat := fit.predictOne(returns[:i])
		preds = append(preds, values[i]*math.Exp(rhat))
		actuals = append(actuals, values[i+1])
	}
	return features.RMSE(preds, actuals)
}

// arFit is a fitted AR(p) model on returns.
type arFit struct {
	order int
	c     float64
	phi   []float64
	resid []float64
	aic   float64
}

// selectAROrder fits AR(p) for p in [1, maxOrder] by OLS and keeps the
// order with the lowest AIC.
func selectAROrder(returns []float64, maxOrder int) (*arFit, error) {
	var best *arFit
	for p := 1; p <= maxOrder; p++ {
		fit, err := fitAR(returns, p)
		if err != nil {
			continue
		}
		if best == nil || fit.aic < best.aic {
			best = fit
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no AR order converged up to p=%d", maxOrder)
	}
	return best, nil
}

func fitAR(returns []float64, p int) (*arFit, error) {
	n := len(returns) - p
	if n < p+2 {
		return nil, fmt.Errorf("ar(%d): too few observations", p)
	}
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, p+1)
		row[0] = 1
		for j := 1; j <= p; j++ {
			row[j] = returns[p+i-j]
		}
		X[i] = row
		y[i] = returns[p+i]
	}
	beta, err := olsSolve(X, y)
	if err != nil {
		return nil, err
	}
	for _, b := range beta {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, fmt.Errorf("ar(%d): unstable coefficients", p)
		}
	}
	resid := residuals(X, y, beta)
	rss := sumSquares(resid)
	if rss <= 0 {
		return nil, fmt.Errorf("ar(%d): degenerate residuals", p)
	}
	aic := float64(n)*math.Log(rss/float64(n)) + 2*float64(p+1)
	return &arFit{order: p, c: beta[0], phi: beta[1:], resid: resid, aic: aic}, nil
}

// predictOne returns the one-step-ahead return prediction given history.
func (f *arFit) predictOne(history []float64) float64 {
	pred := f.c
	for j, phi := range f.phi {
		idx := len(history) - 1 - j
		if idx < 0 {
			break
		}
		pred += phi * history[idx]
	}
	return pred
}

// forecast iterates the AR recursion h steps ahead, feeding predictions
// back in as lagged inputs.
func (f *arFit) forecast(history []float64, h int) []float64 {
	buf := make([]float64, len(history), len(history)+h)
	copy(buf, history)
	out := make([]float64, h)
	for s := 0; s < h; s++ {
		pred := f.predictOne(buf)
		out[s] = pred
		buf = append(buf, pred)
	}
	return out
}

// garch11 holds GARCH(1,1) parameters with omega set by variance targeting.
type garch11 struct {
	omega, alpha, beta float64
	uncond             float64
}

// fitGARCH11 estimates alpha and beta over a coarse grid by Gaussian
// quasi-likelihood, with omega pinned to the unconditional residual
// variance (variance targeting).
func fitGARCH11(resid []float64) (*garch11, error) {
	if len(resid) < 20 {
		return nil, fmt.Errorf("garch: too few residuals: %d", len(resid))
	}
	uncond := sumSquares(resid) / float64(len(resid))
	if uncond <= 0 {
		return nil, fmt.Errorf("garch: zero unconditional variance")
	}

	alphas := []float64{0.03, 0.05, 0.08, 0.1, 0.15}
	betas := []float64{0.6, 0.7, 0.8, 0.85, 0.9, 0.94}

	best := &garch11{alpha: 0.1, beta: 0.8, uncond: uncond}
	bestLL := math.Inf(-1)
	for _, al := range alphas {
		for _, be := range betas {
			if al+be >= 1 {
				continue
			}
			omega := uncond * (1 - al - be)
			ll := garchLogLik(resid, omega, al, be, uncond)
			if ll > bestLL {
				bestLL = ll
				best = &garch11{omega: omega, alpha: al, beta: be, uncond: uncond}
			}
		}
	}
	if math.IsInf(bestLL, -1) {
		return nil, fmt.Errorf("garch: likelihood did not evaluate")
	}
	return best, nil
}

func garchLogLik(resid []float64, omega, alpha, beta, h0 float64) float64 {
	h := h0
	ll := 0.0
	for i, e := range resid {
		if i > 0 {
			h = omega + alpha*resid[i-1]*resid[i-1] + beta*h
		}
		if h <= 0 {
			return math.Inf(-1)
		}
		ll += -0.5 * (math.Log(2*math.Pi) + math.Log(h) + e*e/h)
	}
	return ll
}

// forecastVariances runs the conditional variance recursion forward over
// the whole horizon. The first step conditions on the last residual; later
// steps decay toward the unconditional variance at rate alpha+beta.
func (g *garch11) forecastVariances(resid []float64, h int) []float64 {
	// reconstruct the final conditional variance
	hT := g.uncond
	for i := 1; i < len(resid); i++ {
		hT = g.omega + g.alpha*resid[i-1]*resid[i-1] + g.beta*hT
	}
	lastE := resid[len(resid)-1]

	out := make([]float64, h)
	v := g.omega + g.alpha*lastE*lastE + g.beta*hT
	out[0] = v
	for s := 1; s < h; s++ {
		v = g.omega + (g.alpha+g.beta)*v
		out[s] = v
	}
	return out
}
