package ensemble

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"RateCast/internal/domain/models"
	"RateCast/internal/services/features"
	"RateCast/pkg/config"
	xlogger "RateCast/pkg/logger"
	"RateCast/pkg/util"
)

const (
	z80 = 1.2816
	z95 = 1.9600
)

// Combiner blends surviving adapter artifacts by inverse backtest RMSE and
// simulates the joint confidence interval by Monte Carlo, deliberately
// avoiding a joint-normality assumption across heterogeneous models.
type Combiner struct {
	cfg config.EngineConfig
	log *xlogger.Logger
}

func NewCombiner(cfg config.EngineConfig, log *xlogger.Logger) (*Combiner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &models.ConfigurationError{Field: "engine", Reason: err.Error()}
	}
	return &Combiner{cfg: cfg, log: log}, nil
}

// Combine produces the final forecast package for one cycle. Artifacts with
// non-positive or missing RMSE, or short forecast vectors, are excluded and
// the weights renormalized over the survivors. With a single survivor the
// package falls back to that adapter's own interval scaled by the regime
// multiplier; with zero survivors the cycle fails hard.
func (c *Combiner) Combine(ctx context.Context, symbol string, artifacts []models.ModelArtifact, regimeMultiplier float64, horizonSteps int, freq models.Frequency, lastObserved time.Time) (models.ForecastPackage, error) {
	if err := ctx.Err(); err != nil {
		return models.ForecastPackage{}, err
	}
	if regimeMultiplier < 1.0 {
		regimeMultiplier = 1.0
	}

	survivors := make([]models.ModelArtifact, 0, len(artifacts))
	for _, art := range artifacts {
		if art.BacktestRMSE <= 0 || math.IsNaN(art.BacktestRMSE) || math.IsInf(art.BacktestRMSE, 0) {
			continue
		}
		if len(art.PointForecast) < horizonSteps || len(art.ResidualStd) < horizonSteps {
			continue
		}
		survivors = append(survivors, art)
	}
	if len(survivors) == 0 {
		return models.ForecastPackage{}, &models.EnsembleExhaustedError{Attempted: len(artifacts)}
	}

	weights := inverseRMSEWeights(survivors)

	dates := util.StepDates(lastObserved, string(freq), horizonSteps)
	points := make([]models.ForecastPoint, horizonSteps)

	if len(survivors) == 1 {
		art := survivors[0]
		for s := 0; s < horizonSteps; s++ {
			mean := art.PointForecast[s]
			sd := art.ResidualStd[s] * regimeMultiplier
			points[s] = models.ForecastPoint{
				Date:     dates[s],
				Mean:     mean,
				StdDev:   sd,
				CI80Low:  mean - z80*sd,
				CI80High: mean + z80*sd,
				CI95Low:  mean - z95*sd,
				CI95High: mean + z95*sd,
			}
		}
	} else {
		rng := c.newRNG()
		draws := make([]float64, c.cfg.MonteCarloSamples)
		for s := 0; s < horizonSteps; s++ {
			for n := range draws {
				sum := 0.0
				for _, art := range survivors {
					w := weights[art.ModelName]
					sum += w * (art.PointForecast[s] + regimeMultiplier*art.ResidualStd[s]*rng.NormFloat64())
				}
				draws[n] = sum
			}
			sort.Float64s(draws)

			mean := 0.0
			for _, art := range survivors {
				mean += weights[art.ModelName] * art.PointForecast[s]
			}
			p := models.ForecastPoint{
				Date:     dates[s],
				Mean:     mean,
				StdDev:   features.StdDev(draws),
				CI80Low:  percentile(draws, 0.10),
				CI80High: percentile(draws, 0.90),
				CI95Low:  percentile(draws, 0.025),
				CI95High: percentile(draws, 0.975),
			}
			clampIntervals(&p)
			points[s] = p
		}
	}

	blendedRMSE := 0.0
	names := make([]string, 0, len(survivors))
	for _, art := range survivors {
		blendedRMSE += weights[art.ModelName] * art.BacktestRMSE
		names = append(names, art.ModelName)
	}
	// MAE and MAPE are derived from the blended RMSE under a normal error
	// assumption; the last point forecast anchors the percentage scale.
	mae := blendedRMSE * math.Sqrt(2/math.Pi)
	mape := 0.0
	if lastMean := points[horizonSteps-1].Mean; lastMean != 0 {
		mape = mae / math.Abs(lastMean) * 100
	}

	methodology := fmt.Sprintf("inverse-RMSE weighted blend of [%s]; intervals from %d-draw Monte Carlo, regime multiplier %.2f",
		strings.Join(names, ", "), c.cfg.MonteCarloSamples, regimeMultiplier)
	if len(survivors) == 1 {
		methodology = fmt.Sprintf("single-model fallback (%s); parametric interval, regime multiplier %.2f", names[0], regimeMultiplier)
	}

	return models.ForecastPackage{
		Symbol:       symbol,
		HorizonSteps: horizonSteps,
		Frequency:    freq,
		Series:       points,
		Methodology:  methodology,
		ErrorMetrics: models.ErrorMetrics{RMSE: blendedRMSE, MAE: mae, MAPE: mape},
		Weights:      weights,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

func (c *Combiner) newRNG() *rand.Rand {
	seed := c.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// inverseRMSEWeights computes weight_i = (1/rmse_i) / sum_j (1/rmse_j).
func inverseRMSEWeights(artifacts []models.ModelArtifact) map[string]float64 {
	total := 0.0
	for _, art := range artifacts {
		total += 1 / art.BacktestRMSE
	}
	out := make(map[string]float64, len(artifacts))
	for _, art := range artifacts {
		out[art.ModelName] = (1 / art.BacktestRMSE) / total
	}
	return out
}

// percentile returns the interpolated empirical quantile of sorted draws.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// clampIntervals enforces ci95_low <= ci80_low <= mean <= ci80_high <= ci95_high
// against sampling noise in the empirical percentiles.
func clampIntervals(p *models.ForecastPoint) {
	if p.CI80Low > p.Mean {
		p.CI80Low = p.Mean
	}
	if p.CI80High < p.Mean {
		p.CI80High = p.Mean
	}
	if p.CI95Low > p.CI80Low {
		p.CI95Low = p.CI80Low
	}
	if p.CI95High < p.CI80High {
		p.CI95High = p.CI80High
	}
	if p.StdDev < 0 {
		p.StdDev = 0
	}
}
