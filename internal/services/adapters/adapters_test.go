package adapters

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RateCast/internal/domain/models"
	"RateCast/pkg/config"
	xlogger "RateCast/pkg/logger"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// randomWalkSeries produces a geometric random walk with a small drift,
// long enough to clear the minimum training size.
func randomWalkSeries(symbol string, n int, seed int64) models.TimeSeries {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]models.Observation, n)
	v := 4000.0
	for i := 0; i < n; i++ {
		obs[i] = models.Observation{Date: start.AddDate(0, 0, i), Value: v}
		v *= math.Exp(0.0002 + 0.01*rng.NormFloat64())
	}
	return models.TimeSeries{Symbol: symbol, Observations: obs}
}

// correlatedSeries builds a covariate sharing the target's dates whose
// returns partially track the target's.
func correlatedSeries(symbol string, target models.TimeSeries, seed int64) models.TimeSeries {
	rng := rand.New(rand.NewSource(seed))
	obs := make([]models.Observation, target.Len())
	v := 80.0
	prev := target.Observations[0].Value
	for i, o := range target.Observations {
		obs[i] = models.Observation{Date: o.Date, Value: v}
		r := math.Log(o.Value / prev)
		prev = o.Value
		v *= math.Exp(0.5*r + 0.008*rng.NormFloat64())
	}
	return models.TimeSeries{Symbol: symbol, Observations: obs}
}

func checkArtifact(t *testing.T, art models.ModelArtifact, name string, horizon int) {
	t.Helper()
	assert.Equal(t, name, art.ModelName)
	require.Len(t, art.PointForecast, horizon)
	require.Len(t, art.ResidualStd, horizon)
	for s := 0; s < horizon; s++ {
		assert.Greater(t, art.PointForecast[s], 0.0, "step %d", s)
		assert.Greater(t, art.ResidualStd[s], 0.0, "step %d", s)
	}
	assert.Greater(t, art.BacktestRMSE, 0.0)
}

func TestARGARCHAdapterForecast(t *testing.T) {
	a, err := NewARGARCHAdapter(config.Default().Engine, testLogger(t))
	require.NoError(t, err)

	art, err := a.FitAndForecast(context.Background(), randomWalkSeries("USDCOP", 400, 3), nil, 30)
	require.NoError(t, err)
	checkArtifact(t, art, "ar_garch", 30)

	// uncertainty accumulates over the horizon
	assert.Greater(t, art.ResidualStd[29], art.ResidualStd[0])
}

func TestARGARCHAdapterShortSeries(t *testing.T) {
	a, err := NewARGARCHAdapter(config.Default().Engine, testLogger(t))
	require.NoError(t, err)

	_, err = a.FitAndForecast(context.Background(), randomWalkSeries("USDCOP", 100, 3), nil, 30)
	var insufficient *models.DataInsufficientError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "ar_garch", insufficient.Component)
	assert.Equal(t, 100, insufficient.Got)
}

func TestARGARCHAdapterCancelledContext(t *testing.T) {
	a, err := NewARGARCHAdapter(config.Default().Engine, testLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.FitAndForecast(ctx, randomWalkSeries("USDCOP", 400, 3), nil, 30)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVARAdapterForecast(t *testing.T) {
	a, err := NewVARAdapter(config.Default().Engine, testLogger(t))
	require.NoError(t, err)

	target := randomWalkSeries("USDCOP", 400, 5)
	exogenous := map[string]models.TimeSeries{"BRENT": correlatedSeries("BRENT", target, 6)}

	art, err := a.FitAndForecast(context.Background(), target, exogenous, 15)
	require.NoError(t, err)
	checkArtifact(t, art, "var", 15)
}

func TestVARAdapterMissingCovariate(t *testing.T) {
	a, err := NewVARAdapter(config.Default().Engine, testLogger(t))
	require.NoError(t, err)

	_, err = a.FitAndForecast(context.Background(), randomWalkSeries("USDCOP", 400, 5), nil, 15)
	var convergence *models.ModelConvergenceError
	require.ErrorAs(t, err, &convergence)
	assert.Equal(t, "var", convergence.ModelName)
}

func TestVARAdapterSparseOverlap(t *testing.T) {
	a, err := NewVARAdapter(config.Default().Engine, testLogger(t))
	require.NoError(t, err)

	target := randomWalkSeries("USDCOP", 400, 5)
	// covariate dates never intersect the target's
	cov := randomWalkSeries("BRENT", 400, 7)
	for i := range cov.Observations {
		cov.Observations[i].Date = cov.Observations[i].Date.AddDate(10, 0, 0)
	}

	_, err = a.FitAndForecast(context.Background(), target, map[string]models.TimeSeries{"BRENT": cov}, 15)
	var insufficient *models.DataInsufficientError
	require.ErrorAs(t, err, &insufficient)
}

func TestTreeAdapterForecast(t *testing.T) {
	a, err := NewTreeAdapter(config.Default().Engine, testLogger(t))
	require.NoError(t, err)

	art, err := a.FitAndForecast(context.Background(), randomWalkSeries("USDCOP", 400, 9), nil, 30)
	require.NoError(t, err)
	checkArtifact(t, art, "gbt", 30)
}

func TestTreeAdapterShortSeries(t *testing.T) {
	a, err := NewTreeAdapter(config.Default().Engine, testLogger(t))
	require.NoError(t, err)

	_, err = a.FitAndForecast(context.Background(), randomWalkSeries("USDCOP", 200, 9), nil, 30)
	var insufficient *models.DataInsufficientError
	require.ErrorAs(t, err, &insufficient)
}

func TestAdapterConstructorsRejectBadConfig(t *testing.T) {
	cfg := config.Default().Engine
	cfg.MonteCarloSamples = 100

	var confErr *models.ConfigurationError

	_, err := NewARGARCHAdapter(cfg, testLogger(t))
	require.ErrorAs(t, err, &confErr)
	_, err = NewVARAdapter(cfg, testLogger(t))
	require.ErrorAs(t, err, &confErr)
	_, err = NewTreeAdapter(cfg, testLogger(t))
	require.ErrorAs(t, err, &confErr)
}
