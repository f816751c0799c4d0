package ensemble

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RateCast/internal/domain/models"
	"RateCast/pkg/config"
	xlogger "RateCast/pkg/logger"
)

func testCombiner(t *testing.T) *Combiner {
	t.Helper()
	cfg := config.Default().Engine
	cfg.Seed = 42
	log, err := xlogger.New(&xlogger.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	c, err := NewCombiner(cfg, log)
	require.NoError(t, err)
	return c
}

func flatArtifact(name string, point, std, rmse float64, horizon int) models.ModelArtifact {
	points := make([]float64, horizon)
	stds := make([]float64, horizon)
	for i := range points {
		points[i] = point
		stds[i] = std
	}
	return models.ModelArtifact{ModelName: name, PointForecast: points, ResidualStd: stds, BacktestRMSE: rmse}
}

func TestInverseRMSEWeights(t *testing.T) {
	arts := []models.ModelArtifact{
		{ModelName: "ar_garch", BacktestRMSE: 8.2},
		{ModelName: "var", BacktestRMSE: 8.9},
		{ModelName: "gbt", BacktestRMSE: 32.5},
	}
	w := inverseRMSEWeights(arts)

	assert.InDelta(t, 0.460, w["ar_garch"], 0.002)
	assert.InDelta(t, 0.424, w["var"], 0.002)
	assert.InDelta(t, 0.116, w["gbt"], 0.002)

	sum := 0.0
	for _, v := range w {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestCombineZeroSurvivors(t *testing.T) {
	c := testCombiner(t)
	last := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	arts := []models.ModelArtifact{
		{ModelName: "ar_garch", BacktestRMSE: -1},
		flatArtifact("var", 4000, 10, 0, 7),
	}
	_, err := c.Combine(context.Background(), "USDCOP", arts, 1.0, 7, models.FrequencyDaily, last)

	var exhausted *models.EnsembleExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempted)
}

func TestCombineSingleSurvivorParametric(t *testing.T) {
	c := testCombiner(t)
	last := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	mult := 1.5

	pkg, err := c.Combine(context.Background(), "USDCOP",
		[]models.ModelArtifact{flatArtifact("ar_garch", 4000, 20, 9, 5)},
		mult, 5, models.FrequencyDaily, last)
	require.NoError(t, err)

	require.Len(t, pkg.Series, 5)
	assert.Contains(t, pkg.Methodology, "single-model fallback")
	assert.InDelta(t, 1.0, pkg.Weights["ar_garch"], 1e-12)

	p := pkg.Series[0]
	sd := 20 * mult
	assert.InDelta(t, 4000.0, p.Mean, 1e-9)
	assert.InDelta(t, sd, p.StdDev, 1e-9)
	assert.InDelta(t, 4000-1.2816*sd, p.CI80Low, 1e-9)
	assert.InDelta(t, 4000+1.9600*sd, p.CI95High, 1e-9)
}

func TestCombineIntervalOrdering(t *testing.T) {
	c := testCombiner(t)
	last := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	arts := []models.ModelArtifact{
		flatArtifact("ar_garch", 4000, 25, 8.2, 7),
		flatArtifact("var", 4050, 35, 8.9, 7),
		flatArtifact("gbt", 3950, 60, 32.5, 7),
	}
	pkg, err := c.Combine(context.Background(), "USDCOP", arts, 1.2, 7, models.FrequencyDaily, last)
	require.NoError(t, err)
	require.Len(t, pkg.Series, 7)

	for i, p := range pkg.Series {
		assert.LessOrEqual(t, p.CI95Low, p.CI80Low, "step %d", i)
		assert.LessOrEqual(t, p.CI80Low, p.Mean, "step %d", i)
		assert.LessOrEqual(t, p.Mean, p.CI80High, "step %d", i)
		assert.LessOrEqual(t, p.CI80High, p.CI95High, "step %d", i)
		assert.Greater(t, p.StdDev, 0.0, "step %d", i)
		assert.False(t, p.Date.Before(last), "step %d", i)
	}
	assert.Contains(t, pkg.Methodology, "inverse-RMSE weighted blend")
	assert.Equal(t, 7, pkg.HorizonSteps)
}

func TestCombineDeterministicWithSeed(t *testing.T) {
	last := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	arts := []models.ModelArtifact{
		flatArtifact("ar_garch", 4000, 25, 8.2, 7),
		flatArtifact("var", 4050, 35, 8.9, 7),
	}

	first, err := testCombiner(t).Combine(context.Background(), "USDCOP", arts, 1.0, 7, models.FrequencyDaily, last)
	require.NoError(t, err)
	second, err := testCombiner(t).Combine(context.Background(), "USDCOP", arts, 1.0, 7, models.FrequencyDaily, last)
	require.NoError(t, err)

	for i := range first.Series {
		assert.Equal(t, first.Series[i].CI95Low, second.Series[i].CI95Low, "step %d", i)
		assert.Equal(t, first.Series[i].CI95High, second.Series[i].CI95High, "step %d", i)
	}
}

func TestCombineMultiplierWidensIntervals(t *testing.T) {
	last := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	arts := []models.ModelArtifact{
		flatArtifact("ar_garch", 4000, 25, 8.2, 7),
		flatArtifact("var", 4050, 35, 8.9, 7),
	}

	calm, err := testCombiner(t).Combine(context.Background(), "USDCOP", arts, 1.0, 7, models.FrequencyDaily, last)
	require.NoError(t, err)
	stressed, err := testCombiner(t).Combine(context.Background(), "USDCOP", arts, 2.0, 7, models.FrequencyDaily, last)
	require.NoError(t, err)

	for i := range calm.Series {
		calmWidth := calm.Series[i].CI95High - calm.Series[i].CI95Low
		stressedWidth := stressed.Series[i].CI95High - stressed.Series[i].CI95Low
		assert.Greater(t, stressedWidth, calmWidth, "step %d", i)
	}
}

func TestCombineSubUnityMultiplierFloored(t *testing.T) {
	last := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	art := flatArtifact("ar_garch", 4000, 20, 9, 3)

	pkg, err := testCombiner(t).Combine(context.Background(), "USDCOP",
		[]models.ModelArtifact{art}, 0.5, 3, models.FrequencyDaily, last)
	require.NoError(t, err)
	// a multiplier below one never narrows the interval
	assert.InDelta(t, 20.0, pkg.Series[0].StdDev, 1e-9)
}
