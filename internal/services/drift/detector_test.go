package drift

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RateCast/internal/domain/models"
	"RateCast/pkg/config"
	xlogger "RateCast/pkg/logger"
)

func testDetector(t *testing.T) *Detector {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	d, err := NewDetector(config.Default().Engine, log)
	require.NoError(t, err)
	return d
}

func seriesOf(symbol string, values []float64) models.TimeSeries {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]models.Observation, len(values))
	for i, v := range values {
		obs[i] = models.Observation{Date: start.AddDate(0, 0, i), Value: v}
	}
	return models.TimeSeries{Symbol: symbol, Observations: obs}
}

// sineLevels produces a periodic series around a level; the period divides
// both window lengths so baseline and recent windows share one empirical
// distribution.
func sineLevels(n int, level, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = level + amplitude*math.Sin(2*math.Pi*float64(i)/30)
	}
	return out
}

func TestDriftShortSeriesIsBenign(t *testing.T) {
	d := testDetector(t)
	report, err := d.GenerateDriftReport(context.Background(), seriesOf("USDCOP", sineLevels(40, 950, 10)))
	require.NoError(t, err)

	assert.Equal(t, models.DriftNone, report.Severity)
	assert.False(t, report.DriftDetected)
	assert.Empty(t, report.TestResults)
	assert.Equal(t, "No drift detected; continue normal operation.", report.Recommendation)
}

func TestDriftStableSeriesNone(t *testing.T) {
	d := testDetector(t)
	report, err := d.GenerateDriftReport(context.Background(), seriesOf("USDCOP", sineLevels(120, 950, 10)))
	require.NoError(t, err)

	assert.Equal(t, models.DriftNone, report.Severity)
	assert.False(t, report.DriftDetected)
	assert.Len(t, report.TestResults, 5)
	for name, tr := range report.TestResults {
		assert.False(t, tr.Failed, "test %s", name)
	}
	assert.Equal(t, 90, report.BaselineStats.N)
	assert.Equal(t, 30, report.RecentStats.N)
}

func TestDriftLocationShiftIsHigh(t *testing.T) {
	d := testDetector(t)
	values := append(sineLevels(90, 950, 10), sineLevels(30, 970, 10)...)

	report, err := d.GenerateDriftReport(context.Background(), seriesOf("USDCOP", values))
	require.NoError(t, err)

	assert.Equal(t, models.DriftHigh, report.Severity)
	assert.True(t, report.DriftDetected)
	assert.True(t, report.TestResults["welch_t"].Failed)
	assert.True(t, report.TestResults["kolmogorov_smirnov"].Failed)
	assert.Less(t, report.TestResults["welch_t"].PValue, 0.001)
	assert.Equal(t, "Severe drift detected; retrain models before the next forecast cycle.", report.Recommendation)
	assert.InDelta(t, 20.0, report.RecentStats.Mean-report.BaselineStats.Mean, 0.5)
}

func TestDriftVolatilityExpansionFlagsRatio(t *testing.T) {
	d := testDetector(t)
	values := append(sineLevels(90, 950, 5), sineLevels(30, 950, 20)...)

	report, err := d.GenerateDriftReport(context.Background(), seriesOf("USDCOP", values))
	require.NoError(t, err)

	ratio := report.TestResults["volatility_ratio"]
	assert.True(t, ratio.Failed)
	assert.Greater(t, ratio.Statistic, 1.5)
	assert.True(t, report.TestResults["variance_f"].Failed)
	assert.True(t, report.DriftDetected)
}

func TestDriftIsDeterministic(t *testing.T) {
	d := testDetector(t)
	values := append(sineLevels(90, 950, 10), sineLevels(30, 965, 12)...)
	series := seriesOf("USDCOP", values)

	first, err := d.GenerateDriftReport(context.Background(), series)
	require.NoError(t, err)
	second, err := d.GenerateDriftReport(context.Background(), series)
	require.NoError(t, err)

	assert.Equal(t, first.Severity, second.Severity)
	assert.Equal(t, first.TestResults, second.TestResults)
	assert.Equal(t, first.Recommendation, second.Recommendation)
}

func TestWelchTTest(t *testing.T) {
	same := sineLevels(60, 950, 10)
	_, p, err := welchTTest(same[:30], same[30:])
	require.NoError(t, err)
	assert.Greater(t, p, 0.5)

	shifted := sineLevels(30, 990, 10)
	tStat, p, err := welchTTest(same[:30], shifted)
	require.NoError(t, err)
	assert.Less(t, p, 1e-6)
	assert.Greater(t, math.Abs(tStat), 5.0)
}

func TestKSTest(t *testing.T) {
	same := sineLevels(60, 950, 10)
	d, p, err := ksTest(same[:30], same[30:])
	require.NoError(t, err)
	assert.InDelta(t, 0.0, d, 1e-12)
	assert.InDelta(t, 1.0, p, 1e-9)

	disjoint := sineLevels(30, 1050, 10)
	d, p, err = ksTest(same[:30], disjoint)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d, 1e-12)
	assert.Less(t, p, 1e-6)
}

func TestVarianceFTest(t *testing.T) {
	narrow := sineLevels(60, 950, 5)
	_, p, err := varianceFTest(narrow[:30], narrow[30:])
	require.NoError(t, err)
	assert.Greater(t, p, 0.5)

	wide := sineLevels(30, 950, 25)
	f, p, err := varianceFTest(narrow[:30], wide)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, f, 1e-6)
	assert.Less(t, p, 0.001)

	_, _, err = varianceFTest([]float64{1, 1, 1}, []float64{2, 3, 4})
	assert.Error(t, err)
}

func TestKSProbabilityBounds(t *testing.T) {
	assert.Equal(t, 1.0, ksProbability(0))
	assert.Less(t, ksProbability(3), 1e-6)
	p := ksProbability(0.8)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 1.0)
}
