package regime

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

func testDetector(t *testing.T) *Detector {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	d, err := NewDetector(config.Default().Engine, log)
	require.NoError(t, err)
	return d
}

func seriesFromReturns(symbol string, start float64, returns []float64, startDate time.Time) models.TimeSeries {
	obs := make([]models.Observation, 0, len(returns)+1)
	obs = append(obs, models.Observation{Date: startDate, Value: start})
	v := start
	date := startDate
	for _, r := range returns {
		v *= math.Exp(r)
		date = date.AddDate(0, 0, 1)
		obs = append(obs, models.Observation{Date: date, Value: v})
	}
	return models.TimeSeries{Symbol: symbol, Observations: obs}
}

// alternating returns keep the rolling volatility perfectly flat.
func alternatingReturns(n int, magnitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = magnitude
		} else {
			out[i] = -magnitude
		}
	}
	return out
}

func TestDetectShortSeriesUnknown(t *testing.T) {
	d := testDetector(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	series := seriesFromReturns("USDCOP", 4000, alternatingReturns(50, 0.001), start)

	report, err := d.Detect(context.Background(), series, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RegimeUnknown, report.Regime)
	assert.Equal(t, 1.0, report.VolatilityMultiplier)
	assert.Equal(t, -1, report.Signals.PolicyEventProximityDays)
}

func TestDetectCalmSeriesNormal(t *testing.T) {
	d := testDetector(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	series := seriesFromReturns("USDCOP", 4000, alternatingReturns(150, 0.001), start)

	report, err := d.Detect(context.Background(), series, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RegimeNormal, report.Regime)
	assert.Equal(t, 1.0, report.VolatilityMultiplier)
	assert.GreaterOrEqual(t, report.Confidence, 20.0)
	assert.LessOrEqual(t, report.Confidence, 100.0)
}

func TestDetectVolatilitySpikeHighVol(t *testing.T) {
	d := testDetector(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	returns := alternatingReturns(200, 0.001)
	for i := 180; i < 200; i++ {
		if i%2 == 0 {
			returns[i] = 0.03
		} else {
			returns[i] = -0.03
		}
	}
	series := seriesFromReturns("USDCOP", 4000, returns, start)

	report, err := d.Detect(context.Background(), series, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RegimeHighVol, report.Regime)
	assert.GreaterOrEqual(t, report.VolatilityMultiplier, 1.2)
	assert.LessOrEqual(t, report.VolatilityMultiplier, 1.9)
	assert.Greater(t, report.Signals.VolZScore, 2.0)
	assert.LessOrEqual(t, report.Confidence, 100.0)
}

func TestDetectPolicyEventOutranksHighVol(t *testing.T) {
	d := testDetector(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	returns := alternatingReturns(200, 0.001)
	for i := 180; i < 200; i++ {
		if i%2 == 0 {
			returns[i] = 0.03
		} else {
			returns[i] = -0.03
		}
	}
	series := seriesFromReturns("USDCOP", 4000, returns, start)
	calendar := []models.PolicyEvent{{Date: series.LastDate().AddDate(0, 0, 1), Description: "central bank rate decision"}}

	report, err := d.Detect(context.Background(), series, nil, calendar)
	require.NoError(t, err)

	assert.Equal(t, models.RegimePolicyEvent, report.Regime)
	assert.Equal(t, 2.0, report.VolatilityMultiplier)
	assert.Equal(t, 1, report.Signals.PolicyEventProximityDays)
	assert.LessOrEqual(t, report.Confidence, 100.0)
}

func TestDetectCommodityShock(t *testing.T) {
	d := testDetector(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rng := rand.New(rand.NewSource(11))
	n := 220
	targetReturns := make([]float64, n)
	commodityReturns := make([]float64, n)
	for i := 0; i < n; i++ {
		r := rng.NormFloat64() * 0.01
		targetReturns[i] = r
		if i < n-20 {
			commodityReturns[i] = r
		} else {
			// correlation flips sign and the commodity gaps upward
			commodityReturns[i] = -r + 0.03
		}
	}
	series := seriesFromReturns("USDCOP", 4000, targetReturns, start)
	commodity := seriesFromReturns("BRENT", 80, commodityReturns, start)

	report, err := d.Detect(context.Background(), series, &commodity, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RegimeCommodityShock, report.Regime)
	assert.Equal(t, 1.5, report.VolatilityMultiplier)
	assert.True(t, report.Signals.CorrelationBreak)
	assert.Greater(t, math.Abs(report.Signals.CommodityChangePct), 8.0)
	assert.LessOrEqual(t, report.Confidence, 100.0)
}

func TestDetectSparseCommodityOverlapWithShortLookback(t *testing.T) {
	log, err := xlogger.New(&xlogger.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	cfg := config.Default().Engine
	cfg.RegimeLookbackDays = 10
	require.NoError(t, cfg.Validate())
	d, err := NewDetector(cfg, log)
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	series := seriesFromReturns("USDCOP", 4000, alternatingReturns(120, 0.001), start)

	// 40 commodity observations but only 15 of them land on target dates,
	// so the aligned overlap is shorter than the trailing vol window.
	commodity := seriesFromReturns("BRENT", 80, alternatingReturns(24, 0.002), start.AddDate(-1, 0, 0))
	for i := 0; i < 15; i++ {
		commodity.Observations = append(commodity.Observations, models.Observation{
			Date:  start.AddDate(0, 0, 100+i),
			Value: 80 + float64(i),
		})
	}

	report, err := d.Detect(context.Background(), series, &commodity, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RegimeNormal, report.Regime)
	assert.False(t, report.Signals.CorrelationBreak)
}

func TestClassifyBranches(t *testing.T) {
	d := testDetector(t)

	tests := []struct {
		name       string
		signals    models.RegimeSignals
		regime     models.Regime
		multiplier float64
	}{
		{
			name:       "policy event wins over everything",
			signals:    models.RegimeSignals{VolZScore: 2.5, CommodityChangePct: 12, CorrelationBreak: true, PolicyEventProximityDays: 1},
			regime:     models.RegimePolicyEvent,
			multiplier: 2.0,
		},
		{
			name:       "commodity shock wins over high vol",
			signals:    models.RegimeSignals{VolZScore: 3.0, CommodityChangePct: -10, CorrelationBreak: true, PolicyEventProximityDays: -1},
			regime:     models.RegimeCommodityShock,
			multiplier: 1.5,
		},
		{
			name:       "distant policy event does not trigger",
			signals:    models.RegimeSignals{VolZScore: 0.2, PolicyEventProximityDays: 10},
			regime:     models.RegimeNormal,
			multiplier: 1.0,
		},
		{
			name:       "commodity move without correlation break stays normal",
			signals:    models.RegimeSignals{VolZScore: 0.5, CommodityChangePct: 15, CorrelationBreak: false, PolicyEventProximityDays: -1},
			regime:     models.RegimeNormal,
			multiplier: 1.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := models.RegimeReport{Signals: tt.signals}
			d.classify(&report)
			assert.Equal(t, tt.regime, report.Regime)
			assert.Equal(t, tt.multiplier, report.VolatilityMultiplier)
			assert.GreaterOrEqual(t, report.Confidence, 0.0)
			assert.LessOrEqual(t, report.Confidence, 100.0)
		})
	}
}

func TestClassifyHighVolMultiplierScalesWithZ(t *testing.T) {
	d := testDetector(t)

	mild := models.RegimeReport{Signals: models.RegimeSignals{VolZScore: 2.1, PolicyEventProximityDays: -1}}
	d.classify(&mild)
	extreme := models.RegimeReport{Signals: models.RegimeSignals{VolZScore: 10, PolicyEventProximityDays: -1}}
	d.classify(&extreme)

	assert.Equal(t, models.RegimeHighVol, mild.Regime)
	assert.Equal(t, models.RegimeHighVol, extreme.Regime)
	assert.Greater(t, extreme.VolatilityMultiplier, mild.VolatilityMultiplier)
	assert.Equal(t, 1.9, extreme.VolatilityMultiplier)
	assert.Equal(t, 100.0, extreme.Confidence)
}

func TestNearestEventDays(t *testing.T) {
	ref := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	calendar := []models.PolicyEvent{
		{Date: ref.AddDate(0, 0, -9)},
		{Date: ref.AddDate(0, 0, 2)},
	}
	days, ok := nearestEventDays(ref, calendar)
	require.True(t, ok)
	assert.Equal(t, 2, days)

	_, ok = nearestEventDays(ref, nil)
	assert.False(t, ok)
}
