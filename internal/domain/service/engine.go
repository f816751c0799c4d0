package service

import (
	"context"
	"time"

	"RateCast/internal/domain/models"
)

// ModelAdapter is an independent forecaster. Adapters are swappable and
// never assumed infallible: a failed fit is reported as an error and the
// caller drops the adapter for the cycle.
type ModelAdapter interface {
	Name() string
	FitAndForecast(ctx context.Context, series models.TimeSeries, exogenous map[string]models.TimeSeries, horizonSteps int) (models.ModelArtifact, error)
}

// EnsembleCombiner blends surviving adapter artifacts into the final
// forecast package with simulated confidence intervals.
type EnsembleCombiner interface {
	Combine(ctx context.Context, symbol string, artifacts []models.ModelArtifact, regimeMultiplier float64, horizonSteps int, freq models.Frequency, lastObserved time.Time) (models.ForecastPackage, error)
}

// RegimeDetector classifies current market conditions and emits the
// interval-widening multiplier consumed by the combiner.
type RegimeDetector interface {
	Detect(ctx context.Context, series models.TimeSeries, commodity *models.TimeSeries, calendar []models.PolicyEvent) (models.RegimeReport, error)
}

// DriftDetector compares a recent window of the input series against a
// baseline window using multiple statistical tests.
type DriftDetector interface {
	GenerateDriftReport(ctx context.Context, series models.TimeSeries) (models.DriftReport, error)
}

// PerformanceMonitor compares live accuracy metrics against a stored
// baseline and raises degradation alerts.
type PerformanceMonitor interface {
	CheckDegradation(ctx context.Context, modelName string, current models.LiveMetrics, baseline models.BaselineMetrics, horizon int) []models.PerformanceAlert
}
