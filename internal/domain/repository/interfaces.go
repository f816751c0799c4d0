package repository

import (
	"context"

	"RateCast/internal/domain/models"
)

// RateStore loads prepared series and stored baselines, and persists issued
// forecasts for later accuracy evaluation. All storage I/O lives behind this
// interface so the engine itself never touches the network or disk.
type RateStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	GetRateSeries(ctx context.Context, symbol string, n int) (models.TimeSeries, error)
	GetCovariateSeries(ctx context.Context, symbol string, n int) (models.TimeSeries, error)
	GetPolicyCalendar(ctx context.Context, symbol string) ([]models.PolicyEvent, error)
	GetBaseline(ctx context.Context, modelName string, horizon int) (models.BaselineMetrics, error)
	StoreForecast(ctx context.Context, pkg models.ForecastPackage) error
	Health(ctx context.Context) error
	Close() error
}

// ReportPublisher hands finished packages and monitoring verdicts to the
// external reporting/notification collaborators.
type ReportPublisher interface {
	PublishForecast(ctx context.Context, pkg models.ForecastPackage) error
	PublishMonitoring(ctx context.Context, bundle models.MonitoringBundle) error
	Close() error
}

// Metrics records operational counters for the forecast service.
type Metrics interface {
	RecordCycle(symbol string, seconds float64)
	RecordAdapterFailure(model string)
	RecordAlert(severity string)
	RecordForecastMean(symbol string, value float64)
	RecordError(kind string)
}
