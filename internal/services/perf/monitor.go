package perf

import (
	"context"
	"fmt"

	"RateCast/internal/domain/models"
	"RateCast/pkg/config"
	xlogger "RateCast/pkg/logger"
)

// Monitor compares live error metrics against the stored baseline and
// raises degradation alerts. Each tracked metric is judged independently;
// at most one alert fires per metric per call.
type Monitor struct {
	cfg config.EngineConfig
	log *xlogger.Logger
}

func NewMonitor(cfg config.EngineConfig, log *xlogger.Logger) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &models.ConfigurationError{Field: "engine", Reason: err.Error()}
	}
	return &Monitor{cfg: cfg, log: log}, nil
}

func (m *Monitor) CheckDegradation(ctx context.Context, modelName string, current models.LiveMetrics, baseline models.BaselineMetrics, horizon int) []models.PerformanceAlert {
	var alerts []models.PerformanceAlert

	checks := []struct {
		name            string
		current, stored float64
	}{
		{"rmse", current.RMSE, baseline.RMSE},
		{"mae", current.MAE, baseline.MAE},
		{"mape", current.MAPE, baseline.MAPE},
	}

	for _, c := range checks {
		if c.stored <= 0 {
			continue
		}
		pct := (c.current - c.stored) / c.stored * 100
		var severity models.AlertSeverity
		switch {
		case pct > m.cfg.DegradationCriticalPct:
			severity = models.AlertCritical
		case pct > m.cfg.DegradationWarningPct:
			severity = models.AlertWarning
		default:
			continue
		}
		alerts = append(alerts, models.PerformanceAlert{
			Severity:      severity,
			ModelName:     modelName,
			MetricName:    c.name,
			CurrentValue:  c.current,
			BaselineValue: c.stored,
			PctChange:     pct,
			Message: fmt.Sprintf("%s %s rose %.1f%% vs baseline at horizon %d (%.4f -> %.4f)",
				modelName, c.name, pct, horizon, c.stored, c.current),
		})
	}

	// Directional accuracy has an absolute floor, independent of the
	// relative change against baseline.
	if current.DirectionalAccuracy > 0 && current.DirectionalAccuracy < m.cfg.DirectionalAccuracyFloor {
		alerts = append(alerts, models.PerformanceAlert{
			Severity:      models.AlertWarning,
			ModelName:     modelName,
			MetricName:    "directional_accuracy",
			CurrentValue:  current.DirectionalAccuracy,
			BaselineValue: baseline.DirectionalAccuracy,
			PctChange:     0,
			Message: fmt.Sprintf("%s directional accuracy %.1f%% below %.0f%% floor at horizon %d",
				modelName, current.DirectionalAccuracy*100, m.cfg.DirectionalAccuracyFloor*100, horizon),
		})
	}

	if m.log != nil {
		for _, a := range alerts {
			m.log.Warn("performance degradation",
				xlogger.String("model", a.ModelName),
				xlogger.String("metric", a.MetricName),
				xlogger.String("severity", string(a.Severity)),
				xlogger.Any("pct_change", a.PctChange))
		}
	}
	return alerts
}
