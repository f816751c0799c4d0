package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RateCast/internal/domain/models"
	"RateCast/pkg/cache"
	"RateCast/pkg/logger"
)

// RetrainMessageType identifies retraining triggers on the queue.
const RetrainMessageType = "model_retrain"

// RetrainTrigger is the payload enqueued when monitoring recommends
// refitting the ensemble for a symbol.
type RetrainTrigger struct {
	Symbol      string    `json:"symbol"`
	Reason      string    `json:"reason"`
	Severity    string    `json:"severity"`
	RequestedAt time.Time `json:"requested_at"`
}

// Monitor bundles the three monitoring checks behind short-lived caches so
// repeated dashboard polls do not recompute statistics on identical data.
type Monitor struct {
	engine    *Engine
	cache     cache.Service
	regimeTTL time.Duration
	driftTTL  time.Duration
}

func NewMonitor(engine *Engine, c cache.Service, regimeTTL, driftTTL time.Duration) *Monitor {
	return &Monitor{engine: engine, cache: c, regimeTTL: regimeTTL, driftTTL: driftTTL}
}

// RunDriftCheck evaluates distribution drift on the recent window of a
// symbol's series. Results are cached per symbol for the configured TTL.
func (m *Monitor) RunDriftCheck(ctx context.Context, req models.DriftCheckRequest) (models.DriftReport, error) {
	key := cache.GenerateKeyWithParams("drift", req.Symbol, req.Lookback)
	if m.cache != nil {
		var cached models.DriftReport
		if err := m.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			m.engine.log.Warn("drift cache read failed", logger.Error(err))
		}
	}

	series, err := m.engine.store.GetRateSeries(ctx, req.Symbol, req.Lookback)
	if err != nil {
		m.engine.metrics.RecordError("load_series")
		return models.DriftReport{}, fmt.Errorf("load rate series: %w", err)
	}

	report, err := m.engine.drift.GenerateDriftReport(ctx, series)
	if err != nil {
		return models.DriftReport{}, err
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, report, m.driftTTL); err != nil {
			m.engine.log.Warn("drift cache write failed", logger.Error(err))
		}
	}
	return report, nil
}

// RunRegimeCheck classifies the current market regime for a symbol.
func (m *Monitor) RunRegimeCheck(ctx context.Context, req models.RegimeCheckRequest) (models.RegimeReport, error) {
	key := cache.GenerateKeyWithParams("regime", req.Symbol, req.Lookback)
	if m.cache != nil {
		var cached models.RegimeReport
		if err := m.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			m.engine.log.Warn("regime cache read failed", logger.Error(err))
		}
	}

	series, err := m.engine.store.GetRateSeries(ctx, req.Symbol, req.Lookback)
	if err != nil {
		m.engine.metrics.RecordError("load_series")
		return models.RegimeReport{}, fmt.Errorf("load rate series: %w", err)
	}

	exogenous := m.engine.loadCovariates(ctx, req.Symbol, req.Lookback)
	report, err := m.engine.regimeFor(ctx, req.Symbol, series, exogenous)
	if err != nil {
		return models.RegimeReport{}, err
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, report, m.regimeTTL); err != nil {
			m.engine.log.Warn("regime cache write failed", logger.Error(err))
		}
	}
	return report, nil
}

// RunPerformanceCheck compares caller-supplied live metrics against the
// stored baseline for a model and horizon. Alerts are returned and counted
// but never persisted.
func (m *Monitor) RunPerformanceCheck(ctx context.Context, req models.PerformanceCheckRequest) ([]models.PerformanceAlert, error) {
	baseline, err := m.engine.store.GetBaseline(ctx, req.ModelName, req.Horizon)
	if err != nil {
		m.engine.metrics.RecordError("load_baseline")
		return nil, fmt.Errorf("load baseline for %s: %w", req.ModelName, err)
	}

	current := models.LiveMetrics{
		RMSE:                req.RMSE,
		MAE:                 req.MAE,
		MAPE:                req.MAPE,
		DirectionalAccuracy: req.DirectionalAccuracy,
	}
	alerts := m.engine.perf.CheckDegradation(ctx, req.ModelName, current, baseline, req.Horizon)
	for _, a := range alerts {
		m.engine.metrics.RecordAlert(string(a.Severity))
	}
	return alerts, nil
}

// RunMonitoringCycle executes drift, regime, and performance checks for one
// symbol, publishes the combined bundle, and enqueues a retraining trigger
// when the verdicts warrant one. Individual check failures degrade the
// bundle rather than aborting it.
func (m *Monitor) RunMonitoringCycle(ctx context.Context, symbol string, lookback int, perfReqs []models.PerformanceCheckRequest) (models.MonitoringBundle, error) {
	bundle := models.MonitoringBundle{
		Symbol:      symbol,
		GeneratedAt: time.Now().UTC(),
	}

	drift, err := m.RunDriftCheck(ctx, models.DriftCheckRequest{Symbol: symbol, Lookback: lookback})
	if err != nil {
		m.engine.log.Warn("drift check failed", logger.String("symbol", symbol), logger.Error(err))
	} else {
		bundle.Drift = &drift
	}

	regime, err := m.RunRegimeCheck(ctx, models.RegimeCheckRequest{Symbol: symbol, Lookback: lookback})
	if err != nil {
		m.engine.log.Warn("regime check failed", logger.String("symbol", symbol), logger.Error(err))
	} else {
		bundle.Regime = &regime
	}

	for _, pr := range perfReqs {
		alerts, err := m.RunPerformanceCheck(ctx, pr)
		if err != nil {
			m.engine.log.Warn("performance check failed",
				logger.String("symbol", symbol),
				logger.String("model", pr.ModelName),
				logger.Error(err))
			continue
		}
		bundle.Alerts = append(bundle.Alerts, alerts...)
	}

	if bundle.Drift == nil && bundle.Regime == nil && len(perfReqs) > 0 && len(bundle.Alerts) == 0 {
		return bundle, fmt.Errorf("monitoring cycle for %s produced no verdicts", symbol)
	}

	bundle.RetrainRecommended, _ = retrainVerdict(bundle)
	if bundle.RetrainRecommended {
		m.enqueueRetrain(ctx, bundle)
	}

	if m.engine.publisher != nil {
		if err := m.engine.publisher.PublishMonitoring(ctx, bundle); err != nil {
			m.engine.metrics.RecordError("publish_monitoring")
			m.engine.log.Error("publish monitoring bundle",
				logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return bundle, nil
}

// retrainVerdict decides whether the bundle justifies refitting: drift at
// MEDIUM or above, any CRITICAL alert, or two or more WARNING alerts.
func retrainVerdict(b models.MonitoringBundle) (bool, string) {
	if b.Drift != nil {
		switch b.Drift.Severity {
		case models.DriftMedium, models.DriftHigh:
			return true, fmt.Sprintf("drift severity %s", b.Drift.Severity)
		}
	}
	warnings := 0
	for _, a := range b.Alerts {
		switch a.Severity {
		case models.AlertCritical:
			return true, fmt.Sprintf("critical degradation of %s %s", a.ModelName, a.MetricName)
		case models.AlertWarning:
			warnings++
		}
	}
	if warnings >= 2 {
		return true, fmt.Sprintf("%d degradation warnings", warnings)
	}
	return false, ""
}

func (m *Monitor) enqueueRetrain(ctx context.Context, b models.MonitoringBundle) {
	_, reason := retrainVerdict(b)
	severity := ""
	if b.Drift != nil {
		severity = string(b.Drift.Severity)
	}
	if m.engine.retrainQ == nil {
		m.engine.log.Warn("retrain recommended but no queue configured",
			logger.String("symbol", b.Symbol), logger.String("reason", reason))
		return
	}
	trigger := RetrainTrigger{
		Symbol:      b.Symbol,
		Reason:      reason,
		Severity:    severity,
		RequestedAt: time.Now().UTC(),
	}
	if err := m.engine.retrainQ.PublishMessage(ctx, RetrainMessageType, trigger); err != nil {
		m.engine.metrics.RecordError("enqueue_retrain")
		m.engine.log.Error("enqueue retrain trigger",
			logger.String("symbol", b.Symbol), logger.Error(err))
		return
	}
	m.engine.log.Info("retrain trigger enqueued",
		logger.String("symbol", b.Symbol), logger.String("reason", reason))
}
