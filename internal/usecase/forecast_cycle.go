package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RateCast/internal/domain/models"
	domrepo "RateCast/internal/domain/repository"
	domsvc "RateCast/internal/domain/service"
	"RateCast/pkg/config"
	"RateCast/pkg/logger"
	"RateCast/pkg/queue"
)

// Engine orchestrates one forecast or monitoring cycle end to end. All
// collaborators are injected; the engine owns no I/O of its own.
type Engine struct {
	store      domrepo.RateStore
	publisher  domrepo.ReportPublisher
	metrics    domrepo.Metrics
	adapters   []domsvc.ModelAdapter
	combiner   domsvc.EnsembleCombiner
	regime     domsvc.RegimeDetector
	drift      domsvc.DriftDetector
	perf       domsvc.PerformanceMonitor
	retrainQ   queue.QueueService
	cfg        config.EngineConfig
	log        *logger.Logger
	covariates map[string][]string
}

type EngineOption func(*Engine)

// WithCovariates sets the target-to-exogenous symbol mapping. The commodity
// series named first doubles as the regime detector's shock input.
func WithCovariates(m map[string][]string) EngineOption {
	return func(e *Engine) { e.covariates = m }
}

// WithRetrainQueue attaches the queue that receives retraining triggers.
// Without it, retrain recommendations are logged but not enqueued.
func WithRetrainQueue(q queue.QueueService) EngineOption {
	return func(e *Engine) { e.retrainQ = q }
}

func NewEngine(
	store domrepo.RateStore,
	publisher domrepo.ReportPublisher,
	metrics domrepo.Metrics,
	adapters []domsvc.ModelAdapter,
	combiner domsvc.EnsembleCombiner,
	regime domsvc.RegimeDetector,
	drift domsvc.DriftDetector,
	perf domsvc.PerformanceMonitor,
	cfg config.EngineConfig,
	log *logger.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		store:      store,
		publisher:  publisher,
		metrics:    metrics,
		adapters:   adapters,
		combiner:   combiner,
		regime:     regime,
		drift:      drift,
		perf:       perf,
		cfg:        cfg,
		log:        log,
		covariates: map[string][]string{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type adapterResult struct {
	artifact models.ModelArtifact
	err      error
	name     string
}

// RunForecastCycle loads the rate series, classifies the current regime,
// fits every adapter concurrently, and blends the survivors into a package.
// A failed adapter is dropped with a log line, never a cycle abort; only
// zero survivors aborts the cycle.
func (e *Engine) RunForecastCycle(ctx context.Context, req models.ForecastRequest) (models.ForecastPackage, error) {
	start := time.Now()

	series, err := e.store.GetRateSeries(ctx, req.Symbol, req.Lookback)
	if err != nil {
		e.metrics.RecordError("load_series")
		return models.ForecastPackage{}, fmt.Errorf("load rate series: %w", err)
	}
	if series.Len() < e.cfg.MinTrainSize {
		return models.ForecastPackage{}, &models.DataInsufficientError{
			Component: "forecast_cycle", Need: e.cfg.MinTrainSize, Got: series.Len(),
		}
	}

	exogenous := e.loadCovariates(ctx, req.Symbol, req.Lookback)

	regimeReport, err := e.regimeFor(ctx, req.Symbol, series, exogenous)
	if err != nil {
		// Regime detection is advisory. Fall back to neutral width.
		e.log.Warn("regime detection failed, using neutral multiplier",
			logger.String("symbol", req.Symbol), logger.Error(err))
		regimeReport = models.RegimeReport{
			Symbol:               req.Symbol,
			Regime:               models.RegimeUnknown,
			VolatilityMultiplier: 1.0,
			GeneratedAt:          time.Now().UTC(),
		}
	}

	artifacts := e.fitAll(ctx, series, exogenous, req.Horizon)

	pkg, err := e.combiner.Combine(ctx, req.Symbol, artifacts,
		regimeReport.VolatilityMultiplier, req.Horizon,
		models.Frequency(req.Frequency), series.LastDate())
	if err != nil {
		e.metrics.RecordError("combine")
		return models.ForecastPackage{}, err
	}

	if err := e.store.StoreForecast(ctx, pkg); err != nil {
		// Persistence failure does not invalidate the forecast itself.
		e.metrics.RecordError("store_forecast")
		e.log.Error("store forecast", logger.String("symbol", req.Symbol), logger.Error(err))
	}
	if e.publisher != nil {
		if err := e.publisher.PublishForecast(ctx, pkg); err != nil {
			e.metrics.RecordError("publish_forecast")
			e.log.Error("publish forecast", logger.String("symbol", req.Symbol), logger.Error(err))
		}
	}

	if len(pkg.Series) > 0 {
		e.metrics.RecordForecastMean(req.Symbol, pkg.Series[len(pkg.Series)-1].Mean)
	}
	e.metrics.RecordCycle(req.Symbol, time.Since(start).Seconds())
	e.log.Info("forecast cycle complete",
		logger.String("symbol", req.Symbol),
		logger.Int("horizon", req.Horizon),
		logger.String("regime", string(regimeReport.Regime)),
		logger.Int("models", len(pkg.Weights)),
		logger.Duration("elapsed", time.Since(start)))

	return pkg, nil
}

// fitAll runs every adapter concurrently and collects the survivors in the
// registration order of the adapters, so weight maps stay deterministic.
func (e *Engine) fitAll(ctx context.Context, series models.TimeSeries, exogenous map[string]models.TimeSeries, horizon int) []models.ModelArtifact {
	results := make([]adapterResult, len(e.adapters))

	var wg sync.WaitGroup
	for i, a := range e.adapters {
		wg.Add(1)
		go func(i int, a domsvc.ModelAdapter) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = adapterResult{name: a.Name(), err: fmt.Errorf("adapter panic: %v", r)}
				}
			}()
			art, err := a.FitAndForecast(ctx, series, exogenous, horizon)
			results[i] = adapterResult{artifact: art, err: err, name: a.Name()}
		}(i, a)
	}
	wg.Wait()

	artifacts := make([]models.ModelArtifact, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			e.metrics.RecordAdapterFailure(r.name)
			e.log.Warn("adapter dropped for cycle",
				logger.String("model", r.name),
				logger.String("symbol", series.Symbol),
				logger.Error(r.err))
			continue
		}
		artifacts = append(artifacts, r.artifact)
	}
	return artifacts
}

// loadCovariates fetches the configured exogenous series for a symbol.
// A missing covariate is logged and skipped; adapters that require one
// report their own convergence error downstream.
func (e *Engine) loadCovariates(ctx context.Context, symbol string, lookback int) map[string]models.TimeSeries {
	names := e.covariates[symbol]
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]models.TimeSeries, len(names))
	for _, name := range names {
		cs, err := e.store.GetCovariateSeries(ctx, name, lookback)
		if err != nil {
			e.log.Warn("covariate unavailable",
				logger.String("symbol", symbol),
				logger.String("covariate", name),
				logger.Error(err))
			continue
		}
		out[name] = cs
	}
	return out
}

// regimeFor runs the regime detector with the first covariate acting as the
// commodity reference series, when one exists.
func (e *Engine) regimeFor(ctx context.Context, symbol string, series models.TimeSeries, exogenous map[string]models.TimeSeries) (models.RegimeReport, error) {
	var commodity *models.TimeSeries
	for _, name := range e.covariates[symbol] {
		if cs, ok := exogenous[name]; ok {
			commodity = &cs
			break
		}
	}
	calendar, err := e.store.GetPolicyCalendar(ctx, symbol)
	if err != nil {
		e.log.Warn("policy calendar unavailable",
			logger.String("symbol", symbol), logger.Error(err))
		calendar = nil
	}
	return e.regime.Detect(ctx, series, commodity, calendar)
}
