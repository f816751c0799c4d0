package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"RateCast/internal/domain/models"
	pkgch "RateCast/pkg/clickhouse"
	applogger "RateCast/pkg/logger"
)

// CHRateStore implements RateStore backed by ClickHouse. Rate and covariate
// series share one table; covariates are just series under their own symbol.
type CHRateStore struct {
	db *sql.DB
	ch *pkgch.Client
	l  *applogger.Logger
}

func NewCHRateStore(ch *pkgch.Client) *CHRateStore {
	return &CHRateStore{db: ch.DB(), ch: ch}
}

// SetLogger injects a structured logger.
func (s *CHRateStore) SetLogger(l *applogger.Logger) { s.l = l }

var schemaStatements = []string{
	`CREATE DATABASE IF NOT EXISTS ratecast`,
	`CREATE TABLE IF NOT EXISTS ratecast.rates (
        symbol LowCardinality(String),
        date   Date,
        value  Float64
    ) ENGINE = ReplacingMergeTree
    ORDER BY (symbol, date)`,
	`CREATE TABLE IF NOT EXISTS ratecast.policy_events (
        symbol      LowCardinality(String),
        event_date  Date,
        description String
    ) ENGINE = ReplacingMergeTree
    ORDER BY (symbol, event_date)`,
	`CREATE TABLE IF NOT EXISTS ratecast.model_baselines (
        model_name           LowCardinality(String),
        horizon              Int32,
        rmse                 Float64,
        mae                  Float64,
        mape                 Float64,
        directional_accuracy Float64,
        sample_size          Int32,
        captured_at          DateTime
    ) ENGINE = MergeTree
    ORDER BY (model_name, horizon, captured_at)`,
	`CREATE TABLE IF NOT EXISTS ratecast.forecasts (
        symbol        LowCardinality(String),
        horizon_steps Int32,
        frequency     LowCardinality(String),
        generated_at  DateTime,
        payload       String
    ) ENGINE = MergeTree
    ORDER BY (symbol, generated_at)`,
}

// Init creates the database and tables. Idempotent.
func (s *CHRateStore) Init(ctx context.Context) error {
	if err := s.ch.InitSchema(ctx, schemaStatements); err != nil {
		return fmt.Errorf("rate store init: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse rate store initialized")
	}
	return nil
}

func (s *CHRateStore) GetRateSeries(ctx context.Context, symbol string, n int) (models.TimeSeries, error) {
	return s.loadSeries(ctx, symbol, n)
}

func (s *CHRateStore) GetCovariateSeries(ctx context.Context, symbol string, n int) (models.TimeSeries, error) {
	return s.loadSeries(ctx, symbol, n)
}

func (s *CHRateStore) loadSeries(ctx context.Context, symbol string, n int) (models.TimeSeries, error) {
	start := time.Now()
	const q = `
        SELECT date, value
        FROM ratecast.rates FINAL
        WHERE symbol = ?
        ORDER BY date DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse rate series query error",
				applogger.String("symbol", symbol),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return models.TimeSeries{}, fmt.Errorf("get rate series: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Observation, 0, n)
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.Date, &o.Value); err != nil {
			return models.TimeSeries{}, fmt.Errorf("scan observation: %w", err)
		}
		tmp = append(tmp, o)
	}
	if err := rows.Err(); err != nil {
		return models.TimeSeries{}, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse rate series ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return models.TimeSeries{Symbol: symbol, Observations: tmp}, nil
}

func (s *CHRateStore) GetPolicyCalendar(ctx context.Context, symbol string) ([]models.PolicyEvent, error) {
	const q = `
        SELECT event_date, description
        FROM ratecast.policy_events FINAL
        WHERE symbol = ?
        ORDER BY event_date ASC
    `
	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		return nil, fmt.Errorf("get policy calendar: %w", err)
	}
	defer rows.Close()

	out := make([]models.PolicyEvent, 0, 16)
	for rows.Next() {
		var e models.PolicyEvent
		if err := rows.Scan(&e.Date, &e.Description); err != nil {
			return nil, fmt.Errorf("scan policy event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *CHRateStore) GetBaseline(ctx context.Context, modelName string, horizon int) (models.BaselineMetrics, error) {
	const q = `
        SELECT rmse, mae, mape, directional_accuracy, sample_size, captured_at
        FROM ratecast.model_baselines
        WHERE model_name = ? AND horizon = ?
        ORDER BY captured_at DESC
        LIMIT 1
    `
	var b models.BaselineMetrics
	row := s.db.QueryRowContext(ctx, q, modelName, horizon)
	if err := row.Scan(&b.RMSE, &b.MAE, &b.MAPE, &b.DirectionalAccuracy, &b.SampleSize, &b.CapturedAt); err != nil {
		if err == sql.ErrNoRows {
			return b, fmt.Errorf("no baseline for model %s at horizon %d", modelName, horizon)
		}
		return b, fmt.Errorf("get baseline: %w", err)
	}
	return b, nil
}

func (s *CHRateStore) StoreForecast(ctx context.Context, pkg models.ForecastPackage) error {
	payload, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("marshal forecast: %w", err)
	}
	const q = `
        INSERT INTO ratecast.forecasts
            (symbol, horizon_steps, frequency, generated_at, payload)
        VALUES (?, ?, ?, ?, ?)
    `
	if _, err := s.db.ExecContext(ctx, q,
		pkg.Symbol, pkg.HorizonSteps, string(pkg.Frequency), pkg.GeneratedAt, string(payload)); err != nil {
		return fmt.Errorf("store forecast: %w", err)
	}
	if s.l != nil {
		s.l.Info("forecast stored",
			applogger.String("symbol", pkg.Symbol),
			applogger.Int("horizon", pkg.HorizonSteps),
		)
	}
	return nil
}

func (s *CHRateStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHRateStore) Close() error {
	return s.ch.Close()
}
