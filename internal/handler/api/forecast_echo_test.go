package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RateCast/internal/domain/models"
	domsvc "RateCast/internal/domain/service"
	"RateCast/internal/services/drift"
	"RateCast/internal/services/ensemble"
	"RateCast/internal/services/perf"
	"RateCast/internal/services/regime"
	"RateCast/internal/usecase"
	"RateCast/pkg/config"
	xlogger "RateCast/pkg/logger"
)

type stubStore struct {
	series   models.TimeSeries
	baseline models.BaselineMetrics
}

func (s *stubStore) Init(ctx context.Context) error { return nil }

func (s *stubStore) GetRateSeries(ctx context.Context, symbol string, n int) (models.TimeSeries, error) {
	return s.series, nil
}

func (s *stubStore) GetCovariateSeries(ctx context.Context, symbol string, n int) (models.TimeSeries, error) {
	return models.TimeSeries{}, fmt.Errorf("covariate %s not found", symbol)
}

func (s *stubStore) GetPolicyCalendar(ctx context.Context, symbol string) ([]models.PolicyEvent, error) {
	return nil, nil
}

func (s *stubStore) GetBaseline(ctx context.Context, modelName string, horizon int) (models.BaselineMetrics, error) {
	if s.baseline.SampleSize == 0 {
		return models.BaselineMetrics{}, fmt.Errorf("no baseline for model %s at horizon %d", modelName, horizon)
	}
	return s.baseline, nil
}

func (s *stubStore) StoreForecast(ctx context.Context, pkg models.ForecastPackage) error { return nil }
func (s *stubStore) Health(ctx context.Context) error                                   { return nil }
func (s *stubStore) Close() error                                                       { return nil }

type stubMetrics struct{}

func (stubMetrics) RecordCycle(string, float64)        {}
func (stubMetrics) RecordAdapterFailure(string)        {}
func (stubMetrics) RecordAlert(string)                 {}
func (stubMetrics) RecordForecastMean(string, float64) {}
func (stubMetrics) RecordError(string)                 {}

type stubAdapter struct{ horizonSeen int }

func (a *stubAdapter) Name() string { return "ar_garch" }

func (a *stubAdapter) FitAndForecast(ctx context.Context, series models.TimeSeries, exogenous map[string]models.TimeSeries, horizonSteps int) (models.ModelArtifact, error) {
	a.horizonSeen = horizonSteps
	points := make([]float64, horizonSteps)
	stds := make([]float64, horizonSteps)
	for i := range points {
		points[i] = 4000
		stds[i] = 25
	}
	return models.ModelArtifact{ModelName: "ar_garch", PointForecast: points, ResidualStd: stds, BacktestRMSE: 8.2}, nil
}

func calmSeries(n int) models.TimeSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]models.Observation, n)
	v := 4000.0
	for i := 0; i < n; i++ {
		obs[i] = models.Observation{Date: start.AddDate(0, 0, i), Value: v}
		if i%2 == 0 {
			v *= math.Exp(0.001)
		} else {
			v *= math.Exp(-0.001)
		}
	}
	return models.TimeSeries{Symbol: "USDCOP", Observations: obs}
}

func newTestServer(t *testing.T, store *stubStore) *echo.Echo {
	t.Helper()
	cfg := config.Default().Engine
	cfg.Seed = 7
	l, err := xlogger.New(&xlogger.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)

	combiner, err := ensemble.NewCombiner(cfg, l)
	require.NoError(t, err)
	regimeDet, err := regime.NewDetector(cfg, l)
	require.NoError(t, err)
	driftDet, err := drift.NewDetector(cfg, l)
	require.NoError(t, err)
	perfMon, err := perf.NewMonitor(cfg, l)
	require.NoError(t, err)

	engine := usecase.NewEngine(store, nil, stubMetrics{},
		[]domsvc.ModelAdapter{&stubAdapter{}},
		combiner, regimeDet, driftDet, perfMon, cfg, l)
	monitor := usecase.NewMonitor(engine, nil, time.Minute, time.Minute)

	e := echo.New()
	NewForecastEchoHandler(l, engine, monitor).RegisterRoutes(e)
	return e
}

type apiEnvelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, e *echo.Echo, method, target, body string) apiEnvelope {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestForecastEndpoint(t *testing.T) {
	e := newTestServer(t, &stubStore{series: calmSeries(400)})

	env := doRequest(t, e, http.MethodPost, "/v1/forecast",
		`{"symbol":"USDCOP","horizon":30,"frequency":"daily","lookback":500}`)
	require.Equal(t, http.StatusOK, env.Status)

	var pkg models.ForecastPackage
	require.NoError(t, json.Unmarshal(env.Data, &pkg))
	assert.Equal(t, "USDCOP", pkg.Symbol)
	assert.Len(t, pkg.Series, 30)
}

func TestForecastEndpointValidation(t *testing.T) {
	e := newTestServer(t, &stubStore{series: calmSeries(400)})

	env := doRequest(t, e, http.MethodPost, "/v1/forecast", `{"symbol":"USDCOP","horizon":13}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Contains(t, string(env.Data), "ERR_ONEOF")
}

func TestForecastEndpointInsufficientData(t *testing.T) {
	e := newTestServer(t, &stubStore{series: calmSeries(60)})

	env := doRequest(t, e, http.MethodPost, "/v1/forecast", `{"symbol":"USDCOP"}`)
	assert.Equal(t, 422, env.Status)
	assert.Contains(t, string(env.Data), "ERR_DATA_INSUFFICIENT")
}

func TestDriftEndpoint(t *testing.T) {
	e := newTestServer(t, &stubStore{series: calmSeries(400)})

	env := doRequest(t, e, http.MethodGet, "/v1/drift?symbol=USDCOP", "")
	require.Equal(t, http.StatusOK, env.Status)

	var report models.DriftReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, models.DriftNone, report.Severity)
}

func TestDriftEndpointMissingSymbol(t *testing.T) {
	e := newTestServer(t, &stubStore{series: calmSeries(400)})

	env := doRequest(t, e, http.MethodGet, "/v1/drift", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Contains(t, string(env.Data), "ERR_REQUIRED")
}

func TestRegimeEndpoint(t *testing.T) {
	e := newTestServer(t, &stubStore{series: calmSeries(400)})

	env := doRequest(t, e, http.MethodGet, "/v1/regime?symbol=USDCOP&lookback=240", "")
	require.Equal(t, http.StatusOK, env.Status)

	var report models.RegimeReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, models.RegimeNormal, report.Regime)
	assert.Equal(t, 1.0, report.VolatilityMultiplier)
}

func TestPerformanceEndpoint(t *testing.T) {
	store := &stubStore{
		series:   calmSeries(400),
		baseline: models.BaselineMetrics{RMSE: 10, MAE: 7.9, MAPE: 0.2, DirectionalAccuracy: 0.62, SampleSize: 120},
	}
	e := newTestServer(t, store)

	env := doRequest(t, e, http.MethodPost, "/v1/performance",
		`{"model_name":"ar_garch","horizon":30,"rmse":14.0,"mae":7.9,"mape":0.2,"directional_accuracy":0.62}`)
	require.Equal(t, http.StatusOK, env.Status)
	assert.Contains(t, string(env.Data), "CRITICAL")
}
