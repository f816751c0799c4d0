package api

import (
	"errors"

	models "RateCast/internal/domain/models"
	"RateCast/internal/service/ratelimit"
	"RateCast/internal/usecase"
	xhttp "RateCast/pkg/http"
	xlogger "RateCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ForecastEchoHandler exposes the forecasting and monitoring engine over
// HTTP. Requests are bound and validated before reaching the usecase layer.
type ForecastEchoHandler struct {
	logger  *xlogger.Logger
	engine  *usecase.Engine
	monitor *usecase.Monitor
	limiter *ratelimit.Limiter
}

func NewForecastEchoHandler(logger *xlogger.Logger, engine *usecase.Engine, monitor *usecase.Monitor) *ForecastEchoHandler {
	return &ForecastEchoHandler{logger: logger, engine: engine, monitor: monitor, limiter: ratelimit.New()}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/v1")
	// Forecast cycles fit several models per call; throttle per client.
	g.POST("/forecast", h.Forecast, ratelimit.Middleware(h.limiter, 5, 0.5))
	g.GET("/drift", h.Drift)
	g.GET("/regime", h.Regime)
	g.POST("/performance", h.Performance)
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pkg, err := h.engine.RunForecastCycle(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("forecast cycle error",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return domainErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, pkg)
}

func (h *ForecastEchoHandler) Drift(c echo.Context) error {
	req := &models.DriftCheckRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.monitor.RunDriftCheck(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("drift check error",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return domainErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *ForecastEchoHandler) Regime(c echo.Context) error {
	req := &models.RegimeCheckRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.monitor.RunRegimeCheck(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("regime check error",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return domainErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *ForecastEchoHandler) Performance(c echo.Context) error {
	req := &models.PerformanceCheckRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	alerts, err := h.monitor.RunPerformanceCheck(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("performance check error",
			xlogger.String("model", req.ModelName), xlogger.Error(err))
		return domainErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"model_name": req.ModelName,
		"horizon":    req.Horizon,
		"alerts":     alerts,
	})
}

// domainErrorResponse maps engine error types onto HTTP statuses. Data
// shortfalls and bad configuration are client-visible; everything else
// stays a 500.
func domainErrorResponse(c echo.Context, err error) error {
	var insufficient *models.DataInsufficientError
	if errors.As(err, &insufficient) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_DATA_INSUFFICIENT", "", insufficient.Error(), 422).WithError(err))
	}
	var exhausted *models.EnsembleExhaustedError
	if errors.As(err, &exhausted) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_ENSEMBLE_EXHAUSTED", "", exhausted.Error(), 503).WithError(err))
	}
	var confErr *models.ConfigurationError
	if errors.As(err, &confErr) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_CONFIGURATION", confErr.Field, confErr.Error(), 500).WithError(err))
	}
	return xhttp.AppErrorResponse(c, err)
}
