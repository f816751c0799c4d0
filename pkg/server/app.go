package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RateCast/internal/domain/repository"
	"RateCast/pkg/config"
	xhttp "RateCast/pkg/http"
	applogger "RateCast/pkg/logger"
	"RateCast/pkg/queue"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	store      repository.RateStore
	publisher  repository.ReportPublisher
	retrainQ   *queue.RedisQueue
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	store repository.RateStore,
	publisher repository.ReportPublisher,
	retrainQ *queue.RedisQueue,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		store:     store,
		publisher: publisher,
		retrainQ:  retrainQ,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := a.store.Init(initCtx); err != nil {
		initCancel()
		return err
	}
	initCancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	a.registerHealth(a.httpServer.Echo())

	if a.retrainQ != nil {
		if err := a.retrainQ.Start(); err != nil {
			a.l.Error("retrain queue start error", applogger.Error(err))
			return err
		}
		a.l.Info("retrain queue started",
			applogger.Int("workers", a.cfg.Retrain.Workers),
			applogger.String("queue", a.cfg.Retrain.QueueName))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("ratecast started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.retrainQ != nil {
		if err := a.retrainQ.Stop(shutdownCtx); err != nil {
			a.l.Warn("retrain queue stop error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.l.Warn("publisher close error", applogger.Error(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.l.Warn("rate store close error", applogger.Error(err))
	}

	a.l.Info("shutdown complete")
	return nil
}

func (a *App) registerHealth(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.store.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded", "clickhouse": err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
