package usecase

import (
	"context"
	"fmt"

	"RateCast/internal/domain/models"
	"RateCast/pkg/logger"
	"RateCast/pkg/queue"
)

// RetrainJob consumes retraining triggers and refits the ensemble on the
// freshest data by running a full forecast cycle for the flagged symbol.
type RetrainJob struct {
	engine   *Engine
	horizon  int
	lookback int
	log      *logger.Logger
}

func NewRetrainJob(engine *Engine, horizon, lookback int, log *logger.Logger) *RetrainJob {
	return &RetrainJob{engine: engine, horizon: horizon, lookback: lookback, log: log}
}

func (j *RetrainJob) Name() string { return "retrain" }

func (j *RetrainJob) Type() string { return RetrainMessageType }

func (j *RetrainJob) Handle(ctx context.Context, payload interface{}) error {
	trigger, err := queue.ParsePayload[RetrainTrigger](payload)
	if err != nil {
		return fmt.Errorf("parse retrain trigger: %w", err)
	}

	j.log.Info("retraining ensemble",
		logger.String("symbol", trigger.Symbol),
		logger.String("reason", trigger.Reason))

	_, err = j.engine.RunForecastCycle(ctx, models.ForecastRequest{
		Symbol:    trigger.Symbol,
		Horizon:   j.horizon,
		Frequency: string(models.FrequencyDaily),
		Lookback:  j.lookback,
	})
	if err != nil {
		return fmt.Errorf("refit %s: %w", trigger.Symbol, err)
	}
	return nil
}
