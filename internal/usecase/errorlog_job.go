package usecase

import (
	"context"
	"fmt"

	domrepo "RateCast/internal/domain/repository"
	"RateCast/pkg/logger"
	"RateCast/pkg/queue"
)

// ErrorLogMessageType identifies aggregated error-log batches on the queue.
const ErrorLogMessageType = "error_logs"

// ErrorLogJob drains aggregated error logs collected by the logger and
// surfaces them as error counters, so repeated failures show up in
// dashboards even when individual log lines are sampled away.
type ErrorLogJob struct {
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewErrorLogJob(metrics domrepo.Metrics, log *logger.Logger) *ErrorLogJob {
	return &ErrorLogJob{metrics: metrics, log: log}
}

func (j *ErrorLogJob) Name() string { return "error_log_drain" }

func (j *ErrorLogJob) Type() string { return ErrorLogMessageType }

func (j *ErrorLogJob) Handle(ctx context.Context, payload interface{}) error {
	entries, err := queue.ParsePayload[[]logger.AggregatedLogEntry](payload)
	if err != nil {
		return fmt.Errorf("parse aggregated logs: %w", err)
	}
	for _, e := range *entries {
		for i := 0; i < e.Count; i++ {
			j.metrics.RecordError("logged_" + e.Level)
		}
		if e.Count > 1 {
			j.log.Warn("repeated error",
				logger.String("message", e.Message),
				logger.String("caller", e.Caller),
				logger.Int("count", e.Count))
		}
	}
	return nil
}
