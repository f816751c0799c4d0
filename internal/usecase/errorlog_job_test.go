package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RateCast/pkg/logger"
)

func TestErrorLogJobCountsEntries(t *testing.T) {
	metrics := newFakeMetrics()
	job := NewErrorLogJob(metrics, testLogger(t))

	assert.Equal(t, ErrorLogMessageType, job.Type())

	entries := []logger.AggregatedLogEntry{
		{Level: "error", Message: "store forecast", Count: 3},
		{Level: "error", Message: "publish forecast", Count: 1},
	}
	err := job.Handle(context.Background(), entries)
	require.NoError(t, err)

	assert.Equal(t, 4, metrics.errors["logged_error"])
}

func TestErrorLogJobRejectsBadPayload(t *testing.T) {
	job := NewErrorLogJob(newFakeMetrics(), testLogger(t))
	err := job.Handle(context.Background(), 42)
	assert.Error(t, err)
}
