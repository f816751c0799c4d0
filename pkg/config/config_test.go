package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "ratecast", c.ClickHouse.Database)
	assert.Equal(t, "ratecast.forecasts", c.Kafka.ForecastTopic)
	assert.Equal(t, 252, c.Engine.MinTrainSize)
	assert.Equal(t, 5000, c.Engine.MonteCarloSamples)
}

func TestEngineConfigRejectsSmallMonteCarlo(t *testing.T) {
	ec := Default().Engine
	ec.MonteCarloSamples = 1000
	assert.Error(t, ec.Validate())
}

func TestEngineConfigCrossFieldThresholds(t *testing.T) {
	ec := Default().Engine
	ec.DegradationWarningPct = 30
	ec.DegradationCriticalPct = 15
	err := ec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "degradation_critical_pct")
}

func TestEngineConfigRejectsBadAlpha(t *testing.T) {
	ec := Default().Engine
	ec.DriftAlpha = 1.5
	assert.Error(t, ec.Validate())
}

func TestConfigRequiresBrokersWhenKafkaEnabled(t *testing.T) {
	c := Default()
	c.Kafka.Enabled = true
	c.Kafka.Brokers = nil
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.brokers")
}

func TestLoadParsesOverrides(t *testing.T) {
	content := []byte(`
environment: prod
server:
  port: 9090
covariates:
  USDCOP: [BRENT]
engine:
  seed: 42
  monte_carlo_samples: 8000
`)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, []string{"BRENT"}, c.Covariates["USDCOP"])
	assert.Equal(t, int64(42), c.Engine.Seed)
	assert.Equal(t, 8000, c.Engine.MonteCarloSamples)
	// untouched fields keep their defaults
	assert.Equal(t, "localhost", c.ClickHouse.Host)
	assert.Equal(t, 90, c.Engine.BaselineWindow)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: ''\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	content := []byte("environment: dev\n")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("CLICKHOUSE_HOST", "ch.internal")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, c.Server.Port)
	assert.Equal(t, "ch.internal", c.ClickHouse.Host)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestLoadWithEnvKeepsPortOnBadValue(t *testing.T) {
	content := []byte("environment: dev\n")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("SERVER_PORT", "not-a-port")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
}
