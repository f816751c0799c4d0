package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"RateCast/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"ratecast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled         bool     `yaml:"enabled"`
		Brokers         []string `yaml:"brokers"`
		ForecastTopic   string   `yaml:"forecast_topic" default:"ratecast.forecasts"`
		MonitoringTopic string   `yaml:"monitoring_topic" default:"ratecast.monitoring"`
		RequiredAcks    int      `yaml:"required_acks" default:"1"`
		Compression     string   `yaml:"compression" default:"snappy"`
		Producer        struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		RegimeTTL time.Duration `yaml:"regime_ttl" default:"5m"`
		DriftTTL  time.Duration `yaml:"drift_ttl" default:"15m"`
	} `yaml:"cache"`
	// Covariates maps a target symbol to the exogenous series fed into the
	// multivariate adapter and the regime detector.
	Covariates map[string][]string `yaml:"covariates"`
	Retrain    struct {
		QueueName  string        `yaml:"queue_name" default:"ratecast:retrain"`
		Workers    int           `yaml:"workers" default:"1"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
	} `yaml:"retrain"`
	Engine EngineConfig `yaml:"engine"`
}

// EngineConfig carries every tunable threshold of the forecasting and
// monitoring engine. It is passed explicitly into each component
// constructor; there are no module-level defaults to mutate.
type EngineConfig struct {
	BaselineWindow           int     `yaml:"baseline_window" default:"90" validate:"gt=0"`
	TestWindow               int     `yaml:"test_window" default:"30" validate:"gt=0"`
	DriftAlpha               float64 `yaml:"drift_alpha" default:"0.05" validate:"gt=0,lt=1"`
	VolThresholdHigh         float64 `yaml:"vol_threshold_high" default:"2.0" validate:"gt=0"`
	HighVolSlope             float64 `yaml:"high_vol_slope" default:"0.35" validate:"gt=0"`
	RegimeLookbackDays       int     `yaml:"regime_lookback_days" default:"90" validate:"gt=0"`
	PolicyProximityDays      int     `yaml:"policy_proximity_days" default:"3" validate:"gte=0"`
	CommodityShockPct        float64 `yaml:"commodity_shock_pct" default:"8.0" validate:"gt=0"`
	CorrelationBreakDelta    float64 `yaml:"correlation_break_delta" default:"0.4" validate:"gt=0,lte=2"`
	DegradationWarningPct    float64 `yaml:"degradation_warning_pct" default:"15" validate:"gt=0"`
	DegradationCriticalPct   float64 `yaml:"degradation_critical_pct" default:"30" validate:"gt=0"`
	DirectionalAccuracyFloor float64 `yaml:"directional_accuracy_floor" default:"0.55" validate:"gt=0,lt=1"`
	MinTrainSize             int     `yaml:"min_train_size" default:"252" validate:"gt=0"`
	MonteCarloSamples        int     `yaml:"monte_carlo_samples" default:"5000" validate:"gte=5000"`
	MaxAROrder               int     `yaml:"max_ar_order" default:"5" validate:"gte=1,lte=20"`
	VAROrder                 int     `yaml:"var_order" default:"2" validate:"gte=1,lte=10"`
	TreeRounds               int     `yaml:"tree_rounds" default:"150" validate:"gte=10"`
	TreeLearningRate         float64 `yaml:"tree_learning_rate" default:"0.05" validate:"gt=0,lte=1"`
	TreeMaxDepth             int     `yaml:"tree_max_depth" default:"3" validate:"gte=1,lte=8"`
	// Seed fixes the Monte Carlo RNG when non-zero; zero seeds from the clock.
	Seed int64 `yaml:"seed"`
}

var validate = validator.New()

// Validate checks engine thresholds plus the cross-field rules the tag
// language cannot express.
func (ec *EngineConfig) Validate() error {
	if err := validate.Struct(ec); err != nil {
		return err
	}
	if ec.DegradationCriticalPct <= ec.DegradationWarningPct {
		return fmt.Errorf("degradation_critical_pct must exceed degradation_warning_pct")
	}
	return nil
}

// Load reads and parses a YAML configuration file, applying struct defaults
// before validation.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns a configuration with every default applied and no file
// read. Used by tests and library callers that wire the engine directly.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	c.Environment = "dev"
	return &c
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("ENGINE_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Engine.Seed = seed
		}
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}
