package di

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"RateCast/internal/domain/repository"
	domsvc "RateCast/internal/domain/service"
	"RateCast/internal/handler/api"
	internalrepo "RateCast/internal/repository"
	"RateCast/internal/services/adapters"
	"RateCast/internal/services/drift"
	"RateCast/internal/services/ensemble"
	"RateCast/internal/services/perf"
	"RateCast/internal/services/regime"
	"RateCast/internal/usecase"
	"RateCast/pkg/cache"
	pkgch "RateCast/pkg/clickhouse"
	"RateCast/pkg/config"
	pkgkafka "RateCast/pkg/kafka"
	applogger "RateCast/pkg/logger"
	"RateCast/pkg/metrics"
	"RateCast/pkg/queue"
	"RateCast/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client. Schema creation is
// deferred to the rate store's Init.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideRateStore creates the ClickHouse-backed rate store.
func ProvideRateStore(chClient *pkgch.Client, l *applogger.Logger) repository.RateStore {
	store := internalrepo.NewCHRateStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideReportPublisher creates the Kafka-backed publisher, or nil when
// Kafka is disabled. The engine treats a nil publisher as publish-nowhere.
func ProvideReportPublisher(cfg *config.Config) (repository.ReportPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.ForecastTopic, cfg.Kafka.MonitoringTopic), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisClient creates a shared Redis client, or nil when disabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideCache creates the report cache. Redis-backed layered cache when
// Redis is available, in-process memory cache otherwise.
func ProvideCache(cfg *config.Config) cache.Service {
	if cfg.Redis.Enabled {
		host, port := splitHostPort(cfg.Redis.Addr)
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(host),
			cache.WithRedisPort(port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
		)
		if err == nil {
			return cache.NewLayeredCache(rc)
		}
	}
	return cache.NewMemoryCache()
}

// ProvideRetrainQueue creates the Redis-backed retraining queue, or nil
// when Redis is disabled.
func ProvideRetrainQueue(cfg *config.Config, client *redis.Client, l *applogger.Logger) *queue.RedisQueue {
	if client == nil {
		return nil
	}
	return queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Retrain.Workers,
		RetryLimit: cfg.Retrain.RetryLimit,
		RetryDelay: cfg.Retrain.RetryDelay,
	}, client, queue.ModeProducerConsumer,
		queue.WithKeyPrefix(cfg.Retrain.QueueName))
}

// ProvideAdapters constructs the model roster in blend order.
func ProvideAdapters(cfg *config.Config, l *applogger.Logger) ([]domsvc.ModelAdapter, error) {
	ar, err := adapters.NewARGARCHAdapter(cfg.Engine, l)
	if err != nil {
		return nil, err
	}
	vr, err := adapters.NewVARAdapter(cfg.Engine, l)
	if err != nil {
		return nil, err
	}
	tr, err := adapters.NewTreeAdapter(cfg.Engine, l)
	if err != nil {
		return nil, err
	}
	return []domsvc.ModelAdapter{ar, vr, tr}, nil
}

// ProvideCombiner creates the ensemble combiner.
func ProvideCombiner(cfg *config.Config, l *applogger.Logger) (domsvc.EnsembleCombiner, error) {
	return ensemble.NewCombiner(cfg.Engine, l)
}

// ProvideRegimeDetector creates the regime detector.
func ProvideRegimeDetector(cfg *config.Config, l *applogger.Logger) (domsvc.RegimeDetector, error) {
	return regime.NewDetector(cfg.Engine, l)
}

// ProvideDriftDetector creates the drift detector.
func ProvideDriftDetector(cfg *config.Config, l *applogger.Logger) (domsvc.DriftDetector, error) {
	return drift.NewDetector(cfg.Engine, l)
}

// ProvidePerformanceMonitor creates the performance monitor.
func ProvidePerformanceMonitor(cfg *config.Config, l *applogger.Logger) (domsvc.PerformanceMonitor, error) {
	return perf.NewMonitor(cfg.Engine, l)
}

// ProvideEngine wires the forecast engine facade.
func ProvideEngine(
	store repository.RateStore,
	publisher repository.ReportPublisher,
	m repository.Metrics,
	adps []domsvc.ModelAdapter,
	combiner domsvc.EnsembleCombiner,
	regimeDet domsvc.RegimeDetector,
	driftDet domsvc.DriftDetector,
	perfMon domsvc.PerformanceMonitor,
	retrainQ *queue.RedisQueue,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Engine {
	opts := []usecase.EngineOption{}
	if retrainQ != nil {
		opts = append(opts, usecase.WithRetrainQueue(retrainQ))
	}
	if len(cfg.Covariates) > 0 {
		opts = append(opts, usecase.WithCovariates(cfg.Covariates))
	}
	return usecase.NewEngine(store, publisher, m, adps, combiner, regimeDet, driftDet, perfMon, cfg.Engine, l, opts...)
}

// ProvideMonitor wires the cached monitoring facade.
func ProvideMonitor(engine *usecase.Engine, c cache.Service, cfg *config.Config) *usecase.Monitor {
	return usecase.NewMonitor(engine, c, cfg.Cache.RegimeTTL, cfg.Cache.DriftTTL)
}

// ProvideHandler creates the Echo HTTP handler.
func ProvideHandler(l *applogger.Logger, engine *usecase.Engine, monitor *usecase.Monitor) *api.ForecastEchoHandler {
	return api.NewForecastEchoHandler(l, engine, monitor)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	store repository.RateStore,
	publisher repository.ReportPublisher,
	m repository.Metrics,
	retrainQ *queue.RedisQueue,
	engine *usecase.Engine,
	handler *api.ForecastEchoHandler,
) *server.App {
	app := server.New(cfg, l, store, publisher, retrainQ, handler)
	if retrainQ != nil {
		retrainQ.RegisterJob(usecase.NewRetrainJob(engine, 30, 1000, l))
		retrainQ.RegisterJob(usecase.NewErrorLogJob(m, l))
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          usecase.ErrorLogMessageType,
			Publisher:      retrainQ,
		})
	}
	return app
}

func splitHostPort(addr string) (string, int) {
	host, portStr, found := strings.Cut(addr, ":")
	if !found {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6379
	}
	return host, port
}
