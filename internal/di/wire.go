//go:build wireinject
// +build wireinject

package di

import (
	"RateCast/pkg/config"
	"RateCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisClient,
		ProvideCache,

		// Repositories
		ProvideRateStore,
		ProvideReportPublisher,
		ProvideRetrainQueue,

		// Engine services
		ProvideAdapters,
		ProvideCombiner,
		ProvideRegimeDetector,
		ProvideDriftDetector,
		ProvidePerformanceMonitor,

		// Use cases
		ProvideEngine,
		ProvideMonitor,

		// HTTP surface and application server
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
