//go:build wireinject
// +build wireinject

package di

import (
	"QuantSig/pkg/config"
	"QuantSig/pkg/server"

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
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideJobQueue,
		ProvideBytesCache,

		// Repositories
		ProvideTickStorage,
		ProvideTickPublisher,
		ProvideFinnhubStream,
		ProvideBarStore,
		ProvideSignalStore,
		ProvideBacktestStore,
		ProvideNewsProvider,
		ProvideIndicatorProvider,
		ProvideSignalPublisher,

		// Strategy and model services
		ProvideModelStore,
		ProvideEvaluators,
		ProvideEnsemble,

		// Use cases
		ProvideTickProcessor,
		ProvideTickCollector,
		ProvideKafkaTicksHandler,
		ProvideLifecycle,
		ProvideBacktestUseCase,
		ProvideSignalEngine,
		ProvideModelUseCase,
		ProvideScheduler,
		ProvideBarsUseCase,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
