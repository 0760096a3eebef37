//go:build wireinject
// +build wireinject

package di

import (
	"NiftyPulse/pkg/config"
	"NiftyPulse/pkg/server"

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

		// Repositories
		ProvideBarStorage,
		ProvideQualityLog,
		ProvideQualityPublisher,
		ProvideRedisCache,
		ProvideLiveQuoteStore,

		// Domain services
		ProvideCalendar,
		ProvideValidator,
		ProvideBarCache,
		ProvideConstituents,
		ProvideKiteClient,
		ProvideBarSource,
		ProvideQuoteStream,
		ProvideExportService,

		// Use cases
		ProvidePersister,
		ProvideManager,
		ProvideLiveCollector,
		ProvideKafkaBarsHandler,
		ProvideExportQueue,

		// HTTP and application server
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
