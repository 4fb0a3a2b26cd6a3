//go:build wireinject
// +build wireinject

package di

import (
	"FinBoard/pkg/config"
	"FinBoard/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideKafkaProducer,

		// Repositories
		ProvideSnapshotStore,
		ProvideEventPublisher,

		// Data access
		ProvideResponseCache,
		ProvideQuoteProviders,
		ProvideDemoGenerator,
		ProvideStockData,

		// Use cases
		ProvideDashboard,
		ProvideUpdateHub,
		ProvideRefresher,

		// HTTP
		ProvideRateLimiter,
		ProvideRouter,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
