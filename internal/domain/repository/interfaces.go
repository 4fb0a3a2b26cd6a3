package repository

import (
	"context"

	"FinBoard/internal/domain/models"
)

// QuoteProvider is a live market-data source. Implementations return
// *models.APIError for every failure.
type QuoteProvider interface {
	Name() models.APIProvider
	Quote(ctx context.Context, symbol, apiKey string) (*models.StockQuote, *models.APIError)
	TimeSeries(ctx context.Context, symbol string, interval models.TimeInterval, apiKey string) ([]models.TimeSeriesPoint, *models.APIError)
}

// SnapshotStore persists the serialized dashboard under a key.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (data []byte, found bool, err error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

// EventPublisher ships dashboard changes to the change feed.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.DashboardEvent) error
	Close() error
}

type Metrics interface {
	RecordFetch(kind, source string)
	RecordProviderError(provider, code string)
	RecordCacheResult(kind string, hit bool)
	RecordWidgetCount(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
