package di

import (
	"fmt"

	"FinBoard/internal/domain/models"
	"FinBoard/internal/domain/repository"
	"FinBoard/internal/handler/api"
	internalrepo "FinBoard/internal/repository"
	"FinBoard/internal/service/alphavantage"
	icache "FinBoard/internal/service/cache"
	"FinBoard/internal/service/demo"
	"FinBoard/internal/service/finnhub"
	"FinBoard/internal/service/ratelimit"
	"FinBoard/internal/usecase"
	pkgcache "FinBoard/pkg/cache"
	"FinBoard/pkg/config"
	xhttp "FinBoard/pkg/http"
	pkgkafka "FinBoard/pkg/kafka"
	"FinBoard/pkg/logger"
	"FinBoard/pkg/metrics"
	"FinBoard/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideRedisCache connects to Redis when the snapshot store or the response
// cache needs it, and returns nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if cfg.Storage.Backend != "redis" && cfg.Cache.Backend != "layered" {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix+":cache"),
		pkgcache.WithRedisPool(cfg.Redis.Pool.Size, cfg.Redis.Pool.MinIdle, cfg.Redis.Pool.WaitTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideSnapshotStore selects the dashboard persistence backend.
func ProvideSnapshotStore(cfg *config.Config, rc *pkgcache.RedisCache) (repository.SnapshotStore, error) {
	switch cfg.Storage.Backend {
	case "redis":
		if rc == nil {
			return nil, fmt.Errorf("snapshot store: redis is not connected")
		}
		return internalrepo.NewRedisSnapshotStore(rc.Client(), cfg.Redis.Prefix), nil
	default:
		store, err := internalrepo.NewFileSnapshotStore(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("snapshot store: %w", err)
		}
		return store, nil
	}
}

// ProvideKafkaProducer creates a Kafka producer, or nil when the change feed
// is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	ev := cfg.Events
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      ev.Brokers,
		RequiredAcks: ev.RequiredAcks,
		Compression:  ev.Compression,
		MaxAttempts:  ev.Producer.MaxAttempts,
		Linger:       ev.Producer.Linger,
		BatchSize:    ev.Producer.BatchSize,
		BatchBytes:   ev.Producer.BatchBytes,
		WriteTimeout: ev.Producer.WriteTimeout,
		ReadTimeout:  ev.Producer.ReadTimeout,
		Async:        ev.Producer.Async,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher ships dashboard changes to Kafka when a producer exists.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Events.Topic)
}

// ProvideResponseCache builds the 60s response cache, in memory or layered
// over Redis.
func ProvideResponseCache(cfg *config.Config, rc *pkgcache.RedisCache) *icache.ResponseCache {
	var store pkgcache.Service
	if cfg.Cache.Backend == "layered" && rc != nil {
		store = pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(cfg.Cache.MaxEntries))
	} else {
		store = pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MaxEntries))
	}
	return icache.NewResponseCache(store, cfg.Cache.TTL)
}

// ProvideQuoteProviders creates the live market data clients.
func ProvideQuoteProviders(cfg *config.Config) []repository.QuoteProvider {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Providers.Timeout))
	return []repository.QuoteProvider{
		alphavantage.New(client, cfg.Providers.AlphaVantage.BaseURL),
		finnhub.New(client, cfg.Providers.Finnhub.BaseURL),
	}
}

func ProvideDemoGenerator() *demo.Generator {
	return demo.New()
}

// ProvideStockData creates the data access layer.
func ProvideStockData(
	cfg *config.Config,
	rc *icache.ResponseCache,
	providers []repository.QuoteProvider,
	gen *demo.Generator,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.StockData {
	return usecase.NewStockData(rc, providers, gen, m, l, cfg.Data.MaxConcurrency)
}

// ProvideDashboard creates the dashboard store, seeded with configured keys.
func ProvideDashboard(
	cfg *config.Config,
	store repository.SnapshotStore,
	events repository.EventPublisher,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Dashboard {
	d := usecase.NewDashboard(store, events, m, l, usecase.WithSnapshotKey(cfg.Storage.Key))
	d.SeedAPIConfig(models.APIConfig{
		AlphaVantageKey: cfg.Providers.AlphaVantage.APIKey,
		FinnhubKey:      cfg.Providers.Finnhub.APIKey,
	})
	return d
}

func ProvideUpdateHub(cfg *config.Config) *usecase.UpdateHub {
	return usecase.NewUpdateHub(cfg.Stream.BufferSize)
}

// ProvideRefresher creates the polling engine and keeps it in step with the
// dashboard's widgets.
func ProvideRefresher(data *usecase.StockData, d *usecase.Dashboard, hub *usecase.UpdateHub, l *logger.Logger) *usecase.Refresher {
	r := usecase.NewRefresher(data, d.CredentialFor, hub, l)
	d.Subscribe(r.Sync)
	return r
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.Refill)
}

// ProvideRouter builds every HTTP handler.
func ProvideRouter(
	cfg *config.Config,
	l *logger.Logger,
	d *usecase.Dashboard,
	data *usecase.StockData,
	r *usecase.Refresher,
	hub *usecase.UpdateHub,
	rl *ratelimit.Limiter,
) api.Router {
	return api.NewRouter(
		api.NewDashboardHandler(l, d, r),
		api.NewDataHandler(l, data, d, rl),
		api.NewStreamHandler(l, hub, cfg.Stream.PingInterval),
	)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, router api.Router, l *logger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	xhttp.SetValidator(models.Validator())
	return xhttp.NewServer(router,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS, cfg.Server.CORSOrigins...),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server. Resources close in reverse
// dependency order: the store and feed before the Redis connection.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	d *usecase.Dashboard,
	data *usecase.StockData,
	r *usecase.Refresher,
	hub *usecase.UpdateHub,
	srv *xhttp.Server,
	rl *ratelimit.Limiter,
	store repository.SnapshotStore,
	events repository.EventPublisher,
	rc *pkgcache.RedisCache,
) *server.App {
	closers := []server.Closer{
		{Name: "snapshot store", Closer: store},
		{Name: "event publisher", Closer: events},
	}
	if rc != nil {
		closers = append(closers, server.Closer{Name: "redis", Closer: rc})
	}
	return server.New(cfg, l, d, data, r, hub, srv, rl, closers...)
}
