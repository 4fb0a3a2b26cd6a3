package usecase

import (
	"context"
	"strings"
	"time"

	"FinBoard/internal/domain/models"
	drepo "FinBoard/internal/domain/repository"
	"FinBoard/internal/service/cache"
	"FinBoard/internal/service/demo"
	"FinBoard/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const defaultMaxConcurrency = 8

// StockData is the market-data access layer: response cache first, then
// demo synthesis when the credential carries no key, then the live provider.
// It never retries and never returns a Go error; failures travel inside the
// result as *models.APIError.
type StockData struct {
	cache          *cache.ResponseCache
	providers      map[models.APIProvider]drepo.QuoteProvider
	demo           *demo.Generator
	metrics        drepo.Metrics
	log            *logger.Logger
	maxConcurrency int
}

func NewStockData(
	rc *cache.ResponseCache,
	providers []drepo.QuoteProvider,
	gen *demo.Generator,
	metrics drepo.Metrics,
	log *logger.Logger,
	maxConcurrency int,
) *StockData {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	if log == nil {
		log = logger.Nop()
	}
	byName := make(map[models.APIProvider]drepo.QuoteProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &StockData{
		cache:          rc,
		providers:      byName,
		demo:           gen,
		metrics:        metrics,
		log:            log.Named("stock_data"),
		maxConcurrency: maxConcurrency,
	}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// FetchStockQuote returns a quote for symbol. Cache hits are perturbed on the
// way out; the cached value itself is left as is.
func (s *StockData) FetchStockQuote(ctx context.Context, symbol string, cred models.Credential) models.QuoteResult {
	start := time.Now()
	defer func() { s.metrics.RecordLatency("fetch_quote", time.Since(start).Seconds()) }()

	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return models.QuoteResult{Error: models.ErrInvalidSymbol()}
	}
	key := cache.QuoteKey(symbol)

	var cached models.StockQuote
	if s.lookup(ctx, "quote", key, &cached) {
		q := s.demo.Perturb(cached)
		s.metrics.RecordFetch("quote", "cache")
		return models.QuoteResult{Data: &q}
	}

	if cred.APIKey == "" {
		q := s.demo.Quote(symbol)
		s.store(ctx, key, q)
		s.metrics.RecordFetch("quote", "demo")
		return models.QuoteResult{Data: &q}
	}

	p, apiErr := s.provider(cred.Provider)
	if apiErr != nil {
		return models.QuoteResult{Error: apiErr}
	}
	q, apiErr := p.Quote(ctx, symbol, cred.APIKey)
	if apiErr != nil {
		s.providerFailed(p.Name(), "quote", symbol, apiErr)
		return models.QuoteResult{Error: apiErr}
	}
	s.store(ctx, key, q)
	s.metrics.RecordFetch("quote", "live")
	return models.QuoteResult{Data: q}
}

// FetchTimeSeries returns an ascending series for symbol. Cache hits are
// returned verbatim.
func (s *StockData) FetchTimeSeries(ctx context.Context, symbol string, interval models.TimeInterval, cred models.Credential) models.TimeSeriesResult {
	start := time.Now()
	defer func() { s.metrics.RecordLatency("fetch_timeseries", time.Since(start).Seconds()) }()

	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return models.TimeSeriesResult{Error: models.ErrInvalidSymbol()}
	}
	if !drepo.IsValidInterval(interval) {
		interval = drepo.DefaultInterval()
	}
	key := cache.TimeSeriesKey(symbol, interval)

	var cached []models.TimeSeriesPoint
	if s.lookup(ctx, "timeseries", key, &cached) {
		s.metrics.RecordFetch("timeseries", "cache")
		return models.TimeSeriesResult{Data: cached}
	}

	if cred.APIKey == "" {
		series := s.demo.TimeSeries(symbol, interval)
		s.store(ctx, key, series)
		s.metrics.RecordFetch("timeseries", "demo")
		return models.TimeSeriesResult{Data: series}
	}

	p, apiErr := s.provider(cred.Provider)
	if apiErr != nil {
		return models.TimeSeriesResult{Error: apiErr}
	}
	series, apiErr := p.TimeSeries(ctx, symbol, interval, cred.APIKey)
	if apiErr != nil {
		s.providerFailed(p.Name(), "timeseries", symbol, apiErr)
		return models.TimeSeriesResult{Error: apiErr}
	}
	s.store(ctx, key, series)
	s.metrics.RecordFetch("timeseries", "live")
	return models.TimeSeriesResult{Data: series}
}

// FetchMultipleQuotes fetches every symbol independently. Successes keep the
// input order; a failing symbol never fails the batch.
func (s *StockData) FetchMultipleQuotes(ctx context.Context, symbols []string, cred models.Credential) models.MultiQuoteResult {
	results := make([]models.QuoteResult, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			results[i] = s.FetchStockQuote(gctx, sym, cred)
			return nil
		})
	}
	_ = g.Wait()

	out := models.MultiQuoteResult{
		Data:   make([]models.StockQuote, 0, len(symbols)),
		Errors: make([]models.SymbolError, 0),
	}
	for i, r := range results {
		switch {
		case r.Data != nil:
			out.Data = append(out.Data, *r.Data)
		case r.Error != nil:
			out.Errors = append(out.Errors, models.SymbolError{Symbol: symbols[i], Error: r.Error})
		}
	}
	return out
}

func (s *StockData) provider(name models.APIProvider) (drepo.QuoteProvider, *models.APIError) {
	if name == "" {
		name = models.ProviderAlphaVantage
	}
	p, ok := s.providers[name]
	if !ok {
		s.metrics.RecordError("provider_missing")
		return nil, models.NewAPIError(models.CodeUnknown, "Unsupported provider "+string(name))
	}
	return p, nil
}

func (s *StockData) providerFailed(name models.APIProvider, kind, symbol string, apiErr *models.APIError) {
	s.metrics.RecordProviderError(string(name), string(apiErr.Code))
	s.log.Warn("provider fetch failed",
		logger.String("provider", string(name)),
		logger.String("kind", kind),
		logger.String("symbol", symbol),
		logger.String("code", string(apiErr.Code)),
		logger.String("message", apiErr.Message),
	)
}

// lookup treats cache failures as misses.
func (s *StockData) lookup(ctx context.Context, kind, key string, dest any) bool {
	hit, err := s.cache.Lookup(ctx, key, dest)
	if err != nil {
		s.metrics.RecordError("cache_read")
		s.log.Warn("cache lookup failed", logger.String("key", key), logger.Error(err))
		hit = false
	}
	s.metrics.RecordCacheResult(kind, hit)
	if hit {
		s.log.Debug("cache hit", logger.String("key", key))
	}
	return hit
}

func (s *StockData) store(ctx context.Context, key string, v any) {
	if err := s.cache.Store(ctx, key, v); err != nil {
		s.metrics.RecordError("cache_write")
		s.log.Warn("cache store failed", logger.String("key", key), logger.Error(err))
	}
}
