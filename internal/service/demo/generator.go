package demo

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"FinBoard/internal/domain/models"
	drepo "FinBoard/internal/domain/repository"
)

type baseQuote struct {
	open, high, low, price float64
	volume                 int64
	prevClose              float64
	change, changePercent  float64
	marketCap              float64
}

// fallbackSymbol seeds series for tickers missing from the table.
const fallbackSymbol = "AAPL"

var stocks = map[string]baseQuote{
	"AAPL":  {178.25, 182.50, 177.80, 181.45, 52847300, 178.10, 3.35, 1.88, 2.85e12},
	"TSLA":  {242.10, 248.90, 240.25, 246.75, 89234500, 241.80, 4.95, 2.05, 7.82e11},
	"MSFT":  {378.40, 382.15, 376.90, 380.25, 18923400, 377.50, 2.75, 0.73, 2.82e12},
	"GOOGL": {141.20, 143.80, 140.50, 142.95, 23145600, 140.85, 2.10, 1.49, 1.78e12},
	"AMZN":  {185.30, 188.75, 184.20, 187.45, 41256700, 184.90, 2.55, 1.38, 1.95e12},
	"NVDA":  {495.60, 512.40, 493.20, 508.75, 45678900, 494.30, 14.45, 2.92, 1.25e12},
	"META":  {485.20, 492.80, 483.10, 490.35, 12345600, 484.50, 5.85, 1.21, 1.26e12},
	"AMD":   {122.45, 126.80, 121.90, 125.60, 56789000, 122.10, 3.50, 2.87, 2.03e11},
	"SPY":   {478.30, 482.15, 477.40, 480.90, 78234500, 477.85, 3.05, 0.64, 4.35e11},
}

// Symbols lists the tickers with built-in demo data.
func Symbols() []string {
	return []string{"AAPL", "TSLA", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "AMD", "SPY"}
}

// Known reports whether symbol has built-in demo data.
func Known(symbol string) bool {
	_, ok := stocks[strings.ToUpper(symbol)]
	return ok
}

// Generator synthesizes quotes and series when no provider key is set.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

type Option func(*Generator)

// WithSeed makes the generator deterministic.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.rnd = rand.New(rand.NewSource(seed)) }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(opts ...Option) *Generator {
	g := &Generator{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64()
}

func (g *Generator) today() string {
	return g.now().Format(time.DateOnly)
}

// Quote returns a perturbed table quote for known tickers and a random
// quote otherwise. Random quotes do not reconcile change with price.
func (g *Generator) Quote(symbol string) models.StockQuote {
	sym := strings.ToUpper(symbol)
	if b, ok := stocks[sym]; ok {
		return g.Perturb(b.quote(sym, g.today()))
	}

	return models.StockQuote{
		Symbol:           sym,
		Open:             100 + g.float()*100,
		High:             110 + g.float()*100,
		Low:              90 + g.float()*100,
		Price:            round2(100 + g.float()*100),
		Volume:           int64(math.Floor(g.float() * 1e7)),
		LatestTradingDay: g.today(),
		PreviousClose:    99 + g.float()*100,
		Change:           round2(g.float()*10 - 5),
		ChangePercent:    round2(g.float()*5 - 2.5),
	}
}

// Perturb applies a ±1% random walk to q's price, recomputes change against
// the previous close and widens high/low to bracket the new price.
func (g *Generator) Perturb(q models.StockQuote) models.StockQuote {
	variation := (g.float() - 0.5) * 0.02
	price := q.Price * (1 + variation)
	change := price - q.PreviousClose

	out := q
	if q.MarketCap != nil {
		mc := *q.MarketCap
		out.MarketCap = &mc
	}
	out.Price = round2(price)
	out.Change = round2(change)
	if q.PreviousClose != 0 {
		out.ChangePercent = round2(change / q.PreviousClose * 100)
	}
	out.High = math.Max(q.High, price)
	out.Low = math.Min(q.Low, price)
	return out
}

// TimeSeries synthesizes an ascending series ending today. Unknown tickers
// borrow AAPL's base price and volume.
func (g *Generator) TimeSeries(symbol string, interval models.TimeInterval) []models.TimeSeriesPoint {
	b, ok := stocks[strings.ToUpper(symbol)]
	if !ok {
		b = stocks[fallbackSymbol]
	}
	if !drepo.IsValidInterval(interval) {
		interval = drepo.DefaultInterval()
	}
	points := drepo.IntervalPoints(interval)
	step := drepo.IntervalDays(interval)

	const (
		volatility = 0.02
		trend      = 0.003
		spread     = 0.015
	)

	now := g.now()
	price := b.price * 0.85
	out := make([]models.TimeSeriesPoint, 0, points)
	for i := points - 1; i >= 0; i-- {
		price *= 1 + (g.float()-0.5)*2*volatility + trend

		dayVol := price * spread
		open := price + (g.float()-0.5)*dayVol
		closing := price
		high := math.Max(open, closing) + g.float()*dayVol
		low := math.Min(open, closing) - g.float()*dayVol

		out = append(out, models.TimeSeriesPoint{
			Timestamp: now.AddDate(0, 0, -i*step).Format(time.DateOnly),
			Open:      round2(open),
			High:      round2(high),
			Low:       round2(low),
			Close:     round2(closing),
			Volume:    int64(math.Floor(float64(b.volume) * (0.8 + g.float()*0.4))),
		})
	}
	return out
}

func (b baseQuote) quote(symbol, day string) models.StockQuote {
	mc := b.marketCap
	return models.StockQuote{
		Symbol:           symbol,
		Open:             b.open,
		High:             b.high,
		Low:              b.low,
		Price:            b.price,
		Volume:           b.volume,
		LatestTradingDay: day,
		PreviousClose:    b.prevClose,
		Change:           b.change,
		ChangePercent:    b.changePercent,
		MarketCap:        &mc,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
