package demo

import (
	"testing"
	"time"

	"FinBoard/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestGenerator() *Generator {
	return New(WithSeed(42), WithClock(func() time.Time { return day }))
}

func TestKnownQuoteStaysNearBase(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < 200; i++ {
		q := g.Quote("aapl")
		assert.Equal(t, "AAPL", q.Symbol)
		assert.InDelta(t, 181.45, q.Price, 181.45*0.0101)
		assert.GreaterOrEqual(t, q.High, q.Price)
		assert.LessOrEqual(t, q.Low, q.Price)
		assert.Equal(t, 178.10, q.PreviousClose)
		assert.Equal(t, "2024-03-15", q.LatestTradingDay)
		require.NotNil(t, q.MarketCap)
		assert.Equal(t, 2.85e12, *q.MarketCap)
	}
}

func TestUnknownQuoteRanges(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < 200; i++ {
		q := g.Quote("zzzz")
		assert.Equal(t, "ZZZZ", q.Symbol)
		assert.GreaterOrEqual(t, q.Price, 100.0)
		assert.LessOrEqual(t, q.Price, 200.0)
		assert.Less(t, q.Volume, int64(1e7))
		assert.GreaterOrEqual(t, q.Change, -5.0)
		assert.LessOrEqual(t, q.Change, 5.0)
		assert.GreaterOrEqual(t, q.ChangePercent, -2.5)
		assert.LessOrEqual(t, q.ChangePercent, 2.5)
		assert.Nil(t, q.MarketCap)
	}
}

func TestPerturbDoesNotAlias(t *testing.T) {
	g := newTestGenerator()
	mc := 1.0
	in := models.StockQuote{Symbol: "X", Price: 50, High: 50, Low: 50, PreviousClose: 49, MarketCap: &mc}
	out := g.Perturb(in)

	assert.Equal(t, 50.0, in.Price)
	*out.MarketCap = 2
	assert.Equal(t, 1.0, mc)
	assert.InDelta(t, out.Price-49, out.Change, 0.011)
}

func TestTimeSeriesShape(t *testing.T) {
	g := newTestGenerator()
	tests := []struct {
		interval models.TimeInterval
		points   int
		step     int
	}{
		{models.IntervalDaily, 30, 1},
		{models.IntervalWeekly, 52, 7},
		{models.IntervalMonthly, 24, 30},
	}
	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			series := g.TimeSeries("MSFT", tt.interval)
			require.Len(t, series, tt.points)
			assert.Equal(t, "2024-03-15", series[len(series)-1].Timestamp)
			first := day.AddDate(0, 0, -(tt.points-1)*tt.step).Format(time.DateOnly)
			assert.Equal(t, first, series[0].Timestamp)

			for i, p := range series {
				assert.LessOrEqual(t, p.Low, p.Open)
				assert.LessOrEqual(t, p.Low, p.Close)
				assert.GreaterOrEqual(t, p.High, p.Open)
				assert.GreaterOrEqual(t, p.High, p.Close)
				if i > 0 {
					assert.Less(t, series[i-1].Timestamp, p.Timestamp)
				}
			}
		})
	}
}

func TestTimeSeriesUnknownUsesFallbackBase(t *testing.T) {
	g := newTestGenerator()
	series := g.TimeSeries("NOPE", models.IntervalDaily)
	require.NotEmpty(t, series)
	// starts at 85% of AAPL and drifts at most ~2.3% per step
	assert.InDelta(t, 181.45*0.85, series[0].Close, 181.45*0.85*0.03)
	assert.True(t, Known("spy"))
	assert.False(t, Known("NOPE"))
}
