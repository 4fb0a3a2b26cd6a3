package finnhub

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FinBoard/internal/domain/models"
	xhttp "FinBoard/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 3, 15, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newClient(xhttp.NewClient(), srv.URL, func() time.Time { return fixedNow })
}

func TestQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "aapl", r.URL.Query().Get("symbol"))
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		fmt.Fprintf(w, `{"c":181.45,"d":3.35,"dp":1.88,"h":182.5,"l":177.8,"o":178.25,"pc":178.1,"t":%d}`, fixedNow.Unix())
	})

	q, apiErr := c.Quote(context.Background(), "aapl", "tok")
	require.Nil(t, apiErr)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 181.45, q.Price)
	assert.Equal(t, 178.1, q.PreviousClose)
	assert.Equal(t, "2024-05-03", q.LatestTradingDay)
	assert.Zero(t, q.Volume)
}

func TestQuoteErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   models.ErrorCode
	}{
		{"error field", 200, `{"error":"Symbol not supported"}`, models.CodeInvalidSymbol},
		{"all zero", 200, `{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`, models.CodeUnknown},
		{"rate limited", 429, `{"error":"API limit reached"}`, models.CodeRateLimit},
		{"unauthorized", 401, `{"error":"Invalid API key"}`, models.CodeInvalidKey},
		{"forbidden", 403, ``, models.CodeInvalidKey},
		{"server error", 500, `oops`, models.CodeNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			q, apiErr := c.Quote(context.Background(), "X", "tok")
			assert.Nil(t, q)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestTransportFailureHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newClient(xhttp.NewClient(), base, func() time.Time { return fixedNow })
	q, apiErr := c.Quote(context.Background(), "AAPL", "SECRETTOKEN9")
	assert.Nil(t, q)
	require.NotNil(t, apiErr)
	assert.Equal(t, models.CodeNetworkError, apiErr.Code)
	assert.NotContains(t, apiErr.Message, "SECRETTOKEN9")
	assert.NotContains(t, apiErr.Message, "token=")
}

func TestTimeSeriesKeepsNewestCandles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/candle", r.URL.Path)
		assert.Equal(t, "W", r.URL.Query().Get("resolution"))
		assert.Equal(t, fmt.Sprint(fixedNow.Unix()), r.URL.Query().Get("to"))

		var ts, vals []string
		for i := 0; i < 120; i++ {
			ts = append(ts, fmt.Sprint(fixedNow.AddDate(0, 0, -7*(119-i)).Unix()))
			vals = append(vals, fmt.Sprint(i))
		}
		list := strings.Join(vals, ",")
		fmt.Fprintf(w, `{"s":"ok","t":[%s],"o":[%s],"h":[%s],"l":[%s],"c":[%s],"v":[%s]}`,
			strings.Join(ts, ","), list, list, list, list, list)
	})

	series, apiErr := c.TimeSeries(context.Background(), "AAPL", models.IntervalWeekly, "tok")
	require.Nil(t, apiErr)
	require.Len(t, series, 100)
	assert.Equal(t, 20.0, series[0].Close)
	assert.Equal(t, 119.0, series[99].Close)
	assert.Equal(t, "2024-05-03", series[99].Timestamp)
	assert.Equal(t, int64(119), series[99].Volume)
}

func TestTimeSeriesNoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "D", r.URL.Query().Get("resolution"))
		fmt.Fprint(w, `{"s":"no_data"}`)
	})
	_, apiErr := c.TimeSeries(context.Background(), "ZZZZ", models.IntervalDaily, "tok")
	require.NotNil(t, apiErr)
	assert.Equal(t, models.CodeUnknown, apiErr.Code)
}
