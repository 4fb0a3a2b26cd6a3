package alphavantage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"FinBoard/internal/domain/models"
	xhttp "FinBoard/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const globalQuote = `{"Global Quote":{
 "01. symbol":"IBM","02. open":"140.10","03. high":"142.00","04. low":"139.50",
 "05. price":"141.25","06. volume":"3456789","07. latest trading day":"2024-05-03",
 "08. previous close":"140.00","09. change":"1.25","10. change percent":"0.8929%"}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(xhttp.NewClient(), srv.URL).(*Client)
}

func TestQuoteParsesPositionalFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "IBM", r.URL.Query().Get("symbol"))
		assert.Equal(t, "k", r.URL.Query().Get("apikey"))
		fmt.Fprint(w, globalQuote)
	})

	q, apiErr := c.Quote(context.Background(), "IBM", "k")
	require.Nil(t, apiErr)
	assert.Equal(t, "IBM", q.Symbol)
	assert.Equal(t, 141.25, q.Price)
	assert.Equal(t, int64(3456789), q.Volume)
	assert.Equal(t, "2024-05-03", q.LatestTradingDay)
	assert.InDelta(t, 0.8929, q.ChangePercent, 1e-9)
	assert.Nil(t, q.MarketCap)
}

func TestQuoteErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   models.ErrorCode
	}{
		{"error message", 200, `{"Error Message":"Invalid API call."}`, models.CodeInvalidSymbol},
		{"note", 200, `{"Note":"Thank you for using Alpha Vantage! ..."}`, models.CodeRateLimit},
		{"information", 200, `{"Information":"rate limit"}`, models.CodeRateLimit},
		{"empty quote", 200, `{"Global Quote":{}}`, models.CodeUnknown},
		{"missing quote", 200, `{}`, models.CodeUnknown},
		{"server error", 503, `down`, models.CodeNetworkError},
		{"not json", 200, `<html>`, models.CodeNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			q, apiErr := c.Quote(context.Background(), "X", "k")
			assert.Nil(t, q)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestQuoteTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(xhttp.NewClient(), url)
	_, apiErr := c.Quote(context.Background(), "IBM", "SECRETKEY123")
	require.NotNil(t, apiErr)
	assert.Equal(t, models.CodeNetworkError, apiErr.Code)
	assert.NotContains(t, apiErr.Message, "SECRETKEY123")
	assert.NotContains(t, apiErr.Message, "apikey")

	_, apiErr = c.TimeSeries(context.Background(), "IBM", models.IntervalDaily, "SECRETKEY123")
	require.NotNil(t, apiErr)
	assert.NotContains(t, apiErr.Message, "SECRETKEY123")
}

func TestTimeSeriesAscendingAndCapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_WEEKLY", r.URL.Query().Get("function"))
		fmt.Fprint(w, `{"Meta Data":{},"Weekly Time Series":{`)
		for i := 0; i < 120; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			day := 120 - i
			fmt.Fprintf(w, `"2024-%02d-%02d":{"1. open":"1","2. high":"2","3. low":"0.5","4. close":"%d","5. volume":"100"}`, 1+day/28, 1+day%28, day)
		}
		fmt.Fprint(w, `}}`)
	})

	series, apiErr := c.TimeSeries(context.Background(), "IBM", models.IntervalWeekly, "k")
	require.Nil(t, apiErr)
	require.Len(t, series, 100)
	for i := 1; i < len(series); i++ {
		assert.Less(t, series[i-1].Timestamp, series[i].Timestamp)
	}
	assert.Equal(t, 120.0, series[len(series)-1].Close, "newest point is kept")
}

func TestTimeSeriesErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"Meta Data":{}}`)
	})
	_, apiErr := c.TimeSeries(context.Background(), "IBM", models.IntervalDaily, "k")
	require.NotNil(t, apiErr)
	assert.Equal(t, models.CodeUnknown, apiErr.Code)

	c = newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"Note":"slow down"}`)
	})
	_, apiErr = c.TimeSeries(context.Background(), "IBM", models.IntervalMonthly, "k")
	require.NotNil(t, apiErr)
	assert.Equal(t, models.CodeRateLimit, apiErr.Code)
}
