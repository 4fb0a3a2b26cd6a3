package finnhub

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"FinBoard/internal/domain/models"
	drepo "FinBoard/internal/domain/repository"
	xhttp "FinBoard/pkg/http"
)

// DefaultBaseURL is the public Finnhub REST endpoint.
const DefaultBaseURL = "https://finnhub.io/api/v1"

const maxCandles = 100

var resolutions = map[models.TimeInterval]string{
	models.IntervalDaily:   "D",
	models.IntervalWeekly:  "W",
	models.IntervalMonthly: "M",
}

// Client implements a QuoteProvider backed by Finnhub REST.
type Client struct {
	http    *xhttp.Client
	baseURL string
	now     func() time.Time
}

// New creates a new Finnhub QuoteProvider.
func New(httpClient *xhttp.Client, baseURL string) drepo.QuoteProvider {
	return newClient(httpClient, baseURL, time.Now)
}

func newClient(httpClient *xhttp.Client, baseURL string, now func() time.Time) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), now: now}
}

func (c *Client) Name() models.APIProvider { return models.ProviderFinnhub }

type fhQuote struct {
	C     float64 `json:"c"`
	D     float64 `json:"d"`
	DP    float64 `json:"dp"`
	H     float64 `json:"h"`
	L     float64 `json:"l"`
	O     float64 `json:"o"`
	PC    float64 `json:"pc"`
	T     int64   `json:"t"` // unix seconds
	Error string  `json:"error"`
}

type fhCandles struct {
	C     []float64 `json:"c"`
	H     []float64 `json:"h"`
	L     []float64 `json:"l"`
	O     []float64 `json:"o"`
	V     []float64 `json:"v"`
	T     []int64   `json:"t"`
	S     string    `json:"s"`
	Error string    `json:"error"`
}

// Quote calls /quote. Finnhub reports no volume on this endpoint.
func (c *Client) Quote(ctx context.Context, symbol, apiKey string) (*models.StockQuote, *models.APIError) {
	var q fhQuote
	if apiErr := c.get(ctx, "/quote", map[string][]string{
		"symbol": {symbol},
		"token":  {apiKey},
	}, &q); apiErr != nil {
		return nil, apiErr
	}
	if q.Error != "" {
		return nil, models.ErrInvalidSymbol()
	}
	// unknown tickers come back as an all-zero payload
	if q.C == 0 && q.PC == 0 && q.T == 0 {
		return nil, models.ErrNoData()
	}

	day := ""
	if q.T > 0 {
		day = time.Unix(q.T, 0).UTC().Format(time.DateOnly)
	}
	return &models.StockQuote{
		Symbol:           strings.ToUpper(symbol),
		Open:             q.O,
		High:             q.H,
		Low:              q.L,
		Price:            q.C,
		LatestTradingDay: day,
		PreviousClose:    q.PC,
		Change:           q.D,
		ChangePercent:    q.DP,
	}, nil
}

// TimeSeries calls /stock/candle and keeps the newest 100 candles.
func (c *Client) TimeSeries(ctx context.Context, symbol string, interval models.TimeInterval, apiKey string) ([]models.TimeSeriesPoint, *models.APIError) {
	if !drepo.IsValidInterval(interval) {
		interval = drepo.DefaultInterval()
	}
	to := c.now().UTC()
	from := to.AddDate(0, 0, -2*maxCandles*drepo.IntervalDays(interval))

	var cs fhCandles
	if apiErr := c.get(ctx, "/stock/candle", map[string][]string{
		"symbol":     {symbol},
		"resolution": {resolutions[interval]},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
		"token":      {apiKey},
	}, &cs); apiErr != nil {
		return nil, apiErr
	}
	if cs.Error != "" {
		return nil, models.ErrInvalidSymbol()
	}
	if cs.S != "ok" || len(cs.T) == 0 {
		return nil, models.ErrNoData()
	}

	n := len(cs.T)
	if len(cs.O) < n || len(cs.H) < n || len(cs.L) < n || len(cs.C) < n || len(cs.V) < n {
		return nil, models.NewAPIError(models.CodeUnknown, "Malformed candle response")
	}
	start := 0
	if n > maxCandles {
		start = n - maxCandles
	}
	out := make([]models.TimeSeriesPoint, 0, n-start)
	for i := start; i < n; i++ {
		out = append(out, models.TimeSeriesPoint{
			Timestamp: time.Unix(cs.T[i], 0).UTC().Format(time.DateOnly),
			Open:      cs.O[i],
			High:      cs.H[i],
			Low:       cs.L[i],
			Close:     cs.C[i],
			Volume:    int64(cs.V[i]),
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string][]string, dest any) *models.APIError {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		QueryParams: params,
	}, dest)
	if err == nil {
		return nil
	}
	if status, ok := xhttp.StatusCode(err); ok {
		switch status {
		case http.StatusTooManyRequests:
			return models.ErrRateLimit()
		case http.StatusUnauthorized, http.StatusForbidden:
			return models.NewAPIError(models.CodeInvalidKey, "Invalid API key")
		}
	}
	return models.ErrNetwork(err)
}
