package alphavantage

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"FinBoard/internal/domain/models"
	drepo "FinBoard/internal/domain/repository"
	xhttp "FinBoard/pkg/http"
)

// DefaultBaseURL is the public Alpha Vantage endpoint.
const DefaultBaseURL = "https://www.alphavantage.co"

// maxPoints bounds a parsed series.
const maxPoints = 100

var seriesFunctions = map[models.TimeInterval]string{
	models.IntervalDaily:   "TIME_SERIES_DAILY",
	models.IntervalWeekly:  "TIME_SERIES_WEEKLY",
	models.IntervalMonthly: "TIME_SERIES_MONTHLY",
}

// Client implements a QuoteProvider backed by the Alpha Vantage REST API.
type Client struct {
	http    *xhttp.Client
	baseURL string
}

// New creates a new Alpha Vantage QuoteProvider.
func New(httpClient *xhttp.Client, baseURL string) drepo.QuoteProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Name() models.APIProvider { return models.ProviderAlphaVantage }

// Quote calls GLOBAL_QUOTE.
func (c *Client) Quote(ctx context.Context, symbol, apiKey string) (*models.StockQuote, *models.APIError) {
	body, apiErr := c.query(ctx, "GLOBAL_QUOTE", symbol, apiKey)
	if apiErr != nil {
		return nil, apiErr
	}

	raw, ok := body["Global Quote"]
	if !ok {
		return nil, models.ErrNoData()
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, models.ErrNetwork(err)
	}
	if len(fields) == 0 {
		return nil, models.ErrNoData()
	}

	return &models.StockQuote{
		Symbol:           fields["01. symbol"],
		Open:             parseFloat(fields["02. open"]),
		High:             parseFloat(fields["03. high"]),
		Low:              parseFloat(fields["04. low"]),
		Price:            parseFloat(fields["05. price"]),
		Volume:           parseInt(fields["06. volume"]),
		LatestTradingDay: fields["07. latest trading day"],
		PreviousClose:    parseFloat(fields["08. previous close"]),
		Change:           parseFloat(fields["09. change"]),
		ChangePercent:    parseFloat(strings.TrimSuffix(strings.TrimSpace(fields["10. change percent"]), "%")),
	}, nil
}

// TimeSeries calls TIME_SERIES_{DAILY,WEEKLY,MONTHLY} and returns at most the
// newest 100 points in ascending order.
func (c *Client) TimeSeries(ctx context.Context, symbol string, interval models.TimeInterval, apiKey string) ([]models.TimeSeriesPoint, *models.APIError) {
	fn, ok := seriesFunctions[interval]
	if !ok {
		fn = seriesFunctions[drepo.DefaultInterval()]
	}
	body, apiErr := c.query(ctx, fn, symbol, apiKey)
	if apiErr != nil {
		return nil, apiErr
	}

	var seriesKey string
	for k := range body {
		if strings.Contains(k, "Time Series") {
			seriesKey = k
			break
		}
	}
	if seriesKey == "" {
		return nil, models.ErrNoData()
	}

	var series map[string]map[string]string
	if err := json.Unmarshal(body[seriesKey], &series); err != nil {
		return nil, models.ErrNetwork(err)
	}

	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > maxPoints {
		dates = dates[:maxPoints]
	}

	out := make([]models.TimeSeriesPoint, len(dates))
	for i, d := range dates {
		v := series[d]
		out[len(dates)-1-i] = models.TimeSeriesPoint{
			Timestamp: d,
			Open:      parseFloat(v["1. open"]),
			High:      parseFloat(v["2. high"]),
			Low:       parseFloat(v["3. low"]),
			Close:     parseFloat(v["4. close"]),
			Volume:    parseInt(v["5. volume"]),
		}
	}
	return out, nil
}

// query performs one request and maps the provider's error markers.
func (c *Client) query(ctx context.Context, function, symbol, apiKey string) (map[string]json.RawMessage, *models.APIError) {
	var body map[string]json.RawMessage
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/query",
		QueryParams: map[string][]string{
			"function": {function},
			"symbol":   {symbol},
			"apikey":   {apiKey},
		},
	}, &body)
	if err != nil {
		return nil, models.ErrNetwork(err)
	}

	if _, ok := body["Error Message"]; ok {
		return nil, models.ErrInvalidSymbol()
	}
	if _, ok := body["Note"]; ok {
		return nil, models.ErrRateLimit()
	}
	if _, ok := body["Information"]; ok {
		return nil, models.ErrRateLimit()
	}
	return body, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return int64(parseFloat(s))
	}
	return v
}
