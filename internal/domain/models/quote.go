package models

import (
	"errors"
	"fmt"
	"net/url"
)

// StockQuote is a point-in-time quote for one symbol.
type StockQuote struct {
	Symbol           string   `json:"symbol" msgpack:"symbol"`
	Open             float64  `json:"open" msgpack:"open"`
	High             float64  `json:"high" msgpack:"high"`
	Low              float64  `json:"low" msgpack:"low"`
	Price            float64  `json:"price" msgpack:"price"`
	Volume           int64    `json:"volume" msgpack:"volume"`
	LatestTradingDay string   `json:"latestTradingDay" msgpack:"latest_trading_day"`
	PreviousClose    float64  `json:"previousClose" msgpack:"previous_close"`
	Change           float64  `json:"change" msgpack:"change"`
	ChangePercent    float64  `json:"changePercent" msgpack:"change_percent"`
	MarketCap        *float64 `json:"marketCap,omitempty" msgpack:"market_cap,omitempty"`
}

// TimeSeriesPoint is one OHLCV period. Timestamp is a YYYY-MM-DD date.
type TimeSeriesPoint struct {
	Timestamp string  `json:"timestamp" msgpack:"timestamp"`
	Open      float64 `json:"open" msgpack:"open"`
	High      float64 `json:"high" msgpack:"high"`
	Low       float64 `json:"low" msgpack:"low"`
	Close     float64 `json:"close" msgpack:"close"`
	Volume    int64   `json:"volume" msgpack:"volume"`
}

type ErrorCode string

const (
	CodeInvalidSymbol ErrorCode = "INVALID_SYMBOL"
	CodeRateLimit     ErrorCode = "RATE_LIMIT"
	CodeNetworkError  ErrorCode = "NETWORK_ERROR"
	CodeInvalidKey    ErrorCode = "INVALID_KEY"
	CodeUnknown       ErrorCode = "UNKNOWN"
)

// APIError is the normalized data-layer failure.
type APIError struct {
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

func ErrInvalidSymbol() *APIError { return NewAPIError(CodeInvalidSymbol, "Invalid symbol") }
func ErrRateLimit() *APIError     { return NewAPIError(CodeRateLimit, "API rate limit exceeded") }
func ErrNoData() *APIError        { return NewAPIError(CodeUnknown, "No data available") }

// ErrNetwork converts a transport failure into the normalized taxonomy. The
// request URL is left out of the message since it may carry an API key.
func ErrNetwork(err error) *APIError {
	if err == nil {
		return NewAPIError(CodeNetworkError, "Network error")
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	return NewAPIError(CodeNetworkError, "Network error: "+err.Error())
}

// QuoteResult carries either a quote or an error, never both.
type QuoteResult struct {
	Data  *StockQuote `json:"data"`
	Error *APIError   `json:"error"`
}

type TimeSeriesResult struct {
	Data  []TimeSeriesPoint `json:"data"`
	Error *APIError         `json:"error"`
}

// SymbolError pairs a failed symbol with its error.
type SymbolError struct {
	Symbol string    `json:"symbol"`
	Error  *APIError `json:"error"`
}

// MultiQuoteResult partitions a batch fetch. A caller seeing no data and at
// least one error should treat the batch as failed.
type MultiQuoteResult struct {
	Data   []StockQuote  `json:"data"`
	Errors []SymbolError `json:"errors"`
}

// Failed reports whether nothing in the batch succeeded.
func (r MultiQuoteResult) Failed() bool {
	return len(r.Data) == 0 && len(r.Errors) > 0
}
