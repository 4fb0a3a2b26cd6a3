package api

import (
	"strings"
	"time"

	"FinBoard/internal/domain/models"
	"FinBoard/internal/service/metrics"
	"FinBoard/internal/service/ratelimit"
	"FinBoard/internal/usecase"
	xhttp "FinBoard/pkg/http"
	xlogger "FinBoard/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DataHandler serves market data straight from the data access layer,
// using the dashboard's provider keys.
type DataHandler struct {
	logger    *xlogger.Logger
	data      *usecase.StockData
	dashboard *usecase.Dashboard
	rl        *ratelimit.Limiter
}

// NewDataHandler builds the handler. A nil limiter disables rate limiting.
func NewDataHandler(logger *xlogger.Logger, data *usecase.StockData, dashboard *usecase.Dashboard, rl *ratelimit.Limiter) *DataHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DataHandler{logger: logger.Named("api.data"), data: data, dashboard: dashboard, rl: rl}
}

func (h *DataHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/quotes/:symbol", h.Quote, h.limit("quote"))
	g.GET("/quotes", h.Quotes, h.limit("quotes"))
	g.GET("/timeseries/:symbol", h.TimeSeries, h.limit("timeseries"))
}

func (h *DataHandler) Quote(c echo.Context) error {
	defer observe("quote", time.Now())
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res := h.data.FetchStockQuote(c.Request().Context(), req.Symbol, h.credential(req.Provider))
	if res.Error != nil {
		return h.fail(c, "quote", res.Error)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res.Data)
}

// MultiQuoteView is one page of a stock table plus the symbols that failed.
type MultiQuoteView struct {
	models.Page
	Errors []models.SymbolError `json:"errors"`
}

func (h *DataHandler) Quotes(c echo.Context) error {
	defer observe("quotes", time.Now())
	req := &models.MultiQuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbols := xhttp.QueryList(c, "symbols")
	if len(symbols) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbols is required"))
	}

	res := h.data.FetchMultipleQuotes(c.Request().Context(), symbols, h.credential(req.Provider))
	for _, se := range res.Errors {
		metrics.APIErrors.WithLabelValues("quotes", string(se.Error.Code)).Inc()
	}

	rows := models.FilterQuotes(res.Data, req.Search)
	view := MultiQuoteView{Errors: res.Errors}
	if req.PageSize > 0 {
		view.Page = models.Paginate(rows, req.Page, req.PageSize)
	} else {
		view.Page = models.Page{Rows: rows, Page: 1, TotalPages: 1, Total: len(rows)}
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *DataHandler) TimeSeries(c echo.Context) error {
	defer observe("timeseries", time.Now())
	req := &models.TimeSeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res := h.data.FetchTimeSeries(c.Request().Context(), req.Symbol, req.Interval, h.credential(req.Provider))
	if res.Error != nil {
		return h.fail(c, "timeseries", res.Error)
	}
	return xhttp.ListResponse(c, res.Data, int64(len(res.Data)))
}

func (h *DataHandler) credential(p models.APIProvider) models.Credential {
	return models.Credential{Provider: p, APIKey: h.dashboard.APIConfig().KeyFor(p)}
}

func (h *DataHandler) fail(c echo.Context, endpoint string, e *models.APIError) error {
	metrics.APIErrors.WithLabelValues(endpoint, string(e.Code)).Inc()
	h.logger.Debug("data request failed",
		xlogger.String("endpoint", endpoint),
		xlogger.String("code", string(e.Code)),
		xlogger.String("message", e.Message),
	)
	return xhttp.AppErrorResponse(c, dataError(e))
}

// limit applies the per-client token bucket to one endpoint.
func (h *DataHandler) limit(endpoint string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if h.rl == nil {
				return next(c)
			}
			key := strings.Join([]string{xhttp.ClientKey(c), endpoint}, ":")
			if !h.rl.Allow(key) {
				metrics.APIRateLimited.WithLabelValues(endpoint).Inc()
				h.logger.Warn("rate limited", xlogger.String("endpoint", endpoint), xlogger.String("client", xhttp.ClientKey(c)))
				return xhttp.AppErrorResponse(c, errRateLimited)
			}
			return next(c)
		}
	}
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
