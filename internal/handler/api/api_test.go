package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"FinBoard/internal/domain/models"
	icache "FinBoard/internal/service/cache"
	"FinBoard/internal/service/demo"
	"FinBoard/internal/service/ratelimit"
	"FinBoard/internal/usecase"
	pkgcache "FinBoard/pkg/cache"
	xhttp "FinBoard/pkg/http"
	"FinBoard/pkg/logger"
	"FinBoard/pkg/metrics"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key]
	return d, ok, nil
}

func (s *memStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Close() error { return nil }

type fixture struct {
	e         *echo.Echo
	dashboard *usecase.Dashboard
	hub       *usecase.UpdateHub
}

func newFixture(t *testing.T, rl *ratelimit.Limiter) *fixture {
	t.Helper()
	log := logger.Nop()

	n := 0
	d := usecase.NewDashboard(&memStore{data: map[string][]byte{}}, nil, metrics.Nop{}, log,
		usecase.WithIDGenerator(func() string { n++; return fmt.Sprintf("widget-%d", n) }))

	rc := icache.NewResponseCache(pkgcache.NewMemoryCache(), icache.DefaultTTL)
	data := usecase.NewStockData(rc, nil, demo.New(demo.WithSeed(1)), metrics.Nop{}, log, 4)

	hub := usecase.NewUpdateHub(16)
	r := usecase.NewRefresher(data, d.CredentialFor, hub, log)
	t.Cleanup(r.Stop)
	d.Subscribe(r.Sync)

	e := echo.New()
	NewRouter(
		NewDashboardHandler(log, d, r),
		NewDataHandler(log, data, d, rl),
		NewStreamHandler(log, hub, 0),
	).RegisterRoutes(e)
	return &fixture{e: e, dashboard: d, hub: hub}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Code != http.StatusNoContent && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestAddWidgetAppliesDefaults(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodPost, "/api/widgets", `{"type":"chart","title":"Apple","symbol":"AAPL"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusCreated, env.Status)

	w := decode[models.ChartWidget](t, env.Data)
	assert.Equal(t, "widget-1", w.ID)
	assert.Equal(t, models.ChartLine, w.ChartType)
	assert.Equal(t, models.IntervalDaily, w.TimeInterval)
	assert.Equal(t, models.ProviderAlphaVantage, w.APIProvider)
	assert.Positive(t, w.Position.W)
	assert.Len(t, f.dashboard.Widgets(), 1)
}

func TestAddWidgetRejectsInvalid(t *testing.T) {
	f := newFixture(t, nil)
	for name, body := range map[string]string{
		"unknown type":  `{"type":"pie","title":"x","symbol":"AAPL"}`,
		"missing title": `{"type":"finance-card","symbol":"AAPL"}`,
		"bad interval":  `{"type":"finance-card","title":"x","symbol":"AAPL","refreshInterval":7}`,
		"not json":      `{`,
	} {
		t.Run(name, func(t *testing.T) {
			rec, env := f.do(t, http.MethodPost, "/api/widgets", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, env.Data)
		})
	}
	assert.Empty(t, f.dashboard.Widgets())
}

func TestWidgetLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/widgets", `{"type":"finance-card","title":"Apple","symbol":"AAPL"}`)

	rec, env := f.do(t, http.MethodPatch, "/api/widgets/widget-1", `{"title":"Apple Inc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Apple Inc", decode[models.FinanceCardWidget](t, env.Data).Title)

	rec, _ = f.do(t, http.MethodPatch, "/api/widgets/widget-1", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPut, "/api/widgets/widget-1/position", `{"x":2,"y":1,"w":0,"h":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = f.do(t, http.MethodPut, "/api/widgets/widget-1/position", `{"x":2,"y":1,"w":3,"h":2}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	w, _ := f.dashboard.Widget("widget-1")
	assert.Equal(t, models.WidgetPosition{X: 2, Y: 1, W: 3, H: 2}, w.Base().Position)

	rec, env = f.do(t, http.MethodPost, "/api/widgets/widget-1/duplicate", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	dup := decode[models.FinanceCardWidget](t, env.Data)
	assert.Equal(t, "Apple Inc (Copy)", dup.Title)
	assert.Equal(t, 3, dup.Position.X)

	rec, _ = f.do(t, http.MethodDelete, "/api/widgets/widget-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, env = f.do(t, http.MethodDelete, "/api/widgets/widget-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_WIDGET_NOT_FOUND")

	rec, _ = f.do(t, http.MethodDelete, "/api/widgets", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.dashboard.Widgets())
}

func TestPatchKeepsTableExportable(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/widgets", `{"type":"stock-table","title":"Movers"}`)

	for _, body := range []string{`{"columns":[]}`, `{"symbols":[]}`, `{"symbols":[""]}`} {
		rec, _ := f.do(t, http.MethodPatch, "/api/widgets/widget-1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	rec, env := f.do(t, http.MethodPatch, "/api/widgets/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_WIDGET_NOT_FOUND")

	rec, _ = f.do(t, http.MethodPatch, "/api/widgets/widget-1", `{"symbols":["NVDA","AMD"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()
	rec, _ = f.do(t, http.MethodPost, "/api/import", exported)
	assert.Equal(t, http.StatusOK, rec.Code)

	w, ok := f.dashboard.Widget("widget-1")
	require.True(t, ok)
	assert.Equal(t, []string{"NVDA", "AMD"}, w.(*models.StockTableWidget).Symbols)
}

func TestImportRejectsMalformedBodies(t *testing.T) {
	card := `{"id":"a","type":"finance-card","title":"c","symbol":"A","apiProvider":"finnhub","position":{"x":0,"y":0,"w":1,"h":1}}`
	for name, body := range map[string]string{
		"not json":       `not json`,
		"foreign object": `{"foo":1}`,
		"duplicate ids":  `{"widgets":[` + card + `,` + card + `]}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.do(t, http.MethodPost, "/api/widgets", `{"type":"finance-card","title":"Apple","symbol":"AAPL"}`)

			rec, _ := f.do(t, http.MethodPost, "/api/import", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.Len(t, f.dashboard.Widgets(), 1)
			assert.Equal(t, "widget-1", f.dashboard.Widgets()[0].Base().ID)
		})
	}
}

func TestWidgetDataAndRefresh(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/widgets", `{"type":"finance-card","title":"Apple","symbol":"AAPL"}`)

	rec, env := f.do(t, http.MethodGet, "/api/widgets/widget-1/data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	u := decode[usecase.WidgetUpdate](t, env.Data)
	require.NotNil(t, u.Quote)
	assert.Equal(t, "AAPL", u.Quote.Symbol)

	rec, env = f.do(t, http.MethodPost, "/api/widgets/widget-1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "widget-1", decode[usecase.WidgetUpdate](t, env.Data).WidgetID)

	rec, _ = f.do(t, http.MethodPost, "/api/widgets/nope/refresh", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWatchlistAndSettings(t *testing.T) {
	f := newFixture(t, nil)

	_, env := f.do(t, http.MethodPost, "/api/watchlist/aapl/toggle", "")
	toggled := decode[map[string]any](t, env.Data)
	assert.Equal(t, true, toggled["watchlisted"])
	assert.Equal(t, []string{"AAPL"}, f.dashboard.Watchlist())

	f.do(t, http.MethodPut, "/api/watchlist/MSFT", "")
	f.do(t, http.MethodDelete, "/api/watchlist/AAPL", "")
	assert.Equal(t, []string{"MSFT"}, f.dashboard.Watchlist())

	rec, _ := f.do(t, http.MethodPut, "/api/settings/theme", `{"theme":"blue"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, env = f.do(t, http.MethodPost, "/api/settings/theme/toggle", "")
	assert.Equal(t, map[string]models.Theme{"theme": models.ThemeLight}, decode[map[string]models.Theme](t, env.Data))

	rec, _ = f.do(t, http.MethodPut, "/api/settings/sidebar", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = f.do(t, http.MethodPut, "/api/settings/sidebar", `{"open":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.dashboard.SidebarOpen())

	_, env = f.do(t, http.MethodPatch, "/api/settings/api", `{"finnhubKey":"fh-key"}`)
	status := decode[[]models.ProviderStatus](t, env.Data)
	assert.Equal(t, []models.ProviderStatus{
		{Provider: models.ProviderAlphaVantage, Mode: models.ModeDemo},
		{Provider: models.ProviderFinnhub, Mode: models.ModeLive},
	}, status)

	_, env = f.do(t, http.MethodGet, "/api/dashboard", "")
	view := decode[map[string]json.RawMessage](t, env.Data)
	assert.JSONEq(t, `false`, string(view["sidebarOpen"]))
	assert.JSONEq(t, `"light"`, string(view["theme"]))
	assert.NotContains(t, string(env.Data), "fh-key")
}

func TestExportImportTemplates(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodGet, "/api/templates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total":4`)

	rec, _ = f.do(t, http.MethodPost, "/api/templates/Trader", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, env = f.do(t, http.MethodPost, "/api/templates/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errs := decode[[]xhttp.AppError](t, env.Data)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_NOT_FOUND", errs[0].Code)
	assert.Equal(t, "name", errs[0].Field)

	rec, _ = f.do(t, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()
	assert.Equal(t, f.dashboard.ExportConfig(), exported)

	f.do(t, http.MethodDelete, "/api/widgets", "")
	rec, _ = f.do(t, http.MethodPost, "/api/import", `{"widgets":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.dashboard.Widgets())

	rec, _ = f.do(t, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, exported, f.dashboard.ExportConfig())
}

func TestDataEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	rec, env := f.do(t, http.MethodGet, "/api/quotes/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AAPL", decode[models.StockQuote](t, env.Data).Symbol)

	rec, _ = f.do(t, http.MethodGet, "/api/quotes/AAPL?provider=yahoo", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = f.do(t, http.MethodGet, "/api/timeseries/MSFT?interval=weekly", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total":52`)

	rec, env = f.do(t, http.MethodGet, "/api/quotes?symbols=AAPL,MSFT,TSLA&pageSize=2&page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[MultiQuoteView](t, env.Data)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "TSLA", page.Rows[0].Symbol)
	assert.Empty(t, page.Errors)

	rec, env = f.do(t, http.MethodGet, "/api/quotes?symbols=AAPL,MSFT&q=ms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[MultiQuoteView](t, env.Data)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "MSFT", page.Rows[0].Symbol)

	rec, _ = f.do(t, http.MethodGet, "/api/quotes", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDataEndpointsRateLimited(t *testing.T) {
	f := newFixture(t, ratelimit.New(1, 0.001))

	rec, _ := f.do(t, http.MethodGet, "/api/quotes/AAPL", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, env := f.do(t, http.MethodGet, "/api/quotes/AAPL", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_RATE_LIMITED")

	// budgets are per endpoint
	rec, _ = f.do(t, http.MethodGet, "/api/timeseries/AAPL", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDataErrorMapping(t *testing.T) {
	cases := map[models.ErrorCode]int{
		models.CodeInvalidSymbol: http.StatusNotFound,
		models.CodeRateLimit:     http.StatusTooManyRequests,
		models.CodeInvalidKey:    http.StatusUnauthorized,
		models.CodeNetworkError:  http.StatusBadGateway,
		models.CodeUnknown:       http.StatusBadGateway,
	}
	for code, status := range cases {
		e := dataError(models.NewAPIError(code, "boom"))
		assert.Equal(t, status, e.Status, code)
		assert.Equal(t, string(code), e.Code)
	}
}

func TestStreamDeliversUpdates(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/widgets", `{"type":"finance-card","title":"Apple","symbol":"AAPL"}`)
	f.do(t, http.MethodPost, "/api/widgets", `{"type":"finance-card","title":"Tesla","symbol":"TSLA"}`)

	srv := httptest.NewServer(f.e)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?widgets=widget-2"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.hub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	f.do(t, http.MethodPost, "/api/widgets/widget-1/refresh", "")
	f.do(t, http.MethodPost, "/api/widgets/widget-2/refresh", "")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var u usecase.WidgetUpdate
	require.NoError(t, conn.ReadJSON(&u))
	assert.Equal(t, "widget-2", u.WidgetID)
	require.NotNil(t, u.Quote)
	assert.Equal(t, "TSLA", u.Quote.Symbol)
}
