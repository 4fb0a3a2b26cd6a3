package api

import (
	"errors"
	"io"
	"net/http"

	"FinBoard/internal/domain/models"
	"FinBoard/internal/usecase"
	xhttp "FinBoard/pkg/http"
	xlogger "FinBoard/pkg/logger"

	"github.com/labstack/echo/v4"
)

const maxBodyBytes = 1 << 20

// DashboardHandler exposes the dashboard store over HTTP.
type DashboardHandler struct {
	logger    *xlogger.Logger
	dashboard *usecase.Dashboard
	refresher *usecase.Refresher
}

func NewDashboardHandler(logger *xlogger.Logger, dashboard *usecase.Dashboard, refresher *usecase.Refresher) *DashboardHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardHandler{logger: logger.Named("api.dashboard"), dashboard: dashboard, refresher: refresher}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/dashboard", h.Dashboard)

	g.POST("/widgets", h.AddWidget)
	g.DELETE("/widgets", h.Clear)
	g.PATCH("/widgets/:id", h.UpdateWidget)
	g.PUT("/widgets/:id/position", h.MoveWidget)
	g.POST("/widgets/:id/duplicate", h.DuplicateWidget)
	g.DELETE("/widgets/:id", h.RemoveWidget)
	g.GET("/widgets/:id/data", h.WidgetData)
	g.POST("/widgets/:id/refresh", h.RefreshWidget)

	g.PUT("/watchlist/:symbol", h.AddToWatchlist)
	g.DELETE("/watchlist/:symbol", h.RemoveFromWatchlist)
	g.POST("/watchlist/:symbol/toggle", h.ToggleWatchlist)

	g.PATCH("/settings/api", h.SetAPIConfig)
	g.PUT("/settings/theme", h.SetTheme)
	g.POST("/settings/theme/toggle", h.ToggleTheme)
	g.PUT("/settings/sidebar", h.SetSidebar)

	g.GET("/export", h.Export)
	g.POST("/import", h.Import)
	g.GET("/templates", h.Templates)
	g.POST("/templates/:name", h.LoadTemplate)
	g.GET("/status", h.Status)
}

// DashboardView is the full UI state. Watchlisted is keyed by widget id and
// tells whether the widget's symbol is on the watchlist.
type DashboardView struct {
	Widgets     models.WidgetList       `json:"widgets"`
	Watchlist   []string                `json:"watchlist"`
	Theme       models.Theme            `json:"theme"`
	SidebarOpen bool                    `json:"sidebarOpen"`
	Status      []models.ProviderStatus `json:"status"`
	Watchlisted map[string]bool         `json:"watchlisted"`
}

func (h *DashboardHandler) Dashboard(c echo.Context) error {
	snap := h.dashboard.Snapshot()
	flags := make(map[string]bool, len(snap.Widgets))
	for _, w := range snap.Widgets {
		b := w.Base()
		flags[b.ID] = h.dashboard.IsWatchlisted(b.Symbol)
	}
	return xhttp.SuccessResponse(c, DashboardView{
		Widgets:     snap.Widgets,
		Watchlist:   snap.Watchlist,
		Theme:       snap.Theme,
		SidebarOpen: h.dashboard.SidebarOpen(),
		Status:      snap.APIConfig.Status(),
		Watchlisted: flags,
	})
}

func (h *DashboardHandler) AddWidget(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.ValidationErrors(err))
	}
	w, err := models.DecodeWidget(body)
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.ValidationErrors(err))
	}
	if err := models.ApplyDefaults(w); err != nil {
		return xhttp.BadRequestResponse(c, xhttp.ValidationErrors(err))
	}
	if err := models.ValidateWidget(w); err != nil {
		return xhttp.BadRequestResponse(c, xhttp.ValidationErrors(err))
	}
	return xhttp.CreatedResponse(c, h.dashboard.AddWidget(w))
}

func (h *DashboardHandler) Clear(c echo.Context) error {
	h.dashboard.ClearDashboard()
	return xhttp.NoContentResponse(c)
}

func (h *DashboardHandler) UpdateWidget(c echo.Context) error {
	var patch models.WidgetPatch
	if err := c.Bind(&patch); err != nil {
		return xhttp.BadRequestResponse(c, xhttp.ValidationErrors(err))
	}
	if err := models.ValidatePatch(patch); err != nil {
		return xhttp.BadRequestResponse(c, xhttp.ValidationErrors(err))
	}
	id := c.Param("id")
	if err := h.dashboard.ApplyPatch(id, patch); err != nil {
		if errors.Is(err, usecase.ErrWidgetNotFound) {
			return xhttp.AppErrorResponse(c, widgetNotFound(c.Param("id")))
		}
		return xhttp.BadRequestResponse(c, xhttp.ValidationErrors(err))
	}
	w, _ := h.dashboard.Widget(id)
	return xhttp.SuccessResponse(c, w)
}

func (h *DashboardHandler) MoveWidget(c echo.Context) error {
	pos := &models.WidgetPosition{}
	if verr := xhttp.ReadAndValidateRequest(c, pos); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.dashboard.MoveWidget(c.Param("id"), *pos) {
		return xhttp.AppErrorResponse(c, widgetNotFound(c.Param("id")))
	}
	return xhttp.NoContentResponse(c)
}

func (h *DashboardHandler) DuplicateWidget(c echo.Context) error {
	w, ok := h.dashboard.DuplicateWidget(c.Param("id"))
	if !ok {
		return xhttp.AppErrorResponse(c, widgetNotFound(c.Param("id")))
	}
	return xhttp.CreatedResponse(c, w)
}

func (h *DashboardHandler) RemoveWidget(c echo.Context) error {
	if !h.dashboard.RemoveWidget(c.Param("id")) {
		return xhttp.AppErrorResponse(c, widgetNotFound(c.Param("id")))
	}
	return xhttp.NoContentResponse(c)
}

// WidgetData runs one fetch for the widget without publishing it.
func (h *DashboardHandler) WidgetData(c echo.Context) error {
	w, ok := h.dashboard.Widget(c.Param("id"))
	if !ok {
		return xhttp.AppErrorResponse(c, widgetNotFound(c.Param("id")))
	}
	return xhttp.SuccessResponse(c, h.refresher.Fetch(c.Request().Context(), w))
}

// RefreshWidget fetches through the refresher so stream subscribers see the
// result too.
func (h *DashboardHandler) RefreshWidget(c echo.Context) error {
	u, ok := h.refresher.Refresh(c.Request().Context(), c.Param("id"))
	if !ok {
		return xhttp.AppErrorResponse(c, widgetNotFound(c.Param("id")))
	}
	return xhttp.SuccessResponse(c, u)
}

func (h *DashboardHandler) AddToWatchlist(c echo.Context) error {
	h.dashboard.AddToWatchlist(c.Param("symbol"))
	return xhttp.SuccessResponse(c, h.dashboard.Watchlist())
}

func (h *DashboardHandler) RemoveFromWatchlist(c echo.Context) error {
	h.dashboard.RemoveFromWatchlist(c.Param("symbol"))
	return xhttp.SuccessResponse(c, h.dashboard.Watchlist())
}

func (h *DashboardHandler) ToggleWatchlist(c echo.Context) error {
	on := h.dashboard.ToggleWatchlist(c.Param("symbol"))
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"watchlisted": on,
		"watchlist":   h.dashboard.Watchlist(),
	})
}

func (h *DashboardHandler) SetAPIConfig(c echo.Context) error {
	var patch models.APIConfigPatch
	if err := c.Bind(&patch); err != nil {
		return xhttp.BadRequestResponse(c, xhttp.ValidationErrors(err))
	}
	h.dashboard.SetAPIConfig(patch)
	return xhttp.SuccessResponse(c, h.dashboard.APIConfig().Status())
}

func (h *DashboardHandler) SetTheme(c echo.Context) error {
	req := &models.ThemeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.dashboard.SetTheme(req.Theme)
	return xhttp.SuccessResponse(c, map[string]models.Theme{"theme": h.dashboard.Theme()})
}

func (h *DashboardHandler) ToggleTheme(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]models.Theme{"theme": h.dashboard.ToggleTheme()})
}

func (h *DashboardHandler) SetSidebar(c echo.Context) error {
	req := &models.SidebarRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.dashboard.SetSidebarOpen(*req.Open)
	return xhttp.SuccessResponse(c, map[string]bool{"sidebarOpen": h.dashboard.SidebarOpen()})
}

func (h *DashboardHandler) Export(c echo.Context) error {
	out := h.dashboard.ExportConfig()
	if out == "" {
		return xhttp.InternalServerErrorResponse(c)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="finboard-dashboard.json"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, []byte(out))
}

func (h *DashboardHandler) Import(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.ValidationErrors(err))
	}
	if !h.dashboard.ImportConfig(string(body)) {
		return xhttp.AppErrorResponse(c, errImportRejected)
	}
	return xhttp.ListResponse(c, h.dashboard.Widgets(), int64(len(h.dashboard.Widgets())))
}

func (h *DashboardHandler) Templates(c echo.Context) error {
	tpls := models.Templates()
	return xhttp.ListResponse(c, tpls, int64(len(tpls)))
}

func (h *DashboardHandler) LoadTemplate(c echo.Context) error {
	if !h.dashboard.LoadTemplate(c.Param("name")) {
		return xhttp.AppErrorResponse(c, templateNotFound(c.Param("name")))
	}
	ws := h.dashboard.Widgets()
	return xhttp.ListResponse(c, ws, int64(len(ws)))
}

func (h *DashboardHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.dashboard.APIConfig().Status())
}
