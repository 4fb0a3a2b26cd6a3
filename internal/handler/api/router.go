package api

import (
	xhttp "FinBoard/pkg/http"

	"github.com/labstack/echo/v4"
)

// Router registers a set of handlers as one.
type Router []xhttp.Handler

func NewRouter(dashboard *DashboardHandler, data *DataHandler, stream *StreamHandler) Router {
	return Router{dashboard, data, stream}
}

func (r Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r {
		h.RegisterRoutes(e)
	}
}
