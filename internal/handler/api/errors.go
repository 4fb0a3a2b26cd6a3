package api

import (
	"fmt"
	"net/http"

	"FinBoard/internal/domain/models"
	xhttp "FinBoard/pkg/http"
)

var (
	errImportRejected = xhttp.NewAppError("ERR_IMPORT_REJECTED", "", "configuration was rejected", http.StatusBadRequest)
	errRateLimited    = xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests)
)

func widgetNotFound(id string) *xhttp.AppError {
	return xhttp.NewAppError("ERR_WIDGET_NOT_FOUND", "id", fmt.Sprintf("widget %q not found", id), http.StatusNotFound).
		WithParam("id", id)
}

func templateNotFound(name string) *xhttp.AppError {
	e := xhttp.NotFoundErrorf("unknown template %q", name).WithParam("templates", models.TemplateNames)
	e.Field = "name"
	return e
}

// dataError maps the data-layer taxonomy onto an HTTP error.
func dataError(e *models.APIError) *xhttp.AppError {
	status := http.StatusBadGateway
	switch e.Code {
	case models.CodeInvalidSymbol:
		status = http.StatusNotFound
	case models.CodeRateLimit:
		status = http.StatusTooManyRequests
	case models.CodeInvalidKey:
		status = http.StatusUnauthorized
	}
	return xhttp.NewAppError(string(e.Code), "", e.Message, status)
}
