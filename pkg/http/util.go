package http

import (
	"strings"

	xutil "FinBoard/pkg/util"

	"github.com/labstack/echo/v4"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int { return xutil.ParseIntDefault(s, def) }

// QueryList reads a comma separated query parameter. Blank items are dropped.
func QueryList(c echo.Context, name string) []string {
	return xutil.SplitList(c.QueryParam(name))
}

// ClientKey identifies the caller for per-client budgets.
func ClientKey(c echo.Context) string {
	return strings.TrimSpace(c.RealIP())
}
