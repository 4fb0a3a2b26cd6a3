package models

// Requests for the dashboard HTTP endpoints. Bound with echo's binder,
// filled by creasty/defaults and checked with the shared validator.

type QuoteRequest struct {
	Symbol   string      `param:"symbol" validate:"required"`
	Provider APIProvider `query:"provider" default:"alpha-vantage" validate:"oneof=alpha-vantage finnhub"`
}

type TimeSeriesRequest struct {
	Symbol   string       `param:"symbol" validate:"required"`
	Interval TimeInterval `query:"interval" default:"daily" validate:"oneof=daily weekly monthly"`
	Provider APIProvider  `query:"provider" default:"alpha-vantage" validate:"oneof=alpha-vantage finnhub"`
}

// MultiQuoteRequest fetches a stock table. Search and pagination apply to
// the quotes that loaded; a zero page size returns every row.
type MultiQuoteRequest struct {
	Symbols  string      `query:"symbols" validate:"required"`
	Provider APIProvider `query:"provider" default:"alpha-vantage" validate:"oneof=alpha-vantage finnhub"`
	Search   string      `query:"q"`
	Page     int         `query:"page" default:"1" validate:"gte=1"`
	PageSize int         `query:"pageSize" validate:"gte=0,lte=100"`
}

type ThemeRequest struct {
	Theme Theme `json:"theme" validate:"required,oneof=light dark"`
}

type SidebarRequest struct {
	Open *bool `json:"open" validate:"required"`
}
