package models

import "strings"

// FilterQuotes keeps the quotes whose symbol contains query, ignoring case.
func FilterQuotes(quotes []StockQuote, query string) []StockQuote {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return quotes
	}
	out := make([]StockQuote, 0, len(quotes))
	for _, quote := range quotes {
		if strings.Contains(strings.ToLower(quote.Symbol), q) {
			out = append(out, quote)
		}
	}
	return out
}

// Page is one page of a stock table.
type Page struct {
	Rows       []StockQuote `json:"rows"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
	Total      int          `json:"total"`
}

// Paginate returns the 1-based page of quotes. Out-of-range pages are clamped.
func Paginate(quotes []StockQuote, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(quotes)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	rows := []StockQuote{}
	if start < total {
		rows = quotes[start:end]
	}
	return Page{Rows: rows, Page: page, TotalPages: totalPages, Total: total}
}
