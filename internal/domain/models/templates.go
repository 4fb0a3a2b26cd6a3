package models

import "strings"

type TemplateName string

const (
	TemplateTrader   TemplateName = "trader"
	TemplateInvestor TemplateName = "investor"
	TemplateAnalyst  TemplateName = "analyst"
	TemplateCustom   TemplateName = "custom"
)

// TemplateNames lists the built-in presets in catalogue order.
var TemplateNames = []TemplateName{TemplateTrader, TemplateInvestor, TemplateAnalyst, TemplateCustom}

// Template is a preset bundle of widgets. Widgets carry no id or timestamps.
type Template struct {
	Name        TemplateName `json:"name"`
	DisplayName string       `json:"displayName"`
	Description string       `json:"description"`
	Widgets     []Widget     `json:"widgets"`
}

// ParseTemplateName accepts a case-insensitive preset name.
func ParseTemplateName(s string) (TemplateName, bool) {
	name := TemplateName(strings.ToLower(strings.TrimSpace(s)))
	for _, n := range TemplateNames {
		if n == name {
			return n, true
		}
	}
	return "", false
}

// TemplateFor builds a fresh copy of the named preset.
func TemplateFor(name TemplateName) (Template, bool) {
	switch name {
	case TemplateTrader:
		return Template{
			Name:        name,
			DisplayName: "Trader",
			Description: "Fast-paced trading view with charts and quick access",
			Widgets: []Widget{
				&ChartWidget{
					BaseWidget:   preset(WidgetTypeChart, "AAPL Chart", "AAPL", WidgetPosition{X: 0, Y: 0, W: 2, H: 2}, Refresh5s),
					ChartType:    ChartCandlestick,
					TimeInterval: IntervalDaily,
				},
				&FinanceCardWidget{
					BaseWidget:    preset(WidgetTypeFinanceCard, "Tesla", "TSLA", WidgetPosition{X: 2, Y: 0, W: 1, H: 1}, Refresh5s),
					ShowVolume:    true,
					ShowMarketCap: true,
				},
				&FinanceCardWidget{
					BaseWidget:    preset(WidgetTypeFinanceCard, "Microsoft", "MSFT", WidgetPosition{X: 3, Y: 0, W: 1, H: 1}, Refresh5s),
					ShowVolume:    true,
					ShowMarketCap: false,
				},
			},
		}, true
	case TemplateInvestor:
		return Template{
			Name:        name,
			DisplayName: "Investor",
			Description: "Long-term investment view with portfolio overview",
			Widgets: []Widget{
				&StockTableWidget{
					BaseWidget: preset(WidgetTypeStockTable, "My Portfolio", "PORTFOLIO", WidgetPosition{X: 0, Y: 0, W: 2, H: 2}, Refresh30s),
					Symbols:    []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA"},
					Columns:    []Column{ColumnSymbol, ColumnPrice, ColumnChange, ColumnChangePercent},
					PageSize:   10,
				},
				&ChartWidget{
					BaseWidget:   preset(WidgetTypeChart, "Market Overview", "SPY", WidgetPosition{X: 2, Y: 0, W: 2, H: 2}, Refresh30s),
					ChartType:    ChartLine,
					TimeInterval: IntervalMonthly,
				},
			},
		}, true
	case TemplateAnalyst:
		return Template{
			Name:        name,
			DisplayName: "Analyst",
			Description: "In-depth analysis with multiple data points",
			Widgets: []Widget{
				&ChartWidget{
					BaseWidget:   preset(WidgetTypeChart, "NVDA Analysis", "NVDA", WidgetPosition{X: 0, Y: 0, W: 2, H: 2}, Refresh10s),
					ChartType:    ChartCandlestick,
					TimeInterval: IntervalDaily,
				},
				&StockTableWidget{
					BaseWidget: preset(WidgetTypeStockTable, "Tech Sector", "TECH", WidgetPosition{X: 2, Y: 0, W: 2, H: 2}, Refresh10s),
					Symbols:    []string{"AAPL", "MSFT", "GOOGL", "META", "NVDA", "AMD"},
					Columns:    []Column{ColumnSymbol, ColumnPrice, ColumnChange, ColumnChangePercent, ColumnVolume},
					PageSize:   10,
				},
			},
		}, true
	case TemplateCustom:
		return Template{
			Name:        name,
			DisplayName: "Custom",
			Description: "Start with a blank dashboard",
			Widgets:     []Widget{},
		}, true
	default:
		return Template{}, false
	}
}

// Templates returns the whole catalogue.
func Templates() []Template {
	out := make([]Template, 0, len(TemplateNames))
	for _, n := range TemplateNames {
		t, _ := TemplateFor(n)
		out = append(out, t)
	}
	return out
}

func preset(t WidgetType, title, symbol string, pos WidgetPosition, refresh int) BaseWidget {
	return BaseWidget{
		Type:            t,
		Title:           title,
		Symbol:          symbol,
		Position:        pos,
		RefreshInterval: refresh,
		APIProvider:     ProviderAlphaVantage,
	}
}
