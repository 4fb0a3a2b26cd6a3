package models

// Builder defaults for new widgets.
var (
	DefaultSymbols = []string{"AAPL", "TSLA", "MSFT"}
	DefaultColumns = []Column{ColumnSymbol, ColumnPrice, ColumnChange, ColumnChangePercent}
)

const (
	DefaultPageSize        = 5
	DefaultRefreshInterval = Refresh10s
)

// AllColumns is the fixed column set in display order.
var AllColumns = []Column{
	ColumnSymbol, ColumnPrice, ColumnChange, ColumnChangePercent,
	ColumnVolume, ColumnHigh, ColumnLow, ColumnOpen,
}

var columnLabels = map[Column]string{
	ColumnSymbol:        "Symbol",
	ColumnPrice:         "Price",
	ColumnChange:        "Change",
	ColumnChangePercent: "% Change",
	ColumnVolume:        "Volume",
	ColumnHigh:          "High",
	ColumnLow:           "Low",
	ColumnOpen:          "Open",
}

// Label is the table header of c.
func (c Column) Label() string {
	if l, ok := columnLabels[c]; ok {
		return l
	}
	return string(c)
}

// DefaultSize is the grid span a new widget of type t gets.
func DefaultSize(t WidgetType) WidgetPosition {
	switch t {
	case WidgetTypeFinanceCard:
		return WidgetPosition{W: 1, H: 1}
	default:
		return WidgetPosition{W: 2, H: 2}
	}
}
