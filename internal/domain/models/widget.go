package models

// WidgetType is the discriminant of the widget sum type.
type WidgetType string

const (
	WidgetTypeStockTable  WidgetType = "stock-table"
	WidgetTypeFinanceCard WidgetType = "finance-card"
	WidgetTypeChart       WidgetType = "chart"
)

// APIProvider selects the market-data provider a widget reads from.
type APIProvider string

const (
	ProviderAlphaVantage APIProvider = "alpha-vantage"
	ProviderFinnhub      APIProvider = "finnhub"
)

type ChartType string

const (
	ChartLine        ChartType = "line"
	ChartCandlestick ChartType = "candlestick"
)

// TimeInterval is the period of one time series point.
type TimeInterval string

const (
	IntervalDaily   TimeInterval = "daily"
	IntervalWeekly  TimeInterval = "weekly"
	IntervalMonthly TimeInterval = "monthly"
)

// Column is a stock table column key.
type Column string

const (
	ColumnSymbol        Column = "symbol"
	ColumnPrice         Column = "price"
	ColumnChange        Column = "change"
	ColumnChangePercent Column = "changePercent"
	ColumnVolume        Column = "volume"
	ColumnHigh          Column = "high"
	ColumnLow           Column = "low"
	ColumnOpen          Column = "open"
)

// Refresh intervals in milliseconds. Zero disables automatic polling.
const (
	RefreshManual = 0
	Refresh5s     = 5000
	Refresh10s    = 10000
	Refresh30s    = 30000
)

// WidgetPosition is a grid origin and span.
type WidgetPosition struct {
	X int `json:"x" validate:"gte=0"`
	Y int `json:"y" validate:"gte=0"`
	W int `json:"w" validate:"gte=1"`
	H int `json:"h" validate:"gte=1"`
}

// BaseWidget holds the fields shared by every widget variant.
type BaseWidget struct {
	ID              string         `json:"id"`
	Type            WidgetType     `json:"type" validate:"oneof=stock-table finance-card chart"`
	Title           string         `json:"title" validate:"required"`
	Description     string         `json:"description,omitempty"`
	Position        WidgetPosition `json:"position"`
	RefreshInterval int            `json:"refreshInterval" validate:"oneof=0 5000 10000 30000"`
	APIProvider     APIProvider    `json:"apiProvider" default:"alpha-vantage" validate:"oneof=alpha-vantage finnhub"`
	Symbol          string         `json:"symbol" validate:"required"`
	CreatedAt       int64          `json:"createdAt"`
	UpdatedAt       int64          `json:"updatedAt"`
}

// Base gives access to the shared fields of any variant.
func (b *BaseWidget) Base() *BaseWidget { return b }

// Widget is implemented by exactly three variants: *StockTableWidget,
// *FinanceCardWidget and *ChartWidget. Consumers switch on the concrete type.
type Widget interface {
	Kind() WidgetType
	Base() *BaseWidget
	Clone() Widget
	widget()
}

type StockTableWidget struct {
	BaseWidget
	Symbols  []string `json:"symbols" validate:"min=1,dive,required"`
	Columns  []Column `json:"columns" validate:"min=1,dive,oneof=symbol price change changePercent volume high low open"`
	PageSize int      `json:"pageSize" default:"5" validate:"gt=0"`
}

type FinanceCardWidget struct {
	BaseWidget
	ShowVolume    bool `json:"showVolume"`
	ShowMarketCap bool `json:"showMarketCap"`
}

type ChartWidget struct {
	BaseWidget
	ChartType    ChartType    `json:"chartType" default:"line" validate:"oneof=line candlestick"`
	TimeInterval TimeInterval `json:"timeInterval" default:"daily" validate:"oneof=daily weekly monthly"`
}

func (*StockTableWidget) Kind() WidgetType  { return WidgetTypeStockTable }
func (*FinanceCardWidget) Kind() WidgetType { return WidgetTypeFinanceCard }
func (*ChartWidget) Kind() WidgetType       { return WidgetTypeChart }

func (*StockTableWidget) widget()  {}
func (*FinanceCardWidget) widget() {}
func (*ChartWidget) widget()       {}

func (w *StockTableWidget) Clone() Widget {
	c := *w
	c.Symbols = append([]string(nil), w.Symbols...)
	c.Columns = append([]Column(nil), w.Columns...)
	if w.Symbols != nil && c.Symbols == nil {
		c.Symbols = []string{}
	}
	if w.Columns != nil && c.Columns == nil {
		c.Columns = []Column{}
	}
	return &c
}

func (w *FinanceCardWidget) Clone() Widget {
	c := *w
	return &c
}

func (w *ChartWidget) Clone() Widget {
	c := *w
	return &c
}

// SetDefaults fills builder defaults for fields left empty. It runs after the
// `default` struct tags are applied by creasty/defaults.
func (w *StockTableWidget) SetDefaults() {
	w.Type = WidgetTypeStockTable
	fillSize(&w.Position, WidgetTypeStockTable)
	if len(w.Symbols) == 0 {
		w.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if len(w.Columns) == 0 {
		w.Columns = append([]Column(nil), DefaultColumns...)
	}
	if w.Symbol == "" && len(w.Symbols) > 0 {
		w.Symbol = w.Symbols[0]
	}
}

func (w *FinanceCardWidget) SetDefaults() {
	w.Type = WidgetTypeFinanceCard
	fillSize(&w.Position, WidgetTypeFinanceCard)
}

func (w *ChartWidget) SetDefaults() {
	w.Type = WidgetTypeChart
	fillSize(&w.Position, WidgetTypeChart)
}

func fillSize(p *WidgetPosition, t WidgetType) {
	size := DefaultSize(t)
	if p.W == 0 {
		p.W = size.W
	}
	if p.H == 0 {
		p.H = size.H
	}
}

// IsValidWidgetType reports whether t names a known variant.
func IsValidWidgetType(t WidgetType) bool {
	switch t {
	case WidgetTypeStockTable, WidgetTypeFinanceCard, WidgetTypeChart:
		return true
	default:
		return false
	}
}
