package models

// WidgetPatch is a partial widget update. Nil fields are left untouched.
// id, type and createdAt cannot be patched.
type WidgetPatch struct {
	Title           *string         `json:"title,omitempty" validate:"omitnil,min=1"`
	Description     *string         `json:"description,omitempty"`
	Position        *WidgetPosition `json:"position,omitempty"`
	RefreshInterval *int            `json:"refreshInterval,omitempty" validate:"omitnil,oneof=0 5000 10000 30000"`
	APIProvider     *APIProvider    `json:"apiProvider,omitempty" validate:"omitnil,oneof=alpha-vantage finnhub"`
	Symbol          *string         `json:"symbol,omitempty" validate:"omitnil,min=1"`

	// stock-table
	Symbols  []string `json:"symbols,omitempty" validate:"omitnil,min=1,dive,required"`
	Columns  []Column `json:"columns,omitempty" validate:"omitnil,min=1,dive,oneof=symbol price change changePercent volume high low open"`
	PageSize *int     `json:"pageSize,omitempty" validate:"omitnil,gt=0"`

	// finance-card
	ShowVolume    *bool `json:"showVolume,omitempty"`
	ShowMarketCap *bool `json:"showMarketCap,omitempty"`

	// chart
	ChartType    *ChartType    `json:"chartType,omitempty" validate:"omitnil,oneof=line candlestick"`
	TimeInterval *TimeInterval `json:"timeInterval,omitempty" validate:"omitnil,oneof=daily weekly monthly"`
}

// ApplyTo merges the patch into w. Variant fields that w cannot carry are ignored.
func (p WidgetPatch) ApplyTo(w Widget) {
	b := w.Base()
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Position != nil {
		b.Position = *p.Position
	}
	if p.RefreshInterval != nil {
		b.RefreshInterval = *p.RefreshInterval
	}
	if p.APIProvider != nil {
		b.APIProvider = *p.APIProvider
	}
	if p.Symbol != nil {
		b.Symbol = *p.Symbol
	}

	switch v := w.(type) {
	case *StockTableWidget:
		if p.Symbols != nil {
			v.Symbols = append([]string{}, p.Symbols...)
		}
		if p.Columns != nil {
			v.Columns = append([]Column{}, p.Columns...)
		}
		if p.PageSize != nil {
			v.PageSize = *p.PageSize
		}
	case *FinanceCardWidget:
		if p.ShowVolume != nil {
			v.ShowVolume = *p.ShowVolume
		}
		if p.ShowMarketCap != nil {
			v.ShowMarketCap = *p.ShowMarketCap
		}
	case *ChartWidget:
		if p.ChartType != nil {
			v.ChartType = *p.ChartType
		}
		if p.TimeInterval != nil {
			v.TimeInterval = *p.TimeInterval
		}
	}
}

// IsEmpty reports whether the patch carries no field at all.
func (p WidgetPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Position == nil &&
		p.RefreshInterval == nil && p.APIProvider == nil && p.Symbol == nil &&
		p.Symbols == nil && p.Columns == nil && p.PageSize == nil &&
		p.ShowVolume == nil && p.ShowMarketCap == nil &&
		p.ChartType == nil && p.TimeInterval == nil
}
