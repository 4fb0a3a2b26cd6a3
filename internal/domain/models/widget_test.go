package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWidgetDispatchesOnType(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind WidgetType
	}{
		{"table", `{"type":"stock-table","title":"T","symbol":"AAPL","symbols":["AAPL","AAPL"],"columns":["symbol"],"pageSize":5}`, WidgetTypeStockTable},
		{"card", `{"type":"finance-card","title":"C","symbol":"TSLA","showVolume":true}`, WidgetTypeFinanceCard},
		{"chart", `{"type":"chart","title":"G","symbol":"SPY","chartType":"candlestick","timeInterval":"weekly"}`, WidgetTypeChart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := DecodeWidget([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, w.Kind())
			assert.Equal(t, tt.kind, w.Base().Type)
		})
	}
}

func TestDecodeWidgetKeepsDuplicateSymbols(t *testing.T) {
	w, err := DecodeWidget([]byte(`{"type":"stock-table","title":"T","symbol":"A","symbols":["AAPL","AAPL"],"columns":["price"],"pageSize":3}`))
	require.NoError(t, err)
	table, ok := w.(*StockTableWidget)
	require.True(t, ok)
	assert.Equal(t, []string{"AAPL", "AAPL"}, table.Symbols)
	assert.Equal(t, 3, table.PageSize)
}

func TestDecodeWidgetRejectsUnknownType(t *testing.T) {
	_, err := DecodeWidget([]byte(`{"type":"gauge","title":"x"}`))
	require.ErrorIs(t, err, ErrUnknownWidgetType)

	_, err = DecodeWidget([]byte(`not json`))
	require.Error(t, err)
}

func TestDecodeWidgetDropsForeignFields(t *testing.T) {
	w, err := DecodeWidget([]byte(`{"type":"finance-card","title":"C","symbol":"TSLA","chartType":"line","isWatchlisted":true}`))
	require.NoError(t, err)

	out, err := json.Marshal(w)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "chartType")
	assert.NotContains(t, string(out), "isWatchlisted")
}

func TestWidgetListRequiresArray(t *testing.T) {
	var l WidgetList
	require.ErrorIs(t, json.Unmarshal([]byte(`{"a":1}`), &l), ErrNotAnArray)
	require.ErrorIs(t, json.Unmarshal([]byte(`null`), &l), ErrNotAnArray)
	require.NoError(t, json.Unmarshal([]byte(` []`), &l))
	assert.Empty(t, l)
}

func TestCloneIsDeep(t *testing.T) {
	orig := &StockTableWidget{
		BaseWidget: BaseWidget{ID: "w1", Type: WidgetTypeStockTable, Title: "T"},
		Symbols:    []string{"AAPL"},
		Columns:    []Column{ColumnPrice},
		PageSize:   5,
	}
	c := orig.Clone().(*StockTableWidget)
	c.Symbols[0] = "MSFT"
	c.Columns[0] = ColumnVolume
	c.Title = "changed"

	assert.Equal(t, "AAPL", orig.Symbols[0])
	assert.Equal(t, ColumnPrice, orig.Columns[0])
	assert.Equal(t, "T", orig.Title)
}

func TestPatchIgnoresForeignVariantFields(t *testing.T) {
	title := "New"
	chart := ChartCandlestick
	size := 12
	card := &FinanceCardWidget{BaseWidget: BaseWidget{Title: "Old", Type: WidgetTypeFinanceCard}}

	WidgetPatch{Title: &title, ChartType: &chart, PageSize: &size}.ApplyTo(card)

	assert.Equal(t, "New", card.Title)
	out, err := json.Marshal(card)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "chartType")
}

func TestPatchAppliesVariantFields(t *testing.T) {
	interval := IntervalMonthly
	pos := WidgetPosition{X: 3, Y: 1, W: 2, H: 1}
	w := &ChartWidget{BaseWidget: BaseWidget{Type: WidgetTypeChart}, ChartType: ChartLine, TimeInterval: IntervalDaily}

	WidgetPatch{TimeInterval: &interval, Position: &pos}.ApplyTo(w)

	assert.Equal(t, IntervalMonthly, w.TimeInterval)
	assert.Equal(t, ChartLine, w.ChartType)
	assert.Equal(t, pos, w.Position)
	assert.True(t, WidgetPatch{}.IsEmpty())
}

func TestApplyDefaultsAndValidate(t *testing.T) {
	table := &StockTableWidget{BaseWidget: BaseWidget{Title: "Table"}}
	require.NoError(t, ApplyDefaults(table))
	assert.Equal(t, WidgetTypeStockTable, table.Type)
	assert.Equal(t, ProviderAlphaVantage, table.APIProvider)
	assert.Equal(t, DefaultSymbols, table.Symbols)
	assert.Equal(t, DefaultColumns, table.Columns)
	assert.Equal(t, DefaultPageSize, table.PageSize)
	assert.Equal(t, "AAPL", table.Symbol)
	assert.Equal(t, WidgetPosition{W: 2, H: 2}, table.Position)
	require.NoError(t, ValidateWidget(table))

	card := &FinanceCardWidget{BaseWidget: BaseWidget{Title: "Card", Symbol: "TSLA"}}
	require.NoError(t, ApplyDefaults(card))
	assert.Equal(t, WidgetPosition{W: 1, H: 1}, card.Position)
	require.NoError(t, ValidateWidget(card))

	chart := &ChartWidget{BaseWidget: BaseWidget{Title: "Chart", Symbol: "SPY"}}
	require.NoError(t, ApplyDefaults(chart))
	assert.Equal(t, ChartLine, chart.ChartType)
	assert.Equal(t, IntervalDaily, chart.TimeInterval)
	require.NoError(t, ValidateWidget(chart))
}

func TestValidateWidgetRejectsBadFields(t *testing.T) {
	tests := []struct {
		name string
		w    Widget
	}{
		{"empty title", &FinanceCardWidget{BaseWidget: BaseWidget{Type: WidgetTypeFinanceCard, Symbol: "A", APIProvider: ProviderFinnhub, Position: WidgetPosition{W: 1, H: 1}}}},
		{"bad interval", &FinanceCardWidget{BaseWidget: BaseWidget{Type: WidgetTypeFinanceCard, Title: "x", Symbol: "A", APIProvider: ProviderFinnhub, RefreshInterval: 1234, Position: WidgetPosition{W: 1, H: 1}}}},
		{"zero width", &FinanceCardWidget{BaseWidget: BaseWidget{Type: WidgetTypeFinanceCard, Title: "x", Symbol: "A", APIProvider: ProviderFinnhub}}},
		{"bad column", &StockTableWidget{BaseWidget: BaseWidget{Type: WidgetTypeStockTable, Title: "x", Symbol: "A", APIProvider: ProviderFinnhub, Position: WidgetPosition{W: 1, H: 1}}, Symbols: []string{"A"}, Columns: []Column{"bid"}, PageSize: 1}},
		{"mismatched type", &ChartWidget{BaseWidget: BaseWidget{Type: WidgetTypeStockTable, Title: "x", Symbol: "A", APIProvider: ProviderFinnhub, Position: WidgetPosition{W: 1, H: 1}}, ChartType: ChartLine, TimeInterval: IntervalDaily}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateWidget(tt.w))
		})
	}
}

func TestValidatePatchRejectsEmptyLists(t *testing.T) {
	require.NoError(t, ValidatePatch(WidgetPatch{}))
	require.NoError(t, ValidatePatch(WidgetPatch{Symbols: []string{"AAPL"}, Columns: []Column{ColumnPrice}}))

	tests := []struct {
		name  string
		patch string
	}{
		{"empty symbols", `{"symbols":[]}`},
		{"blank symbol", `{"symbols":[""]}`},
		{"empty columns", `{"columns":[]}`},
		{"unknown column", `{"columns":["bid"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p WidgetPatch
			require.NoError(t, json.Unmarshal([]byte(tt.patch), &p))
			assert.Error(t, ValidatePatch(p))
		})
	}
}

func TestValidateWidgetsRejectsDuplicateIDs(t *testing.T) {
	card := func(id string) Widget {
		return &FinanceCardWidget{BaseWidget: BaseWidget{
			ID: id, Type: WidgetTypeFinanceCard, Title: "c", Symbol: "A",
			APIProvider: ProviderAlphaVantage, Position: WidgetPosition{W: 1, H: 1},
		}}
	}
	require.NoError(t, ValidateWidgets([]Widget{card("a"), card("b"), card(""), card("")}))
	assert.ErrorIs(t, ValidateWidgets([]Widget{card("a"), card("a")}), ErrDuplicateWidgetID)
}

func TestTemplates(t *testing.T) {
	trader, ok := TemplateFor(TemplateTrader)
	require.True(t, ok)
	require.Len(t, trader.Widgets, 3)
	assert.Equal(t, WidgetTypeChart, trader.Widgets[0].Kind())
	require.NoError(t, ValidateWidgets(trader.Widgets))

	for _, tpl := range Templates() {
		assert.NoError(t, ValidateWidgets(tpl.Widgets), tpl.Name)
	}

	custom, ok := TemplateFor(TemplateCustom)
	require.True(t, ok)
	assert.Empty(t, custom.Widgets)

	_, ok = TemplateFor("scalper")
	assert.False(t, ok)

	name, ok := ParseTemplateName(" Investor ")
	require.True(t, ok)
	assert.Equal(t, TemplateInvestor, name)
}

func TestTemplateForReturnsFreshCopies(t *testing.T) {
	a, _ := TemplateFor(TemplateInvestor)
	a.Widgets[0].(*StockTableWidget).Symbols[0] = "ZZZ"
	b, _ := TemplateFor(TemplateInvestor)
	assert.Equal(t, "AAPL", b.Widgets[0].(*StockTableWidget).Symbols[0])
}
