package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownWidgetType = errors.New("unknown widget type")
	ErrNotAnArray        = errors.New("widgets must be an array")
)

// DecodeWidget decodes one widget, dispatching on its "type" field. Fields
// that belong to other variants are dropped.
func DecodeWidget(data []byte) (Widget, error) {
	var head struct {
		Type WidgetType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode widget: %w", err)
	}

	var w Widget
	switch head.Type {
	case WidgetTypeStockTable:
		w = &StockTableWidget{}
	case WidgetTypeFinanceCard:
		w = &FinanceCardWidget{}
	case WidgetTypeChart:
		w = &ChartWidget{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWidgetType, head.Type)
	}

	if err := json.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("decode %s widget: %w", head.Type, err)
	}
	return w, nil
}

// WidgetList is an ordered widget collection that can be decoded from JSON.
type WidgetList []Widget

func (l *WidgetList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return ErrNotAnArray
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return fmt.Errorf("decode widgets: %w", err)
	}

	out := make(WidgetList, 0, len(raws))
	for i, raw := range raws {
		w, err := DecodeWidget(raw)
		if err != nil {
			return fmt.Errorf("widget %d: %w", i, err)
		}
		out = append(out, w)
	}
	*l = out
	return nil
}

// Clone deep-copies every widget of the list.
func (l WidgetList) Clone() WidgetList {
	out := make(WidgetList, len(l))
	for i, w := range l {
		out[i] = w.Clone()
	}
	return out
}
