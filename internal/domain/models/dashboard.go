package models

// SnapshotKey is the storage key of the persisted dashboard.
const SnapshotKey = "finboard-dashboard"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark }

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// APIConfig holds provider credentials. An empty key means demo mode.
type APIConfig struct {
	AlphaVantageKey string `json:"alphaVantageKey"`
	FinnhubKey      string `json:"finnhubKey"`
}

// KeyFor returns the configured key of provider.
func (c APIConfig) KeyFor(p APIProvider) string {
	switch p {
	case ProviderFinnhub:
		return c.FinnhubKey
	default:
		return c.AlphaVantageKey
	}
}

// APIConfigPatch shallow-merges into APIConfig. An empty string clears a key.
type APIConfigPatch struct {
	AlphaVantageKey *string `json:"alphaVantageKey,omitempty"`
	FinnhubKey      *string `json:"finnhubKey,omitempty"`
}

func (p APIConfigPatch) ApplyTo(c *APIConfig) {
	if p.AlphaVantageKey != nil {
		c.AlphaVantageKey = *p.AlphaVantageKey
	}
	if p.FinnhubKey != nil {
		c.FinnhubKey = *p.FinnhubKey
	}
}

// Credential is the provider and key a fetch runs with. An empty APIKey
// selects demo data.
type Credential struct {
	Provider APIProvider
	APIKey   string
}

// Demo is the credential that always yields synthesized data.
var Demo = Credential{Provider: ProviderAlphaVantage}

// Snapshot is the persisted and exported dashboard document. Field order is
// the export order.
type Snapshot struct {
	Widgets   WidgetList `json:"widgets"`
	Watchlist []string   `json:"watchlist"`
	APIConfig APIConfig  `json:"apiConfig"`
	Theme     Theme      `json:"theme"`
}

// ProviderStatus reports whether a provider runs live or on demo data.
type ProviderStatus struct {
	Provider APIProvider `json:"provider"`
	Mode     string      `json:"mode"`
}

const (
	ModeDemo = "demo"
	ModeLive = "live"
)

// Status lists the mode of every provider.
func (c APIConfig) Status() []ProviderStatus {
	out := make([]ProviderStatus, 0, 2)
	for _, p := range []APIProvider{ProviderAlphaVantage, ProviderFinnhub} {
		mode := ModeDemo
		if c.KeyFor(p) != "" {
			mode = ModeLive
		}
		out = append(out, ProviderStatus{Provider: p, Mode: mode})
	}
	return out
}

// EventType names a dashboard change.
type EventType string

const (
	EventWidgetAdded      EventType = "widget.added"
	EventWidgetRemoved    EventType = "widget.removed"
	EventWidgetUpdated    EventType = "widget.updated"
	EventWidgetMoved      EventType = "widget.moved"
	EventWidgetDuplicated EventType = "widget.duplicated"
	EventWatchlistChanged EventType = "watchlist.changed"
	EventConfigChanged    EventType = "config.changed"
	EventThemeChanged     EventType = "theme.changed"
	EventImported         EventType = "dashboard.imported"
	EventTemplateLoaded   EventType = "dashboard.template_loaded"
	EventCleared          EventType = "dashboard.cleared"
)

// DashboardEvent is one entry of the change feed.
type DashboardEvent struct {
	Type     EventType `json:"type"`
	WidgetID string    `json:"widgetId,omitempty"`
	Symbol   string    `json:"symbol,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       int64     `json:"at"`
}
