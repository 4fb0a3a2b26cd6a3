package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"FinBoard/internal/domain/models"
	drepo "FinBoard/internal/domain/repository"
	"FinBoard/pkg/logger"

	"github.com/google/uuid"
)

const defaultIOTimeout = 5 * time.Second

var ErrWidgetNotFound = errors.New("widget not found")

// Dashboard owns the widget collection, watchlist, API keys and theme.
// Every operation holds the mutex for its whole duration, so mutations never
// interleave. Successful mutations persist a snapshot, publish a change event
// and hand the new widget list to subscribers.
type Dashboard struct {
	mu sync.Mutex

	widgets     models.WidgetList
	watchlist   []string
	apiConfig   models.APIConfig
	theme       models.Theme
	sidebarOpen bool

	store       drepo.SnapshotStore
	key         string
	events      drepo.EventPublisher
	metrics     drepo.Metrics
	log         *logger.Logger
	subscribers []func([]models.Widget)

	now       func() time.Time
	newID     func() string
	ioTimeout time.Duration

	// loadErr holds the last failed snapshot load. Saving is suspended while
	// it is set so an unreadable store is never overwritten with fresh state.
	loadErr error
}

type DashboardOption func(*Dashboard)

func WithDashboardClock(now func() time.Time) DashboardOption {
	return func(d *Dashboard) { d.now = now }
}

func WithIDGenerator(gen func() string) DashboardOption {
	return func(d *Dashboard) { d.newID = gen }
}

// WithSnapshotKey overrides the storage key (default models.SnapshotKey).
func WithSnapshotKey(key string) DashboardOption {
	return func(d *Dashboard) {
		if key != "" {
			d.key = key
		}
	}
}

func NewDashboard(store drepo.SnapshotStore, events drepo.EventPublisher, metrics drepo.Metrics, log *logger.Logger, opts ...DashboardOption) *Dashboard {
	if log == nil {
		log = logger.Nop()
	}
	d := &Dashboard{
		widgets:     models.WidgetList{},
		watchlist:   []string{},
		theme:       models.ThemeDark,
		sidebarOpen: true,
		store:       store,
		key:         models.SnapshotKey,
		events:      events,
		metrics:     metrics,
		log:         log.Named("dashboard"),
		now:         time.Now,
		newID:       func() string { return "widget-" + uuid.NewString() },
		ioTimeout:   defaultIOTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers fn to receive a copy of the widget list after every
// change to it. fn runs with the dashboard locked and must not call back
// into the Dashboard.
func (d *Dashboard) Subscribe(fn func([]models.Widget)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, fn)
}

// Hydrate restores the persisted snapshot. A missing snapshot leaves the
// initial state; an undecodable one is logged and ignored. When the store
// itself fails, the error is returned and persistence stays off until a
// later Hydrate succeeds.
func (d *Dashboard) Hydrate(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.store == nil {
		return nil
	}
	data, found, err := d.store.Load(ctx, d.key)
	if err != nil {
		d.loadErr = err
		d.metrics.RecordError("snapshot_load")
		return fmt.Errorf("load snapshot: %w", err)
	}
	d.loadErr = nil
	if !found {
		d.log.Info("no snapshot, starting fresh", logger.String("key", d.key))
		d.notifyLocked()
		return nil
	}

	snap, err := d.decodeSnapshotLocked(data)
	if err != nil {
		d.metrics.RecordError("snapshot_decode")
		d.log.Warn("ignoring corrupt snapshot", logger.String("key", d.key), logger.Error(err))
		d.notifyLocked()
		return nil
	}

	d.widgets = snap.Widgets
	if snap.Watchlist != nil {
		d.watchlist = dedupe(snap.Watchlist)
	}
	// boot-time keys survive a snapshot saved without them
	if snap.APIConfig.AlphaVantageKey != "" {
		d.apiConfig.AlphaVantageKey = snap.APIConfig.AlphaVantageKey
	}
	if snap.APIConfig.FinnhubKey != "" {
		d.apiConfig.FinnhubKey = snap.APIConfig.FinnhubKey
	}
	if snap.Theme.Valid() {
		d.theme = snap.Theme
	}
	d.log.Info("snapshot restored",
		logger.String("key", d.key),
		logger.Int("widgets", len(d.widgets)),
		logger.Int("watchlist", len(d.watchlist)),
	)
	d.metrics.RecordWidgetCount(len(d.widgets))
	d.notifyLocked()
	return nil
}

type storedSnapshot struct {
	Widgets   []json.RawMessage `json:"widgets"`
	Watchlist []string          `json:"watchlist"`
	APIConfig models.APIConfig  `json:"apiConfig"`
	Theme     models.Theme      `json:"theme"`
}

// decodeSnapshotLocked restores what it can: a widget that no longer decodes
// or validates is dropped on its own, and a repeated id is replaced.
func (d *Dashboard) decodeSnapshotLocked(data []byte) (models.Snapshot, error) {
	var raw storedSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Snapshot{}, err
	}

	snap := models.Snapshot{
		Widgets:   make(models.WidgetList, 0, len(raw.Widgets)),
		Watchlist: raw.Watchlist,
		APIConfig: raw.APIConfig,
		Theme:     raw.Theme,
	}
	seen := make(map[string]struct{}, len(raw.Widgets))
	for i, wr := range raw.Widgets {
		w, err := models.DecodeWidget(wr)
		if err == nil {
			err = models.ValidateWidget(w)
		}
		if err != nil {
			d.metrics.RecordError("snapshot_widget_dropped")
			d.log.Warn("dropping stored widget", logger.Int("index", i), logger.Error(err))
			continue
		}
		b := w.Base()
		if _, dup := seen[b.ID]; dup || b.ID == "" {
			old := b.ID
			b.ID = d.newID()
			d.log.Warn("reassigned stored widget id", logger.String("old", old), logger.String("new", b.ID))
		}
		seen[b.ID] = struct{}{}
		snap.Widgets = append(snap.Widgets, w)
	}
	return snap, nil
}

// SeedAPIConfig fills keys that are still empty. It is meant for boot-time
// configuration and neither persists nor publishes.
func (d *Dashboard) SeedAPIConfig(cfg models.APIConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.apiConfig.AlphaVantageKey == "" {
		d.apiConfig.AlphaVantageKey = cfg.AlphaVantageKey
	}
	if d.apiConfig.FinnhubKey == "" {
		d.apiConfig.FinnhubKey = cfg.FinnhubKey
	}
}

// AddWidget appends a copy of w with a fresh id and timestamps.
func (d *Dashboard) AddWidget(w models.Widget) models.Widget {
	d.mu.Lock()
	defer d.mu.Unlock()

	nw := w.Clone()
	b := nw.Base()
	now := d.now().UnixMilli()
	b.ID = d.newID()
	b.Type = nw.Kind()
	b.CreatedAt = now
	b.UpdatedAt = now
	d.widgets = append(d.widgets, nw)

	d.commitLocked(models.DashboardEvent{Type: models.EventWidgetAdded, WidgetID: b.ID, Symbol: b.Symbol}, true)
	return nw.Clone()
}

// RemoveWidget reports whether a widget was removed.
func (d *Dashboard) RemoveWidget(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexLocked(id)
	if i < 0 {
		return false
	}
	d.widgets = slices.Delete(d.widgets, i, i+1)
	d.commitLocked(models.DashboardEvent{Type: models.EventWidgetRemoved, WidgetID: id}, true)
	return true
}

// UpdateWidget merges patch into the widget and bumps updatedAt. It reports
// false when the widget is absent or the merged widget would be invalid.
func (d *Dashboard) UpdateWidget(id string, patch models.WidgetPatch) bool {
	return d.ApplyPatch(id, patch) == nil
}

// ApplyPatch is UpdateWidget with the reason for a refusal: ErrWidgetNotFound
// or the validation error of the merged widget, which leaves state untouched.
func (d *Dashboard) ApplyPatch(id string, patch models.WidgetPatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexLocked(id)
	if i < 0 {
		return ErrWidgetNotFound
	}
	w := d.widgets[i].Clone()
	patch.ApplyTo(w)
	if err := models.ValidateWidget(w); err != nil {
		d.log.Warn("update rejected", logger.String("widget_id", id), logger.Error(err))
		return err
	}
	w.Base().UpdatedAt = d.now().UnixMilli()
	d.widgets[i] = w
	d.commitLocked(models.DashboardEvent{Type: models.EventWidgetUpdated, WidgetID: id, Symbol: w.Base().Symbol}, true)
	return nil
}

// MoveWidget replaces the widget's position. Swapping two widgets takes two
// calls and the state between them is observable. An invalid position is
// refused.
func (d *Dashboard) MoveWidget(id string, pos models.WidgetPosition) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexLocked(id)
	if i < 0 {
		return false
	}
	if err := models.Validator().Struct(pos); err != nil {
		return false
	}
	b := d.widgets[i].Base()
	b.Position = pos
	b.UpdatedAt = d.now().UnixMilli()
	d.commitLocked(models.DashboardEvent{
		Type:     models.EventWidgetMoved,
		WidgetID: id,
		Detail:   fmt.Sprintf("%d,%d %dx%d", pos.X, pos.Y, pos.W, pos.H),
	}, true)
	return true
}

// DuplicateWidget appends a deep copy shifted one column right.
func (d *Dashboard) DuplicateWidget(id string) (models.Widget, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	dup := d.widgets[i].Clone()
	b := dup.Base()
	now := d.now().UnixMilli()
	b.ID = d.newID()
	b.Title += " (Copy)"
	b.Position.X++
	b.CreatedAt = now
	b.UpdatedAt = now
	d.widgets = append(d.widgets, dup)

	d.commitLocked(models.DashboardEvent{Type: models.EventWidgetDuplicated, WidgetID: b.ID, Detail: id}, true)
	return dup.Clone(), true
}

// AddToWatchlist reports whether symbol was added.
func (d *Dashboard) AddToWatchlist(symbol string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	symbol = normalizeSymbol(symbol)
	if symbol == "" || slices.Contains(d.watchlist, symbol) {
		return false
	}
	d.watchlist = append(d.watchlist, symbol)
	d.commitLocked(models.DashboardEvent{Type: models.EventWatchlistChanged, Symbol: symbol, Detail: "added"}, false)
	return true
}

// RemoveFromWatchlist reports whether symbol was removed.
func (d *Dashboard) RemoveFromWatchlist(symbol string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	symbol = normalizeSymbol(symbol)
	i := slices.Index(d.watchlist, symbol)
	if i < 0 {
		return false
	}
	d.watchlist = slices.Delete(d.watchlist, i, i+1)
	d.commitLocked(models.DashboardEvent{Type: models.EventWatchlistChanged, Symbol: symbol, Detail: "removed"}, false)
	return true
}

// ToggleWatchlist flips membership and returns the new state.
func (d *Dashboard) ToggleWatchlist(symbol string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return false
	}
	detail := "added"
	if i := slices.Index(d.watchlist, symbol); i >= 0 {
		d.watchlist = slices.Delete(d.watchlist, i, i+1)
		detail = "removed"
	} else {
		d.watchlist = append(d.watchlist, symbol)
	}
	d.commitLocked(models.DashboardEvent{Type: models.EventWatchlistChanged, Symbol: symbol, Detail: detail}, false)
	return detail == "added"
}

// SetAPIConfig merges patch into the provider keys. An empty string reverts
// that provider to demo data.
func (d *Dashboard) SetAPIConfig(patch models.APIConfigPatch) {
	d.mu.Lock()
	defer d.mu.Unlock()

	patch.ApplyTo(&d.apiConfig)
	d.commitLocked(models.DashboardEvent{Type: models.EventConfigChanged}, false)
}

// SetTheme records the theme preference. Unknown themes are rejected.
func (d *Dashboard) SetTheme(t models.Theme) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !t.Valid() {
		return false
	}
	d.theme = t
	d.commitLocked(models.DashboardEvent{Type: models.EventThemeChanged, Detail: string(t)}, false)
	return true
}

func (d *Dashboard) ToggleTheme() models.Theme {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.theme = d.theme.Toggle()
	d.commitLocked(models.DashboardEvent{Type: models.EventThemeChanged, Detail: string(d.theme)}, false)
	return d.theme
}

// SetSidebarOpen is session state only; it is never persisted.
func (d *Dashboard) SetSidebarOpen(open bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sidebarOpen = open
}

func (d *Dashboard) SidebarOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sidebarOpen
}

// ExportConfig renders the dashboard as 2-space indented JSON in the order
// widgets, watchlist, apiConfig, theme.
func (d *Dashboard) ExportConfig() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out, err := json.MarshalIndent(d.snapshotLocked(), "", "  ")
	if err != nil {
		d.log.Error("export failed", logger.Error(err))
		return ""
	}
	return string(out)
}

// ImportConfig replaces the dashboard from an exported document. Anything
// malformed leaves the state untouched and returns false.
func (d *Dashboard) ImportConfig(text string) bool {
	snap, err := d.parseImport(text)
	if err != nil {
		d.metrics.RecordError("import_rejected")
		d.log.Warn("import rejected", logger.Error(err))
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now().UnixMilli()
	for _, w := range snap.Widgets {
		b := w.Base()
		if b.ID == "" {
			b.ID = d.newID()
		}
		if b.CreatedAt == 0 {
			b.CreatedAt = now
		}
		if b.UpdatedAt == 0 {
			b.UpdatedAt = b.CreatedAt
		}
	}
	d.widgets = snap.Widgets
	if snap.Watchlist != nil {
		d.watchlist = snap.Watchlist
	}
	if snap.APIConfig != nil {
		d.apiConfig = *snap.APIConfig
	}
	if snap.Theme != "" {
		d.theme = snap.Theme
	}
	d.commitLocked(models.DashboardEvent{Type: models.EventImported, Detail: fmt.Sprintf("%d widgets", len(d.widgets))}, true)
	return true
}

type importDoc struct {
	Widgets   models.WidgetList
	Watchlist []string
	APIConfig *models.APIConfig
	Theme     models.Theme
}

func (d *Dashboard) parseImport(text string) (importDoc, error) {
	var doc importDoc

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return doc, fmt.Errorf("invalid json: %w", err)
	}
	if raw == nil {
		return doc, fmt.Errorf("document is not an object")
	}

	wraw, ok := raw["widgets"]
	if !ok {
		return doc, fmt.Errorf("widgets missing")
	}
	if err := json.Unmarshal(wraw, &doc.Widgets); err != nil {
		return doc, err
	}
	if doc.Widgets == nil {
		return doc, models.ErrNotAnArray
	}
	if err := models.ValidateWidgets(doc.Widgets); err != nil {
		return doc, err
	}

	if v, ok := raw["watchlist"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &doc.Watchlist); err != nil {
			return doc, fmt.Errorf("watchlist: %w", err)
		}
		doc.Watchlist = dedupe(doc.Watchlist)
	}
	if v, ok := raw["apiConfig"]; ok && !isNull(v) {
		var cfg models.APIConfig
		if err := json.Unmarshal(v, &cfg); err != nil {
			return doc, fmt.Errorf("apiConfig: %w", err)
		}
		doc.APIConfig = &cfg
	}
	if v, ok := raw["theme"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &doc.Theme); err != nil {
			return doc, fmt.Errorf("theme: %w", err)
		}
		if !doc.Theme.Valid() {
			return doc, fmt.Errorf("unknown theme %q", doc.Theme)
		}
	}
	return doc, nil
}

// LoadTemplate replaces the widgets with fresh copies of a preset.
func (d *Dashboard) LoadTemplate(name string) bool {
	tn, ok := models.ParseTemplateName(name)
	if !ok {
		return false
	}
	tpl, ok := models.TemplateFor(tn)
	if !ok {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now().UnixMilli()
	widgets := make(models.WidgetList, 0, len(tpl.Widgets))
	for _, w := range tpl.Widgets {
		b := w.Base()
		b.ID = d.newID()
		b.CreatedAt = now
		b.UpdatedAt = now
		widgets = append(widgets, w)
	}
	d.widgets = widgets
	d.commitLocked(models.DashboardEvent{Type: models.EventTemplateLoaded, Detail: string(tn)}, true)
	return true
}

// ClearDashboard removes every widget. Watchlist, keys and theme stay.
func (d *Dashboard) ClearDashboard() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.widgets = models.WidgetList{}
	d.commitLocked(models.DashboardEvent{Type: models.EventCleared}, true)
}

func (d *Dashboard) Snapshot() models.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Dashboard) Widgets() []models.Widget {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.widgets.Clone()
}

func (d *Dashboard) Widget(id string) (models.Widget, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	return d.widgets[i].Clone(), true
}

func (d *Dashboard) Watchlist() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.watchlist)
}

// IsWatchlisted is the authoritative membership check for a card's symbol.
func (d *Dashboard) IsWatchlisted(symbol string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Contains(d.watchlist, normalizeSymbol(symbol))
}

func (d *Dashboard) APIConfig() models.APIConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.apiConfig
}

func (d *Dashboard) Theme() models.Theme {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.theme
}

// CredentialFor resolves the provider and key a widget fetches with.
func (d *Dashboard) CredentialFor(w models.Widget) models.Credential {
	provider := w.Base().APIProvider
	if provider == "" {
		provider = models.ProviderAlphaVantage
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return models.Credential{Provider: provider, APIKey: d.apiConfig.KeyFor(provider)}
}

func (d *Dashboard) indexLocked(id string) int {
	return slices.IndexFunc(d.widgets, func(w models.Widget) bool { return w.Base().ID == id })
}

func (d *Dashboard) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		Widgets:   d.widgets.Clone(),
		Watchlist: slices.Clone(d.watchlist),
		APIConfig: d.apiConfig,
		Theme:     d.theme,
	}
}

// commitLocked runs the side effects of a successful mutation.
func (d *Dashboard) commitLocked(ev models.DashboardEvent, widgetsChanged bool) {
	ev.At = d.now().UnixMilli()

	ctx, cancel := context.WithTimeout(context.Background(), d.ioTimeout)
	defer cancel()

	d.persistLocked(ctx)
	if d.events != nil {
		if err := d.events.Publish(ctx, ev); err != nil {
			d.metrics.RecordError("event_publish")
			d.log.Warn("publish event failed", logger.String("type", string(ev.Type)), logger.Error(err))
		}
	}
	d.log.Debug("dashboard changed",
		logger.String("type", string(ev.Type)),
		logger.String("widget_id", ev.WidgetID),
	)

	if widgetsChanged {
		d.metrics.RecordWidgetCount(len(d.widgets))
		d.notifyLocked()
	}
}

func (d *Dashboard) persistLocked(ctx context.Context) {
	if d.store == nil {
		return
	}
	if d.loadErr != nil {
		d.log.Warn("snapshot not saved, last load failed", logger.String("key", d.key), logger.Error(d.loadErr))
		return
	}
	data, err := json.Marshal(d.snapshotLocked())
	if err == nil {
		err = d.store.Save(ctx, d.key, data)
	}
	if err != nil {
		d.metrics.RecordError("snapshot_save")
		d.log.Error("persist snapshot failed", logger.String("key", d.key), logger.Error(err))
	}
}

func (d *Dashboard) notifyLocked() {
	if len(d.subscribers) == 0 {
		return
	}
	for _, fn := range d.subscribers {
		fn(d.widgets.Clone())
	}
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func dedupe(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = normalizeSymbol(s)
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
