package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"FinBoard/internal/domain/models"
	"FinBoard/pkg/logger"
)

// Fetcher is the data access the refresher polls through.
type Fetcher interface {
	FetchStockQuote(ctx context.Context, symbol string, cred models.Credential) models.QuoteResult
	FetchTimeSeries(ctx context.Context, symbol string, interval models.TimeInterval, cred models.Credential) models.TimeSeriesResult
	FetchMultipleQuotes(ctx context.Context, symbols []string, cred models.Credential) models.MultiQuoteResult
}

// CredentialSource resolves the credential a widget fetches with at the
// time of the fetch.
type CredentialSource func(models.Widget) models.Credential

type pollLoop struct {
	sig    string
	gen    uint64
	widget models.Widget
	cancel context.CancelFunc
}

// Refresher runs one polling loop per widget. A loop fetches once when it
// starts and then every refreshInterval; a zero interval means the widget is
// only fetched again through Refresh. Loops never share state, so updates
// from different widgets arrive in no particular order.
type Refresher struct {
	mu      sync.Mutex
	loops   map[string]*pollLoop
	gen     uint64
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	data  Fetcher
	creds CredentialSource
	hub   *UpdateHub
	log   *logger.Logger
	now   func() time.Time
	unit  time.Duration
}

type RefresherOption func(*Refresher)

// WithIntervalUnit scales refreshInterval values, which are milliseconds by
// default.
func WithIntervalUnit(unit time.Duration) RefresherOption {
	return func(r *Refresher) { r.unit = unit }
}

func WithRefresherClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) { r.now = now }
}

func NewRefresher(data Fetcher, creds CredentialSource, hub *UpdateHub, log *logger.Logger, opts ...RefresherOption) *Refresher {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Refresher{
		loops:  make(map[string]*pollLoop),
		ctx:    ctx,
		cancel: cancel,
		data:   data,
		creds:  creds,
		hub:    hub,
		log:    log.Named("refresher"),
		now:    time.Now,
		unit:   time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sync reconciles the running loops with widgets. Loops of removed widgets
// stop; widgets whose fetch configuration changed get a new loop.
func (r *Refresher) Sync(widgets []models.Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	seen := make(map[string]struct{}, len(widgets))
	for _, w := range widgets {
		id := w.Base().ID
		seen[id] = struct{}{}
		sig := fetchSignature(w)

		if l, ok := r.loops[id]; ok {
			if l.sig == sig {
				l.widget = w.Clone()
				continue
			}
			r.stopLocked(id, "config changed")
		}
		r.startLocked(w, sig)
	}
	for id := range r.loops {
		if _, ok := seen[id]; !ok {
			r.stopLocked(id, "widget removed")
		}
	}
}

// Refresh fetches a widget once, outside its schedule. It reports false for
// widgets the refresher does not know.
func (r *Refresher) Refresh(ctx context.Context, id string) (WidgetUpdate, bool) {
	r.mu.Lock()
	l, ok := r.loops[id]
	var (
		w   models.Widget
		gen uint64
	)
	if ok {
		w, gen = l.widget.Clone(), l.gen
	}
	r.mu.Unlock()
	if !ok {
		return WidgetUpdate{}, false
	}

	u := r.Fetch(ctx, w)
	r.deliver(id, gen, u)
	return u, true
}

// Running reports the number of active loops.
func (r *Refresher) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loops)
}

// Stop cancels every loop and waits for them to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	for id := range r.loops {
		r.stopLocked(id, "shutdown")
	}
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

// Fetch performs one fetch for w without touching any loop.
func (r *Refresher) Fetch(ctx context.Context, w models.Widget) WidgetUpdate {
	cred := r.creds(w)
	b := w.Base()
	u := WidgetUpdate{WidgetID: b.ID, Type: w.Kind()}

	switch v := w.(type) {
	case *models.StockTableWidget:
		res := r.data.FetchMultipleQuotes(ctx, v.Symbols, cred)
		u.Quotes = res.Data
		u.Errors = res.Errors
		if res.Failed() {
			u.Error = res.Errors[0].Error
		}
	case *models.FinanceCardWidget:
		res := r.data.FetchStockQuote(ctx, v.Symbol, cred)
		u.Quote, u.Error = res.Data, res.Error
	case *models.ChartWidget:
		res := r.data.FetchTimeSeries(ctx, v.Symbol, v.TimeInterval, cred)
		u.Series, u.Error = res.Data, res.Error
	}
	u.At = r.now().UnixMilli()
	return u
}

func (r *Refresher) startLocked(w models.Widget, sig string) {
	r.gen++
	ctx, cancel := context.WithCancel(r.ctx)
	l := &pollLoop{sig: sig, gen: r.gen, widget: w.Clone(), cancel: cancel}
	r.loops[w.Base().ID] = l

	interval := time.Duration(w.Base().RefreshInterval) * r.unit
	r.log.Debug("loop started",
		logger.String("widget_id", w.Base().ID),
		logger.Duration("interval", interval),
	)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx, w.Base().ID, l.gen, interval)
	}()
}

func (r *Refresher) stopLocked(id, reason string) {
	l, ok := r.loops[id]
	if !ok {
		return
	}
	l.cancel()
	delete(r.loops, id)
	r.log.Debug("loop stopped", logger.String("widget_id", id), logger.String("reason", reason))
}

func (r *Refresher) run(ctx context.Context, id string, gen uint64, interval time.Duration) {
	r.tick(ctx, id, gen)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx, id, gen)
		}
	}
}

func (r *Refresher) tick(ctx context.Context, id string, gen uint64) {
	r.mu.Lock()
	l, ok := r.loops[id]
	if !ok || l.gen != gen {
		r.mu.Unlock()
		return
	}
	w := l.widget.Clone()
	r.mu.Unlock()

	r.deliver(id, gen, r.Fetch(ctx, w))
}

// deliver publishes u unless the loop that produced it has been retired.
func (r *Refresher) deliver(id string, gen uint64, u WidgetUpdate) {
	r.mu.Lock()
	l, ok := r.loops[id]
	current := ok && l.gen == gen
	r.mu.Unlock()

	if !current {
		r.log.Debug("dropping stale update", logger.String("widget_id", id))
		return
	}
	if u.Error != nil {
		r.log.Warn("widget fetch failed",
			logger.String("widget_id", id),
			logger.String("code", string(u.Error.Code)),
		)
	}
	r.hub.Publish(u)
}

// fetchSignature covers every field that changes what a loop fetches.
func fetchSignature(w models.Widget) string {
	b := w.Base()
	sig := fmt.Sprintf("%s|%s|%s|%d", w.Kind(), b.Symbol, b.APIProvider, b.RefreshInterval)
	switch v := w.(type) {
	case *models.StockTableWidget:
		sig += "|" + strings.Join(v.Symbols, ",")
	case *models.ChartWidget:
		sig += "|" + string(v.TimeInterval)
	}
	return sig
}
