package usecase

import (
	"sync"
	"sync/atomic"

	"FinBoard/internal/domain/models"
)

// WidgetUpdate is the outcome of one widget fetch. Exactly one of Quote,
// Quotes or Series is set on success, depending on the widget type.
type WidgetUpdate struct {
	WidgetID string                   `json:"widgetId"`
	Type     models.WidgetType        `json:"type"`
	Quote    *models.StockQuote       `json:"quote,omitempty"`
	Quotes   []models.StockQuote      `json:"quotes,omitempty"`
	Series   []models.TimeSeriesPoint `json:"series,omitempty"`
	Error    *models.APIError         `json:"error,omitempty"`
	Errors   []models.SymbolError     `json:"errors,omitempty"`
	At       int64                    `json:"at"`
}

const defaultHubBuffer = 64

// UpdateHub fans widget updates out to subscribers. A subscriber whose
// buffer is full misses the update instead of blocking the publisher.
type UpdateHub struct {
	mu      sync.RWMutex
	subs    map[int]chan WidgetUpdate
	next    int
	buffer  int
	dropped atomic.Uint64
	closed  bool
}

func NewUpdateHub(buffer int) *UpdateHub {
	if buffer <= 0 {
		buffer = defaultHubBuffer
	}
	return &UpdateHub{subs: make(map[int]chan WidgetUpdate), buffer: buffer}
}

// Subscribe returns a channel of updates and a function that releases it.
func (h *UpdateHub) Subscribe() (<-chan WidgetUpdate, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan WidgetUpdate, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

func (h *UpdateHub) Publish(u WidgetUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- u:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped is the number of updates lost to slow subscribers.
func (h *UpdateHub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *UpdateHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *UpdateHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
