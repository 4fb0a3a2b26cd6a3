package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinBoard/internal/domain/models"
	pkgcache "FinBoard/pkg/cache"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultTTL is the freshness window of a cached response.
const DefaultTTL = 60 * time.Second

// Entry is one cached response. Data holds the msgpack-encoded value.
type Entry struct {
	Key       string `msgpack:"key"`
	Data      []byte `msgpack:"data"`
	Timestamp int64  `msgpack:"timestamp"` // epoch ms of the write
}

// ResponseCache keys provider responses by request signature. Staleness is
// decided at read time only; entries are overwritten on refetch and never
// deleted here.
type ResponseCache struct {
	store pkgcache.Service
	ttl   time.Duration
	now   func() time.Time
}

func NewResponseCache(store pkgcache.Service, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResponseCache{store: store, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source.
func (c *ResponseCache) WithClock(now func() time.Time) *ResponseCache {
	c.now = now
	return c
}

func (c *ResponseCache) TTL() time.Duration { return c.ttl }

func QuoteKey(symbol string) string { return "quote-" + symbol }

func TimeSeriesKey(symbol string, interval models.TimeInterval) string {
	return fmt.Sprintf("timeseries-%s-%s", symbol, interval)
}

// Lookup decodes the entry under key into dest. It reports false when the
// key is absent, stale, or unreadable.
func (c *ResponseCache) Lookup(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, pkgcache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	var e Entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		return false, fmt.Errorf("cache decode entry %s: %w", key, err)
	}
	if c.now().UnixMilli()-e.Timestamp >= c.ttl.Milliseconds() {
		return false, nil
	}
	if err := msgpack.Unmarshal(e.Data, dest); err != nil {
		return false, fmt.Errorf("cache decode value %s: %w", key, err)
	}
	return true, nil
}

// Store writes v under key stamped with the current time.
func (c *ResponseCache) Store(ctx context.Context, key string, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode value %s: %w", key, err)
	}
	raw, err := msgpack.Marshal(&Entry{Key: key, Data: data, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("cache encode entry %s: %w", key, err)
	}
	if err := c.store.Set(ctx, key, raw, 0); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
