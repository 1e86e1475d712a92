package cache

import (
    "context"
    "sync"
    "time"

    "stockquote/internal/provider"
    "golang.org/x/sync/singleflight"
)

// entry stores a cached quote with expiry.
type entry struct {
    expiresAt time.Time
    quote     provider.Quote
}

// Source caches quotes per symbol for a TTL and coalesces concurrent
// refreshes of the same symbol so a burst of identical lookups costs a
// single upstream call.
type Source struct {
    S        provider.Source
    TTL      time.Duration
    MaxItems int

    mu    sync.RWMutex
    items map[string]entry // key: symbol
    sf    singleflight.Group
}

func (c *Source) Name() string { return c.S.Name() }

// Quote returns the cached quote for symbol when still valid, refreshing
// through the underlying source otherwise.
func (c *Source) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
    if c.S == nil || c.TTL <= 0 {
        return c.S.Quote(ctx, symbol)
    }

    now := time.Now()

    c.mu.RLock()
    e, ok := c.items[symbol]
    c.mu.RUnlock()
    if ok && now.Before(e.expiresAt) {
        return e.quote, nil
    }

    v, err, _ := c.sf.Do(symbol, func() (any, error) {
        q, err := c.S.Quote(ctx, symbol)
        if err != nil {
            return provider.Quote{}, err
        }
        c.store(symbol, q, time.Now().Add(c.TTL))
        return q, nil
    })
    if err != nil {
        return provider.Quote{}, err
    }
    return v.(provider.Quote), nil
}

func (c *Source) store(symbol string, q provider.Quote, expiry time.Time) {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.items == nil {
        c.items = make(map[string]entry)
    }
    c.items[symbol] = entry{expiresAt: expiry, quote: q}
    // best-effort cap cache size: drop expired first, then arbitrary keys
    if c.MaxItems > 0 && len(c.items) > c.MaxItems {
        now := time.Now()
        for k, v := range c.items {
            if now.After(v.expiresAt) {
                delete(c.items, k)
            }
            if len(c.items) <= c.MaxItems {
                break
            }
        }
        for k := range c.items {
            if len(c.items) <= c.MaxItems { break }
            delete(c.items, k)
        }
    }
}
