package fetcher

import (
    "context"
    "strings"
    "time"

    "github.com/rs/zerolog"
    "stockquote/internal/provider"
)

// exchangeSuffixes are tried when an exact symbol lookup finds nothing.
// Kept to the few most common listings to avoid burning rate limit budget.
var exchangeSuffixes = []string{".TO", ".V", ".AX"} // Toronto, TSX Venture, Australia

// popularSymbols is the fixed fallback list matched against short queries.
var popularSymbols = []string{"AAPL", "MSFT", "GOOGL", "TSLA", "NVDA", "AMZN", "META", "NFLX"}

const (
    // maxPopularCandidates caps how many popular-symbol lookups one search
    // may trigger beyond the exact and suffix phases.
    maxPopularCandidates = 2
    // shortQueryLen is the longest query treated as a partial symbol.
    shortQueryLen = 4
)

type Config struct {
    // Available gates all lookups. When false every fetch short-circuits to
    // "no data" without touching the network.
    Available bool
    // MaxRetries is the number of extra attempts after a rate-limited call.
    MaxRetries int
    // RetryDelay is the wait before the first retry; it doubles per retry.
    RetryDelay time.Duration
}

// Fetcher looks up quotes through a Source, retrying rate-limited calls and
// converting every other failure into a logged "no data" result. It never
// panics or surfaces an error for a single symbol.
type Fetcher struct {
    cfg Config
    src provider.Source
    log zerolog.Logger

    // sleep waits for d or until ctx is canceled. Replaced in tests.
    sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, src provider.Source, log zerolog.Logger) *Fetcher {
    if cfg.MaxRetries < 0 { cfg.MaxRetries = 0 }
    if cfg.RetryDelay <= 0 { cfg.RetryDelay = time.Second }
    if src == nil { cfg.Available = false }
    return &Fetcher{cfg: cfg, src: src, log: log, sleep: sleepCtx}
}

// Fetch retrieves one symbol's quote. It returns nil when no valid quote is
// available for any reason; the reason is logged to the diagnostic stream.
func (f *Fetcher) Fetch(ctx context.Context, symbol string) *provider.Quote {
    if !f.cfg.Available {
        f.log.Warn().Str("symbol", symbol).Msg("⚠️ quote source not available, skipping lookup")
        return nil
    }

    delay := f.cfg.RetryDelay
    for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
        if attempt > 0 {
            f.log.Info().Dur("wait", delay).Msg("⏳ waiting before retry")
            if err := f.sleep(ctx, delay); err != nil {
                f.log.Warn().Err(err).Str("symbol", symbol).Msg("⚠️ canceled while waiting to retry")
                return nil
            }
        }
        f.log.Info().Str("symbol", symbol).Int("attempt", attempt+1).Msg("🔍 fetching quote")

        q, err := f.src.Quote(ctx, symbol)
        if err != nil {
            f.log.Error().Err(err).Str("symbol", symbol).Msg("❌ fetch failed")
            if provider.IsRateLimited(err) {
                if attempt < f.cfg.MaxRetries {
                    f.log.Warn().Str("symbol", symbol).Msg("⚠️ rate limit detected, will retry")
                    delay *= 2 // exponential backoff
                    continue
                }
                f.log.Error().Str("symbol", symbol).Msg("❌ max retries reached, giving up")
                return nil
            }
            // Non-rate-limit errors are terminal for this symbol.
            return nil
        }
        if !q.Valid() {
            f.log.Warn().Str("symbol", symbol).Msg("⚠️ no valid quote data")
            return nil
        }
        f.log.Info().Str("symbol", q.Symbol).Float64("price", q.Price).Msg("✅ quote fetched")
        return &q
    }
    return nil
}

// Search resolves a free-form query to zero or more quotes. Phases, in order:
// exact symbol, common exchange suffixes (first hit wins), then for short
// queries a substring match against the popular-symbol list with at most two
// lookups. Failures never propagate; they are logged and skipped.
func (f *Fetcher) Search(ctx context.Context, query string) []provider.Quote {
    term := strings.ToUpper(strings.TrimSpace(query))
    if term == "" {
        return nil
    }
    f.log.Info().Str("query", term).Msg("🔍 searching")

    if q := f.Fetch(ctx, term); q != nil {
        f.log.Info().Str("symbol", q.Symbol).Msg("✅ exact match found")
        return []provider.Quote{*q}
    }

    for _, suffix := range exchangeSuffixes {
        withSuffix := term + suffix
        if q := f.Fetch(ctx, withSuffix); q != nil {
            f.log.Info().Str("symbol", withSuffix).Msg("✅ match found with exchange suffix")
            return []provider.Quote{*q}
        }
    }

    if len(term) > shortQueryLen {
        return nil
    }
    candidates := make([]string, 0, maxPopularCandidates)
    for _, p := range popularSymbols {
        if !strings.Contains(p, term) && !strings.Contains(term, p) {
            continue
        }
        candidates = append(candidates, p)
        if len(candidates) == maxPopularCandidates {
            break
        }
    }
    var results []provider.Quote
    for _, sym := range candidates {
        if q := f.Fetch(ctx, sym); q != nil {
            results = append(results, *q)
        }
    }
    return results
}

// SourceName reports the upstream's display name, or "none" when unavailable.
func (f *Fetcher) SourceName() string {
    if f.src == nil {
        return "none"
    }
    return f.src.Name()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}
