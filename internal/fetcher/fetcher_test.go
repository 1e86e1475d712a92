package fetcher

import (
    "context"
    "fmt"
    "testing"
    "time"

    "github.com/rs/zerolog"
    "github.com/stretchr/testify/require"
    "stockquote/internal/provider"
)

// scriptedSource returns canned results per symbol, counting calls.
type scriptedSource struct {
    quotes map[string]provider.Quote
    errs   map[string]error
    calls  []string
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Quote(_ context.Context, symbol string) (provider.Quote, error) {
    s.calls = append(s.calls, symbol)
    if err, ok := s.errs[symbol]; ok {
        return provider.Quote{}, err
    }
    if q, ok := s.quotes[symbol]; ok {
        return q, nil
    }
    return provider.Quote{}, fmt.Errorf("%s: %w", symbol, provider.ErrNotFound)
}

func newTestFetcher(src provider.Source, cfg Config) (*Fetcher, *[]time.Duration) {
    f := New(cfg, src, zerolog.Nop())
    waits := &[]time.Duration{}
    f.sleep = func(_ context.Context, d time.Duration) error {
        *waits = append(*waits, d)
        return nil
    }
    return f, waits
}

func TestFetch_ValidSymbol(t *testing.T) {
    src := &scriptedSource{quotes: map[string]provider.Quote{
        "AAPL": {Symbol: "AAPL", Name: "Apple Inc.", Price: 192.42},
    }}
    f, _ := newTestFetcher(src, Config{Available: true, MaxRetries: 2, RetryDelay: time.Second})

    q := f.Fetch(context.Background(), "AAPL")
    require.NotNil(t, q)
    require.Equal(t, "AAPL", q.Symbol)
    require.Greater(t, q.Price, 0.0)
}

func TestFetch_UnknownSymbol_NoData(t *testing.T) {
    src := &scriptedSource{}
    f, _ := newTestFetcher(src, Config{Available: true, MaxRetries: 2, RetryDelay: time.Second})

    q := f.Fetch(context.Background(), "ZZZZZZZZ")
    require.Nil(t, q)
    // not-found is not retried
    require.Len(t, src.calls, 1)
}

func TestFetch_ZeroPrice_NoData(t *testing.T) {
    src := &scriptedSource{quotes: map[string]provider.Quote{
        "HALT": {Symbol: "HALT", Price: 0},
    }}
    f, _ := newTestFetcher(src, Config{Available: true, MaxRetries: 2, RetryDelay: time.Second})

    require.Nil(t, f.Fetch(context.Background(), "HALT"))
}

func TestFetch_Unavailable_ShortCircuits(t *testing.T) {
    src := &scriptedSource{}
    f, _ := newTestFetcher(src, Config{Available: false, MaxRetries: 2, RetryDelay: time.Second})

    require.Nil(t, f.Fetch(context.Background(), "AAPL"))
    require.Empty(t, src.calls, "unavailable fetcher must not touch the source")
}

func TestFetch_RateLimited_RetriesWithBackoff(t *testing.T) {
    src := &scriptedSource{errs: map[string]error{
        "AAPL": provider.ErrRateLimited,
    }}
    f, waits := newTestFetcher(src, Config{Available: true, MaxRetries: 2, RetryDelay: time.Second})

    q := f.Fetch(context.Background(), "AAPL")
    require.Nil(t, q)

    // exactly MaxRetries+1 attempts
    require.Len(t, src.calls, 3)

    // strictly increasing backoff between attempts
    require.Len(t, *waits, 2)
    require.Equal(t, 2*time.Second, (*waits)[0])
    require.Equal(t, 4*time.Second, (*waits)[1])
}

func TestFetch_RateLimitSignatureInForeignError(t *testing.T) {
    src := &scriptedSource{errs: map[string]error{
        "AAPL": fmt.Errorf("upstream said: 429 Too Many Requests"),
    }}
    f, _ := newTestFetcher(src, Config{Available: true, MaxRetries: 1, RetryDelay: time.Second})

    require.Nil(t, f.Fetch(context.Background(), "AAPL"))
    require.Len(t, src.calls, 2, "string-matched 429 should retry too")
}

func TestFetch_OtherError_NoRetry(t *testing.T) {
    src := &scriptedSource{errs: map[string]error{
        "AAPL": fmt.Errorf("connection reset by peer"),
    }}
    f, waits := newTestFetcher(src, Config{Available: true, MaxRetries: 2, RetryDelay: time.Second})

    require.Nil(t, f.Fetch(context.Background(), "AAPL"))
    require.Len(t, src.calls, 1)
    require.Empty(t, *waits)
}

func TestSearch_EmptyQuery(t *testing.T) {
    src := &scriptedSource{}
    f, _ := newTestFetcher(src, Config{Available: true, MaxRetries: 0, RetryDelay: time.Second})

    require.Empty(t, f.Search(context.Background(), ""))
    require.Empty(t, f.Search(context.Background(), "   \t "))
    require.Empty(t, src.calls)
}

func TestSearch_ExactMatch(t *testing.T) {
    src := &scriptedSource{quotes: map[string]provider.Quote{
        "AAPL": {Symbol: "AAPL", Price: 192.42},
    }}
    f, _ := newTestFetcher(src, Config{Available: true, MaxRetries: 0, RetryDelay: time.Second})

    results := f.Search(context.Background(), " aapl ")
    require.Len(t, results, 1)
    require.Equal(t, "AAPL", results[0].Symbol)
    require.Equal(t, []string{"AAPL"}, src.calls, "exact hit must stop the search")
}

func TestSearch_SuffixFallback_FirstHitWins(t *testing.T) {
    src := &scriptedSource{quotes: map[string]provider.Quote{
        "SHOP.TO": {Symbol: "SHOP.TO", Price: 99.5},
    }}
    f, _ := newTestFetcher(src, Config{Available: true, MaxRetries: 0, RetryDelay: time.Second})

    results := f.Search(context.Background(), "SHOP")
    require.Len(t, results, 1)
    require.Equal(t, "SHOP.TO", results[0].Symbol)
    // exact then first suffix; later suffixes and popular fallback skipped
    require.Equal(t, []string{"SHOP", "SHOP.TO"}, src.calls)
}

func TestSearch_PopularFallback_ShortQuery(t *testing.T) {
    src := &scriptedSource{quotes: map[string]provider.Quote{
        "AAPL": {Symbol: "AAPL", Price: 192.42},
        "TSLA": {Symbol: "TSLA", Price: 178.22},
    }}
    f, _ := newTestFetcher(src, Config{Available: true, MaxRetries: 0, RetryDelay: time.Second})

    // "A" matches several popular symbols; only the first two get fetched
    results := f.Search(context.Background(), "A")
    require.Len(t, results, 2)
    require.Equal(t, "AAPL", results[0].Symbol)
    require.Equal(t, "TSLA", results[1].Symbol)
}

func TestSearch_PopularFallback_SkippedForLongQuery(t *testing.T) {
    src := &scriptedSource{}
    f, _ := newTestFetcher(src, Config{Available: true, MaxRetries: 0, RetryDelay: time.Second})

    require.Empty(t, f.Search(context.Background(), "AAPLX"))
    // exact + three suffixes, no popular-symbol lookups
    require.Len(t, src.calls, 4)
}

func TestSearch_SwallowsSourceErrors(t *testing.T) {
    src := &scriptedSource{errs: map[string]error{
        "BOOM":    fmt.Errorf("kaput"),
        "BOOM.TO": fmt.Errorf("kaput"),
        "BOOM.V":  fmt.Errorf("kaput"),
        "BOOM.AX": fmt.Errorf("kaput"),
    }}
    f, _ := newTestFetcher(src, Config{Available: true, MaxRetries: 0, RetryDelay: time.Second})

    require.NotPanics(t, func() {
        require.Empty(t, f.Search(context.Background(), "BOOM"))
    })
}
