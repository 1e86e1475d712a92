package main

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "time"

    "github.com/rs/zerolog"
    "stockquote/internal/config"
    "stockquote/internal/fetcher"
    "stockquote/internal/httpx"
    "stockquote/internal/logging"
    "stockquote/internal/provider"
    "stockquote/internal/provider/ratelimit"
    yahoopkg "stockquote/internal/provider/yahoo"
    "stockquote/internal/provider/yahooadapter"
)

// testSymbol is the known-good symbol used by the connectivity check.
const testSymbol = "AAPL"

type searchResponse struct {
    Success bool             `json:"success"`
    Results []provider.Quote `json:"results"`
    Message string           `json:"message"`
    Source  string           `json:"source"`
}

type testResponse struct {
    Success bool            `json:"success"`
    Message string          `json:"message"`
    Data    *provider.Quote `json:"data,omitempty"`
    Error   string          `json:"error,omitempty"`
}

type errorResponse struct {
    Error string `json:"error"`
}

func main() {
    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    log := logging.New(cfg.LogLevel)
    if err != nil {
        log.Warn().Err(err).Msg("⚠️ config load failed, using defaults")
    }

    args := os.Args[1:]
    if len(args) == 0 {
        writeJSON(os.Stdout, errorResponse{Error: "no query provided"})
        os.Exit(1)
    }

    f := buildFetcher(cfg, log)
    ctx := context.Background()

    switch {
    case args[0] == "search" && len(args) >= 2:
        runSearch(ctx, os.Stdout, f, args[1])
    case args[0] == "test":
        runTest(ctx, os.Stdout, f, cfg.Yahoo.Enabled)
    default:
        writeJSON(os.Stdout, errorResponse{Error: "invalid command. Use 'search <query>' or 'test'"})
    }
}

// buildFetcher wires the source chain from config: Yahoo client, adapter and
// optional client-side rate limiting. A disabled source yields a fetcher
// that reports unavailability instead of touching the network.
func buildFetcher(cfg config.Config, log zerolog.Logger) *fetcher.Fetcher {
    fcfg := fetcher.Config{
        Available:  cfg.Yahoo.Enabled,
        MaxRetries: cfg.Yahoo.MaxRetries,
        RetryDelay: time.Duration(cfg.Yahoo.RetryDelaySec) * time.Second,
    }
    if !cfg.Yahoo.Enabled {
        log.Warn().Msg("⚠️ yahoo source disabled, using fallback behavior")
        return fetcher.New(fcfg, nil, log)
    }

    httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
    opts := []yahoopkg.YahooAPIClientOption{yahoopkg.WithHTTPClient(httpClient.HTTP)}
    if cfg.Yahoo.Endpoint != "" {
        opts = append(opts, yahoopkg.WithBaseURL(cfg.Yahoo.Endpoint))
    }
    client, err := yahoopkg.NewYahooAPIClient(opts...)
    if err != nil {
        log.Error().Err(err).Msg("❌ yahoo client init failed")
        return fetcher.New(fetcher.Config{Available: false}, nil, log)
    }
    log.Info().Msg("✅ yahoo client initialized")

    var src provider.Source = yahooadapter.New(yahooadapter.Config{Name: "yahoo"}, client)
    if cfg.Yahoo.MaxRequestsPerMinute > 0 {
        rate := float64(cfg.Yahoo.MaxRequestsPerMinute) / 60.0
        burst := cfg.Yahoo.Burst
        if burst <= 0 { burst = 1 }
        src = &ratelimit.TokenBucketSource{S: src, TB: ratelimit.NewTokenBucket(rate, burst)}
    } else if cfg.Yahoo.MinRequestIntervalSec > 0 {
        interval := time.Duration(cfg.Yahoo.MinRequestIntervalSec) * time.Second
        src = &ratelimit.MinInterval{S: src, Interval: interval}
    }
    return fetcher.New(fcfg, src, log)
}

func runSearch(ctx context.Context, w io.Writer, f *fetcher.Fetcher, query string) {
    results := f.Search(ctx, query)
    if results == nil {
        results = []provider.Quote{}
    }
    writeJSON(w, searchResponse{
        Success: true,
        Results: results,
        Message: message(len(results)),
        Source:  f.SourceName(),
    })
}

func runTest(ctx context.Context, w io.Writer, f *fetcher.Fetcher, available bool) {
    if !available {
        writeJSON(w, testResponse{
            Success: false,
            Message: "quote source not available",
            Error:   "yahoo source disabled in configuration",
        })
        return
    }
    q := f.Fetch(ctx, testSymbol)
    if q == nil {
        writeJSON(w, testResponse{
            Success: false,
            Message: "quote lookup test failed",
            Error:   "no data returned for " + testSymbol,
        })
        return
    }
    writeJSON(w, testResponse{
        Success: true,
        Message: "quote lookup is working",
        Data:    q,
    })
}

func message(n int) string {
    if n == 1 {
        return "Found 1 stock using real-time data"
    }
    return fmt.Sprintf("Found %d stocks using real-time data", n)
}

// writeJSON emits exactly one JSON object on w. Stdout must stay parseable,
// so nothing else in this process ever writes to it.
func writeJSON(w io.Writer, v any) {
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}
