package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "sync"
    "syscall"
    "time"

    "github.com/rs/zerolog"
    "stockquote/internal/config"
    "stockquote/internal/fetcher"
    "stockquote/internal/httpx"
    "stockquote/internal/logging"
    "stockquote/internal/provider"
    "stockquote/internal/provider/cache"
    "stockquote/internal/provider/ratelimit"
    yahoopkg "stockquote/internal/provider/yahoo"
    "stockquote/internal/provider/yahooadapter"
)

type searchResponse struct {
    Success bool             `json:"success"`
    Results []provider.Quote `json:"results"`
    Message string           `json:"message"`
    Source  string           `json:"source"`
}

type quoteResponse struct {
    Quote *provider.Quote `json:"quote"`
}

func main() {
    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    log := logging.New(cfg.LogLevel)
    if err != nil {
        log.Fatal().Err(err).Msg("config")
    }
    port := cfg.Server.Port

    f := buildFetcher(cfg, log)
    timeout := time.Duration(cfg.Server.RequestTimeoutSec) * time.Second

    mux := http.NewServeMux()
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet {
            http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
            return
        }
        q := r.URL.Query().Get("q")
        if strings.TrimSpace(q) == "" {
            http.Error(w, "missing q query param", http.StatusBadRequest)
            return
        }
        ctx, cancel := context.WithTimeout(r.Context(), timeout)
        defer cancel()
        writeSearch(w, ctx, f, q)
    })
    mux.HandleFunc("/api/quote", func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodGet {
            http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
            return
        }
        symbol := r.URL.Query().Get("symbol")
        if strings.TrimSpace(symbol) == "" {
            http.Error(w, "missing symbol query param", http.StatusBadRequest)
            return
        }
        ctx, cancel := context.WithTimeout(r.Context(), timeout)
        defer cancel()
        writeQuote(w, ctx, f, symbol)
    })

    srv := &http.Server{
        Addr:              ":" + port,
        Handler:           withJSONHeaders(withGzip(recoverPanic(mux))),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      60 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.Info().Str("port", port).Msg("server listening")
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("server")
        }
    }()

    // graceful shutdown
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
}

// buildFetcher wires the source chain from config. The server keeps a TTL
// quote cache in front of the rate limiter so repeated lookups of hot
// symbols do not spend upstream budget.
func buildFetcher(cfg config.Config, log zerolog.Logger) *fetcher.Fetcher {
    fcfg := fetcher.Config{
        Available:  cfg.Yahoo.Enabled,
        MaxRetries: cfg.Yahoo.MaxRetries,
        RetryDelay: time.Duration(cfg.Yahoo.RetryDelaySec) * time.Second,
    }
    if !cfg.Yahoo.Enabled {
        log.Warn().Msg("⚠️ yahoo source disabled, serving unavailability responses")
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
    if cfg.Yahoo.CacheTTLSeconds > 0 {
        src = &cache.Source{S: src, TTL: time.Duration(cfg.Yahoo.CacheTTLSeconds) * time.Second, MaxItems: cfg.Yahoo.CacheMaxItems}
    }
    return fetcher.New(fcfg, src, log)
}

func writeSearch(w http.ResponseWriter, ctx context.Context, f *fetcher.Fetcher, query string) {
    results := f.Search(ctx, query)
    if results == nil {
        results = []provider.Quote{}
    }
    resp := searchResponse{
        Success: true,
        Results: results,
        Message: searchMessage(len(results)),
        Source:  f.SourceName(),
    }
    w.WriteHeader(http.StatusOK)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(resp)
}

func writeQuote(w http.ResponseWriter, ctx context.Context, f *fetcher.Fetcher, symbol string) {
    q := f.Fetch(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
    if q == nil {
        http.Error(w, "no data for symbol", http.StatusNotFound)
        return
    }
    w.WriteHeader(http.StatusOK)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(quoteResponse{Quote: q})
}

func searchMessage(n int) string {
    if n == 1 {
        return "Found 1 stock using real-time data"
    }
    return fmt.Sprintf("Found %d stocks using real-time data", n)
}

func withJSONHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        // Basic CORS for browser usage; adjust as needed.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        // Prefer best speed to reduce CPU usage since payloads are JSON
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
        next.ServeHTTP(gw, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                http.Error(w, "internal server error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
}
