package main

import (
    "bufio"
    "context"
    "encoding/json"
    "flag"
    "os"
    "strings"
    "sync"
    "time"

    "stockquote/internal/config"
    "stockquote/internal/fetcher"
    "stockquote/internal/httpx"
    "stockquote/internal/logging"
    yahoopkg "stockquote/internal/provider/yahoo"
    "stockquote/internal/provider/yahooadapter"
)

// quote_dump bulk-fetches quotes for a watchlist and writes one JSON
// document. Debug/backfill tool, not part of the serving path.
func main() {
    var (
        symbolsFile string
        outPath     string
        cfgPath     string
        concurrency int
        timeoutSec  int
        maxRetries  int
        rpm         int
    )
    flag.StringVar(&symbolsFile, "symbols-file", "watchlist.txt", "text file with one ticker symbol per line")
    flag.StringVar(&outPath, "out", "quotes.json", "output JSON file path")
    flag.StringVar(&cfgPath, "config", "", "path to config.json (optional)")
    flag.IntVar(&concurrency, "concurrency", 4, "number of parallel requests")
    flag.IntVar(&timeoutSec, "timeout", 20, "HTTP timeout seconds")
    flag.IntVar(&maxRetries, "retries", 3, "max retries on 429")
    flag.IntVar(&rpm, "rpm", 0, "max requests per minute (0 = unlimited)")
    flag.Parse()

    cfg, err := config.Load(cfgPath)
    log := logging.New(cfg.LogLevel)
    if err != nil {
        log.Fatal().Err(err).Msg("config")
    }

    symbols, err := readSymbols(symbolsFile)
    if err != nil {
        log.Fatal().Err(err).Msg("read symbols")
    }
    if len(symbols) == 0 {
        log.Fatal().Msg("no symbols found in symbols-file")
    }
    log.Info().Int("symbols", len(symbols)).Msg("starting dump")

    httpClient := httpx.New(time.Duration(timeoutSec) * time.Second)
    opts := []yahoopkg.YahooAPIClientOption{yahoopkg.WithHTTPClient(httpClient.HTTP)}
    if cfg.Yahoo.Endpoint != "" {
        opts = append(opts, yahoopkg.WithBaseURL(cfg.Yahoo.Endpoint))
    }
    client, err := yahoopkg.NewYahooAPIClient(opts...)
    if err != nil {
        log.Fatal().Err(err).Msg("yahoo client")
    }
    src := yahooadapter.New(yahooadapter.Config{Name: "yahoo"}, client)
    f := fetcher.New(fetcher.Config{
        Available:  true,
        MaxRetries: maxRetries,
        RetryDelay: time.Second,
    }, src, log)

    outFile, err := os.Create(outPath)
    if err != nil {
        log.Fatal().Err(err).Msg("create out")
    }
    defer outFile.Close()
    bw := bufio.NewWriterSize(outFile, 1<<20)
    defer bw.Flush()

    // Start JSON envelope; entries stream in as workers finish.
    _, _ = bw.WriteString("{\"quotes\":[")
    first := true
    var writeMu sync.Mutex

    // Request rate limiter by RPM, if provided
    var tokenCh <-chan time.Time
    if rpm > 0 {
        interval := time.Minute / time.Duration(rpm)
        t := time.NewTicker(interval)
        defer t.Stop()
        tokenCh = t.C
    }

    jobs := make(chan string, concurrency*2)
    wg := sync.WaitGroup{}

    worker := func() {
        defer wg.Done()
        for symbol := range jobs {
            if tokenCh != nil {
                <-tokenCh // gate by RPM
            }
            ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
            q := f.Fetch(ctx, symbol)
            cancel()
            if q == nil {
                continue
            }
            b, err := json.Marshal(q)
            if err != nil {
                log.Error().Err(err).Str("symbol", symbol).Msg("marshal")
                continue
            }
            writeMu.Lock()
            if !first { _, _ = bw.WriteString(",") } else { first = false }
            _, _ = bw.Write(b)
            writeMu.Unlock()
        }
    }

    for i := 0; i < concurrency; i++ {
        wg.Add(1)
        go worker()
    }

    for _, s := range symbols {
        jobs <- s
    }
    close(jobs)
    wg.Wait()

    _, _ = bw.WriteString("]}")
    if err := bw.Flush(); err != nil {
        log.Fatal().Err(err).Msg("flush")
    }
    log.Info().Str("out", outPath).Msg("done")
}

func readSymbols(path string) ([]string, error) {
    b, err := os.ReadFile(path)
    if err != nil { return nil, err }
    lines := strings.Split(string(b), "\n")
    out := make([]string, 0, len(lines))
    seen := make(map[string]struct{}, len(lines))
    for _, line := range lines {
        s := strings.ToUpper(strings.TrimSpace(line))
        if s == "" || strings.HasPrefix(s, "#") { continue }
        if _, dup := seen[s]; dup { continue }
        seen[s] = struct{}{}
        out = append(out, s)
    }
    return out, nil
}
