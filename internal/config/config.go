package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "strings"

    "github.com/joho/godotenv"
)

type Server struct {
    Port              string `json:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Yahoo struct {
    Enabled               bool   `json:"enabled"`
    Endpoint              string `json:"endpoint"`
    MaxRetries            int    `json:"max_retries"`
    RetryDelaySec         int    `json:"retry_delay_sec"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
    CacheTTLSeconds       int    `json:"cache_ttl_sec"`
    CacheMaxItems         int    `json:"cache_max_items"`
}

type Config struct {
    Server   Server `json:"server"`
    Yahoo    Yahoo  `json:"yahoo"`
    LogLevel string `json:"log_level"`
}

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 10},
        Yahoo: Yahoo{
            Enabled:       true,
            MaxRetries:    2,
            RetryDelaySec: 1,
            Burst:         1,
            CacheTTLSeconds: 15,
            CacheMaxItems:   1000,
        },
        LogLevel: "info",
    }
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. A .env file (when present) and environment variables
// override select fields.
func Load(path string) (Config, error) {
    _ = godotenv.Load()
    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.json"); err == nil {
            path = "config.json"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := json.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Server.RequestTimeoutSec = x }
    }
    if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.LogLevel = v }
    if v := os.Getenv("YAHOO_ENABLED"); v != "" {
        switch strings.ToLower(v) {
        case "1","true","yes","y": cfg.Yahoo.Enabled = true
        case "0","false","no","n": cfg.Yahoo.Enabled = false
        }
    }
    if v := os.Getenv("YAHOO_ENDPOINT"); v != "" { cfg.Yahoo.Endpoint = v }
    if v := os.Getenv("YAHOO_MAX_RETRIES"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Yahoo.MaxRetries = x }
    }
    if v := os.Getenv("YAHOO_RETRY_DELAY_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Yahoo.RetryDelaySec = x }
    }
    if v := os.Getenv("YAHOO_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Yahoo.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("YAHOO_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Yahoo.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("YAHOO_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Yahoo.Burst = x }
    }
    if v := os.Getenv("YAHOO_CACHE_TTL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Yahoo.CacheTTLSeconds = x }
    }
    if v := os.Getenv("YAHOO_CACHE_MAX_ITEMS"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Yahoo.CacheMaxItems = x }
    }
}
