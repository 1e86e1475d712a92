package provider

import (
    "context"
    "errors"
    "strings"
    "time"
)

// Quote is the normalized snapshot of a ticker symbol's market data.
// Every field is independently optional upstream; missing values are
// defaulted when the record is built so callers never see partial data.
type Quote struct {
    Symbol           string    `json:"symbol"`
    Name             string    `json:"name"`
    Price            float64   `json:"price"`
    Change           float64   `json:"change"`
    ChangePercent    float64   `json:"changePercent"`
    Volume           int64     `json:"volume"`
    MarketCap        int64     `json:"marketCap"`
    PE               float64   `json:"pe"`
    Dividend         float64   `json:"dividend"`
    DividendYield    float64   `json:"dividendYield"`
    Sector           string    `json:"sector"`
    Industry         string    `json:"industry"`
    Exchange         string    `json:"exchange"`
    DayHigh          float64   `json:"dayHigh"`
    DayLow           float64   `json:"dayLow"`
    FiftyTwoWeekHigh float64   `json:"fiftyTwoWeekHigh"`
    FiftyTwoWeekLow  float64   `json:"fiftyTwoWeekLow"`
    AvgVolume        int64     `json:"avgVolume"`
    Beta             float64   `json:"beta"`
    EPS              float64   `json:"eps"`
    LastUpdated      time.Time `json:"lastUpdated"`
}

// Valid reports whether the quote carries a usable current price.
// Records without one are treated as "no data".
func (q Quote) Valid() bool { return q.Price > 0 }

// Source is a single-symbol quote lookup against an upstream market-data API.
type Source interface {
    Name() string
    Quote(ctx context.Context, symbol string) (Quote, error)
}

// ErrRateLimited marks upstream HTTP 429 responses.
var ErrRateLimited = errors.New("rate limited: 429 Too Many Requests")

// ErrNotFound marks symbols the upstream does not know.
var ErrNotFound = errors.New("symbol not found")

// IsRateLimited classifies an error as a rate-limit condition. Besides the
// sentinel it also matches the 429 signature in foreign error strings, since
// wrapped transport errors do not always preserve the sentinel.
func IsRateLimited(err error) bool {
    if err == nil {
        return false
    }
    if errors.Is(err, ErrRateLimited) {
        return true
    }
    msg := err.Error()
    return strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests")
}
