package yahooadapter

import (
    "context"
    "strings"
    "time"

    "stockquote/internal/provider"
    "stockquote/internal/provider/yahoo"
)

type Config struct {
    Name string // display name, default: yahoo
}

// Adapter turns a Yahoo quoteSummary into the normalized Quote record.
type Adapter struct {
    cfg    Config
    client *yahoo.YahooAPIClient
}

func New(cfg Config, client *yahoo.YahooAPIClient) *Adapter {
    if cfg.Name == "" { cfg.Name = "yahoo" }
    return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Quote fetches and normalizes a single symbol. Defaulting rules:
// missing name falls back to the symbol, missing high/low fields fall back
// to the current price, sector/industry default to "Unknown" and the
// exchange to "NASDAQ". Dividend yield is reported as a percentage.
func (a *Adapter) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
    sym := strings.ToUpper(strings.TrimSpace(symbol))

    s, err := a.client.GetQuoteSummary(ctx, sym)
    if err != nil {
        return provider.Quote{}, err
    }

    price := s.Price.RegularMarketPrice.Value(0)
    prevClose := s.Price.RegularMarketPreviousClose.Value(price)
    change := price - prevClose
    changePercent := 0.0
    if prevClose > 0 {
        changePercent = change / prevClose * 100
    }

    name := s.Price.LongName
    if name == "" { name = s.Price.ShortName }
    if name == "" { name = sym }

    sector := s.SummaryProfile.Sector
    if sector == "" { sector = "Unknown" }
    industry := s.SummaryProfile.Industry
    if industry == "" { industry = "Unknown" }
    exchange := s.Price.ExchangeName
    if exchange == "" { exchange = "NASDAQ" }

    return provider.Quote{
        Symbol:           sym,
        Name:             name,
        Price:            price,
        Change:           change,
        ChangePercent:    changePercent,
        Volume:           int64(s.Price.RegularMarketVolume.Value(0)),
        MarketCap:        int64(s.Price.MarketCap.Value(0)),
        PE:               s.SummaryDetail.TrailingPE.Value(0),
        Dividend:         s.SummaryDetail.DividendRate.Value(0),
        DividendYield:    s.SummaryDetail.DividendYield.Value(0) * 100,
        Sector:           sector,
        Industry:         industry,
        Exchange:         exchange,
        DayHigh:          s.Price.RegularMarketDayHigh.Value(price),
        DayLow:           s.Price.RegularMarketDayLow.Value(price),
        FiftyTwoWeekHigh: s.SummaryDetail.FiftyTwoWeekHigh.Value(price),
        FiftyTwoWeekLow:  s.SummaryDetail.FiftyTwoWeekLow.Value(price),
        AvgVolume:        int64(s.SummaryDetail.AverageVolume.Value(0)),
        Beta:             s.SummaryDetail.Beta.Value(0),
        EPS:              s.DefaultKeyStatistics.TrailingEps.Value(0),
        LastUpdated:      time.Now().UTC(),
    }, nil
}
