package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"stockquote/internal/provider"
)

// modules are the quoteSummary modules needed to fill a full quote record.
var modules = []string{"price", "summaryDetail", "summaryProfile", "defaultKeyStatistics"}

// Summary is one symbol's quoteSummary result.
type Summary struct {
	Price                Price                `json:"price"`
	SummaryDetail        SummaryDetail        `json:"summaryDetail"`
	SummaryProfile       SummaryProfile       `json:"summaryProfile"`
	DefaultKeyStatistics DefaultKeyStatistics `json:"defaultKeyStatistics"`
}

// Price carries the regular-market price block.
type Price struct {
	Symbol                     string  `json:"symbol"`
	LongName                   string  `json:"longName"`
	ShortName                  string  `json:"shortName"`
	ExchangeName               string  `json:"exchangeName"`
	RegularMarketPrice         Number  `json:"regularMarketPrice"`
	RegularMarketPreviousClose Number  `json:"regularMarketPreviousClose"`
	RegularMarketVolume        Number  `json:"regularMarketVolume"`
	RegularMarketDayHigh       Number  `json:"regularMarketDayHigh"`
	RegularMarketDayLow        Number  `json:"regularMarketDayLow"`
	MarketCap                  Number  `json:"marketCap"`
}

type SummaryDetail struct {
	TrailingPE           Number `json:"trailingPE"`
	DividendRate         Number `json:"dividendRate"`
	DividendYield        Number `json:"dividendYield"`
	Beta                 Number `json:"beta"`
	FiftyTwoWeekHigh     Number `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      Number `json:"fiftyTwoWeekLow"`
	AverageVolume        Number `json:"averageVolume"`
}

type SummaryProfile struct {
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}

type DefaultKeyStatistics struct {
	TrailingEps Number `json:"trailingEps"`
}

// Number is Yahoo's wrapped numeric value. Absent fields decode to a nil Raw,
// which callers must treat as "not provided".
type Number struct {
	Raw *float64 `json:"raw"`
}

// Value returns the wrapped number or def when absent.
func (n Number) Value(def float64) float64 {
	if n.Raw == nil {
		return def
	}
	return *n.Raw
}

// quoteSummaryResponse is the API envelope.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []Summary `json:"result"`
		Error  *apiError `json:"error"`
	} `json:"quoteSummary"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// GetQuoteSummary retrieves the quoteSummary for a single symbol.
// 429 responses map to provider.ErrRateLimited and unknown symbols to
// provider.ErrNotFound so callers can classify without string matching.
func (c *YahooAPIClient) GetQuoteSummary(ctx context.Context, symbol string, opts ...YahooAPIClientOption) (*Summary, error) {
	var override = &YahooAPIClient{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}

	query := maps.Clone(override.query)
	query.Add("modules", strings.Join(modules, ","))
	query.Add("corsDomain", "finance.yahoo.com")
	query.Add("formatted", "false")

	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", override.baseURL, url.PathEscape(symbol), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", symbol, provider.ErrNotFound)

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", symbol, provider.ErrRateLimited)

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("unauthorized")

	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var body quoteSummaryResponse
	dec := json.NewDecoder(res.Body)
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding quoteSummary response: %w", err)
	}
	if e := body.QuoteSummary.Error; e != nil {
		// Yahoo reports unknown symbols as a 200 with an error block.
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, fmt.Errorf("%s: %w", symbol, provider.ErrNotFound)
		}
		return nil, fmt.Errorf("provider error: code=%q description=%q", e.Code, e.Description)
	}
	if len(body.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, provider.ErrNotFound)
	}
	return &body.QuoteSummary.Result[0], nil
}
