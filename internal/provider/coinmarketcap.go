package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"crypto-market-lab/internal/domain"
	"crypto-market-lab/internal/ratelimit"
)

// CoinMarketCap is the primary market-data adapter: ranked listings and daily
// historical OHLCV with real market capitalization.
type CoinMarketCap struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Limiter *ratelimit.Limiter
}

// NewCoinMarketCap creates a CoinMarketCap adapter.
func NewCoinMarketCap(baseURL, apiKey string, limiter *ratelimit.Limiter) *CoinMarketCap {
	return &CoinMarketCap{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(),
		Limiter: limiter,
	}
}

type cmcListingsResponse struct {
	Data []struct {
		ID     int64  `json:"id"`
		Symbol string `json:"symbol"`
		Quote  struct {
			USD struct {
				Price float64 `json:"price"`
			} `json:"USD"`
		} `json:"quote"`
	} `json:"data"`
}

type cmcOHLCVResponse struct {
	Data struct {
		Quotes []struct {
			TimeOpen time.Time `json:"time_open"`
			Quote    struct {
				USD struct {
					Close     float64 `json:"close"`
					MarketCap float64 `json:"market_cap"`
				} `json:"USD"`
			} `json:"quote"`
		} `json:"quotes"`
	} `json:"data"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

func (c *CoinMarketCap) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.APIKey)
	req.Header.Set("Accept", "application/json")

	if err := c.Limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", classifyStatus(resp.StatusCode), resp.StatusCode)
	}
	return body, nil
}

// TopListings returns the top n cryptocurrencies by rank with current price
// and the provider-internal id.
func (c *CoinMarketCap) TopListings(ctx context.Context, n int) ([]domain.Listing, error) {
	body, err := c.get(ctx, "/cryptocurrency/listings/latest", nil)
	if err != nil {
		return nil, err
	}

	var decoded cmcListingsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode listings: %v", ErrUnavailable, err)
	}
	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("%w: empty listings", ErrUnavailable)
	}

	if len(decoded.Data) > n {
		decoded.Data = decoded.Data[:n]
	}
	listings := make([]domain.Listing, 0, len(decoded.Data))
	for _, d := range decoded.Data {
		listings = append(listings, domain.Listing{
			Symbol: d.Symbol,
			Price:  d.Quote.USD.Price,
			ID:     d.ID,
		})
	}
	return listings, nil
}

// AssetHistory returns the daily close price and market capitalization for
// symbol within [start, end].
func (c *CoinMarketCap) AssetHistory(ctx context.Context, symbol string, start, end time.Time) (domain.AssetHistory, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("time_start", start.UTC().Format("2006-01-02T15:04:05Z"))
	query.Set("time_end", end.UTC().Format("2006-01-02T15:04:05Z"))
	query.Set("interval", "1d")
	query.Set("convert", "USD")

	body, err := c.get(ctx, "/cryptocurrency/ohlcv/historical", query)
	if err != nil {
		return domain.AssetHistory{}, err
	}

	var decoded cmcOHLCVResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.AssetHistory{}, fmt.Errorf("%w: decode ohlcv: %v", ErrUnavailable, err)
	}
	if decoded.Status.ErrorCode != 0 {
		return domain.AssetHistory{}, fmt.Errorf("%w: api error %d: %s",
			ErrUnavailable, decoded.Status.ErrorCode, decoded.Status.ErrorMessage)
	}
	if len(decoded.Data.Quotes) == 0 {
		return domain.AssetHistory{}, fmt.Errorf("%w: empty dataset for %s", ErrUnavailable, symbol)
	}

	prices := make([]domain.Point, 0, len(decoded.Data.Quotes))
	caps := make([]domain.Point, 0, len(decoded.Data.Quotes))
	for _, q := range decoded.Data.Quotes {
		ts := q.TimeOpen.UTC()
		prices = append(prices, domain.Point{Time: ts, Value: q.Quote.USD.Close})
		caps = append(caps, domain.Point{Time: ts, Value: q.Quote.USD.MarketCap})
	}

	return domain.AssetHistory{
		Symbol:    symbol,
		Price:     domain.NewTimeSeries(symbol, prices),
		MarketCap: domain.NewTimeSeries(symbol, caps),
	}, nil
}
