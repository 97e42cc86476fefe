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

// Yahoo fetches daily bars from the Yahoo Finance chart API. It serves the
// equity and volatility indices and acts as the fallback historical provider
// for crypto symbols via the <SYM>-USD ticker convention.
type Yahoo struct {
	BaseURL   string
	Client    *http.Client
	Limiter   *ratelimit.Limiter
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahoo creates a Yahoo Finance adapter.
func NewYahoo(baseURL string, limiter *ratelimit.Limiter) *Yahoo {
	return &Yahoo{
		BaseURL: baseURL,
		Client:  newHTTPClient(),
		Limiter: limiter,
		SymbolMap: map[string]string{
			"SP500": "^GSPC",
			"SPX":   "^GSPC",
			"VIX":   "^VIX",
		},
	}
}

// yahooChart is the response envelope of the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) ticker(symbol string) string {
	if mapped, ok := y.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// bar is one daily close with optional volume.
type bar struct {
	time   time.Time
	close  float64
	volume float64
}

func (y *Yahoo) fetchChart(ctx context.Context, ticker string, start, end time.Time) ([]bar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		y.BaseURL, url.PathEscape(ticker), start.Unix(), end.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	if err := y.Limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	resp, err := y.Client.Do(req)
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

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: decode chart: %v", ErrUnavailable, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: api error: %s", ErrUnavailable, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("%w: no data for %s", ErrUnavailable, ticker)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no quote data for %s", ErrUnavailable, ticker)
	}
	quote := result.Indicators.Quote[0]

	bars := make([]bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue // null bars (holidays etc.)
		}
		b := bar{time: time.Unix(ts, 0).UTC(), close: *quote.Close[i]}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			b.volume = *quote.Volume[i]
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: only null bars for %s", ErrUnavailable, ticker)
	}
	return bars, nil
}

// IndexHistory returns the daily close series for an index symbol such as
// SP500 or VIX within [start, end].
func (y *Yahoo) IndexHistory(ctx context.Context, symbol string, start, end time.Time) (domain.TimeSeries, error) {
	bars, err := y.fetchChart(ctx, y.ticker(symbol), start, end)
	if err != nil {
		return domain.TimeSeries{}, err
	}
	points := make([]domain.Point, len(bars))
	for i, b := range bars {
		points[i] = domain.Point{Time: b.time, Value: b.close}
	}
	return domain.NewTimeSeries(symbol, points), nil
}

// AssetHistory returns the daily price history for a crypto symbol using the
// <SYM>-USD ticker. Market capitalization is approximated as close*volume and
// flagged as such.
func (y *Yahoo) AssetHistory(ctx context.Context, symbol string, start, end time.Time) (domain.AssetHistory, error) {
	bars, err := y.fetchChart(ctx, symbol+"-USD", start, end)
	if err != nil {
		return domain.AssetHistory{}, err
	}
	prices := make([]domain.Point, len(bars))
	caps := make([]domain.Point, len(bars))
	for i, b := range bars {
		prices[i] = domain.Point{Time: b.time, Value: b.close}
		caps[i] = domain.Point{Time: b.time, Value: b.close * b.volume}
	}
	return domain.AssetHistory{
		Symbol:          symbol,
		Price:           domain.NewTimeSeries(symbol, prices),
		MarketCap:       domain.NewTimeSeries(symbol, caps),
		CapApproximated: true,
	}, nil
}
