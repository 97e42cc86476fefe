package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"crypto-market-lab/internal/domain"
	"crypto-market-lab/internal/ratelimit"
)

// SentimentSeriesName is the column name of the Fear & Greed series in
// downstream tables.
const SentimentSeriesName = "Fear_Greed"

// FearGreed fetches the Crypto Fear & Greed Index from alternative.me. The
// API takes no date range: one parameterless request returns the full
// available history, which is then filtered and cached as a whole.
type FearGreed struct {
	URL     string
	Client  *http.Client
	Limiter *ratelimit.Limiter
}

// NewFearGreed creates a Fear & Greed adapter. url is the full endpoint
// including the limit=0 query.
func NewFearGreed(url string, limiter *ratelimit.Limiter) *FearGreed {
	return &FearGreed{
		URL:     url,
		Client:  newHTTPClient(),
		Limiter: limiter,
	}
}

// The API encodes both the score and the unix timestamp as strings.
type fngResponse struct {
	Data []struct {
		Value     string `json:"value"`
		Timestamp string `json:"timestamp"`
	} `json:"data"`
}

// SentimentHistory returns the full Fear & Greed history as a daily series of
// scores in [0, 100].
func (f *FearGreed) SentimentHistory(ctx context.Context) (domain.TimeSeries, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return domain.TimeSeries{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}

	if err := f.Limiter.Acquire(ctx); err != nil {
		return domain.TimeSeries{}, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return domain.TimeSeries{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TimeSeries{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.TimeSeries{}, fmt.Errorf("%w: status %d", classifyStatus(resp.StatusCode), resp.StatusCode)
	}

	var decoded fngResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return domain.TimeSeries{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if len(decoded.Data) == 0 {
		return domain.TimeSeries{}, fmt.Errorf("%w: empty dataset", ErrUnavailable)
	}

	points := make([]domain.Point, 0, len(decoded.Data))
	for _, d := range decoded.Data {
		ts, err := strconv.ParseInt(d.Timestamp, 10, 64)
		if err != nil {
			return domain.TimeSeries{}, fmt.Errorf("%w: bad timestamp %q: %v", ErrUnavailable, d.Timestamp, err)
		}
		value, err := strconv.ParseFloat(d.Value, 64)
		if err != nil {
			return domain.TimeSeries{}, fmt.Errorf("%w: bad value %q: %v", ErrUnavailable, d.Value, err)
		}
		points = append(points, domain.Point{Time: time.Unix(ts, 0).UTC(), Value: value})
	}

	return domain.NewTimeSeries(SentimentSeriesName, points), nil
}
