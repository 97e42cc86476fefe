// Package acquisition orchestrates market data collection: cache-first reads,
// provider fetches with retry and fallback, and per-cycle status aggregation.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"crypto-market-lab/internal/cache"
	"crypto-market-lab/internal/domain"
	"crypto-market-lab/internal/observability"
	"crypto-market-lab/internal/provider"
)

// Cache keys and their staleness bounds. The listings key holds current
// prices and turns over quickly; historical series are stable for an hour.
const (
	keyListings  = "crypto_prices"
	keyHistory   = "crypto_historical_" // + symbol
	keyEquity    = "sp500"
	keyVolatile  = "vix"
	keySentiment = "fear_greed"

	listingsMaxAge = 5 * time.Minute
	seriesMaxAge   = 60 * time.Minute

	// A cached index series this short is treated as a failed earlier fetch
	// and refetched rather than served.
	minIndexPoints = 3
)

const (
	equitySymbol     = "SP500"
	volatilitySymbol = "VIX"
)

// ErrUniverseUnavailable marks the one fatal acquisition failure: without the
// ranked listing there is no symbol universe to fetch, so the cycle halts.
var ErrUniverseUnavailable = errors.New("crypto universe unavailable")

// ListingSource supplies the ranked crypto universe.
type ListingSource interface {
	TopListings(ctx context.Context, n int) ([]domain.Listing, error)
}

// HistorySource supplies daily price and market-cap history for one asset.
type HistorySource interface {
	AssetHistory(ctx context.Context, symbol string, start, end time.Time) (domain.AssetHistory, error)
}

// IndexSource supplies daily close series for traditional market indices.
type IndexSource interface {
	IndexHistory(ctx context.Context, symbol string, start, end time.Time) (domain.TimeSeries, error)
}

// SentimentSource supplies the full sentiment index history.
type SentimentSource interface {
	SentimentHistory(ctx context.Context) (domain.TimeSeries, error)
}

// Options configures a Pipeline. Cache and Listings are required; a nil
// Fallback disables the secondary history provider.
type Options struct {
	Cache     cache.Store
	Listings  ListingSource
	Primary   HistorySource
	Fallback  HistorySource
	Index     IndexSource
	Sentiment SentimentSource

	TopN          int // number of universe symbols, default 50
	DaysOfHistory int // lookback window in days, default 365
	MaxAttempts   int // fetch attempts per provider, default 5
	Backoff       Backoff

	Logger  *log.Logger
	Metrics *observability.Metrics
}

// DashboardData is the result of one full acquisition cycle.
type DashboardData struct {
	Crypto    map[string]domain.AssetHistory
	SP500     domain.TimeSeries
	VIX       domain.TimeSeries
	FearGreed domain.TimeSeries

	Status      *domain.FetchStatus
	RefreshedAt time.Time
}

// Pipeline is the acquisition coordinator. Safe for sequential use; a single
// refresh cycle runs its fetches one at a time to respect provider limits.
type Pipeline struct {
	cache     cache.Store
	listings  ListingSource
	primary   HistorySource
	fallback  HistorySource
	index     IndexSource
	sentiment SentimentSource

	topN        int
	days        int
	maxAttempts int
	backoff     Backoff

	logger  *log.Logger
	metrics *observability.Metrics

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a Pipeline, applying defaults for unset options.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		cache:       opts.Cache,
		listings:    opts.Listings,
		primary:     opts.Primary,
		fallback:    opts.Fallback,
		index:       opts.Index,
		sentiment:   opts.Sentiment,
		topN:        opts.TopN,
		days:        opts.DaysOfHistory,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         time.Now,
		sleep:       sleepContext,
	}
	if p.topN <= 0 {
		p.topN = 50
	}
	if p.days <= 0 {
		p.days = 365
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = 5
	}
	if p.backoff.Base == 0 && p.backoff.Cap == 0 {
		p.backoff = DefaultBackoff()
	}
	if p.logger == nil {
		p.logger = log.Default()
	}
	return p
}

// WithClock replaces the wall clock and sleeper. Used by tests.
func (p *Pipeline) WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) *Pipeline {
	p.now = now
	p.sleep = sleep
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pipeline) window() (start, end time.Time) {
	end = p.now().UTC()
	return end.AddDate(0, 0, -p.days), end
}

func (p *Pipeline) cacheHit() {
	if p.metrics != nil {
		p.metrics.CacheHits.Inc()
	}
}

func (p *Pipeline) cacheMiss() {
	if p.metrics != nil {
		p.metrics.CacheMisses.Inc()
	}
}

// retry runs fn up to maxAttempts times with backoff between attempts.
// A provider.ErrNotFound aborts immediately: retrying cannot make a missing
// symbol appear, and the caller should move on to the fallback.
func (p *Pipeline) retry(ctx context.Context, name string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			if p.metrics != nil {
				p.metrics.FetchRetries.Inc()
			}
			delay := p.backoff.Delay(attempt - 1)
			p.logger.Printf("[acquisition] %s attempt %d/%d failed, retrying in %s: %v",
				name, attempt, p.maxAttempts, delay.Round(time.Millisecond), lastErr)
			if err := p.sleep(ctx, delay); err != nil {
				return err
			}
		}
		if p.metrics != nil {
			p.metrics.ProviderRequests.WithLabelValues(name).Inc()
		}
		err := fn()
		if err == nil {
			return nil
		}
		if p.metrics != nil {
			p.metrics.ProviderFailures.WithLabelValues(name, failureKind(err)).Inc()
		}
		if errors.Is(err, provider.ErrNotFound) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, provider.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, provider.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unavailable"
	}
}

// TopListings returns the ranked crypto universe, serving a cached listing
// when it is under five minutes old.
func (p *Pipeline) TopListings(ctx context.Context) ([]domain.Listing, error) {
	if raw, ok := p.cache.GetFresh(ctx, keyListings, listingsMaxAge); ok {
		if listings, ok := decodeListings(raw); ok {
			p.cacheHit()
			return listings, nil
		}
	}
	p.cacheMiss()

	var listings []domain.Listing
	err := p.retry(ctx, "coinmarketcap", func() error {
		var err error
		listings, err = p.listings.TopListings(ctx, p.topN)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUniverseUnavailable, err)
	}
	p.cache.Set(ctx, keyListings, encodeListings(listings))
	return listings, nil
}

// fetchHistory fetches one symbol's history from the primary provider and, if
// that fails for any reason, the fallback. The cache is not consulted.
func (p *Pipeline) fetchHistory(ctx context.Context, symbol string) (domain.AssetHistory, error) {
	start, end := p.window()

	var hist domain.AssetHistory
	var primaryErr error
	if p.primary != nil {
		primaryErr = p.retry(ctx, "coinmarketcap", func() error {
			var err error
			hist, err = p.primary.AssetHistory(ctx, symbol, start, end)
			return err
		})
		if primaryErr == nil && !hist.Empty() {
			return hist, nil
		}
	} else {
		primaryErr = errors.New("no primary provider")
	}

	if p.fallback == nil {
		return domain.AssetHistory{}, fmt.Errorf("%s: primary: %w", symbol, primaryErr)
	}

	fallbackErr := p.retry(ctx, "yahoo", func() error {
		var err error
		hist, err = p.fallback.AssetHistory(ctx, symbol, start, end)
		return err
	})
	if fallbackErr != nil {
		return domain.AssetHistory{}, fmt.Errorf("%s: primary: %v, fallback: %w", symbol, primaryErr, fallbackErr)
	}
	return hist, nil
}

// AssetHistory returns one symbol's daily history, cache-first with the
// hourly staleness bound.
func (p *Pipeline) AssetHistory(ctx context.Context, symbol string) (domain.AssetHistory, error) {
	key := keyHistory + symbol
	if raw, ok := p.cache.GetFresh(ctx, key, seriesMaxAge); ok {
		if hist, ok := decodeHistory(raw, symbol); ok {
			p.cacheHit()
			return hist, nil
		}
	}
	p.cacheMiss()

	hist, err := p.fetchHistory(ctx, symbol)
	if err != nil {
		return domain.AssetHistory{}, err
	}
	p.cache.Set(ctx, key, encodeHistory(hist))
	return hist, nil
}

// Universe fetches histories for the full ranked universe. Per-symbol
// failures are isolated: they are counted and messaged on the returned status
// but never abort the remaining symbols. Only a missing universe listing is
// fatal.
func (p *Pipeline) Universe(ctx context.Context) (map[string]domain.AssetHistory, *domain.FetchStatus, error) {
	status := domain.NewFetchStatus()

	listings, err := p.TopListings(ctx)
	if err != nil {
		status.Fail(fmt.Sprintf("Failed to fetch top cryptocurrencies: %v", err))
		return nil, status, err
	}

	histories := make(map[string]domain.AssetHistory, len(listings))
	var missing []string
	for _, l := range listings {
		key := keyHistory + l.Symbol
		if raw, ok := p.cache.GetFresh(ctx, key, seriesMaxAge); ok {
			if hist, ok := decodeHistory(raw, l.Symbol); ok {
				p.cacheHit()
				histories[l.Symbol] = hist
				status.Cached++
				continue
			}
		}
		p.cacheMiss()
		missing = append(missing, l.Symbol)
	}

	for _, symbol := range missing {
		if ctx.Err() != nil {
			status.Fail(fmt.Sprintf("Aborted before %s: %v", symbol, ctx.Err()))
			status.Failed++
			continue
		}
		hist, err := p.fetchHistory(ctx, symbol)
		if err != nil {
			p.logger.Printf("[acquisition] %v", err)
			status.Fail(fmt.Sprintf("Failed to fetch historical data for %s", symbol))
			status.Failed++
			continue
		}
		p.cache.Set(ctx, keyHistory+symbol, encodeHistory(hist))
		histories[symbol] = hist
		status.Fetched++
	}

	p.logger.Printf("[acquisition] universe: %d cached, %d fetched, %d failed",
		status.Cached, status.Fetched, status.Failed)
	return histories, status, nil
}

// indexSeries returns one traditional index series, cache-first. A cached
// series with fewer than minIndexPoints observations is discarded and
// refetched.
func (p *Pipeline) indexSeries(ctx context.Context, key, symbol string) (domain.TimeSeries, error) {
	if raw, ok := p.cache.GetFresh(ctx, key, seriesMaxAge); ok {
		if series, ok := decodeSeries(raw, symbol); ok && series.Len() >= minIndexPoints {
			p.cacheHit()
			return series, nil
		}
	}
	p.cacheMiss()

	start, end := p.window()
	var series domain.TimeSeries
	err := p.retry(ctx, "yahoo", func() error {
		var err error
		series, err = p.index.IndexHistory(ctx, symbol, start, end)
		return err
	})
	if err != nil {
		return domain.TimeSeries{}, err
	}
	if series.Len() < minIndexPoints {
		return domain.TimeSeries{}, fmt.Errorf("%w: %s returned only %d points",
			provider.ErrUnavailable, symbol, series.Len())
	}
	p.cache.Set(ctx, key, encodeSeries(series))
	return series, nil
}

// EquityIndex returns the S&P 500 daily close series.
func (p *Pipeline) EquityIndex(ctx context.Context) (domain.TimeSeries, error) {
	return p.indexSeries(ctx, keyEquity, equitySymbol)
}

// VolatilityIndex returns the VIX daily close series.
func (p *Pipeline) VolatilityIndex(ctx context.Context) (domain.TimeSeries, error) {
	return p.indexSeries(ctx, keyVolatile, volatilitySymbol)
}

// SentimentIndex returns the Fear & Greed series, cache-first.
func (p *Pipeline) SentimentIndex(ctx context.Context) (domain.TimeSeries, error) {
	if raw, ok := p.cache.GetFresh(ctx, keySentiment, seriesMaxAge); ok {
		if series, ok := decodeSeries(raw, provider.SentimentSeriesName); ok {
			p.cacheHit()
			return series, nil
		}
	}
	p.cacheMiss()

	var series domain.TimeSeries
	err := p.retry(ctx, "feargreed", func() error {
		var err error
		series, err = p.sentiment.SentimentHistory(ctx)
		return err
	})
	if err != nil {
		return domain.TimeSeries{}, err
	}
	p.cache.Set(ctx, keySentiment, encodeSeries(series))
	return series, nil
}

// Refresh runs one full acquisition cycle. Traditional-market and sentiment
// failures are non-fatal and leave their series empty; only a missing crypto
// universe returns an error. The returned DashboardData always carries a
// status, even on the fatal path.
func (p *Pipeline) Refresh(ctx context.Context) (*DashboardData, error) {
	began := p.now()
	data := &DashboardData{RefreshedAt: began.UTC()}

	var err error
	status := domain.NewFetchStatus()

	if data.SP500, err = p.EquityIndex(ctx); err != nil {
		p.logger.Printf("[acquisition] sp500: %v", err)
		status.Fail(fmt.Sprintf("Failed to fetch S&P 500 data: %v", err))
	}
	if data.VIX, err = p.VolatilityIndex(ctx); err != nil {
		p.logger.Printf("[acquisition] vix: %v", err)
		status.Fail(fmt.Sprintf("Failed to fetch VIX data: %v", err))
	}
	if data.FearGreed, err = p.SentimentIndex(ctx); err != nil {
		p.logger.Printf("[acquisition] fear & greed: %v", err)
		status.Fail(fmt.Sprintf("Failed to fetch Fear & Greed data: %v", err))
	}

	crypto, universeStatus, err := p.Universe(ctx)
	status.Cached = universeStatus.Cached
	status.Fetched = universeStatus.Fetched
	status.Failed = universeStatus.Failed
	if !universeStatus.Success {
		status.Success = false
		status.Messages = append(status.Messages, universeStatus.Messages...)
	}
	data.Crypto = crypto
	data.Status = status

	if p.metrics != nil {
		p.metrics.RefreshDuration.Observe(p.now().Sub(began).Seconds())
		p.metrics.SymbolsCached.Set(float64(status.Cached))
		p.metrics.SymbolsFetched.Set(float64(status.Fetched))
		p.metrics.SymbolsFailed.Set(float64(status.Failed))
		if status.Success {
			p.metrics.LastSuccessfulRefresh.Set(float64(p.now().Unix()))
		}
	}

	if err != nil {
		return data, err
	}
	return data, nil
}
