package acquisition

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"crypto-market-lab/internal/cache/memory"
	"crypto-market-lab/internal/domain"
	"crypto-market-lab/internal/provider"
)

type stubListings struct {
	listings []domain.Listing
	err      error
	calls    int
}

func (s *stubListings) TopListings(_ context.Context, n int) ([]domain.Listing, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if n < len(s.listings) {
		return s.listings[:n], nil
	}
	return s.listings, nil
}

type stubHistory struct {
	hist  map[string]domain.AssetHistory
	errs  map[string]error
	err   error
	calls int
}

func (s *stubHistory) AssetHistory(_ context.Context, symbol string, _, _ time.Time) (domain.AssetHistory, error) {
	s.calls++
	if s.err != nil {
		return domain.AssetHistory{}, s.err
	}
	if err, ok := s.errs[symbol]; ok {
		return domain.AssetHistory{}, err
	}
	h, ok := s.hist[symbol]
	if !ok {
		return domain.AssetHistory{}, provider.ErrNotFound
	}
	return h, nil
}

type stubIndex struct {
	series map[string]domain.TimeSeries
	err    error
	calls  int
}

func (s *stubIndex) IndexHistory(_ context.Context, symbol string, _, _ time.Time) (domain.TimeSeries, error) {
	s.calls++
	if s.err != nil {
		return domain.TimeSeries{}, s.err
	}
	return s.series[symbol], nil
}

type stubSentiment struct {
	series domain.TimeSeries
	err    error
	calls  int
}

func (s *stubSentiment) SentimentHistory(_ context.Context) (domain.TimeSeries, error) {
	s.calls++
	if s.err != nil {
		return domain.TimeSeries{}, s.err
	}
	return s.series, nil
}

func seriesOf(name string, days int) domain.TimeSeries {
	points := make([]domain.Point, days)
	for i := range points {
		points[i] = domain.Point{
			Time:  time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Value: 100 + float64(i),
		}
	}
	return domain.NewTimeSeries(name, points)
}

func histOf(symbol string, days int) domain.AssetHistory {
	return domain.AssetHistory{
		Symbol:    symbol,
		Price:     seriesOf(symbol, days),
		MarketCap: seriesOf(symbol, days),
	}
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func noSleep(context.Context, time.Duration) error { return nil }

func newTestPipeline(t *testing.T, opts Options) (*Pipeline, *memory.Store) {
	t.Helper()
	store := memory.New()
	opts.Cache = store
	opts.Logger = quietLogger()
	p := New(opts).WithClock(time.Now, noSleep)
	return p, store
}

func TestAssetHistory_CacheHitSkipsProviders(t *testing.T) {
	primary := &stubHistory{err: errors.New("must not be called")}
	p, store := newTestPipeline(t, Options{Primary: primary})

	ctx := context.Background()
	store.Set(ctx, keyHistory+"BTC", encodeHistory(histOf("BTC", 10)))

	hist, err := p.AssetHistory(ctx, "BTC")
	if err != nil {
		t.Fatalf("AssetHistory failed: %v", err)
	}
	if hist.Price.Len() != 10 {
		t.Errorf("Expected 10 cached points, got %d", hist.Price.Len())
	}
	if primary.calls != 0 {
		t.Errorf("Cache hit must not reach the provider, got %d calls", primary.calls)
	}
}

func TestAssetHistory_FallsBackAfterExhaustedRetries(t *testing.T) {
	primary := &stubHistory{err: provider.ErrRateLimited}
	fallback := &stubHistory{hist: map[string]domain.AssetHistory{"BTC": histOf("BTC", 30)}}
	p, store := newTestPipeline(t, Options{Primary: primary, Fallback: fallback, MaxAttempts: 5})

	ctx := context.Background()
	hist, err := p.AssetHistory(ctx, "BTC")
	if err != nil {
		t.Fatalf("AssetHistory failed: %v", err)
	}
	if primary.calls != 5 {
		t.Errorf("Expected 5 primary attempts before fallback, got %d", primary.calls)
	}
	if fallback.calls != 1 {
		t.Errorf("Expected 1 fallback call, got %d", fallback.calls)
	}
	if hist.Price.Len() != 30 {
		t.Errorf("Expected fallback history, got %d points", hist.Price.Len())
	}
	if _, ok := store.Get(ctx, keyHistory+"BTC"); !ok {
		t.Error("Fetched history must be written back to the cache")
	}
}

func TestAssetHistory_NotFoundSkipsRemainingRetries(t *testing.T) {
	primary := &stubHistory{errs: map[string]error{"NOPE": provider.ErrNotFound}}
	fallback := &stubHistory{hist: map[string]domain.AssetHistory{"NOPE": histOf("NOPE", 10)}}
	p, _ := newTestPipeline(t, Options{Primary: primary, Fallback: fallback, MaxAttempts: 5})

	if _, err := p.AssetHistory(context.Background(), "NOPE"); err != nil {
		t.Fatalf("AssetHistory failed: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("Not-found must move to fallback immediately, got %d primary calls", primary.calls)
	}
	if fallback.calls != 1 {
		t.Errorf("Expected 1 fallback call, got %d", fallback.calls)
	}
}

func TestUniverse_IsolatesSymbolFailures(t *testing.T) {
	listings := &stubListings{listings: []domain.Listing{
		{Symbol: "BTC", Price: 65000, ID: 1},
		{Symbol: "BAD", Price: 1, ID: 2},
		{Symbol: "ETH", Price: 3500, ID: 1027},
	}}
	primary := &stubHistory{
		hist: map[string]domain.AssetHistory{
			"BTC": histOf("BTC", 20),
			"ETH": histOf("ETH", 20),
		},
		errs: map[string]error{"BAD": provider.ErrUnavailable},
	}
	fallback := &stubHistory{errs: map[string]error{"BAD": provider.ErrUnavailable}}
	p, _ := newTestPipeline(t, Options{
		Listings: listings, Primary: primary, Fallback: fallback, MaxAttempts: 2,
	})

	histories, status, err := p.Universe(context.Background())
	if err != nil {
		t.Fatalf("Universe failed: %v", err)
	}
	if len(histories) != 2 {
		t.Errorf("Expected 2 surviving symbols, got %d", len(histories))
	}
	if status.Fetched != 2 || status.Failed != 1 {
		t.Errorf("Expected 2 fetched / 1 failed, got %d / %d", status.Fetched, status.Failed)
	}
	if status.Success {
		t.Error("A failed symbol must mark the status unsuccessful")
	}
	found := false
	for _, msg := range status.Messages {
		if strings.Contains(msg, "BAD") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a failure message naming the symbol, got %v", status.Messages)
	}
}

func TestUniverse_CachedSymbolsNotRefetched(t *testing.T) {
	listings := &stubListings{listings: []domain.Listing{
		{Symbol: "BTC", Price: 65000, ID: 1},
		{Symbol: "ETH", Price: 3500, ID: 1027},
	}}
	primary := &stubHistory{hist: map[string]domain.AssetHistory{"ETH": histOf("ETH", 20)}}
	p, store := newTestPipeline(t, Options{Listings: listings, Primary: primary})

	ctx := context.Background()
	store.Set(ctx, keyHistory+"BTC", encodeHistory(histOf("BTC", 20)))

	_, status, err := p.Universe(ctx)
	if err != nil {
		t.Fatalf("Universe failed: %v", err)
	}
	if status.Cached != 1 || status.Fetched != 1 {
		t.Errorf("Expected 1 cached / 1 fetched, got %d / %d", status.Cached, status.Fetched)
	}
	if primary.calls != 1 {
		t.Errorf("Only the uncached symbol may hit the provider, got %d calls", primary.calls)
	}
}

func TestUniverse_FatalWhenListingsUnavailable(t *testing.T) {
	listings := &stubListings{err: provider.ErrUnavailable}
	p, _ := newTestPipeline(t, Options{Listings: listings, MaxAttempts: 2})

	_, status, err := p.Universe(context.Background())
	if !errors.Is(err, ErrUniverseUnavailable) {
		t.Fatalf("Expected ErrUniverseUnavailable, got %v", err)
	}
	if status.Success {
		t.Error("Fatal universe failure must mark the status unsuccessful")
	}
}

func TestIndexSeries_SparseCacheIsRefetched(t *testing.T) {
	index := &stubIndex{series: map[string]domain.TimeSeries{
		equitySymbol: seriesOf(equitySymbol, 40),
	}}
	p, store := newTestPipeline(t, Options{Index: index})

	ctx := context.Background()
	store.Set(ctx, keyEquity, encodeSeries(seriesOf(equitySymbol, 2)))

	series, err := p.EquityIndex(ctx)
	if err != nil {
		t.Fatalf("EquityIndex failed: %v", err)
	}
	if index.calls != 1 {
		t.Errorf("A sparse cached series must be refetched, got %d provider calls", index.calls)
	}
	if series.Len() != 40 {
		t.Errorf("Expected the refetched series, got %d points", series.Len())
	}
}

func TestSentiment_CacheRoundTrip(t *testing.T) {
	sentiment := &stubSentiment{series: seriesOf(provider.SentimentSeriesName, 50)}
	p, _ := newTestPipeline(t, Options{Sentiment: sentiment})

	ctx := context.Background()
	first, err := p.SentimentIndex(ctx)
	if err != nil {
		t.Fatalf("SentimentIndex failed: %v", err)
	}
	second, err := p.SentimentIndex(ctx)
	if err != nil {
		t.Fatalf("Second SentimentIndex failed: %v", err)
	}
	if sentiment.calls != 1 {
		t.Errorf("Second read must be served from cache, got %d provider calls", sentiment.calls)
	}
	if first.Len() != second.Len() {
		t.Errorf("Cache round trip changed length: %d vs %d", first.Len(), second.Len())
	}
}

func TestRefresh_PartialFailuresAreNonFatal(t *testing.T) {
	listings := &stubListings{listings: []domain.Listing{{Symbol: "BTC", Price: 65000, ID: 1}}}
	primary := &stubHistory{hist: map[string]domain.AssetHistory{"BTC": histOf("BTC", 20)}}
	index := &stubIndex{err: provider.ErrUnavailable}
	sentiment := &stubSentiment{series: seriesOf(provider.SentimentSeriesName, 50)}
	p, _ := newTestPipeline(t, Options{
		Listings: listings, Primary: primary, Index: index, Sentiment: sentiment,
		MaxAttempts: 2,
	})

	data, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh must not fail on index errors: %v", err)
	}
	if data.Status.Success {
		t.Error("Failed index fetches must mark the status unsuccessful")
	}
	if len(data.Crypto) != 1 {
		t.Errorf("Crypto universe must survive index failures, got %d symbols", len(data.Crypto))
	}
	if !data.SP500.Empty() || !data.VIX.Empty() {
		t.Error("Failed index series must stay empty")
	}
	if data.FearGreed.Len() != 50 {
		t.Errorf("Sentiment series must survive, got %d points", data.FearGreed.Len())
	}
	if len(data.Status.Messages) < 2 {
		t.Errorf("Expected failure messages for both indices, got %v", data.Status.Messages)
	}
}

func TestRefresh_AllSourcesHealthy(t *testing.T) {
	listings := &stubListings{listings: []domain.Listing{
		{Symbol: "BTC", Price: 65000, ID: 1},
		{Symbol: "ETH", Price: 3500, ID: 1027},
	}}
	primary := &stubHistory{hist: map[string]domain.AssetHistory{
		"BTC": histOf("BTC", 20),
		"ETH": histOf("ETH", 20),
	}}
	index := &stubIndex{series: map[string]domain.TimeSeries{
		equitySymbol:     seriesOf(equitySymbol, 40),
		volatilitySymbol: seriesOf(volatilitySymbol, 40),
	}}
	sentiment := &stubSentiment{series: seriesOf(provider.SentimentSeriesName, 50)}
	p, _ := newTestPipeline(t, Options{
		Listings: listings, Primary: primary, Index: index, Sentiment: sentiment,
	})

	data, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !data.Status.Success {
		t.Errorf("Expected a successful cycle, messages: %v", data.Status.Messages)
	}
	if data.Status.Fetched != 2 {
		t.Errorf("Expected 2 fetched symbols, got %d", data.Status.Fetched)
	}
	if data.RefreshedAt.IsZero() {
		t.Error("RefreshedAt must be set")
	}
}

func TestDecodeHistory_RejectsMismatchedColumns(t *testing.T) {
	raw := []byte(`{"index":["2024-01-01 00:00:00","2024-01-02 00:00:00"],` +
		`"data":{"price":[1.0],"market_cap":[2.0,3.0]}}`)
	if _, ok := decodeHistory(raw, "BTC"); ok {
		t.Error("Mismatched column lengths must be treated as a cache miss")
	}
}

func TestHistoryPayload_RoundTripKeepsApproximationFlag(t *testing.T) {
	hist := histOf("SOL", 5)
	hist.CapApproximated = true

	payload := encodeHistory(hist)
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, ok := decodeHistory(raw, "SOL")
	if !ok {
		t.Fatal("Expected round trip to decode")
	}
	if !decoded.CapApproximated {
		t.Error("Approximation flag must survive the cache")
	}
	if decoded.Price.Len() != 5 || decoded.MarketCap.Len() != 5 {
		t.Errorf("Round trip changed lengths: %d / %d", decoded.Price.Len(), decoded.MarketCap.Len())
	}
}
