package acquisition

import (
	"encoding/json"
	"time"

	"crypto-market-lab/internal/domain"
)

// indexTimeLayout is the date-stamp format used inside cached payloads.
const indexTimeLayout = "2006-01-02 15:04:05"

// listingPayload is the cached form of one ranked listing.
type listingPayload struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	ID     int64   `json:"id"`
}

func encodeListings(listings []domain.Listing) []listingPayload {
	out := make([]listingPayload, len(listings))
	for i, l := range listings {
		out[i] = listingPayload{Symbol: l.Symbol, Price: l.Price, ID: l.ID}
	}
	return out
}

func decodeListings(raw json.RawMessage) ([]domain.Listing, bool) {
	var payload []listingPayload
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload) == 0 {
		return nil, false
	}
	listings := make([]domain.Listing, len(payload))
	for i, p := range payload {
		listings[i] = domain.Listing{Symbol: p.Symbol, Price: p.Price, ID: p.ID}
	}
	return listings, true
}

// seriesPayload is the cached form of a single time series: a date-stamp
// index and a parallel value column.
type seriesPayload struct {
	Index  []string  `json:"index"`
	Values []float64 `json:"values"`
}

func encodeSeries(s domain.TimeSeries) seriesPayload {
	payload := seriesPayload{
		Index:  make([]string, 0, s.Len()),
		Values: make([]float64, 0, s.Len()),
	}
	for _, p := range s.Points {
		payload.Index = append(payload.Index, p.Time.UTC().Format(indexTimeLayout))
		payload.Values = append(payload.Values, p.Value)
	}
	return payload
}

func decodeSeries(raw json.RawMessage, name string) (domain.TimeSeries, bool) {
	var payload seriesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.TimeSeries{}, false
	}
	if len(payload.Index) == 0 || len(payload.Index) != len(payload.Values) {
		return domain.TimeSeries{}, false
	}
	points := make([]domain.Point, len(payload.Index))
	for i, stamp := range payload.Index {
		t, err := time.Parse(indexTimeLayout, stamp)
		if err != nil {
			return domain.TimeSeries{}, false
		}
		points[i] = domain.Point{Time: t.UTC(), Value: payload.Values[i]}
	}
	return domain.NewTimeSeries(name, points), true
}

// historyPayload is the cached form of one asset's price and market-cap
// history sharing a single date index.
type historyPayload struct {
	Index []string `json:"index"`
	Data  struct {
		Price     []float64 `json:"price"`
		MarketCap []float64 `json:"market_cap"`
	} `json:"data"`
	CapApproximated bool `json:"cap_approximated,omitempty"`
}

func encodeHistory(h domain.AssetHistory) historyPayload {
	var payload historyPayload
	payload.CapApproximated = h.CapApproximated
	caps := make(map[int64]float64, h.MarketCap.Len())
	for _, p := range h.MarketCap.Points {
		caps[p.Time.Unix()] = p.Value
	}
	for _, p := range h.Price.Points {
		payload.Index = append(payload.Index, p.Time.UTC().Format(indexTimeLayout))
		payload.Data.Price = append(payload.Data.Price, p.Value)
		payload.Data.MarketCap = append(payload.Data.MarketCap, caps[p.Time.Unix()])
	}
	return payload
}

func decodeHistory(raw json.RawMessage, symbol string) (domain.AssetHistory, bool) {
	var payload historyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.AssetHistory{}, false
	}
	n := len(payload.Index)
	if n == 0 || len(payload.Data.Price) != n || len(payload.Data.MarketCap) != n {
		return domain.AssetHistory{}, false
	}
	prices := make([]domain.Point, n)
	caps := make([]domain.Point, n)
	for i, stamp := range payload.Index {
		t, err := time.Parse(indexTimeLayout, stamp)
		if err != nil {
			return domain.AssetHistory{}, false
		}
		prices[i] = domain.Point{Time: t.UTC(), Value: payload.Data.Price[i]}
		caps[i] = domain.Point{Time: t.UTC(), Value: payload.Data.MarketCap[i]}
	}
	return domain.AssetHistory{
		Symbol:          symbol,
		Price:           domain.NewTimeSeries(symbol, prices),
		MarketCap:       domain.NewTimeSeries(symbol, caps),
		CapApproximated: payload.CapApproximated,
	}, true
}
