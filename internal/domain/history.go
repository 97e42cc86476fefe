package domain

// Listing is one entry of the ranked-listing provider: a symbol, its current
// price, and the provider-internal numeric id.
type Listing struct {
	Symbol string
	Price  float64
	ID     int64
}

// AssetHistory is the daily price and market-capitalization history for one
// asset. Price and MarketCap share the same date index.
type AssetHistory struct {
	Symbol    string
	Price     TimeSeries
	MarketCap TimeSeries

	// CapApproximated marks market caps derived as close*volume from the
	// fallback provider. Not comparable to a real market cap.
	CapApproximated bool
}

// Empty reports whether the history carries no price observations.
func (h AssetHistory) Empty() bool { return h.Price.Empty() }
