package reporting

import (
	"time"

	"crypto-market-lab/internal/correlate"
	"crypto-market-lab/internal/domain"
)

// Report is one rendered snapshot of the correlation dashboard.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	RollingWindow int
	SymbolCount   int

	// Outcome of the acquisition cycle that produced the data.
	Status *domain.FetchStatus

	// Aligned daily price levels (crypto + traditional columns).
	Aligned domain.Frame

	// Correlation products
	Market   correlate.Matrix // full matrix, crypto labels annotated by category
	Crypto   correlate.Matrix // crypto columns only
	Category correlate.Matrix // category aggregates vs traditional indices
	Rolling  domain.Frame     // rolling correlation vs the equity index
}
