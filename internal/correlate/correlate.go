// Package correlate computes return series, Pearson correlation matrices and
// rolling correlations over aligned market frames.
package correlate

import "crypto-market-lab/internal/domain"

// Column names of the traditional-market series in an aligned frame.
const (
	EquityColumn     = "SP500"
	VolatilityColumn = "VIX"
	SentimentColumn  = "Fear_Greed"
)

func isTraditional(name string) bool {
	return name == EquityColumn || name == VolatilityColumn || name == SentimentColumn
}

// CryptoColumns returns the columns of an aligned frame that hold crypto
// assets: everything that is neither a traditional index nor a category
// aggregate, in frame order.
func CryptoColumns(f domain.Frame) []string {
	out := make([]string, 0, len(f.Columns))
	for _, name := range f.Columns {
		if isTraditional(name) || IsCategoryIndex(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// TraditionalColumns returns the traditional-market columns present in the
// frame, in frame order.
func TraditionalColumns(f domain.Frame) []string {
	out := make([]string, 0, 3)
	for _, name := range f.Columns {
		if isTraditional(name) {
			out = append(out, name)
		}
	}
	return out
}
