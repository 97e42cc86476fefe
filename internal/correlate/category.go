package correlate

import (
	"strings"

	"crypto-market-lab/internal/domain"
)

// categoryIndexSuffix marks a column holding a category-aggregate return.
const categoryIndexSuffix = "_Index"

// IsCategoryIndex reports whether a column name denotes a category aggregate.
func IsCategoryIndex(name string) bool {
	return strings.HasSuffix(name, categoryIndexSuffix)
}

// AddCategoryIndexes appends one "<Category>_Index" column per configured
// category holding the equal-weight mean of the member return columns present
// in the frame. Categories with no member column are omitted. The input frame
// is not modified.
func AddCategoryIndexes(returns domain.Frame, categories domain.CategoryMap) domain.Frame {
	out := returns
	out.Columns = append([]string(nil), returns.Columns...)
	out.Values = make(map[string][]float64, len(returns.Columns))
	for name, col := range returns.Values {
		out.Values[name] = col
	}

	universe := make(map[string]bool, len(returns.Columns))
	for _, name := range CryptoColumns(returns) {
		universe[name] = true
	}

	for _, category := range categories.Categories() {
		members := categories.Members(category, universe)
		if len(members) == 0 {
			continue
		}
		index := make([]float64, returns.NumRows())
		for row := range index {
			var sum float64
			for _, symbol := range members {
				sum += returns.Values[symbol][row]
			}
			index[row] = sum / float64(len(members))
		}
		out.AddColumn(category+categoryIndexSuffix, index)
	}
	return out
}
