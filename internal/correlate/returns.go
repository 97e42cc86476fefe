package correlate

import (
	"math"
	"time"

	"crypto-market-lab/internal/domain"
)

// Returns converts every column of a frame from levels to simple one-period
// returns: r[i] = v[i]/v[i-1] - 1. The first row and any non-finite result
// (a zero or missing previous level) become 0 so that downstream windows keep
// their full length. The sentiment column stays at raw level: it is already a
// bounded score, not a price.
func Returns(f domain.Frame) domain.Frame {
	out := domain.Frame{
		Dates:   append([]time.Time(nil), f.Dates...),
		Columns: append([]string(nil), f.Columns...),
		Values:  make(map[string][]float64, len(f.Columns)),
	}
	for _, name := range f.Columns {
		levels := f.Values[name]
		if name == SentimentColumn {
			out.Values[name] = append([]float64(nil), levels...)
			continue
		}
		returns := make([]float64, len(levels))
		for i := 1; i < len(levels); i++ {
			r := levels[i]/levels[i-1] - 1
			if !math.IsInf(r, 0) && !math.IsNaN(r) {
				returns[i] = r
			}
		}
		out.Values[name] = returns
	}
	return out
}
