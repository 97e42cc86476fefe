package correlate

import (
	"math"
	"time"

	"crypto-market-lab/internal/domain"
)

// Bounds on the rolling correlation window, in observations.
const (
	MinWindow = 7
	MaxWindow = 90

	minPeriodsFloor = 5
)

// ClampWindow constrains a requested window to [MinWindow, MaxWindow].
func ClampWindow(window int) int {
	if window < MinWindow {
		return MinWindow
	}
	if window > MaxWindow {
		return MaxWindow
	}
	return window
}

// MinPeriods returns the minimum number of observations a window must hold
// before a correlation is emitted: a quarter of the window, at least
// minPeriodsFloor.
func MinPeriods(window int) int {
	mp := window / 4
	if mp < minPeriodsFloor {
		mp = minPeriodsFloor
	}
	return mp
}

// Rolling computes the rolling Pearson correlation of each named column
// against the reference column, over trailing windows of the given size. The
// window is clamped to its bounds. Rows whose window holds fewer than
// MinPeriods observations yield NaN; leading rows in which every output
// column is NaN are trimmed.
func Rolling(returns domain.Frame, reference string, window int, cols ...string) domain.Frame {
	window = ClampWindow(window)
	minPeriods := MinPeriods(window)

	ref := returns.Column(reference)
	if ref == nil {
		return domain.NewFrame()
	}
	if len(cols) == 0 {
		for _, name := range returns.Columns {
			if name != reference {
				cols = append(cols, name)
			}
		}
	}

	out := domain.Frame{
		Dates:  append([]time.Time(nil), returns.Dates...),
		Values: make(map[string][]float64, len(cols)),
	}
	for _, name := range cols {
		col := returns.Column(name)
		if col == nil {
			continue
		}
		rolled := make([]float64, len(ref))
		for i := range rolled {
			lo := i - window + 1
			if lo < 0 {
				lo = 0
			}
			if i+1-lo < minPeriods {
				rolled[i] = math.NaN()
				continue
			}
			rolled[i] = pearson(col[lo:i+1], ref[lo:i+1])
		}
		out.Columns = append(out.Columns, name)
		out.Values[name] = rolled
	}

	return trimLeadingNaN(out)
}

// trimLeadingNaN drops the leading rows in which every column is NaN.
func trimLeadingNaN(f domain.Frame) domain.Frame {
	first := 0
scan:
	for ; first < f.NumRows(); first++ {
		for _, name := range f.Columns {
			if !math.IsNaN(f.Values[name][first]) {
				break scan
			}
		}
	}
	if first == 0 {
		return f
	}
	out := domain.Frame{
		Dates:   f.Dates[first:],
		Columns: f.Columns,
		Values:  make(map[string][]float64, len(f.Columns)),
	}
	for _, name := range f.Columns {
		out.Values[name] = f.Values[name][first:]
	}
	return out
}

// RollingCorrelations computes the rolling correlation of every crypto column
// and category aggregate of an aligned frame against the equity index. The
// other traditional indices are left out of the output.
func RollingCorrelations(aligned domain.Frame, categories domain.CategoryMap, window int) domain.Frame {
	returns := AddCategoryIndexes(Returns(aligned), categories)

	cols := make([]string, 0, len(returns.Columns))
	for _, name := range returns.Columns {
		if !isTraditional(name) {
			cols = append(cols, name)
		}
	}
	return Rolling(returns, EquityColumn, window, cols...)
}
