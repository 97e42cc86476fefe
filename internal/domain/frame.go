package domain

import (
	"math"
	"sort"
	"time"
)

// Frame is a multi-series table: a set of named columns joined on a shared
// ascending date index. Missing cells hold NaN. It is the unit of exchange
// between the acquisition, alignment and correlation stages.
type Frame struct {
	Dates   []time.Time
	Columns []string             // column order
	Values  map[string][]float64 // column -> values, len == len(Dates)
}

// NewFrame returns an empty frame.
func NewFrame() Frame {
	return Frame{Values: make(map[string][]float64)}
}

// FrameFromSeries joins the given series on the union of their timestamps.
// Cells without an observation hold NaN.
func FrameFromSeries(series ...TimeSeries) Frame {
	stamps := make(map[int64]time.Time)
	for _, s := range series {
		for _, p := range s.Points {
			stamps[p.Time.Unix()] = p.Time
		}
	}

	dates := make([]time.Time, 0, len(stamps))
	for _, t := range stamps {
		dates = append(dates, t)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rowOf := make(map[int64]int, len(dates))
	for i, t := range dates {
		rowOf[t.Unix()] = i
	}

	f := Frame{Dates: dates, Values: make(map[string][]float64, len(series))}
	for _, s := range series {
		col := nanColumn(len(dates))
		for _, p := range s.Points {
			col[rowOf[p.Time.Unix()]] = p.Value
		}
		f.Columns = append(f.Columns, s.Name)
		f.Values[s.Name] = col
	}
	return f
}

// Empty reports whether the frame has no rows or no columns.
func (f Frame) Empty() bool { return len(f.Dates) == 0 || len(f.Columns) == 0 }

// NumRows returns the number of rows.
func (f Frame) NumRows() int { return len(f.Dates) }

// HasColumn reports whether the named column exists.
func (f Frame) HasColumn(name string) bool {
	_, ok := f.Values[name]
	return ok
}

// Column returns the values of the named column, or nil if absent.
func (f Frame) Column(name string) []float64 { return f.Values[name] }

// AddColumn appends a column. The slice length must equal NumRows.
// An existing column of the same name is replaced in place.
func (f *Frame) AddColumn(name string, values []float64) {
	if f.Values == nil {
		f.Values = make(map[string][]float64)
	}
	if _, exists := f.Values[name]; !exists {
		f.Columns = append(f.Columns, name)
	}
	f.Values[name] = values
}

// ForwardFill propagates the last seen value forward across NaN gaps in the
// named columns. Leading NaNs are left untouched.
func (f *Frame) ForwardFill(cols ...string) {
	for _, name := range cols {
		col, ok := f.Values[name]
		if !ok {
			continue
		}
		last := math.NaN()
		for i, v := range col {
			if math.IsNaN(v) {
				col[i] = last
				continue
			}
			last = v
		}
	}
}

// FilterRows returns a frame containing only the rows whose date satisfies
// keep, preserving column order.
func (f Frame) FilterRows(keep func(time.Time) bool) Frame {
	idx := make([]int, 0, len(f.Dates))
	for i, d := range f.Dates {
		if keep(d) {
			idx = append(idx, i)
		}
	}
	return f.takeRows(idx)
}

// DropIncompleteRows returns a frame with every row removed in which any
// column holds NaN (inner-join semantics).
func (f Frame) DropIncompleteRows() Frame {
	idx := make([]int, 0, len(f.Dates))
	for i := range f.Dates {
		complete := true
		for _, name := range f.Columns {
			if math.IsNaN(f.Values[name][i]) {
				complete = false
				break
			}
		}
		if complete {
			idx = append(idx, i)
		}
	}
	return f.takeRows(idx)
}

// Merge joins two frames on the union of their date indices. Columns keep
// their order, left frame first. Cells absent on either side hold NaN.
func Merge(a, b Frame) Frame {
	stamps := make(map[int64]time.Time, len(a.Dates)+len(b.Dates))
	for _, t := range a.Dates {
		stamps[t.Unix()] = t
	}
	for _, t := range b.Dates {
		stamps[t.Unix()] = t
	}

	dates := make([]time.Time, 0, len(stamps))
	for _, t := range stamps {
		dates = append(dates, t)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rowOf := make(map[int64]int, len(dates))
	for i, t := range dates {
		rowOf[t.Unix()] = i
	}

	out := Frame{Dates: dates, Values: make(map[string][]float64)}
	copyFrame := func(src Frame) {
		for _, name := range src.Columns {
			col := nanColumn(len(dates))
			for i, t := range src.Dates {
				col[rowOf[t.Unix()]] = src.Values[name][i]
			}
			out.Columns = append(out.Columns, name)
			out.Values[name] = col
		}
	}
	copyFrame(a)
	copyFrame(b)
	return out
}

func (f Frame) takeRows(idx []int) Frame {
	out := Frame{
		Dates:   make([]time.Time, len(idx)),
		Columns: append([]string(nil), f.Columns...),
		Values:  make(map[string][]float64, len(f.Columns)),
	}
	for i, j := range idx {
		out.Dates[i] = f.Dates[j]
	}
	for _, name := range f.Columns {
		col := make([]float64, len(idx))
		for i, j := range idx {
			col[i] = f.Values[name][j]
		}
		out.Values[name] = col
	}
	return out
}

func nanColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}
