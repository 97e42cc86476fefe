// Package align normalizes heterogeneous market series onto one shared daily
// index so they can be correlated: daily resampling, forward-filling of
// traditional-market gaps, and business-day filtering.
package align

import (
	"math"
	"time"

	"crypto-market-lab/internal/domain"
)

// Daily resamples a series to one observation per calendar day, keeping the
// last observation of each day, stamped at midnight UTC.
func Daily(s domain.TimeSeries) domain.TimeSeries {
	points := make([]domain.Point, len(s.Points))
	for i, p := range s.Points {
		t := p.Time.UTC()
		points[i] = domain.Point{
			Time:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Value: p.Value,
		}
	}
	// NewTimeSeries keeps the last point per duplicate stamp, which is
	// exactly last-observation-per-day for an ordered input.
	return domain.NewTimeSeries(s.Name, points)
}

// BusinessDay reports whether t falls on a weekday. Crypto trades every day;
// the traditional markets it is compared against do not, so correlation rows
// are restricted to days both can genuinely observe.
func BusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Align joins crypto and traditional-market series onto one daily frame:
//
//  1. each series is resampled to daily observations,
//  2. the two groups are outer-joined on the union of their dates,
//  3. traditional columns are forward-filled across market closures,
//  4. rows still missing any column are dropped,
//  5. weekend rows are removed.
//
// Crypto columns are never forward-filled: a gap there is real missing data.
// The result is empty when either group has no overlapping observations.
func Align(crypto, traditional []domain.TimeSeries) domain.Frame {
	cryptoFrame := domain.FrameFromSeries(dailyAll(crypto)...)
	tradFrame := domain.FrameFromSeries(dailyAll(traditional)...)

	merged := domain.Merge(cryptoFrame, tradFrame)
	merged.ForwardFill(tradFrame.Columns...)

	// A fill must not outlive its source: rows after a traditional series'
	// last real observation stay missing and fall to the completeness filter.
	for _, name := range tradFrame.Columns {
		last, ok := lastObservation(tradFrame, name)
		if !ok {
			continue
		}
		col := merged.Values[name]
		for i, d := range merged.Dates {
			if d.After(last) {
				col[i] = math.NaN()
			}
		}
	}

	merged = merged.DropIncompleteRows()
	return merged.FilterRows(BusinessDay)
}

// lastObservation returns the date of the last non-missing value in the named
// column.
func lastObservation(f domain.Frame, name string) (time.Time, bool) {
	col := f.Values[name]
	for i := len(col) - 1; i >= 0; i-- {
		if !math.IsNaN(col[i]) {
			return f.Dates[i], true
		}
	}
	return time.Time{}, false
}

// Calendar joins series onto a full-calendar daily frame: daily resample,
// outer join, incomplete rows dropped, weekends kept. Used for crypto-only
// products where there is no traditional market to align against.
func Calendar(series []domain.TimeSeries) domain.Frame {
	return domain.FrameFromSeries(dailyAll(series)...).DropIncompleteRows()
}

func dailyAll(series []domain.TimeSeries) []domain.TimeSeries {
	out := make([]domain.TimeSeries, 0, len(series))
	for _, s := range series {
		if s.Empty() {
			continue
		}
		out = append(out, Daily(s))
	}
	return out
}
