package domain

import (
	"sort"
	"time"
)

// Point is one observation in a time series.
type Point struct {
	Time  time.Time // UTC, no embedded offset
	Value float64
}

// TimeSeries is a named, time-ordered sequence of scalar observations.
// Timestamps are strictly increasing and normalized to UTC. A series is
// immutable once produced by a fetch; a new fetch produces a new instance.
type TimeSeries struct {
	Name   string
	Points []Point
}

// NewTimeSeries builds a series from unordered points. Points are sorted by
// timestamp; on duplicate timestamps the last point wins. Timestamps are
// normalized to UTC.
func NewTimeSeries(name string, points []Point) TimeSeries {
	normalized := make([]Point, len(points))
	for i, p := range points {
		normalized[i] = Point{Time: p.Time.UTC(), Value: p.Value}
	}
	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Time.Before(normalized[j].Time)
	})

	deduped := normalized[:0]
	for _, p := range normalized {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(p.Time) {
			deduped[n-1] = p
			continue
		}
		deduped = append(deduped, p)
	}

	return TimeSeries{Name: name, Points: deduped}
}

// Empty reports whether the series has no observations.
func (s TimeSeries) Empty() bool { return len(s.Points) == 0 }

// Len returns the number of observations.
func (s TimeSeries) Len() int { return len(s.Points) }

// First returns the earliest observation. Valid only for non-empty series.
func (s TimeSeries) First() Point { return s.Points[0] }

// Last returns the latest observation. Valid only for non-empty series.
func (s TimeSeries) Last() Point { return s.Points[len(s.Points)-1] }

// Times returns the ordered timestamps of the series.
func (s TimeSeries) Times() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Time
	}
	return out
}

// Values returns the ordered values of the series.
func (s TimeSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Rename returns the same series under a different name.
func (s TimeSeries) Rename(name string) TimeSeries {
	return TimeSeries{Name: name, Points: s.Points}
}
