package domain

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewTimeSeries_SortsByTimestamp(t *testing.T) {
	s := NewTimeSeries("BTC", []Point{
		{Time: date(2024, 1, 3), Value: 3},
		{Time: date(2024, 1, 1), Value: 1},
		{Time: date(2024, 1, 2), Value: 2},
	})

	if s.Len() != 3 {
		t.Fatalf("Expected 3 points, got %d", s.Len())
	}
	for i := 1; i < s.Len(); i++ {
		if !s.Points[i-1].Time.Before(s.Points[i].Time) {
			t.Errorf("Timestamps not strictly increasing at %d", i)
		}
	}
	if s.First().Value != 1 || s.Last().Value != 3 {
		t.Errorf("Expected values ordered 1..3, got first=%v last=%v", s.First().Value, s.Last().Value)
	}
}

func TestNewTimeSeries_DuplicateTimestampLastWins(t *testing.T) {
	s := NewTimeSeries("BTC", []Point{
		{Time: date(2024, 1, 1), Value: 1},
		{Time: date(2024, 1, 1), Value: 2},
	})

	if s.Len() != 1 {
		t.Fatalf("Expected 1 point after dedup, got %d", s.Len())
	}
	if s.First().Value != 2 {
		t.Errorf("Expected last duplicate to win, got %v", s.First().Value)
	}
}

func TestNewTimeSeries_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	s := NewTimeSeries("BTC", []Point{
		{Time: time.Date(2024, 1, 1, 8, 0, 0, 0, loc), Value: 1},
	})

	got := s.First().Time
	if got.Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", got.Location())
	}
	if !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected 2024-01-01T00:00:00Z, got %v", got)
	}
}

func TestCategoryMap_CategoryOf(t *testing.T) {
	m := CategoryMap{
		"Layer1": {"BTC", "ETH"},
		"Meme":   {"DOGE"},
	}

	if got := m.CategoryOf("ETH"); got != "Layer1" {
		t.Errorf("Expected Layer1, got %s", got)
	}
	if got := m.CategoryOf("XYZ"); got != OtherCategory {
		t.Errorf("Expected %s for unknown symbol, got %s", OtherCategory, got)
	}
}

func TestCategoryMap_MembersFiltersUniverse(t *testing.T) {
	m := CategoryMap{"Layer1": {"BTC", "ETH", "SOL"}}
	universe := map[string]bool{"BTC": true, "SOL": true}

	got := m.Members("Layer1", universe)
	if len(got) != 2 || got[0] != "BTC" || got[1] != "SOL" {
		t.Errorf("Expected [BTC SOL], got %v", got)
	}
	if got := m.Members("Meme", universe); got != nil {
		t.Errorf("Expected nil for unconfigured category, got %v", got)
	}
}
