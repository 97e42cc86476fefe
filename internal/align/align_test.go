package align

import (
	"math"
	"testing"
	"time"

	"crypto-market-lab/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaily_LastObservationPerDayWins(t *testing.T) {
	s := domain.NewTimeSeries("BTC", []domain.Point{
		{Time: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Value: 100},
		{Time: time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC), Value: 110},
		{Time: time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC), Value: 120},
	})

	daily := Daily(s)
	if daily.Len() != 2 {
		t.Fatalf("Expected 2 daily points, got %d", daily.Len())
	}
	if got := daily.First(); !got.Time.Equal(date(2024, 1, 1)) || got.Value != 110 {
		t.Errorf("Expected last intraday value at midnight stamp, got %+v", got)
	}
}

func TestAlign_WeekendRowsRemoved(t *testing.T) {
	// 2024-01-05 is a Friday, 06/07 a weekend, 08 a Monday.
	crypto := []domain.TimeSeries{domain.NewTimeSeries("BTC", []domain.Point{
		{Time: date(2024, 1, 5), Value: 100},
		{Time: date(2024, 1, 6), Value: 101},
		{Time: date(2024, 1, 7), Value: 102},
		{Time: date(2024, 1, 8), Value: 103},
	})}
	trad := []domain.TimeSeries{domain.NewTimeSeries("SP500", []domain.Point{
		{Time: date(2024, 1, 5), Value: 4700},
		{Time: date(2024, 1, 8), Value: 4710},
	})}

	frame := Align(crypto, trad)
	if frame.NumRows() != 2 {
		t.Fatalf("Expected 2 business-day rows, got %d", frame.NumRows())
	}
	for _, d := range frame.Dates {
		if !BusinessDay(d) {
			t.Errorf("Weekend row survived: %v", d)
		}
	}
}

func TestAlign_TraditionalGapsForwardFilled(t *testing.T) {
	// Trad market closed on Tuesday the 2nd; its Monday close must carry over.
	crypto := []domain.TimeSeries{domain.NewTimeSeries("BTC", []domain.Point{
		{Time: date(2024, 1, 1), Value: 100},
		{Time: date(2024, 1, 2), Value: 101},
		{Time: date(2024, 1, 3), Value: 102},
	})}
	trad := []domain.TimeSeries{domain.NewTimeSeries("SP500", []domain.Point{
		{Time: date(2024, 1, 1), Value: 4700},
		{Time: date(2024, 1, 3), Value: 4720},
	})}

	frame := Align(crypto, trad)
	if frame.NumRows() != 3 {
		t.Fatalf("Expected 3 rows, got %d", frame.NumRows())
	}
	sp := frame.Column("SP500")
	if sp[1] != 4700 {
		t.Errorf("Expected forward-filled close 4700, got %v", sp[1])
	}
}

func TestAlign_CryptoGapsNotFilled(t *testing.T) {
	// BTC missing on the 2nd; the row must be dropped, not filled.
	crypto := []domain.TimeSeries{domain.NewTimeSeries("BTC", []domain.Point{
		{Time: date(2024, 1, 1), Value: 100},
		{Time: date(2024, 1, 3), Value: 102},
	})}
	trad := []domain.TimeSeries{domain.NewTimeSeries("SP500", []domain.Point{
		{Time: date(2024, 1, 1), Value: 4700},
		{Time: date(2024, 1, 2), Value: 4710},
		{Time: date(2024, 1, 3), Value: 4720},
	})}

	frame := Align(crypto, trad)
	if frame.NumRows() != 2 {
		t.Fatalf("Expected the gap row dropped, got %d rows", frame.NumRows())
	}
	for _, d := range frame.Dates {
		if d.Equal(date(2024, 1, 2)) {
			t.Error("Row with missing crypto observation survived")
		}
	}
}

func TestAlign_NoWeekendLeadingRowsBeforeTradData(t *testing.T) {
	// Crypto starts before the first trad observation; those rows have no
	// value to fill from and must be dropped.
	crypto := []domain.TimeSeries{domain.NewTimeSeries("BTC", []domain.Point{
		{Time: date(2024, 1, 1), Value: 100},
		{Time: date(2024, 1, 2), Value: 101},
		{Time: date(2024, 1, 3), Value: 102},
	})}
	trad := []domain.TimeSeries{domain.NewTimeSeries("SP500", []domain.Point{
		{Time: date(2024, 1, 3), Value: 4720},
	})}

	frame := Align(crypto, trad)
	if frame.NumRows() != 1 {
		t.Fatalf("Expected only the overlapping row, got %d", frame.NumRows())
	}
}

func TestAlign_CompleteRows(t *testing.T) {
	crypto := []domain.TimeSeries{
		domain.NewTimeSeries("BTC", []domain.Point{
			{Time: date(2024, 1, 1), Value: 100},
			{Time: date(2024, 1, 2), Value: 101},
		}),
		domain.NewTimeSeries("ETH", []domain.Point{
			{Time: date(2024, 1, 1), Value: 10},
			{Time: date(2024, 1, 2), Value: 11},
		}),
	}
	trad := []domain.TimeSeries{domain.NewTimeSeries("VIX", []domain.Point{
		{Time: date(2024, 1, 1), Value: 13},
		{Time: date(2024, 1, 2), Value: 14},
	})}

	frame := Align(crypto, trad)
	for _, name := range frame.Columns {
		for i, v := range frame.Column(name) {
			if math.IsNaN(v) {
				t.Errorf("NaN survived in %s row %d", name, i)
			}
		}
	}
}

func TestAlign_FillStopsAtLastTradObservation(t *testing.T) {
	// Trad data ends Wednesday the 3rd; crypto runs through Friday the 5th.
	// The Thursday and Friday rows have no real trad close to carry and must
	// be dropped rather than filled with Wednesday's value.
	crypto := []domain.TimeSeries{domain.NewTimeSeries("BTC", []domain.Point{
		{Time: date(2024, 1, 1), Value: 100},
		{Time: date(2024, 1, 2), Value: 101},
		{Time: date(2024, 1, 3), Value: 102},
		{Time: date(2024, 1, 4), Value: 103},
		{Time: date(2024, 1, 5), Value: 104},
	})}
	trad := []domain.TimeSeries{domain.NewTimeSeries("SP500", []domain.Point{
		{Time: date(2024, 1, 1), Value: 4700},
		{Time: date(2024, 1, 2), Value: 4710},
		{Time: date(2024, 1, 3), Value: 4720},
	})}

	frame := Align(crypto, trad)
	if frame.NumRows() != 3 {
		t.Fatalf("Expected 3 rows up to the last trad observation, got %d", frame.NumRows())
	}
	if last := frame.Dates[frame.NumRows()-1]; !last.Equal(date(2024, 1, 3)) {
		t.Errorf("Expected the frame to end at the last trad date, got %v", last)
	}
}

func TestCalendar_KeepsWeekends(t *testing.T) {
	// 2024-01-05 through 08 spans a weekend; all four days must survive.
	series := []domain.TimeSeries{
		domain.NewTimeSeries("BTC", []domain.Point{
			{Time: date(2024, 1, 5), Value: 100},
			{Time: date(2024, 1, 6), Value: 101},
			{Time: date(2024, 1, 7), Value: 102},
			{Time: date(2024, 1, 8), Value: 103},
		}),
		domain.NewTimeSeries("ETH", []domain.Point{
			{Time: date(2024, 1, 5), Value: 10},
			{Time: date(2024, 1, 6), Value: 11},
			{Time: date(2024, 1, 7), Value: 12},
			{Time: date(2024, 1, 8), Value: 13},
		}),
	}
	frame := Calendar(series)
	if frame.NumRows() != 4 {
		t.Errorf("Expected all 4 calendar days, got %d rows", frame.NumRows())
	}
}

func TestAlign_EmptyInputsYieldEmptyFrame(t *testing.T) {
	if frame := Align(nil, nil); !frame.Empty() {
		t.Errorf("Expected empty frame, got %d rows", frame.NumRows())
	}
	crypto := []domain.TimeSeries{domain.NewTimeSeries("BTC", []domain.Point{
		{Time: date(2024, 1, 1), Value: 100},
	})}
	if frame := Align(crypto, nil); frame.NumRows() != 1 {
		// No traditional columns: the crypto rows stand alone.
		t.Errorf("Expected crypto-only frame with 1 row, got %d", frame.NumRows())
	}
}
