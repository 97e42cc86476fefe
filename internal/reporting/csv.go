package reporting

import (
	"fmt"
	"math"
	"strings"

	"crypto-market-lab/internal/correlate"
	"crypto-market-lab/internal/domain"
)

const dateLayout = "2006-01-02"

// cell renders one numeric cell. NaN renders as an empty cell so spreadsheet
// tools treat it as missing rather than as text.
func cell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.6f", v)
}

// csvEscape quotes a field when it contains a separator or quote.
func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// RenderMatrixCSV renders a correlation matrix as a square CSV table with
// labels on both axes.
func RenderMatrixCSV(m correlate.Matrix) string {
	var sb strings.Builder

	for _, label := range m.Labels {
		sb.WriteString(",")
		sb.WriteString(csvEscape(label))
	}
	sb.WriteString("\n")

	for i, label := range m.Labels {
		sb.WriteString(csvEscape(label))
		for j := range m.Labels {
			sb.WriteString(",")
			sb.WriteString(cell(m.Values[i][j]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderFrameCSV renders a date-indexed frame as CSV with a leading date
// column.
func RenderFrameCSV(f domain.Frame) string {
	var sb strings.Builder

	sb.WriteString("date")
	for _, name := range f.Columns {
		sb.WriteString(",")
		sb.WriteString(csvEscape(name))
	}
	sb.WriteString("\n")

	for i, d := range f.Dates {
		sb.WriteString(d.Format(dateLayout))
		for _, name := range f.Columns {
			sb.WriteString(",")
			sb.WriteString(cell(f.Values[name][i]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
