package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RenderMarkdown renders the report summary as Markdown.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Market Correlation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Acquisition summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Symbols | %d |\n", r.SymbolCount))
	if r.Status != nil {
		sb.WriteString(fmt.Sprintf("| Symbols Cached | %d |\n", r.Status.Cached))
		sb.WriteString(fmt.Sprintf("| Symbols Fetched | %d |\n", r.Status.Fetched))
		sb.WriteString(fmt.Sprintf("| Symbols Failed | %d |\n", r.Status.Failed))
	}
	sb.WriteString(fmt.Sprintf("| Aligned Rows | %d |\n", r.Aligned.NumRows()))
	if r.Aligned.NumRows() > 0 {
		sb.WriteString(fmt.Sprintf("| Date Range | %s to %s |\n",
			r.Aligned.Dates[0].Format(dateLayout),
			r.Aligned.Dates[r.Aligned.NumRows()-1].Format(dateLayout)))
	}
	sb.WriteString(fmt.Sprintf("| Rolling Window | %d days |\n", r.RollingWindow))
	sb.WriteString("\n")

	if r.Status != nil && !r.Status.Success {
		sb.WriteString("## Fetch Warnings\n\n")
		for _, msg := range r.Status.Messages {
			sb.WriteString(fmt.Sprintf("- %s\n", msg))
		}
		sb.WriteString("\n")
	}

	// Category correlations as an inline table; the full matrices ship as CSV.
	sb.WriteString("## Category Correlations\n\n")
	if r.Category.Empty() {
		sb.WriteString("No category correlations available.\n")
	} else {
		sb.WriteString("| |")
		for _, label := range r.Category.Labels {
			sb.WriteString(fmt.Sprintf(" %s |", label))
		}
		sb.WriteString("\n|---|")
		for range r.Category.Labels {
			sb.WriteString("---|")
		}
		sb.WriteString("\n")
		for i, label := range r.Category.Labels {
			sb.WriteString(fmt.Sprintf("| %s |", label))
			for j := range r.Category.Labels {
				v := r.Category.Values[i][j]
				if math.IsNaN(v) {
					sb.WriteString(" |")
				} else {
					sb.WriteString(fmt.Sprintf(" %.4f |", v))
				}
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")

	return sb.String()
}
