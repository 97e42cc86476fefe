// Package reporting assembles correlation reports from acquired market data
// and renders them as CSV and Markdown artifacts.
package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"crypto-market-lab/internal/acquisition"
	"crypto-market-lab/internal/align"
	"crypto-market-lab/internal/correlate"
	"crypto-market-lab/internal/domain"
)

// Generator turns one acquisition result into a Report.
type Generator struct {
	categories domain.CategoryMap
	window     int              // rolling correlation window in days
	now        func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a report generator. The rolling window is clamped to
// its supported bounds.
func NewGenerator(categories domain.CategoryMap, window int) *Generator {
	return &Generator{
		categories: categories,
		window:     correlate.ClampWindow(window),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate aligns the acquired data and computes every correlation product.
func (g *Generator) Generate(data *acquisition.DashboardData) *Report {
	crypto := make([]domain.TimeSeries, 0, len(data.Crypto))
	for _, symbol := range sortedSymbols(data.Crypto) {
		crypto = append(crypto, data.Crypto[symbol].Price)
	}
	var trad []domain.TimeSeries
	for _, s := range []domain.TimeSeries{data.SP500, data.VIX, data.FearGreed} {
		if !s.Empty() {
			trad = append(trad, s)
		}
	}

	aligned := align.Align(crypto, trad)

	// The crypto-only matrix deliberately keeps weekends: those assets trade
	// every day and need no business-day alignment.
	cryptoOnly := align.Calendar(crypto)

	return &Report{
		GeneratedAt:   g.now(),
		RollingWindow: g.window,
		SymbolCount:   len(data.Crypto),
		Status:        data.Status,
		Aligned:       aligned,
		Market:        correlate.MarketMatrix(aligned, g.categories),
		Crypto:        correlate.CryptoMatrix(cryptoOnly, g.categories),
		Category:      correlate.CategoryMatrix(aligned, g.categories),
		Rolling:       correlate.RollingCorrelations(aligned, g.categories, g.window),
	}
}

func sortedSymbols(histories map[string]domain.AssetHistory) []string {
	out := make([]string, 0, len(histories))
	for symbol := range histories {
		out = append(out, symbol)
	}
	// Deterministic column order for rendered artifacts.
	sort.Strings(out)
	return out
}

// Artifact file names written by WriteAll.
const (
	FileMarketCSV   = "market_correlations.csv"
	FileCryptoCSV   = "crypto_correlations.csv"
	FileCategoryCSV = "category_correlations.csv"
	FileRollingCSV  = "rolling_correlations.csv"
	FilePricesCSV   = "prices.csv"
	FileReportMD    = "REPORT.md"
)

// WriteAll writes every report artifact into dir, creating it if needed.
func WriteAll(dir string, r *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	artifacts := map[string]string{
		FileMarketCSV:   RenderMatrixCSV(r.Market),
		FileCryptoCSV:   RenderMatrixCSV(r.Crypto),
		FileCategoryCSV: RenderMatrixCSV(r.Category),
		FileRollingCSV:  RenderFrameCSV(r.Rolling),
		FilePricesCSV:   RenderFrameCSV(r.Aligned),
		FileReportMD:    RenderMarkdown(r),
	}
	for name, content := range artifacts {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
