// Package main provides the one-shot refresh command: fetch market data,
// align and correlate it, and write the report artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"crypto-market-lab/internal/acquisition"
	"crypto-market-lab/internal/cache"
	"crypto-market-lab/internal/cache/file"
	"crypto-market-lab/internal/cache/memory"
	"crypto-market-lab/internal/cache/postgres"
	"crypto-market-lab/internal/category"
	"crypto-market-lab/internal/provider"
	"crypto-market-lab/internal/ratelimit"
	"crypto-market-lab/internal/reporting"
)

func main() {
	loadEnvFile()

	outputDir := flag.String("output-dir", "output", "Output directory for report artifacts")
	cacheDir := flag.String("cache-dir", "cache", "Directory for the file cache")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for the cache (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory caching instead of the file cache")
	topN := flag.Int("top-n", 50, "Number of top-ranked symbols to track")
	days := flag.Int("days", 365, "Days of history to fetch")
	window := flag.Int("window", 30, "Rolling correlation window in days")
	categoriesPath := flag.String("categories", "", "YAML file overriding the built-in category baskets")
	cmcURL := flag.String("cmc-url", "https://pro-api.coinmarketcap.com/v1", "CoinMarketCap API base URL")
	cmcKey := flag.String("cmc-key", os.Getenv("CMC_API_KEY"), "CoinMarketCap API key")
	cmcRPM := flag.Int("cmc-rpm", 30, "CoinMarketCap requests per minute")
	yahooURL := flag.String("yahoo-url", "https://query1.finance.yahoo.com", "Yahoo Finance base URL")
	yahooRPM := flag.Int("yahoo-rpm", 60, "Yahoo Finance requests per minute")
	fngURL := flag.String("fng-url", "https://api.alternative.me/fng/?limit=0&format=json", "Fear & Greed endpoint")
	flag.Parse()

	logger := log.New(os.Stdout, "[refresh] ", log.LstdFlags)

	if *cmcKey == "" {
		logger.Fatal("--cmc-key (or CMC_API_KEY) is required")
	}

	categories, err := category.Load(*categoriesPath)
	if err != nil {
		logger.Fatalf("Failed to load categories: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling refresh", sig)
		cancel()
	}()

	store, cleanup, err := createStore(ctx, *postgresDSN, *cacheDir, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create cache store: %v", err)
	}
	defer cleanup()

	yahoo := provider.NewYahoo(*yahooURL, ratelimit.New(*yahooRPM))
	pipeline := acquisition.New(acquisition.Options{
		Cache:         store,
		Listings:      provider.NewCoinMarketCap(*cmcURL, *cmcKey, ratelimit.New(*cmcRPM)),
		Primary:       provider.NewCoinMarketCap(*cmcURL, *cmcKey, ratelimit.New(*cmcRPM)),
		Fallback:      yahoo,
		Index:         yahoo,
		Sentiment:     provider.NewFearGreed(*fngURL, ratelimit.New(*yahooRPM)),
		TopN:          *topN,
		DaysOfHistory: *days,
		Logger:        logger,
	})

	data, err := pipeline.Refresh(ctx)
	if err != nil {
		logger.Fatalf("Refresh failed: %v", err)
	}
	logger.Printf("Acquisition: %d symbols (%d cached, %d fetched, %d failed)",
		len(data.Crypto), data.Status.Cached, data.Status.Fetched, data.Status.Failed)
	for _, msg := range data.Status.Messages {
		logger.Printf("Warning: %s", msg)
	}

	report := reporting.NewGenerator(categories, *window).Generate(data)
	if err := reporting.WriteAll(*outputDir, report); err != nil {
		logger.Fatalf("Failed to write report: %v", err)
	}

	fmt.Printf("Report written to %s/ (%d aligned rows, %d symbols)\n",
		*outputDir, report.Aligned.NumRows(), report.SymbolCount)
}

// createStore picks the cache backend: in-memory, PostgreSQL when a DSN is
// given, otherwise the file cache.
func createStore(ctx context.Context, dsn, dir string, useMemory bool, logger *log.Logger) (cache.Store, func(), error) {
	if useMemory {
		return memory.New().WithLogger(logger), func() {}, nil
	}
	if dsn != "" {
		pool, err := postgres.NewPool(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		store, err := postgres.NewStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store.WithLogger(logger), pool.Close, nil
	}
	return file.New(dir).WithLogger(logger), func() {}, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
