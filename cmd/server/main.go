// Package main provides the dashboard backend server: scheduled refresh
// cycles plus JSON endpoints serving the latest correlation products.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"crypto-market-lab/internal/acquisition"
	"crypto-market-lab/internal/cache"
	"crypto-market-lab/internal/cache/file"
	"crypto-market-lab/internal/cache/memory"
	"crypto-market-lab/internal/cache/postgres"
	"crypto-market-lab/internal/category"
	"crypto-market-lab/internal/correlate"
	"crypto-market-lab/internal/domain"
	"crypto-market-lab/internal/observability"
	"crypto-market-lab/internal/provider"
	"crypto-market-lab/internal/ratelimit"
	"crypto-market-lab/internal/reporting"
)

// Server holds the refresh pipeline and the last good report.
type Server struct {
	pipeline  *acquisition.Pipeline
	generator *reporting.Generator
	logger    *log.Logger

	mu             sync.Mutex
	report         *reporting.Report
	lastRefresh    time.Time
	refreshRunning bool
	refreshes      int
	started        time.Time
}

func main() {
	loadEnvFile()

	addr := flag.String("addr", ":8080", "HTTP listen address")
	cacheDir := flag.String("cache-dir", "cache", "Directory for the file cache")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for the cache (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory caching instead of the file cache")
	topN := flag.Int("top-n", 50, "Number of top-ranked symbols to track")
	days := flag.Int("days", 365, "Days of history to fetch")
	window := flag.Int("window", 30, "Rolling correlation window in days")
	refreshInterval := flag.Duration("refresh-interval", 12*time.Hour, "Scheduled refresh interval")
	categoriesPath := flag.String("categories", "", "YAML file overriding the built-in category baskets")
	cmcURL := flag.String("cmc-url", "https://pro-api.coinmarketcap.com/v1", "CoinMarketCap API base URL")
	cmcKey := flag.String("cmc-key", os.Getenv("CMC_API_KEY"), "CoinMarketCap API key")
	cmcRPM := flag.Int("cmc-rpm", 30, "CoinMarketCap requests per minute")
	yahooURL := flag.String("yahoo-url", "https://query1.finance.yahoo.com", "Yahoo Finance base URL")
	yahooRPM := flag.Int("yahoo-rpm", 60, "Yahoo Finance requests per minute")
	fngURL := flag.String("fng-url", "https://api.alternative.me/fng/?limit=0&format=json", "Fear & Greed endpoint")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	if *cmcKey == "" {
		logger.Fatal("--cmc-key (or CMC_API_KEY) is required")
	}

	categories, err := category.Load(*categoriesPath)
	if err != nil {
		logger.Fatalf("Failed to load categories: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := createStore(ctx, *postgresDSN, *cacheDir, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create cache store: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")
	yahoo := provider.NewYahoo(*yahooURL, ratelimit.New(*yahooRPM))
	server := &Server{
		pipeline: acquisition.New(acquisition.Options{
			Cache:         store,
			Listings:      provider.NewCoinMarketCap(*cmcURL, *cmcKey, ratelimit.New(*cmcRPM)),
			Primary:       provider.NewCoinMarketCap(*cmcURL, *cmcKey, ratelimit.New(*cmcRPM)),
			Fallback:      yahoo,
			Index:         yahoo,
			Sentiment:     provider.NewFearGreed(*fngURL, ratelimit.New(*yahooRPM)),
			TopN:          *topN,
			DaysOfHistory: *days,
			Logger:        logger,
			Metrics:       metrics,
		}),
		generator: reporting.NewGenerator(categories, *window),
		logger:    logger,
		started:   time.Now().UTC(),
	}

	// Initial refresh before serving, then on the schedule.
	server.refresh(ctx)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every "+refreshInterval.String(), func() {
		server.refresh(ctx)
	}); err != nil {
		logger.Fatalf("Failed to schedule refresh: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	httpServer := &http.Server{Addr: *addr, Handler: server.routes()}
	go func() {
		logger.Printf("Listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("Received signal %v, shutting down", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Shutdown error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// refresh runs one acquisition-and-correlation cycle and swaps in the new
// report. Overlapping cycles are skipped; a fatal acquisition failure keeps
// the previous report in place.
func (s *Server) refresh(ctx context.Context) {
	s.mu.Lock()
	if s.refreshRunning {
		s.mu.Unlock()
		s.logger.Println("Refresh already running, skipping")
		return
	}
	s.refreshRunning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.refreshRunning = false
		s.mu.Unlock()
	}()

	start := time.Now()
	data, err := s.pipeline.Refresh(ctx)
	if err != nil {
		s.logger.Printf("Refresh failed, keeping previous report: %v", err)
		return
	}
	report := s.generator.Generate(data)

	s.mu.Lock()
	s.report = report
	s.lastRefresh = time.Now().UTC()
	s.refreshes++
	s.mu.Unlock()

	s.logger.Printf("Refresh complete in %v: %d symbols, %d aligned rows",
		time.Since(start).Round(time.Millisecond), report.SymbolCount, report.Aligned.NumRows())
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/market-correlations", s.matrixHandler(func(r *reporting.Report) correlate.Matrix { return r.Market }))
	mux.HandleFunc("/api/crypto-correlations", s.matrixHandler(func(r *reporting.Report) correlate.Matrix { return r.Crypto }))
	mux.HandleFunc("/api/category-correlations", s.matrixHandler(func(r *reporting.Report) correlate.Matrix { return r.Category }))
	mux.HandleFunc("/api/rolling-correlations", s.frameHandler(func(r *reporting.Report) domain.Frame { return r.Rolling }))
	mux.HandleFunc("/api/prices", s.frameHandler(func(r *reporting.Report) domain.Frame { return r.Aligned }))
	return mux
}

// current returns the last good report, or nil before the first success.
func (s *Server) current() *reporting.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// StatusResponse is the JSON response for the status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	LastRefresh   time.Time `json:"last_refresh,omitempty"`
	Refreshes     int       `json:"refreshes"`
	Refreshing    bool      `json:"refreshing"`
	FetchSuccess  bool      `json:"fetch_success"`
	FetchMessages []string  `json:"fetch_messages,omitempty"`
	SymbolCount   int       `json:"symbol_count"`
	AlignedRows   int       `json:"aligned_rows"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:     "running",
		Uptime:     time.Since(s.started).String(),
		Refreshes:  s.refreshes,
		Refreshing: s.refreshRunning,
	}
	resp.LastRefresh = s.lastRefresh
	if s.report != nil {
		resp.SymbolCount = s.report.SymbolCount
		resp.AlignedRows = s.report.Aligned.NumRows()
		if s.report.Status != nil {
			resp.FetchSuccess = s.report.Status.Success
			resp.FetchMessages = s.report.Status.Messages
		}
	}
	s.mu.Unlock()

	writeJSON(w, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	go s.refresh(context.Background())
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte("refresh started\n"))
}

// MatrixResponse carries a correlation matrix; cells without enough
// observations are null.
type MatrixResponse struct {
	Labels []string     `json:"labels"`
	Values [][]*float64 `json:"values"`
}

// FrameResponse carries a date-indexed table; missing cells are null.
type FrameResponse struct {
	Dates   []string              `json:"dates"`
	Columns []string              `json:"columns"`
	Values  map[string][]*float64 `json:"values"`
}

func (s *Server) matrixHandler(pick func(*reporting.Report) correlate.Matrix) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := s.current()
		if report == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		m := pick(report)
		resp := MatrixResponse{Labels: m.Labels, Values: make([][]*float64, len(m.Values))}
		for i, row := range m.Values {
			resp.Values[i] = nullableRow(row)
		}
		writeJSON(w, resp)
	}
}

func (s *Server) frameHandler(pick func(*reporting.Report) domain.Frame) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := s.current()
		if report == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		f := pick(report)
		resp := FrameResponse{
			Dates:   make([]string, len(f.Dates)),
			Columns: f.Columns,
			Values:  make(map[string][]*float64, len(f.Columns)),
		}
		for i, d := range f.Dates {
			resp.Dates[i] = d.Format("2006-01-02")
		}
		for _, name := range f.Columns {
			resp.Values[name] = nullableRow(f.Values[name])
		}
		writeJSON(w, resp)
	}
}

// nullableRow converts NaN cells to nil so they serialize as JSON null.
func nullableRow(row []float64) []*float64 {
	out := make([]*float64, len(row))
	for i, v := range row {
		if math.IsNaN(v) {
			continue
		}
		value := v
		out[i] = &value
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
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
