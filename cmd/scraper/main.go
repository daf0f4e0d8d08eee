package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/maltedev/aliexpress-scraper/internal/config"
	"github.com/maltedev/aliexpress-scraper/internal/output"
	"github.com/maltedev/aliexpress-scraper/internal/scraper"
	"github.com/maltedev/aliexpress-scraper/pkg/logger"
)

func main() {
	var (
		query        = flag.String("query", "", "Search query to scrape")
		limit        = flag.Int("limit", 0, "Override maximum search items to process")
		maxSuppliers = flag.Int("max-suppliers", 0, "Override maximum number of suppliers")
		maxProducts  = flag.Int("max-products-per-seller", 0, "Override product cap per seller")
		backend      = flag.String("backend", "", "Fetch backend: browser or renderapi")
		country      = flag.String("country", "", "Override proxy country hint")
		cookie       = flag.String("cookie", "", "Override localization cookie")
		outputDir    = flag.String("output", "", "Override output directory")
		writeCSV     = flag.Bool("csv", true, "Also write the flattened CSV")
		images       = flag.Bool("images", false, "Download product images")
		summarize    = flag.Bool("summary", true, "Print the ranked summary")
	)
	flag.Parse()

	if *query == "" {
		fmt.Println("No query given. Use -query to specify what to search for.")
		flag.Usage()
		os.Exit(1)
	}

	// Optional; env vars may come from the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *limit > 0 {
		cfg.Crawl.Limit = *limit
	}
	if *maxSuppliers > 0 {
		cfg.Crawl.MaxSuppliers = *maxSuppliers
	}
	if *maxProducts > 0 {
		cfg.Crawl.MaxProductsPerSeller = *maxProducts
	}
	if *backend != "" {
		cfg.Fetch.Backend = *backend
	}
	if *country != "" {
		cfg.Fetch.Country = *country
	}
	if *cookie != "" {
		cfg.Fetch.Cookie = *cookie
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting marketplace scraper", "query", *query)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	svc, err := scraper.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize scraper", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	result, err := svc.Scrape(ctx, *query)
	if err != nil {
		logger.Error("scrape failed", "query", *query, "error", err)
		os.Exit(1)
	}

	writer := output.NewWriter(cfg.Output.Dir)
	jsonPath, err := writer.WriteJSON(result)
	if err != nil {
		logger.Error("failed to write result", "error", err)
		os.Exit(1)
	}
	logger.Info("result written", "path", jsonPath)

	if *writeCSV && cfg.Output.WriteCSV {
		csvPath, err := writer.WriteCSV(result)
		if err != nil {
			logger.Error("failed to write csv", "error", err)
		} else {
			logger.Info("csv written", "path", csvPath)
		}
	}

	if *images || cfg.Output.DownloadImages {
		dl := output.NewImageDownloader(cfg.Output.Dir, cfg.Output.MaxImages, logger)
		n, err := dl.DownloadAll(ctx, result)
		if err != nil {
			logger.Error("image download interrupted", "downloaded", n, "error", err)
		} else {
			logger.Info("images downloaded", "count", n)
		}
	}

	if *summarize {
		s, err := svc.Summarize(ctx, result)
		if err != nil {
			logger.Error("summary failed", "error", err)
		} else {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(s); err != nil {
				logger.Error("failed to print summary", "error", err)
			}
		}
	}

	logger.Info("done", "suppliers", len(result.Suppliers))
}
