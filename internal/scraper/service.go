// Package scraper wires the fetch backend, discovery, crawl scheduler, cache
// and summarizer into one service used by both the CLI and the HTTP server.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/aliexpress-scraper/internal/cache"
	"github.com/maltedev/aliexpress-scraper/internal/config"
	"github.com/maltedev/aliexpress-scraper/internal/crawler"
	"github.com/maltedev/aliexpress-scraper/internal/discovery"
	"github.com/maltedev/aliexpress-scraper/internal/fetch"
	"github.com/maltedev/aliexpress-scraper/internal/models"
	"github.com/maltedev/aliexpress-scraper/internal/ratelimit"
	"github.com/maltedev/aliexpress-scraper/internal/retry"
	"github.com/maltedev/aliexpress-scraper/internal/summary"
)

type Service struct {
	cfg        *config.Config
	backend    fetch.Backend
	crawler    *crawler.Crawler
	discoverer *discovery.Discoverer
	summarizer summary.Summarizer
	cache      cache.Cache
	metrics    *crawler.Metrics
	logger     *slog.Logger
}

// New builds the full scraping stack from configuration. The returned service
// owns the fetch backend and must be Closed.
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	backend, err := newBackend(cfg, logger)
	if err != nil {
		return nil, &crawler.ScraperError{Op: "init backend", Err: err}
	}

	proxy := ""
	if len(cfg.Fetch.Proxies) > 0 {
		proxy = cfg.Fetch.Proxies[0]
	}
	sessions := fetch.NewSessionManager(cfg.Fetch.UserAgents, proxy)
	limiter := ratelimit.NewPolitenessDelay(cfg.Crawl.RateLimitMin, cfg.Crawl.RateLimitMax)

	retryCfg := retry.DefaultConfig()
	retryCfg.Retries = cfg.Crawl.MaxRetries
	retryCfg.Base = cfg.Crawl.RetryBase
	retryCfg.Retryable = retryableFetch

	metrics := crawler.NewMetrics()

	crawlOpts := crawler.DefaultOptions()
	crawlOpts.Concurrency = int64(cfg.Crawl.ConcurrentLimit)
	crawlOpts.MaxProductsPerSeller = cfg.Crawl.MaxProductsPerSeller
	crawlOpts.AbortOnAntibot = cfg.Crawl.AbortOnAntibot
	crawlOpts.Retry = retryCfg
	crawlOpts.ProductWaitMs = cfg.Crawl.ProductWaitMs
	crawlOpts.SellerWaitMs = cfg.Crawl.SellerWaitMs

	cr := crawler.New(backend, sessions, limiter, metrics, logger, crawlOpts)

	return &Service{
		cfg:        cfg,
		backend:    backend,
		crawler:    cr,
		discoverer: discovery.New(cr.Backend(), sessions, limiter, retryCfg, logger),
		summarizer: summary.New(cfg.Summary.GeminiAPIKey, cfg.Summary.GeminiModel, cfg.Summary.Timeout, logger),
		cache:      newCache(cfg, logger),
		metrics:    metrics,
		logger:     logger.With("component", "service"),
	}, nil
}

func (s *Service) Metrics() *crawler.Metrics {
	return s.metrics
}

func (s *Service) Close() error {
	return s.backend.Close()
}

// Scrape runs discovery plus the crawl for one query. Cached results are
// returned as-is without touching the network.
func (s *Service) Scrape(ctx context.Context, query string) (*models.ScrapeResult, error) {
	if query == "" {
		return nil, &crawler.ScraperError{Op: "scrape", Err: errors.New("empty query")}
	}

	if result, ok := s.cache.Get(ctx, query); ok {
		s.logger.Info("cache hit", "query", query)
		return result, nil
	}

	previews, err := s.discoverer.Discover(ctx, query, s.cfg.Crawl.Limit, s.cfg.Crawl.MaxSuppliers)
	if err != nil {
		return nil, fmt.Errorf("discovery for %q: %w", query, err)
	}
	s.logger.Info("discovery finished", "query", query, "suppliers", len(previews))

	result, err := s.crawler.Run(ctx, query, previews)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, query, result)
	return result, nil
}

// Summarize produces the ranked overview for a finished result.
func (s *Service) Summarize(ctx context.Context, result *models.ScrapeResult) (*summary.Summary, error) {
	return s.summarizer.Summarize(ctx, result)
}

func newBackend(cfg *config.Config, logger *slog.Logger) (fetch.Backend, error) {
	switch cfg.Fetch.Backend {
	case "renderapi":
		return fetch.NewRenderAPIBackend(fetch.RenderAPIOptions{
			Endpoint: cfg.Fetch.RenderEndpoint,
			APIKey:   cfg.Fetch.RenderAPIKey,
			Country:  cfg.Fetch.Country,
			Cookie:   cfg.Fetch.Cookie,
			Timeout:  cfg.Fetch.RequestTimeout,
		}, logger)
	case "browser":
		opts := fetch.DefaultBrowserOptions()
		opts.Headless = cfg.Browser.Headless
		opts.Timeout = cfg.Browser.Timeout
		opts.ViewportWidth = cfg.Browser.ViewportWidth
		opts.ViewportHeight = cfg.Browser.ViewportHeight
		opts.AcceptLanguage = cfg.Browser.AcceptLanguage
		opts.Locale = cfg.Browser.Locale
		opts.Cookie = cfg.Fetch.Cookie
		return fetch.NewBrowserBackend(opts, logger)
	default:
		return nil, fmt.Errorf("unknown fetch backend %q", cfg.Fetch.Backend)
	}
}

func newCache(cfg *config.Config, logger *slog.Logger) cache.Cache {
	switch cfg.Cache.Type {
	case "redis":
		c, err := cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.Cache.TTL, logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache", "error", err)
			return cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)
		}
		return c
	default:
		return cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)
	}
}

// retryableFetch limits retries to transport-level failures. Block pages and
// extraction problems are handled at the crawl unit boundary instead.
func retryableFetch(err error) bool {
	var fe *fetch.FetchError
	return errors.As(err, &fe)
}
