package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/maltedev/aliexpress-scraper/internal/antibot"
	"github.com/maltedev/aliexpress-scraper/internal/extract"
	"github.com/maltedev/aliexpress-scraper/internal/fetch"
	"github.com/maltedev/aliexpress-scraper/internal/models"
	"github.com/maltedev/aliexpress-scraper/internal/ratelimit"
	"github.com/maltedev/aliexpress-scraper/internal/retry"
)

// Options tunes a crawl run.
type Options struct {
	// Concurrency bounds in-flight page fetches across the whole run,
	// discovery included.
	Concurrency int64
	// MaxProductsPerSeller caps product fetches per supplier. Zero means
	// no cap.
	MaxProductsPerSeller int
	// AbortOnAntibot fails the whole run on the first block page instead
	// of skipping the affected unit.
	AbortOnAntibot bool

	Retry   retry.Config
	Extract extract.Options

	// Render wait before reading page content, per page kind.
	ProductWaitMs int
	SellerWaitMs  int
}

func DefaultOptions() Options {
	return Options{
		Concurrency:          3,
		MaxProductsPerSeller: 5,
		AbortOnAntibot:       false,
		Retry:                retry.DefaultConfig(),
		Extract:              extract.DefaultOptions(),
		ProductWaitMs:        2000,
		SellerWaitMs:         2000,
	}
}

// Crawler fans out over seller previews, one crawl unit per seller, and
// assembles the run result at a single aggregation point.
type Crawler struct {
	gate     fetch.Backend
	sessions *fetch.SessionManager
	limiter  ratelimit.RateLimiter
	metrics  *Metrics
	logger   *slog.Logger
	opts     Options
}

func New(backend fetch.Backend, sessions *fetch.SessionManager, limiter ratelimit.RateLimiter, metrics *Metrics, logger *slog.Logger, opts Options) *Crawler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	return &Crawler{
		gate: &gatedBackend{
			inner:   backend,
			sem:     semaphore.NewWeighted(opts.Concurrency),
			metrics: metrics,
		},
		sessions: sessions,
		limiter:  limiter,
		metrics:  metrics,
		logger:   logger.With("component", "crawler"),
		opts:     opts,
	}
}

// Backend exposes the concurrency-gated backend so discovery fetches count
// against the same in-flight limit as seller and product fetches.
func (c *Crawler) Backend() fetch.Backend {
	return c.gate
}

type unitStatus int

const (
	unitOK unitStatus = iota
	unitSkipped
	unitFatal
)

type sellerOutcome struct {
	status unitStatus
	seller *models.Seller
	url    string
	err    error
}

// Run crawls every preview concurrently and aggregates sellers in completion
// order. Unit failures degrade to omission unless AbortOnAntibot promotes a
// block page to a run failure.
func (c *Crawler) Run(ctx context.Context, query string, previews []*models.Preview) (*models.ScrapeResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan sellerOutcome)
	var wg sync.WaitGroup
	for _, pv := range previews {
		wg.Add(1)
		go func(pv *models.Preview) {
			defer wg.Done()
			outcomes <- c.sellerTask(ctx, pv)
		}(pv)
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := models.NewScrapeResult(query)
	var fatal error
	for oc := range outcomes {
		switch oc.status {
		case unitOK:
			result.Suppliers = append(result.Suppliers, oc.seller)
			c.metrics.IncSellers()
		case unitSkipped:
			c.logger.Warn("seller skipped", "url", oc.url, "error", oc.err)
			c.metrics.IncSkipped("seller")
		case unitFatal:
			if fatal == nil {
				fatal = oc.err
				cancel()
			}
		}
	}
	if fatal != nil {
		return nil, fatal
	}

	c.logger.Info("crawl finished", "query", query, "suppliers", len(result.Suppliers))
	return result, nil
}

// sellerTask is one crawl unit: the seller page plus that seller's products.
func (c *Crawler) sellerTask(ctx context.Context, pv *models.Preview) sellerOutcome {
	content, err := c.fetchPage(ctx, pv.SellerURL, c.opts.SellerWaitMs)
	if err != nil {
		return sellerOutcome{status: unitSkipped, url: pv.SellerURL, err: err}
	}
	if antibot.IsBlocked(content.Body) {
		if c.opts.AbortOnAntibot {
			return sellerOutcome{status: unitFatal, url: pv.SellerURL, err: antibot.ErrDetected}
		}
		return sellerOutcome{status: unitSkipped, url: pv.SellerURL, err: antibot.ErrDetected}
	}
	if !content.OK() {
		return sellerOutcome{status: unitSkipped, url: pv.SellerURL, err: fmt.Errorf("seller page returned status %d", content.StatusCode)}
	}

	seller, err := extract.ExtractSeller(pv.SellerName, pv.SellerURL, content.Body)
	if err != nil {
		// Store page unreadable; keep the identity from discovery.
		c.logger.Warn("seller page not parseable", "url", pv.SellerURL, "error", err)
		seller = &models.Seller{
			SellerName:   pv.SellerName,
			SellerURL:    pv.SellerURL,
			SellerBadges: make([]string, 0),
			Products:     make([]*models.Product, 0),
		}
	}

	urls := pv.ProductURLs
	if c.opts.MaxProductsPerSeller > 0 && len(urls) > c.opts.MaxProductsPerSeller {
		urls = urls[:c.opts.MaxProductsPerSeller]
	}

	products := make([]*models.Product, len(urls))
	errs := make([]error, len(urls))
	var pwg sync.WaitGroup
	for i, u := range urls {
		pwg.Add(1)
		go func(i int, u string) {
			defer pwg.Done()
			products[i], errs[i] = c.productTask(ctx, u)
		}(i, u)
	}
	pwg.Wait()

	for i, perr := range errs {
		if perr != nil {
			if errors.Is(perr, antibot.ErrDetected) && c.opts.AbortOnAntibot {
				return sellerOutcome{status: unitFatal, url: urls[i], err: perr}
			}
			c.logger.Warn("product skipped", "url", urls[i], "error", perr)
			c.metrics.IncSkipped("product")
			continue
		}
		seller.Products = append(seller.Products, products[i])
		c.metrics.IncProducts()
	}

	return sellerOutcome{status: unitOK, seller: seller, url: pv.SellerURL}
}

func (c *Crawler) productTask(ctx context.Context, url string) (*models.Product, error) {
	content, err := c.fetchPage(ctx, url, c.opts.ProductWaitMs)
	if err != nil {
		return nil, err
	}
	if antibot.IsBlocked(content.Body) {
		return nil, antibot.ErrDetected
	}
	if !content.OK() {
		return nil, fmt.Errorf("product page returned status %d", content.StatusCode)
	}
	product, err := extract.ExtractProduct(url, content.Body, c.opts.Extract)
	if err != nil {
		return nil, err
	}
	if !product.IsValid() {
		return nil, fmt.Errorf("product %s: missing required fields", url)
	}
	return product, nil
}

// fetchPage applies the politeness delay and session rotation on every
// attempt, so a retried fetch pauses and changes identity before reissuing.
func (c *Crawler) fetchPage(ctx context.Context, url string, waitMs int) (*fetch.PageContent, error) {
	return retry.Do(ctx, c.opts.Retry, func(ctx context.Context) (*fetch.PageContent, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		sess := c.sessions.Acquire()
		defer c.sessions.Release(sess)
		return c.gate.Fetch(ctx, sess, fetch.Request{URL: url, RenderJS: true, WaitMs: waitMs})
	})
}

// gatedBackend counts every fetch against one weighted semaphore. Backoff
// sleeps happen outside the gate, so a waiting retry never holds a slot.
type gatedBackend struct {
	inner   fetch.Backend
	sem     *semaphore.Weighted
	metrics *Metrics
}

func (g *gatedBackend) Fetch(ctx context.Context, sess *fetch.Session, req fetch.Request) (*fetch.PageContent, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.sem.Release(1)

	start := time.Now()
	content, err := g.inner.Fetch(ctx, sess, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	g.metrics.ObserveFetch(outcome, time.Since(start))
	return content, err
}

func (g *gatedBackend) Close() error {
	return g.inner.Close()
}
