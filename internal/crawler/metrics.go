package crawler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a crawl run.
type Metrics struct {
	Registry        *prometheus.Registry
	FetchesTotal    *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	SellersScraped  prometheus.Counter
	ProductsScraped prometheus.Counter
	UnitsSkipped    *prometheus.CounterVec
}

// NewMetrics constructs and registers all collectors on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_fetches_total",
			Help: "Total page fetches issued, by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_fetch_duration_seconds",
			Help:    "Page fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	sellers := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_sellers_scraped_total",
			Help: "Sellers added to results.",
		},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_products_scraped_total",
			Help: "Products added to results.",
		},
	)
	skipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_units_skipped_total",
			Help: "Crawl units skipped, by reason.",
		},
		[]string{"reason"},
	)

	registry.MustRegister(fetches, fetchDuration, sellers, products, skipped)

	return &Metrics{
		Registry:        registry,
		FetchesTotal:    fetches,
		FetchDuration:   fetchDuration,
		SellersScraped:  sellers,
		ProductsScraped: products,
		UnitsSkipped:    skipped,
	}
}

func (m *Metrics) ObserveFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) IncSellers() {
	if m == nil {
		return
	}
	m.SellersScraped.Inc()
}

func (m *Metrics) IncProducts() {
	if m == nil {
		return
	}
	m.ProductsScraped.Inc()
}

func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.UnitsSkipped.WithLabelValues(reason).Inc()
}
