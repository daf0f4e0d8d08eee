// Package summary condenses a crawl result into a ranked market overview.
// Rankings are always computed locally and deterministically; the optional
// language-model backend only contributes the narrative sections and any
// failure there degrades to the local text.
package summary

import (
	"context"
	"log/slog"
	"time"

	"github.com/maltedev/aliexpress-scraper/internal/models"
)

type Summary struct {
	Query           string          `json:"query"`
	GeneratedAt     time.Time       `json:"generated_at"`
	Source          string          `json:"source"`
	TopProducts     []RankedProduct `json:"top_products"`
	TopSellers      []RankedSeller  `json:"top_sellers"`
	Insights        []string        `json:"insights"`
	MarketAnalysis  string          `json:"market_analysis"`
	Recommendations []string        `json:"recommendations"`
	RiskFactors     []string        `json:"risk_factors"`
}

type RankedProduct struct {
	ProductID  string   `json:"product_id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	SellerName string   `json:"seller_name"`
	Price      *string  `json:"price,omitempty"`
	Currency   *string  `json:"currency,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	NumOrders  *int     `json:"num_orders,omitempty"`
	Score      float64  `json:"score"`
}

type RankedSeller struct {
	SellerName   string   `json:"seller_name"`
	SellerURL    string   `json:"seller_url"`
	SellerRating *float64 `json:"seller_rating,omitempty"`
	NumProducts  int      `json:"num_products"`
	Score        float64  `json:"score"`
}

// Summarizer turns a scrape result into a Summary.
type Summarizer interface {
	Summarize(ctx context.Context, result *models.ScrapeResult) (*Summary, error)
}

// New picks the model-backed summarizer when an API key is configured and the
// local ranker otherwise.
func New(apiKey, model string, timeout time.Duration, logger *slog.Logger) Summarizer {
	if apiKey == "" {
		return NewLocalRanker()
	}
	return NewGeminiSummarizer(apiKey, model, timeout, logger)
}
