package summary

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/maltedev/aliexpress-scraper/internal/models"
)

const (
	maxTopProducts = 10
	maxTopSellers  = 5
)

// LocalRanker is the always-available summarizer. Scores are a pure function
// of rating and order volume, so the same input ranks the same way every run.
type LocalRanker struct{}

func NewLocalRanker() *LocalRanker {
	return &LocalRanker{}
}

func (r *LocalRanker) Summarize(_ context.Context, result *models.ScrapeResult) (*Summary, error) {
	s := &Summary{
		Query:           result.Query,
		GeneratedAt:     time.Now(),
		Source:          "local",
		TopProducts:     rankProducts(result),
		TopSellers:      rankSellers(result),
		Insights:        buildInsights(result),
		Recommendations: make([]string, 0),
		RiskFactors:     make([]string, 0),
	}
	s.MarketAnalysis = buildAnalysis(result, s.TopProducts)
	return s, nil
}

// productScore favors rating but lets order volume break ties between
// similarly rated listings. Orders enter through log10, so a 10x seller beats
// a 1x seller by one point, not ten.
func productScore(p *models.Product) float64 {
	score := 0.0
	if p.Rating != nil {
		score += *p.Rating * 2
	}
	if p.NumOrders != nil && *p.NumOrders > 0 {
		score += math.Log10(float64(*p.NumOrders) + 1)
	}
	return score
}

func rankProducts(result *models.ScrapeResult) []RankedProduct {
	ranked := make([]RankedProduct, 0)
	for _, seller := range result.Suppliers {
		for _, p := range seller.Products {
			ranked = append(ranked, RankedProduct{
				ProductID:  p.ProductID,
				Title:      p.ProductTitle,
				URL:        p.ProductURL,
				SellerName: seller.SellerName,
				Price:      p.Price,
				Currency:   p.Currency,
				Rating:     p.Rating,
				NumOrders:  p.NumOrders,
				Score:      productScore(p),
			})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})

	if len(ranked) > maxTopProducts {
		ranked = ranked[:maxTopProducts]
	}
	return ranked
}

func rankSellers(result *models.ScrapeResult) []RankedSeller {
	ranked := make([]RankedSeller, 0, len(result.Suppliers))
	for _, seller := range result.Suppliers {
		score := 0.0
		if seller.SellerRating != nil {
			score += *seller.SellerRating * 2
		}
		for _, p := range seller.Products {
			score += productScore(p) / 4
		}
		ranked = append(ranked, RankedSeller{
			SellerName:   seller.SellerName,
			SellerURL:    seller.SellerURL,
			SellerRating: seller.SellerRating,
			NumProducts:  len(seller.Products),
			Score:        score,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].SellerURL < ranked[j].SellerURL
	})

	if len(ranked) > maxTopSellers {
		ranked = ranked[:maxTopSellers]
	}
	return ranked
}

func buildInsights(result *models.ScrapeResult) []string {
	totalProducts := 0
	rated := 0
	var ratingSum float64
	for _, seller := range result.Suppliers {
		totalProducts += len(seller.Products)
		for _, p := range seller.Products {
			if p.Rating != nil {
				rated++
				ratingSum += *p.Rating
			}
		}
	}

	insights := []string{
		fmt.Sprintf("Collected %d products across %d suppliers for %q.",
			totalProducts, len(result.Suppliers), result.Query),
	}
	if rated > 0 {
		insights = append(insights, fmt.Sprintf(
			"%d of %d products carry a rating, averaging %.2f out of 5.",
			rated, totalProducts, ratingSum/float64(rated)))
	}
	return insights
}

func buildAnalysis(result *models.ScrapeResult, top []RankedProduct) string {
	if len(top) == 0 {
		return fmt.Sprintf("No scorable products were collected for %q.", result.Query)
	}
	return fmt.Sprintf(
		"The strongest listing for %q is %q from %s with a composite score of %.2f.",
		result.Query, top[0].Title, top[0].SellerName, top[0].Score)
}
