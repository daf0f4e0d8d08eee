package models

import (
	"time"
)

// Product is one marketplace listing. It is built once by the extraction
// pipeline and never mutated afterwards.
type Product struct {
	ProductTitle      string           `json:"product_title"`
	ProductURL        string           `json:"product_url"`
	ProductID         string           `json:"product_id"`
	Price             *string          `json:"price"`
	PriceValue        *float64         `json:"price_value,omitempty"`
	Currency          *string          `json:"currency"`
	OriginalPrice     *string          `json:"original_price"`
	DiscountPercent   *int             `json:"discount_percent"`
	Rating            *float64         `json:"rating"`
	NumRatings        *int             `json:"num_ratings"`
	NumOrders         *int             `json:"num_orders"`
	AvailableSKUs     []map[string]any `json:"available_skus"`
	StockAvailability *string          `json:"stock_availability"`
	ImageURLs         []string         `json:"image_urls"`
	ShippingOptions   []ShippingOption `json:"shipping_options"`
	EstimatedDelivery *string          `json:"estimated_delivery"`
	ReturnPolicy      *string          `json:"return_policy"`
	LastScraped       time.Time        `json:"last_scraped"`
}

// ShippingOption is one shipping record scraped off a product page.
type ShippingOption struct {
	Info          string `json:"info"`
	Destination   string `json:"destination,omitempty"`
	Cost          string `json:"cost,omitempty"`
	EstimatedDays string `json:"estimated_days,omitempty"`
}

// IsValid reports whether the product carries the mandatory identity fields.
func (p *Product) IsValid() bool {
	return p.ProductID != "" && p.ProductURL != ""
}

// Seller is a marketplace merchant. The canonical store URL (query string
// stripped) is the dedup key within one crawl run.
type Seller struct {
	SellerName      string     `json:"seller_name"`
	SellerURL       string     `json:"seller_url"`
	SellerRating    *float64   `json:"seller_rating"`
	NumFollowers    *int       `json:"num_followers"`
	StoreLocation   *string    `json:"store_location"`
	SellerBadges    []string   `json:"seller_badges"`
	YearsOnPlatform *int       `json:"years_on_platform"`
	TotalReviews    *int       `json:"total_reviews"`
	Products        []*Product `json:"products"`
}

// ScrapeResult is the root of the seller/product tree for one run.
type ScrapeResult struct {
	Query      string    `json:"query"`
	ScrapeTime time.Time `json:"scrape_time"`
	Suppliers  []*Seller `json:"suppliers"`
}

func NewScrapeResult(query string) *ScrapeResult {
	return &ScrapeResult{
		Query:      query,
		ScrapeTime: time.Now(),
		Suppliers:  make([]*Seller, 0),
	}
}

// Preview is the ephemeral discovery-stage grouping of a seller with its
// candidate product URLs. Consumed immediately by the crawl scheduler.
type Preview struct {
	SellerName  string
	SellerURL   string
	ProductURLs []string
}
