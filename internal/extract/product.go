package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/aliexpress-scraper/internal/models"
)

// Strategies are ordered most-structured first: metadata tags, then dedicated
// selectors, then regex over inline script JSON, then regex over visible text.

var (
	scriptTitleRe    = regexp.MustCompile(`"(?:title|productTitle|displayTitle)"\s*:\s*"([^"]{16,300})"`)
	scriptPriceRe    = regexp.MustCompile(`"(?:formattedPrice|formatedAmount|price|currentPrice)"\s*:\s*"([^"]+)"`)
	scriptMinPriceRe = regexp.MustCompile(`"minPrice"\s*:\s*(\d+(?:\.\d+)?)`)
	scriptCurrency   = regexp.MustCompile(`"currencyCode"\s*:\s*"([A-Z]{3})"`)
	scriptRatingRe   = regexp.MustCompile(`"(?:averageStar|averageStarRate|evaluationStar)"\s*:\s*"?(\d(?:\.\d+)?)"?`)
	scriptReviewsRe  = regexp.MustCompile(`"(?:totalValidNum|reviewNum|feedbackCount)"\s*:\s*(\d+)`)
	scriptOrdersRe   = regexp.MustCompile(`"(?:tradeCount|salesCount|orderNum)"\s*:\s*"?([\d,.]+[KMkm]?\+?)"?`)
	scriptDiscountRe = regexp.MustCompile(`"discount"\s*:\s*"?(\d{1,2})"?`)

	textRatingRe  = regexp.MustCompile(`(?i)(\d\.\d)\s*(?:stars?|rating|out\s+of\s+5)`)
	textReviewsRe = regexp.MustCompile(`(?i)([\d,.]+\s*[KM]?)\s*(?:reviews?|ratings?)`)
	textOrdersRe  = regexp.MustCompile(`(?i)([\d,.]+\s*[KM]?)\s*\+?\s*(?:sold|orders?|pieces?)`)
	textPriceRe   = regexp.MustCompile(`(?:AU\s*|US\s*)?[$€£]\s*\d+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?\s*(?:AUD|USD|EUR|GBP)`)

	stockRe  = regexp.MustCompile(`(?i)\b(?:in stock|only \d+ left|\d+\s*(?:pieces?|items?)\s*available)\b`)
	returnRe = regexp.MustCompile(`(?i)\b(?:free returns?|\d+[-\s]?days?\s*(?:buyer protection|returns?)|returns?\s*within\s*\d+\s*days?)\b`)
	deliv    = regexp.MustCompile(`(?i)delivery\s*(?:by|on)?\s*([A-Z][a-z]{2}\s*\d{1,2}(?:\s*[-–]\s*[A-Z][a-z]{2}\s*\d{1,2})?)`)

	titleStoplist = []string{"aliexpress", "buy ", "cheap", "global", "free shipping -"}
)

// ExtractProduct maps fetched product-page content onto a Product. Every
// field is independently optional; only an unparseable document errors.
func ExtractProduct(url, html string, opts Options) (*models.Product, error) {
	page, err := NewPage(url, html)
	if err != nil {
		return nil, err
	}

	p := &models.Product{
		ProductURL:  url,
		ProductID:   ParseProductID(url),
		ImageURLs:   make([]string, 0),
		LastScraped: time.Now(),
	}
	if p.ProductID == "" {
		return nil, &ExtractionError{URL: url, Err: fmt.Errorf("no product id in url")}
	}

	p.ProductTitle = extractTitle(page, opts)
	extractPricing(page, p, opts)
	p.Rating = extractRating(page)
	p.NumRatings = extractReviewCount(page)
	p.NumOrders = extractOrderCount(page)
	p.ImageURLs = extractImages(page, opts)
	p.ShippingOptions = extractShipping(page)
	p.StockAvailability = matchText(page, stockRe)
	p.ReturnPolicy = matchText(page, returnRe)
	if m := deliv.FindStringSubmatch(page.text); m != nil {
		v := strings.TrimSpace(m[1])
		p.EstimatedDelivery = &v
	}

	return p, nil
}

func extractTitle(page *Page, opts Options) string {
	accept := func(c string) bool {
		if len(c) < opts.MinTitleLen {
			return false
		}
		lower := strings.ToLower(c)
		for _, skip := range titleStoplist {
			if strings.Contains(lower, skip) {
				return false
			}
		}
		return true
	}

	title, _ := firstMatch(page, accept, []strategy{
		{"meta_og_title", func(p *Page) []string {
			return selectorAttrs(p, "content", `meta[property="og:title"]`)
		}},
		{"heading", func(p *Page) []string {
			return selectorTexts(p, "h1[data-pl]", "h1.product-title-text", "[data-role='product-title']", "h1")
		}},
		{"script_json", func(p *Page) []string {
			var out []string
			for _, script := range p.scripts {
				for _, m := range scriptTitleRe.FindAllStringSubmatch(script, 4) {
					out = append(out, m[1])
				}
			}
			return out
		}},
		{"document_title", func(p *Page) []string {
			return selectorTexts(p, "title")
		}},
	})
	return title
}

func extractPricing(page *Page, p *models.Product, opts Options) {
	raw, ok := firstMatch(page, looksLikePrice, []strategy{
		{"meta_price", func(pg *Page) []string {
			return selectorAttrs(pg, "content",
				`meta[property="product:price:amount"]`, `meta[itemprop="price"]`)
		}},
		{"price_selector", func(pg *Page) []string {
			return selectorTexts(pg,
				".product-price-value", ".price--currentPriceText--V8_y_b5",
				"span.price-current", "span.price-now", ".uniform-banner-box-price")
		}},
		{"script_json", func(pg *Page) []string {
			var out []string
			for _, script := range pg.scripts {
				for _, m := range scriptPriceRe.FindAllStringSubmatch(script, 4) {
					out = append(out, m[1])
				}
				if m := scriptMinPriceRe.FindStringSubmatch(script); m != nil {
					out = append(out, m[1])
				}
			}
			return out
		}},
		{"visible_text", func(pg *Page) []string {
			return textPriceRe.FindAllString(pg.text, 6)
		}},
	})
	if !ok {
		return
	}

	p.Price = &raw
	if val, currency, ok := ParsePrice(raw, opts.DefaultCurrency); ok {
		p.PriceValue = &val
		p.Currency = &currency
	} else {
		currency := opts.DefaultCurrency
		p.Currency = &currency
	}
	// An explicit currencyCode in the page data beats inference from the
	// price text.
	for _, script := range page.scripts {
		if m := scriptCurrency.FindStringSubmatch(script); m != nil {
			p.Currency = &m[1]
			break
		}
	}

	original, ok := firstMatch(page, looksLikePrice, []strategy{
		{"original_price_selector", func(pg *Page) []string {
			return selectorTexts(pg, "del", ".price--originalText--gxVO5_d", ".original-price", ".old-price")
		}},
	})
	if ok && original != *p.Price {
		p.OriginalPrice = &original
	}

	p.DiscountPercent = extractDiscount(page, p)
}

func extractDiscount(page *Page, p *models.Product) *int {
	for _, script := range page.scripts {
		if m := scriptDiscountRe.FindStringSubmatch(script); m != nil {
			if v, ok := ParseCount(m[1]); ok && v > 0 && v < 100 {
				return &v
			}
		}
	}
	if p.PriceValue != nil && p.OriginalPrice != nil {
		if orig, _, ok := ParsePrice(*p.OriginalPrice, ""); ok && orig > *p.PriceValue {
			v := int((1 - *p.PriceValue/orig) * 100)
			if v > 0 && v < 100 {
				return &v
			}
		}
	}
	return nil
}

func extractRating(page *Page) *float64 {
	raw, ok := firstMatch(page, nil, []strategy{
		{"rating_selector", func(pg *Page) []string {
			return selectorTexts(pg,
				"span.overview-rating-average", ".rating--wrap--Ih8HwYP",
				"span.product-reviewer-satisfaction")
		}},
		{"script_json", func(pg *Page) []string {
			var out []string
			for _, script := range pg.scripts {
				if m := scriptRatingRe.FindStringSubmatch(script); m != nil {
					out = append(out, m[1])
				}
			}
			return out
		}},
		{"visible_text", func(pg *Page) []string {
			var out []string
			for _, m := range textRatingRe.FindAllStringSubmatch(pg.text, 4) {
				out = append(out, m[1])
			}
			return out
		}},
	})
	if !ok {
		return nil
	}
	if v, ok := ParseRating(raw); ok {
		return &v
	}
	return nil
}

func extractReviewCount(page *Page) *int {
	return extractCount(page, []strategy{
		{"reviews_selector", func(pg *Page) []string {
			return selectorTexts(pg, "span#j-cnt-review", "a.reviewer--reviews--cx7Zs_V")
		}},
		{"script_json", func(pg *Page) []string {
			var out []string
			for _, script := range pg.scripts {
				if m := scriptReviewsRe.FindStringSubmatch(script); m != nil {
					out = append(out, m[1])
				}
			}
			return out
		}},
		{"visible_text", func(pg *Page) []string {
			var out []string
			for _, m := range textReviewsRe.FindAllStringSubmatch(pg.text, 4) {
				out = append(out, m[1])
			}
			return out
		}},
	})
}

func extractOrderCount(page *Page) *int {
	return extractCount(page, []strategy{
		{"orders_selector", func(pg *Page) []string {
			return selectorTexts(pg, "span#j-order-num", "span.product-reviewer-sold", ".reviewer--sold--ytPeoEy")
		}},
		{"script_json", func(pg *Page) []string {
			var out []string
			for _, script := range pg.scripts {
				if m := scriptOrdersRe.FindStringSubmatch(script); m != nil {
					out = append(out, m[1])
				}
			}
			return out
		}},
		{"visible_text", func(pg *Page) []string {
			var out []string
			for _, m := range textOrdersRe.FindAllStringSubmatch(pg.text, 4) {
				out = append(out, m[1])
			}
			return out
		}},
	})
}

func extractCount(page *Page, strategies []strategy) *int {
	raw, ok := firstMatch(page, func(c string) bool {
		_, ok := ParseCount(c)
		return ok
	}, strategies)
	if !ok {
		return nil
	}
	v, _ := ParseCount(raw)
	return &v
}

func extractImages(page *Page, opts Options) []string {
	candidates := append(
		selectorAttrs(page, "content", `meta[property="og:image"]`),
		selectorAttrs(page, "src",
			".image-view--image--Uu0Ba2D", "div.images-view-item img",
			"img.magnifier--image--EYYoSlr", "div.product-image img")...)
	candidates = append(candidates, selectorAttrs(page, "data-src", "img")...)

	seen := make(map[string]bool)
	images := make([]string, 0, opts.MaxImages)
	for _, src := range candidates {
		if len(images) >= opts.MaxImages {
			break
		}
		if !strings.HasPrefix(src, "https://") || !strings.Contains(src, opts.AssetDomain) {
			continue
		}
		if seen[src] {
			continue
		}
		seen[src] = true
		images = append(images, src)
	}
	return images
}

func extractShipping(page *Page) []models.ShippingOption {
	var opts []models.ShippingOption
	page.doc.Find("div, span, li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		if text == "" || len(text) > 100 {
			return true
		}
		isShipping := strings.Contains(text, "free") && strings.Contains(text, "shipping")
		hasDays := strings.Contains(text, "day") && strings.ContainsAny(text, "0123456789")
		if isShipping || hasDays {
			opts = append(opts, models.ShippingOption{Info: text})
		}
		return len(opts) < 3
	})
	return opts
}

func matchText(page *Page, re *regexp.Regexp) *string {
	if m := re.FindString(page.text); m != "" {
		v := strings.TrimSpace(m)
		return &v
	}
	return nil
}
