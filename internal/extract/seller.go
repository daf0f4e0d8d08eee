package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/aliexpress-scraper/internal/models"
)

var (
	storeLinkRe     = regexp.MustCompile(`(?:"sellerId"|"storeNum")\s*:\s*"?(\d{6,})"?`)
	scriptStoreName = regexp.MustCompile(`"(?:storeName|sellerName|companyName)"\s*:\s*"([^"]{4,79})"`)

	sellerRatingRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:%|/\s*5)`)
	followersRe     = regexp.MustCompile(`(?i)([\d,.]+\s*[KM]?)\s*followers?`)
	yearsRe         = regexp.MustCompile(`(?i)(\d{1,2})\s*years?`)
	storeReviewsRe  = regexp.MustCompile(`(?i)([\d,.]+\s*[KM]?)\s*(?:reviews?|feedback|ratings?)`)
	locationMarkers = []string{"China", "Hong Kong", "Taiwan", "USA", "United States", "UK", "Germany", "Japan", "South Korea"}

	// Generic or navigational words that disqualify a store-name candidate.
	storeNameStoplist = []string{
		"visit", "store", "shop", "view", "see", "more", "sold by", "seller",
		"follow", "contact", "google", "play", "app", "download", "click", "link",
	}
)

// StoreRef is the store identity recovered from a product page.
type StoreRef struct {
	Name string
	URL  string
}

// ExtractStoreRef finds the canonical store URL and a display name on a
// product page. When no acceptable name is found the name is synthesized from
// the numeric store ID.
func ExtractStoreRef(page *Page) (*StoreRef, bool) {
	storeURL := findStoreURL(page)
	if storeURL == "" {
		return nil, false
	}

	name := findStoreName(page)
	if name == "" {
		if id := ParseStoreID(storeURL); id != "" {
			name = "Store " + id
		} else {
			name = "Unknown Store"
		}
	}

	return &StoreRef{Name: name, URL: CanonicalURL(storeURL)}, true
}

func findStoreURL(page *Page) string {
	hrefs := selectorAttrs(page, "href", `a[href*="/store/"]`)
	for _, href := range hrefs {
		if abs := AbsoluteURL(href); abs != "" {
			return abs
		}
	}
	// No anchor on the page; dig the seller ID out of the embedded data.
	for _, script := range page.scripts {
		if m := storeLinkRe.FindStringSubmatch(script); m != nil {
			return "https://www.aliexpress.com/store/" + m[1]
		}
	}
	return ""
}

func findStoreName(page *Page) string {
	name, _ := firstMatch(page, acceptStoreName, []strategy{
		{"store_link_text", func(p *Page) []string {
			return selectorTexts(p, `a[href*="/store/"]`)
		}},
		{"store_name_selector", func(p *Page) []string {
			return selectorTexts(p, ".shop-name", ".store-name", ".seller-name", "[data-role='store-name']")
		}},
		{"script_json", func(p *Page) []string {
			var out []string
			for _, script := range p.scripts {
				for _, m := range scriptStoreName.FindAllStringSubmatch(script, 4) {
					out = append(out, m[1])
				}
			}
			return out
		}},
	})
	return name
}

func acceptStoreName(c string) bool {
	if len(c) < 4 || len(c) >= 80 {
		return false
	}
	if strings.TrimFunc(c, func(r rune) bool { return r >= '0' && r <= '9' }) == "" {
		return false
	}
	lower := strings.ToLower(c)
	for _, word := range storeNameStoplist {
		if strings.Contains(lower, word) {
			return false
		}
	}
	return true
}

// ExtractSeller maps fetched store-page content onto a Seller. The name and
// canonical URL come from discovery; the page only enriches the record.
func ExtractSeller(name, url, html string) (*models.Seller, error) {
	page, err := NewPage(url, html)
	if err != nil {
		return nil, err
	}

	s := &models.Seller{
		SellerName:   name,
		SellerURL:    url,
		SellerBadges: make([]string, 0),
		Products:     make([]*models.Product, 0),
	}

	s.SellerRating = extractSellerRating(page)
	s.NumFollowers = extractCount(page, []strategy{
		{"followers_selector", func(p *Page) []string {
			return selectorTexts(p, ".store-followers", "span.follow-num")
		}},
		{"visible_text", func(p *Page) []string {
			var out []string
			for _, m := range followersRe.FindAllStringSubmatch(p.text, 4) {
				out = append(out, m[1])
			}
			return out
		}},
	})
	s.StoreLocation = extractLocation(page)
	s.SellerBadges = extractBadges(page)
	s.YearsOnPlatform = extractCount(page, []strategy{
		{"years_selector", func(p *Page) []string {
			return selectorTexts(p, ".store-years", "span.years")
		}},
		{"visible_text", func(p *Page) []string {
			var out []string
			for _, m := range yearsRe.FindAllStringSubmatch(p.text, 2) {
				out = append(out, m[1])
			}
			return out
		}},
	})
	s.TotalReviews = extractCount(page, []strategy{
		{"reviews_selector", func(p *Page) []string {
			return selectorTexts(p, ".store-reviews-total", "span.total-reviews")
		}},
		{"visible_text", func(p *Page) []string {
			var out []string
			for _, m := range storeReviewsRe.FindAllStringSubmatch(p.text, 4) {
				out = append(out, m[1])
			}
			return out
		}},
	})

	return s, nil
}

func extractSellerRating(page *Page) *float64 {
	raw, ok := firstMatch(page, nil, []strategy{
		{"rating_selector", func(p *Page) []string {
			return selectorTexts(p, ".store-rating-score", "span.score", ".seller-score")
		}},
		{"visible_text", func(p *Page) []string {
			var out []string
			for _, m := range sellerRatingRe.FindAllStringSubmatch(p.text, 5) {
				out = append(out, m[0])
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

func extractLocation(page *Page) *string {
	loc, ok := firstMatch(page, func(c string) bool { return len(c) < 50 }, []strategy{
		{"location_selector", func(p *Page) []string {
			return selectorTexts(p, ".store-location", "span.store-loc", "[data-role='store-location']")
		}},
		{"visible_text", func(p *Page) []string {
			var out []string
			for _, line := range strings.Split(p.text, "\n") {
				line = strings.TrimSpace(line)
				for _, marker := range locationMarkers {
					if strings.Contains(line, marker) {
						out = append(out, line)
						break
					}
				}
			}
			return out
		}},
	})
	if !ok {
		return nil
	}
	return &loc
}

func extractBadges(page *Page) []string {
	badges := make([]string, 0)
	page.doc.Find(".store-badges .badge, .store-badges img[alt]").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			text, _ = s.Attr("alt")
			text = strings.TrimSpace(text)
		}
		if text != "" {
			badges = append(badges, text)
		}
	})
	return badges
}

// CanonicalURL strips the query string and fragment, leaving
// scheme+host+path. Used as the seller dedup key.
func CanonicalURL(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i != -1 {
		raw = raw[:i]
	}
	return raw
}

// AbsoluteURL resolves the protocol-relative and path-relative link forms
// that appear on marketplace pages.
func AbsoluteURL(href string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return "https://www.aliexpress.com" + href
	default:
		return ""
	}
}
