package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	productIDRe = regexp.MustCompile(`(?:/item/|^item/)(\d{10,})`)
	storeIDRe   = regexp.MustCompile(`/store/(\d+)`)
	countRe     = regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d+)?)\s*([KM])?`)
	ratingRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(%|/\s*5)?`)
	priceNumRe  = regexp.MustCompile(`(\d+(?:,\d{3})*(?:[.,]\d{1,2})?)`)
)

// ParseProductID extracts the marketplace product ID (a digit run of at least
// ten) from an item URL. Returns "" when the URL does not match.
func ParseProductID(url string) string {
	m := productIDRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseStoreID extracts the numeric store ID from a store URL.
func ParseStoreID(url string) string {
	m := storeIDRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseCount parses digit groups like "1,234 sold", "2.5K reviews" or
// "3M followers". K and M multiply by 1e3 and 1e6, case-insensitive.
func ParseCount(text string) (int, bool) {
	m := countRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	num := strings.ReplaceAll(m[1], ",", "")
	val, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToUpper(m[2]) {
	case "K":
		val *= 1_000
	case "M":
		val *= 1_000_000
	}
	return int(val), true
}

// ParseRating normalizes a rating candidate onto the 0..5 scale. Percentages
// up to 100 are divided by 20; anything out of range after rescale is
// rejected.
func ParseRating(text string) (float64, bool) {
	m := ratingRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if strings.HasPrefix(m[2], "%") || (m[2] == "" && val > 5 && val <= 100) {
		val /= 20
	}
	if val < 0 || val > 5 {
		return 0, false
	}
	return val, true
}

// currencyMarkers maps explicit markers found in price text to ISO codes,
// checked in order so longer markers win.
var currencyMarkers = []struct {
	marker string
	code   string
}{
	{"AU $", "AUD"},
	{"AU$", "AUD"},
	{"AUD", "AUD"},
	{"US $", "USD"},
	{"US$", "USD"},
	{"USD", "USD"},
	{"EUR", "EUR"},
	{"GBP", "GBP"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"$", "USD"},
}

// ParsePrice pulls the numeric amount and currency out of a raw price string.
// Currency falls back to defaultCurrency when no explicit marker is present.
func ParsePrice(text, defaultCurrency string) (float64, string, bool) {
	m := priceNumRe.FindStringSubmatch(text)
	if m == nil {
		return 0, "", false
	}

	num := m[1]
	// A trailing comma group of one or two digits is a decimal separator
	// ("29,99"); three digits is a thousands group ("1,234").
	if i := strings.LastIndex(num, ","); i != -1 && len(num)-i-1 <= 2 {
		num = num[:i] + "." + num[i+1:]
	}
	num = strings.ReplaceAll(num, ",", "")
	val, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, "", false
	}

	currency := defaultCurrency
	upper := strings.ToUpper(text)
	for _, cm := range currencyMarkers {
		if strings.Contains(upper, strings.ToUpper(cm.marker)) {
			currency = cm.code
			break
		}
	}
	return val, currency, true
}

// looksLikePrice is the sanity filter for price candidates: a currency symbol
// or a price-like numeric token must be present.
func looksLikePrice(text string) bool {
	if strings.ContainsAny(text, "$€£") {
		return strings.ContainsAny(text, "0123456789")
	}
	return priceNumRe.MatchString(text)
}
