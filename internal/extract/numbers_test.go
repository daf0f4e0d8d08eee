package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProductID(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "canonical item URL",
			url:      "https://www.aliexpress.com/item/1005006789012345.html",
			expected: "1005006789012345",
		},
		{
			name:     "item URL with query string",
			url:      "https://www.aliexpress.com/item/1005006789012345.html?spm=a2g0o.productlist",
			expected: "1005006789012345",
		},
		{
			name:     "relative item path",
			url:      "item/1234567890.html",
			expected: "1234567890",
		},
		{
			name:     "id too short",
			url:      "https://www.aliexpress.com/item/12345.html",
			expected: "",
		},
		{
			name:     "store URL has no product id",
			url:      "https://www.aliexpress.com/store/912345678",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseProductID(tt.url))
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
		ok       bool
	}{
		{"plain number", "1234 sold", 1234, true},
		{"thousands separators", "1,234 sold", 1234, true},
		{"K suffix", "2.5K", 2500, true},
		{"M suffix", "3M", 3000000, true},
		{"lowercase k", "14k orders", 14000, true},
		{"no number", "sold out", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCount(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
		ok       bool
	}{
		{"plain five-scale value", "4.8", 4.8, true},
		{"slash five", "4.8/5", 4.8, true},
		{"percentage rescaled", "95%", 4.75, true},
		{"bare percentage-scale value rescaled", "93", 4.65, true},
		{"percentage above hundred rejected", "107%", 0, false},
		{"bare value above hundred rejected", "107", 0, false},
		{"no number", "great", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRating(tt.text)
			assert.Equal(t, tt.ok, ok, "ok mismatch")
			if tt.ok {
				assert.InDelta(t, tt.expected, got, 0.001)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		value    float64
		currency string
		ok       bool
	}{
		{"dollar sign", "US $12.99", 12.99, "USD", true},
		{"euro symbol", "€8,50", 8.50, "EUR", true},
		{"australian dollar marker first", "AU$30.00", 30.00, "AUD", true},
		{"thousands and decimals", "$1,299.00", 1299.00, "USD", true},
		{"decimal comma only", "29,99", 29.99, "USD", true},
		{"bare number falls back to default currency", "15.50", 15.50, "USD", true},
		{"no digits", "free", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, currency, ok := ParsePrice(tt.text, "USD")
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.value, value, 0.001)
				assert.Equal(t, tt.currency, currency)
			}
		})
	}
}

func TestParseStoreID(t *testing.T) {
	assert.Equal(t, "912345678", ParseStoreID("https://www.aliexpress.com/store/912345678"))
	assert.Equal(t, "", ParseStoreID("https://www.aliexpress.com/item/1005006789012345.html"))
}
