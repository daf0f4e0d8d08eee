package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStoreRef(t *testing.T) {
	page, err := NewPage(productURL, `<html><body>
<a href="//www.aliexpress.com/store/912345678?spm=a2g0o.detail">Gadget World Official</a>
</body></html>`)
	require.NoError(t, err)

	ref, ok := ExtractStoreRef(page)
	require.True(t, ok)
	assert.Equal(t, "Gadget World Official", ref.Name)
	assert.Equal(t, "https://www.aliexpress.com/store/912345678", ref.URL)
}

func TestExtractStoreRefFromScriptFallback(t *testing.T) {
	page, err := NewPage(productURL, `<html><body>
<script>{"sellerId":"912345678"}</script>
</body></html>`)
	require.NoError(t, err)

	ref, ok := ExtractStoreRef(page)
	require.True(t, ok)
	assert.Equal(t, "Store 912345678", ref.Name)
	assert.Equal(t, "https://www.aliexpress.com/store/912345678", ref.URL)
}

func TestExtractStoreRefMissing(t *testing.T) {
	page, err := NewPage(productURL, `<html><body><p>no store here</p></body></html>`)
	require.NoError(t, err)

	_, ok := ExtractStoreRef(page)
	assert.False(t, ok)
}

func TestExtractSeller(t *testing.T) {
	html := `<html><body>
<span class="score">97.5%</span>
<div>2.3K Followers</div>
<div>Guangzhou, China</div>
<div>5 Years on platform</div>
<div>8,421 Reviews</div>
<div class="store-badges"><span class="badge">Top Brand</span></div>
</body></html>`

	seller, err := ExtractSeller("Gadget World Official", "https://www.aliexpress.com/store/912345678", html)
	require.NoError(t, err)

	assert.Equal(t, "Gadget World Official", seller.SellerName)
	assert.Equal(t, "https://www.aliexpress.com/store/912345678", seller.SellerURL)

	require.NotNil(t, seller.SellerRating)
	assert.InDelta(t, 4.875, *seller.SellerRating, 0.001)
	require.NotNil(t, seller.NumFollowers)
	assert.Equal(t, 2300, *seller.NumFollowers)
	require.NotNil(t, seller.StoreLocation)
	assert.Contains(t, *seller.StoreLocation, "China")
	require.NotNil(t, seller.YearsOnPlatform)
	assert.Equal(t, 5, *seller.YearsOnPlatform)
	require.NotNil(t, seller.TotalReviews)
	assert.Equal(t, 8421, *seller.TotalReviews)
	assert.Equal(t, []string{"Top Brand"}, seller.SellerBadges)
	assert.Empty(t, seller.Products)
}

func TestCanonicalURL(t *testing.T) {
	assert.Equal(t, "https://www.aliexpress.com/store/912345678",
		CanonicalURL("https://www.aliexpress.com/store/912345678?spm=a2g0o#feedback"))
	assert.Equal(t, "https://www.aliexpress.com/store/912345678",
		CanonicalURL("https://www.aliexpress.com/store/912345678"))
}

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		name     string
		href     string
		expected string
	}{
		{"absolute stays", "https://www.aliexpress.com/item/1005006789012345.html", "https://www.aliexpress.com/item/1005006789012345.html"},
		{"protocol relative", "//www.aliexpress.com/store/1", "https://www.aliexpress.com/store/1"},
		{"path relative", "/item/1005006789012345.html", "https://www.aliexpress.com/item/1005006789012345.html"},
		{"empty", "", ""},
		{"javascript link dropped", "javascript:void(0)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AbsoluteURL(tt.href))
		})
	}
}
