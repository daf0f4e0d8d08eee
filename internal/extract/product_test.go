package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productURL = "https://www.aliexpress.com/item/1005006789012345.html"

const productHTML = `<html>
<head>
<title>AliExpress</title>
<meta property="og:title" content="Wireless Bluetooth Earbuds Pro With Charging Case">
<meta property="product:price:amount" content="US $12.99">
<meta property="og:image" content="https://ae01.alicdn.com/kf/front.jpg">
</head>
<body>
<a href="/store/912345678">Gadget World Official</a>
<span class="overview-rating-average">4.8</span>
<span id="j-cnt-review">1,234 Reviews</span>
<span id="j-order-num">5K+ sold</span>
<div class="images-view-item"><img src="https://ae01.alicdn.com/kf/side.jpg"></div>
<div class="images-view-item"><img src="https://ae01.alicdn.com/kf/side.jpg"></div>
<div>Free shipping</div>
<div>Delivery by Sep 20</div>
<div>In stock</div>
<div>Free returns within 15 days</div>
<script>{"currencyCode":"USD","discount":"35"}</script>
</body>
</html>`

func TestExtractProduct(t *testing.T) {
	p, err := ExtractProduct(productURL, productHTML, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "1005006789012345", p.ProductID)
	assert.Equal(t, productURL, p.ProductURL)
	assert.Equal(t, "Wireless Bluetooth Earbuds Pro With Charging Case", p.ProductTitle)

	require.NotNil(t, p.Price)
	assert.Equal(t, "US $12.99", *p.Price)
	require.NotNil(t, p.PriceValue)
	assert.InDelta(t, 12.99, *p.PriceValue, 0.001)
	require.NotNil(t, p.Currency)
	assert.Equal(t, "USD", *p.Currency)

	require.NotNil(t, p.Rating)
	assert.InDelta(t, 4.8, *p.Rating, 0.001)
	require.NotNil(t, p.NumRatings)
	assert.Equal(t, 1234, *p.NumRatings)
	require.NotNil(t, p.NumOrders)
	assert.Equal(t, 5000, *p.NumOrders)

	require.NotNil(t, p.DiscountPercent)
	assert.Equal(t, 35, *p.DiscountPercent)

	// Duplicate image sources collapse.
	assert.Equal(t, []string{
		"https://ae01.alicdn.com/kf/front.jpg",
		"https://ae01.alicdn.com/kf/side.jpg",
	}, p.ImageURLs)

	assert.NotEmpty(t, p.ShippingOptions)
	require.NotNil(t, p.StockAvailability)
	require.NotNil(t, p.ReturnPolicy)
	require.NotNil(t, p.EstimatedDelivery)
	assert.Equal(t, "Sep 20", *p.EstimatedDelivery)

	assert.True(t, p.IsValid())
}

func TestExtractProductTitleFallsBackToHeading(t *testing.T) {
	html := `<html><body><h1>Stainless Steel Water Bottle 750ml Insulated</h1></body></html>`
	p, err := ExtractProduct(productURL, html, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Stainless Steel Water Bottle 750ml Insulated", p.ProductTitle)
}

func TestExtractProductRejectsShortTitles(t *testing.T) {
	html := `<html><body><h1>Earbuds</h1><script>{"productTitle":"Wireless Earbuds With Noise Cancelling"}</script></body></html>`
	p, err := ExtractProduct(productURL, html, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Wireless Earbuds With Noise Cancelling", p.ProductTitle)
}

func TestExtractProductRequiresProductID(t *testing.T) {
	_, err := ExtractProduct("https://www.aliexpress.com/store/912345678", productHTML, DefaultOptions())
	require.Error(t, err)

	var xerr *ExtractionError
	assert.ErrorAs(t, err, &xerr)
}

func TestExtractProductMissingFieldsStayNil(t *testing.T) {
	html := `<html><body><h1>Plain Product Page Without Any Numbers Here</h1></body></html>`
	p, err := ExtractProduct(productURL, html, DefaultOptions())
	require.NoError(t, err)

	assert.Nil(t, p.Price)
	assert.Nil(t, p.Rating)
	assert.Nil(t, p.NumOrders)
	assert.Empty(t, p.ImageURLs)
}
