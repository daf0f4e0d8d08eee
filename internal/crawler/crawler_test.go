package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/aliexpress-scraper/internal/antibot"
	"github.com/maltedev/aliexpress-scraper/internal/fetch"
	"github.com/maltedev/aliexpress-scraper/internal/models"
	"github.com/maltedev/aliexpress-scraper/internal/ratelimit"
	"github.com/maltedev/aliexpress-scraper/internal/retry"
)

type routedBackend struct {
	mu     sync.Mutex
	routes map[string]string
	status map[string]int
	errs   map[string]error
	calls  map[string]int
}

func newRoutedBackend() *routedBackend {
	return &routedBackend{
		routes: make(map[string]string),
		status: make(map[string]int),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (b *routedBackend) Fetch(_ context.Context, _ *fetch.Session, req fetch.Request) (*fetch.PageContent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[req.URL]++
	if err, ok := b.errs[req.URL]; ok {
		return nil, err
	}
	body, ok := b.routes[req.URL]
	if !ok {
		body = "<html><body></body></html>"
	}
	status, ok := b.status[req.URL]
	if !ok {
		status = 200
	}
	return &fetch.PageContent{StatusCode: status, Body: body, FinalURL: req.URL}, nil
}

func (b *routedBackend) Close() error { return nil }

const (
	sellerAlphaURL = "https://www.aliexpress.com/store/911111111"
	sellerBetaURL  = "https://www.aliexpress.com/store/922222222"
	productOneURL  = "https://www.aliexpress.com/item/1005001111111111.html"
	productTwoURL  = "https://www.aliexpress.com/item/1005002222222222.html"
	productBetaURL = "https://www.aliexpress.com/item/1005003333333333.html"
)

const sellerHTML = `<html><body>
<span class="score">96%</span>
<div>1.2K Followers</div>
</body></html>`

func productHTML(title string) string {
	return `<html><body><h1>` + title + `</h1><span class="product-price-value">US $9.99</span></body></html>`
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Retry = retry.Config{Retries: 2, Base: 1, Factor: 2, Jitter: 0}
	opts.ProductWaitMs = 0
	opts.SellerWaitMs = 0
	return opts
}

func newTestCrawler(backend fetch.Backend, opts Options) *Crawler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(backend, fetch.NewSessionManager(nil, ""), ratelimit.None{}, NewMetrics(), logger, opts)
}

func previews() []*models.Preview {
	return []*models.Preview{
		{SellerName: "Alpha Trading", SellerURL: sellerAlphaURL, ProductURLs: []string{productOneURL, productTwoURL}},
		{SellerName: "Beta Goods", SellerURL: sellerBetaURL, ProductURLs: []string{productBetaURL}},
	}
}

func sellerByName(t *testing.T, result *models.ScrapeResult, name string) *models.Seller {
	t.Helper()
	for _, s := range result.Suppliers {
		if s.SellerName == name {
			return s
		}
	}
	t.Fatalf("seller %q not in result", name)
	return nil
}

func TestRunCollectsSellersAndProducts(t *testing.T) {
	backend := newRoutedBackend()
	backend.routes[sellerAlphaURL] = sellerHTML
	backend.routes[sellerBetaURL] = sellerHTML
	backend.routes[productOneURL] = productHTML("Wireless Earbuds Pro With Charging Case")
	backend.routes[productTwoURL] = productHTML("Bluetooth Speaker Waterproof Outdoor Edition")
	backend.routes[productBetaURL] = productHTML("USB C Fast Charging Cable Two Meters")

	c := newTestCrawler(backend, testOptions())
	result, err := c.Run(context.Background(), "gadgets", previews())
	require.NoError(t, err)

	assert.Equal(t, "gadgets", result.Query)
	require.Len(t, result.Suppliers, 2)

	alpha := sellerByName(t, result, "Alpha Trading")
	require.Len(t, alpha.Products, 2)
	// Products keep the submission order from discovery.
	assert.Equal(t, productOneURL, alpha.Products[0].ProductURL)
	assert.Equal(t, productTwoURL, alpha.Products[1].ProductURL)
	require.NotNil(t, alpha.SellerRating)
	assert.InDelta(t, 4.8, *alpha.SellerRating, 0.001)

	beta := sellerByName(t, result, "Beta Goods")
	require.Len(t, beta.Products, 1)
	assert.Equal(t, "USB C Fast Charging Cable Two Meters", beta.Products[0].ProductTitle)
}

func TestRunOmitsSellerOnFetchFailure(t *testing.T) {
	backend := newRoutedBackend()
	backend.routes[sellerBetaURL] = sellerHTML
	backend.routes[productBetaURL] = productHTML("USB C Fast Charging Cable Two Meters")
	backend.errs[sellerAlphaURL] = errors.New("connection reset")

	c := newTestCrawler(backend, testOptions())
	result, err := c.Run(context.Background(), "gadgets", previews())
	require.NoError(t, err)

	require.Len(t, result.Suppliers, 1)
	assert.Equal(t, "Beta Goods", result.Suppliers[0].SellerName)
	// The failed fetch was retried before the seller was dropped.
	assert.Equal(t, 2, backend.calls[sellerAlphaURL])
}

func TestRunKeepsSellerWithZeroProducts(t *testing.T) {
	backend := newRoutedBackend()
	backend.routes[sellerAlphaURL] = sellerHTML
	backend.errs[productOneURL] = errors.New("timeout")
	backend.errs[productTwoURL] = errors.New("timeout")

	c := newTestCrawler(backend, testOptions())
	result, err := c.Run(context.Background(), "gadgets", previews()[:1])
	require.NoError(t, err)

	require.Len(t, result.Suppliers, 1)
	assert.Empty(t, result.Suppliers[0].Products)
}

func TestRunSkipsBlockedProductByDefault(t *testing.T) {
	backend := newRoutedBackend()
	backend.routes[sellerAlphaURL] = sellerHTML
	backend.routes[productOneURL] = `<html><body>please solve this captcha</body></html>`
	backend.routes[productTwoURL] = productHTML("Bluetooth Speaker Waterproof Outdoor Edition")

	c := newTestCrawler(backend, testOptions())
	result, err := c.Run(context.Background(), "gadgets", previews()[:1])
	require.NoError(t, err)

	require.Len(t, result.Suppliers, 1)
	require.Len(t, result.Suppliers[0].Products, 1)
	assert.Equal(t, productTwoURL, result.Suppliers[0].Products[0].ProductURL)
}

func TestRunAbortsOnAntibotWhenConfigured(t *testing.T) {
	backend := newRoutedBackend()
	backend.routes[sellerAlphaURL] = sellerHTML
	backend.routes[sellerBetaURL] = sellerHTML
	backend.routes[productOneURL] = `<html><body>unusual traffic detected</body></html>`

	opts := testOptions()
	opts.AbortOnAntibot = true

	c := newTestCrawler(backend, opts)
	_, err := c.Run(context.Background(), "gadgets", previews())
	assert.ErrorIs(t, err, antibot.ErrDetected)
}

func TestRunSkipsProductOnErrorStatus(t *testing.T) {
	backend := newRoutedBackend()
	backend.routes[sellerAlphaURL] = sellerHTML
	backend.routes[productOneURL] = "page not found"
	backend.status[productOneURL] = 404
	backend.routes[productTwoURL] = productHTML("Bluetooth Speaker Waterproof Outdoor Edition")

	c := newTestCrawler(backend, testOptions())
	result, err := c.Run(context.Background(), "gadgets", previews()[:1])
	require.NoError(t, err)

	require.Len(t, result.Suppliers, 1)
	// The 404 body never reaches extraction, so no product is synthesized
	// from the URL alone.
	require.Len(t, result.Suppliers[0].Products, 1)
	assert.Equal(t, productTwoURL, result.Suppliers[0].Products[0].ProductURL)
}

func TestRunSkipsSellerOnErrorStatus(t *testing.T) {
	backend := newRoutedBackend()
	backend.routes[sellerAlphaURL] = "internal server error"
	backend.status[sellerAlphaURL] = 500
	backend.routes[sellerBetaURL] = sellerHTML
	backend.routes[productBetaURL] = productHTML("USB C Fast Charging Cable Two Meters")

	c := newTestCrawler(backend, testOptions())
	result, err := c.Run(context.Background(), "gadgets", previews())
	require.NoError(t, err)

	require.Len(t, result.Suppliers, 1)
	assert.Equal(t, "Beta Goods", result.Suppliers[0].SellerName)
	// Error pages are content, not transport failures, so no retry happens
	// and none of the seller's products are fetched.
	assert.Equal(t, 1, backend.calls[sellerAlphaURL])
	assert.Zero(t, backend.calls[productOneURL])
}

func TestRunCapsProductsPerSeller(t *testing.T) {
	backend := newRoutedBackend()
	backend.routes[sellerAlphaURL] = sellerHTML
	backend.routes[productOneURL] = productHTML("Wireless Earbuds Pro With Charging Case")
	backend.routes[productTwoURL] = productHTML("Bluetooth Speaker Waterproof Outdoor Edition")

	opts := testOptions()
	opts.MaxProductsPerSeller = 1

	c := newTestCrawler(backend, opts)
	result, err := c.Run(context.Background(), "gadgets", previews()[:1])
	require.NoError(t, err)

	require.Len(t, result.Suppliers, 1)
	require.Len(t, result.Suppliers[0].Products, 1)
	assert.Equal(t, productOneURL, result.Suppliers[0].Products[0].ProductURL)
	assert.Zero(t, backend.calls[productTwoURL])
}
