package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/aliexpress-scraper/internal/antibot"
	"github.com/maltedev/aliexpress-scraper/internal/extract"
	"github.com/maltedev/aliexpress-scraper/internal/fetch"
	"github.com/maltedev/aliexpress-scraper/internal/models"
	"github.com/maltedev/aliexpress-scraper/internal/ratelimit"
	"github.com/maltedev/aliexpress-scraper/internal/retry"
)

const searchURLTmpl = "https://www.aliexpress.com/wholesale?trafficChannel=main&d=y&CatId=0&SearchText=%s&ltype=wholesale&SortType=default&page=%d"

// maxSearchPages bounds worst-case fetch volume regardless of the item limit.
const maxSearchPages = 3

// Discoverer paginates search results and groups product previews by seller.
type Discoverer struct {
	backend  fetch.Backend
	sessions *fetch.SessionManager
	limiter  ratelimit.RateLimiter
	retryCfg retry.Config
	logger   *slog.Logger
}

func New(backend fetch.Backend, sessions *fetch.SessionManager, limiter ratelimit.RateLimiter, retryCfg retry.Config, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		backend:  backend,
		sessions: sessions,
		limiter:  limiter,
		retryCfg: retryCfg,
		logger:   logger.With("component", "discovery"),
	}
}

// Discover scans search pages until limit items are processed or maxSuppliers
// unique sellers are collected. Items without a discoverable seller link are
// dropped; product URLs group under the canonical (query-stripped) store URL
// in first-seen order.
func (d *Discoverer) Discover(ctx context.Context, query string, limit, maxSuppliers int) ([]*models.Preview, error) {
	previews := make([]*models.Preview, 0, maxSuppliers)
	byURL := make(map[string]*models.Preview)

	processed := 0
	for pageNum := 1; pageNum <= maxSearchPages; pageNum++ {
		if processed >= limit || len(previews) >= maxSuppliers {
			break
		}
		if pageNum > 1 {
			if err := d.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		searchURL := fmt.Sprintf(searchURLTmpl, url.QueryEscape(query), pageNum)
		d.logger.Info("fetching search page", "page", pageNum, "query", query)

		content, err := retry.Do(ctx, d.retryCfg, func(ctx context.Context) (*fetch.PageContent, error) {
			sess := d.sessions.Acquire()
			defer d.sessions.Release(sess)
			return d.backend.Fetch(ctx, sess, fetch.Request{URL: searchURL, RenderJS: true, WaitMs: 1500})
		})
		if err != nil {
			return nil, err
		}
		if antibot.IsBlocked(content.Body) {
			return nil, antibot.ErrDetected
		}
		if !content.OK() {
			d.logger.Warn("search page returned error status", "page", pageNum, "status", content.StatusCode)
			continue
		}

		items, err := parseSearchItems(searchURL, content.Body)
		if err != nil {
			return nil, err
		}
		d.logger.Info("parsed search page", "page", pageNum, "items", len(items))

		for _, item := range items {
			if processed >= limit {
				break
			}
			processed++

			key := extract.CanonicalURL(item.sellerURL)
			preview, seen := byURL[key]
			if !seen {
				if len(previews) >= maxSuppliers {
					continue
				}
				preview = &models.Preview{
					SellerName:  item.sellerName,
					SellerURL:   key,
					ProductURLs: []string{},
				}
				byURL[key] = preview
				previews = append(previews, preview)
			}
			if !contains(preview.ProductURLs, item.productURL) {
				preview.ProductURLs = append(preview.ProductURLs, item.productURL)
			}
		}
	}

	if len(previews) > maxSuppliers {
		previews = previews[:maxSuppliers]
	}
	return previews, nil
}

type searchItem struct {
	productURL string
	sellerName string
	sellerURL  string
}

// parseSearchItems pulls (product URL, seller link) pairs out of a search
// results page. Result cards without a store link cannot be attributed to a
// seller and are skipped.
func parseSearchItems(pageURL, html string) ([]searchItem, error) {
	page, err := extract.NewPage(pageURL, html)
	if err != nil {
		return nil, err
	}
	doc := page.Doc()

	var items []searchItem
	seen := make(map[string]bool)

	cards := doc.Find(".search-item-card-wrapper-gallery, [data-widget-cid] article, .list--gallery--C2f2tvm > div")
	if cards.Length() == 0 {
		// Sparse markup; walk the item anchors and look for a store link
		// in the enclosing card.
		doc.Find(`a[href*="/item/"]`).Each(func(_ int, anchor *goquery.Selection) {
			item, ok := itemFromAnchor(anchor)
			if ok && !seen[item.productURL] {
				seen[item.productURL] = true
				items = append(items, item)
			}
		})
		return items, nil
	}

	cards.Each(func(_ int, card *goquery.Selection) {
		productHref, ok := card.Find(`a[href*="/item/"]`).First().Attr("href")
		if !ok {
			if h, selfOK := card.Attr("href"); selfOK {
				productHref = h
			} else {
				return
			}
		}
		productURL := extract.AbsoluteURL(productHref)
		if productURL == "" || extract.ParseProductID(productURL) == "" {
			return
		}

		sellerLink := card.Find(`a[href*="/store/"]`).First()
		sellerHref, ok := sellerLink.Attr("href")
		if !ok {
			return
		}
		sellerURL := extract.AbsoluteURL(sellerHref)
		if sellerURL == "" {
			return
		}

		name := trimmedText(sellerLink)
		if name == "" {
			name = "Unknown Seller"
		}

		if !seen[productURL] {
			seen[productURL] = true
			items = append(items, searchItem{
				productURL: productURL,
				sellerName: name,
				sellerURL:  sellerURL,
			})
		}
	})

	return items, nil
}

// itemFromAnchor climbs a few ancestors of an item link looking for the
// sibling store link.
func itemFromAnchor(anchor *goquery.Selection) (searchItem, bool) {
	href, ok := anchor.Attr("href")
	if !ok {
		return searchItem{}, false
	}
	productURL := extract.AbsoluteURL(href)
	if productURL == "" || extract.ParseProductID(productURL) == "" {
		return searchItem{}, false
	}

	node := anchor
	for depth := 0; depth < 4; depth++ {
		node = node.Parent()
		if node.Length() == 0 {
			break
		}
		sellerLink := node.Find(`a[href*="/store/"]`).First()
		if sellerHref, ok := sellerLink.Attr("href"); ok {
			sellerURL := extract.AbsoluteURL(sellerHref)
			if sellerURL == "" {
				return searchItem{}, false
			}
			name := trimmedText(sellerLink)
			if name == "" {
				name = "Unknown Seller"
			}
			return searchItem{productURL: productURL, sellerName: name, sellerURL: sellerURL}, true
		}
	}
	return searchItem{}, false
}

func trimmedText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
