package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/maltedev/aliexpress-scraper/internal/models"
)

// ImageDownloader mirrors product images into <dir>/images/<product_id>/.
// Individual download failures are logged and skipped; a run never fails
// because a CDN object went missing.
type ImageDownloader struct {
	client *http.Client
	dir    string
	max    int
	logger *slog.Logger
}

func NewImageDownloader(dir string, maxPerProduct int, logger *slog.Logger) *ImageDownloader {
	return &ImageDownloader{
		client: &http.Client{Timeout: 30 * time.Second},
		dir:    dir,
		max:    maxPerProduct,
		logger: logger.With("component", "images"),
	}
}

// DownloadAll walks the result tree and returns how many files were written.
func (d *ImageDownloader) DownloadAll(ctx context.Context, result *models.ScrapeResult) (int, error) {
	total := 0
	for _, seller := range result.Suppliers {
		for _, product := range seller.Products {
			n, err := d.downloadProduct(ctx, product)
			total += n
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

func (d *ImageDownloader) downloadProduct(ctx context.Context, p *models.Product) (int, error) {
	urls := p.ImageURLs
	if d.max > 0 && len(urls) > d.max {
		urls = urls[:d.max]
	}
	if len(urls) == 0 {
		return 0, nil
	}

	dir := filepath.Join(d.dir, "images", p.ProductID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create image directory %q: %w", dir, err)
	}

	written := 0
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%02d%s", i+1, extFor(u)))
		if err := d.downloadOne(ctx, u, path); err != nil {
			d.logger.Warn("image download failed", "url", u, "error", err)
			continue
		}
		written++
	}
	return written, nil
}

func (d *ImageDownloader) downloadOne(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func extFor(url string) string {
	switch ext := filepath.Ext(url); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return ext
	default:
		return ".jpg"
	}
}
