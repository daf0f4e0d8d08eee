package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/maltedev/aliexpress-scraper/internal/models"
)

// Writer persists run results under a base directory. File names derive from
// the query slug and the run timestamp, so repeated runs never clobber each
// other.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteJSON serializes the full result document and returns the file path.
func (w *Writer) WriteJSON(result *models.ScrapeResult) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %q: %w", w.dir, err)
	}

	path := filepath.Join(w.dir, fileStem(result)+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return path, nil
}

var csvHeader = []string{
	"seller_name", "seller_url", "product_title", "product_url",
	"product_id", "price", "currency", "rating", "num_ratings", "num_orders",
}

// WriteCSV flattens the result to one row per product and returns the file
// path. Sellers without products contribute no rows.
func (w *Writer) WriteCSV(result *models.ScrapeResult) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %q: %w", w.dir, err)
	}

	path := filepath.Join(w.dir, fileStem(result)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, seller := range result.Suppliers {
		for _, p := range seller.Products {
			record := []string{
				seller.SellerName,
				seller.SellerURL,
				p.ProductTitle,
				p.ProductURL,
				p.ProductID,
				strDeref(p.Price),
				strDeref(p.Currency),
				floatDeref(p.Rating),
				intDeref(p.NumRatings),
				intDeref(p.NumOrders),
			}
			if err := writer.Write(record); err != nil {
				return "", fmt.Errorf("write csv record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("flush csv records: %w", err)
	}
	return path, nil
}

func fileStem(result *models.ScrapeResult) string {
	return Slug(result.Query) + "_" + result.ScrapeTime.Format("20060102_150405")
}

// Slug lowercases the query and replaces filesystem-hostile characters with
// underscores.
func Slug(query string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(query)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "run"
	}
	return s
}

func strDeref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func intDeref(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatDeref(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
