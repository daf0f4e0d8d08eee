package crawler

import (
	"fmt"
)

// ScraperError is the fatal category: configuration and backend-availability
// failures surfaced immediately, before or instead of a crawl. It is never
// retried.
type ScraperError struct {
	Op  string
	Err error
}

func (e *ScraperError) Error() string {
	return fmt.Sprintf("scraper: %s: %v", e.Op, e.Err)
}

func (e *ScraperError) Unwrap() error {
	return e.Err
}
