package fetch

import (
	"context"
	"fmt"
)

// Request describes one page fetch. Non-2xx responses are returned to the
// caller in PageContent, not as errors.
type Request struct {
	URL      string
	RenderJS bool
	WaitMs   int
	Headers  map[string]string
}

// PageContent is the outcome of one network round-trip.
type PageContent struct {
	StatusCode int
	Body       string
	FinalURL   string
}

// OK reports whether the page arrived with a 2xx status. Error pages are not
// fetch failures, but their bodies must never reach extraction.
func (p *PageContent) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// Backend performs page fetches. Exactly one implementation is selected at
// startup by configuration and injected into the crawler.
type Backend interface {
	Fetch(ctx context.Context, sess *Session, req Request) (*PageContent, error)
	Close() error
}

// FetchError wraps a transport-level failure (navigation, timeout, broken
// connection). It is the only error kind the retry policy acts on.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
