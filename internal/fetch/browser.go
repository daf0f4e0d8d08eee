package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// BrowserOptions configures the playwright-backed fetcher.
type BrowserOptions struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	Locale         string
	Cookie         string
	ExtraHeaders   map[string]string
}

func DefaultBrowserOptions() *BrowserOptions {
	return &BrowserOptions{
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1366,
		ViewportHeight: 900,
		AcceptLanguage: "en-US,en;q=0.9",
		Locale:         "en-US",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br",
			"DNT":             "1",
		},
	}
}

// BrowserBackend drives a headless Chromium via playwright. Each fetch opens a
// fresh browser context bound to the session's user-agent.
type BrowserBackend struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    *BrowserOptions
	logger  *slog.Logger
}

func NewBrowserBackend(opts *BrowserOptions, logger *slog.Logger) (*BrowserBackend, error) {
	if opts == nil {
		opts = DefaultBrowserOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &BrowserBackend{
		pw:      pw,
		browser: browser,
		opts:    opts,
		logger:  logger.With("component", "browser_backend"),
	}, nil
}

func (b *BrowserBackend) Fetch(ctx context.Context, sess *Session, req Request) (*PageContent, error) {
	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &sess.UserAgent,
		Locale:            &b.opts.Locale,
		JavaScriptEnabled: playwright.Bool(req.RenderJS),
		Viewport: &playwright.Size{
			Width:  b.opts.ViewportWidth,
			Height: b.opts.ViewportHeight,
		},
		ExtraHttpHeaders: b.mergeHeaders(req.Headers),
	}
	if sess.Proxy != "" {
		contextOpts.Proxy = &playwright.Proxy{Server: sess.Proxy}
	}

	bctx, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}
	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))

	resp, err := page.Goto(req.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.opts.Timeout.Milliseconds())),
	})
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}

	if req.WaitMs > 0 {
		select {
		case <-ctx.Done():
			return nil, &FetchError{URL: req.URL, Err: ctx.Err()}
		case <-time.After(time.Duration(req.WaitMs) * time.Millisecond):
		}
	}

	body, err := page.Content()
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}

	status := 200
	if resp != nil {
		status = resp.Status()
	}

	return &PageContent{
		StatusCode: status,
		Body:       body,
		FinalURL:   page.URL(),
	}, nil
}

func (b *BrowserBackend) mergeHeaders(extra map[string]string) map[string]string {
	merged := make(map[string]string, len(b.opts.ExtraHeaders)+len(extra)+2)
	for k, v := range b.opts.ExtraHeaders {
		merged[k] = v
	}
	if b.opts.AcceptLanguage != "" {
		merged["Accept-Language"] = b.opts.AcceptLanguage
	}
	if b.opts.Cookie != "" {
		merged["Cookie"] = b.opts.Cookie
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func (b *BrowserBackend) Close() error {
	var errs []error

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
