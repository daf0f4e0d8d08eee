package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrMissingAPIKey is returned before any fetch when the render API backend is
// selected without credentials.
var ErrMissingAPIKey = errors.New("render API key is required")

// RenderAPIOptions configures the fetch-as-a-service backend.
type RenderAPIOptions struct {
	Endpoint string
	APIKey   string
	Country  string
	Cookie   string
	Timeout  time.Duration
}

// RenderAPIBackend fetches pages through an HTTP rendering service. The
// service accepts the target URL plus render flags and returns the rendered
// document as JSON.
type RenderAPIBackend struct {
	opts   RenderAPIOptions
	client *http.Client
	logger *slog.Logger
}

type renderAPIResponse struct {
	StatusCode int    `json:"status_code"`
	Content    string `json:"content"`
	URL        string `json:"url"`
}

func NewRenderAPIBackend(opts RenderAPIOptions, logger *slog.Logger) (*RenderAPIBackend, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("render API endpoint is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	return &RenderAPIBackend{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With("component", "render_api_backend"),
	}, nil
}

func (r *RenderAPIBackend) Fetch(ctx context.Context, sess *Session, req Request) (*PageContent, error) {
	q := url.Values{}
	q.Set("url", req.URL)
	q.Set("render_js", strconv.FormatBool(req.RenderJS))
	if req.WaitMs > 0 {
		q.Set("rendering_wait", strconv.Itoa(req.WaitMs))
	}
	if r.opts.Country != "" {
		q.Set("country", r.opts.Country)
	}
	if sess.Proxy != "" {
		q.Set("proxy", sess.Proxy)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.opts.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}

	httpReq.Header.Set("x-api-key", r.opts.APIKey)
	httpReq.Header.Set("user-agent", sess.UserAgent)
	httpReq.Header.Set("accept-language", "en-US,en;q=0.9")
	if r.opts.Cookie != "" {
		httpReq.Header.Set("cookie", r.opts.Cookie)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The service itself failed; treat as transport so retry applies.
		return nil, &FetchError{URL: req.URL, Err: fmt.Errorf("render service status %d", resp.StatusCode)}
	}

	var apiResp renderAPIResponse
	if err := json.Unmarshal(payload, &apiResp); err != nil {
		return nil, &FetchError{URL: req.URL, Err: fmt.Errorf("decode render response: %w", err)}
	}

	finalURL := apiResp.URL
	if finalURL == "" {
		finalURL = req.URL
	}
	status := apiResp.StatusCode
	if status == 0 {
		status = 200
	}

	return &PageContent{
		StatusCode: status,
		Body:       apiResp.Content,
		FinalURL:   finalURL,
	}, nil
}

func (r *RenderAPIBackend) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
