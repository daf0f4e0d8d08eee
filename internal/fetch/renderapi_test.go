package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renderEndpoint = "https://render.example.com/scrape"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRenderBackend(t *testing.T) *RenderAPIBackend {
	t.Helper()
	backend, err := NewRenderAPIBackend(RenderAPIOptions{
		Endpoint: renderEndpoint,
		APIKey:   "test-key",
		Country:  "us",
		Timeout:  5 * time.Second,
	}, testLogger())
	require.NoError(t, err)
	httpmock.ActivateNonDefault(backend.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return backend
}

func TestNewRenderAPIBackendRequiresKey(t *testing.T) {
	_, err := NewRenderAPIBackend(RenderAPIOptions{Endpoint: renderEndpoint}, testLogger())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestRenderAPIFetch(t *testing.T) {
	backend := newTestRenderBackend(t)

	httpmock.RegisterResponder(http.MethodGet, renderEndpoint,
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			assert.Equal(t, "https://www.aliexpress.com/item/1005001111111111.html", q.Get("url"))
			assert.Equal(t, "true", q.Get("render_js"))
			assert.Equal(t, "1500", q.Get("rendering_wait"))
			assert.Equal(t, "us", q.Get("country"))
			assert.Equal(t, "test-key", req.Header.Get("x-api-key"))

			return httpmock.NewJsonResponse(200, map[string]any{
				"status_code": 200,
				"content":     "<html><body>ok</body></html>",
				"url":         "https://www.aliexpress.com/item/1005001111111111.html",
			})
		})

	sess := &Session{UserAgent: "test-agent"}
	content, err := backend.Fetch(context.Background(), sess, Request{
		URL:      "https://www.aliexpress.com/item/1005001111111111.html",
		RenderJS: true,
		WaitMs:   1500,
	})
	require.NoError(t, err)

	assert.Equal(t, 200, content.StatusCode)
	assert.Equal(t, "<html><body>ok</body></html>", content.Body)
}

func TestRenderAPIFetchUpstreamNon2xxIsNotAnError(t *testing.T) {
	backend := newTestRenderBackend(t)

	// The render service succeeded; the target site answered 404. That is
	// page content, not a transport failure.
	httpmock.RegisterResponder(http.MethodGet, renderEndpoint,
		httpmock.NewJsonResponderOrPanic(200, map[string]any{
			"status_code": 404,
			"content":     "<html><body>not found</body></html>",
		}))

	content, err := backend.Fetch(context.Background(), &Session{}, Request{URL: "https://example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, 404, content.StatusCode)
	assert.Equal(t, "https://example.com/x", content.FinalURL)
}

func TestRenderAPIFetchServiceFailure(t *testing.T) {
	backend := newTestRenderBackend(t)

	httpmock.RegisterResponder(http.MethodGet, renderEndpoint,
		httpmock.NewStringResponder(500, "internal error"))

	_, err := backend.Fetch(context.Background(), &Session{}, Request{URL: "https://example.com/x"})
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "https://example.com/x", fe.URL)
}

func TestRenderAPIFetchBadPayload(t *testing.T) {
	backend := newTestRenderBackend(t)

	httpmock.RegisterResponder(http.MethodGet, renderEndpoint,
		httpmock.NewStringResponder(200, "not json"))

	_, err := backend.Fetch(context.Background(), &Session{}, Request{URL: "https://example.com/x"})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
}

func TestSessionManagerDefaults(t *testing.T) {
	m := NewSessionManager(nil, "")
	sess := m.Acquire()
	defer m.Release(sess)

	assert.NotEmpty(t, sess.UserAgent)
	assert.Contains(t, DefaultUserAgents(), sess.UserAgent)
}
