package content

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}
}

func newTestService(t *testing.T, rt roundTripFunc) *Service {
	t.Helper()
	client, err := backend.NewClient("http://backend.test", backend.WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)
	svc, err := NewService(client, nil)
	require.NoError(t, err)
	return svc
}

func TestPostsSendsPageSizeAndFilters(t *testing.T) {
	var query string
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		query = req.URL.RawQuery
		return respond(http.StatusOK, `{"count":11,"next":"http://backend.test/api/content/posts/?page=2","results":[{"slug":"hello","title":"Hello","tags":["news"],"published_at":"2025-02-03T10:00:00Z"}]}`), nil
	})

	page := svc.Posts(context.Background(), 1, Query{Tag: "news", Search: " lamp "})

	assert.Equal(t, "page=1&page_size=10&search=lamp&tag=news", query)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "03.02.2025", page.Items[0].PublishedLabel())
	require.NotNil(t, page.NextPage)
	assert.Equal(t, 2, *page.NextPage)
}

func TestPostsFailureIsEmpty(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusInternalServerError, `{}`), nil
	})
	page := svc.Posts(context.Background(), 1, Query{})
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextPage)
}

func TestPostNotFoundIsNil(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusNotFound, `{"detail":"Not found."}`), nil
	})
	post, err := svc.Post(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestPostDecodesBody(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/content/posts/hello/", req.URL.Path)
		return respond(http.StatusOK, `{"slug":"hello","title":"Hello","summary":"","meta_description":"About hello","body":"<p>Hi</p>"}`), nil
	})
	post, err := svc.Post(context.Background(), "hello")
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "<p>Hi</p>", post.Body)
	assert.Equal(t, "About hello", post.Teaser())
	assert.Equal(t, "Hello", post.SEOTitle())
	assert.Equal(t, "Draft", post.PublishedLabel())
	assert.Equal(t, []string{}, post.Tags)
}

func TestSEODescriptionFallback(t *testing.T) {
	p := PostSummary{PublishedAt: &time.Time{}}
	assert.Equal(t, "Shopster", p.SEODescription("Shopster"))
	assert.Equal(t, "Draft", p.PublishedLabel())
}
