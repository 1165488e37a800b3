package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	algolia "github.com/algolia/algoliasearch-client-go/v4/algolia/search"
	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/shopster-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

const (
	// MinQueryLength is the shortest query sent to the index.
	MinQueryLength = 2
	// HitsPerPage caps the dropdown.
	HitsPerPage = 5

	defaultTimeout = 5 * time.Second
	breakerName    = "search"
)

// Hit is one product record from the search index.
type Hit struct {
	ObjectID         string  `json:"objectID"`
	Name             string  `json:"name"`
	Slug             string  `json:"slug"`
	Price            float64 `json:"price"`
	Currency         string  `json:"currency"`
	ShortDescription string  `json:"short_description"`
	Category         string  `json:"category"`
	ImageURL         string  `json:"image_url"`
}

// Result is what the search dropdown renders.
type Result struct {
	Query      string `json:"query"`
	Hits       []Hit  `json:"hits"`
	TotalHits  int    `json:"total_hits"`
	AllResults string `json:"all_results_url,omitempty"`
}

type queryFunc func(ctx context.Context, indexName, query string, hitsPerPage int32) (*algolia.SearchResponse, error)

// Client queries the hosted product index through the Algolia SDK, which handles
// host fallback and retries. A breaker stops calls while the index keeps failing.
type Client struct {
	cfg       config.SearchConfig
	query     queryFunc
	breaker   *gobreaker.CircuitBreaker[*algolia.SearchResponse]
	imageBase string
	logg      *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithImageBase resolves relative image paths against the backend origin.
func WithImageBase(base string) Option {
	return func(c *Client) {
		c.imageBase = strings.TrimRight(base, "/")
	}
}

func withQuery(fn queryFunc) Option {
	return func(c *Client) {
		c.query = fn
	}
}

// NewClient builds the search client. Without credentials the client is disabled and
// every search returns an empty result.
func NewClient(cfg config.SearchConfig, logg *logger.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{cfg: cfg, logg: logg}
	for _, opt := range opts {
		opt(c)
	}
	if !cfg.Enabled() {
		c.query = nil
		if logg != nil {
			logg.Warn(context.Background(), "search credentials are missing; search is disabled")
		}
		return c
	}
	if c.query == nil {
		sdk, err := algolia.NewClient(strings.TrimSpace(cfg.AppID), strings.TrimSpace(cfg.SearchKey))
		if err != nil {
			if logg != nil {
				logg.Error(context.Background(), "failed to create search client; search is disabled", err)
			}
			return c
		}
		c.query = sdkQuery(sdk)
	}
	c.breaker = gobreaker.NewCircuitBreaker[*algolia.SearchResponse](gobreaker.Settings{
		Name: breakerName,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg == nil {
				return
			}
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "search breaker state changed")
		},
	})
	return c
}

func sdkQuery(sdk *algolia.APIClient) queryFunc {
	return func(ctx context.Context, indexName, query string, hitsPerPage int32) (*algolia.SearchResponse, error) {
		params := algolia.SearchParamsObjectAsSearchParams(
			algolia.NewEmptySearchParamsObject().SetQuery(query).SetHitsPerPage(hitsPerPage),
		)
		return sdk.SearchSingleIndex(
			sdk.NewApiSearchSingleIndexRequest(indexName).WithSearchParams(params),
			algolia.WithContext(ctx),
		)
	}
}

// Enabled reports whether the index is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.query != nil
}

func emptyResult(query string) Result {
	return Result{Query: query, Hits: []Hit{}}
}

// Search returns up to HitsPerPage products matching query. Queries shorter than
// MinQueryLength return an empty result without calling the index.
func (c *Client) Search(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if !c.Enabled() || len([]rune(query)) < MinQueryLength {
		return emptyResult(query), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.breaker.Execute(func() (*algolia.SearchResponse, error) {
		return c.query(ctx, c.cfg.IndexName, query, HitsPerPage)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return emptyResult(query), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search temporarily unavailable")
		}
		return emptyResult(query), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search unavailable")
	}
	if resp == nil {
		return emptyResult(query), nil
	}

	out := Result{Query: query, Hits: make([]Hit, 0, len(resp.Hits))}
	for _, raw := range resp.Hits {
		h, err := decodeHit(raw)
		if err != nil {
			return emptyResult(query), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode search hit")
		}
		h.ImageURL = c.resolveImage(h.ImageURL)
		out.Hits = append(out.Hits, h)
	}
	out.TotalHits = len(out.Hits)
	if total := int(resp.GetNbHits()); total > out.TotalHits {
		out.TotalHits = total
	}
	if len(out.Hits) > 0 {
		out.AllResults = "/products?search=" + url.QueryEscape(query)
	}
	return out, nil
}

// decodeHit maps the index record attributes onto Hit.
func decodeHit(raw algolia.Hit) (Hit, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return Hit{}, err
	}
	var h Hit
	if err := json.Unmarshal(payload, &h); err != nil {
		return Hit{}, err
	}
	return h, nil
}

func (c *Client) resolveImage(raw string) string {
	if raw == "" || strings.HasPrefix(raw, "http") || c.imageBase == "" {
		return raw
	}
	return c.imageBase + "/" + strings.TrimLeft(raw, "/")
}
