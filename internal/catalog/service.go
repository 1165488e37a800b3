package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	"github.com/angelmondragon/shopster-storefront/pkg/cache"
	"github.com/angelmondragon/shopster-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/angelmondragon/shopster-storefront/pkg/pagination"
	"golang.org/x/sync/errgroup"
)

const (
	// PageSize is the catalog listing page size.
	PageSize = 12

	productsPath   = "/api/products/"
	facetsPath     = "/api/products/facets/"
	categoriesPath = "/api/categories/"
)

// Service reads catalog data from the backend.
type Service struct {
	client *backend.Client
	cache  *cache.Loader
	ttl    config.CacheConfig
	logg   *logger.Logger
}

// NewService builds the catalog service. cache may be nil.
func NewService(client *backend.Client, loader *cache.Loader, ttl config.CacheConfig, logg *logger.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &Service{client: client, cache: loader, ttl: ttl, logg: logg}, nil
}

// ProductsPage returns one page of the filtered catalog. Failures yield an empty page.
func (s *Service) ProductsPage(ctx context.Context, filters Filters, page, pageSize int) pagination.Page[Product] {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	params := pagination.Params{Page: page, PageSize: pageSize, Query: filters.Query()}
	fetch := func(ctx context.Context) (pagination.Page[Product], error) {
		return backend.FetchPage[Product](ctx, s.client, "products.list", productsPath, params, "")
	}

	var (
		result pagination.Page[Product]
		err    error
	)
	if params.HasFilters() {
		result, err = fetch(ctx)
	} else {
		key := s.cache.Key("products", strconv.Itoa(pagination.NormalizePage(page)), strconv.Itoa(pageSize))
		result, err = cache.Load(ctx, s.cache, key, s.ttl.ProductsTTL, fetch)
	}
	if err != nil {
		s.logError(ctx, "failed to fetch products page", err)
		return pagination.Empty[Product]()
	}
	return result
}

// Featured returns the first limit products for the home page.
func (s *Service) Featured(ctx context.Context, limit int) []Product {
	if limit <= 0 {
		limit = 6
	}
	return s.ProductsPage(ctx, Filters{}, 1, limit).Items
}

// Product loads one product by slug. A non-2xx response yields nil without error.
func (s *Service) Product(ctx context.Context, slug, accessToken string) (*Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	resp, err := s.client.Do(ctx, backend.Request{
		Path:        productsPath + url.PathEscape(slug) + "/",
		AccessToken: accessToken,
		Operation:   "products.get",
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, nil
	}
	var product Product
	if err := json.Unmarshal(resp.Body, &product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product")
	}
	return &product, nil
}

// Facets returns the brand and price facets for query. Failures yield empty facets.
func (s *Service) Facets(ctx context.Context, query map[string]string) Facets {
	values := url.Values{}
	for k, v := range query {
		if v != "" {
			values.Set(k, v)
		}
	}
	key := s.cache.Key("facets", values.Encode())
	facets, err := cache.Load(ctx, s.cache, key, s.ttl.FacetsTTL, func(ctx context.Context) (Facets, error) {
		var raw Facets
		if err := s.client.GetJSON(ctx, "products.facets", facetsPath, values, "", &raw); err != nil {
			return Facets{}, err
		}
		brands := make([]BrandFacet, 0, len(raw.Brands))
		for _, b := range raw.Brands {
			if b.Name != "" {
				brands = append(brands, b)
			}
		}
		raw.Brands = brands
		return raw, nil
	})
	if err != nil {
		s.logWarn(ctx, "facets endpoint unavailable", err)
		return Facets{Brands: []BrandFacet{}}
	}
	return facets
}

type rawCategory struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	Description     *string `json:"description"`
	MetaTitle       *string `json:"meta_title"`
	MetaDescription *string `json:"meta_description"`
	IsActive        *bool   `json:"is_active"`
}

// Categories returns active categories with SEO defaults applied. Failures yield an
// empty list.
func (s *Service) Categories(ctx context.Context) []Category {
	key := s.cache.Key("categories")
	categories, err := cache.Load(ctx, s.cache, key, s.ttl.CategoriesTTL, func(ctx context.Context) ([]Category, error) {
		page, err := backend.FetchPage[rawCategory](ctx, s.client, "categories.list", categoriesPath, pagination.Params{PageSize: pagination.MaxPageSize}, "")
		if err != nil {
			return nil, err
		}
		return normalizeCategories(page.Items), nil
	})
	if err != nil {
		s.logError(ctx, "failed to fetch categories", err)
		return []Category{}
	}
	return categories
}

func normalizeCategories(raw []rawCategory) []Category {
	out := make([]Category, 0, len(raw))
	for _, c := range raw {
		if c.Slug == "" || (c.IsActive != nil && !*c.IsActive) {
			continue
		}
		description := deref(c.Description)
		category := Category{
			ID:              c.ID,
			Name:            c.Name,
			Slug:            c.Slug,
			Description:     description,
			MetaTitle:       c.Name,
			MetaDescription: description,
		}
		if c.MetaTitle != nil {
			category.MetaTitle = *c.MetaTitle
		}
		if c.MetaDescription != nil {
			category.MetaDescription = *c.MetaDescription
		}
		out = append(out, category)
	}
	return out
}

// CatalogPage is everything the catalog screen renders.
type CatalogPage struct {
	Filters    Filters
	Products   pagination.Page[Product]
	Categories []Category
	Facets     Facets
}

// LoadCatalogPage fetches products, categories and facets concurrently.
func (s *Service) LoadCatalogPage(ctx context.Context, filters Filters, page int) (*CatalogPage, error) {
	out := &CatalogPage{Filters: filters}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Products = s.ProductsPage(gctx, filters, page, PageSize)
		return nil
	})
	g.Go(func() error {
		out.Categories = s.Categories(gctx)
		return nil
	})
	g.Go(func() error {
		out.Facets = s.Facets(gctx, filters.FacetQuery())
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Warn(s.logg.WithError(ctx, err), msg)
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
