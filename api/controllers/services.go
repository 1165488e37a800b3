package controllers

import (
	"context"

	"github.com/angelmondragon/shopster-storefront/internal/admin"
	"github.com/angelmondragon/shopster-storefront/internal/cart"
	"github.com/angelmondragon/shopster-storefront/internal/catalog"
	"github.com/angelmondragon/shopster-storefront/internal/content"
	"github.com/angelmondragon/shopster-storefront/internal/reviews"
	"github.com/angelmondragon/shopster-storefront/internal/search"
	"github.com/angelmondragon/shopster-storefront/pkg/pagination"
)

// CatalogService serves the home page, the product listing and product detail.
type CatalogService interface {
	Featured(ctx context.Context, limit int) []catalog.Product
	LoadCatalogPage(ctx context.Context, filters catalog.Filters, page int) (*catalog.CatalogPage, error)
	Product(ctx context.Context, slug, accessToken string) (*catalog.Product, error)
}

// ContentService lists and loads blog posts.
type ContentService interface {
	Posts(ctx context.Context, page int, q content.Query) pagination.Page[content.PostSummary]
	Post(ctx context.Context, slug string) (*content.Post, error)
}

// ReviewService lists product reviews and edits the signed-in user's own.
type ReviewService interface {
	List(ctx context.Context, productSlug string, page int, accessToken string) (pagination.Page[reviews.Review], error)
	Create(ctx context.Context, payload reviews.Payload, accessToken string) (*reviews.Review, error)
	Update(ctx context.Context, id int64, payload reviews.UpdatePayload, accessToken string) (*reviews.Review, error)
	Delete(ctx context.Context, id int64, accessToken string) error
}

// CartStores hands out the request-scoped cart store of a visitor.
type CartStores interface {
	ForVisitor(visitorID string) *cart.Store
	ItemCount(ctx context.Context, visitorID string) int
}

// StatsService loads the staff statistics overview.
type StatsService interface {
	Overview(ctx context.Context, accessToken string, q admin.StatsQuery) (*admin.Overview, error)
}

// Searcher queries the hosted product index for the header dropdown.
type Searcher interface {
	Enabled() bool
	Search(ctx context.Context, query string) (search.Result, error)
}

// SitemapRenderer builds sitemap.xml.
type SitemapRenderer interface {
	Render(ctx context.Context) ([]byte, error)
}
