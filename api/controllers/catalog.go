package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/shopster-storefront/api/responses"
	"github.com/angelmondragon/shopster-storefront/api/validators"
	"github.com/angelmondragon/shopster-storefront/api/views"
	"github.com/angelmondragon/shopster-storefront/internal/catalog"
	"github.com/angelmondragon/shopster-storefront/internal/reviews"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	featuredProductLimit = 6
	maxReviewPages       = 10
)

type homeData struct {
	Products []catalog.Product
}

// Home renders the landing page with featured products. Catalog failures leave the
// product grid empty.
func Home(svc CatalogService, rdr *views.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products := svc.Featured(r.Context(), featuredProductLimit)
		rdr.Render(w, r, http.StatusOK, "home", newPage(w, r, views.Meta{Path: "/"}, homeData{Products: products}))
	}
}

type catalogData struct {
	*catalog.CatalogPage
	Query url.Values
	Pager views.Pager
}

// Products renders the filtered catalog.
func Products(svc CatalogService, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := catalog.ParseFilters(r.URL.Query())
		page := validators.PageParam(r)

		data, err := svc.LoadCatalogPage(r.Context(), filters, page)
		if err != nil {
			renderError(rdr, logg, w, r, err)
			return
		}

		query := filters.Values()
		meta := views.Meta{
			Title:       "Catalog",
			Description: "Browse the catalog: filter by category, brand, price and availability.",
			Path:        "/products",
		}
		if filters.Search != "" {
			meta.Title = "Search: " + filters.Search
			meta.NoIndex = true
		}
		for _, c := range data.Categories {
			if c.Slug == filters.Category {
				meta.Title = c.MetaTitle
				meta.Description = c.MetaDescription
				meta.Path = "/products?category=" + url.QueryEscape(c.Slug)
				break
			}
		}

		rdr.Render(w, r, http.StatusOK, "products", newPage(w, r, meta, catalogData{
			CatalogPage: data,
			Query:       query,
			Pager:       views.NewPager("/products", query, page, data.Products.NextPage),
		}))
	}
}

type productData struct {
	Product     *catalog.Product
	Reviews     []reviews.Review
	ReviewsMore int
	ReviewsErr  string
	SignedIn    bool
}

// ProductDetail renders one product with its review widget. ?reviews_page=N loads the
// first N review pages.
func ProductDetail(svc CatalogService, reviewSvc ReviewService, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		token := accessToken(r)

		product, err := svc.Product(r.Context(), slug, token)
		if err != nil {
			renderError(rdr, logg, w, r, err)
			return
		}
		if product == nil {
			renderNotFound(rdr, w, r)
			return
		}

		data := productData{Product: product, SignedIn: token != ""}
		pages, err := validators.ParseQueryInt(r, "reviews_page", 1, 1, maxReviewPages)
		if err != nil {
			pages = 1
		}
		for page := 1; page <= pages; page++ {
			result, err := reviewSvc.List(r.Context(), product.Slug, page, token)
			if err != nil {
				responses.LogError(r.Context(), logg, err)
				data.ReviewsErr = responses.PublicMessage(err)
				break
			}
			data.Reviews = reviews.Merge(data.Reviews, result.Items)
			data.ReviewsMore = 0
			if !result.HasMore() {
				break
			}
			data.ReviewsMore = *result.NextPage
		}
		// The author's own review may still be pending and missing from the public list.
		if product.UserReview != nil {
			data.Reviews = reviews.Prepend(data.Reviews, *product.UserReview)
		}

		meta := views.Meta{
			Title:       firstNonEmpty(product.MetaTitle, product.Name),
			Description: firstNonEmpty(product.MetaDescription, product.ShortDescription),
			Keywords:    product.MetaKeywords,
			Path:        "/products/" + product.Slug,
			Type:        "product",
		}
		if img := product.MainImage(); img != nil {
			meta.Image = img.Image
		}
		rdr.Render(w, r, http.StatusOK, "product", newPage(w, r, meta, data))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
