package catalog

import (
	"github.com/angelmondragon/shopster-storefront/internal/reviews"
	"github.com/angelmondragon/shopster-storefront/pkg/types"
)

// ProductImage is one gallery image.
type ProductImage struct {
	ID      int64  `json:"id"`
	Image   string `json:"image"`
	AltText string `json:"alt_text"`
	IsMain  bool   `json:"is_main"`
}

// ProductCategory is the category embedded in a product.
type ProductCategory struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Description     string `json:"description"`
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	IsActive        bool   `json:"is_active"`
}

// ProductSummary is the product snapshot embedded in cart lines.
type ProductSummary struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	SKU              string         `json:"sku"`
	ShortDescription string         `json:"short_description"`
	Price            types.Money    `json:"price"`
	Currency         string         `json:"currency"`
	Stock            int            `json:"stock"`
	Images           []ProductImage `json:"images"`
}

// MainImage returns the image flagged as main, else the first one.
func (p ProductSummary) MainImage() *ProductImage {
	return mainImage(p.Images)
}

// Product is the full catalog entity.
type Product struct {
	ID               int64            `json:"id"`
	Brand            string           `json:"brand"`
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	SKU              string           `json:"sku"`
	ShortDescription string           `json:"short_description"`
	Description      string           `json:"description"`
	MetaTitle        string           `json:"meta_title"`
	MetaDescription  string           `json:"meta_description"`
	MetaKeywords     string           `json:"meta_keywords"`
	Price            types.Money      `json:"price"`
	Currency         string           `json:"currency"`
	Stock            int              `json:"stock"`
	Category         *ProductCategory `json:"category"`
	Images           []ProductImage   `json:"images"`
	AverageRating    *float64         `json:"average_rating"`
	ReviewsCount     int              `json:"reviews_count"`
	CanReview        bool             `json:"can_review"`
	UserReview       *reviews.Review  `json:"user_review"`
	CreatedAt        string           `json:"created_at,omitempty"`
	UpdatedAt        string           `json:"updated_at,omitempty"`
	Modified         string           `json:"modified,omitempty"`
}

// MainImage returns the image flagged as main, else the first one.
func (p Product) MainImage() *ProductImage {
	return mainImage(p.Images)
}

// InStock reports whether any units are available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

func mainImage(images []ProductImage) *ProductImage {
	if len(images) == 0 {
		return nil
	}
	for i := range images {
		if images[i].IsMain {
			return &images[i]
		}
	}
	return &images[0]
}

// Category is a catalog category ready for navigation and SEO.
type Category struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Description     string `json:"description"`
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
}

// BrandFacet is one brand with its product count.
type BrandFacet struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PriceRange holds the price bounds of a filtered listing.
type PriceRange struct {
	Min types.Money `json:"min"`
	Max types.Money `json:"max"`
}

// Facets are the filter dimensions for the current catalog query.
type Facets struct {
	Brands []BrandFacet `json:"brands"`
	Price  *PriceRange  `json:"price,omitempty"`
}
