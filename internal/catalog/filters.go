package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/shopster-storefront/pkg/validation"
)

const (
	maxSearchRunes = 120
	maxBrandRunes  = 80
)

var allowedOrderings = map[string]struct{}{
	"price":           {},
	"-price":          {},
	"name":            {},
	"-name":           {},
	"created_at":      {},
	"-created_at":     {},
	"reviews_count":   {},
	"-reviews_count":  {},
	"average_rating":  {},
	"-average_rating": {},
}

// Filters are the sanitized catalog query parameters. Empty means unset.
type Filters struct {
	Search   string
	Category string
	Brand    string
	MinPrice string
	MaxPrice string
	InStock  string
	Ordering string
}

// ParseFilters reads and sanitizes catalog filters from a request query.
func ParseFilters(values url.Values) Filters {
	inStock := ""
	if raw := values.Get("in_stock"); raw == "true" || raw == "1" {
		inStock = "true"
	}
	return Filters{
		Search:   validation.Truncate(values.Get("search"), maxSearchRunes),
		Category: strings.TrimSpace(values.Get("category")),
		Brand:    validation.Truncate(values.Get("brand"), maxBrandRunes),
		MinPrice: sanitizePrice(values.Get("min_price")),
		MaxPrice: sanitizePrice(values.Get("max_price")),
		InStock:  inStock,
		Ordering: sanitizeOrdering(values.Get("ordering")),
	}
}

// Query returns the backend query for the product listing.
func (f Filters) Query() map[string]string {
	return map[string]string{
		"search":    f.Search,
		"category":  f.Category,
		"brand":     f.Brand,
		"min_price": f.MinPrice,
		"max_price": f.MaxPrice,
		"in_stock":  f.InStock,
		"ordering":  f.Ordering,
	}
}

// FacetQuery is Query without brand and ordering, so the brand list stays complete.
func (f Filters) FacetQuery() map[string]string {
	q := f.Query()
	delete(q, "brand")
	delete(q, "ordering")
	return q
}

// Values renders the filters back into URL query values, skipping empty ones.
func (f Filters) Values() url.Values {
	values := url.Values{}
	for k, v := range f.Query() {
		if v != "" {
			values.Set(k, v)
		}
	}
	return values
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f == Filters{}
}

func sanitizePrice(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || value < 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func sanitizeOrdering(raw string) string {
	if _, ok := allowedOrderings[raw]; ok {
		return raw
	}
	return ""
}
