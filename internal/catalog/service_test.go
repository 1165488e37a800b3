package catalog

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	"github.com/angelmondragon/shopster-storefront/pkg/cache"
	"github.com/angelmondragon/shopster-storefront/pkg/config"
	"github.com/angelmondragon/shopster-storefront/pkg/redis"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if raw, ok := value.([]byte); ok {
		m.data[key] = string(raw)
	}
	return nil
}

func (m *memoryStore) CacheKey(parts ...string) string {
	return "cache:" + strings.Join(parts, ":")
}

func newTestService(t *testing.T, rt roundTripFunc) *Service {
	t.Helper()
	client, err := backend.NewClient("http://backend.test", backend.WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("backend client: %v", err)
	}
	loader := cache.New(&memoryStore{data: map[string]string{}}, nil, true)
	svc, err := NewService(client, loader, config.CacheConfig{
		ProductsTTL:   time.Minute,
		FacetsTTL:     time.Minute,
		CategoriesTTL: time.Minute,
	}, nil)
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	return svc
}

const productsBody = `{"count":1,"next":null,"previous":null,"results":[{"id":1,"name":"Lamp","slug":"lamp","price":"10.00","currency":"RUB","stock":3,"images":[{"id":1,"image":"a.jpg","is_main":false},{"id":2,"image":"b.jpg","is_main":true}]}]}`

func TestProductsPageCachesUnfilteredListing(t *testing.T) {
	calls := 0
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		calls++
		return respond(http.StatusOK, productsBody), nil
	})

	for i := 0; i < 2; i++ {
		page := svc.ProductsPage(context.Background(), Filters{}, 1, PageSize)
		if len(page.Items) != 1 || page.Items[0].Price.String() != "10.00" {
			t.Fatalf("unexpected page %+v", page)
		}
	}
	if calls != 1 {
		t.Fatalf("expected cached second read, got %d calls", calls)
	}
}

func TestProductsPageBypassesCacheWithFilters(t *testing.T) {
	calls := 0
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		calls++
		if req.URL.Query().Get("search") != "lamp" {
			t.Fatalf("expected search filter, got %s", req.URL.RawQuery)
		}
		return respond(http.StatusOK, productsBody), nil
	})

	for i := 0; i < 2; i++ {
		svc.ProductsPage(context.Background(), Filters{Search: "lamp"}, 1, PageSize)
	}
	if calls != 2 {
		t.Fatalf("filtered listings must not be cached, got %d calls", calls)
	}
}

func TestProductsPageFailureIsEmpty(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusInternalServerError, `{}`), nil
	})
	page := svc.ProductsPage(context.Background(), Filters{Search: "x"}, 1, PageSize)
	if len(page.Items) != 0 || page.NextPage != nil || page.TotalCount != 0 {
		t.Fatalf("expected empty page, got %+v", page)
	}
}

func TestProductNotFoundIsNil(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/products/missing/" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return respond(http.StatusNotFound, `{"detail":"Not found."}`), nil
	})
	product, err := svc.Product(context.Background(), "missing", "")
	if err != nil || product != nil {
		t.Fatalf("expected nil product without error, got %+v %v", product, err)
	}
}

func TestProductDecodesDetail(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") != "Bearer tok" {
			t.Fatalf("expected token forwarded")
		}
		return respond(http.StatusOK, `{"id":1,"slug":"lamp","name":"Lamp","price":"12.50","average_rating":4.5,"reviews_count":2,"can_review":true,"user_review":{"id":7,"rating":5,"moderation_status":"pending"},"images":[{"id":1,"image":"a.jpg"}]}`), nil
	})
	product, err := svc.Product(context.Background(), "lamp", "tok")
	if err != nil || product == nil {
		t.Fatalf("expected product, got %v", err)
	}
	if product.AverageRating == nil || *product.AverageRating != 4.5 {
		t.Fatalf("unexpected rating %v", product.AverageRating)
	}
	if product.UserReview == nil || product.UserReview.ID != 7 {
		t.Fatalf("expected user review")
	}
	if img := product.MainImage(); img == nil || img.Image != "a.jpg" {
		t.Fatalf("expected first image as fallback main image")
	}
}

func TestFacetsDropNamelessBrands(t *testing.T) {
	var query string
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		query = req.URL.RawQuery
		return respond(http.StatusOK, `{"brands":[{"name":"Acme","count":3},{"name":"","count":1}],"price":{"min":"1.00","max":null}}`), nil
	})
	facets := svc.Facets(context.Background(), map[string]string{"search": "lamp", "brand": ""})
	if query != "search=lamp" {
		t.Fatalf("unexpected query %s", query)
	}
	if len(facets.Brands) != 1 || facets.Brands[0].Name != "Acme" {
		t.Fatalf("unexpected brands %+v", facets.Brands)
	}
	if facets.Price == nil || facets.Price.Min.String() != "1.00" || facets.Price.Max.Valid() {
		t.Fatalf("unexpected price range %+v", facets.Price)
	}
}

func TestFacetsFailureIsEmpty(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusServiceUnavailable, `{}`), nil
	})
	facets := svc.Facets(context.Background(), nil)
	if facets.Brands == nil || len(facets.Brands) != 0 {
		t.Fatalf("expected empty brand list, got %+v", facets)
	}
}

func TestCategoriesFilterAndDefaults(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("page_size") != "100" {
			t.Fatalf("expected page_size=100, got %s", req.URL.RawQuery)
		}
		return respond(http.StatusOK, `[
			{"id":1,"name":"Lamps","slug":"lamps","description":"Light","is_active":true},
			{"id":2,"name":"Hidden","slug":"hidden","is_active":false},
			{"id":3,"name":"Noslug","slug":""},
			{"id":4,"name":"Chairs","slug":"chairs","meta_title":"Best chairs","meta_description":""}
		]`), nil
	})

	categories := svc.Categories(context.Background())
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %+v", categories)
	}
	if categories[0].MetaTitle != "Lamps" || categories[0].MetaDescription != "Light" {
		t.Fatalf("expected defaults from name/description, got %+v", categories[0])
	}
	if categories[1].MetaTitle != "Best chairs" || categories[1].MetaDescription != "" {
		t.Fatalf("explicit meta values must be kept, got %+v", categories[1])
	}
}

func TestLoadCatalogPageFansOut(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]string{}
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		paths[req.URL.Path] = req.URL.RawQuery
		mu.Unlock()
		switch req.URL.Path {
		case "/api/products/":
			return respond(http.StatusOK, productsBody), nil
		case "/api/products/facets/":
			return respond(http.StatusOK, `{"brands":[{"name":"Acme","count":1}]}`), nil
		default:
			return respond(http.StatusOK, `[{"id":1,"name":"Lamps","slug":"lamps"}]`), nil
		}
	})

	page, err := svc.LoadCatalogPage(context.Background(), Filters{Brand: "Acme", Ordering: "name"}, 1)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(page.Products.Items) != 1 || len(page.Categories) != 1 || len(page.Facets.Brands) != 1 {
		t.Fatalf("unexpected catalog page %+v", page)
	}
	if strings.Contains(paths["/api/products/facets/"], "brand") {
		t.Fatalf("facet request must not carry brand: %s", paths["/api/products/facets/"])
	}
	if !strings.Contains(paths["/api/products/"], "brand=Acme") {
		t.Fatalf("product request must carry brand: %s", paths["/api/products/"])
	}
}

func TestFeaturedUsesLimitAsPageSize(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("page_size") != "6" {
			t.Fatalf("expected page_size=6, got %s", req.URL.RawQuery)
		}
		return respond(http.StatusOK, productsBody), nil
	})
	if got := svc.Featured(context.Background(), 6); len(got) != 1 {
		t.Fatalf("expected one featured product, got %d", len(got))
	}
}
