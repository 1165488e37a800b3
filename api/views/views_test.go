package views

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/config"
)

func testSite() config.SiteConfig {
	return config.SiteConfig{
		Name:        "Shopster",
		Description: "Default description",
		URL:         "https://shop.test",
		OGImage:     "https://cdn.test/og.png",
	}
}

func TestNewParsesEveryPage(t *testing.T) {
	rdr, err := New(testSite(), true, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, name := range []string{
		"home", "products", "product", "cart", "checkout", "checkout_success",
		"signin", "signup", "forgot_password", "reset_password", "account",
		"admin_stats", "blog", "post", "error", "not_found",
	} {
		if !rdr.Has(name) {
			t.Fatalf("missing page template %s", name)
		}
	}
}

func TestRenderWritesMetadata(t *testing.T) {
	rdr, err := New(testSite(), true, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rdr.Render(rec, req, http.StatusNotFound, "not_found", Page{
		Meta:  Meta{Title: "Page not found", Path: "/missing", NoIndex: true},
		Flash: &Flash{Kind: "info", Message: "Heads up"},
	})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Page not found | Shopster</title>",
		`<meta name="description" content="Default description">`,
		`<link rel="canonical" href="https://shop.test/missing">`,
		`content="https://cdn.test/og.png"`,
		`content="noindex, nofollow"`,
		`data-suggest="/api/search"`,
		`class="flash flash--info"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body", want)
		}
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	rdr, err := New(testSite(), false, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rec := httptest.NewRecorder()
	rdr.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "nope", Page{})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}

func TestPageTitles(t *testing.T) {
	p := Page{Site: testSite()}
	if p.FullTitle() != "Shopster" {
		t.Fatalf("unexpected title %q", p.FullTitle())
	}
	p.Meta.Title = "Cart"
	if p.FullTitle() != "Cart | Shopster" {
		t.Fatalf("unexpected title %q", p.FullTitle())
	}
	if p.OGType() != "website" {
		t.Fatalf("unexpected og type %q", p.OGType())
	}
	p.Meta.Image = "/media/lamp.jpg"
	if p.OGImage() != "https://shop.test/media/lamp.jpg" {
		t.Fatalf("unexpected og image %q", p.OGImage())
	}
}

func TestNewPager(t *testing.T) {
	next := 3
	p := NewPager("/products", url.Values{"brand": {"Acme"}}, 2, &next)
	if p.Prev != 1 || p.Next != 3 {
		t.Fatalf("unexpected pager %+v", p)
	}
	if got := pageURL(p.Base, p.Query, p.Prev); got != "/products?brand=Acme" {
		t.Fatalf("unexpected prev url %s", got)
	}
	if got := pageURL(p.Base, p.Query, p.Next); got != "/products?brand=Acme&page=3" {
		t.Fatalf("unexpected next url %s", got)
	}

	first := NewPager("/blog", nil, 1, nil)
	if first.Prev != 0 || first.Next != 0 {
		t.Fatalf("first page without next must have no links: %+v", first)
	}
}

func TestFormatters(t *testing.T) {
	if got := stars(4); got != "★★★★☆" {
		t.Fatalf("unexpected stars %s", got)
	}
	if got := stars(9); got != "★★★★★" {
		t.Fatalf("stars must clamp, got %s", got)
	}
	if got := formatDate("2024-03-09T12:00:00Z"); got != "09.03.2024" {
		t.Fatalf("unexpected date %s", got)
	}
	if got := formatDate("yesterday"); got != "yesterday" {
		t.Fatalf("unparseable dates pass through, got %s", got)
	}
	ts := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	if got := formatDate(&ts); got != "01.12.2023" {
		t.Fatalf("unexpected date %s", got)
	}
}

func TestHeaderShowsCartBadgeAndSearchScript(t *testing.T) {
	rdr, err := New(testSite(), true, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rdr.SetCartBadge(func(*http.Request) int { return 4 })

	rec := httptest.NewRecorder()
	rdr.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "not_found", Page{})
	body := rec.Body.String()
	for _, want := range []string{
		`<span class="cart-link__count" aria-label="4 items in cart">4</span>`,
		`<script src="/static/search.js" defer></script>`,
		`data-suggest="/api/search"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in header", want)
		}
	}
}

func TestHeaderHidesEmptyBadgeAndDisabledSearch(t *testing.T) {
	rdr, err := New(testSite(), false, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rdr.SetCartBadge(func(*http.Request) int { return 0 })

	rec := httptest.NewRecorder()
	rdr.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "not_found", Page{})
	body := rec.Body.String()
	if strings.Contains(body, "cart-link__count") {
		t.Fatal("empty cart must not show a badge")
	}
	if strings.Contains(body, "/static/search.js") {
		t.Fatal("disabled search must not load the dropdown script")
	}
}

func TestPageCartCountSkipsLookup(t *testing.T) {
	rdr, err := New(testSite(), false, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	calls := 0
	rdr.SetCartBadge(func(*http.Request) int { calls++; return 1 })

	rec := httptest.NewRecorder()
	rdr.Render(rec, httptest.NewRequest(http.MethodGet, "/cart", nil), http.StatusOK, "not_found", Page{CartCount: 2})
	if calls != 0 {
		t.Fatalf("expected no lookup, got %d", calls)
	}
	if !strings.Contains(rec.Body.String(), `aria-label="2 items in cart"`) {
		t.Fatal("expected handler count in badge")
	}
}

func TestStaticServesSearchScript(t *testing.T) {
	rec := httptest.NewRecorder()
	Static().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/search.js", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "javascript") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "data-suggest") {
		t.Fatal("expected dropdown script body")
	}
}
