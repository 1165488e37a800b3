package catalog

import (
	"net/url"
	"strings"
	"testing"
)

func TestParseFiltersSanitizes(t *testing.T) {
	values := url.Values{
		"search":    {"  " + strings.Repeat("я", 130) + "  "},
		"brand":     {strings.Repeat("b", 90)},
		"min_price": {"10.50"},
		"max_price": {"-3"},
		"in_stock":  {"1"},
		"ordering":  {"price; DROP TABLE"},
		"category":  {" lamps "},
	}
	f := ParseFilters(values)

	if got := len([]rune(f.Search)); got != 120 {
		t.Fatalf("expected search capped at 120 runes, got %d", got)
	}
	if len(f.Brand) != 80 {
		t.Fatalf("expected brand capped at 80, got %d", len(f.Brand))
	}
	if f.MinPrice != "10.5" {
		t.Fatalf("expected normalized price, got %q", f.MinPrice)
	}
	if f.MaxPrice != "" {
		t.Fatalf("negative prices must be dropped, got %q", f.MaxPrice)
	}
	if f.InStock != "true" {
		t.Fatalf("expected in_stock normalized to true, got %q", f.InStock)
	}
	if f.Ordering != "" {
		t.Fatalf("unknown ordering must be dropped, got %q", f.Ordering)
	}
	if f.Category != "lamps" {
		t.Fatalf("unexpected category %q", f.Category)
	}
}

func TestParseFiltersOrderingAllowList(t *testing.T) {
	for ordering := range allowedOrderings {
		if got := ParseFilters(url.Values{"ordering": {ordering}}).Ordering; got != ordering {
			t.Fatalf("expected %q to be accepted, got %q", ordering, got)
		}
	}
}

func TestParseFiltersInStockRejectsOtherValues(t *testing.T) {
	for _, raw := range []string{"yes", "0", "false", ""} {
		if got := ParseFilters(url.Values{"in_stock": {raw}}).InStock; got != "" {
			t.Fatalf("in_stock=%q should be dropped, got %q", raw, got)
		}
	}
}

func TestSanitizePrice(t *testing.T) {
	cases := map[string]string{
		"":     "",
		"abc":  "",
		"0":    "0",
		" 15 ": "15",
		"1e2":  "100",
		"-0.1": "",
		"Inf":  "",
	}
	for raw, want := range cases {
		if got := sanitizePrice(raw); got != want {
			t.Fatalf("sanitizePrice(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestFacetQueryDropsBrandAndOrdering(t *testing.T) {
	f := Filters{Search: "lamp", Brand: "Acme", Ordering: "-price", InStock: "true"}
	q := f.FacetQuery()
	if _, ok := q["brand"]; ok {
		t.Fatal("facet query must not include brand")
	}
	if _, ok := q["ordering"]; ok {
		t.Fatal("facet query must not include ordering")
	}
	if q["search"] != "lamp" || q["in_stock"] != "true" {
		t.Fatalf("unexpected facet query %v", q)
	}
}

func TestFiltersValuesSkipsEmpty(t *testing.T) {
	values := Filters{Search: "lamp"}.Values()
	if values.Encode() != "search=lamp" {
		t.Fatalf("unexpected values %s", values.Encode())
	}
	if !(Filters{}).IsEmpty() || (Filters{Brand: "x"}).IsEmpty() {
		t.Fatal("unexpected IsEmpty result")
	}
}
