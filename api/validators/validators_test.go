package validators

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
)

type nestedForm struct {
	Name    string `form:"name"`
	Count   int    `form:"count"`
	Profile struct {
		City string `form:"city"`
	} `form:"profile"`
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDecodeFormNested(t *testing.T) {
	var dest nestedForm
	err := DecodeForm(postForm(url.Values{"name": {"Ana"}, "count": {"3"}, "profile.city": {"Riga"}}), &dest)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dest.Name != "Ana" || dest.Count != 3 || dest.Profile.City != "Riga" {
		t.Fatalf("unexpected decode %+v", dest)
	}
}

func TestDecodeFormBadNumber(t *testing.T) {
	var dest nestedForm
	err := DecodeForm(postForm(url.Values{"count": {"many"}}), &dest)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSafeRedirect(t *testing.T) {
	cases := map[string]string{
		"/cart":              "/cart",
		" /account ":         "/account",
		"":                   "/fallback",
		"https://evil.test":  "/fallback",
		"//evil.test":        "/fallback",
		"/\\evil.test":       "/fallback",
		"javascript:alert()": "/fallback",
		"/\t/evil.test":      "/fallback",
		"/\n/evil.test":      "/fallback",
		"/\r\n//evil.test":   "/fallback",
		"/a\\b":              "/fallback",
		"/products?page=2":   "/products?page=2",
	}
	for in, want := range cases {
		if got := SafeRedirect(in, "/fallback"); got != want {
			t.Fatalf("SafeRedirect(%q) = %q want %q", in, got, want)
		}
	}
}

func TestPageParamIsLenient(t *testing.T) {
	for raw, want := range map[string]int{"": 1, "4": 4, "0": 1, "abc": 1} {
		req := httptest.NewRequest(http.MethodGet, "/?page="+raw, nil)
		if got := PageParam(req); got != want {
			t.Fatalf("page %q: got %d want %d", raw, got, want)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID(" 12 ", "id"); err != nil || id != 12 {
		t.Fatalf("unexpected %d %v", id, err)
	}
	if _, err := ParseID("-1", "id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
