package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/angelmondragon/shopster-storefront/api/middleware"
	"github.com/angelmondragon/shopster-storefront/api/views"
	"github.com/angelmondragon/shopster-storefront/internal/auth"
	"github.com/angelmondragon/shopster-storefront/pkg/config"
	"github.com/go-chi/chi/v5"
)

const testVisitor = "visitor-1"

func newTestRenderer(t *testing.T) *views.Renderer {
	t.Helper()
	rdr, err := views.New(config.SiteConfig{
		Name:        "Shopster",
		Description: "Test shop",
		URL:         "http://shop.test",
	}, false, nil)
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	return rdr
}

// serve routes req through a chi mux so URL params resolve like in production.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := chi.NewRouter()
	mux.Method(method, pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func withVisitor(req *http.Request, sess *auth.Session) *http.Request {
	ctx := middleware.WithVisitorID(req.Context(), testVisitor)
	if sess != nil {
		ctx = middleware.WithSession(ctx, sess)
	}
	return req.WithContext(ctx)
}

func getRequest(target string, sess *auth.Session) *http.Request {
	return withVisitor(httptest.NewRequest(http.MethodGet, target, nil), sess)
}

func formRequest(target string, values url.Values, sess *auth.Session) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return withVisitor(req, sess)
}

func signedIn(staff bool) *auth.Session {
	return &auth.Session{
		User:        auth.User{ID: 5, Username: "ana", Email: "ana@example.com", FirstName: "Ana", IsStaff: staff},
		AccessToken: "access-token",
	}
}

func flashFrom(t *testing.T, rec *httptest.ResponseRecorder) *views.Flash {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name != flashCookie || c.MaxAge < 0 {
			continue
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(c)
		return popFlash(httptest.NewRecorder(), req)
	}
	return nil
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("expected redirect to %s got %s", want, got)
	}
}

func assertBodyContains(t *testing.T, rec *httptest.ResponseRecorder, fragments ...string) {
	t.Helper()
	body := rec.Body.String()
	for _, f := range fragments {
		if !strings.Contains(body, f) {
			t.Fatalf("expected body to contain %q", f)
		}
	}
}
