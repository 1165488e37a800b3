package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
)

func TestAuthRateLimit_AllowsUnderLimit(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	handler := AuthRateLimit(policy, store, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"tester@example.com"`) {
			t.Fatalf("unexpected body: %s", string(body))
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"email":"tester@example.com","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimit_EmailLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, store, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/signin", strings.NewReader(`{"email":"blocked@example.com","password":"secret"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "1.2.3.4:5678"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		switch {
		case i < 2 && rec.Code != http.StatusOK:
			t.Fatalf("expected success before limit, got %d", rec.Code)
		case i >= 2:
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
				t.Fatalf("unexpected code: %s", payload.Error.Code)
			}
		}
	}
}

func TestAuthRateLimit_FormIdentifierCountsAndStaysReadable(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 1)
	var rejected error
	reject := func(w http.ResponseWriter, r *http.Request, err error) {
		rejected = err
		w.WriteHeader(http.StatusTooManyRequests)
	}
	handler := AuthRateLimit(policy, store, nil, reject)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.PostFormValue("identifier") != "Shopper@Example.com" {
			t.Fatalf("form must stay readable, got %q", r.PostFormValue("identifier"))
		}
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/signin", strings.NewReader("identifier=Shopper%40Example.com&password=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("expected success, got %d", rec.Code)
		}
		if i == 1 && !pkgerrors.IsCode(rejected, pkgerrors.CodeRateLimit) {
			t.Fatalf("expected rate limit rejection, got %v", rejected)
		}
	}

	for key := range store.counts {
		if !strings.HasPrefix(key, "test:rate_limit:email:login:") {
			t.Fatalf("unexpected key %s", key)
		}
		if strings.Contains(key, "example.com") {
			t.Fatalf("email must be hashed in key %s", key)
		}
	}
}

func TestAuthRateLimit_IPLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("register", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, store, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader("email=foo%40example.com"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "5.6.7.8:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("expected success, got %d", rec.Code)
		}
		if i == 1 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
		}
	}
}

func TestAuthRateLimit_DisabledPolicyPassesThrough(t *testing.T) {
	called := false
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", 0, 5, 5), newFakeRateStore(), nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/signin", nil))
	if !called {
		t.Fatal("expected passthrough")
	}
}

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRateStore) RateLimitKey(scope string) string {
	return "test:rate_limit:" + scope
}
