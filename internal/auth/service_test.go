package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/auth/session"
	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	"github.com/angelmondragon/shopster-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

type stubSessions struct {
	data    map[string][]byte
	saves   int
	revoked []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{data: map[string][]byte{}}
}

func (s *stubSessions) Save(_ context.Context, visitorID string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.saves++
	s.data[visitorID] = raw
	return nil
}

func (s *stubSessions) Load(_ context.Context, visitorID string, dest any) error {
	raw, ok := s.data[visitorID]
	if !ok {
		return session.ErrNoSession
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubSessions) Revoke(_ context.Context, visitorID string) error {
	s.revoked = append(s.revoked, visitorID)
	delete(s.data, visitorID)
	return nil
}

func accessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix(), "user_id": 1})
	signed, err := token.SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

type calls struct {
	paths []string
	auth  []string
	body  []string
}

func buildTestService(t *testing.T, now time.Time, sessions *stubSessions, handler func(req *http.Request, body string) *http.Response) (Service, *calls) {
	t.Helper()
	seen := &calls{}
	client, err := backend.NewClient("http://backend.test", backend.WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			var body string
			if req.Body != nil {
				raw, _ := io.ReadAll(req.Body)
				body = string(raw)
			}
			seen.paths = append(seen.paths, req.Method+" "+req.URL.Path)
			seen.auth = append(seen.auth, req.Header.Get("Authorization"))
			seen.body = append(seen.body, body)
			return handler(req, body), nil
		}),
	}))
	if err != nil {
		t.Fatalf("backend client: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Client:   client,
		Sessions: sessions,
		Config:   config.AuthConfig{RefreshLeeway: 5 * time.Second},
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, seen
}

func TestServiceLoginStoresSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(5 * time.Minute)
	access := accessToken(t, exp)
	sessions := newStubSessions()

	svc, seen := buildTestService(t, now, sessions, func(req *http.Request, body string) *http.Response {
		switch req.URL.Path {
		case "/api/auth/login/":
			return jsonResponse(http.StatusOK, fmt.Sprintf(`{"access":%q,"refresh":"r-1"}`, access))
		case "/api/auth/me/":
			return jsonResponse(http.StatusOK, `{"id":4,"username":"ada","email":"ada@example.com","is_staff":true}`)
		}
		return jsonResponse(http.StatusNotFound, `{}`)
	})

	sess, err := svc.Login(context.Background(), "v1", LoginRequest{Identifier: " ada ", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if seen.body[0] != `{"password":"pw","username":"ada"}` {
		t.Fatalf("unexpected login body %s", seen.body[0])
	}
	if seen.auth[1] != "Bearer "+access {
		t.Fatalf("expected bearer on /me, got %q", seen.auth[1])
	}
	if !sess.AccessTokenExpires.Equal(exp.Truncate(time.Second)) {
		t.Fatalf("unexpected expiry %v", sess.AccessTokenExpires)
	}
	if !sess.User.IsStaff || sess.RefreshToken != "r-1" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if _, ok := sessions.data["v1"]; !ok {
		t.Fatalf("expected session persisted")
	}
}

func TestServiceLoginRejectsMissingCredentials(t *testing.T) {
	svc, seen := buildTestService(t, time.Now(), newStubSessions(), func(*http.Request, string) *http.Response {
		return jsonResponse(http.StatusOK, `{}`)
	})
	_, err := svc.Login(context.Background(), "v1", LoginRequest{Identifier: "ada"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(seen.paths) != 0 {
		t.Fatalf("expected no backend call")
	}
}

func TestServiceLoginInvalidCredentials(t *testing.T) {
	svc, _ := buildTestService(t, time.Now(), newStubSessions(), func(*http.Request, string) *http.Response {
		return jsonResponse(http.StatusUnauthorized, `{"detail":"No active account found with the given credentials"}`)
	})
	_, err := svc.Login(context.Background(), "v1", LoginRequest{Identifier: "ada", Password: "bad"})
	te := pkgerrors.As(err)
	if te == nil || te.Code() != pkgerrors.CodeUnauthorized || te.Message() != msgInvalidCredentials {
		t.Fatalf("unexpected error %v", err)
	}
}

func seedSession(t *testing.T, sessions *stubSessions, sess Session) {
	t.Helper()
	if err := sessions.Save(context.Background(), "v1", sess); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestCurrentSkipsRefreshOutsideWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := newStubSessions()
	seedSession(t, sessions, Session{AccessToken: "a", RefreshToken: "r", AccessTokenExpires: now.Add(6 * time.Second)})

	svc, seen := buildTestService(t, now, sessions, func(*http.Request, string) *http.Response {
		return jsonResponse(http.StatusOK, `{}`)
	})
	sess, err := svc.Current(context.Background(), "v1")
	if err != nil || sess == nil || sess.AccessToken != "a" {
		t.Fatalf("unexpected session %+v (%v)", sess, err)
	}
	if len(seen.paths) != 0 {
		t.Fatalf("expected no refresh, got %v", seen.paths)
	}
}

func TestCurrentRefreshesInsideWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	newExp := now.Add(5 * time.Minute)
	fresh := accessToken(t, newExp)
	sessions := newStubSessions()
	seedSession(t, sessions, Session{AccessToken: "old", RefreshToken: "r", AccessTokenExpires: now.Add(4 * time.Second)})

	svc, seen := buildTestService(t, now, sessions, func(req *http.Request, body string) *http.Response {
		return jsonResponse(http.StatusOK, fmt.Sprintf(`{"access":%q}`, fresh))
	})
	sess, err := svc.Current(context.Background(), "v1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if seen.paths[0] != "POST /api/auth/refresh/" || seen.body[0] != `{"refresh":"r"}` {
		t.Fatalf("unexpected refresh call %v %v", seen.paths, seen.body)
	}
	if sess.AccessToken != fresh || sess.RefreshToken != "r" || sess.Error != "" {
		t.Fatalf("unexpected refreshed session %+v", sess)
	}

	var stored Session
	_ = sessions.Load(context.Background(), "v1", &stored)
	if stored.AccessToken != fresh {
		t.Fatalf("expected refreshed token persisted")
	}
}

func TestCurrentRefreshFailureFlagsSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := newStubSessions()
	seedSession(t, sessions, Session{AccessToken: "old", RefreshToken: "r", AccessTokenExpires: now.Add(-time.Minute)})

	svc, _ := buildTestService(t, now, sessions, func(*http.Request, string) *http.Response {
		return jsonResponse(http.StatusUnauthorized, `{"detail":"Token is invalid or expired"}`)
	})
	sess, err := svc.Current(context.Background(), "v1")
	if err != nil {
		t.Fatalf("refresh failure must not error, got %v", err)
	}
	if sess.Error != RefreshErrorMarker || !sess.NeedsSignIn() {
		t.Fatalf("expected flagged session, got %+v", sess)
	}
	if sess.AccessToken != "old" {
		t.Fatalf("expected previous token kept")
	}
}

func TestCurrentWithoutSession(t *testing.T) {
	svc, _ := buildTestService(t, time.Now(), newStubSessions(), func(*http.Request, string) *http.Response {
		return jsonResponse(http.StatusOK, `{}`)
	})
	sess, err := svc.Current(context.Background(), "v1")
	if err != nil || sess != nil {
		t.Fatalf("expected no session, got %+v (%v)", sess, err)
	}
}

func TestLogoutRevokes(t *testing.T) {
	sessions := newStubSessions()
	seedSession(t, sessions, Session{AccessToken: "a"})
	svc, _ := buildTestService(t, time.Now(), sessions, func(*http.Request, string) *http.Response {
		return jsonResponse(http.StatusOK, `{}`)
	})
	if err := svc.Logout(context.Background(), "v1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 {
		t.Fatalf("expected revoke")
	}
}

func TestUpdateProfilePatchesWithBearer(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := newStubSessions()
	seedSession(t, sessions, Session{User: User{ID: 4, Username: "ada"}, AccessToken: "a", AccessTokenExpires: now.Add(time.Hour)})

	svc, seen := buildTestService(t, now, sessions, func(req *http.Request, body string) *http.Response {
		return jsonResponse(http.StatusOK, `{"id":4,"username":"ada","first_name":"Ada","profile":{"default_shipping_city":"London"}}`)
	})
	sess, err := svc.UpdateProfile(context.Background(), "v1", ProfileUpdate{FirstName: "Ada", Profile: Profile{DefaultShippingCity: "London"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if seen.paths[0] != "PATCH /api/auth/me/" || seen.auth[0] != "Bearer a" {
		t.Fatalf("unexpected call %v %v", seen.paths, seen.auth)
	}
	if sess.User.FirstName != "Ada" || sess.User.Profile.DefaultShippingCity != "London" {
		t.Fatalf("unexpected user %+v", sess.User)
	}
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	svc, _ := buildTestService(t, time.Now(), newStubSessions(), func(*http.Request, string) *http.Response {
		return jsonResponse(http.StatusOK, `{}`)
	})
	_, err := svc.UpdateProfile(context.Background(), "v1", ProfileUpdate{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestUserDisplayName(t *testing.T) {
	if got := (User{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}).DisplayName(); got != "Ada Lovelace" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := (User{Username: "ada"}).DisplayName(); got != "ada" {
		t.Fatalf("unexpected name %q", got)
	}
}
