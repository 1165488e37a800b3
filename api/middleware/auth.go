package middleware

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/angelmondragon/shopster-storefront/api/responses"
)

// SignInPath is where anonymous visitors are sent, with the page they wanted as
// callbackUrl.
const SignInPath = "/signin"

// SignInURL builds the sign-in redirect for callback.
func SignInURL(callback string) string {
	if callback == "" {
		return SignInPath
	}
	return SignInPath + "?callbackUrl=" + url.QueryEscape(callback)
}

// RequireSignIn redirects pages to sign-in when there is no usable session. A session
// whose refresh failed counts as signed out.
func RequireSignIn() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AccessToken(r.Context()) == "" {
				responses.Redirect(w, r, SignInURL(r.URL.RequestURI()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func formatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}
