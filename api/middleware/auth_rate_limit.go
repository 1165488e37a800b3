package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/shopster-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RejectFunc writes the response for a throttled request.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// AuthRateLimitPolicy defines the throttling parameters for a traffic surface.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

// NewAuthRateLimitPolicy builds a policy with the supplied window and limits.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		name:       strings.ToLower(strings.TrimSpace(name)),
		window:     window,
		ipLimit:    ipLimit,
		emailLimit: emailLimit,
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

func (p AuthRateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "auth"
	}
	return p.name
}

func (p AuthRateLimitPolicy) ipScope(ip string) string {
	if ip == "" {
		return ""
	}
	return fmt.Sprintf("ip:%s:%s", p.normalizedName(), ip)
}

func (p AuthRateLimitPolicy) emailScope(hash string) string {
	if hash == "" {
		return ""
	}
	return fmt.Sprintf("email:%s:%s", p.normalizedName(), hash)
}

// AuthRateLimit enforces per-IP and per-email counters for auth form posts. reject
// renders the throttled response; nil writes the JSON error envelope.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger, reject RejectFunc) func(http.Handler) http.Handler {
	if reject == nil {
		reject = func(w http.ResponseWriter, r *http.Request, err error) {
			responses.WriteError(r.Context(), nil, w, err)
		}
	}
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := clientIP(r)
			if policy.ipLimit > 0 {
				if scope := policy.ipScope(ip); scope != "" {
					if allowed, count, err := allow(ctx, store, store.RateLimitKey(scope), policy.window, int64(policy.ipLimit)); err != nil {
						reject(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Service temporarily unavailable. Please try again."))
						return
					} else if !allowed {
						respondRateLimited(logg, w, r, reject, policy, "ip", ip, "", count, policy.ipLimit)
						return
					}
				}
			}

			if policy.emailLimit > 0 {
				email, err := extractEmail(r)
				if err != nil {
					reject(w, r, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request"))
					return
				}
				if email = normalizeEmail(email); email != "" {
					hash := hashValue(email)
					if scope := policy.emailScope(hash); scope != "" {
						if allowed, count, err := allow(ctx, store, store.RateLimitKey(scope), policy.window, int64(policy.emailLimit)); err != nil {
							reject(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Service temporarily unavailable. Please try again."))
							return
						} else if !allowed {
							respondRateLimited(logg, w, r, reject, policy, "email", "", hash, count, policy.emailLimit)
							return
						}
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, store rateLimiterStore, key string, window time.Duration, limit int64) (bool, int64, error) {
	count, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

func respondRateLimited(logg *logger.Logger, w http.ResponseWriter, r *http.Request, reject RejectFunc, policy AuthRateLimitPolicy, scope, ip, emailHash string, count int64, limit int) {
	if logg != nil {
		ctx := r.Context()
		fields := map[string]any{
			"scope":          scope,
			"policy":         policy.normalizedName(),
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		}
		if ip != "" {
			fields["ip"] = ip
		}
		if emailHash != "" {
			fields["email_hash"] = emailHash
		}
		logCtx := logg.WithFields(ctx, fields)
		logg.Warn(logCtx, "auth.rate_limit.blocked")
	}
	reject(w, r, pkgerrors.New(pkgerrors.CodeRateLimit, "Too many attempts. Please wait a moment and try again."))
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// extractEmail reads the account identifier from a form post or a JSON body, leaving
// the body readable for the handler.
func extractEmail(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			return "", err
		}
		r.Body = io.NopCloser(bytes.NewReader(payload))
		var body struct {
			Email      string `json:"email"`
			Identifier string `json:"identifier"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return "", nil
		}
		if body.Email != "" {
			return body.Email, nil
		}
		return body.Identifier, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	if email := r.PostForm.Get("email"); email != "" {
		return email, nil
	}
	return r.PostForm.Get("identifier"), nil
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
