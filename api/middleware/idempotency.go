package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/shopster-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	pkgredis "github.com/angelmondragon/shopster-storefront/pkg/redis"
)

const (
	// IdempotencyHeader carries the client key on JSON calls.
	IdempotencyHeader = "Idempotency-Key"
	// IdempotencyField carries the key on HTML form posts.
	IdempotencyField = "idempotency_key"

	cartIdempotencyTTL     = 10 * time.Minute
	checkoutIdempotencyTTL = 24 * time.Hour
	maxIdempotencyKeyLen   = 128
	maxIdempotentBody      = 1 << 20
	idempotencyPollEvery   = 100 * time.Millisecond
	defaultIdempotencyWait = 5 * time.Second
)

type routeMatcher func(string) bool

type idempotencyRule struct {
	method  string
	matcher routeMatcher
	ttl     time.Duration
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, matcher: matchExact("/api/cart/items"), ttl: cartIdempotencyTTL},
	{method: http.MethodPost, matcher: matchExact("/checkout"), ttl: checkoutIdempotencyTTL},
}

type idempotencyRecord struct {
	Pending     bool              `json:"pending,omitempty"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the first response of a keyed cart add or checkout instead of
// running it again. A duplicate that arrives while the first is still running waits
// for its result. Requests without a key pass through.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return idempotency(store, logg, defaultIdempotencyWait)
}

func idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger, wait time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			idempotencyKey := requestKey(r, body)
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(idempotencyKey) > maxIdempotencyKeyLen {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency key is too long."))
				return
			}

			requestHash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), idempotencyKey)
			ctx := r.Context()

			pending, err := json.Marshal(idempotencyRecord{Pending: true, RequestHash: requestHash})
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency record"))
				return
			}
			claimed, err := store.SetNX(ctx, key, string(pending), ttl)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if !claimed {
				record, err := awaitRecord(ctx, store, key, wait)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
				if record.RequestHash != requestHash {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "Idempotency key was reused with a different request."))
					return
				}
				writeStoredResponse(w, record)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			// Server failures release the key so the client can retry.
			if defaultStatus(rec.status) >= http.StatusInternalServerError {
				if delErr := store.Del(context.WithoutCancel(ctx), key); delErr != nil {
					logError(ctx, logg, "release idempotency key", delErr)
				}
				return
			}

			record := idempotencyRecord{
				Status:      defaultStatus(rec.status),
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
				Headers:     map[string]string{},
			}
			for _, name := range []string{"Content-Type", "Location"} {
				if v := rec.Header().Get(name); v != "" {
					record.Headers[name] = v
				}
			}

			payload, marshalErr := json.Marshal(record)
			if marshalErr != nil {
				logError(ctx, logg, "marshal idempotency record", marshalErr)
				return
			}
			if setErr := store.Set(context.WithoutCancel(ctx), key, string(payload), ttl); setErr != nil {
				logError(ctx, logg, "persist idempotency record", setErr)
			}
		})
	}
}

// requestKey reads the header first, then the form field of urlencoded posts.
func requestKey(r *http.Request, body []byte) string {
	if key := strings.TrimSpace(r.Header.Get(IdempotencyHeader)); key != "" {
		return key
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/x-www-form-urlencoded" {
		return ""
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(values.Get(IdempotencyField))
}

func awaitRecord(ctx context.Context, store pkgredis.IdempotencyStore, key string, wait time.Duration) (*idempotencyRecord, error) {
	deadline := time.Now().Add(wait)
	for {
		stored, err := store.Get(ctx, key)
		switch {
		case errors.Is(err, redis.Nil):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "The previous attempt failed. Please try again.")
		case err != nil:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
		}
		record, err := decodeRecord(stored)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
		}
		if !record.Pending {
			return record, nil
		}
		if !time.Now().Before(deadline) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "This request is already being processed.")
		}
		select {
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ctx.Err(), "This request is already being processed.")
		case <-time.After(idempotencyPollEvery):
		}
	}
}

func buildScope(r *http.Request) string {
	parts := []string{
		VisitorIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}
	return strings.Join(parts, "|")
}

func decodeRecord(payload string) (*idempotencyRecord, error) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if record == nil {
		return
	}
	for name, value := range record.Headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, rule := range idempotencyRules {
		if rule.method != method {
			continue
		}
		if rule.matcher(path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func matchExact(path string) routeMatcher {
	return func(candidate string) bool {
		return candidate == path
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
