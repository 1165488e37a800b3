package middleware

import (
	"context"

	"github.com/angelmondragon/shopster-storefront/internal/auth"
)

type contextKey string

const (
	ctxVisitorID contextKey = "visitor_id"
	ctxSession   contextKey = "auth_session"
)

func VisitorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxVisitorID).(string); ok {
		return v
	}
	return ""
}

// WithVisitorID injects the visitor identifier into the context.
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxVisitorID, visitorID)
}

// SessionFromContext returns the signed-in session or nil for anonymous visitors.
func SessionFromContext(ctx context.Context) *auth.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*auth.Session); ok {
		return v
	}
	return nil
}

func WithSession(ctx context.Context, sess *auth.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}

// AccessToken returns the bearer token of a usable session, else "".
func AccessToken(ctx context.Context) string {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.NeedsSignIn() {
		return ""
	}
	return sess.AccessToken
}
