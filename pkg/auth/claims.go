package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// VisitorClaims is carried by the signed cookie that identifies a browser.
// The visitor id travels as the registered jti claim.
type VisitorClaims struct {
	jwt.RegisteredClaims
}

// VisitorID returns the visitor identifier stored in the token.
func (c VisitorClaims) VisitorID() string {
	return c.ID
}

// BackendAccessClaims is the subset of the backend's access token the storefront reads.
// The token is never verified here; only the backend can do that.
type BackendAccessClaims struct {
	UserID any `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}
