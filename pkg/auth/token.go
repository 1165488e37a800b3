package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// NewVisitorID produces a fresh visitor identifier.
func NewVisitorID() string {
	return uuid.NewString()
}

// MintVisitorToken issues the signed visitor cookie value for visitorID.
func MintVisitorToken(cfg config.VisitorConfig, now time.Time, visitorID string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("visitor secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("visitor issuer is required")
	}
	if cfg.TTL <= 0 {
		return "", fmt.Errorf("visitor ttl must be positive")
	}

	id := strings.TrimSpace(visitorID)
	if id == "" {
		id = NewVisitorID()
	}

	claims := VisitorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        id,
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing visitor token: %w", err)
	}
	return signed, nil
}

// ParseVisitorToken validates the cookie value and returns its claims.
func ParseVisitorToken(cfg config.VisitorConfig, tokenString string) (*VisitorClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("visitor secret is required")
	}

	claims := &VisitorClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.ID) == "" {
		return nil, fmt.Errorf("visitor token missing id")
	}
	return claims, nil
}

// AccessTokenExpiry decodes the exp claim of a backend-issued access token without
// verifying its signature.
func AccessTokenExpiry(tokenString string) (time.Time, error) {
	claims := &BackendAccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, fmt.Errorf("decode access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("access token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}
