package auth

import (
	"strings"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/validation"
)

// RefreshErrorMarker flags a session whose access token could not be renewed.
const RefreshErrorMarker = "RefreshAccessTokenError"

// Profile holds the optional contact and default shipping details.
type Profile struct {
	Phone                   string  `json:"phone,omitempty" form:"phone" validate:"max=32"`
	Avatar                  *string `json:"avatar,omitempty" form:"-"`
	DefaultShippingAddress  string  `json:"default_shipping_address,omitempty" form:"default_shipping_address" validate:"max=255"`
	DefaultShippingCity     string  `json:"default_shipping_city,omitempty" form:"default_shipping_city" validate:"max=120"`
	DefaultShippingPostcode string  `json:"default_shipping_postcode,omitempty" form:"default_shipping_postcode" validate:"max=20"`
	DefaultShippingCountry  string  `json:"default_shipping_country,omitempty" form:"default_shipping_country" validate:"max=120"`
}

// User is the backend account as returned by /api/auth/me/.
type User struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	IsStaff     bool     `json:"is_staff"`
	IsSuperuser bool     `json:"is_superuser"`
	Profile     *Profile `json:"profile,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Session is what the storefront keeps per visitor after sign-in.
type Session struct {
	User               User      `json:"user"`
	AccessToken        string    `json:"access_token"`
	RefreshToken       string    `json:"refresh_token"`
	AccessTokenExpires time.Time `json:"access_token_expires"`
	Error              string    `json:"error,omitempty"`
}

// Expired reports whether the access token should be refreshed at now.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	return !now.Before(s.AccessTokenExpires.Add(-leeway))
}

// NeedsSignIn reports whether the last refresh failed.
func (s *Session) NeedsSignIn() bool {
	return s != nil && s.Error == RefreshErrorMarker
}

// LoginRequest captures the sign-in form. Identifier is an email or username.
type LoginRequest struct {
	Identifier  string `json:"identifier" form:"identifier"`
	Password    string `json:"password" form:"password"`
	CallbackURL string `json:"-" form:"callbackUrl"`
}

// RegisterRequest mirrors the backend registration payload.
type RegisterRequest struct {
	Username        string `json:"username" form:"username" validate:"required,min=2,max=150"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm" validate:"required"`
	FirstName       string `json:"first_name" form:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" form:"last_name" validate:"max=150"`
}

// Validate applies the sign-up form rules.
func (r RegisterRequest) Validate() error {
	if err := passwordsMatch(r.Password, r.PasswordConfirm); err != nil {
		return err
	}
	return validation.Struct(r)
}

// PasswordResetRequest starts the recovery flow.
type PasswordResetRequest struct {
	Email string `json:"email" form:"email"`
}

// PasswordResetConfirm sets a new password with the emailed uid/token pair.
type PasswordResetConfirm struct {
	UID             string `json:"uid" form:"uid"`
	Token           string `json:"token" form:"token"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm"`
}

// ProfileUpdate is the PATCH body for /api/auth/me/.
type ProfileUpdate struct {
	FirstName string  `json:"first_name" form:"first_name" validate:"max=150"`
	LastName  string  `json:"last_name" form:"last_name" validate:"max=150"`
	Profile   Profile `json:"profile" form:"profile"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
