package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
)

const (
	msgRegisterFailed     = "Could not create account."
	msgAutoSignInFailed   = "Account created but automatic sign-in failed. Please log in manually."
	msgPasswordsMismatch  = "Passwords do not match."
	msgPasswordTooShort   = "Password must contain at least 6 characters."
	msgEmailRequired      = "Email is required."
	msgResetEmailFailed   = "Failed to send reset email. Please try again later."
	msgResetConfirmFailed = "Failed to update password."
	msgInvalidResetLink   = "Invalid link. Check that you used the latest link from the recovery email."
	minPasswordLength     = 6
)

// ErrAutoSignIn is returned by Register when the account exists but signing in failed.
var ErrAutoSignIn = pkgerrors.New(pkgerrors.CodeUnauthorized, msgAutoSignInFailed)

// Register creates the account and signs the visitor in with the same credentials.
func (s *service) Register(ctx context.Context, visitorID string, req RegisterRequest) (*Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.client.SendJSON(ctx, "auth.register", http.MethodPost, "/api/auth/register/", req, "", nil); err != nil {
		return nil, relabel(err, backend.Message(err, msgRegisterFailed))
	}

	sess, err := s.Login(ctx, visitorID, LoginRequest{Identifier: req.Username, Password: req.Password})
	if err != nil {
		s.logWarn(ctx, visitorID, "automatic sign-in after registration failed", err)
		return nil, ErrAutoSignIn
	}
	return sess, nil
}

// RequestPasswordReset asks the backend to email a recovery link. The outcome does not
// reveal whether the address is registered.
func (s *service) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, msgEmailRequired)
	}
	body := map[string]string{"email": email}
	if err := s.client.SendJSON(ctx, "auth.password_reset", http.MethodPost, "/api/auth/password/reset/", body, "", nil); err != nil {
		return relabel(err, msgResetEmailFailed)
	}
	return nil
}

// ConfirmPasswordReset sets the new password for the uid/token pair from the email.
func (s *service) ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error {
	if strings.TrimSpace(req.UID) == "" || strings.TrimSpace(req.Token) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, msgInvalidResetLink)
	}
	if len([]rune(req.Password)) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, msgPasswordTooShort)
	}
	if err := passwordsMatch(req.Password, req.PasswordConfirm); err != nil {
		return err
	}
	if err := s.client.SendJSON(ctx, "auth.password_reset_confirm", http.MethodPost, "/api/auth/password/reset/confirm/", req, "", nil); err != nil {
		return relabel(err, backend.Message(err, msgResetConfirmFailed))
	}
	return nil
}

func passwordsMatch(password, confirm string) error {
	if password != confirm {
		return pkgerrors.New(pkgerrors.CodeValidation, msgPasswordsMismatch)
	}
	return nil
}
