package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	pkgAuth "github.com/angelmondragon/shopster-storefront/pkg/auth"
	"github.com/angelmondragon/shopster-storefront/pkg/auth/session"
	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	"github.com/angelmondragon/shopster-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

const (
	msgMissingCredentials = "Enter email (or username) and password."
	msgInvalidCredentials = "Could not sign in. Check your credentials."
	msgSessionExpired     = "Session expired. Please sign in again."
	msgProfileFailed      = "Unable to save profile."
	defaultRefreshLeeway  = 5 * time.Second
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, visitorID string, req LoginRequest) (*Session, error)
	Current(ctx context.Context, visitorID string) (*Session, error)
	Logout(ctx context.Context, visitorID string) error
	Register(ctx context.Context, visitorID string, req RegisterRequest) (*Session, error)
	RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error
	ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error
	UpdateProfile(ctx context.Context, visitorID string, req ProfileUpdate) (*Session, error)
}

type sessionStore interface {
	Save(ctx context.Context, visitorID string, value any) error
	Load(ctx context.Context, visitorID string, dest any) error
	Revoke(ctx context.Context, visitorID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Client   *backend.Client
	Sessions sessionStore
	Config   config.AuthConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	client   *backend.Client
	sessions sessionStore
	leeway   time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	leeway := params.Config.RefreshLeeway
	if leeway <= 0 {
		leeway = defaultRefreshLeeway
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		client:   params.Client,
		sessions: params.Sessions,
		leeway:   leeway,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Login(ctx context.Context, visitorID string, req LoginRequest) (*Session, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgMissingCredentials)
	}

	var tokens tokenPair
	body := map[string]string{"username": identifier, "password": req.Password}
	if err := s.client.SendJSON(ctx, "auth.login", http.MethodPost, "/api/auth/login/", body, "", &tokens); err != nil {
		return nil, credentialsError(err)
	}

	var user User
	if err := s.client.GetJSON(ctx, "auth.me", "/api/auth/me/", nil, tokens.Access, &user); err != nil {
		return nil, credentialsError(err)
	}

	expires, err := pkgAuth.AccessTokenExpiry(tokens.Access)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msgInvalidCredentials)
	}

	sess := &Session{
		User:               user,
		AccessToken:        tokens.Access,
		RefreshToken:       tokens.Refresh,
		AccessTokenExpires: expires,
	}
	if err := s.sessions.Save(ctx, visitorID, sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}
	return sess, nil
}

// Current returns the visitor's session, refreshing the access token once it is within
// the leeway of expiring. A failed refresh flags the session instead of erroring.
func (s *service) Current(ctx context.Context, visitorID string) (*Session, error) {
	var sess Session
	if err := s.sessions.Load(ctx, visitorID, &sess); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	if !sess.Expired(s.now(), s.leeway) {
		return &sess, nil
	}

	refreshed, err := s.refresh(ctx, &sess)
	if err != nil {
		s.logWarn(ctx, visitorID, "access token refresh failed", err)
		sess.Error = RefreshErrorMarker
		refreshed = &sess
	}
	if err := s.sessions.Save(ctx, visitorID, refreshed); err != nil {
		s.logWarn(ctx, visitorID, "failed to persist refreshed session", err)
	}
	return refreshed, nil
}

func (s *service) refresh(ctx context.Context, sess *Session) (*Session, error) {
	if sess.RefreshToken == "" {
		return nil, errors.New("no refresh token")
	}
	var tokens tokenPair
	body := map[string]string{"refresh": sess.RefreshToken}
	if err := s.client.SendJSON(ctx, "auth.refresh", http.MethodPost, "/api/auth/refresh/", body, "", &tokens); err != nil {
		return nil, err
	}
	expires, err := pkgAuth.AccessTokenExpiry(tokens.Access)
	if err != nil {
		return nil, err
	}
	out := *sess
	out.AccessToken = tokens.Access
	out.AccessTokenExpires = expires
	out.Error = ""
	if tokens.Refresh != "" {
		out.RefreshToken = tokens.Refresh
	}
	return &out, nil
}

func (s *service) Logout(ctx context.Context, visitorID string) error {
	if err := s.sessions.Revoke(ctx, visitorID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) UpdateProfile(ctx context.Context, visitorID string, req ProfileUpdate) (*Session, error) {
	sess, err := s.Current(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.AccessToken == "" || sess.NeedsSignIn() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgSessionExpired)
	}

	var user User
	if err := s.client.SendJSON(ctx, "auth.update_profile", http.MethodPatch, "/api/auth/me/", req, sess.AccessToken, &user); err != nil {
		return nil, relabel(err, backend.Message(err, msgProfileFailed))
	}
	if user.ID == 0 {
		user = sess.User
		user.FirstName = req.FirstName
		user.LastName = req.LastName
		profile := req.Profile
		user.Profile = &profile
	}
	sess.User = user
	if err := s.sessions.Save(ctx, visitorID, sess); err != nil {
		s.logWarn(ctx, visitorID, "failed to persist profile update", err)
	}
	return sess, nil
}

func (s *service) logWarn(ctx context.Context, visitorID, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithError(s.logg.WithVisitorID(ctx, visitorID), err), msg)
}

// credentialsError hides backend detail behind the generic sign-in message but keeps
// transport failures distinguishable.
func credentialsError(err error) error {
	if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msgInvalidCredentials)
}

// relabel keeps the error's code and details but replaces the message.
func relabel(err error, msg string) error {
	code := pkgerrors.CodeDependency
	var details any
	if te := pkgerrors.As(err); te != nil {
		code = te.Code()
		details = te.Details()
	}
	out := pkgerrors.Wrap(code, err, msg)
	if details != nil {
		out = out.WithDetails(details)
	}
	return out
}
