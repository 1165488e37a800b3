package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/shopster-storefront/api/middleware"
	"github.com/angelmondragon/shopster-storefront/api/responses"
	"github.com/angelmondragon/shopster-storefront/api/validators"
	"github.com/angelmondragon/shopster-storefront/api/views"
	"github.com/angelmondragon/shopster-storefront/internal/auth"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

const (
	defaultAfterSignIn = "/account"

	msgPasswordUpdated = "Password updated. You can now sign in using your new password."
	msgSignedOut       = "You have been signed out."
	msgProfileSaved    = "Profile saved."
)

// authPages maps each auth screen to its template and metadata.
var authPages = map[string]views.Meta{
	"signin":          {Title: "Sign in", Path: "/signin"},
	"signup":          {Title: "Create account", Path: "/signup"},
	"forgot_password": {Title: "Forgot password?", Path: "/forgot-password"},
	"reset_password":  {Title: "Set a new password", Path: "/reset-password", NoIndex: true},
}

type authFormData struct {
	Form        any
	Error       string
	Done        bool
	CallbackURL string
}

func blankAuthForm(name string) any {
	switch name {
	case "signin":
		return auth.LoginRequest{}
	case "signup":
		return auth.RegisterRequest{}
	case "forgot_password":
		return auth.PasswordResetRequest{}
	default:
		return auth.PasswordResetConfirm{}
	}
}

func renderAuth(rdr *views.Renderer, w http.ResponseWriter, r *http.Request, status int, name string, data authFormData) {
	if data.Form == nil {
		data.Form = blankAuthForm(name)
	}
	rdr.Render(w, r, status, name, newPage(w, r, authPages[name], data))
}

// RateLimitedForm re-renders the auth screen with the throttling message.
func RateLimitedForm(rdr *views.Renderer, name string) middleware.RejectFunc {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		data := authFormData{
			Error:       responses.PublicMessage(err),
			CallbackURL: validators.SafeRedirect(r.PostFormValue("callbackUrl"), ""),
		}
		if name == "reset_password" {
			data.Form = auth.PasswordResetConfirm{UID: r.PostFormValue("uid"), Token: r.PostFormValue("token")}
		}
		renderAuth(rdr, w, r, responses.StatusFor(err), name, data)
	}
}

func callbackURL(raw string) string {
	return validators.SafeRedirect(raw, defaultAfterSignIn)
}

// SignInPage renders the sign-in form. Signed-in visitors go straight to the callback.
func SignInPage(rdr *views.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callback := r.URL.Query().Get("callbackUrl")
		if accessToken(r) != "" {
			responses.Redirect(w, r, callbackURL(callback))
			return
		}
		renderAuth(rdr, w, r, http.StatusOK, "signin", authFormData{
			CallbackURL: validators.SafeRedirect(callback, ""),
		})
	}
}

// SignIn exchanges the credentials for a session.
func SignIn(svc auth.Service, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form auth.LoginRequest
		if err := validators.DecodeForm(r, &form); err != nil {
			renderAuth(rdr, w, r, responses.StatusFor(err), "signin", authFormData{Form: form, Error: responses.PublicMessage(err)})
			return
		}
		if _, err := svc.Login(r.Context(), visitorID(r), form); err != nil {
			responses.LogError(r.Context(), logg, err)
			form.Password = ""
			renderAuth(rdr, w, r, responses.StatusFor(err), "signin", authFormData{
				Form:        form,
				Error:       responses.PublicMessage(err),
				CallbackURL: validators.SafeRedirect(form.CallbackURL, ""),
			})
			return
		}
		responses.Redirect(w, r, callbackURL(form.CallbackURL))
	}
}

// SignUpPage renders the registration form.
func SignUpPage(rdr *views.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if accessToken(r) != "" {
			responses.Redirect(w, r, defaultAfterSignIn)
			return
		}
		renderAuth(rdr, w, r, http.StatusOK, "signup", authFormData{})
	}
}

// SignUp creates the account and signs the visitor in. When the automatic sign-in
// fails the account still exists, so the visitor is sent to sign in by hand.
func SignUp(svc auth.Service, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form auth.RegisterRequest
		if err := validators.DecodeForm(r, &form); err != nil {
			renderAuth(rdr, w, r, responses.StatusFor(err), "signup", authFormData{Form: form, Error: responses.PublicMessage(err)})
			return
		}
		_, err := svc.Register(r.Context(), visitorID(r), form)
		switch {
		case err == nil:
			responses.Redirect(w, r, defaultAfterSignIn)
		case errors.Is(err, auth.ErrAutoSignIn):
			setFlash(w, flashInfo, responses.PublicMessage(err))
			responses.Redirect(w, r, middleware.SignInPath)
		default:
			responses.LogError(r.Context(), logg, err)
			form.Password, form.PasswordConfirm = "", ""
			renderAuth(rdr, w, r, responses.StatusFor(err), "signup", authFormData{Form: form, Error: responses.PublicMessage(err)})
		}
	}
}

// ForgotPasswordPage renders the recovery request form.
func ForgotPasswordPage(rdr *views.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderAuth(rdr, w, r, http.StatusOK, "forgot_password", authFormData{})
	}
}

// ForgotPassword asks the backend to email a reset link.
func ForgotPassword(svc auth.Service, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form auth.PasswordResetRequest
		err := validators.DecodeForm(r, &form)
		if err == nil {
			err = svc.RequestPasswordReset(r.Context(), form)
		}
		if err != nil {
			responses.LogError(r.Context(), logg, err)
			renderAuth(rdr, w, r, responses.StatusFor(err), "forgot_password", authFormData{Form: form, Error: responses.PublicMessage(err)})
			return
		}
		renderAuth(rdr, w, r, http.StatusOK, "forgot_password", authFormData{Done: true})
	}
}

// ResetPasswordPage renders the new-password form for the emailed uid and token.
func ResetPasswordPage(rdr *views.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		form := auth.PasswordResetConfirm{
			UID:   strings.TrimSpace(q.Get("uid")),
			Token: strings.TrimSpace(q.Get("token")),
		}
		renderAuth(rdr, w, r, http.StatusOK, "reset_password", authFormData{Form: form})
	}
}

// ResetPassword sets the new password.
func ResetPassword(svc auth.Service, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form auth.PasswordResetConfirm
		err := validators.DecodeForm(r, &form)
		if err == nil {
			err = svc.ConfirmPasswordReset(r.Context(), form)
		}
		if err != nil {
			responses.LogError(r.Context(), logg, err)
			form.Password, form.PasswordConfirm = "", ""
			renderAuth(rdr, w, r, responses.StatusFor(err), "reset_password", authFormData{Form: form, Error: responses.PublicMessage(err)})
			return
		}
		setFlash(w, flashSuccess, msgPasswordUpdated)
		responses.Redirect(w, r, middleware.SignInPath)
	}
}

// SignOut drops the visitor's session.
func SignOut(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context(), visitorID(r)); err != nil {
			flashErr(w, r, logg, err)
			responses.Redirect(w, r, "/")
			return
		}
		setFlash(w, flashInfo, msgSignedOut)
		responses.Redirect(w, r, "/")
	}
}

type accountData struct {
	User  auth.User
	Form  auth.ProfileUpdate
	Error string
}

// AccountPage renders the profile form of the signed-in user.
func AccountPage(rdr *views.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		renderAccount(rdr, w, r, http.StatusOK, accountData{User: sess.User, Form: profileForm(sess.User)})
	}
}

// AccountUpdate saves the profile form.
func AccountUpdate(svc auth.Service, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())

		var form auth.ProfileUpdate
		err := validators.DecodeForm(r, &form)
		if err == nil {
			_, err = svc.UpdateProfile(r.Context(), visitorID(r), form)
		}
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
				responses.Redirect(w, r, middleware.SignInURL("/account"))
				return
			}
			responses.LogError(r.Context(), logg, err)
			renderAccount(rdr, w, r, responses.StatusFor(err), accountData{User: sess.User, Form: form, Error: responses.PublicMessage(err)})
			return
		}
		setFlash(w, flashSuccess, msgProfileSaved)
		responses.Redirect(w, r, "/account")
	}
}

func renderAccount(rdr *views.Renderer, w http.ResponseWriter, r *http.Request, status int, data accountData) {
	meta := views.Meta{Title: "Account", Path: "/account", NoIndex: true}
	rdr.Render(w, r, status, "account", newPage(w, r, meta, data))
}

func profileForm(user auth.User) auth.ProfileUpdate {
	form := auth.ProfileUpdate{FirstName: user.FirstName, LastName: user.LastName}
	if user.Profile != nil {
		form.Profile = *user.Profile
	}
	return form
}
