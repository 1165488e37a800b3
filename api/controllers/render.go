package controllers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/angelmondragon/shopster-storefront/api/middleware"
	"github.com/angelmondragon/shopster-storefront/api/responses"
	"github.com/angelmondragon/shopster-storefront/api/views"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

const (
	flashCookie = "sf_flash"

	flashSuccess = "success"
	flashError   = "error"
	flashInfo    = "info"
)

// newPage assembles the template input and consumes any pending flash.
func newPage(w http.ResponseWriter, r *http.Request, meta views.Meta, data any) views.Page {
	return views.Page{
		Meta:    meta,
		Session: middleware.SessionFromContext(r.Context()),
		Flash:   popFlash(w, r),
		Data:    data,
	}
}

func setFlash(w http.ResponseWriter, kind, message string) {
	raw, err := json.Marshal(views.Flash{Kind: kind, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func popFlash(w http.ResponseWriter, r *http.Request) *views.Flash {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var flash views.Flash
	if err := json.Unmarshal(raw, &flash); err != nil || flash.Message == "" {
		return nil
	}
	return &flash
}

type errorData struct {
	Status  int
	Message string
}

// renderError shows err inline on the generic error page with its mapped status.
func renderError(rdr *views.Renderer, logg *logger.Logger, w http.ResponseWriter, r *http.Request, err error) {
	responses.LogError(r.Context(), logg, err)
	status := responses.StatusFor(err)
	rdr.Render(w, r, status, "error", newPage(w, r, views.Meta{Title: http.StatusText(status), NoIndex: true}, errorData{
		Status:  status,
		Message: responses.PublicMessage(err),
	}))
}

func renderNotFound(rdr *views.Renderer, w http.ResponseWriter, r *http.Request) {
	rdr.Render(w, r, http.StatusNotFound, "not_found", newPage(w, r, views.Meta{Title: "Page not found", NoIndex: true}, nil))
}

// NotFound renders the 404 page for unmatched routes.
func NotFound(rdr *views.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderNotFound(rdr, w, r)
	}
}

func visitorID(r *http.Request) string {
	return middleware.VisitorIDFromContext(r.Context())
}

func accessToken(r *http.Request) string {
	return middleware.AccessToken(r.Context())
}
