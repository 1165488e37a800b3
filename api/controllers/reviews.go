package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/shopster-storefront/api/responses"
	"github.com/angelmondragon/shopster-storefront/api/validators"
	"github.com/angelmondragon/shopster-storefront/internal/reviews"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	msgReviewSubmitted = "Thank you! Your review was submitted for moderation."
	msgReviewUpdated   = "Review updated."
	msgReviewDeleted   = "Review deleted."
)

type reviewForm struct {
	reviews.UpdatePayload
	ReturnTo string `form:"return_to"`
}

// ReviewCreate posts a review for the product in the path. Anonymous visitors may
// leave an author name.
func ReviewCreate(svc ReviewService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		back := reviewsAnchor(slug)

		var payload reviews.Payload
		if err := validators.DecodeForm(r, &payload); err != nil {
			flashErr(w, r, logg, err)
			responses.Redirect(w, r, back)
			return
		}
		if _, err := svc.Create(r.Context(), payload, accessToken(r)); err != nil {
			flashErr(w, r, logg, err)
			responses.Redirect(w, r, back)
			return
		}
		setFlash(w, flashSuccess, msgReviewSubmitted)
		responses.Redirect(w, r, back)
	}
}

// ReviewUpdate edits the caller's review.
func ReviewUpdate(svc ReviewService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form reviewForm
		if err := validators.DecodeForm(r, &form); err != nil {
			flashErr(w, r, logg, err)
			responses.Redirect(w, r, validators.SafeRedirect(form.ReturnTo, "/products"))
			return
		}
		back := validators.SafeRedirect(form.ReturnTo, "/products")

		id, err := validators.ParseID(chi.URLParam(r, "id"), "id")
		if err == nil {
			_, err = svc.Update(r.Context(), id, form.UpdatePayload, accessToken(r))
		}
		if err != nil {
			flashErr(w, r, logg, err)
			responses.Redirect(w, r, back)
			return
		}
		setFlash(w, flashSuccess, msgReviewUpdated)
		responses.Redirect(w, r, back)
	}
}

// ReviewDelete removes the caller's review.
func ReviewDelete(svc ReviewService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			flashErr(w, r, logg, err)
			responses.Redirect(w, r, "/products")
			return
		}
		back := validators.SafeRedirect(r.PostForm.Get("return_to"), "/products")

		id, err := validators.ParseID(chi.URLParam(r, "id"), "id")
		if err == nil {
			err = svc.Delete(r.Context(), id, accessToken(r))
		}
		if err != nil {
			flashErr(w, r, logg, err)
			responses.Redirect(w, r, back)
			return
		}
		setFlash(w, flashSuccess, msgReviewDeleted)
		responses.Redirect(w, r, back)
	}
}

// ReviewsJSON serves one page of reviews for the load-more widget.
func ReviewsJSON(svc ReviewService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(r.URL.Query().Get("product_slug"))
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1<<20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), slug, page, accessToken(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func reviewsAnchor(slug string) string {
	if slug == "" {
		return "/products"
	}
	return "/products/" + url.PathEscape(slug) + "#reviews"
}

// flashErr logs err and queues its public message for the next page.
func flashErr(w http.ResponseWriter, r *http.Request, logg *logger.Logger, err error) {
	responses.LogError(r.Context(), logg, err)
	setFlash(w, flashError, responses.PublicMessage(err))
}
