package controllers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopster-storefront/api/middleware"
	"github.com/angelmondragon/shopster-storefront/api/responses"
	"github.com/angelmondragon/shopster-storefront/api/validators"
	"github.com/angelmondragon/shopster-storefront/api/views"
	"github.com/angelmondragon/shopster-storefront/internal/auth"
	"github.com/angelmondragon/shopster-storefront/internal/cart"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

const checkoutSuccessPath = "/checkout/success"

type checkoutData struct {
	Cart  cart.State
	Form  cart.CheckoutPayload
	Error string
	// IdempotencyKey makes a double-submitted form place one order.
	IdempotencyKey string
}

// CheckoutPage renders the checkout form prefilled from the signed-in profile.
func CheckoutPage(stores CartStores, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := stores.ForVisitor(visitorID(r))
		if err := store.LoadCart(r.Context()); err != nil {
			responses.LogError(r.Context(), logg, err)
		}
		form := prefillCheckout(middleware.SessionFromContext(r.Context()))
		renderCheckout(rdr, w, r, http.StatusOK, checkoutData{Cart: store.State(), Form: form})
	}
}

// CheckoutSubmit places the order and sends the visitor to the confirmation page.
func CheckoutSubmit(stores CartStores, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := stores.ForVisitor(visitorID(r))

		var form cart.CheckoutPayload
		if err := validators.DecodeForm(r, &form); err != nil {
			if lerr := store.LoadCart(r.Context()); lerr != nil {
				responses.LogError(r.Context(), logg, lerr)
			}
			renderCheckout(rdr, w, r, responses.StatusFor(err), checkoutData{Cart: store.State(), Form: form, Error: responses.PublicMessage(err)})
			return
		}
		form = trimCheckout(form)

		order, err := store.Checkout(r.Context(), form)
		if err != nil {
			responses.LogError(r.Context(), logg, err)
			renderCheckout(rdr, w, r, responses.StatusFor(err), checkoutData{Cart: store.State(), Form: form, Error: responses.PublicMessage(err)})
			return
		}
		responses.Redirect(w, r, checkoutSuccessURL(order))
	}
}

type checkoutSuccessData struct {
	OrderID         string
	ActivationEmail string
}

// CheckoutSuccess thanks the visitor for the order.
func CheckoutSuccess(rdr *views.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data := checkoutSuccessData{
			OrderID:         validators.SanitizeString(q.Get("order"), 32),
			ActivationEmail: validators.SanitizeString(q.Get("activationEmail"), 254),
		}
		meta := views.Meta{Title: "Thank you!", Path: checkoutSuccessPath, NoIndex: true}
		rdr.Render(w, r, http.StatusOK, "checkout_success", newPage(w, r, meta, data))
	}
}

func renderCheckout(rdr *views.Renderer, w http.ResponseWriter, r *http.Request, status int, data checkoutData) {
	meta := views.Meta{Title: "Checkout", Path: "/checkout", NoIndex: true}
	if data.IdempotencyKey == "" {
		data.IdempotencyKey = uuid.NewString()
	}
	rdr.Render(w, r, status, "checkout", newPage(w, r, meta, data))
}

func checkoutSuccessURL(order *cart.OrderResult) string {
	if order == nil {
		return checkoutSuccessPath
	}
	q := url.Values{}
	if order.ID > 0 {
		q.Set("order", strconv.FormatInt(order.ID, 10))
	}
	if order.RequiresAccountActivation {
		email := order.ActivationEmail
		if email == "" {
			email = order.CustomerEmail
		}
		if email != "" {
			q.Set("activationEmail", email)
		}
	}
	if len(q) == 0 {
		return checkoutSuccessPath
	}
	return checkoutSuccessPath + "?" + q.Encode()
}

func prefillCheckout(sess *auth.Session) cart.CheckoutPayload {
	if sess == nil || sess.NeedsSignIn() {
		return cart.CheckoutPayload{}
	}
	user := sess.User
	form := cart.CheckoutPayload{
		CustomerEmail:    user.Email,
		ShippingFullName: strings.TrimSpace(user.FirstName + " " + user.LastName),
	}
	if p := user.Profile; p != nil {
		form.CustomerPhone = p.Phone
		form.ShippingAddress = p.DefaultShippingAddress
		form.ShippingCity = p.DefaultShippingCity
		form.ShippingPostcode = p.DefaultShippingPostcode
		form.ShippingCountry = p.DefaultShippingCountry
	}
	return form
}

func trimCheckout(p cart.CheckoutPayload) cart.CheckoutPayload {
	p.CustomerEmail = strings.TrimSpace(p.CustomerEmail)
	p.CustomerPhone = strings.TrimSpace(p.CustomerPhone)
	p.ShippingFullName = strings.TrimSpace(p.ShippingFullName)
	p.ShippingAddress = strings.TrimSpace(p.ShippingAddress)
	p.ShippingCity = strings.TrimSpace(p.ShippingCity)
	p.ShippingPostcode = strings.TrimSpace(p.ShippingPostcode)
	p.ShippingCountry = strings.TrimSpace(p.ShippingCountry)
	p.Notes = strings.TrimSpace(p.Notes)
	return p
}
