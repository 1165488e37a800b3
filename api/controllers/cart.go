package controllers

import (
	"net/http"

	"github.com/angelmondragon/shopster-storefront/api/responses"
	"github.com/angelmondragon/shopster-storefront/api/validators"
	"github.com/angelmondragon/shopster-storefront/api/views"
	"github.com/angelmondragon/shopster-storefront/internal/cart"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const msgAddedToCart = "Added to cart."

type addItemForm struct {
	ProductID int64  `form:"product_id"`
	Quantity  int    `form:"quantity"`
	ReturnTo  string `form:"return_to"`
}

type quantityForm struct {
	Quantity int `form:"quantity"`
}

type cartData struct {
	Cart cart.State
}

// CartPage renders the visitor's cart. Load failures show inline.
func CartPage(stores CartStores, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := stores.ForVisitor(visitorID(r))
		if err := store.LoadCart(r.Context()); err != nil {
			responses.LogError(r.Context(), logg, err)
		}
		meta := views.Meta{Title: "Cart", Path: "/cart", NoIndex: true}
		state := store.State()
		page := newPage(w, r, meta, cartData{Cart: state})
		page.CartCount = state.TotalItems
		rdr.Render(w, r, http.StatusOK, "cart", page)
	}
}

// CartBadge reads the visitor's item count for the header.
func CartBadge(stores CartStores) func(*http.Request) int {
	return func(r *http.Request) int {
		return stores.ItemCount(r.Context(), visitorID(r))
	}
}

// CartAdd adds a product from a form post and returns to the page it came from.
func CartAdd(stores CartStores, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form addItemForm
		err := validators.DecodeForm(r, &form)
		back := validators.SafeRedirect(form.ReturnTo, "/cart")
		if err == nil && form.ProductID <= 0 {
			err = validators.RequiredID("product_id")
		}
		if err == nil {
			err = stores.ForVisitor(visitorID(r)).AddItem(r.Context(), form.ProductID, form.Quantity)
		}
		if err != nil {
			flashErr(w, r, logg, err)
			responses.Redirect(w, r, back)
			return
		}
		setFlash(w, flashSuccess, msgAddedToCart)
		responses.Redirect(w, r, back)
	}
}

// CartUpdate sets a line quantity from the cart page.
func CartUpdate(stores CartStores, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form quantityForm
		err := validators.DecodeForm(r, &form)
		var itemID int64
		if err == nil {
			itemID, err = validators.ParseID(chi.URLParam(r, "itemID"), "item_id")
		}
		if err == nil {
			err = stores.ForVisitor(visitorID(r)).UpdateItem(r.Context(), itemID, form.Quantity)
		}
		if err != nil {
			flashErr(w, r, logg, err)
		}
		responses.Redirect(w, r, "/cart")
	}
}

// CartRemove deletes a line from the cart page.
func CartRemove(stores CartStores, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseID(chi.URLParam(r, "itemID"), "item_id")
		if err == nil {
			err = stores.ForVisitor(visitorID(r)).RemoveItem(r.Context(), itemID)
		}
		if err != nil {
			flashErr(w, r, logg, err)
		}
		responses.Redirect(w, r, "/cart")
	}
}

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=0,lte=999"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"lte=999"`
}

// CartJSON returns the cart state for client widgets.
func CartJSON(stores CartStores, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := stores.ForVisitor(visitorID(r))
		if err := store.LoadCart(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store.State())
	}
}

// CartAddJSON adds a product and returns the refreshed cart.
func CartAddJSON(stores CartStores, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store := stores.ForVisitor(visitorID(r))
		if err := store.AddItem(r.Context(), payload.ProductID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, store.State())
	}
}

// CartUpdateJSON sets a line quantity and returns the refreshed cart.
func CartUpdateJSON(stores CartStores, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseID(chi.URLParam(r, "itemID"), "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store := stores.ForVisitor(visitorID(r))
		if err := store.UpdateItem(r.Context(), itemID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store.State())
	}
}

// CartRemoveJSON deletes a line and returns the refreshed cart.
func CartRemoveJSON(stores CartStores, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParseID(chi.URLParam(r, "itemID"), "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store := stores.ForVisitor(visitorID(r))
		if err := store.RemoveItem(r.Context(), itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store.State())
	}
}
