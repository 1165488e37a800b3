package cart

import (
	"encoding/json"

	"github.com/angelmondragon/shopster-storefront/internal/catalog"
	"github.com/angelmondragon/shopster-storefront/pkg/types"
	"github.com/angelmondragon/shopster-storefront/pkg/validation"
)

// User-facing messages.
const (
	MsgCreateFailed  = "Failed to create cart."
	MsgLoadFailed    = "Failed to load cart."
	MsgAddFailed     = "Failed to add product to cart."
	MsgUpdateFailed  = "Failed to update cart."
	MsgRemoveFailed  = "Failed to remove product from cart."
	MsgCheckoutEmpty = "Cart is empty."
	MsgOrderFailed   = "Failed to submit order."
	MsgRefreshed     = "Cart session was refreshed. Please try again."
	MsgBusy          = "Cart is busy. Please try again."
)

// Item is one cart line. Subtotal is computed by the backend.
type Item struct {
	ID       int64                  `json:"id"`
	Quantity int                    `json:"quantity"`
	Subtotal types.Money            `json:"subtotal"`
	Product  catalog.ProductSummary `json:"product"`
}

// Snapshot is the backend's cart representation.
type Snapshot struct {
	ID         string      `json:"id"`
	Items      []Item      `json:"items"`
	Subtotal   types.Money `json:"subtotal"`
	TotalItems int         `json:"total_items"`
}

// State is the visitor's view of the cart. Only CartID outlives a request.
type State struct {
	CartID     string      `json:"cart_id"`
	Items      []Item      `json:"items"`
	Subtotal   types.Money `json:"subtotal"`
	TotalItems int         `json:"total_items"`
	Currency   string      `json:"currency"`
	IsLoading  bool        `json:"is_loading"`
	Error      string      `json:"error,omitempty"`
}

// MarshalJSON reports a missing cart as a null cart_id and never emits null items.
func (s State) MarshalJSON() ([]byte, error) {
	type plain State
	out := struct {
		plain
		CartID *string `json:"cart_id"`
		Items  []Item  `json:"items"`
	}{plain: plain(s), Items: s.Items}
	if s.CartID != "" {
		id := s.CartID
		out.CartID = &id
	}
	if out.Items == nil {
		out.Items = []Item{}
	}
	return json.Marshal(out)
}

// IsEmpty reports whether the cart has no lines.
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// CheckoutPayload holds the contact and shipping details entered at checkout.
type CheckoutPayload struct {
	CustomerEmail    string `json:"customer_email" form:"customer_email" validate:"required,email"`
	CustomerPhone    string `json:"customer_phone,omitempty" form:"customer_phone" validate:"max=32"`
	ShippingFullName string `json:"shipping_full_name" form:"shipping_full_name" validate:"required,max=255"`
	ShippingAddress  string `json:"shipping_address" form:"shipping_address" validate:"required,max=255"`
	ShippingCity     string `json:"shipping_city" form:"shipping_city" validate:"required,max=120"`
	ShippingPostcode string `json:"shipping_postcode,omitempty" form:"shipping_postcode" validate:"max=20"`
	ShippingCountry  string `json:"shipping_country,omitempty" form:"shipping_country" validate:"max=120"`
	Notes            string `json:"notes,omitempty" form:"notes" validate:"max=2000"`
}

// Validate checks the payload before it is sent.
func (p CheckoutPayload) Validate() error {
	return validation.Struct(p)
}

// OrderRequest is the body of the order creation call.
type OrderRequest struct {
	CartID         string `json:"cart_id"`
	ShippingAmount int    `json:"shipping_amount"`
	Currency       string `json:"currency"`
	CheckoutPayload
}

// OrderResult describes the created order. When the order was placed by a guest
// the backend may provision an account and report where the activation email went.
type OrderResult struct {
	ID                        int64  `json:"id"`
	CustomerEmail             string `json:"customer_email"`
	RequiresAccountActivation bool   `json:"requires_account_activation"`
	ActivationEmail           string `json:"activation_email,omitempty"`
}
