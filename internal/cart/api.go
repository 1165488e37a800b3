package cart

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
)

// BackendAPI is the remote cart and order resource. Any 404 on a cart or item path is
// reported as pkgerrors.CodeStaleResource.
type BackendAPI interface {
	Create(ctx context.Context) (*Snapshot, error)
	Get(ctx context.Context, cartID string) (*Snapshot, error)
	AddItem(ctx context.Context, cartID string, productID int64, quantity int) error
	UpdateItem(ctx context.Context, cartID string, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, cartID string, itemID int64) error
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

type backendAPI struct {
	client *backend.Client
}

// NewBackendAPI adapts the REST client to BackendAPI.
func NewBackendAPI(client *backend.Client) (BackendAPI, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &backendAPI{client: client}, nil
}

func (a *backendAPI) Create(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := a.client.SendJSON(ctx, "carts.create", http.MethodPost, "/api/carts/", map[string]any{}, "", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (a *backendAPI) Get(ctx context.Context, cartID string) (*Snapshot, error) {
	var snap Snapshot
	if err := a.client.GetJSON(ctx, "carts.get", cartPath(cartID), nil, "", &snap); err != nil {
		return nil, stale(err)
	}
	return &snap, nil
}

func (a *backendAPI) AddItem(ctx context.Context, cartID string, productID int64, quantity int) error {
	body := map[string]any{"product_id": productID, "quantity": quantity}
	err := a.client.SendJSON(ctx, "carts.add_item", http.MethodPost, cartPath(cartID)+"items/", body, "", nil)
	return stale(err)
}

func (a *backendAPI) UpdateItem(ctx context.Context, cartID string, itemID int64, quantity int) error {
	body := map[string]any{"quantity": quantity}
	err := a.client.SendJSON(ctx, "carts.update_item", http.MethodPatch, itemPath(cartID, itemID), body, "", nil)
	return stale(err)
}

func (a *backendAPI) RemoveItem(ctx context.Context, cartID string, itemID int64) error {
	err := a.client.SendJSON(ctx, "carts.remove_item", http.MethodDelete, itemPath(cartID, itemID), nil, "", nil)
	return stale(err)
}

func (a *backendAPI) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	var out OrderResult
	if err := a.client.SendJSON(ctx, "orders.create", http.MethodPost, "/api/orders/", req, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func cartPath(cartID string) string {
	return "/api/carts/" + url.PathEscape(cartID) + "/"
}

func itemPath(cartID string, itemID int64) string {
	return fmt.Sprintf("%sitems/%d/", cartPath(cartID), itemID)
}

// stale turns a 404 into the stale-resource kind and leaves other errors untouched.
func stale(err error) error {
	if err == nil {
		return nil
	}
	if backend.HasStatus(err, http.StatusNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeStaleResource, err, MsgRefreshed)
	}
	return err
}
