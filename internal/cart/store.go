package cart

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/angelmondragon/shopster-storefront/pkg/metrics"
	"github.com/angelmondragon/shopster-storefront/pkg/types"
)

const (
	opEnsure   = "ensure"
	opLoad     = "load"
	opAdd      = "add_item"
	opUpdate   = "update_item"
	opRemove   = "remove_item"
	opClear    = "clear"
	opCheckout = "checkout"
)

// StoreParams wires a Store for a single visitor.
type StoreParams struct {
	VisitorID       string
	API             BackendAPI
	IDs             IDStore
	Locker          Locker
	Metrics         *metrics.CartMetrics
	Logger          *logger.Logger
	DefaultCurrency string
	Now             func() time.Time
}

// Store owns one visitor's cart for the lifetime of a request. Aggregates always come
// from the backend; the store never sums line items itself.
type Store struct {
	mu       sync.Mutex
	p        StoreParams
	state    State
	fetched  bool
	restored bool
}

// NewStore builds a request-scoped cart store.
func NewStore(p StoreParams) *Store {
	if p.Now == nil {
		p.Now = time.Now
	}
	p.DefaultCurrency = strings.ToUpper(strings.TrimSpace(p.DefaultCurrency))
	return &Store{p: p, state: emptyState(p.DefaultCurrency)}
}

// State returns a copy of the current cart state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Items = make([]Item, len(s.state.Items))
	copy(out.Items, s.state.Items)
	return out
}

// EnsureCart returns the visitor's cart id, creating a cart when there is none.
func (s *Store) EnsureCart(ctx context.Context) (string, error) {
	var id string
	err := s.guard(ctx, opEnsure, func() error {
		var err error
		id, err = s.ensureCart(ctx)
		return err
	})
	return id, err
}

// LoadCart refreshes the cart from the backend. A vanished cart resets local state and
// is not reported as an error.
func (s *Store) LoadCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restore(ctx)

	started := s.p.Now()
	err := s.loadCart(ctx)
	s.record(opLoad, started, err)
	return err
}

// AddItem adds quantity units of a product. A product already in the cart has its line
// quantity increased instead of getting a second line.
func (s *Store) AddItem(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	return s.guard(ctx, opAdd, func() error {
		if s.state.CartID != "" && !s.fetched {
			if err := s.loadCart(ctx); err != nil {
				return err
			}
		}
		for _, item := range s.state.Items {
			if item.Product.ID == productID {
				return s.updateItem(ctx, item.ID, item.Quantity+quantity)
			}
		}
		return s.mutate(ctx, mutation{
			op:          opAdd,
			fallback:    MsgAddFailed,
			fieldErrors: true,
			createCart:  true,
			call: func(cartID string) error {
				return s.p.API.AddItem(ctx, cartID, productID, quantity)
			},
		})
	})
}

// UpdateItem sets the quantity of one line. Quantities below one are raised to one.
func (s *Store) UpdateItem(ctx context.Context, itemID int64, quantity int) error {
	return s.guard(ctx, opUpdate, func() error {
		return s.updateItem(ctx, itemID, quantity)
	})
}

// RemoveItem deletes one line.
func (s *Store) RemoveItem(ctx context.Context, itemID int64) error {
	return s.guard(ctx, opRemove, func() error {
		if s.state.CartID == "" {
			return nil
		}
		return s.mutate(ctx, mutation{
			op:       opRemove,
			fallback: MsgRemoveFailed,
			call: func(cartID string) error {
				return s.p.API.RemoveItem(ctx, cartID, itemID)
			},
		})
	})
}

// ClearCart drops local state and forgets the persisted cart id.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.guard(ctx, opClear, func() error {
		s.reset(ctx)
		return nil
	})
}

// Checkout submits the order for the current cart and clears it on success.
func (s *Store) Checkout(ctx context.Context, payload CheckoutPayload) (*OrderResult, error) {
	var result *OrderResult
	err := s.guard(ctx, opCheckout, func() error {
		if s.state.CartID != "" && !s.fetched {
			if err := s.loadCart(ctx); err != nil {
				return err
			}
		}
		if s.state.CartID == "" || s.state.IsEmpty() {
			s.state.Error = MsgCheckoutEmpty
			return pkgerrors.New(pkgerrors.CodeValidation, MsgCheckoutEmpty)
		}
		if err := payload.Validate(); err != nil {
			if te := pkgerrors.As(err); te != nil {
				s.state.Error = te.Message()
			}
			return err
		}

		currency := s.state.Currency
		if currency == "" {
			currency = s.p.DefaultCurrency
		}
		order, err := s.p.API.CreateOrder(ctx, OrderRequest{
			CartID:          s.state.CartID,
			ShippingAmount:  0,
			Currency:        currency,
			CheckoutPayload: payload,
		})
		if err != nil {
			return s.fail(err, backend.Message(err, MsgOrderFailed))
		}
		s.reset(ctx)
		result = order
		return nil
	})
	return result, err
}

// guard serializes the operation in-process and across requests for this visitor.
func (s *Store) guard(ctx context.Context, op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.p.Now()
	if s.p.Locker != nil && s.p.VisitorID != "" {
		unlock, err := s.p.Locker.Lock(ctx, s.p.VisitorID)
		if err != nil {
			s.state.Error = MsgBusy
			s.record(op, started, err)
			return err
		}
		defer unlock()
	}
	s.restore(ctx)

	err := fn()
	s.record(op, started, err)
	return err
}

// restore reads the persisted cart id once per store.
func (s *Store) restore(ctx context.Context) {
	if s.restored {
		return
	}
	s.restored = true
	if s.p.IDs == nil || s.state.CartID != "" {
		return
	}
	id, err := s.p.IDs.Load(ctx, s.p.VisitorID)
	if err != nil {
		s.logError(ctx, "failed to restore cart id", err)
		return
	}
	s.state.CartID = id
}

func (s *Store) ensureCart(ctx context.Context) (string, error) {
	if s.state.CartID != "" {
		return s.state.CartID, nil
	}
	snap, err := s.p.API.Create(ctx)
	if err != nil {
		return "", s.fail(err, MsgCreateFailed)
	}
	s.adopt(ctx, snap)
	return s.state.CartID, nil
}

func (s *Store) loadCart(ctx context.Context) error {
	if s.state.CartID == "" {
		return nil
	}
	s.state.IsLoading = true
	snap, err := s.p.API.Get(ctx, s.state.CartID)
	s.state.IsLoading = false
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStaleResource) {
			s.resetStale(ctx, opLoad)
			return nil
		}
		return s.fail(err, MsgLoadFailed)
	}
	s.adopt(ctx, snap)
	return nil
}

func (s *Store) updateItem(ctx context.Context, itemID int64, quantity int) error {
	if s.state.CartID == "" {
		return nil
	}
	if quantity < 1 {
		quantity = 1
	}
	return s.mutate(ctx, mutation{
		op:       opUpdate,
		fallback: MsgUpdateFailed,
		call: func(cartID string) error {
			return s.p.API.UpdateItem(ctx, cartID, itemID, quantity)
		},
	})
}

type mutation struct {
	op       string
	fallback string
	// fieldErrors surfaces backend field messages instead of the fallback.
	fieldErrors bool
	// createCart ensures a cart before the call and allows one recreate-and-retry
	// when the cart turns out to be stale.
	createCart bool
	call       func(cartID string) error
}

// mutate runs a cart write. A stale cart resets local state before anything else; only
// mutations that may create a cart retry, and only once. Success is followed by a reload.
func (s *Store) mutate(ctx context.Context, m mutation) error {
	cartID := s.state.CartID
	if m.createCart {
		id, err := s.ensureCart(ctx)
		if err != nil {
			return err
		}
		cartID = id
	}

	err := m.call(cartID)
	if pkgerrors.IsCode(err, pkgerrors.CodeStaleResource) {
		s.resetStale(ctx, m.op)
		if !m.createCart {
			return pkgerrors.Wrap(pkgerrors.CodeStaleResource, err, MsgRefreshed)
		}
		id, cerr := s.ensureCart(ctx)
		if cerr != nil {
			return cerr
		}
		err = m.call(id)
		if pkgerrors.IsCode(err, pkgerrors.CodeStaleResource) {
			s.resetStale(ctx, m.op)
			return pkgerrors.Wrap(pkgerrors.CodeStaleResource, err, MsgRefreshed)
		}
	}
	if err != nil {
		msg := m.fallback
		if m.fieldErrors {
			msg = backend.Message(err, m.fallback)
		}
		return s.fail(err, msg)
	}

	s.state.Error = ""
	// A failed reload is already recorded on the state.
	_ = s.loadCart(ctx)
	return nil
}

// adopt replaces local state with the backend snapshot and persists the id.
func (s *Store) adopt(ctx context.Context, snap *Snapshot) {
	if snap == nil {
		return
	}
	previous := s.state.CartID
	items := snap.Items
	if items == nil {
		items = []Item{}
	}
	s.state.CartID = snap.ID
	s.state.Items = items
	s.state.Subtotal = snap.Subtotal
	s.state.TotalItems = snap.TotalItems
	s.state.Currency = s.currencyOf(items)
	s.fetched = true

	if s.p.IDs != nil && snap.ID != "" && snap.ID != previous {
		if err := s.p.IDs.Save(ctx, s.p.VisitorID, snap.ID); err != nil {
			s.logError(ctx, "failed to persist cart id", err)
		}
	}
}

func (s *Store) currencyOf(items []Item) string {
	for _, item := range items {
		if c := strings.ToUpper(strings.TrimSpace(item.Product.Currency)); c != "" {
			return c
		}
	}
	return s.p.DefaultCurrency
}

func emptyState(currency string) State {
	return State{Items: []Item{}, Subtotal: types.ZeroMoney(), Currency: currency}
}

// reset empties local state and forgets the persisted id.
func (s *Store) reset(ctx context.Context) {
	s.state = emptyState(s.p.DefaultCurrency)
	s.fetched = false
	if s.p.IDs != nil {
		if err := s.p.IDs.Forget(ctx, s.p.VisitorID); err != nil {
			s.logError(ctx, "failed to forget cart id", err)
		}
	}
}

func (s *Store) resetStale(ctx context.Context, op string) {
	s.reset(ctx)
	s.state.Error = MsgRefreshed
	s.p.Metrics.IncStaleReset(op)
	if s.p.Logger != nil {
		s.p.Logger.Warn(s.p.Logger.WithField(ctx, "cart_op", op), "cart no longer exists; local state reset")
	}
}

// fail records msg on the state and returns err re-labelled with it.
func (s *Store) fail(err error, msg string) error {
	s.state.Error = msg
	code := pkgerrors.CodeDependency
	var details any
	if te := pkgerrors.As(err); te != nil {
		code = te.Code()
		details = te.Details()
	}
	wrapped := pkgerrors.Wrap(code, err, msg)
	if details != nil {
		wrapped = wrapped.WithDetails(details)
	}
	return wrapped
}

func (s *Store) record(op string, started time.Time, err error) {
	s.p.Metrics.ObserveDuration(op, s.p.Now().Sub(started))
	if err != nil {
		s.p.Metrics.IncFailure(op)
		return
	}
	s.p.Metrics.IncSuccess(op)
}

func (s *Store) logError(ctx context.Context, msg string, err error) {
	if s.p.Logger == nil {
		return
	}
	s.p.Logger.Error(s.p.Logger.WithCart(ctx, s.p.VisitorID, s.state.CartID), msg, err)
}
