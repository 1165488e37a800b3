package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/angelmondragon/shopster-storefront/pkg/metrics"
)

// Factory hands out request-scoped stores that share the long-lived collaborators.
type Factory struct {
	api             BackendAPI
	ids             IDStore
	locker          Locker
	metrics         *metrics.CartMetrics
	logg            *logger.Logger
	defaultCurrency string
}

// FactoryParams groups the shared collaborators.
type FactoryParams struct {
	API             BackendAPI
	IDs             IDStore
	Locker          Locker
	Metrics         *metrics.CartMetrics
	Logger          *logger.Logger
	DefaultCurrency string
}

// NewFactory validates the collaborators.
func NewFactory(p FactoryParams) (*Factory, error) {
	if p.API == nil {
		return nil, fmt.Errorf("cart backend api required")
	}
	if p.IDs == nil {
		return nil, fmt.Errorf("cart id store required")
	}
	return &Factory{
		api:             p.API,
		ids:             p.IDs,
		locker:          p.Locker,
		metrics:         p.Metrics,
		logg:            p.Logger,
		defaultCurrency: p.DefaultCurrency,
	}, nil
}

// ForVisitor returns a fresh store bound to visitorID.
func (f *Factory) ForVisitor(visitorID string) *Store {
	return NewStore(StoreParams{
		VisitorID:       visitorID,
		API:             f.api,
		IDs:             f.ids,
		Locker:          f.locker,
		Metrics:         f.metrics,
		Logger:          f.logg,
		DefaultCurrency: f.defaultCurrency,
	})
}

// ItemCount is the visitor's cart total for the header badge. Visitors without a stored
// cart id cost no backend call. Lookup failures count as zero and leave the id alone.
func (f *Factory) ItemCount(ctx context.Context, visitorID string) int {
	if visitorID == "" {
		return 0
	}
	cartID, err := f.ids.Load(ctx, visitorID)
	if err != nil || cartID == "" {
		return 0
	}
	snap, err := f.api.Get(ctx, cartID)
	if err != nil || snap == nil {
		return 0
	}
	return snap.TotalItems
}
