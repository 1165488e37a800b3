package cart

import (
	"context"
	"testing"
)

func TestItemCount(t *testing.T) {
	api := newFakeAPI()
	ids := newMemoryIDs()
	factory, err := NewFactory(FactoryParams{API: api, IDs: ids})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	ctx := context.Background()

	if got := factory.ItemCount(ctx, "visitor-1"); got != 0 {
		t.Fatalf("visitor without cart: got %d", got)
	}
	if api.created != 0 {
		t.Fatal("badge lookup must not create carts")
	}

	store := factory.ForVisitor("visitor-1")
	if err := store.AddItem(ctx, 7, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.AddItem(ctx, 9, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := factory.ItemCount(ctx, "visitor-1"); got != 3 {
		t.Fatalf("expected 3 items got %d", got)
	}

	ids.ids["visitor-2"] = "gone"
	if got := factory.ItemCount(ctx, "visitor-2"); got != 0 {
		t.Fatalf("stale cart: got %d", got)
	}
	if _, ok := ids.ids["visitor-2"]; !ok {
		t.Fatal("badge lookup must leave the stored id to the cart page")
	}
	if got := factory.ItemCount(ctx, ""); got != 0 {
		t.Fatalf("anonymous request: got %d", got)
	}
}
