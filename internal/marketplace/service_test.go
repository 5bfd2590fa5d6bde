package marketplace

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopbook/shopbook/internal/inventory"
	"github.com/shopbook/shopbook/internal/shared"
)

type memoryRepo struct {
	listings map[int64]Listing
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{listings: make(map[int64]Listing)}
}

func (r *memoryRepo) Publish(ctx context.Context, l Listing) (Listing, error) {
	for _, existing := range r.listings {
		if existing.SellerAccountID == l.SellerAccountID && existing.InventoryItemID == l.InventoryItemID {
			return Listing{}, ErrAlreadyPublished
		}
	}
	r.nextID++
	l.ID = r.nextID
	r.listings[l.ID] = l
	return l, nil
}

func (r *memoryRepo) Unpublish(ctx context.Context, sellerAccountID, listingID int64) error {
	l, ok := r.listings[listingID]
	if !ok || l.SellerAccountID != sellerAccountID {
		return shared.ErrNotFound
	}
	delete(r.listings, listingID)
	return nil
}

func (r *memoryRepo) Search(ctx context.Context, query string, limit, offset int) ([]Listing, int, error) {
	var out []Listing
	for _, l := range r.listings {
		if query == "" || inventory.NormalizeName(l.Title) == inventory.NormalizeName(query) {
			out = append(out, l)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) ListMine(ctx context.Context, sellerAccountID int64) ([]Listing, error) {
	var out []Listing
	for _, l := range r.listings {
		if l.SellerAccountID == sellerAccountID {
			out = append(out, l)
		}
	}
	return out, nil
}

type memoryStock struct {
	items map[int64]inventory.Item
}

func (s *memoryStock) Get(ctx context.Context, accountID, itemID int64) (inventory.Item, error) {
	it, ok := s.items[itemID]
	if !ok || it.OwnerAccountID != accountID {
		return inventory.Item{}, shared.ErrNotFound
	}
	return it, nil
}

func acct(id int64) shared.AccountContext {
	return shared.AccountContext{AccountID: id}
}

func TestPublishUsesSalesValueByDefault(t *testing.T) {
	repo := newMemoryRepo()
	stock := &memoryStock{items: map[int64]inventory.Item{
		5: {ID: 5, OwnerAccountID: 1, Name: "Sugar 1kg", SalesValue: decimal.NewFromInt(45)},
	}}
	svc := NewService(repo, stock, nil)
	ctx := context.Background()

	listing, err := svc.Publish(ctx, acct(1), PublishRequest{InventoryItemID: 5})
	require.NoError(t, err)
	require.Equal(t, "Sugar 1kg", listing.Title)
	require.True(t, decimal.NewFromInt(45).Equal(listing.Price))

	_, err = svc.Publish(ctx, acct(1), PublishRequest{InventoryItemID: 5})
	require.ErrorIs(t, err, ErrAlreadyPublished)
}

func TestPublishOtherTenantsItem(t *testing.T) {
	repo := newMemoryRepo()
	stock := &memoryStock{items: map[int64]inventory.Item{
		5: {ID: 5, OwnerAccountID: 2, Name: "Sugar 1kg"},
	}}
	svc := NewService(repo, stock, nil)

	_, err := svc.Publish(context.Background(), acct(1), PublishRequest{InventoryItemID: 5})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSearchSpansTenants(t *testing.T) {
	repo := newMemoryRepo()
	stock := &memoryStock{items: map[int64]inventory.Item{
		1: {ID: 1, OwnerAccountID: 1, Name: "Sugar 1kg", SalesValue: decimal.NewFromInt(45)},
		2: {ID: 2, OwnerAccountID: 2, Name: "sugar 1KG", SalesValue: decimal.NewFromInt(44)},
	}}
	svc := NewService(repo, stock, nil)
	ctx := context.Background()

	_, err := svc.Publish(ctx, acct(1), PublishRequest{InventoryItemID: 1})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, acct(2), PublishRequest{InventoryItemID: 2})
	require.NoError(t, err)

	listings, _, err := svc.Search(ctx, "SUGAR  1kg", 1, 50)
	require.NoError(t, err)
	require.Len(t, listings, 2)
}

func TestUnpublishScopedToSeller(t *testing.T) {
	repo := newMemoryRepo()
	stock := &memoryStock{items: map[int64]inventory.Item{
		1: {ID: 1, OwnerAccountID: 1, Name: "Sugar 1kg", SalesValue: decimal.NewFromInt(45)},
	}}
	svc := NewService(repo, stock, nil)
	ctx := context.Background()

	listing, err := svc.Publish(ctx, acct(1), PublishRequest{InventoryItemID: 1})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Unpublish(ctx, acct(2), listing.ID), shared.ErrNotFound)
	require.NoError(t, svc.Unpublish(ctx, acct(1), listing.ID))
}
