package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopbook/shopbook/internal/inventory"
	"github.com/shopbook/shopbook/internal/shared"
)

type fakeRepo struct {
	purchases    map[int64]Purchase
	items        map[int64][]PurchaseItem
	stock        map[string]inventory.Item
	suppliers    map[int64]int64 // supplier id -> owning account
	attachments  map[int64]BillAttachment
	nextPurchase int64
	nextItem     int64
	nextStock    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		purchases:   make(map[int64]Purchase),
		items:       make(map[int64][]PurchaseItem),
		stock:       make(map[string]inventory.Item),
		suppliers:   make(map[int64]int64),
		attachments: make(map[int64]BillAttachment),
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	// mutations here are simple enough that the tests never rely on rollback
	return fn(ctx, &fakeTx{repo: f})
}

func (f *fakeRepo) Get(ctx context.Context, accountID, purchaseID int64) (*Purchase, error) {
	p, ok := f.purchases[purchaseID]
	if !ok || p.OwnerAccountID != accountID {
		return nil, shared.ErrNotFound
	}
	p.Items = append([]PurchaseItem(nil), f.items[purchaseID]...)
	return &p, nil
}

func (f *fakeRepo) List(ctx context.Context, accountID int64, status *string, limit, offset int) ([]Purchase, int, error) {
	var out []Purchase
	for _, p := range f.purchases {
		if p.OwnerAccountID != accountID {
			continue
		}
		if status != nil && string(p.PaymentStatus) != *status {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) SetStatus(ctx context.Context, accountID, purchaseID int64, status PaymentStatus) error {
	p, ok := f.purchases[purchaseID]
	if !ok || p.OwnerAccountID != accountID {
		return shared.ErrNotFound
	}
	p.PaymentStatus = status
	f.purchases[purchaseID] = p
	return nil
}

func (f *fakeRepo) SaveAttachment(ctx context.Context, accountID int64, att BillAttachment) error {
	p, ok := f.purchases[att.PurchaseID]
	if !ok || p.OwnerAccountID != accountID {
		return shared.ErrNotFound
	}
	key := att.Key
	p.AttachmentKey = &key
	f.purchases[att.PurchaseID] = p
	f.attachments[att.PurchaseID] = att
	return nil
}

func (f *fakeRepo) GetAttachment(ctx context.Context, accountID, purchaseID int64) (BillAttachment, error) {
	p, ok := f.purchases[purchaseID]
	if !ok || p.OwnerAccountID != accountID {
		return BillAttachment{}, shared.ErrNotFound
	}
	att, ok := f.attachments[purchaseID]
	if !ok {
		return BillAttachment{}, shared.ErrNotFound
	}
	return att, nil
}

type fakeTx struct {
	repo *fakeRepo
}

func (t *fakeTx) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	t.repo.nextPurchase++
	p.ID = t.repo.nextPurchase
	p.Items = nil
	t.repo.purchases[p.ID] = p
	return p.ID, nil
}

func (t *fakeTx) UpdatePurchase(ctx context.Context, p Purchase) error {
	if _, ok := t.repo.purchases[p.ID]; !ok {
		return shared.ErrNotFound
	}
	p.Items = nil
	t.repo.purchases[p.ID] = p
	return nil
}

func (t *fakeTx) DeletePurchase(ctx context.Context, accountID, purchaseID int64) error {
	p, ok := t.repo.purchases[purchaseID]
	if !ok || p.OwnerAccountID != accountID {
		return shared.ErrNotFound
	}
	delete(t.repo.purchases, purchaseID)
	return nil
}

func (t *fakeTx) GetForUpdate(ctx context.Context, accountID, purchaseID int64) (Purchase, error) {
	p, ok := t.repo.purchases[purchaseID]
	if !ok || p.OwnerAccountID != accountID {
		return Purchase{}, shared.ErrNotFound
	}
	p.Items = append([]PurchaseItem(nil), t.repo.items[purchaseID]...)
	return p, nil
}

func (t *fakeTx) InsertItems(ctx context.Context, purchaseID int64, items []PurchaseItem) error {
	for _, item := range items {
		t.repo.nextItem++
		item.ID = t.repo.nextItem
		item.PurchaseID = purchaseID
		t.repo.items[purchaseID] = append(t.repo.items[purchaseID], item)
	}
	return nil
}

func (t *fakeTx) DeleteItems(ctx context.Context, purchaseID int64) error {
	delete(t.repo.items, purchaseID)
	return nil
}

func (t *fakeTx) MergeStock(ctx context.Context, accountID int64, name string, qty, unitPrice decimal.Decimal) (inventory.Item, error) {
	key := inventory.NormalizeName(name)
	existing, ok := t.repo.stock[key]
	if !ok || existing.OwnerAccountID != accountID {
		t.repo.nextStock++
		item := inventory.Item{
			ID:             t.repo.nextStock,
			OwnerAccountID: accountID,
			Name:           name,
			Quantity:       qty,
			PurchaseValue:  unitPrice,
			SalesValue:     unitPrice,
		}
		t.repo.stock[key] = item
		return item, nil
	}
	existing.PurchaseValue = inventory.WeightedAverageCost(existing.Quantity, existing.PurchaseValue, qty, unitPrice)
	existing.Quantity = existing.Quantity.Add(qty)
	t.repo.stock[key] = existing
	return existing, nil
}

func (t *fakeTx) SupplierExists(ctx context.Context, accountID, supplierID int64) (bool, error) {
	owner, ok := t.repo.suppliers[supplierID]
	return ok && owner == accountID, nil
}

func acct(id int64) shared.AccountContext {
	return shared.AccountContext{AccountID: id}
}

func createReq(lines ...PurchaseLineRequest) CreatePurchaseRequest {
	return CreatePurchaseRequest{
		SupplierID:    1,
		PurchaseDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PaymentStatus: "pending",
		Items:         lines,
	}
}

func TestCreateMergesFlaggedLines(t *testing.T) {
	repo := newFakeRepo()
	repo.suppliers[1] = 1
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, acct(1), createReq(
		PurchaseLineRequest{Description: "Sugar 1kg", Quantity: 10, UnitPrice: 38, AddToInventory: true},
		PurchaseLineRequest{Description: "Shop rent", Quantity: 1, UnitPrice: 5000},
	))
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(5380).Equal(p.TotalAmount))

	// only the flagged line landed in stock, priced at its unit cost
	require.Len(t, repo.stock, 1)
	item := repo.stock[inventory.NormalizeName("Sugar 1kg")]
	require.True(t, decimal.NewFromInt(10).Equal(item.Quantity))
	require.True(t, decimal.NewFromInt(38).Equal(item.PurchaseValue))
}

func TestCreateMergeUsesWeightedAverage(t *testing.T) {
	repo := newFakeRepo()
	repo.suppliers[1] = 1
	svc := NewService(repo, nil)
	ctx := context.Background()

	repo.stock[inventory.NormalizeName("Sugar 1kg")] = inventory.Item{
		ID: 1, OwnerAccountID: 1, Name: "Sugar 1kg",
		Quantity:      decimal.NewFromInt(10),
		PurchaseValue: decimal.NewFromInt(100),
	}

	_, err := svc.Create(ctx, acct(1), createReq(
		PurchaseLineRequest{Description: "sugar 1KG", Quantity: 5, UnitPrice: 130, AddToInventory: true}))
	require.NoError(t, err)

	item := repo.stock[inventory.NormalizeName("Sugar 1kg")]
	require.True(t, decimal.NewFromInt(15).Equal(item.Quantity))
	require.True(t, decimal.NewFromInt(110).Equal(item.PurchaseValue), "cost %s", item.PurchaseValue)
}

func TestUpdateMergesOnlyNewlyFlagged(t *testing.T) {
	repo := newFakeRepo()
	repo.suppliers[1] = 1
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, acct(1), createReq(
		PurchaseLineRequest{Description: "Sugar 1kg", Quantity: 10, UnitPrice: 38, AddToInventory: true}))
	require.NoError(t, err)

	// resend the sugar line unchanged and flag a new tea line
	_, err = svc.Update(ctx, acct(1), p.ID, UpdatePurchaseRequest{
		Items: []PurchaseLineRequest{
			{Description: "Sugar 1kg", Quantity: 10, UnitPrice: 38, AddToInventory: true},
			{Description: "Tea 250g", Quantity: 4, UnitPrice: 80, AddToInventory: true},
		},
	})
	require.NoError(t, err)

	// sugar was not double-counted
	sugar := repo.stock[inventory.NormalizeName("Sugar 1kg")]
	require.True(t, decimal.NewFromInt(10).Equal(sugar.Quantity), "sugar %s", sugar.Quantity)
	tea := repo.stock[inventory.NormalizeName("Tea 250g")]
	require.True(t, decimal.NewFromInt(4).Equal(tea.Quantity))
}

func TestDeleteKeepsMergedStock(t *testing.T) {
	repo := newFakeRepo()
	repo.suppliers[1] = 1
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, acct(1), createReq(
		PurchaseLineRequest{Description: "Sugar 1kg", Quantity: 10, UnitPrice: 38, AddToInventory: true}))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, acct(1), p.ID))
	require.Empty(t, repo.purchases)

	// goods already on the shelf stay there
	item := repo.stock[inventory.NormalizeName("Sugar 1kg")]
	require.True(t, decimal.NewFromInt(10).Equal(item.Quantity))
}

func TestCreateUnknownSupplier(t *testing.T) {
	repo := newFakeRepo()
	repo.suppliers[1] = 2 // belongs to another account
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), acct(1), createReq(
		PurchaseLineRequest{Description: "Sugar 1kg", Quantity: 1, UnitPrice: 38}))
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.purchases)
}

func TestSetStatus(t *testing.T) {
	repo := newFakeRepo()
	repo.suppliers[1] = 1
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, acct(1), createReq(
		PurchaseLineRequest{Description: "Sugar 1kg", Quantity: 1, UnitPrice: 38}))
	require.NoError(t, err)
	require.Equal(t, PaymentStatusPending, p.PaymentStatus)

	updated, err := svc.SetStatus(ctx, acct(1), p.ID, SetStatusRequest{Status: "paid"})
	require.NoError(t, err)
	require.Equal(t, PaymentStatusPaid, updated.PaymentStatus)
}

func TestAttachmentRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	repo.suppliers[1] = 1
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, acct(1), createReq(
		PurchaseLineRequest{Description: "Sugar 1kg", Quantity: 1, UnitPrice: 38}))
	require.NoError(t, err)

	att, err := svc.AttachBill(ctx, acct(1), p.ID, "bill.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NotEmpty(t, att.Key)

	got, err := svc.Attachment(ctx, acct(1), p.ID)
	require.NoError(t, err)
	require.Equal(t, att.Key, got.Key)
	require.Equal(t, []byte("%PDF-1.4"), got.Data)

	// other tenants see nothing
	_, err = svc.Attachment(ctx, acct(2), p.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
