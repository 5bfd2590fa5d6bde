package billing

import (
	"context"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopbook/shopbook/internal/inventory"
	"github.com/shopbook/shopbook/internal/shared"
)

// fakeRepo keeps everything in maps and gives WithTx copy-on-commit
// semantics so failed transactions leave no trace, like the real thing.
type fakeRepo struct {
	estimates    map[int64]Estimate
	items        map[int64][]EstimateItem
	payments     map[int64][]EstimatePayment
	stock        map[int64]inventory.Item
	nextEstimate int64
	nextPayment  int64
	nextItem     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		estimates: make(map[int64]Estimate),
		items:     make(map[int64][]EstimateItem),
		payments:  make(map[int64][]EstimatePayment),
		stock:     make(map[int64]inventory.Item),
	}
}

func (f *fakeRepo) clone() *fakeRepo {
	c := newFakeRepo()
	c.nextEstimate, c.nextPayment, c.nextItem = f.nextEstimate, f.nextPayment, f.nextItem
	for k, v := range f.estimates {
		c.estimates[k] = v
	}
	for k, v := range f.items {
		c.items[k] = append([]EstimateItem(nil), v...)
	}
	for k, v := range f.payments {
		c.payments[k] = append([]EstimatePayment(nil), v...)
	}
	for k, v := range f.stock {
		c.stock[k] = v
	}
	return c
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := f.clone()
	if err := fn(ctx, &fakeTx{repo: snapshot}); err != nil {
		return err
	}
	*f = *snapshot
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, accountID, estimateID int64) (*Estimate, error) {
	e, ok := f.estimates[estimateID]
	if !ok || e.OwnerAccountID != accountID {
		return nil, shared.ErrNotFound
	}
	e.Items = append([]EstimateItem(nil), f.items[estimateID]...)
	return &e, nil
}

func (f *fakeRepo) List(ctx context.Context, accountID int64, req ListEstimatesRequest) ([]Estimate, int, error) {
	var out []Estimate
	for _, e := range f.estimates {
		if e.OwnerAccountID == accountID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) ListPayments(ctx context.Context, accountID, estimateID int64) ([]EstimatePayment, error) {
	if _, err := f.Get(ctx, accountID, estimateID); err != nil {
		return nil, err
	}
	return append([]EstimatePayment(nil), f.payments[estimateID]...), nil
}

func (f *fakeRepo) CustomerLedger(ctx context.Context, accountID int64) ([]LedgerEntry, error) {
	byCustomer := make(map[string]*LedgerEntry)
	for id, e := range f.estimates {
		if e.OwnerAccountID != accountID || e.PaymentType != PaymentTypeCredit || e.PaymentReceivedDate != nil {
			continue
		}
		entry, ok := byCustomer[e.CustomerName]
		if !ok {
			entry = &LedgerEntry{CustomerName: e.CustomerName}
			byCustomer[e.CustomerName] = entry
		}
		entry.Billed = entry.Billed.Add(e.TotalAmount)
		for _, p := range f.payments[id] {
			entry.Received = entry.Received.Add(p.Amount)
		}
	}
	var out []LedgerEntry
	for _, entry := range byCustomer {
		entry.Outstanding = entry.Billed.Sub(entry.Received)
		out = append(out, *entry)
	}
	return out, nil
}

type fakeTx struct {
	repo *fakeRepo
}

var seqPattern = regexp.MustCompile(`^[A-Z]+-(\d+)$`)

func (t *fakeTx) nextNumber(accountID int64, prefix string, pick func(Estimate) *string) string {
	var max int64
	for _, e := range t.repo.estimates {
		if e.OwnerAccountID != accountID {
			continue
		}
		value := pick(e)
		if value == nil {
			continue
		}
		if m := seqPattern.FindStringSubmatch(*value); m != nil {
			if n, _ := strconv.ParseInt(m[1], 10, 64); n > max {
				max = n
			}
		}
	}
	return FormatNumber(prefix, max+1)
}

func (t *fakeTx) NextEstimateNumber(ctx context.Context, accountID int64) (string, error) {
	return t.nextNumber(accountID, "EST", func(e Estimate) *string { return &e.EstimateNumber }), nil
}

func (t *fakeTx) NextBillNumber(ctx context.Context, accountID int64) (string, error) {
	return t.nextNumber(accountID, "BILL", func(e Estimate) *string { return e.BillNumber }), nil
}

func (t *fakeTx) InsertEstimate(ctx context.Context, e Estimate) (int64, error) {
	t.repo.nextEstimate++
	e.ID = t.repo.nextEstimate
	e.Items = nil
	t.repo.estimates[e.ID] = e
	return e.ID, nil
}

func (t *fakeTx) UpdateEstimate(ctx context.Context, e Estimate) error {
	if _, ok := t.repo.estimates[e.ID]; !ok {
		return shared.ErrNotFound
	}
	e.Items = nil
	t.repo.estimates[e.ID] = e
	return nil
}

func (t *fakeTx) DeleteEstimate(ctx context.Context, accountID, estimateID int64) error {
	e, ok := t.repo.estimates[estimateID]
	if !ok || e.OwnerAccountID != accountID {
		return shared.ErrNotFound
	}
	delete(t.repo.estimates, estimateID)
	return nil
}

func (t *fakeTx) GetForUpdate(ctx context.Context, accountID, estimateID int64) (Estimate, error) {
	e, ok := t.repo.estimates[estimateID]
	if !ok || e.OwnerAccountID != accountID {
		return Estimate{}, shared.ErrNotFound
	}
	e.Items = append([]EstimateItem(nil), t.repo.items[estimateID]...)
	return e, nil
}

func (t *fakeTx) InsertItems(ctx context.Context, estimateID int64, items []EstimateItem) error {
	for _, item := range items {
		t.repo.nextItem++
		item.ID = t.repo.nextItem
		item.EstimateID = estimateID
		t.repo.items[estimateID] = append(t.repo.items[estimateID], item)
	}
	return nil
}

func (t *fakeTx) DeleteItems(ctx context.Context, estimateID int64) error {
	delete(t.repo.items, estimateID)
	return nil
}

func (t *fakeTx) SetBillNumber(ctx context.Context, accountID, estimateID int64, billNumber string) error {
	e, ok := t.repo.estimates[estimateID]
	if !ok || e.OwnerAccountID != accountID || e.BillNumber != nil {
		return ErrAlreadyConverted
	}
	e.BillNumber = &billNumber
	t.repo.estimates[estimateID] = e
	return nil
}

func (t *fakeTx) SumPayments(ctx context.Context, estimateID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range t.repo.payments[estimateID] {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

func (t *fakeTx) InsertPayment(ctx context.Context, p EstimatePayment) (int64, error) {
	t.repo.nextPayment++
	p.ID = t.repo.nextPayment
	t.repo.payments[p.EstimateID] = append(t.repo.payments[p.EstimateID], p)
	return p.ID, nil
}

func (t *fakeTx) StampPaymentReceived(ctx context.Context, estimateID int64, date time.Time, mode PaymentMode) error {
	e := t.repo.estimates[estimateID]
	e.PaymentReceivedDate = &date
	e.PaymentReceivedMode = &mode
	t.repo.estimates[estimateID] = e
	return nil
}

func (t *fakeTx) AdjustStock(ctx context.Context, accountID, itemID int64, delta decimal.Decimal) error {
	item, ok := t.repo.stock[itemID]
	if !ok || item.OwnerAccountID != accountID {
		return shared.ErrNotFound
	}
	next := item.Quantity.Add(delta)
	if next.Sign() < 0 {
		return &inventory.InsufficientStockError{
			ItemName:  item.Name,
			Available: item.Quantity,
			Required:  delta.Neg(),
		}
	}
	item.Quantity = next
	t.repo.stock[itemID] = item
	return nil
}

func acct(id int64) shared.AccountContext {
	return shared.AccountContext{AccountID: id}
}

func admin(id int64) shared.AccountContext {
	return shared.AccountContext{AccountID: id, Admin: true}
}

func seedStock(repo *fakeRepo, id, accountID int64, name string, qty int64) {
	repo.stock[id] = inventory.Item{
		ID:             id,
		OwnerAccountID: accountID,
		Name:           name,
		Quantity:       decimal.NewFromInt(qty),
	}
}

func itemID(id int64) *int64 { return &id }

func createReq(lines ...EstimateLineRequest) CreateEstimateRequest {
	return CreateEstimateRequest{
		CustomerName: "Asha Stores",
		IssueDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PaymentType:  "cash",
		Items:        lines,
	}
}

func TestCreateComputesTotalsAndNumbers(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	req := createReq(EstimateLineRequest{Description: "Notebook", Quantity: 4, UnitPrice: 50})
	req.DiscountPercentage = 10
	req.TaxPercentage = 5

	first, err := svc.Create(ctx, acct(1), req)
	require.NoError(t, err)
	require.Equal(t, "EST-001", first.EstimateNumber)
	// 200 - 20 discount = 180, +9 tax = 189
	require.True(t, decimal.NewFromInt(200).Equal(first.Subtotal), "subtotal %s", first.Subtotal)
	require.True(t, decimal.NewFromInt(20).Equal(first.DiscountAmount))
	require.True(t, decimal.NewFromInt(9).Equal(first.TaxAmount))
	require.True(t, decimal.NewFromInt(189).Equal(first.TotalAmount))

	second, err := svc.Create(ctx, acct(1), createReq(
		EstimateLineRequest{Description: "Pen", Quantity: 1, UnitPrice: 10}))
	require.NoError(t, err)
	require.Equal(t, "EST-002", second.EstimateNumber)

	// numbering is scoped per account
	other, err := svc.Create(ctx, acct(2), createReq(
		EstimateLineRequest{Description: "Pen", Quantity: 1, UnitPrice: 10}))
	require.NoError(t, err)
	require.Equal(t, "EST-001", other.EstimateNumber)
}

func TestCreateDeductsLinkedStock(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	seedStock(repo, 7, 1, "Sugar 1kg", 5)

	_, err := svc.Create(ctx, acct(1), createReq(
		EstimateLineRequest{Description: "Sugar 1kg", Quantity: 2, UnitPrice: 45, InventoryItemID: itemID(7)}))
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(3).Equal(repo.stock[7].Quantity))
}

func TestCreateInsufficientStockLeavesNothingBehind(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	seedStock(repo, 7, 1, "Sugar 1kg", 5)

	_, err := svc.Create(ctx, acct(1), createReq(
		EstimateLineRequest{Description: "Sugar 1kg", Quantity: 8, UnitPrice: 45, InventoryItemID: itemID(7)}))
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	// nothing committed: no estimate, stock untouched
	require.Empty(t, repo.estimates)
	require.True(t, decimal.NewFromInt(5).Equal(repo.stock[7].Quantity))
}

func TestDeleteRestoresStock(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	seedStock(repo, 7, 1, "Sugar 1kg", 5)

	est, err := svc.Create(ctx, acct(1), createReq(
		EstimateLineRequest{Description: "Sugar 1kg", Quantity: 2, UnitPrice: 45, InventoryItemID: itemID(7)}))
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(3).Equal(repo.stock[7].Quantity))

	require.NoError(t, svc.Delete(ctx, acct(1), est.ID))
	require.True(t, decimal.NewFromInt(5).Equal(repo.stock[7].Quantity))
	require.Empty(t, repo.estimates)
}

func TestUpdateNetsStockDeltas(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	seedStock(repo, 7, 1, "Sugar 1kg", 10)
	seedStock(repo, 8, 1, "Tea 250g", 10)

	est, err := svc.Create(ctx, acct(1), createReq(
		EstimateLineRequest{Description: "Sugar 1kg", Quantity: 4, UnitPrice: 45, InventoryItemID: itemID(7)}))
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(6).Equal(repo.stock[7].Quantity))

	// swap lines: sugar drops to 1 unit, tea enters with 3
	_, err = svc.Update(ctx, acct(1), est.ID, UpdateEstimateRequest{
		Items: []EstimateLineRequest{
			{Description: "Sugar 1kg", Quantity: 1, UnitPrice: 45, InventoryItemID: itemID(7)},
			{Description: "Tea 250g", Quantity: 3, UnitPrice: 80, InventoryItemID: itemID(8)},
		},
	})
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(9).Equal(repo.stock[7].Quantity), "sugar %s", repo.stock[7].Quantity)
	require.True(t, decimal.NewFromInt(7).Equal(repo.stock[8].Quantity), "tea %s", repo.stock[8].Quantity)
}

func TestConvertIsOneWay(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	est, err := svc.Create(ctx, acct(1), createReq(
		EstimateLineRequest{Description: "Pen", Quantity: 1, UnitPrice: 10}))
	require.NoError(t, err)

	converted, err := svc.ConvertToBill(ctx, acct(1), est.ID)
	require.NoError(t, err)
	require.NotNil(t, converted.BillNumber)
	require.Equal(t, "BILL-001", *converted.BillNumber)

	_, err = svc.ConvertToBill(ctx, acct(1), est.ID)
	require.ErrorIs(t, err, ErrAlreadyConverted)

	_, err = svc.Update(ctx, acct(1), est.ID, UpdateEstimateRequest{
		Items: []EstimateLineRequest{{Description: "Pen", Quantity: 2, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, ErrConverted)

	require.ErrorIs(t, svc.Delete(ctx, acct(1), est.ID), ErrConverted)

	// admin override still removes the bill
	require.NoError(t, svc.DeleteAsAdmin(ctx, admin(1), est.ID))
	require.Empty(t, repo.estimates)
}

func TestDeleteAsAdminRequiresAdmin(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	err := svc.DeleteAsAdmin(context.Background(), acct(1), 1)
	require.Error(t, err)
}

func TestPartialPaymentsSettle(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	req := createReq(EstimateLineRequest{Description: "Stock lot", Quantity: 1, UnitPrice: 100})
	req.PaymentType = "credit"
	est, err := svc.Create(ctx, acct(1), req)
	require.NoError(t, err)

	pay := func(amount float64, mode string) error {
		_, err := svc.RecordPayment(ctx, acct(1), est.ID, RecordPaymentRequest{
			Amount: amount, PaymentDate: est.IssueDate, Mode: mode,
		})
		return err
	}

	require.NoError(t, pay(40, "cash"))
	_, state, err := svc.ListPayments(ctx, acct(1), est.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentStatePartiallyPaid, state)

	require.NoError(t, pay(60, "upi"))
	payments, state, err := svc.ListPayments(ctx, acct(1), est.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentStatePaid, state)
	require.Len(t, payments, 2)

	// settlement stamps the received date with the closing payment's mode
	settled, err := svc.Get(ctx, acct(1), est.ID)
	require.NoError(t, err)
	require.NotNil(t, settled.PaymentReceivedDate)
	require.Equal(t, PaymentModeUPI, *settled.PaymentReceivedMode)

	err = pay(1, "cash")
	require.ErrorIs(t, err, ErrOverpayment)
}

func TestOverpaymentRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	req := createReq(EstimateLineRequest{Description: "Stock lot", Quantity: 1, UnitPrice: 100})
	req.PaymentType = "credit"
	est, err := svc.Create(ctx, acct(1), req)
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, acct(1), est.ID, RecordPaymentRequest{
		Amount: 150, PaymentDate: est.IssueDate, Mode: "cash",
	})
	require.ErrorIs(t, err, ErrOverpayment)
	require.Empty(t, repo.payments[est.ID])
}

func TestPaymentsRequireCreditType(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	est, err := svc.Create(ctx, acct(1), createReq(
		EstimateLineRequest{Description: "Pen", Quantity: 1, UnitPrice: 10}))
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, acct(1), est.ID, RecordPaymentRequest{
		Amount: 5, PaymentDate: est.IssueDate, Mode: "cash",
	})
	require.ErrorIs(t, err, ErrNotCredit)

	_, err = svc.MarkPaid(ctx, acct(1), est.ID, MarkPaidRequest{
		ReceivedDate: est.IssueDate, Mode: "cash",
	})
	require.ErrorIs(t, err, ErrNotCredit)
}

func TestCrossAccountLookupsAreNotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	est, err := svc.Create(ctx, acct(1), createReq(
		EstimateLineRequest{Description: "Pen", Quantity: 1, UnitPrice: 10}))
	require.NoError(t, err)

	_, err = svc.Get(ctx, acct(2), est.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.ConvertToBill(ctx, acct(2), est.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFormatNumberPadding(t *testing.T) {
	require.Equal(t, "EST-001", FormatNumber("EST", 1))
	require.Equal(t, "EST-042", FormatNumber("EST", 42))
	require.Equal(t, "BILL-999", FormatNumber("BILL", 999))
	require.Equal(t, "BILL-1000", FormatNumber("BILL", 1000))
}
