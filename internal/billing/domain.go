package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType is how the customer settles an estimate. Credit estimates are
// tracked through the payments ledger until fully paid.
type PaymentType string

const (
	PaymentTypeCash   PaymentType = "cash"
	PaymentTypeCard   PaymentType = "card"
	PaymentTypeUPI    PaymentType = "upi"
	PaymentTypeCredit PaymentType = "credit"
)

// PaymentMode is the instrument of an individual payment. "credit" is never
// a mode; it only exists as a type on the estimate itself.
type PaymentMode string

const (
	PaymentModeCash PaymentMode = "cash"
	PaymentModeCard PaymentMode = "card"
	PaymentModeUPI  PaymentMode = "upi"
)

// PaymentState is derived by comparing the payment sum to the total; it is
// never stored.
type PaymentState string

const (
	PaymentStateUnpaid        PaymentState = "unpaid"
	PaymentStatePartiallyPaid PaymentState = "partially_paid"
	PaymentStatePaid          PaymentState = "paid"
)

// Estimate is a quote issued to a customer. Assigning a bill number converts
// it into a bill, after which edits and deletes are rejected.
type Estimate struct {
	ID                  int64           `json:"id"`
	OwnerAccountID      int64           `json:"-"`
	CreatedBySubuserID  *int64          `json:"createdBySubuserId,omitempty"`
	EstimateNumber      string          `json:"estimateNumber"`
	BillNumber          *string         `json:"billNumber,omitempty"`
	CustomerName        string          `json:"customerName"`
	CustomerContact     string          `json:"customerContact,omitempty"`
	IssueDate           time.Time       `json:"issueDate"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	DiscountPercentage  decimal.Decimal `json:"discountPercentage"`
	DiscountAmount      decimal.Decimal `json:"discountAmount"`
	TaxPercentage       decimal.Decimal `json:"taxPercentage"`
	TaxAmount           decimal.Decimal `json:"taxAmount"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	PaymentType         PaymentType     `json:"paymentType"`
	ExpectedPaymentDate *time.Time      `json:"expectedPaymentDate,omitempty"`
	PaymentReceivedDate *time.Time      `json:"paymentReceivedDate,omitempty"`
	PaymentReceivedMode *PaymentMode    `json:"paymentReceivedMode,omitempty"`
	Notes               *string         `json:"notes,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	Items               []EstimateItem  `json:"items,omitempty"`
}

// Converted reports whether a bill number has been assigned.
func (e *Estimate) Converted() bool {
	return e.BillNumber != nil
}

// PaymentStateFor derives the payment lifecycle state from the sum of
// recorded payments.
func (e *Estimate) PaymentStateFor(paid decimal.Decimal) PaymentState {
	switch {
	case paid.Sign() <= 0:
		return PaymentStateUnpaid
	case paid.LessThan(e.TotalAmount):
		return PaymentStatePartiallyPaid
	default:
		return PaymentStatePaid
	}
}

// EstimateItem is one line of an estimate. The set is replaced wholesale on
// every update; lines are never patched in place.
type EstimateItem struct {
	ID              int64           `json:"id"`
	EstimateID      int64           `json:"estimateId"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Amount          decimal.Decimal `json:"amount"`
	InventoryItemID *int64          `json:"inventoryItemId,omitempty"`
}

// EstimatePayment is one immutable ledger entry against a credit estimate.
type EstimatePayment struct {
	ID                 int64           `json:"id"`
	EstimateID         int64           `json:"estimateId"`
	Amount             decimal.Decimal `json:"amount"`
	PaymentDate        time.Time       `json:"paymentDate"`
	Mode               PaymentMode     `json:"mode"`
	Notes              *string         `json:"notes,omitempty"`
	CreatedBySubuserID *int64          `json:"createdBySubuserId,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// LedgerEntry aggregates outstanding credit per customer.
type LedgerEntry struct {
	CustomerName string          `json:"customerName"`
	Billed       decimal.Decimal `json:"billed"`
	Received     decimal.Decimal `json:"received"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

var (
	// ErrConverted rejects edits and deletes once a bill number is assigned.
	ErrConverted = errors.New("billing: estimate already converted to a bill")
	// ErrAlreadyConverted rejects a second conversion.
	ErrAlreadyConverted = errors.New("billing: bill number already assigned")
	// ErrNotCredit rejects payment operations on non-credit estimates.
	ErrNotCredit = errors.New("billing: payments only apply to credit estimates")
	// ErrOverpayment rejects payments exceeding the outstanding balance.
	ErrOverpayment = errors.New("billing: payment exceeds outstanding balance")
)

// OverpaymentError carries the amounts for the rejection message.
type OverpaymentError struct {
	Requested   decimal.Decimal
	Outstanding decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("billing: payment of %s exceeds outstanding balance of %s",
		e.Requested.String(), e.Outstanding.String())
}

// Is makes errors.Is(err, ErrOverpayment) match.
func (e *OverpaymentError) Is(target error) bool {
	return target == ErrOverpayment
}

// FormatNumber renders a document number with the sequence zero-padded to
// three digits; sequences past 999 keep their natural width.
func FormatNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%03d", prefix, seq)
}
